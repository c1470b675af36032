package core

import "sync"

const avgCount = 30

// MetricsState keeps a rolling frame-time average and a frames-per-second
// counter for the engine loop.
type MetricsState struct {
	frameAVGCounter    uint8
	msTimes            [avgCount]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState

func MetricsInitialize() {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
}

func MetricsUpdate(frameElapsedTime float64) {
	if metricsState == nil {
		return
	}
	frameMS := frameElapsedTime * 1000.0
	metricsState.msTimes[metricsState.frameAVGCounter] = frameMS
	if metricsState.frameAVGCounter == avgCount-1 {
		sum := 0.0
		for i := 0; i < avgCount; i++ {
			sum += metricsState.msTimes[i]
		}
		metricsState.msAvg = sum / float64(avgCount)
	}
	metricsState.frameAVGCounter = (metricsState.frameAVGCounter + 1) % avgCount

	metricsState.accumulatedFrameMS += frameMS
	if metricsState.accumulatedFrameMS > 1000 {
		metricsState.fps = float64(metricsState.frames)
		metricsState.accumulatedFrameMS -= 1000
		metricsState.frames = 0
	}
	metricsState.frames++
}

// MetricsFrame returns (fps, average frame ms).
func MetricsFrame() (float64, float64) {
	if metricsState == nil {
		return 0, 0
	}
	return metricsState.fps, metricsState.msAvg
}
