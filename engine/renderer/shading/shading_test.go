package shading

import (
	gomath "math"
	"testing"

	"github.com/spaghettifunk/lumen/engine/math"
)

func almostEqual(a, b, eps float32) bool {
	return float32(gomath.Abs(float64(a-b))) <= eps
}

func TestComputeCascadeSplits(t *testing.T) {
	tests := []struct {
		name     string
		near     float32
		far      float32
		cascades int
		lambda   float32
	}{
		{"default", 0.1, 100, 4, DefaultPSSMLambda},
		{"uniform", 0.1, 100, 4, 0},
		{"logarithmic", 0.1, 100, 4, 1},
		{"two cascades", 0.5, 50, 2, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits := ComputeCascadeSplits(tt.near, tt.far, tt.cascades, tt.lambda)
			if len(splits) != tt.cascades+1 {
				t.Fatalf("split count = %d, want %d", len(splits), tt.cascades+1)
			}
			if splits[0] != tt.near {
				t.Fatalf("splits[0] = %v, want near %v", splits[0], tt.near)
			}
			for i := 1; i < len(splits); i++ {
				if splits[i] <= splits[i-1] {
					t.Fatalf("split %d = %v not beyond %v", i, splits[i], splits[i-1])
				}
			}
			if !almostEqual(splits[tt.cascades], tt.far, 0.001*tt.far) {
				t.Fatalf("last split = %v, want far plane %v", splits[tt.cascades], tt.far)
			}
		})
	}

	// Lambda pulls the near splits closer to the camera.
	uniform := ComputeCascadeSplits(0.1, 100, 4, 0)
	log := ComputeCascadeSplits(0.1, 100, 4, 1)
	if log[1] >= uniform[1] {
		t.Fatalf("logarithmic first split %v should be closer than uniform %v", log[1], uniform[1])
	}
}

func TestSelectCascade(t *testing.T) {
	splits := []float32{0.1, 5, 15, 40, 100}
	tests := []struct {
		depth float32
		want  int
	}{
		{1, 0},
		{5.1, 1},
		{20, 2},
		{99, 3},
		{150, 3}, // beyond the far plane stays in the last cascade
	}
	for _, tt := range tests {
		if got := SelectCascade(tt.depth, splits); got != tt.want {
			t.Errorf("SelectCascade(%v) = %d, want %d", tt.depth, got, tt.want)
		}
	}
}

func TestToneMapOperators(t *testing.T) {
	ops := []ToneMapOperator{ToneMapReinhard, ToneMapACES, ToneMapUncharted2}
	for _, op := range ops {
		t.Run(op.String(), func(t *testing.T) {
			black := ToneMap(math.NewVec3(0, 0, 0), op)
			if black.Length() > 0.02 {
				t.Fatalf("black maps to %v", black)
			}
			// Monotonic on the gray axis and bounded by 1.
			prev := float32(-1)
			for _, x := range []float32{0.1, 0.5, 1, 2, 8, 64} {
				y := ToneMap(math.NewVec3(x, x, x), op).X
				if y <= prev {
					t.Fatalf("not monotonic at %v: %v <= %v", x, y, prev)
				}
				if y > 1.001 {
					t.Fatalf("ToneMap(%v) = %v exceeds 1", x, y)
				}
				prev = y
			}
		})
	}
}

func TestParseToneMapOperator(t *testing.T) {
	tests := []struct {
		in   string
		want ToneMapOperator
	}{
		{"reinhard", ToneMapReinhard},
		{"aces", ToneMapACES},
		{"uncharted2", ToneMapUncharted2},
		{"", ToneMapACES},
		{"garbage", ToneMapACES},
	}
	for _, tt := range tests {
		if got := ParseToneMapOperator(tt.in); got != tt.want {
			t.Errorf("ParseToneMapOperator(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDistributionGGX(t *testing.T) {
	// Rough surfaces spread the lobe: at glancing half-angles a rough
	// surface returns more energy than a smooth one.
	smooth := DistributionGGX(0.5, 0.1)
	rough := DistributionGGX(0.5, 0.9)
	if rough <= smooth {
		t.Fatalf("rough %v <= smooth %v at nDotH=0.5", rough, smooth)
	}
	// And the smooth peak at nDotH=1 dominates.
	if DistributionGGX(1, 0.1) <= DistributionGGX(1, 0.9) {
		t.Fatal("smooth surface must peak higher at normal incidence")
	}
}

func TestFresnelSchlick(t *testing.T) {
	f0 := math.NewVec3(0.04, 0.04, 0.04)
	head := FresnelSchlick(1, f0)
	if !almostEqual(head.X, 0.04, 1e-4) {
		t.Fatalf("head-on fresnel = %v, want f0", head)
	}
	grazing := FresnelSchlick(0, f0)
	if !almostEqual(grazing.X, 1, 1e-4) {
		t.Fatalf("grazing fresnel = %v, want 1", grazing)
	}
}

func TestBaseReflectivity(t *testing.T) {
	albedo := math.NewVec3(0.9, 0.5, 0.2)
	dielectric := BaseReflectivity(albedo, 0)
	if !almostEqual(dielectric.X, DielectricF0, 1e-4) {
		t.Fatalf("dielectric f0 = %v", dielectric)
	}
	metal := BaseReflectivity(albedo, 1)
	if !metal.Compare(albedo, 1e-4) {
		t.Fatalf("metal f0 = %v, want albedo", metal)
	}
}

func TestPointLightAttenuation(t *testing.T) {
	if a := PointLightAttenuation(0.5, 10); a <= 0 {
		t.Fatalf("attenuation near the light = %v", a)
	}
	if a := PointLightAttenuation(10, 10); !almostEqual(a, 0, 1e-3) {
		t.Fatalf("attenuation at range = %v, want 0", a)
	}
	if a := PointLightAttenuation(20, 10); a != 0 {
		t.Fatalf("attenuation beyond range = %v, want 0", a)
	}
	// Inverse square falloff inside the range.
	if PointLightAttenuation(1, 100) <= PointLightAttenuation(2, 100) {
		t.Fatal("attenuation must decrease with distance")
	}
}

func TestEncodeDecodeNormal(t *testing.T) {
	normals := []math.Vec3{
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: -1},
		math.NewVec3(1, 2, -3).Normalized(),
	}
	for _, n := range normals {
		got := DecodeNormal(EncodeNormal(n))
		if !got.Compare(n, 1e-5) {
			t.Errorf("round trip %v -> %v", n, got)
		}
	}
}

func TestFloat16Quantize(t *testing.T) {
	tests := []float32{0, 1, -1, 0.5, 1024, 0.0001}
	for _, f := range tests {
		q := Float16Quantize(f)
		if f == 0 && q != 0 {
			t.Fatalf("quantized zero = %v", q)
		}
		if f != 0 && !almostEqual(q/f, 1, 0.001) {
			t.Errorf("Float16Quantize(%v) = %v", f, q)
		}
	}
}

func TestReconstructWorldPosition(t *testing.T) {
	view := math.NewMat4LookAt(math.NewVec3(0, 0, 5), math.NewVec3Zero(), math.NewVec3Up())
	proj := math.NewMat4Perspective(math.DegToRad(60), 16.0/9.0, 0.1, 100)
	viewProj := proj.Mul(view)

	world := math.NewVec3(1, 2, -3)
	clip := viewProj.MulVec4(world.ToVec4(1))
	ndc := math.NewVec3(clip.X/clip.W, clip.Y/clip.W, clip.Z/clip.W)
	uv := math.NewVec2(ndc.X*0.5+0.5, ndc.Y*0.5+0.5)
	depth := ndc.Z*0.5 + 0.5

	got := ReconstructWorldPosition(uv, depth, viewProj.Inverse())
	if !got.Compare(world, 0.01) {
		t.Fatalf("reconstructed %v, want %v", got, world)
	}
}

func TestBayerThreshold(t *testing.T) {
	seen := map[float32]bool{}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v := BayerThreshold(x, y)
			if v < 0 || v >= 1 {
				t.Fatalf("threshold (%d,%d) = %v out of [0,1)", x, y, v)
			}
			if seen[v] {
				t.Fatalf("duplicate threshold %v", v)
			}
			seen[v] = true
		}
	}
	// Tiles with period 4.
	if BayerThreshold(0, 0) != BayerThreshold(4, 4) {
		t.Fatal("pattern does not tile")
	}
}

func TestIntegrateBRDF(t *testing.T) {
	tests := []struct {
		nDotV     float32
		roughness float32
	}{
		{0.5, 0.1},
		{0.5, 0.9},
		{0.9, 0.5},
	}
	for _, tt := range tests {
		r := IntegrateBRDF(tt.nDotV, tt.roughness, 64)
		if r.X < 0 || r.X > 1 || r.Y < 0 || r.Y > 1 {
			t.Errorf("IntegrateBRDF(%v, %v) = %v out of range", tt.nDotV, tt.roughness, r)
		}
		if r.X+r.Y > 1.001 {
			t.Errorf("scale+bias = %v exceeds energy conservation", r)
		}
	}
}

func TestHammersley(t *testing.T) {
	n := uint32(16)
	for i := uint32(0); i < n; i++ {
		p := Hammersley(i, n)
		if p.X < 0 || p.X >= 1 || p.Y < 0 || p.Y >= 1 {
			t.Fatalf("Hammersley(%d) = %v out of unit square", i, p)
		}
	}
	if Hammersley(0, n).X != 0 {
		t.Fatal("first sample must start at 0")
	}
}

func TestProceduralSky(t *testing.T) {
	up := ProceduralSky(math.NewVec3(0, 1, 0))
	down := ProceduralSky(math.NewVec3(0, -1, 0))
	if up.Z <= down.Z {
		t.Fatalf("zenith %v should be bluer than the ground %v", up, down)
	}
	for _, c := range []float32{up.X, up.Y, up.Z, down.X, down.Y, down.Z} {
		if c < 0 {
			t.Fatalf("negative sky radiance: up=%v down=%v", up, down)
		}
	}
}

func TestCubeFaceDirection(t *testing.T) {
	want := [6]math.Vec3{
		{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
	}
	for face := 0; face < 6; face++ {
		dir := CubeFaceDirection(face, 0.5, 0.5)
		if !dir.Compare(want[face], 1e-5) {
			t.Errorf("face %d center = %v, want %v", face, dir, want[face])
		}
	}
}

func TestConvolveIrradianceUniformEnvironment(t *testing.T) {
	// A constant environment convolves to roughly itself.
	env := func(math.Vec3) math.Vec3 { return math.NewVec3(1, 1, 1) }
	got := ConvolveIrradiance(env, math.NewVec3(0, 1, 0), 0.1)
	if !almostEqual(got.X, 1, 0.05) {
		t.Fatalf("uniform convolution = %v, want ~1", got)
	}
}

func TestShadowBias(t *testing.T) {
	// Glancing light needs more bias than head-on light.
	if ShadowBias(0.05, 0) <= ShadowBias(1, 0) {
		t.Fatal("bias must grow as nDotL shrinks")
	}
}

func TestRGBYCoCgRoundTrip(t *testing.T) {
	colors := []math.Vec3{
		{X: 1, Y: 0, Z: 0},
		{X: 0.2, Y: 0.7, Z: 0.3},
		{X: 1, Y: 1, Z: 1},
	}
	for _, c := range colors {
		got := YCoCgToRGB(RGBToYCoCg(c))
		if !got.Compare(c, 1e-5) {
			t.Errorf("round trip %v -> %v", c, got)
		}
	}
}

func TestClampToNeighborhood(t *testing.T) {
	neighborhood := []math.Vec3{
		{X: 0.4, Y: 0.4, Z: 0.4},
		{X: 0.6, Y: 0.6, Z: 0.6},
	}
	inside := math.NewVec3(0.5, 0.5, 0.5)
	if got := ClampToNeighborhood(inside, neighborhood); !got.Compare(inside, 1e-5) {
		t.Fatalf("inside history clamped to %v", got)
	}
	outlier := math.NewVec3(5, 5, 5)
	got := ClampToNeighborhood(outlier, neighborhood)
	if got.Compare(outlier, 1e-3) {
		t.Fatal("outlier history not clamped")
	}
}

func TestResolveTAAFeedback(t *testing.T) {
	current := math.NewVec3(1, 0, 0)
	history := math.NewVec3(0.5, 0, 0)
	neighborhood := []math.Vec3{current, history}

	// Zero feedback writes through.
	if got := ResolveTAA(current, history, neighborhood, 0); !got.Compare(current, 1e-5) {
		t.Fatalf("feedback 0 = %v, want current", got)
	}
	// Full feedback keeps history.
	if got := ResolveTAA(current, history, neighborhood, 1); !got.Compare(history, 1e-5) {
		t.Fatalf("feedback 1 = %v, want history", got)
	}
}

func TestCircleOfConfusion(t *testing.T) {
	// In focus means zero CoC; it grows with distance from the plane.
	if c := CircleOfConfusion(10, 10, 5); c != 0 {
		t.Fatalf("in-focus CoC = %v", c)
	}
	near := CircleOfConfusion(6, 10, 5)
	far := CircleOfConfusion(25, 10, 5)
	if near <= 0 || far <= 0 {
		t.Fatalf("out-of-focus CoC near=%v far=%v", near, far)
	}
	if CircleOfConfusion(100, 10, 5) > 1.001 {
		t.Fatal("CoC must saturate at 1")
	}
}

func TestColorGrade(t *testing.T) {
	c := math.NewVec3(0.25, 0.5, 0.75)
	if got := ColorGrade(c, 1, 1, 1); !got.Compare(c, 1e-5) {
		t.Fatalf("neutral grade changed the color: %v", got)
	}
	gray := ColorGrade(c, 1, 1, 0)
	if !almostEqual(gray.X, gray.Y, 1e-5) || !almostEqual(gray.Y, gray.Z, 1e-5) {
		t.Fatalf("zero saturation is not gray: %v", gray)
	}
}

func TestSubsurfaceTerm(t *testing.T) {
	n := math.NewVec3(0, 0, 1)
	v := math.NewVec3(0, 0, 1)
	white := math.NewVec3(1, 1, 1)

	tests := []struct {
		name string
		l    math.Vec3
		want float32
	}{
		// Head-on light: wrapped = 1, no back-scatter.
		{"head-on", math.NewVec3(0, 0, 1), 1.0 / math.Pi},
		// Directly behind: wrapped clamps to 0 and gates the scatter too.
		{"behind", math.NewVec3(0, 0, -1), 0},
		// Grazing light: wrapped = (0 + 0.5) / 1.5.
		{"grazing", math.NewVec3(1, 0, 0), (1.0 / 3.0) / math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SubsurfaceTerm(n, v, tt.l, white, white)
			if !almostEqual(got.X, tt.want, 1e-5) {
				t.Fatalf("SubsurfaceTerm = %v, want %v", got.X, tt.want)
			}
			if !almostEqual(got.X, got.Y, 1e-6) || !almostEqual(got.Y, got.Z, 1e-6) {
				t.Fatalf("white inputs must stay gray: %v", got)
			}
		})
	}

	// A light partially behind the surface facing the viewer adds
	// back-scatter on top of the wrap term.
	l := math.NewVec3(1, 0, -0.4).Normalized()
	wrapped := math.Clamp((n.Dot(l)+SubsurfaceWrap)/(1.0+SubsurfaceWrap), 0, 1)
	got := SubsurfaceTerm(n, v, l, white, white)
	if got.X <= wrapped/math.Pi {
		t.Fatalf("transmission %v adds no back-scatter over wrap %v", got.X, wrapped/math.Pi)
	}
}

func TestDirectLightSpecularMonotonicWithRoughness(t *testing.T) {
	// At normal incidence the specular peak must grow strictly as the
	// surface gets smoother; the Lambert term is constant across the sweep.
	n := math.NewVec3(0, 0, 1)
	albedo := math.NewVec3(0.5, 0.5, 0.5)
	radiance := math.NewVec3(1, 1, 1)

	prev := float32(-1)
	for _, roughness := range []float32{0.9, 0.7, 0.5, 0.3, 0.1} {
		out := DirectLight(n, n, n, albedo, 0, roughness, radiance)
		lum := Luminance(out)
		if lum <= prev {
			t.Fatalf("luminance %v at roughness %v not above %v", lum, roughness, prev)
		}
		prev = lum
	}

	// A light below the horizon contributes nothing.
	below := math.NewVec3(0, 0, -1)
	if out := DirectLight(n, n, below, albedo, 0, 0.5, radiance); out.Length() != 0 {
		t.Fatalf("light below horizon contributes %v", out)
	}
}

func TestConvolveIrradianceSkyHemispheres(t *testing.T) {
	// The analytic sky is brightest at the zenith, so a surface facing up
	// must receive more irradiance than one facing the ground.
	up := ConvolveIrradiance(ProceduralSky, math.NewVec3(0, 1, 0), DefaultIrradianceStep)
	down := ConvolveIrradiance(ProceduralSky, math.NewVec3(0, -1, 0), DefaultIrradianceStep)
	if Luminance(up) <= Luminance(down) {
		t.Fatalf("upward irradiance %v not above downward %v", up, down)
	}
	for _, c := range []float32{up.X, up.Y, up.Z, down.X, down.Y, down.Z} {
		if c < 0 {
			t.Fatalf("negative irradiance: up=%v down=%v", up, down)
		}
	}
}

func TestBrightExtract(t *testing.T) {
	threshold := float32(1)
	dim := math.NewVec3(0.5, 0.5, 0.5)
	if got := BrightExtract(dim, threshold); got.Length() != 0 {
		t.Fatalf("below-threshold color extracted: %v", got)
	}
	// Exactly at the threshold is still rejected.
	at := math.NewVec3(1, 1, 1)
	if got := BrightExtract(at, Luminance(at)); got.Length() != 0 {
		t.Fatalf("at-threshold color extracted: %v", got)
	}
	bright := math.NewVec3(2, 1.5, 1)
	if got := BrightExtract(bright, threshold); !got.Compare(bright, 1e-6) {
		t.Fatalf("bright color altered: %v, want %v", got, bright)
	}
}

func TestBloomBelowThresholdContributesNothing(t *testing.T) {
	// A scene entirely below the bloom threshold composites to the same
	// image with bloom enabled or disabled.
	threshold := float32(1)
	intensity := float32(0.8)
	colors := []math.Vec3{
		{X: 0.1, Y: 0.2, Z: 0.3},
		{X: 0.9, Y: 0.9, Z: 0.9},
		{},
	}
	for _, c := range colors {
		withBloom := c.Add(BrightExtract(c, threshold).MulScalar(intensity))
		if !withBloom.Compare(c, 1e-6) {
			t.Fatalf("bloom altered %v into %v", c, withBloom)
		}
		if got := ToneMap(withBloom, ToneMapACES); !got.Compare(ToneMap(c, ToneMapACES), 1e-6) {
			t.Fatalf("tone-mapped outputs diverge for %v", c)
		}
	}
}

func TestLuminance(t *testing.T) {
	if l := Luminance(math.NewVec3(1, 1, 1)); !almostEqual(l, 1, 1e-3) {
		t.Fatalf("white luminance = %v", l)
	}
	// Green dominates the perceptual weighting.
	if Luminance(math.NewVec3(0, 1, 0)) <= Luminance(math.NewVec3(1, 0, 0)) {
		t.Fatal("green must outweigh red")
	}
}
