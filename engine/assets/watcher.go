package assets

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/lumen/engine/core"
)

// Watcher reports asset files changing on disk so callers can reload them:
// the renderer evicts textures, the shader pipeline recompiles. Events are
// debounced because editors fire several writes per save.
type Watcher struct {
	fs       *fsnotify.Watcher
	exts     map[string]bool
	onChange func(path string)

	mu      sync.Mutex
	pending map[string]time.Time
	done    chan struct{}
	wg      sync.WaitGroup
}

const watcherDebounce = 200 * time.Millisecond

// NewWatcher starts the event loop. fsnotify does not recurse, so every
// directory of interest must be registered with Add.
func NewWatcher(exts []string, onChange func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fsw,
		exts:     make(map[string]bool, len(exts)),
		onChange: onChange,
		pending:  make(map[string]time.Time),
		done:     make(chan struct{}),
	}
	for _, e := range exts {
		w.exts[strings.ToLower(e)] = true
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Add registers a directory to watch.
func (w *Watcher) Add(dir string) error {
	return w.fs.Add(dir)
}

func (w *Watcher) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(watcherDebounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.exts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			core.LogWarn("asset watcher: %s", err)
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// flush fires the callback for paths that have been quiet long enough.
func (w *Watcher) flush(now time.Time) {
	var ready []string
	w.mu.Lock()
	for path, last := range w.pending {
		if now.Sub(last) >= watcherDebounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		core.LogDebug("asset changed: %s", path)
		w.onChange(path)
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}
