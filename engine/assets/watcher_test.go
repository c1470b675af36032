package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	changed := map[string]int{}
	w, err := NewWatcher([]string{".png"}, func(path string) {
		mu.Lock()
		changed[filepath.Base(path)]++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		t.Fatalf("Add: %v", err)
	}

	path := filepath.Join(dir, "tex.png")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	// Ignored extension never fires.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := changed["tex.png"]
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if changed["tex.png"] == 0 {
		t.Fatal("no change notification for tex.png")
	}
	if changed["tex.png"] > 2 {
		t.Fatalf("burst of writes fired %d times, want coalesced", changed["tex.png"])
	}
	if changed["notes.txt"] != 0 {
		t.Fatal("filtered extension fired a notification")
	}
}

func TestWatcherCloseStopsDelivery(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan string, 8)
	w, err := NewWatcher([]string{".png"}, func(path string) { fired <- path })
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "late.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-fired:
		t.Fatalf("notification %q after Close", p)
	case <-time.After(400 * time.Millisecond):
	}
}
