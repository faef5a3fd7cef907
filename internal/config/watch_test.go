package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestNewWatcherSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if w.Changes() == nil {
		t.Error("Changes() returned nil channel")
	}
	if w.Path() != path {
		t.Errorf("Path() = %q, want %q", w.Path(), path)
	}
}

func TestNewWatcherBadPath(t *testing.T) {
	_, err := NewWatcher("/nonexistent/dir/config.yaml")
	if err == nil {
		t.Error("NewWatcher should fail for nonexistent directory")
	}
}

func TestWatcherDetectsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "refresh_rate_hz: 5\n")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	// Give fsnotify time to start watching.
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "refresh_rate_hz: 10\n")

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Error("timed out waiting for change signal on config write")
	}
}

func TestWatcherDebouncesBurst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		writeFile(t, path, "rounds: 1\n")
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change signal")
	}
	select {
	case <-w.Changes():
		t.Error("a burst of writes should collapse into one signal")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "other.txt"), "noise")

	select {
	case <-w.Changes():
		t.Error("unexpected change signal from unrelated file write")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestWatcherFollowsSymlink(t *testing.T) {
	realDir := t.TempDir()
	real := filepath.Join(realDir, "config.yaml")
	writeFile(t, real, "rounds: 1\n")
	link := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	w, err := NewWatcher(link)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	wantTarget, _ := filepath.EvalSymlinks(real)
	if w.Target() != wantTarget {
		t.Errorf("Target() = %q, want %q", w.Target(), wantTarget)
	}

	time.Sleep(50 * time.Millisecond)
	writeFile(t, real, "rounds: 2\n")

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Error("timed out waiting for change signal on symlink target write")
	}
}

func TestWatcherSeesSymlinkSwap(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "v1.yaml")
	second := filepath.Join(dir, "v2.yaml")
	writeFile(t, first, "rounds: 1\n")
	writeFile(t, second, "rounds: 2\n")
	link := filepath.Join(dir, "config.yaml")
	if err := os.Symlink(first, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	w, err := NewWatcher(link)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	time.Sleep(50 * time.Millisecond)

	// Swap the link atomically the way config mounts do.
	tmp := filepath.Join(dir, "config.yaml.tmp")
	if err := os.Symlink(second, tmp); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, link); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change signal on symlink swap")
	}
	want, _ := filepath.EvalSymlinks(second)
	if w.Target() != want {
		t.Errorf("Target() = %q after swap, want %q", w.Target(), want)
	}
}
