package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals when the config file changes on disk.
//
// Editors often save by writing a temp file and renaming it over the
// original, and deployments often mount the config as a symlink that is
// swapped atomically. Both replace the file rather than write to it, so the
// watcher follows directories instead of the file itself: the directory of
// the configured path and the directory of the file it resolves to.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange chan struct{}
	done     chan struct{}

	mu     sync.Mutex
	target string // path resolved through symlinks
	dirs   map[string]bool
}

// NewWatcher creates a watcher for the given config path.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		path:     abs,
		debounce: 100 * time.Millisecond,
		onChange: make(chan struct{}, 1),
		done:     make(chan struct{}),
		dirs:     make(map[string]bool),
	}
	if err := w.watchDir(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	w.retarget()

	go w.loop()
	return w, nil
}

// Path is the watched file as configured.
func (w *Watcher) Path() string {
	return w.path
}

// Target is the file Path currently resolves to.
func (w *Watcher) Target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// Changes returns a channel that receives a signal when the file changes.
func (w *Watcher) Changes() <-chan struct{} {
	return w.onChange
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) watchDir(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// retarget resolves the symlink chain again and reports whether the target
// moved. A path that does not resolve (mid-replace) keeps the old target.
func (w *Watcher) retarget() bool {
	resolved, err := filepath.EvalSymlinks(w.path)
	if err != nil {
		resolved = w.path
		if w.target != "" {
			return false
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if resolved == w.target {
		return false
	}
	w.target = resolved
	// Best effort: a target directory we cannot watch still changes through
	// the link directory when the link is swapped.
	_ = w.watchDir(filepath.Dir(resolved))
	return true
}

// relevant reports whether event touches the config file, directly or by
// replacing a link in its chain.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	old := w.Target()
	moved := w.retarget()
	return moved || name == w.path || name == old
}

func (w *Watcher) loop() {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case w.onChange <- struct{}{}:
				default:
				}
			})
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
