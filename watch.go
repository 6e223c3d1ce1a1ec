package folio

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eringen/folio/logger"
)

const watchDebounce = 500 * time.Millisecond

// DataWatcher calls onChange after files in the data directory are edited
// outside the application, e.g. a post body changed in an editor.
type DataWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
	done     chan struct{}
	once     sync.Once
}

// WatchDataDir watches dir and its blog/ subdirectory.
func WatchDataDir(dir string, onChange func()) (*DataWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range []string{dir, filepath.Join(dir, "blog")} {
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, err
		}
	}
	dw := &DataWatcher{watcher: w, onChange: onChange, done: make(chan struct{})}
	go dw.run()
	return dw, nil
}

func (dw *DataWatcher) run() {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	for {
		select {
		case <-dw.done:
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			logger.DebugWithFields("data change detected", logger.Fields{"file": event.Name, "op": event.Op.String()})
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, dw.onChange)
			mu.Unlock()
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			logger.WarnWithFields("data watcher error", logger.Fields{"error": err.Error()})
		}
	}
}

// relevant skips the temp files written during atomic saves.
func relevant(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

// Close stops watching.
func (dw *DataWatcher) Close() error {
	var err error
	dw.once.Do(func() {
		close(dw.done)
		err = dw.watcher.Close()
	})
	return err
}
