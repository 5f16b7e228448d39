package levelview

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reloads a file when it changes on disk. Reloaded values are
// delivered on Updates; the consumer drains the channel from its own
// thread, so nothing here touches viewer state.
type FileWatcher[T any] struct {
	path    string
	load    func(path string) (T, error)
	watcher *fsnotify.Watcher
	updates chan T
	done    chan struct{}
	logger  Logger
}

// ConfigWatcher delivers reloaded viewer configs.
type ConfigWatcher = FileWatcher[Config]

func WatchConfig(path string, logger Logger) (*ConfigWatcher, error) {
	return WatchFile(path, LoadConfig, logger)
}

func WatchFile[T any](path string, load func(path string) (T, error), logger Logger) (*FileWatcher[T], error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	fw := &FileWatcher[T]{
		path:    filepath.Clean(path),
		load:    load,
		watcher: w,
		updates: make(chan T, 1),
		done:    make(chan struct{}),
		logger:  OrNop(logger),
	}
	go fw.loop()
	return fw, nil
}

// Updates yields the latest successfully loaded value. Only the newest
// pending value is kept.
func (fw *FileWatcher[T]) Updates() <-chan T {
	return fw.updates
}

func (fw *FileWatcher[T]) loop() {
	defer close(fw.done)
	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			v, err := fw.load(fw.path)
			if err != nil {
				fw.logger.Warnf("reload of %s skipped: %v", fw.path, err)
				continue
			}
			fw.publish(v)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warnf("file watcher: %v", err)
		}
	}
}

func (fw *FileWatcher[T]) publish(v T) {
	select {
	case <-fw.updates:
	default:
	}
	fw.updates <- v
}

func (fw *FileWatcher[T]) Close() error {
	err := fw.watcher.Close()
	<-fw.done
	return err
}
