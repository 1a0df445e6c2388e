package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// StopFile lets an operator cancel a long-running upload by creating a
// sentinel file, without the device layer polling os.Stat in a loop.
// Watch returns a channel that's closed the moment the file appears.
type StopFile struct {
	path    string
	watcher *fsnotify.Watcher
}

// NewStopFile prepares a watcher for path. The file doesn't need to
// exist yet; its parent directory must.
func NewStopFile(path string) (*StopFile, error) {
	dir := filepath.Dir(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("uploader: stop file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("uploader: watch %s: %w", dir, err)
	}
	return &StopFile{path: path, watcher: watcher}, nil
}

// Close stops watching.
func (s *StopFile) Close() error {
	return s.watcher.Close()
}

// Watch returns a channel closed when the stop file is created (or
// already exists). ctx cancellation also closes the channel without a
// stop having occurred; callers should check ctx.Err() to tell the two
// apart.
func (s *StopFile) Watch(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})

	if _, err := os.Stat(s.path); err == nil {
		close(stopped)
		return stopped
	}

	go func() {
		defer close(stopped)
		for {
			select {
			case event, ok := <-s.watcher.Events:
				if !ok {
					return
				}
				if event.Name == s.path && (event.Op&(fsnotify.Create|fsnotify.Write) != 0) {
					return
				}
			case <-s.watcher.Errors:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return stopped
}

// Clear removes the stop file, if present, so a subsequent upload
// isn't cancelled immediately.
func (s *StopFile) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("uploader: clearing stop file: %w", err)
	}
	return nil
}
