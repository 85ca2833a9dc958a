package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
)

const (
	DefaultDebounce = 500 * time.Millisecond

	// configMapDataLink is swapped atomically by the kubelet when a mounted ConfigMap changes.
	configMapDataLink = "..data"
)

// Source reads the registry document from a file and signals changes to it.
type Source struct {
	logger    *slog.Logger
	path      string
	debounce  time.Duration
	watcher   *fsnotify.Watcher
	changes   chan struct{}
	stopCh    chan struct{}
	stoppedCh chan struct{}
	stopOnce  sync.Once
}

// New watches the directory holding path. Close stops the watch.
func New(logger *slog.Logger, path string, debounce time.Duration) (*Source, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	path = filepath.Clean(path)

	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		_ = fsWatcher.Close()

		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	s := &Source{
		logger:    logger.With("component", "registry-file"),
		path:      path,
		debounce:  debounce,
		watcher:   fsWatcher,
		changes:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}

	go s.eventLoop()

	return s, nil
}

var _ registry.Source = (*Source)(nil)

func (s *Source) Describe() string {
	return "file " + s.path
}

func (s *Source) FetchQuery(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	return data, nil
}

// Changes delivers one signal per debounced burst of file events. A signal not yet
// consumed absorbs later ones.
func (s *Source) Changes() <-chan struct{} {
	return s.changes
}

// Close stops the watch and closes the change channel.
func (s *Source) Close() error {
	var err error

	s.stopOnce.Do(func() {
		close(s.stopCh)
		err = s.watcher.Close()
		<-s.stoppedCh
	})

	return err
}

func (s *Source) eventLoop() {
	defer close(s.stoppedCh)
	defer close(s.changes)

	var (
		debounceTimer *time.Timer
		debounceCh    <-chan time.Time
	)

	for {
		select {
		case <-s.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}

			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if !s.relevant(event) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}

			debounceTimer = time.NewTimer(s.debounce)
			debounceCh = debounceTimer.C

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}

			s.logger.Warn("registry file watcher error", "reason", err)

		case <-debounceCh:
			debounceCh = nil

			select {
			case s.changes <- struct{}{}:
			default:
			}
		}
	}
}

func (s *Source) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}

	name := filepath.Clean(event.Name)

	return name == s.path || filepath.Base(name) == configMapDataLink
}
