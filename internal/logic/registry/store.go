package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	reloadResultApplied   = "applied"
	reloadResultUnchanged = "unchanged"
	reloadResultFailed    = "failed"
)

// Store owns the current registry snapshot. Reload is single-writer; readers get the
// snapshot through an atomic pointer and never observe a partial update.
type Store struct {
	logger     *slog.Logger
	source     Source
	metrics    recorder
	current    atomic.Pointer[Registry]
	writeMu    sync.Mutex
	errMu      sync.RWMutex
	lastErr    error
	ready      chan struct{}
	doneCh     chan struct{}
	inShutdown atomic.Bool
}

// NewStore creates a store reading from source. Nothing is loaded until Load or Start.
func NewStore(logger *slog.Logger, source Source, metrics recorder) *Store {
	return &Store{
		logger:  logger.With("component", "registry"),
		source:  source,
		metrics: metrics,
		lastErr: ErrNotLoaded,
		ready:   make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Name returns the name of the registry store component.
func (s *Store) Name() string {
	return "registry-store"
}

// Current returns the active snapshot, nil before the first successful load.
func (s *Store) Current() *Registry {
	return s.current.Load()
}

// Load fetches, parses and validates the source and swaps the snapshot on success.
// On failure the previous snapshot stays active and the error is kept for Ping.
func (s *Store) Load(ctx context.Context) (*Registry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := s.source.FetchQuery(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrFetch, s.source.Describe(), err)
		s.fail(ctx, err)

		return nil, err
	}

	next, err := Parse(data, time.Now())
	if err != nil {
		s.fail(ctx, err)

		return nil, err
	}

	s.setErr(nil)

	prev := s.current.Load()
	if prev != nil && prev.Revision() == next.Revision() {
		s.metrics.RecordConfigReload(reloadResultUnchanged)
		s.logger.DebugContext(ctx, "registry unchanged", "revision", next.Revision())

		return prev, nil
	}

	s.current.Store(next)
	s.metrics.RecordConfigReload(reloadResultApplied)
	s.metrics.SetRegistryApplications(next.Len())

	if next.Len() == 0 {
		s.logger.WarnContext(ctx, "registry loaded with no applications", "source", s.source.Describe())
	}

	s.logger.InfoContext(ctx, "registry loaded",
		"source", s.source.Describe(),
		"revision", next.Revision(),
		"applications", next.Len(),
	)

	return next, nil
}

// Reload is the scheduled form of Load: failures are logged and kept, never returned
// as fatal to the caller's loop.
func (s *Store) Reload(ctx context.Context) error {
	_, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return nil
}

// Start performs the initial load and follows change hints from the source.
func (s *Store) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "registry store is shutting down, skipping start")

		return nil
	}

	if _, err := s.Load(ctx); err != nil {
		s.logger.ErrorContext(ctx, "initial registry load failed", "reason", err)
	}

	go s.run(ctx)

	return nil
}

func (s *Store) run(ctx context.Context) {
	defer close(s.doneCh)

	close(s.ready)

	notifier, ok := s.source.(changeNotifier)
	if !ok {
		<-ctx.Done()

		return
	}

	changes := notifier.Changes()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "terminating registry change loop")

			return
		case _, open := <-changes:
			if !open {
				<-ctx.Done()

				return
			}

			s.logger.InfoContext(ctx, "registry source changed, reloading")

			if err := s.Reload(ctx); err != nil {
				s.logger.ErrorContext(ctx, "registry reload failed", "reason", err)
			}
		}
	}
}

// Ready returns a channel closed once the change loop runs.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Ping fails while no snapshot is loaded or the latest load failed.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.errMu.RLock()
	defer s.errMu.RUnlock()

	return s.lastErr
}

// Shutdown waits for the change loop to exit.
func (s *Store) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before registry loop exited: %w", ctx.Err())
	case <-s.doneCh:
	}

	return nil
}

func (s *Store) fail(ctx context.Context, err error) {
	s.setErr(err)
	s.metrics.RecordConfigReload(reloadResultFailed)

	attrs := []any{"source", s.source.Describe(), "reason", err}
	if prev := s.current.Load(); prev != nil {
		attrs = append(attrs, "activeRevision", prev.Revision())
	}

	s.logger.ErrorContext(ctx, "registry load rejected, keeping last known good", attrs...)
}

func (s *Store) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	s.lastErr = err
}
