package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	backoffFactor = 2.0
	backoffJitter = 0.2

	restartReasonListError  = "list-error"
	restartReasonWatchError = "watch-error"
	restartReasonExpired    = "expired"
	restartReasonClosed     = "closed"
)

// Options configures the watcher.
type Options struct {
	Kinds          []Kind
	Buffer         int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type streamEnd int

const (
	streamCanceled streamEnd = iota
	streamClosed
	streamExpired
	streamFailed
)

// Service turns list+watch sessions into a single bounded stream of events.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	metrics    recorder
	opts       Options
	events     chan Event
	mu         sync.RWMutex
	downSince  map[Kind]time.Time
	connected  map[Kind]bool
	ready      chan struct{}
	doneCh     chan struct{}
	inShutdown atomic.Bool
	wg         sync.WaitGroup
}

// New creates a watcher for the configured kinds.
func New(
	logger *slog.Logger,
	repo Repository,
	metrics recorder,
	opts Options,
) (*Service, error) {
	if len(opts.Kinds) == 0 {
		return nil, ErrNoKinds
	}

	now := time.Now()
	downSince := make(map[Kind]time.Time, len(opts.Kinds))

	for _, kind := range opts.Kinds {
		downSince[kind] = now
	}

	return &Service{
		logger:    logger.With("component", "watcher"),
		repo:      repo,
		metrics:   metrics,
		opts:      opts,
		events:    make(chan Event, max(opts.Buffer, 0)),
		downSince: downSince,
		connected: make(map[Kind]bool, len(opts.Kinds)),
		ready:     make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Name returns the name of the watcher component.
func (s *Service) Name() string {
	return "workload-watcher"
}

// Events returns the event stream. It is closed after every watch loop has exited.
func (s *Service) Events() <-chan Event {
	return s.events
}

// Start launches one list+watch loop per kind.
func (s *Service) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "watcher is shutting down, skipping start")

		return nil
	}

	for _, kind := range s.opts.Kinds {
		s.wg.Add(1)

		go func(kind Kind) {
			defer s.wg.Done()

			s.watchLoop(ctx, kind)
		}(kind)
	}

	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.doneCh)
	}()

	close(s.ready)

	return nil
}

// Ready returns a channel closed once the watch loops are launched.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Ping fails when a subscription was never established or has been down for longer
// than the maximum reconnect backoff.
func (s *Service) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var down []string

	for _, kind := range s.opts.Kinds {
		if s.connected[kind] {
			continue
		}

		if since, ok := s.downSince[kind]; ok && time.Since(since) > s.opts.MaxBackoff {
			down = append(down, string(kind))
		}
	}

	if len(down) > 0 {
		slices.Sort(down)

		return fmt.Errorf("%w: %v", ErrNotConnected, down)
	}

	return nil
}

// Shutdown waits for every watch loop to exit.
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before watch loops exited: %w", ctx.Err())
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "watch loops exited")
	}

	return nil
}

func (s *Service) newBackoff() wait.Backoff {
	return wait.Backoff{
		Duration: s.opts.InitialBackoff,
		Factor:   backoffFactor,
		Jitter:   backoffJitter,
		Steps:    math.MaxInt32,
		Cap:      s.opts.MaxBackoff,
	}
}

func (s *Service) watchLoop(ctx context.Context, kind Kind) {
	logger := s.logger.With("kind", kind)
	backoff := s.newBackoff()
	resourceVersion := ""

	for ctx.Err() == nil {
		if resourceVersion == "" {
			rv, err := s.resync(ctx, kind)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				s.setConnected(kind, false)
				s.metrics.RecordWatchRestart(string(kind), restartReasonListError)
				logger.ErrorContext(ctx, "list workloads failed", "reason", err)

				s.sleep(ctx, backoff.Step())

				continue
			}

			resourceVersion = rv
		}

		changes, err := s.repo.WatchWorkloadsQuery(ctx, kind, resourceVersion)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			s.setConnected(kind, false)

			var target gone
			if errors.As(err, &target) {
				logger.InfoContext(ctx, "resource version expired, resyncing", "resourceVersion", resourceVersion)
				s.metrics.RecordWatchRestart(string(kind), restartReasonExpired)

				resourceVersion = ""

				continue
			}

			s.metrics.RecordWatchRestart(string(kind), restartReasonWatchError)
			logger.ErrorContext(ctx, "watch workloads failed", "reason", err)

			s.sleep(ctx, backoff.Step())

			continue
		}

		s.setConnected(kind, true)
		logger.DebugContext(ctx, "watch established", "resourceVersion", resourceVersion)

		rv, end, received := s.consume(ctx, logger, changes, resourceVersion)
		resourceVersion = rv

		s.setConnected(kind, false)

		if received {
			backoff = s.newBackoff()
		}

		switch end {
		case streamCanceled:
			return
		case streamExpired:
			logger.InfoContext(ctx, "watch expired, resyncing")
			s.metrics.RecordWatchRestart(string(kind), restartReasonExpired)

			resourceVersion = ""

			continue
		case streamFailed:
			s.metrics.RecordWatchRestart(string(kind), restartReasonWatchError)
		case streamClosed:
			s.metrics.RecordWatchRestart(string(kind), restartReasonClosed)
			logger.DebugContext(ctx, "watch stream closed, reconnecting", "resourceVersion", resourceVersion)
		}

		s.sleep(ctx, backoff.Step())
	}
}

// resync lists every live workload, emits a synthetic event for each and returns the
// list resource version to resume watching from.
func (s *Service) resync(ctx context.Context, kind Kind) (string, error) {
	workloads, rv, err := s.repo.ListWorkloadsQuery(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", kind, err)
	}

	s.logger.InfoContext(ctx, "workloads listed", "kind", kind, "count", len(workloads), "resourceVersion", rv)

	now := time.Now()

	for i := range workloads {
		if !s.emit(ctx, Event{Type: EventResync, Workload: workloads[i], ObservedAt: now}) {
			return "", ctx.Err()
		}
	}

	return rv, nil
}

func (s *Service) consume(
	ctx context.Context,
	logger *slog.Logger,
	changes <-chan Change,
	resourceVersion string,
) (string, streamEnd, bool) {
	received := false

	for {
		select {
		case <-ctx.Done():
			return resourceVersion, streamCanceled, received
		case change, ok := <-changes:
			if !ok {
				return resourceVersion, streamClosed, received
			}

			received = true

			if change.Type == ChangeError {
				var target gone
				if errors.As(change.Err, &target) {
					return "", streamExpired, received
				}

				logger.ErrorContext(ctx, "watch stream error", "reason", change.Err)

				return resourceVersion, streamFailed, received
			}

			if change.ResourceVersion != "" {
				resourceVersion = change.ResourceVersion
			}

			eventType, emit := eventTypeFor(change.Type)
			if !emit {
				continue
			}

			if !s.emit(ctx, Event{Type: eventType, Workload: change.Workload, ObservedAt: time.Now()}) {
				return resourceVersion, streamCanceled, received
			}
		}
	}
}

func eventTypeFor(changeType ChangeType) (EventType, bool) {
	switch changeType {
	case ChangeAdded:
		return EventCreate, true
	case ChangeModified:
		return EventUpdate, true
	case ChangeDeleted:
		return EventDelete, true
	default:
		return "", false
	}
}

// emit blocks while the buffer is full, pushing back on the watch stream.
func (s *Service) emit(ctx context.Context, event Event) bool {
	select {
	case <-ctx.Done():
		return false
	case s.events <- event:
		return true
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *Service) setConnected(kind Kind, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected[kind] == connected {
		return
	}

	s.connected[kind] = connected
	if !connected {
		s.downSince[kind] = time.Now()
	}
}
