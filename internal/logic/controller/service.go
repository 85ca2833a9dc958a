package controller

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

// Service is the reconciliation pipeline: workload events in, scan submissions out.
type Service struct {
	logger      *slog.Logger
	source      EventSource
	matcher     Matcher
	submitter   Submitter
	metrics     recorder
	workers     int
	generations *generations
	processed   atomic.Int64
	ready       chan struct{}
	doneCh      chan struct{}
	inShutdown  atomic.Bool
}

// New creates a new controller service.
func New(
	logger *slog.Logger,
	source EventSource,
	matcher Matcher,
	submitter Submitter,
	metrics recorder,
	workers int,
) (*Service, error) {
	if workers < 1 {
		return nil, ErrNoWorkers
	}

	return &Service{
		logger:      logger.With("component", "pipeline"),
		source:      source,
		matcher:     matcher,
		submitter:   submitter,
		metrics:     metrics,
		workers:     workers,
		generations: newGenerations(),
		ready:       make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

func (s *Service) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "controller service is shutting down, skipping start")

		return nil
	}

	go s.RunCommand(ctx)

	return nil
}

// Name returns the name of the pipeline component
func (s *Service) Name() string {
	return "bd-selfscan-controller"
}

func (s *Service) Ping(ctx context.Context) error {
	select {
	case <-s.doneCh:
		return ErrStopped
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
		return nil
	default:
		return fmt.Errorf("controller service is not ready")
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "controller service is already shutting down, skipping shutdown")

		return nil
	}

	s.logger.InfoContext(ctx, "shutting down controller service")

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before pipeline exited: %w", ctx.Err())
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "pipeline exited", "processed", s.processed.Load())
	}

	return nil
}

// Processed returns the number of events handled by the workers.
func (s *Service) Processed() int64 {
	return s.processed.Load()
}

// RunCommand dispatches events to the workers until ctx is done or the source closes.
// Events of one workload always land on the same worker, so they are handled in order.
func (s *Service) RunCommand(ctx context.Context) {
	defer close(s.doneCh)

	logger := s.logger.With("controller", "RunCommand")

	g, ctx := errgroup.WithContext(ctx)

	queues := make([]chan watcher.Event, s.workers)
	for i := range queues {
		queue := make(chan watcher.Event, queueSize)
		queues[i] = queue

		g.Go(func() error {
			s.work(ctx, queue)

			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, queue := range queues {
				close(queue)
			}
		}()

		return s.dispatch(ctx, queues)
	})

	close(s.ready)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "pipeline stopped", "reason", err)

		return
	}

	logger.InfoContext(ctx, "terminating pipeline")
}

func (s *Service) dispatch(ctx context.Context, queues []chan watcher.Event) error {
	events := s.source.Events()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				s.logger.InfoContext(ctx, "event source closed")

				return nil
			}

			s.metrics.RecordDeploymentEvent(ev.Workload.Namespace, string(ev.Workload.Kind), string(ev.Type))

			select {
			case <-ctx.Done():
				return nil
			case queues[shard(ev.Workload.Key(), len(queues))] <- ev:
			}
		}
	}
}

func (s *Service) work(ctx context.Context, queue <-chan watcher.Event) {
	for ev := range queue {
		if err := s.HandleEventCommand(ctx, ev); err != nil {
			s.logger.ErrorContext(ctx, "handle workload event",
				"workload", ev.Workload.Key(),
				"event", ev.Type,
				"reason", err,
			)
		}

		s.processed.Add(1)
	}
}

// HandleEventCommand runs one event through dedup, matching and submission.
func (s *Service) HandleEventCommand(ctx context.Context, ev watcher.Event) error {
	key := ev.Workload.Key()
	logger := s.logger.With(
		"workload", key,
		"event", ev.Type,
		"generation", ev.Workload.Generation,
	)

	if ev.Type == watcher.EventDelete {
		s.generations.forget(key)
		s.metrics.SetTrackedWorkloads(s.generations.len())
		s.metrics.RecordEventDiscarded(discardReasonDeleted)

		return nil
	}

	fresh := s.generations.observe(ev.Workload)
	s.metrics.SetTrackedWorkloads(s.generations.len())

	if !fresh {
		s.metrics.RecordEventDiscarded(discardReasonStale)
		logger.DebugContext(ctx, "generation already handled, skipping")

		return nil
	}

	app, ok := s.matcher.Match(ctx, ev.Workload.Namespace, ev.Workload.Labels)
	if !ok {
		s.metrics.RecordEventDiscarded(discardReasonUnmatched)

		return nil
	}

	logger = logger.With("application", app.Name)

	sub, err := s.submitter.Submit(ctx, app, Trigger(ev))
	if err != nil {
		if errors.Is(err, scanjob.ErrShuttingDown) {
			logger.InfoContext(ctx, "orchestrator shutting down, event dropped")

			return nil
		}

		return fmt.Errorf("%w %s: %w", ErrSubmit, app.Name, err)
	}

	switch sub.Outcome {
	case scanjob.OutcomeCreated:
		logger.InfoContext(ctx, "scan job submitted", "job", sub.Record.JobName)
	case scanjob.OutcomeCoalesced:
		logger.InfoContext(ctx, "scan already active, coalesced", "job", sub.Record.JobName)
	case scanjob.OutcomeSkipped:
		logger.DebugContext(ctx, "event scanning disabled for application")
	}

	return nil
}

func shard(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return int(h.Sum32() % uint32(n))
}
