package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

// RunFunc is one execution of a scheduled job.
type RunFunc func(ctx context.Context) error

type job struct {
	name string
	spec string
	run  RunFunc
}

// JobStatus describes the latest execution of a job.
type JobStatus struct {
	Name      string
	Spec      string
	Runs      int
	LastRun   time.Time
	LastError error
	NextRun   time.Time
}

// Scheduler runs named jobs on cron schedules. Runs of one job never overlap.
type Scheduler struct {
	logger     *slog.Logger
	clock      clock.Clock
	parser     scheduleParser
	mu         sync.Mutex
	jobs       []job
	status     map[string]*JobStatus
	started    bool
	ready      chan struct{}
	doneCh     chan struct{}
	stopCh     chan struct{}
	inShutdown atomic.Bool
	wg         sync.WaitGroup
}

func New(logger *slog.Logger, clk clock.Clock, parser scheduleParser) *Scheduler {
	return &Scheduler{
		logger: logger.With("component", "scheduler"),
		clock:  clk,
		parser: parser,
		status: make(map[string]*JobStatus),
		ready:  make(chan struct{}),
		doneCh: make(chan struct{}),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Name() string {
	return "scheduler"
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(name, spec string, run RunFunc) error {
	if err := s.parser.Validate(spec); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("job %s: %w", name, ErrStarted)
	}

	if _, ok := s.status[name]; ok {
		return fmt.Errorf("job %s: %w", name, ErrDuplicateJob)
	}

	s.jobs = append(s.jobs, job{name: name, spec: spec, run: run})
	s.status[name] = &JobStatus{Name: name, Spec: spec}

	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "scheduler is shutting down, skipping start")

		return nil
	}

	s.mu.Lock()
	s.started = true
	jobs := append([]job(nil), s.jobs...)
	s.mu.Unlock()

	for _, j := range jobs {
		s.wg.Add(1)

		go s.loop(ctx, j)
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-s.stopCh:
		}

		s.wg.Wait()
		close(s.doneCh)
	}()

	close(s.ready)

	s.logger.InfoContext(ctx, "scheduler started", "jobs", len(jobs))

	return nil
}

func (s *Scheduler) Ready() <-chan struct{} {
	return s.ready
}

func (s *Scheduler) Ping(ctx context.Context) error {
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
		return fmt.Errorf("scheduler is not ready")
	}
}

// PingerReadyCritical keeps a failing job from gating readiness.
func (s *Scheduler) PingerReadyCritical() bool {
	return false
}

func (s *Scheduler) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stopCh)

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before scheduled jobs exited: %w", ctx.Err())
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "scheduled jobs exited")
	}

	return nil
}

// Status returns a snapshot of every job.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))

	for _, j := range s.jobs {
		out = append(out, *s.status[j.name])
	}

	return out
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()

	logger := s.logger.With("job", j.name, "schedule", j.spec)

	for {
		now := s.clock.Now()

		next, err := s.parser.NextAfter(j.spec, "", now)
		if err != nil {
			logger.ErrorContext(ctx, "compute next run failed, job disabled", "reason", err)

			return
		}

		s.setNext(j.name, next)

		timer := s.clock.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-s.stopCh:
			timer.Stop()

			return
		case <-timer.C():
		}

		s.runOnce(ctx, logger, j)
	}
}

func (s *Scheduler) runOnce(ctx context.Context, logger *slog.Logger, j job) {
	start := s.clock.Now()

	err := j.run(ctx)

	s.mu.Lock()
	st := s.status[j.name]
	st.Runs++
	st.LastRun = start
	st.LastError = err
	s.mu.Unlock()

	if err != nil {
		logger.WarnContext(ctx, "scheduled job failed",
			"duration", s.clock.Since(start),
			"reason", err,
		)

		return
	}

	logger.DebugContext(ctx, "scheduled job completed", "duration", s.clock.Since(start))
}

func (s *Scheduler) setNext(name string, next time.Time) {
	s.mu.Lock()
	s.status[name].NextRun = next
	s.mu.Unlock()
}
