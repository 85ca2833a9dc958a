package scanjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
)

const (
	createBackoffFactor = 2.0
	createBackoffJitter = 0.1

	// failureWindow is the number of recent creation outcomes Ping looks at.
	failureWindow     = 20
	failureMinSamples = 4
)

// OrchestratorOptions configures job submission.
type OrchestratorOptions struct {
	MaxConcurrent      int
	Backpressure       Backpressure
	Rate               rate.Limit
	Burst              int
	SubmissionTimeout  time.Duration
	CreateAttempts     int
	CreateRetryBackoff time.Duration
	APITimeout         time.Duration
	FailureThreshold   float64
}

// Orchestrator turns matched applications into scan jobs.
type Orchestrator struct {
	logger  *slog.Logger
	repo    Repository
	tracker *Tracker
	metrics orchestratorRecorder
	clock   clock.Clock
	limiter *rate.Limiter
	opts    OrchestratorOptions

	mu         sync.RWMutex
	inflight   sync.WaitGroup
	stopCh     chan struct{}
	inShutdown atomic.Bool
	ready      chan struct{}

	outcomesMu sync.Mutex
	outcomes   []bool
	next       int
}

// NewOrchestrator creates an orchestrator that records jobs through tracker.
func NewOrchestrator(
	logger *slog.Logger,
	repo Repository,
	tracker *Tracker,
	metrics orchestratorRecorder,
	clk clock.Clock,
	opts OrchestratorOptions,
) *Orchestrator {
	if opts.CreateAttempts < 1 {
		opts.CreateAttempts = 1
	}

	return &Orchestrator{
		logger:  logger.With("component", "orchestrator"),
		repo:    repo,
		tracker: tracker,
		metrics: metrics,
		clock:   clk,
		limiter: rate.NewLimiter(opts.Rate, max(opts.Burst, 1)),
		opts:    opts,
		stopCh:  make(chan struct{}),
		ready:   make(chan struct{}),
	}
}

// Name returns the name of the orchestrator component.
func (o *Orchestrator) Name() string {
	return "job-orchestrator"
}

func (o *Orchestrator) Start(ctx context.Context) error {
	if o.inShutdown.Load() {
		o.logger.InfoContext(ctx, "orchestrator is shutting down, skipping start")

		return nil
	}

	close(o.ready)

	return nil
}

func (o *Orchestrator) Ready() <-chan struct{} {
	return o.ready
}

// PingerReadyCritical keeps creation failures out of readiness; they only degrade health.
func (o *Orchestrator) PingerReadyCritical() bool {
	return false
}

// Ping fails when too many of the recent job creations failed.
func (o *Orchestrator) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	failed, total := o.failureCounts()
	if total < failureMinSamples {
		return nil
	}

	ratio := float64(failed) / float64(total)
	if ratio > o.opts.FailureThreshold {
		return fmt.Errorf("%w: %d of last %d", ErrTooManyCreateFails, failed, total)
	}

	return nil
}

// Shutdown stops accepting submissions and waits for in-flight ones to finish.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.inShutdown.CompareAndSwap(false, true) {
		o.mu.Unlock()

		return nil
	}

	close(o.stopCh)
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "shutting down orchestrator")

	done := make(chan struct{})

	go func() {
		o.inflight.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before submissions finished: %w", ctx.Err())
	case <-done:
		o.logger.InfoContext(ctx, "in-flight submissions finished")
	}

	return nil
}

// Submit creates a scan job for app unless it is disabled for events, coalesces into an
// active job for the same target, or is refused by the ceiling or the rate limiter.
func (o *Orchestrator) Submit(
	ctx context.Context,
	app registry.ApplicationConfig,
	trigger string,
) (Submission, error) {
	o.mu.RLock()
	if o.inShutdown.Load() {
		o.mu.RUnlock()

		return Submission{}, ErrShuttingDown
	}

	o.inflight.Add(1)
	o.mu.RUnlock()

	defer o.inflight.Done()

	if !app.ScanOnEvent {
		return Submission{Outcome: OutcomeSkipped}, nil
	}

	target := Target{Namespace: app.Namespace, Application: app.Name}
	logger := o.logger.With("application", target.String(), "trigger", trigger)

	ctx, cancel := context.WithTimeout(ctx, o.opts.SubmissionTimeout)
	defer cancel()

	res, err := o.reserve(ctx, logger, target, trigger)
	if err != nil {
		return Submission{}, err
	}

	if res.Result == ReserveCoalesced {
		o.metrics.RecordDuplicateSuppressed(target.Namespace, target.Application)
		logger.DebugContext(ctx, "submission coalesced into active scan job",
			"record", res.Record.ID,
			"job", res.Record.JobName,
			"state", res.Record.State,
		)

		return Submission{Outcome: OutcomeCoalesced, Record: res.Record}, nil
	}

	id := res.Record.ID

	if err := o.throttle(ctx, logger); err != nil {
		o.tracker.Release(id)

		return Submission{}, err
	}

	req := NewJobRequest(app, trigger, id, o.clock.Now())
	logger = logger.With("job", req.Name, "record", id)

	if err := o.create(ctx, logger, req); err != nil {
		reason := ReasonCreateFailed

		var rejected invalid
		if errors.As(err, &rejected) {
			reason = ReasonInvalidSpec
		}

		if _, markErr := o.tracker.MarkFailed(id, reason); markErr != nil {
			logger.ErrorContext(ctx, "mark record failed", "reason", markErr)
		}

		o.metrics.RecordJobCreateFailure(app.Namespace, app.Name, reason)
		o.recordOutcome(false)
		logger.ErrorContext(ctx, "scan job creation failed", "reason", err)

		return Submission{}, fmt.Errorf("%w %s: %w", ErrCreateJob, req.Name, err)
	}

	rec, err := o.tracker.MarkCreated(id, req.Name)
	if err != nil {
		return Submission{}, fmt.Errorf("%w %s: %w", ErrCreateJob, req.Name, err)
	}

	o.metrics.RecordJobCreated(app.Namespace, app.Name)
	o.recordOutcome(true)
	logger.InfoContext(ctx, "scan job created")

	return Submission{Outcome: OutcomeCreated, Record: rec}, nil
}

// reserve takes a slot or coalesces. With the queue policy it waits for a freed slot
// until ctx is done.
func (o *Orchestrator) reserve(
	ctx context.Context,
	logger *slog.Logger,
	target Target,
	trigger string,
) (Reservation, error) {
	deferred := false

	for {
		res := o.tracker.Reserve(target, trigger, o.opts.MaxConcurrent)
		if res.Result != ReserveFull {
			return res, nil
		}

		if !deferred {
			deferred = true

			o.metrics.RecordSubmissionDeferred(string(o.opts.Backpressure))
			logger.InfoContext(ctx, "concurrency limit reached, submission deferred",
				"limit", o.opts.MaxConcurrent,
				"policy", o.opts.Backpressure,
			)
		}

		if o.opts.Backpressure == BackpressureReject {
			return Reservation{}, fmt.Errorf("%w: %d active", ErrConcurrencyLimit, o.opts.MaxConcurrent)
		}

		select {
		case <-ctx.Done():
			return Reservation{}, fmt.Errorf("%w: no slot freed: %w", ErrConcurrencyLimit, ctx.Err())
		case <-o.stopCh:
			return Reservation{}, ErrShuttingDown
		case <-res.Freed:
		}
	}
}

// throttle waits for a limiter token when the wait fits into the submission deadline.
func (o *Orchestrator) throttle(ctx context.Context, logger *slog.Logger) error {
	now := o.clock.Now()

	r := o.limiter.ReserveN(now, 1)
	if !r.OK() {
		o.metrics.RecordRateLimited()

		return ErrRateLimited
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	o.metrics.RecordRateLimited()

	if deadline, ok := ctx.Deadline(); ok && delay > time.Until(deadline) {
		r.CancelAt(now)

		return fmt.Errorf("%w: wait %s exceeds submission timeout", ErrRateLimited, delay.Round(time.Millisecond))
	}

	logger.DebugContext(ctx, "waiting for rate limiter", "delay", delay.String())

	timer := o.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		r.CancelAt(o.clock.Now())

		return fmt.Errorf("%w: %w", ErrRateLimited, ctx.Err())
	case <-o.stopCh:
		r.CancelAt(o.clock.Now())

		return ErrShuttingDown
	}
}

// create calls the repository with bounded retries. Calls run detached from ctx
// cancellation so shutdown does not abandon a half-made job, each one bounded by the
// API timeout.
func (o *Orchestrator) create(ctx context.Context, logger *slog.Logger, req JobRequest) error {
	backoff := wait.Backoff{
		Duration: o.opts.CreateRetryBackoff,
		Factor:   createBackoffFactor,
		Jitter:   createBackoffJitter,
		Steps:    o.opts.CreateAttempts,
	}

	var (
		attempt int
		lastErr error
	)

	err := wait.ExponentialBackoffWithContext(
		context.WithoutCancel(ctx),
		backoff,
		func(ctx context.Context) (bool, error) {
			attempt++

			callCtx, cancel := context.WithTimeout(ctx, o.opts.APITimeout)
			defer cancel()

			err := o.repo.CreateJobCommand(callCtx, req)
			if err == nil {
				return true, nil
			}

			// A previous attempt reached the server; the name is unique to this record.
			var exists alreadyExists
			if errors.As(err, &exists) {
				logger.WarnContext(ctx, "scan job already exists, treating as created", "attempt", attempt)

				return true, nil
			}

			var rejected invalid
			if errors.As(err, &rejected) {
				return false, err
			}

			lastErr = err
			logger.WarnContext(ctx, "create scan job attempt failed",
				"attempt", attempt,
				"maxAttempts", o.opts.CreateAttempts,
				"reason", err,
			)

			return false, nil
		},
	)
	if err == nil {
		return nil
	}

	if lastErr != nil && !errors.As(err, new(invalid)) {
		return fmt.Errorf("after %d attempts: %w", attempt, lastErr)
	}

	return err
}

func (o *Orchestrator) recordOutcome(ok bool) {
	o.outcomesMu.Lock()
	defer o.outcomesMu.Unlock()

	if len(o.outcomes) < failureWindow {
		o.outcomes = append(o.outcomes, ok)

		return
	}

	o.outcomes[o.next] = ok
	o.next = (o.next + 1) % failureWindow
}

func (o *Orchestrator) failureCounts() (int, int) {
	o.outcomesMu.Lock()
	defer o.outcomesMu.Unlock()

	failed := 0

	for _, ok := range o.outcomes {
		if !ok {
			failed++
		}
	}

	return failed, len(o.outcomes)
}
