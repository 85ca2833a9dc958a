package scanjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"
)

// pollStallFactor is how many poll intervals may pass before Ping reports a stall.
const pollStallFactor = 3

// TrackerOptions configures the lifecycle tracker.
type TrackerOptions struct {
	PollInterval time.Duration
	JobTimeout   time.Duration
	Retention    time.Duration
	APITimeout   time.Duration
}

// ReserveResult is the outcome of a slot reservation.
type ReserveResult int

const (
	Reserved ReserveResult = iota
	ReserveCoalesced
	ReserveFull
)

// Reservation is returned by Tracker.Reserve.
type Reservation struct {
	Result ReserveResult
	// Record is the new pending record, or the active record the request coalesced into.
	Record Record
	// Freed is closed the next time an active slot is released. Set with ReserveFull.
	Freed <-chan struct{}
}

// Tracker owns every scan job record and drives it to a terminal state.
type Tracker struct {
	logger  *slog.Logger
	repo    Repository
	metrics trackerRecorder
	clock   clock.WithTicker
	opts    TrackerOptions

	mu       sync.Mutex
	records  map[string]*Record
	byTarget map[Target]string
	active   int
	freed    chan struct{}
	lastPoll time.Time

	ready      chan struct{}
	doneCh     chan struct{}
	inShutdown atomic.Bool
}

// NewTracker creates a tracker with no records.
func NewTracker(
	logger *slog.Logger,
	repo Repository,
	metrics trackerRecorder,
	clk clock.WithTicker,
	opts TrackerOptions,
) *Tracker {
	return &Tracker{
		logger:   logger.With("component", "tracker"),
		repo:     repo,
		metrics:  metrics,
		clock:    clk,
		opts:     opts,
		records:  make(map[string]*Record),
		byTarget: make(map[Target]string),
		freed:    make(chan struct{}),
		ready:    make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Name returns the name of the tracker component.
func (t *Tracker) Name() string {
	return "job-tracker"
}

// Start adopts scan jobs left by a previous run and launches the poll loop.
func (t *Tracker) Start(ctx context.Context) error {
	if t.inShutdown.Load() {
		t.logger.InfoContext(ctx, "tracker is shutting down, skipping start")

		return nil
	}

	adopted, err := t.AdoptCommand(ctx)
	if err != nil {
		// Not fatal: the next poll and sweep still run, only restart safety is reduced.
		t.logger.ErrorContext(ctx, "adopt existing scan jobs failed", "reason", err)
	} else {
		t.logger.InfoContext(ctx, "existing scan jobs adopted", "count", adopted)
	}

	t.setLastPoll()

	go t.RunCommand(ctx)

	return nil
}

func (t *Tracker) Ready() <-chan struct{} {
	return t.ready
}

func (t *Tracker) PingerReadyCritical() bool {
	return false
}

// Ping fails when the poll loop has not completed a round for several intervals.
func (t *Tracker) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ready:
	default:
		return fmt.Errorf("tracker is not ready")
	}

	t.mu.Lock()
	age := t.clock.Since(t.lastPoll)
	t.mu.Unlock()

	if age > pollStallFactor*t.opts.PollInterval {
		return fmt.Errorf("%w: last round %s ago", ErrPollStalled, age.Round(time.Second))
	}

	return nil
}

func (t *Tracker) Shutdown(ctx context.Context) error {
	if !t.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before poll loop exited: %w", ctx.Err())
	case <-t.doneCh:
		t.logger.InfoContext(ctx, "poll loop exited")
	}

	return nil
}

// RunCommand polls active jobs until ctx is done.
func (t *Tracker) RunCommand(ctx context.Context) {
	defer close(t.doneCh)

	ticker := t.clock.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	close(t.ready)

	for {
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "terminating poll loop")

			return
		case <-ticker.C():
			if err := t.PollCommand(ctx); err != nil {
				t.logger.ErrorContext(ctx, "poll scan jobs", "reason", err)
			}
		}
	}
}

// Reserve inserts a Pending record for target unless the ceiling is reached or the
// target already has an active record. A limit of zero disables the ceiling.
func (t *Tracker) Reserve(target Target, trigger string, limit int) Reservation {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit > 0 && t.active >= limit {
		return Reservation{Result: ReserveFull, Freed: t.freed}
	}

	if id, ok := t.byTarget[target]; ok {
		return Reservation{Result: ReserveCoalesced, Record: *t.records[id]}
	}

	rec := &Record{
		ID:        uuid.NewString(),
		Target:    target,
		Trigger:   trigger,
		State:     StatePending,
		CreatedAt: t.clock.Now(),
	}

	t.records[rec.ID] = rec
	t.byTarget[target] = rec.ID
	t.active++
	t.metrics.SetActiveJobs(t.active)

	return Reservation{Result: Reserved, Record: *rec}
}

// Release drops a Pending reservation that never produced a job.
func (t *Tracker) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok || rec.State != StatePending {
		return
	}

	t.removeLocked(rec)
	t.releaseSlotLocked(rec)
}

// MarkCreated records that the job for a Pending reservation exists.
func (t *Tracker) MarkCreated(id, jobName string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}

	if err := t.transitionLocked(rec, StateCreated, "", nil); err != nil {
		return Record{}, err
	}

	rec.JobName = jobName
	rec.CreatedAt = t.clock.Now()

	return *rec, nil
}

// MarkFailed fails a Pending reservation whose job could not be created.
func (t *Tracker) MarkFailed(id, reason string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}

	if err := t.transitionLocked(rec, StateFailed, reason, nil); err != nil {
		return Record{}, err
	}

	return *rec, nil
}

// Get returns a copy of the record with id.
func (t *Tracker) Get(id string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return Record{}, false
	}

	return *rec, true
}

// Records returns copies of every tracked record, oldest first.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	out := make([]Record, 0, len(t.records))

	for _, rec := range t.records {
		out = append(out, *rec)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		return out[i].ID < out[j].ID
	})

	return out
}

// ActiveCount returns the number of Pending, Created and Running records.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.active
}

// PollCommand refreshes every job that has been created and is not terminal yet, and
// enforces the job timeout.
func (t *Tracker) PollCommand(ctx context.Context) error {
	logger := t.logger.With("tracker", "PollCommand")

	var errs []error

	for _, rec := range t.snapshot(func(r *Record) bool {
		return r.State == StateCreated || r.State == StateRunning
	}) {
		if ctx.Err() != nil {
			logger.InfoContext(ctx, "context done, stopping poll")

			return nil
		}

		if err := t.pollRecord(ctx, logger, rec); err != nil {
			errs = append(errs, err)
		}
	}

	t.setLastPoll()

	return errors.Join(errs...)
}

func (t *Tracker) pollRecord(ctx context.Context, logger *slog.Logger, rec Record) error {
	logger = logger.With("job", rec.JobName, "application", rec.Target.String())

	status, err := t.getJob(ctx, rec.JobName)

	switch {
	case err != nil:
		var target notFound
		if errors.As(err, &target) {
			logger.WarnContext(ctx, "scan job disappeared while active")

			return t.finish(rec.ID, StateFailed, ReasonJobMissing, nil, time.Time{})
		}

		if !t.expired(rec) {
			return fmt.Errorf("%w %s: %w", ErrGetJob, rec.JobName, err)
		}

		logger.WarnContext(ctx, "status unavailable for expired job", "reason", err)
	default:
		state, reason, done := classify(status)
		if done {
			logger.InfoContext(ctx, "scan job finished", "state", state, "reason", reason)

			// A job stopped by its own deadline is removed like one the tracker timed out.
			if state == StateTimedOut {
				if err := t.deleteJob(ctx, rec.JobName); err != nil {
					return fmt.Errorf("%w %s: %w", ErrDeleteJob, rec.JobName, err)
				}
			}

			return t.finish(rec.ID, state, reason, status.ExitCode, status.CompletedAt)
		}

		if state == StateRunning && rec.State == StateCreated {
			t.markRunning(rec.ID, status.StartedAt)
		}

		if !t.expired(rec) {
			return nil
		}
	}

	return t.enforceTimeout(ctx, logger, rec)
}

// enforceTimeout deletes an expired job. The record becomes TimedOut only once the job
// is confirmed gone.
func (t *Tracker) enforceTimeout(ctx context.Context, logger *slog.Logger, rec Record) error {
	logger.WarnContext(ctx, "scan job exceeded timeout, deleting",
		"age", t.clock.Since(rec.CreatedAt).Round(time.Second).String(),
		"timeout", t.opts.JobTimeout.String(),
	)

	if err := t.deleteJob(ctx, rec.JobName); err != nil {
		return fmt.Errorf("%w %s: %w", ErrDeleteJob, rec.JobName, err)
	}

	return t.finish(rec.ID, StateTimedOut, ReasonTimeout, nil, time.Time{})
}

// SweepCommand purges terminal records older than the retention window together with
// their jobs and returns how many were purged.
func (t *Tracker) SweepCommand(ctx context.Context) (int, error) {
	logger := t.logger.With("tracker", "SweepCommand")

	var (
		errs   []error
		purged int
	)

	for _, rec := range t.snapshot(func(r *Record) bool {
		return r.State.Terminal() && t.clock.Since(r.CompletedAt) >= t.opts.Retention
	}) {
		if ctx.Err() != nil {
			break
		}

		if rec.JobName != "" {
			if err := t.deleteJob(ctx, rec.JobName); err != nil {
				logger.ErrorContext(ctx, "delete expired scan job", "job", rec.JobName, "reason", err)
				errs = append(errs, fmt.Errorf("%w %s: %w", ErrDeleteJob, rec.JobName, err))

				continue
			}
		}

		if t.purge(rec.ID) {
			purged++
		}
	}

	if purged > 0 {
		logger.InfoContext(ctx, "scan job records purged", "count", purged)
	}

	return purged, errors.Join(errs...)
}

// AdoptCommand starts tracking managed jobs that already exist in the cluster.
func (t *Tracker) AdoptCommand(ctx context.Context) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.opts.APITimeout)
	defer cancel()

	jobs, err := t.repo.ListJobsQuery(callCtx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAdoptJobs, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	known := make(map[string]struct{}, len(t.records))
	for _, rec := range t.records {
		known[rec.JobName] = struct{}{}
	}

	adopted := 0

	for i := range jobs {
		if _, ok := known[jobs[i].Name]; ok {
			continue
		}

		if t.adoptLocked(jobs[i]) {
			adopted++
		}
	}

	t.metrics.SetActiveJobs(t.active)

	return adopted, nil
}

func (t *Tracker) adoptLocked(job JobStatus) bool {
	if job.Target.Namespace == "" || job.Target.Application == "" {
		t.logger.Warn("skipping scan job without target annotations", "job", job.Name)

		return false
	}

	id := job.RecordID
	if _, taken := t.records[id]; id == "" || taken {
		id = uuid.NewString()
	}

	state, reason, done := classify(job)

	rec := &Record{
		ID:        id,
		Target:    job.Target,
		JobName:   job.Name,
		Trigger:   job.Trigger,
		State:     state,
		Reason:    reason,
		ExitCode:  job.ExitCode,
		CreatedAt: job.CreatedAt,
		StartedAt: job.StartedAt,
		Adopted:   true,
	}

	if done {
		rec.CompletedAt = job.CompletedAt
		if rec.CompletedAt.IsZero() {
			rec.CompletedAt = t.clock.Now()
		}

		t.records[id] = rec

		return true
	}

	if other, dup := t.byTarget[job.Target]; dup {
		t.logger.Warn("more than one active scan job for target",
			"application", job.Target.String(),
			"job", job.Name,
			"other", t.records[other].JobName,
		)
	} else {
		t.byTarget[job.Target] = id
	}

	// Adopted jobs count against the ceiling even when they exceed it.
	t.records[id] = rec
	t.active++

	return true
}

func (t *Tracker) snapshot(keep func(*Record) bool) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.records))

	for _, rec := range t.records {
		if keep(rec) {
			out = append(out, *rec)
		}
	}

	return out
}

func (t *Tracker) getJob(ctx context.Context, name string) (JobStatus, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.opts.APITimeout)
	defer cancel()

	return t.repo.GetJobQuery(callCtx, name)
}

// deleteJob returns nil once the job is confirmed gone. NotFound counts as gone.
func (t *Tracker) deleteJob(ctx context.Context, name string) error {
	callCtx, cancel := context.WithTimeout(ctx, t.opts.APITimeout)
	defer cancel()

	err := t.repo.DeleteJobCommand(callCtx, name)
	if err == nil {
		return nil
	}

	var target notFound
	if errors.As(err, &target) {
		t.logger.DebugContext(ctx, "scan job already gone", "job", name)

		return nil
	}

	return err
}

func (t *Tracker) expired(rec Record) bool {
	return t.opts.JobTimeout > 0 && t.clock.Since(rec.CreatedAt) > t.opts.JobTimeout
}

func (t *Tracker) markRunning(id string, startedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok || rec.State != StateCreated {
		return
	}

	if err := t.transitionLocked(rec, StateRunning, "", nil); err != nil {
		return
	}

	rec.StartedAt = startedAt
	if rec.StartedAt.IsZero() {
		rec.StartedAt = t.clock.Now()
	}
}

// finish moves a record to a terminal state. A zero completedAt means now.
func (t *Tracker) finish(id string, state State, reason string, exitCode *int32, completedAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}

	// Another round already finished it.
	if rec.State.Terminal() {
		return nil
	}

	if err := t.transitionLocked(rec, state, reason, exitCode); err != nil {
		return err
	}

	if !completedAt.IsZero() && !completedAt.Before(rec.CreatedAt) {
		rec.CompletedAt = completedAt
	}

	t.recordCompletedLocked(rec)

	return nil
}

func (t *Tracker) purge(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return false
	}

	if err := t.transitionLocked(rec, StatePurged, rec.Reason, nil); err != nil {
		return false
	}

	t.removeLocked(rec)
	t.metrics.RecordJobPurged()

	return true
}

func (t *Tracker) transitionLocked(rec *Record, to State, reason string, exitCode *int32) error {
	if !rec.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.State, to)
	}

	wasActive := rec.State.Active()

	rec.State = to
	rec.Reason = reason

	if exitCode != nil {
		rec.ExitCode = exitCode
	}

	if !to.Terminal() {
		return nil
	}

	rec.CompletedAt = t.clock.Now()

	if wasActive {
		t.releaseSlotLocked(rec)
	}

	return nil
}

// recordCompletedLocked counts a job that reached its outcome. Creation failures
// have no job and are counted by the orchestrator.
func (t *Tracker) recordCompletedLocked(rec *Record) {
	if rec.JobName == "" {
		return
	}

	t.metrics.RecordJobCompleted(rec.Target.Namespace, rec.Target.Application, string(rec.State), rec.Duration())

	if rec.State == StatePolicyViolation {
		t.metrics.RecordPolicyViolation(rec.Target.Namespace, rec.Target.Application)
	}
}

func (t *Tracker) releaseSlotLocked(rec *Record) {
	if t.byTarget[rec.Target] == rec.ID {
		delete(t.byTarget, rec.Target)
	}

	t.active--
	t.metrics.SetActiveJobs(t.active)

	close(t.freed)
	t.freed = make(chan struct{})
}

func (t *Tracker) removeLocked(rec *Record) {
	delete(t.records, rec.ID)
}

func (t *Tracker) setLastPoll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastPoll = t.clock.Now()
}
