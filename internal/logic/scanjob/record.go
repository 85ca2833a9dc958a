package scanjob

import (
	"slices"
	"time"
)

// State is the lifecycle state of a scan job record.
type State string

const (
	StatePending         State = "Pending"
	StateCreated         State = "Created"
	StateRunning         State = "Running"
	StateSucceeded       State = "Succeeded"
	StateFailed          State = "Failed"
	StatePolicyViolation State = "PolicyViolation"
	StateTimedOut        State = "TimedOut"
	StatePurged          State = "Purged"
)

var transitions = map[State][]State{
	StatePending:         {StateCreated, StateFailed},
	StateCreated:         {StateRunning, StateSucceeded, StateFailed, StatePolicyViolation, StateTimedOut},
	StateRunning:         {StateSucceeded, StateFailed, StatePolicyViolation, StateTimedOut},
	StateSucceeded:       {StatePurged},
	StateFailed:          {StatePurged},
	StatePolicyViolation: {StatePurged},
	StateTimedOut:        {StatePurged},
}

// Active reports whether the state counts against the concurrency ceiling.
func (s State) Active() bool {
	return s == StatePending || s == StateCreated || s == StateRunning
}

// Terminal reports whether the job has finished.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StatePolicyViolation, StateTimedOut:
		return true
	default:
		return false
	}
}

// CanTransition reports whether to is a forward move from s.
func (s State) CanTransition(to State) bool {
	return slices.Contains(transitions[s], to)
}

// Record tracks one scan job from reservation to purge.
type Record struct {
	ID          string
	Target      Target
	JobName     string
	Trigger     string
	State       State
	Reason      string
	ExitCode    *int32
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Adopted     bool
}

// Duration is the wall time from creation to completion, zero while active.
func (r Record) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}

	return r.CompletedAt.Sub(r.CreatedAt)
}
