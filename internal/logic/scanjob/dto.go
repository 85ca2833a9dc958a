package scanjob

import "time"

// Target identifies what a scan job runs against.
type Target struct {
	Namespace   string
	Application string
}

func (t Target) String() string {
	return t.Namespace + "/" + t.Application
}

// Outcome reports what Submit did with a request.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeCoalesced Outcome = "coalesced"
)

// Submission is the result of a successful Submit call.
type Submission struct {
	Outcome Outcome
	Record  Record
}

// Backpressure selects what happens to a submission when the concurrency ceiling is hit.
type Backpressure string

const (
	BackpressureQueue  Backpressure = "queue"
	BackpressureReject Backpressure = "reject"
)

// EnvVar is one entry of the payload environment contract.
type EnvVar struct {
	Name  string
	Value string
}

// JobRequest is everything the domain decides about a scan job. The adapter owns the
// pod template around it.
type JobRequest struct {
	Name        string
	Labels      map[string]string
	Annotations map[string]string
	Env         []EnvVar
	Args        []string
}

// JobPhase is the coarse job status reported by the repository.
type JobPhase string

const (
	JobPhasePending   JobPhase = "Pending"
	JobPhaseActive    JobPhase = "Active"
	JobPhaseSucceeded JobPhase = "Succeeded"
	JobPhaseFailed    JobPhase = "Failed"
)

// JobStatus is a scan job as observed in the cluster.
type JobStatus struct {
	Name        string
	Target      Target
	Trigger     string
	RecordID    string
	Phase       JobPhase
	Reason      string
	ExitCode    *int32
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}
