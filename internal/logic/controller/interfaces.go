package controller

import (
	"context"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

// EventSource delivers workload events; the channel is closed when the source stops.
type EventSource interface {
	Events() <-chan watcher.Event
}

// Matcher resolves the registry entry for a workload.
type Matcher interface {
	Match(
		ctx context.Context,
		namespace string,
		labels map[string]string,
	) (registry.ApplicationConfig, bool)
}

// Submitter hands matched applications to the job orchestrator.
type Submitter interface {
	Submit(
		ctx context.Context,
		app registry.ApplicationConfig,
		trigger string,
	) (scanjob.Submission, error)
}

type recorder interface {
	RecordDeploymentEvent(namespace, kind, eventType string)
	RecordEventDiscarded(reason string)
	SetTrackedWorkloads(count int)
}
