package pinger

import (
	"context"
	"time"
)

// Pinger is a component that can report its own health.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// Reporter receives every ping outcome and the aggregate health after each round.
type Reporter interface {
	ObservePing(component string, latency time.Duration, err error)
	SetHealthy(healthy bool)
}

// readyCritical lets a pinger opt out of gating readiness.
type readyCritical interface {
	PingerReadyCritical() bool
}

// timeouter overrides the per-ping timeout.
type timeouter interface {
	PingerTimeout() time.Duration
}
