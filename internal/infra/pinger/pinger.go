package pinger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/shutdown"
)

const (
	defaultPingTimeout      = time.Second
	defaultFailureThreshold = 3
)

type entry struct {
	pinger         Pinger
	gatesReadiness bool
	timeout        time.Duration
	stats          *stats
}

// Service pings every registered component on an interval. A component turns
// unhealthy after failureThreshold consecutive failed pings and becomes healthy
// again on the first success.
type Service struct {
	logger           *slog.Logger
	interval         time.Duration
	failureThreshold int
	reporter         Reporter

	mu      sync.RWMutex
	entries map[string]*entry

	ready      chan struct{}
	doneCh     chan struct{}
	started    atomic.Bool
	inShutdown atomic.Bool
	healthy    atomic.Bool
	inflight   sync.WaitGroup
}

// New creates the service. reporter may be nil.
func New(
	logger *slog.Logger,
	interval time.Duration,
	failureThreshold int,
	reporter Reporter,
) *Service {
	if failureThreshold < 1 {
		failureThreshold = defaultFailureThreshold
	}

	s := &Service{
		logger:           logger.With("component", "pinger"),
		interval:         interval,
		failureThreshold: failureThreshold,
		reporter:         reporter,
		entries:          make(map[string]*entry),
		ready:            make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
	s.healthy.Store(true)

	return s
}

var _ shutdown.Shutdowner = (*Service)(nil)

func (s *Service) Name() string {
	return "pinger-service"
}

// Register adds a component. Components gate readiness unless they implement
// PingerReadyCritical returning false.
func (s *Service) Register(p Pinger) error {
	if p == nil {
		return fmt.Errorf("register pinger: %w", ErrNilPinger)
	}

	name := p.Name()

	e := &entry{
		pinger:         p,
		gatesReadiness: true,
		timeout:        defaultPingTimeout,
		stats:          &stats{},
	}

	if rc, ok := p.(readyCritical); ok {
		e.gatesReadiness = rc.PingerReadyCritical()
	}

	if to, ok := p.(timeouter); ok && to.PingerTimeout() > 0 {
		e.timeout = to.PingerTimeout()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("register pinger %s: %w", name, ErrPingerAlreadyRegistered)
	}

	s.entries[name] = e

	s.logger.Info("pinger registered",
		"name", name,
		"readyCritical", e.gatesReadiness,
		"timeout", e.timeout,
	)

	return nil
}

func (s *Service) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "pinger service is shutting down, skipping start")

		return nil
	}

	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	go s.run(ctx)

	return nil
}

// Ready is closed after the first ping round.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	s.logger.InfoContext(ctx, "shutting down pinger service")

	if !s.started.Load() {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before pinger loop exited: %w", ctx.Err())
	case <-s.doneCh:
	}

	s.inflight.Wait()

	s.logger.InfoContext(ctx, "pinger service stopped")

	return nil
}

// GetAllStats returns a snapshot per registered component.
func (s *Service) GetAllStats() map[string]*Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*Statistics, len(s.entries))
	for name, e := range s.entries {
		result[name] = e.stats.snapshot(e.gatesReadiness, s.failureThreshold)
	}

	return result
}

// Healthy reports whether every component is below the failure threshold.
func (s *Service) Healthy() bool {
	for _, st := range s.GetAllStats() {
		if !st.IsHealthy {
			return false
		}
	}

	return true
}

func (s *Service) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.round(ctx)
	close(s.ready)

	for !s.inShutdown.Load() {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "terminating pinger loop")

			return
		case <-ticker.C:
			s.round(ctx)
		}
	}

	s.logger.InfoContext(ctx, "terminating pinger loop")
}

// round pings all components concurrently and publishes the aggregate health.
func (s *Service) round(ctx context.Context) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))

	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup

	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}

		s.inflight.Add(1)
		wg.Go(func() {
			defer s.inflight.Done()

			s.ping(ctx, e)
		})
	}

	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	s.publish(ctx)
}

func (s *Service) ping(ctx context.Context, e *entry) {
	name := e.pinger.Name()

	pingCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	err := e.pinger.Ping(pingCtx)
	latency := time.Since(start)

	e.stats.record(start, latency, err)

	if s.reporter != nil {
		s.reporter.ObservePing(name, latency, err)
	}

	if err != nil {
		s.logger.DebugContext(ctx, "ping failed", "name", name, "latency", latency, "reason", err)

		return
	}

	s.logger.DebugContext(ctx, "ping passed", "name", name, "latency", latency)
}

// publish reports the aggregate health and logs transitions.
func (s *Service) publish(ctx context.Context) {
	all := s.GetAllStats()

	var failing []string

	for name, st := range all {
		if !st.IsHealthy {
			failing = append(failing, name)
		}
	}

	healthy := len(failing) == 0

	if s.reporter != nil {
		s.reporter.SetHealthy(healthy)
	}

	if s.healthy.Swap(healthy) == healthy {
		return
	}

	if healthy {
		s.logger.InfoContext(ctx, "health recovered")

		return
	}

	sort.Strings(failing)

	attrs := make([]any, 0, len(failing))
	for _, name := range failing {
		attrs = append(attrs, slog.Any(name, all[name].LastError))
	}

	s.logger.WarnContext(ctx, "health degraded after sustained ping failures",
		slog.Group("failing", attrs...),
	)
}
