package pinger

import (
	"math"
	"slices"
	"sync"
	"time"
)

// latencyWindow is the number of recent ping latencies kept per component.
const latencyWindow = 32

// Statistics is a point-in-time view of one component's ping history.
type Statistics struct {
	IsReady             bool
	IsHealthy           bool
	LastRun             time.Time
	LastError           error
	LastLatency         time.Duration
	ConsecutiveFailures int
	SuccessCount        int
	ErrorCount          int
	// P50 and P99 cover the last latencyWindow pings.
	P50 time.Duration
	P99 time.Duration
}

type stats struct {
	mu          sync.Mutex
	lastRun     time.Time
	lastErr     error
	lastLatency time.Duration
	consecutive int
	successes   int
	failures    int
	recent      []time.Duration
	next        int
}

func (s *stats) record(at time.Time, latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRun = at
	s.lastErr = err
	s.lastLatency = latency

	if err != nil {
		s.consecutive++
		s.failures++
	} else {
		s.consecutive = 0
		s.successes++
	}

	if len(s.recent) < latencyWindow {
		s.recent = append(s.recent, latency)

		return
	}

	s.recent[s.next] = latency
	s.next = (s.next + 1) % latencyWindow
}

// snapshot evaluates readiness and health against threshold consecutive failures.
func (s *stats) snapshot(gatesReadiness bool, threshold int) *Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := slices.Clone(s.recent)
	slices.Sort(sorted)

	return &Statistics{
		IsReady:             !gatesReadiness || (!s.lastRun.IsZero() && s.lastErr == nil),
		IsHealthy:           s.consecutive < threshold,
		LastRun:             s.lastRun,
		LastError:           s.lastErr,
		LastLatency:         s.lastLatency,
		ConsecutiveFailures: s.consecutive,
		SuccessCount:        s.successes,
		ErrorCount:          s.failures,
		P50:                 percentile(sorted, 50),
		P99:                 percentile(sorted, 99),
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))

	return sorted[rank-1]
}
