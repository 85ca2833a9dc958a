package appstate

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/pinger"
)

const (
	probeStatusOK   = "ok"
	probeStatusFail = "unavailable"
)

type checkResponse struct {
	Ready               bool       `json:"ready"`
	Healthy             bool       `json:"healthy"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastRun             *time.Time `json:"lastRun,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	SuccessCount        int        `json:"successCount"`
	ErrorCount          int        `json:"errorCount"`
	LatencyP50          string     `json:"latencyP50,omitempty"`
	LatencyP99          string     `json:"latencyP99,omitempty"`
}

type probeResponse struct {
	Status string                   `json:"status"`
	Checks map[string]checkResponse `json:"checks,omitempty"`
}

type statusResponse struct {
	State     string                   `json:"state"`
	Uptime    string                   `json:"uptime"`
	StartTime time.Time                `json:"startTime"`
	UptimeSec float64                  `json:"uptimeSeconds"`
	Checks    map[string]checkResponse `json:"checks,omitempty"`
}

func toChecks(stats map[string]*pinger.Statistics) map[string]checkResponse {
	if len(stats) == 0 {
		return nil
	}

	checks := make(map[string]checkResponse, len(stats))

	for name, s := range stats {
		check := checkResponse{
			Ready:               s.IsReady,
			Healthy:             s.IsHealthy,
			ConsecutiveFailures: s.ConsecutiveFailures,
			SuccessCount:        s.SuccessCount,
			ErrorCount:          s.ErrorCount,
		}

		if s.P99 > 0 {
			check.LatencyP50 = s.P50.String()
			check.LatencyP99 = s.P99.String()
		}

		if !s.LastRun.IsZero() {
			lastRun := s.LastRun
			check.LastRun = &lastRun
		}

		if s.LastError != nil {
			check.LastError = s.LastError.Error()
		}

		checks[name] = check
	}

	return checks
}

func writeJSON(logger *slog.Logger, r *http.Request, w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.ErrorContext(r.Context(), "failed to encode probe response",
			"reason", err,
		)
	}
}

func probe(logger *slog.Logger, r *http.Request, w http.ResponseWriter, ok bool, stats map[string]*pinger.Statistics) {
	code := http.StatusOK
	response := probeResponse{
		Status: probeStatusOK,
		Checks: toChecks(stats),
	}

	if !ok {
		code = http.StatusServiceUnavailable
		response.Status = probeStatusFail
	}

	writeJSON(logger, r, w, code, response)
}

// HandleHealthz returns an http.HandlerFunc for the /-/healthz endpoint
func HandleHealthz(
	logger *slog.Logger,
	appState healthChecker,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logger.With("traceID", middleware.GetReqID(ctx))

		healthy := appState.IsHealthy()
		probe(logger, r, w, healthy, appState.GetAllStats())

		if !healthy {
			logger.DebugContext(ctx, "health check failed")

			return
		}

		logger.DebugContext(ctx, "health check passed")
	}
}

// HandleReadyz returns an http.HandlerFunc for the /-/readyz endpoint
func HandleReadyz(
	logger *slog.Logger,
	appState readyChecker,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logger.With("traceID", middleware.GetReqID(ctx))

		ready := appState.IsReady()
		probe(logger, r, w, ready, appState.GetAllStats())

		if !ready {
			logger.DebugContext(ctx, "readiness check failed")

			return
		}

		logger.DebugContext(ctx, "readiness check passed")
	}
}

// HandleStatus returns an http.HandlerFunc for the /-/status endpoint
func HandleStatus(
	logger *slog.Logger,
	appState statusGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logger.With("traceID", middleware.GetReqID(ctx))

		state := appState.GetState()
		uptime := appState.GetUptime()

		response := statusResponse{
			State:     string(state),
			Uptime:    uptime.String(),
			StartTime: appState.GetStartTime(),
			UptimeSec: uptime.Seconds(),
			Checks:    toChecks(appState.GetAllStats()),
		}

		writeJSON(logger, r, w, http.StatusOK, response)

		logger.DebugContext(ctx, "status response sent",
			"state", string(state),
			"uptime", uptime.String(),
		)
	}
}
