package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
)

type jobResponse struct {
	ID          string     `json:"id"`
	Namespace   string     `json:"namespace"`
	Application string     `json:"application"`
	JobName     string     `json:"jobName,omitempty"`
	Trigger     string     `json:"trigger"`
	State       string     `json:"state"`
	Reason      string     `json:"reason,omitempty"`
	ExitCode    *int32     `json:"exitCode,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	DurationSec float64    `json:"durationSeconds,omitempty"`
	Adopted     bool       `json:"adopted,omitempty"`
}

type jobsResponse struct {
	Active int           `json:"active"`
	Jobs   []jobResponse `json:"jobs"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

func toJobResponse(rec scanjob.Record) jobResponse {
	return jobResponse{
		ID:          rec.ID,
		Namespace:   rec.Target.Namespace,
		Application: rec.Target.Application,
		JobName:     rec.JobName,
		Trigger:     rec.Trigger,
		State:       string(rec.State),
		Reason:      rec.Reason,
		ExitCode:    rec.ExitCode,
		CreatedAt:   rec.CreatedAt,
		StartedAt:   optionalTime(rec.StartedAt),
		CompletedAt: optionalTime(rec.CompletedAt),
		DurationSec: rec.Duration().Seconds(),
		Adopted:     rec.Adopted,
	}
}

// handleJobs lists the tracked scan job records, optionally filtered by ?state=.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.With("traceID", middleware.GetReqID(ctx))

	stateFilter := r.URL.Query().Get("state")

	response := jobsResponse{Jobs: make([]jobResponse, 0)}

	for _, rec := range s.records.Records() {
		if rec.State.Active() {
			response.Active++
		}

		if stateFilter != "" && string(rec.State) != stateFilter {
			continue
		}

		response.Jobs = append(response.Jobs, toJobResponse(rec))
	}

	s.writeJSON(w, r, http.StatusOK, response)

	logger.DebugContext(ctx, "jobs response sent", "jobs", len(response.Jobs))
}

type applicationResponse struct {
	Name             string            `json:"name"`
	Namespace        string            `json:"namespace"`
	LabelSelector    map[string]string `json:"labelSelector"`
	ProjectGroup     string            `json:"projectGroup"`
	ProjectTier      int               `json:"projectTier"`
	PolicyGating     bool              `json:"policyGating"`
	PolicySeverities string            `json:"policyGatingRisk,omitempty"`
	ProjectVersion   string            `json:"projectVersion,omitempty"`
	ScanOnEvent      bool              `json:"scanOnEvent"`
}

type registryResponse struct {
	Revision     string                `json:"revision"`
	LoadedAt     *time.Time            `json:"loadedAt,omitempty"`
	Applications []applicationResponse `json:"applications"`
}

func toApplicationResponse(app registry.ApplicationConfig) applicationResponse {
	return applicationResponse{
		Name:             app.Name,
		Namespace:        app.Namespace,
		LabelSelector:    app.Selector,
		ProjectGroup:     app.ProjectGroup,
		ProjectTier:      app.Tier,
		PolicyGating:     app.PolicyGating,
		PolicySeverities: registry.JoinSeverities(app.EffectiveSeverities()),
		ProjectVersion:   app.ProjectVersion,
		ScanOnEvent:      app.ScanOnEvent,
	}
}

// handleRegistry describes the active registry snapshot.
func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	reg := s.apps.Current()

	response := registryResponse{
		Revision:     reg.Revision(),
		LoadedAt:     optionalTime(reg.LoadedAt()),
		Applications: make([]applicationResponse, 0, reg.Len()),
	}

	for _, app := range reg.Applications() {
		response.Applications = append(response.Applications, toApplicationResponse(app))
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

// handleApplication returns one registry entry by name.
func (s *Server) handleApplication(w http.ResponseWriter, r *http.Request) {
	app, ok := s.apps.Current().Lookup(chi.URLParam(r, "name"))
	if !ok {
		s.writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "application not found"})

		return
	}

	s.writeJSON(w, r, http.StatusOK, toApplicationResponse(app))
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode response",
			"traceID", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"reason", err,
		)
	}
}
