package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bd_selfscan"

// jobDurationBuckets spans one minute to one hour, matching typical scan runtimes.
var jobDurationBuckets = []float64{60, 300, 600, 1200, 1800, 3600}

// Metrics holds every controller collector. Collectors are registered on the registerer
// passed to New so tests can use a private registry.
type Metrics struct {
	deploymentEvents     *prometheus.CounterVec
	eventsDiscarded      *prometheus.CounterVec
	jobsCreated          *prometheus.CounterVec
	jobsFailed           *prometheus.CounterVec
	jobsCompleted        *prometheus.CounterVec
	jobDuration          *prometheus.HistogramVec
	policyViolations     *prometheus.CounterVec
	duplicatesSuppressed *prometheus.CounterVec
	submissionsDeferred  *prometheus.CounterVec
	rateLimited          prometheus.Counter
	jobsPurged           prometheus.Counter
	activeJobs           prometheus.Gauge
	controllerHealthy    prometheus.Gauge
	configReloads        *prometheus.CounterVec
	registryApps         prometheus.Gauge
	watchRestarts        *prometheus.CounterVec
	pingDuration         *prometheus.HistogramVec
	trackedWorkloads     prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		deploymentEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployment_events_total",
			Help:      "Total workload events observed.",
		}, []string{"namespace", "kind", "event_type"}),
		eventsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_discarded_total",
			Help:      "Total workload events dropped before matching.",
		}, []string{"reason"}),
		jobsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Total scan jobs created.",
		}, []string{"namespace", "application"}),
		jobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total scan jobs that could not be created.",
		}, []string{"namespace", "application", "reason"}),
		jobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total scan jobs that reached a terminal state.",
		}, []string{"namespace", "application", "state"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Scan job duration from creation to terminal state.",
			Buckets:   jobDurationBuckets,
		}, []string{"namespace", "application"}),
		policyViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_violations_total",
			Help:      "Total scans that finished with a policy violation.",
		}, []string{"namespace", "application"}),
		duplicatesSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_suppressed_total",
			Help:      "Total submissions coalesced into an active scan job.",
		}, []string{"namespace", "application"}),
		submissionsDeferred: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_deferred_total",
			Help:      "Total submissions deferred by the concurrency ceiling.",
		}, []string{"policy"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total submissions delayed or refused by the creation rate limiter.",
		}),
		jobsPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_purged_total",
			Help:      "Total finished scan jobs purged after the retention window.",
		}),
		activeJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Scan jobs currently pending, created or running.",
		}),
		controllerHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_healthy",
			Help:      "1 while the controller is healthy, 0 when health is degraded.",
		}),
		configReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Total application registry loads by result.",
		}, []string{"result"}),
		registryApps: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_applications",
			Help:      "Applications in the active registry snapshot.",
		}),
		watchRestarts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_restarts_total",
			Help:      "Total workload watch restarts by reason.",
		}, []string{"kind", "reason"}),
		pingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "component_ping_duration_seconds",
			Help:      "Health ping latency per component and result.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 7),
		}, []string{"component", "result"}),
		trackedWorkloads: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_workloads",
			Help:      "Workloads whose last handled generation is remembered by the pipeline.",
		}),
	}
}

func (m *Metrics) RecordDeploymentEvent(namespace, kind, eventType string) {
	m.deploymentEvents.WithLabelValues(namespace, kind, eventType).Inc()
}

func (m *Metrics) RecordEventDiscarded(reason string) {
	m.eventsDiscarded.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordJobCreated(namespace, application string) {
	m.jobsCreated.WithLabelValues(namespace, application).Inc()
}

func (m *Metrics) RecordJobCreateFailure(namespace, application, reason string) {
	m.jobsFailed.WithLabelValues(namespace, application, reason).Inc()
}

// RecordJobCompleted counts a terminal job and observes its duration.
func (m *Metrics) RecordJobCompleted(namespace, application, state string, duration time.Duration) {
	m.jobsCompleted.WithLabelValues(namespace, application, state).Inc()
	m.jobDuration.WithLabelValues(namespace, application).Observe(duration.Seconds())
}

func (m *Metrics) RecordPolicyViolation(namespace, application string) {
	m.policyViolations.WithLabelValues(namespace, application).Inc()
}

func (m *Metrics) RecordDuplicateSuppressed(namespace, application string) {
	m.duplicatesSuppressed.WithLabelValues(namespace, application).Inc()
}

func (m *Metrics) RecordSubmissionDeferred(policy string) {
	m.submissionsDeferred.WithLabelValues(policy).Inc()
}

func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) RecordJobPurged() {
	m.jobsPurged.Inc()
}

// SetActiveJobs publishes the tracker's active record count.
func (m *Metrics) SetActiveJobs(count int) {
	m.activeJobs.Set(float64(count))
}

func (m *Metrics) SetHealthy(healthy bool) {
	if healthy {
		m.controllerHealthy.Set(1)

		return
	}

	m.controllerHealthy.Set(0)
}

func (m *Metrics) RecordConfigReload(result string) {
	m.configReloads.WithLabelValues(result).Inc()
}

func (m *Metrics) SetRegistryApplications(count int) {
	m.registryApps.Set(float64(count))
}

func (m *Metrics) RecordWatchRestart(kind, reason string) {
	m.watchRestarts.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) SetTrackedWorkloads(count int) {
	m.trackedWorkloads.Set(float64(count))
}

// ObservePing records one health ping of component.
func (m *Metrics) ObservePing(component string, latency time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.pingDuration.WithLabelValues(component, result).Observe(latency.Seconds())
}

// The accessors below expose collectors to tests in other packages.

func (m *Metrics) PolicyViolations() *prometheus.CounterVec     { return m.policyViolations }
func (m *Metrics) DuplicatesSuppressed() *prometheus.CounterVec { return m.duplicatesSuppressed }
func (m *Metrics) JobsCreated() *prometheus.CounterVec          { return m.jobsCreated }
func (m *Metrics) JobsFailed() *prometheus.CounterVec           { return m.jobsFailed }
func (m *Metrics) JobsCompleted() *prometheus.CounterVec        { return m.jobsCompleted }
func (m *Metrics) SubmissionsDeferred() *prometheus.CounterVec  { return m.submissionsDeferred }
func (m *Metrics) RateLimited() prometheus.Counter              { return m.rateLimited }
func (m *Metrics) JobsPurged() prometheus.Counter               { return m.jobsPurged }
func (m *Metrics) ActiveJobs() prometheus.Gauge                 { return m.activeJobs }
func (m *Metrics) ControllerHealthy() prometheus.Gauge          { return m.controllerHealthy }
func (m *Metrics) DeploymentEvents() *prometheus.CounterVec     { return m.deploymentEvents }
func (m *Metrics) EventsDiscarded() *prometheus.CounterVec      { return m.eventsDiscarded }
func (m *Metrics) TrackedWorkloads() prometheus.Gauge           { return m.trackedWorkloads }
