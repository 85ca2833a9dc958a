package config

import "time"

// Env key constants. All controller configuration env vars use the BDSELFSCAN_ prefix;
// duration values support explicit units (e.g. 5m, 40s, 2h).

// Path to kubeconfig file. If unset, KUBECONFIG is used as fallback.
const envKeyKubeConfig = "BDSELFSCAN_KUBECONFIG"

// Kubernetes API server URL. If unset, KUBERNETES_MASTER is used as fallback.
const envKeyKubeMaster = "BDSELFSCAN_KUBE_MASTER"

// Log level: debug, info, warn, error.
const envKeyLogLevel = "BDSELFSCAN_LOG_LEVEL"

// Log format: json or text.
const envKeyLogFormat = "BDSELFSCAN_LOG_FORMAT"

// Port for health/readiness/jobs HTTP server.
const envKeyHTTPPort = "BDSELFSCAN_HTTP_PORT"

// Port for Prometheus metrics (GET /metrics).
const envKeyMetricsPort = "BDSELFSCAN_METRICS_PORT"

// Namespace scan Jobs are created in. If unset, NAMESPACE is used as fallback.
const envKeyNamespace = "BDSELFSCAN_NAMESPACE"

// Marker file whose presence makes the controller exit at startup.
const envKeyTerminationFile = "BDSELFSCAN_TERMINATION_FILE"

// Registry source: configmap or file.
const envKeyRegistrySource = "BDSELFSCAN_REGISTRY_SOURCE"

// Registry ConfigMap name and data key, read from the controller namespace.
const (
	envKeyRegistryConfigMap    = "BDSELFSCAN_REGISTRY_CONFIGMAP"
	envKeyRegistryConfigMapKey = "BDSELFSCAN_REGISTRY_CONFIGMAP_KEY"
)

// Registry file path, used with the file source.
const envKeyRegistryFile = "BDSELFSCAN_REGISTRY_FILE"

// Schedules for the periodic registry reload and the retention sweep (cron or @every).
const (
	envKeyReloadSchedule  = "BDSELFSCAN_RELOAD_SCHEDULE"
	envKeyCleanupSchedule = "BDSELFSCAN_CLEANUP_SCHEDULE"
)

// Comma separated workload kinds to watch.
const envKeyWatchKinds = "BDSELFSCAN_WATCH_KINDS"

// Server-side watch timeout. Units: s, m, h (e.g. 300s, 5m).
const (
	envKeyWatchTimeout = "BDSELFSCAN_WATCH_TIMEOUT"
	envMinWatchTimeout = 30 * time.Second
)

// Cap for the reconnect backoff.
const (
	envKeyWatchBackoffMax = "BDSELFSCAN_WATCH_BACKOFF_MAX"
	envMinWatchBackoffMax = time.Second
)

// Capacity of the channel between the watcher and the pipeline.
const (
	envKeyEventBuffer = "BDSELFSCAN_EVENT_BUFFER"
	envMinEventBuffer = 1
)

// Pipeline worker count.
const (
	envKeyWorkers = "BDSELFSCAN_WORKERS"
	envMinWorkers = 1
)

// Ceiling on Pending, Created and Running scan jobs.
const (
	envKeyMaxConcurrentJobs = "BDSELFSCAN_MAX_CONCURRENT_JOBS"
	envMinMaxConcurrentJobs = 1
)

// What to do at the ceiling: queue or reject.
const envKeyBackpressure = "BDSELFSCAN_BACKPRESSURE"

// Token bucket: RATE_LIMIT_JOBS per RATE_LIMIT_WINDOW with RATE_LIMIT_BURST.
const (
	envKeyRateLimitJobs   = "BDSELFSCAN_RATE_LIMIT_JOBS"
	envMinRateLimitJobs   = 1
	envKeyRateLimitWindow = "BDSELFSCAN_RATE_LIMIT_WINDOW"
	envMinRateLimitWindow = time.Second
	envKeyRateLimitBurst  = "BDSELFSCAN_RATE_LIMIT_BURST"
	envMinRateLimitBurst  = 1
)

// Upper bound on how long a submission may wait for a slot or a token.
const (
	envKeySubmissionTimeout = "BDSELFSCAN_SUBMISSION_TIMEOUT"
	envMinSubmissionTimeout = time.Second
)

// Job creation attempts and the initial retry backoff.
const (
	envKeyCreateRetries      = "BDSELFSCAN_CREATE_RETRIES"
	envMinCreateRetries      = 1
	envKeyCreateRetryBackoff = "BDSELFSCAN_CREATE_RETRY_BACKOFF"
	envMinCreateRetryBackoff = 100 * time.Millisecond
)

// Timeout for a single cluster API call.
const (
	envKeyAPITimeout = "BDSELFSCAN_API_TIMEOUT"
	envMinAPITimeout = time.Second
)

// Controller-enforced scan job timeout.
const (
	envKeyJobTimeout = "BDSELFSCAN_JOB_TIMEOUT"
	envMinJobTimeout = time.Minute
)

// How long terminal scan jobs are kept before the sweep purges them.
const (
	envKeyJobRetention = "BDSELFSCAN_JOB_RETENTION"
	envMinJobRetention = time.Minute
)

// Job status poll interval.
const (
	envKeyPollInterval = "BDSELFSCAN_POLL_INTERVAL"
	envMinPollInterval = time.Second
)

// Pinger check interval. Units: s, m, h (e.g. 10s, 1m).
const (
	envKeyPingerInterval = "BDSELFSCAN_PINGER_INTERVAL"
	envMinPingerInterval = time.Second
)

// Consecutive failed pings before a component is reported unhealthy.
const (
	envKeyPingerFailureThreshold = "BDSELFSCAN_PINGER_FAILURE_THRESHOLD"
	envMinPingerFailureThreshold = 1
)

// Share of recent job creations that may fail before the orchestrator is unhealthy (0..1).
const envKeyFailureRateThreshold = "BDSELFSCAN_FAILURE_RATE_THRESHOLD"

// Bound on the whole graceful shutdown.
const (
	envKeyShutdownTimeout = "BDSELFSCAN_SHUTDOWN_TIMEOUT"
	envMinShutdownTimeout = time.Second
)

// Scan Job pod settings.
const (
	envKeyScannerImage          = "BDSELFSCAN_SCANNER_IMAGE"
	envKeyScannerServiceAccount = "BDSELFSCAN_SCANNER_SERVICE_ACCOUNT"
	envKeyCredentialsSecret     = "BDSELFSCAN_CREDENTIALS_SECRET"
	envKeyTrustCert             = "BDSELFSCAN_TRUST_CERT"
)

// Standard env keys used as fallback when BDSELFSCAN_* are unset.
const (
	envKeyKubeConfigFallback = "KUBECONFIG"
	envKeyKubeMasterFallback = "KUBERNETES_MASTER"
	envKeyNamespaceFallback  = "NAMESPACE"
)
