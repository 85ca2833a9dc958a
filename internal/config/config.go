package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/snps-steve/bd-selfscan-sub001/internal/adapters/outbound/k8s"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

// Registry sources.
const (
	RegistrySourceConfigMap = "configmap"
	RegistrySourceFile      = "file"
)

const (
	defaultNamespace          = "bd-selfscan-system"
	defaultRegistryKey        = "applications.yaml"
	defaultRegistryFile       = "/config/applications.yaml"
	defaultTerminationFile    = "/mnt/signal/terminating"
	defaultReloadSchedule     = "@every 10m"
	defaultCleanupSchedule    = "@every 1h"
	defaultFailureRate        = 0.5
	defaultWatchBackoffMax    = 30 * time.Second
	defaultEventBuffer        = 256
	defaultWorkers            = 4
	defaultMaxConcurrentJobs  = 5
	defaultRateLimitJobs      = 10
	defaultRateLimitWindow    = time.Minute
	defaultRateLimitBurst     = 5
	defaultSubmissionTimeout  = 2 * time.Minute
	defaultCreateRetries      = 3
	defaultCreateRetryBackoff = 2 * time.Second
	defaultAPITimeout         = 30 * time.Second
	defaultJobTimeout         = 2 * time.Hour
	defaultJobRetention       = 24 * time.Hour
	defaultPollInterval       = 30 * time.Second
	defaultPingerInterval     = 10 * time.Second
	defaultPingerThreshold    = 3
	defaultShutdownTimeout    = 30 * time.Second
	defaultWatchTimeout       = 5 * time.Minute
)

var (
	errInvalidValue = errors.New("invalid value")
	errBelowMinimum = errors.New("below minimum")
)

type Config struct {
	KubeConfig  string
	KubeMaster  string
	LogLevel    string
	LogFormat   string
	HTTPPort    string
	MetricsPort string
	Namespace   string

	TerminationFile string

	RegistrySource       string
	RegistryConfigMap    string
	RegistryConfigMapKey string
	RegistryFile         string
	ReloadSchedule       string
	CleanupSchedule      string

	WatchKinds      []watcher.Kind
	WatchTimeout    time.Duration
	WatchBackoffMax time.Duration
	EventBuffer     int
	Workers         int

	MaxConcurrentJobs  int
	Backpressure       scanjob.Backpressure
	RateLimitJobs      int
	RateLimitWindow    time.Duration
	RateLimitBurst     int
	SubmissionTimeout  time.Duration
	CreateRetries      int
	CreateRetryBackoff time.Duration
	APITimeout         time.Duration

	JobTimeout   time.Duration
	JobRetention time.Duration
	PollInterval time.Duration

	PingerInterval         time.Duration
	PingerFailureThreshold int
	FailureRateThreshold   float64
	ShutdownTimeout        time.Duration

	ScannerImage          string
	ScannerServiceAccount string
	CredentialsSecret     string
	TrustCert             bool
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		KubeConfig:            getEnvWithFallback(envKeyKubeConfig, envKeyKubeConfigFallback, ""),
		KubeMaster:            getEnvWithFallback(envKeyKubeMaster, envKeyKubeMasterFallback, ""),
		LogLevel:              getEnvOrDefault(envKeyLogLevel, "info"),
		LogFormat:             getEnvOrDefault(envKeyLogFormat, "json"),
		HTTPPort:              getEnvOrDefault(envKeyHTTPPort, "8081"),
		MetricsPort:           getEnvOrDefault(envKeyMetricsPort, "8080"),
		Namespace:             getEnvWithFallback(envKeyNamespace, envKeyNamespaceFallback, defaultNamespace),
		TerminationFile:       getEnvOrDefault(envKeyTerminationFile, defaultTerminationFile),
		RegistrySource:        strings.ToLower(getEnvOrDefault(envKeyRegistrySource, RegistrySourceConfigMap)),
		RegistryConfigMap:     getEnvOrDefault(envKeyRegistryConfigMap, k8s.DefaultApplicationsConfigMap),
		RegistryConfigMapKey:  getEnvOrDefault(envKeyRegistryConfigMapKey, defaultRegistryKey),
		RegistryFile:          getEnvOrDefault(envKeyRegistryFile, defaultRegistryFile),
		ReloadSchedule:        getEnvOrDefault(envKeyReloadSchedule, defaultReloadSchedule),
		CleanupSchedule:       getEnvOrDefault(envKeyCleanupSchedule, defaultCleanupSchedule),
		Backpressure:          scanjob.Backpressure(strings.ToLower(getEnvOrDefault(envKeyBackpressure, string(scanjob.BackpressureQueue)))),
		ScannerImage:          getEnvOrDefault(envKeyScannerImage, k8s.DefaultScannerImage),
		ScannerServiceAccount: getEnvOrDefault(envKeyScannerServiceAccount, k8s.DefaultServiceAccount),
		CredentialsSecret:     getEnvOrDefault(envKeyCredentialsSecret, k8s.DefaultCredentialsSecret),
	}

	if cfg.RegistrySource != RegistrySourceConfigMap && cfg.RegistrySource != RegistrySourceFile {
		return nil, fmt.Errorf("parse %s: %w: %q", envKeyRegistrySource, errInvalidValue, cfg.RegistrySource)
	}

	if cfg.Backpressure != scanjob.BackpressureQueue && cfg.Backpressure != scanjob.BackpressureReject {
		return nil, fmt.Errorf("parse %s: %w: %q", envKeyBackpressure, errInvalidValue, cfg.Backpressure)
	}

	kinds, err := parseKinds(getEnvOrDefault(envKeyWatchKinds, "Deployment,StatefulSet,DaemonSet"))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", envKeyWatchKinds, err)
	}

	cfg.WatchKinds = kinds

	durations := []struct {
		key    string
		def    time.Duration
		minVal time.Duration
		dst    *time.Duration
	}{
		{envKeyWatchTimeout, defaultWatchTimeout, envMinWatchTimeout, &cfg.WatchTimeout},
		{envKeyWatchBackoffMax, defaultWatchBackoffMax, envMinWatchBackoffMax, &cfg.WatchBackoffMax},
		{envKeyRateLimitWindow, defaultRateLimitWindow, envMinRateLimitWindow, &cfg.RateLimitWindow},
		{envKeySubmissionTimeout, defaultSubmissionTimeout, envMinSubmissionTimeout, &cfg.SubmissionTimeout},
		{envKeyCreateRetryBackoff, defaultCreateRetryBackoff, envMinCreateRetryBackoff, &cfg.CreateRetryBackoff},
		{envKeyAPITimeout, defaultAPITimeout, envMinAPITimeout, &cfg.APITimeout},
		{envKeyJobTimeout, defaultJobTimeout, envMinJobTimeout, &cfg.JobTimeout},
		{envKeyJobRetention, defaultJobRetention, envMinJobRetention, &cfg.JobRetention},
		{envKeyPollInterval, defaultPollInterval, envMinPollInterval, &cfg.PollInterval},
		{envKeyPingerInterval, defaultPingerInterval, envMinPingerInterval, &cfg.PingerInterval},
		{envKeyShutdownTimeout, defaultShutdownTimeout, envMinShutdownTimeout, &cfg.ShutdownTimeout},
	}

	for _, d := range durations {
		value, err := parseDurationEnv(d.key, d.def, d.minVal)
		if err != nil {
			return nil, err
		}

		*d.dst = value
	}

	ints := []struct {
		key    string
		def    int
		minVal int
		dst    *int
	}{
		{envKeyEventBuffer, defaultEventBuffer, envMinEventBuffer, &cfg.EventBuffer},
		{envKeyWorkers, defaultWorkers, envMinWorkers, &cfg.Workers},
		{envKeyMaxConcurrentJobs, defaultMaxConcurrentJobs, envMinMaxConcurrentJobs, &cfg.MaxConcurrentJobs},
		{envKeyRateLimitJobs, defaultRateLimitJobs, envMinRateLimitJobs, &cfg.RateLimitJobs},
		{envKeyRateLimitBurst, defaultRateLimitBurst, envMinRateLimitBurst, &cfg.RateLimitBurst},
		{envKeyCreateRetries, defaultCreateRetries, envMinCreateRetries, &cfg.CreateRetries},
		{envKeyPingerFailureThreshold, defaultPingerThreshold, envMinPingerFailureThreshold, &cfg.PingerFailureThreshold},
	}

	for _, i := range ints {
		value, err := parseIntEnv(i.key, i.def, i.minVal)
		if err != nil {
			return nil, err
		}

		*i.dst = value
	}

	cfg.FailureRateThreshold, err = parseRatioEnv(envKeyFailureRateThreshold, defaultFailureRate)
	if err != nil {
		return nil, err
	}

	cfg.TrustCert, err = parseBoolEnv(envKeyTrustCert, false)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// RatePerSecond converts the configured jobs per window into a token refill rate.
func (c *Config) RatePerSecond() float64 {
	return float64(c.RateLimitJobs) / c.RateLimitWindow.Seconds()
}

func parseKinds(raw string) ([]watcher.Kind, error) {
	known := map[string]watcher.Kind{
		strings.ToLower(string(watcher.KindDeployment)):  watcher.KindDeployment,
		strings.ToLower(string(watcher.KindStatefulSet)): watcher.KindStatefulSet,
		strings.ToLower(string(watcher.KindDaemonSet)):   watcher.KindDaemonSet,
	}

	seen := make(map[watcher.Kind]bool)
	kinds := make([]watcher.Kind, 0, len(known))

	for token := range strings.SplitSeq(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		kind, ok := known[strings.ToLower(token)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown kind %q", errInvalidValue, token)
		}

		if seen[kind] {
			continue
		}

		seen[kind] = true
		kinds = append(kinds, kind)
	}

	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: no kinds", errInvalidValue)
	}

	return kinds, nil
}

func parseDurationEnv(key string, def, minVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	if value < minVal {
		return 0, fmt.Errorf("parse %s: %w: %s < %s", key, errBelowMinimum, value, minVal)
	}

	return value, nil
}

func parseIntEnv(key string, def, minVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	if value < minVal {
		return 0, fmt.Errorf("parse %s: %w: %d < %d", key, errBelowMinimum, value, minVal)
	}

	return value, nil
}

func parseRatioEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	if value <= 0 || value > 1 {
		return 0, fmt.Errorf("parse %s: %w: %v not in (0, 1]", key, errInvalidValue, value)
	}

	return value, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}

	return value, nil
}

func getEnvWithFallback(key, fallbackKey, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return getEnvOrDefault(fallbackKey, defaultValue)
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}
