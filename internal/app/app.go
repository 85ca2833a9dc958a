package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/utils/clock"

	"github.com/snps-steve/bd-selfscan-sub001/internal/adapters/outbound/file"
	"github.com/snps-steve/bd-selfscan-sub001/internal/adapters/outbound/k8s"
	"github.com/snps-steve/bd-selfscan-sub001/internal/config"
	"github.com/snps-steve/bd-selfscan-sub001/internal/httpserver"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/cronparser"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/metrics"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/scheduler"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/shutdown"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/controller"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/matcher"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

const (
	watchInitialBackoff = time.Second

	jobRegistryReload = "registry-reload"
	jobRetentionSweep = "retention-sweep"
)

type App struct {
	logger     *slog.Logger
	appState   appstater
	signals    signalHandler
	closers    []shutdown.Shutdowner
	components []component
}

// New creates a new application instance with all dependencies wired.
// pingers is started with the other components and fed every component that can be pinged.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	appState appstater,
	pingers component,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) (*App, error) {
	kubeConfig, err := clientcmd.BuildConfigFromFlags(
		cfg.KubeMaster,
		cfg.KubeConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(kubeConfig)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}

	return newWithClientset(logger, cfg, appState, pingers, clientset, m, gatherer)
}

func newWithClientset(
	logger *slog.Logger,
	cfg *config.Config,
	appState appstater,
	pingers component,
	clientset kubernetes.Interface,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) (*App, error) {
	clk := clock.RealClock{}

	k8sRepo := k8s.New(logger, clientset, k8s.Options{
		Namespace:    cfg.Namespace,
		WatchTimeout: cfg.WatchTimeout,
		Job: k8s.JobTemplate{
			Image:                 cfg.ScannerImage,
			ServiceAccount:        cfg.ScannerServiceAccount,
			CredentialsSecret:     cfg.CredentialsSecret,
			ApplicationsConfigMap: cfg.RegistryConfigMap,
			TrustCert:             cfg.TrustCert,
			ActiveDeadline:        cfg.JobTimeout,
			TTLAfterFinished:      cfg.JobRetention,
		},
	})

	a := &App{
		logger:   logger,
		appState: appState,
		signals:  shutdown.New(logger, appState, cfg.TerminationFile),
	}

	source, err := a.registrySource(logger, cfg, clientset)
	if err != nil {
		return nil, err
	}

	store := registry.NewStore(logger, source, m)

	tracker := scanjob.NewTracker(logger, k8sRepo, m, clk, scanjob.TrackerOptions{
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
		Retention:    cfg.JobRetention,
		APITimeout:   cfg.APITimeout,
	})

	orchestrator := scanjob.NewOrchestrator(logger, k8sRepo, tracker, m, clk, scanjob.OrchestratorOptions{
		MaxConcurrent:      cfg.MaxConcurrentJobs,
		Backpressure:       cfg.Backpressure,
		Rate:               rate.Limit(cfg.RatePerSecond()),
		Burst:              cfg.RateLimitBurst,
		SubmissionTimeout:  cfg.SubmissionTimeout,
		CreateAttempts:     cfg.CreateRetries,
		CreateRetryBackoff: cfg.CreateRetryBackoff,
		APITimeout:         cfg.APITimeout,
		FailureThreshold:   cfg.FailureRateThreshold,
	})

	workloadWatcher, err := watcher.New(logger, k8sRepo, m, watcher.Options{
		Kinds:          cfg.WatchKinds,
		Buffer:         cfg.EventBuffer,
		InitialBackoff: watchInitialBackoff,
		MaxBackoff:     cfg.WatchBackoffMax,
	})
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	pipeline, err := controller.New(
		logger,
		workloadWatcher,
		matcher.New(logger, store),
		orchestrator,
		m,
		cfg.Workers,
	)
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}

	jobs := scheduler.New(logger, clk, cronparser.New())

	if err := jobs.Add(jobRegistryReload, cfg.ReloadSchedule, store.Reload); err != nil {
		return nil, fmt.Errorf("schedule registry reload: %w", err)
	}

	if err := jobs.Add(jobRetentionSweep, cfg.CleanupSchedule, func(ctx context.Context) error {
		purged, err := tracker.SweepCommand(ctx)
		if purged > 0 {
			logger.InfoContext(ctx, "retention sweep purged scan jobs", "count", purged)
		}

		return err
	}); err != nil {
		return nil, fmt.Errorf("schedule retention sweep: %w", err)
	}

	a.components = []component{
		httpserver.NewMetricsServer(logger, gatherer, cfg.MetricsPort),
		store,
		tracker,
		orchestrator,
		workloadWatcher,
		pipeline,
		jobs,
		pingers,
		httpserver.New(logger, appState, tracker, store, cfg.HTTPPort),
	}

	return a, nil
}

func (a *App) registrySource(
	logger *slog.Logger,
	cfg *config.Config,
	clientset kubernetes.Interface,
) (registry.Source, error) {
	switch cfg.RegistrySource {
	case config.RegistrySourceFile:
		source, err := file.New(logger, cfg.RegistryFile, file.DefaultDebounce)
		if err != nil {
			return nil, fmt.Errorf("open registry file: %w", err)
		}

		a.closers = append(a.closers, closerFunc{name: "registry-file", close: source.Close})

		return source, nil
	default:
		return k8s.NewConfigMapSource(clientset, cfg.Namespace, cfg.RegistryConfigMap, cfg.RegistryConfigMapKey), nil
	}
}

// Run starts the application and blocks until context is cancelled.
func (a *App) Run(originCtx context.Context) error {
	err := a.signals.CheckTermination(originCtx)
	if err != nil {
		a.closeAll(originCtx)

		return fmt.Errorf("check termination: %w", err)
	}

	ctx, cancel := context.WithCancel(originCtx)
	defer cancel()

	go a.signals.HandleSignals(ctx, cancel)

	if err := a.appState.SetStarting(ctx); err != nil {
		return fmt.Errorf("set starting: %w", err)
	}

	for _, closer := range a.closers {
		if err := a.appState.RegisterShutdowner(closer); err != nil {
			return fmt.Errorf("register %s: %w", closer.Name(), err)
		}
	}

	readyChs := make([]<-chan struct{}, 0, len(a.components))

	for _, c := range a.components {
		if err := a.start(ctx, c); err != nil {
			cancel()

			return a.shutdown(ctx, fmt.Errorf("start %s: %w", c.Name(), err))
		}

		readyChs = append(readyChs, c.Ready())
	}

	a.logger.InfoContext(ctx, "waiting for components to become ready", "count", len(readyChs))

	<-allChannelsClose(ctx, a.logger, readyChs...)

	if ctx.Err() == nil {
		if err := a.appState.SetRunning(ctx); err != nil {
			cancel()

			return a.shutdown(ctx, fmt.Errorf("set running: %w", err))
		}

		a.logger.InfoContext(ctx, "controller running")
	}

	<-ctx.Done()

	return a.shutdown(ctx, nil)
}

func (a *App) start(ctx context.Context, c component) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	if err := a.appState.RegisterShutdowner(c); err != nil {
		return fmt.Errorf("register shutdowner: %w", err)
	}

	if p, ok := c.(appServer); ok {
		if err := a.appState.RegisterPinger(p); err != nil {
			return fmt.Errorf("register pinger: %w", err)
		}
	}

	return nil
}

func (a *App) shutdown(ctx context.Context, cause error) error {
	a.logger.InfoContext(ctx, "shutting down controller")

	if err := a.appState.Shutdown(ctx); err != nil {
		a.logger.ErrorContext(ctx, "graceful shutdown incomplete", "reason", err)

		if cause == nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}

	return cause
}

// closeAll releases resources opened by New when Run never starts the components.
func (a *App) closeAll(ctx context.Context) {
	for _, closer := range a.closers {
		if err := closer.Shutdown(ctx); err != nil {
			a.logger.WarnContext(ctx, "close failed", "component", closer.Name(), "reason", err)
		}
	}
}

// allChannelsClose returns a channel closed once every input channel is closed or ctx is done.
func allChannelsClose(ctx context.Context, logger *slog.Logger, chans ...<-chan struct{}) <-chan struct{} {
	out := make(chan struct{})

	go func() {
		defer close(out)

		for i, ch := range chans {
			select {
			case <-ch:
			case <-ctx.Done():
				logger.DebugContext(ctx, "stopped waiting for channels",
					"closed", i,
					"total", len(chans),
				)

				return
			}
		}
	}()

	return out
}

type closerFunc struct {
	name  string
	close func() error
}

func (c closerFunc) Name() string { return c.name }

func (c closerFunc) Shutdown(context.Context) error { return c.close() }
