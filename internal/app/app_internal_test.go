package app

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/snps-steve/bd-selfscan-sub001/internal/config"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/appstate"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/metrics"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/pinger"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

type allChannelsCloseCase struct {
	name                         string
	giveNumChannels              int
	giveContextCancelBeforeClose bool
	wantClosed                   bool
}

func TestAllChannelsClose(t *testing.T) {
	logger := slog.Default()

	tests := []allChannelsCloseCase{
		{
			name:            "zero channels closes immediately",
			giveNumChannels: 0,
			wantClosed:      true,
		},
		{
			name:            "one channel closes when it closes",
			giveNumChannels: 1,
			wantClosed:      true,
		},
		{
			name:            "two channels close when both close",
			giveNumChannels: 2,
			wantClosed:      true,
		},
		{
			name:                         "context cancelled then channels close",
			giveNumChannels:              2,
			giveContextCancelBeforeClose: true,
			wantClosed:                   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()

			if tt.giveContextCancelBeforeClose {
				var cancel context.CancelFunc

				ctx, cancel = context.WithCancel(ctx)
				cancel()
			}

			chans := make([]<-chan struct{}, 0, tt.giveNumChannels)
			readyChans := make([]chan struct{}, 0, tt.giveNumChannels)

			for range tt.giveNumChannels {
				ch := make(chan struct{})

				readyChans = append(readyChans, ch)
				chans = append(chans, ch)
			}

			out := allChannelsClose(ctx, logger, chans...)

			if tt.giveNumChannels == 0 {
				select {
				case <-out:
				case <-time.After(100 * time.Millisecond):
					t.Fatal("expected out channel to close immediately")
				}

				return
			}

			for _, ch := range readyChans {
				close(ch)
			}

			select {
			case <-out:
			case <-time.After(500 * time.Millisecond):
				t.Fatal("expected out channel to close after all input channels closed")
			}
		})
	}
}

const testRegistry = `applications:
  - name: billing
    namespace: payments
    labelSelector: "app=billing"
    projectGroup: Payments
    projectTier: 2
    scanOnEvent: true
`

func testConfig() *config.Config {
	return &config.Config{
		HTTPPort:               "0",
		MetricsPort:            "0",
		Namespace:              "bd-selfscan-system",
		RegistrySource:         config.RegistrySourceConfigMap,
		RegistryConfigMap:      "bd-selfscan-applications",
		RegistryConfigMapKey:   "applications.yaml",
		ReloadSchedule:         "@every 10m",
		CleanupSchedule:        "@every 1h",
		WatchKinds:             []watcher.Kind{watcher.KindDeployment},
		WatchTimeout:           time.Minute,
		WatchBackoffMax:        time.Second,
		EventBuffer:            16,
		Workers:                2,
		MaxConcurrentJobs:      5,
		Backpressure:           scanjob.BackpressureQueue,
		RateLimitJobs:          10,
		RateLimitWindow:        time.Minute,
		RateLimitBurst:         5,
		SubmissionTimeout:      5 * time.Second,
		CreateRetries:          1,
		CreateRetryBackoff:     100 * time.Millisecond,
		APITimeout:             5 * time.Second,
		JobTimeout:             time.Hour,
		JobRetention:           time.Hour,
		PollInterval:           time.Second,
		PingerInterval:         time.Second,
		PingerFailureThreshold: 3,
		FailureRateThreshold:   0.5,
		ShutdownTimeout:        5 * time.Second,
	}
}

func TestApp_Run(t *testing.T) {
	logger := slog.Default()
	cfg := testConfig()

	clientset := fake.NewClientset(
		&corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: cfg.RegistryConfigMap, Namespace: cfg.Namespace},
			Data:       map[string]string{cfg.RegistryConfigMapKey: testRegistry},
		},
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name:       "billing-api",
				Namespace:  "payments",
				Labels:     map[string]string{"app": "billing", "tier": "backend"},
				Generation: 1,
			},
		},
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	pingers := pinger.New(logger, 100*time.Millisecond, cfg.PingerFailureThreshold, m)
	appState := appstate.New(logger, time.Now(), "", make(chan os.Signal, 1), pingers, cfg.ShutdownTimeout)

	application, err := newWithClientset(logger, cfg, appState, pingers, clientset, m, reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- application.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		jobs, err := clientset.BatchV1().Jobs(cfg.Namespace).List(t.Context(), metav1.ListOptions{})

		return err == nil && len(jobs.Items) == 1
	}, 10*time.Second, 20*time.Millisecond)

	jobs, err := clientset.BatchV1().Jobs(cfg.Namespace).List(t.Context(), metav1.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, "billing", jobs.Items[0].Labels[scanjob.LabelApplication])

	require.Eventually(t, func() bool {
		return appState.GetState() == appstate.StateRunning
	}, 10*time.Second, 20*time.Millisecond)

	require.Contains(t, appState.GetAllStats(), "registry-store")
	require.Contains(t, appState.GetAllStats(), "workload-watcher")

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	require.Equal(t, appstate.StateTerminated, appState.GetState())
}

func TestApp_New_InvalidSchedule(t *testing.T) {
	logger := slog.Default()
	cfg := testConfig()
	cfg.ReloadSchedule = "every ten minutes"

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	pingers := pinger.New(logger, time.Second, 1, m)
	appState := appstate.New(logger, time.Now(), "", make(chan os.Signal, 1), pingers, time.Second)

	_, err := newWithClientset(logger, cfg, appState, pingers, fake.NewClientset(), m, reg)
	require.Error(t, err)
}
