package k8s

import (
	"log/slog"
	"time"

	"k8s.io/client-go/kubernetes"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

const (
	defaultWatchTimeout = 5 * time.Minute
	listPageSize        = 500
)

// Options configures the adapter.
type Options struct {
	// Namespace holds the scan jobs and their pods.
	Namespace string
	// WatchTimeout is the server-side timeout of a single watch request.
	WatchTimeout time.Duration
	Job          JobTemplate
}

// Adapter implements the workload and scan job ports on top of client-go.
type Adapter struct {
	logger    *slog.Logger
	clientset kubernetes.Interface
	opts      Options
}

// New creates a new K8s adapter.
func New(
	logger *slog.Logger,
	clientset kubernetes.Interface,
	opts Options,
) *Adapter {
	if opts.WatchTimeout <= 0 {
		opts.WatchTimeout = defaultWatchTimeout
	}

	return &Adapter{
		logger:    logger.With("component", "k8s-adapter"),
		clientset: clientset,
		opts:      opts,
	}
}

var (
	_ watcher.Repository = (*Adapter)(nil)
	_ scanjob.Repository = (*Adapter)(nil)
)
