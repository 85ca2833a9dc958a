package watcher

import "context"

// Repository is the port for listing and watching workloads cluster-wide.
type Repository interface {
	ListWorkloadsQuery(
		ctx context.Context,
		kind Kind,
	) ([]Workload, string, error)

	// WatchWorkloadsQuery streams changes newer than resourceVersion. The channel is
	// closed when the stream ends or ctx is cancelled.
	WatchWorkloadsQuery(
		ctx context.Context,
		kind Kind,
		resourceVersion string,
	) (<-chan Change, error)
}

// gone is a private interface for "resource version too old" errors
// without importing the adapter package.
type gone interface {
	IsGone()
}

type recorder interface {
	RecordWatchRestart(kind, reason string)
}
