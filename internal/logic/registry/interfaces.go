package registry

import "context"

// Source is the port for reading the raw registry document.
type Source interface {
	// Describe names the source for logs, e.g. "configmap bd-selfscan-system/bd-selfscan-applications".
	Describe() string
	FetchQuery(ctx context.Context) ([]byte, error)
}

// changeNotifier is optionally implemented by sources that can push change hints.
type changeNotifier interface {
	Changes() <-chan struct{}
}

type recorder interface {
	RecordConfigReload(result string)
	SetRegistryApplications(count int)
}
