package watcher

import "errors"

var (
	ErrNotConnected = errors.New("workload watch not established")
	ErrNoKinds      = errors.New("no workload kinds to watch")
)
