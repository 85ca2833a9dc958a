package watcher

import "time"

// Kind is a workload resource kind the watcher subscribes to.
type Kind string

const (
	KindDeployment  Kind = "Deployment"
	KindStatefulSet Kind = "StatefulSet"
	KindDaemonSet   Kind = "DaemonSet"
)

// EventType classifies an emitted workload event.
type EventType string

const (
	EventCreate EventType = "create"
	EventUpdate EventType = "update"
	// EventResync is synthesized for every live workload after a (re)list.
	EventResync EventType = "resync"
	EventDelete EventType = "delete"
)

// Workload is a workload resource in the domain layer.
type Workload struct {
	Kind            Kind
	Namespace       string
	Name            string
	// UID distinguishes a recreated workload from the one it replaced.
	UID             string
	Labels          map[string]string
	Generation      int64
	ResourceVersion string
	Images          []string
}

// Key identifies the resource across events.
func (w Workload) Key() string {
	return string(w.Kind) + "/" + w.Namespace + "/" + w.Name
}

// Event is one observed workload lifecycle event.
type Event struct {
	Type       EventType
	Workload   Workload
	ObservedAt time.Time
}

// ChangeType is the raw change type delivered by a watch stream.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeBookmark ChangeType = "bookmark"
	ChangeError    ChangeType = "error"
)

// Change is one raw item of a watch stream.
type Change struct {
	Type            ChangeType
	Workload        Workload
	ResourceVersion string
	Err             error
}
