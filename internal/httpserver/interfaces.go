package httpserver

import (
	"time"

	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/appstate"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/pinger"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
)

// appstater is an internal interface for application state management
type appstater interface {
	GetState() appstate.State
	IsHealthy() bool
	IsReady() bool
	GetUptime() time.Duration
	GetStartTime() time.Time
	GetAllStats() map[string]*pinger.Statistics
}

// recordLister exposes the tracked scan job records.
type recordLister interface {
	Records() []scanjob.Record
}

// registrySnapshotter exposes the active application registry.
type registrySnapshotter interface {
	Current() *registry.Registry
}
