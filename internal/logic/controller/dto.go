package controller

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

// Trigger returns the trigger reason recorded on scan jobs, e.g. "deployment-update".
func Trigger(ev watcher.Event) string {
	return strings.ToLower(string(ev.Workload.Kind)) + "-" + string(ev.Type)
}

// observed is what the pipeline last acted on for one workload.
type observed struct {
	uid        string
	generation int64
	labels     string
}

// generations remembers the last handled state per workload so redelivered and
// status-only events are dropped before matching.
type generations struct {
	mu   sync.Mutex
	seen map[string]observed
}

func newGenerations() *generations {
	return &generations{seen: make(map[string]observed)}
}

// observe records w and reports whether it carries something not handled yet: a
// new object (different UID), a higher generation or a label change. Label edits
// do not bump metadata.generation but can change the registry match. Workloads
// without a generation are always accepted.
func (g *generations) observe(w watcher.Workload) bool {
	cur := observed{uid: w.UID, generation: w.Generation, labels: labelsKey(w.Labels)}

	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.seen[w.Key()]

	switch {
	case w.Generation <= 0:
	case !ok:
	case cur.uid != last.uid:
	case cur.generation > last.generation:
	case cur.generation == last.generation && cur.labels != last.labels:
	default:
		return false
	}

	g.seen[w.Key()] = cur

	return true
}

func (g *generations) forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.seen, key)
}

func (g *generations) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.seen)
}

func labelsKey(labels map[string]string) string {
	keys := slices.Sorted(maps.Keys(labels))

	var b strings.Builder

	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}

	return b.String()
}
