package matcher

import (
	"context"
	"log/slog"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
)

type snapshotter interface {
	Current() *registry.Registry
}

// Matcher resolves workloads to registry entries against the current snapshot.
type Matcher struct {
	logger   *slog.Logger
	registry snapshotter
}

// New creates a matcher reading snapshots from reg.
func New(logger *slog.Logger, reg snapshotter) *Matcher {
	return &Matcher{
		logger:   logger.With("component", "matcher"),
		registry: reg,
	}
}

// Match returns the single entry selecting (namespace, labels).
//
// An entry qualifies when its namespace is equal and its selector is a subset of labels.
// When several qualify the entry with more selector pairs wins and equal specificity
// falls back to the lexicographically first name; the ambiguity is logged as a warning.
func (m *Matcher) Match(
	ctx context.Context,
	namespace string,
	labels map[string]string,
) (registry.ApplicationConfig, bool) {
	snapshot := m.registry.Current()
	if snapshot == nil {
		m.logger.DebugContext(ctx, "no registry loaded, dropping event", "namespace", namespace)

		return registry.ApplicationConfig{}, false
	}

	var (
		winner     *registry.ApplicationConfig
		candidates []string
	)

	// Candidates arrive in resolution order, so the first match is the winner.
	all := snapshot.Candidates(namespace)
	for i := range all {
		if !all[i].Selector.Matches(labels) {
			continue
		}

		if winner == nil {
			winner = &all[i]
		}

		candidates = append(candidates, all[i].Name)
	}

	if winner == nil {
		m.logger.DebugContext(ctx, "no matching application", "namespace", namespace, "labels", labels)

		return registry.ApplicationConfig{}, false
	}

	if len(candidates) > 1 {
		m.logger.WarnContext(ctx, "ambiguous registry match, most specific selector wins",
			"namespace", namespace,
			"winner", winner.Name,
			"candidates", candidates,
			"revision", snapshot.Revision(),
		)
	}

	return winner.Clone(), true
}
