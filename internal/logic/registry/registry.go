package registry

import (
	"sort"
	"time"
)

// Registry is an immutable, validated snapshot of the application registry.
// A *Registry is never modified after Parse returns it.
type Registry struct {
	apps        []ApplicationConfig
	byNamespace map[string][]ApplicationConfig
	revision    string
	loadedAt    time.Time
}

func newRegistry(apps []ApplicationConfig, revision string, loadedAt time.Time) *Registry {
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].Name < apps[j].Name
	})

	byNamespace := make(map[string][]ApplicationConfig)
	for _, app := range apps {
		byNamespace[app.Namespace] = append(byNamespace[app.Namespace], app)
	}

	// Candidates are kept in resolution order: most specific selector first, then name.
	for ns := range byNamespace {
		candidates := byNamespace[ns]
		sort.SliceStable(candidates, func(i, j int) bool {
			if len(candidates[i].Selector) != len(candidates[j].Selector) {
				return len(candidates[i].Selector) > len(candidates[j].Selector)
			}

			return candidates[i].Name < candidates[j].Name
		})
	}

	return &Registry{
		apps:        apps,
		byNamespace: byNamespace,
		revision:    revision,
		loadedAt:    loadedAt,
	}
}

// Len returns the number of registered applications.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.apps)
}

// Revision identifies the source document the snapshot was parsed from.
func (r *Registry) Revision() string {
	if r == nil {
		return ""
	}

	return r.revision
}

func (r *Registry) LoadedAt() time.Time {
	if r == nil {
		return time.Time{}
	}

	return r.loadedAt
}

// Applications returns copies of all entries sorted by name.
func (r *Registry) Applications() []ApplicationConfig {
	if r == nil {
		return nil
	}

	out := make([]ApplicationConfig, len(r.apps))
	for i := range r.apps {
		out[i] = r.apps[i].Clone()
	}

	return out
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (ApplicationConfig, bool) {
	if r == nil {
		return ApplicationConfig{}, false
	}

	i := sort.Search(len(r.apps), func(i int) bool { return r.apps[i].Name >= name })
	if i < len(r.apps) && r.apps[i].Name == name {
		return r.apps[i].Clone(), true
	}

	return ApplicationConfig{}, false
}

// Candidates returns the entries of a namespace in resolution order.
// The returned slice is shared and must not be modified.
func (r *Registry) Candidates(namespace string) []ApplicationConfig {
	if r == nil {
		return nil
	}

	return r.byNamespace[namespace]
}
