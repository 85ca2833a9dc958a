package registry

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// Severity is a policy severity token understood by the scan payload.
type Severity string

const (
	SeverityAll         Severity = "ALL"
	SeverityBlocker     Severity = "BLOCKER"
	SeverityCritical    Severity = "CRITICAL"
	SeverityMajor       Severity = "MAJOR"
	SeverityMinor       Severity = "MINOR"
	SeverityTrivial     Severity = "TRIVIAL"
	SeverityUnspecified Severity = "UNSPECIFIED"
)

var knownSeverities = map[Severity]struct{}{
	SeverityAll:         {},
	SeverityBlocker:     {},
	SeverityCritical:    {},
	SeverityMajor:       {},
	SeverityMinor:       {},
	SeverityTrivial:     {},
	SeverityUnspecified: {},
}

// tierSeverities are applied when policy gating is on and no explicit set is configured.
var tierSeverities = map[int][]Severity{
	1: {SeverityBlocker, SeverityCritical, SeverityMajor},
	2: {SeverityBlocker, SeverityCritical},
	3: {SeverityBlocker, SeverityCritical},
	4: {SeverityBlocker},
}

// ParseSeverity normalizes and validates a single severity token.
func ParseSeverity(token string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(token)))
	if _, ok := knownSeverities[sev]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, token)
	}

	return sev, nil
}

// ParseSeverities parses tokens, dropping duplicates and keeping the first-seen order.
func ParseSeverities(tokens []string) ([]Severity, error) {
	out := make([]Severity, 0, len(tokens))

	for _, token := range tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}

		sev, err := ParseSeverity(token)
		if err != nil {
			return nil, err
		}

		if !slices.Contains(out, sev) {
			out = append(out, sev)
		}
	}

	return out, nil
}

// JoinSeverities renders severities in the comma-separated form the payload expects.
func JoinSeverities(severities []Severity) string {
	parts := make([]string, len(severities))
	for i, s := range severities {
		parts[i] = string(s)
	}

	return strings.Join(parts, ",")
}

// Selector is a conjunction of exact label key/value requirements.
type Selector map[string]string

// ParseSelector parses the "k1=v1,k2=v2" form.
func ParseSelector(raw string) (Selector, error) {
	sel := Selector{}

	for pair := range strings.SplitSeq(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.HasSuffix(key, "!") {
			return nil, fmt.Errorf("%w: %q is not a key=value pair", ErrInvalidSelector, pair)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(strings.TrimPrefix(value, "="))

		if prev, dup := sel[key]; dup && prev != value {
			return nil, fmt.Errorf("%w: key %q has conflicting values", ErrInvalidSelector, key)
		}

		sel[key] = value
	}

	if err := sel.validate(); err != nil {
		return nil, err
	}

	return sel, nil
}

func (s Selector) validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: selector is empty", ErrInvalidSelector)
	}

	for key, value := range s {
		if errs := validation.IsQualifiedName(key); len(errs) > 0 {
			return fmt.Errorf("%w: key %q: %s", ErrInvalidSelector, key, strings.Join(errs, "; "))
		}

		if errs := validation.IsValidLabelValue(value); len(errs) > 0 {
			return fmt.Errorf("%w: value %q: %s", ErrInvalidSelector, value, strings.Join(errs, "; "))
		}
	}

	return nil
}

// Matches reports whether every requirement is present in labels.
func (s Selector) Matches(labels map[string]string) bool {
	if len(s) == 0 {
		return false
	}

	for key, want := range s {
		got, ok := labels[key]
		if !ok || got != want {
			return false
		}
	}

	return true
}

// String returns the canonical form: pairs sorted by key.
func (s Selector) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + s[k]
	}

	return strings.Join(parts, ",")
}

// ApplicationConfig is one registered scan target.
type ApplicationConfig struct {
	Name             string
	Namespace        string
	Selector         Selector
	ProjectGroup     string
	Tier             int
	PolicyGating     bool
	PolicySeverities []Severity
	ProjectVersion   string
	ScanOnEvent      bool
}

// EffectiveSeverities returns the severities that fail the scan, or nil in discovery mode.
func (a ApplicationConfig) EffectiveSeverities() []Severity {
	if !a.PolicyGating {
		return nil
	}

	if len(a.PolicySeverities) > 0 {
		return slices.Clone(a.PolicySeverities)
	}

	return slices.Clone(tierSeverities[a.Tier])
}

// Clone returns a deep copy safe to hand out of the registry.
func (a ApplicationConfig) Clone() ApplicationConfig {
	out := a
	out.Selector = maps.Clone(a.Selector)
	out.PolicySeverities = slices.Clone(a.PolicySeverities)

	return out
}

func (a ApplicationConfig) selectorKey() string {
	return a.Namespace + "/" + a.Selector.String()
}
