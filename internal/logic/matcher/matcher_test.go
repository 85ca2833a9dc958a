package matcher_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/matcher"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
)

type staticSnapshot struct {
	reg *registry.Registry
}

func (s staticSnapshot) Current() *registry.Registry { return s.reg }

const doc = `
applications:
  - name: billing
    namespace: payments
    labelSelector: app=billing
    projectGroup: g
  - name: billing-api
    namespace: payments
    labelSelector: app=billing,role=api
    projectGroup: g
  - name: alpha-web
    namespace: web
    labelSelector: tier=web
    projectGroup: g
  - name: beta-web
    namespace: web
    labelSelector: app=site
    projectGroup: g
  - name: other-ns
    namespace: other
    labelSelector: app=billing
    projectGroup: g
`

type matchCase struct {
	name          string
	giveNamespace string
	giveLabels    map[string]string
	wantName      string
	wantOK        bool
}

func TestMatcher_Match(t *testing.T) {
	t.Parallel()

	reg, err := registry.Parse([]byte(doc), time.Now())
	require.NoError(t, err)

	m := matcher.New(slog.Default(), staticSnapshot{reg: reg})

	tests := []matchCase{
		{
			name:          "single match",
			giveNamespace: "payments",
			giveLabels:    map[string]string{"app": "billing", "pod-template-hash": "abc"},
			wantName:      "billing",
			wantOK:        true,
		},
		{
			name:          "more specific selector wins",
			giveNamespace: "payments",
			giveLabels:    map[string]string{"app": "billing", "role": "api"},
			wantName:      "billing-api",
			wantOK:        true,
		},
		{
			name:          "equal specificity falls back to name order",
			giveNamespace: "web",
			giveLabels:    map[string]string{"tier": "web", "app": "site"},
			wantName:      "alpha-web",
			wantOK:        true,
		},
		{
			name:          "namespace must be equal",
			giveNamespace: "staging",
			giveLabels:    map[string]string{"app": "billing"},
			wantOK:        false,
		},
		{
			name:          "partial labels do not match",
			giveNamespace: "payments",
			giveLabels:    map[string]string{"role": "api"},
			wantOK:        false,
		},
		{
			name:          "nil labels do not match",
			giveNamespace: "payments",
			giveLabels:    nil,
			wantOK:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := m.Match(t.Context(), tt.giveNamespace, tt.giveLabels)
			require.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				require.Equal(t, tt.wantName, got.Name)
				require.Equal(t, tt.giveNamespace, got.Namespace)
			}
		})
	}
}

func TestMatcher_Match_NoRegistry(t *testing.T) {
	t.Parallel()

	m := matcher.New(slog.Default(), staticSnapshot{})

	_, ok := m.Match(t.Context(), "payments", map[string]string{"app": "billing"})
	require.False(t, ok)
}

func TestMatcher_Match_ReturnsCopy(t *testing.T) {
	t.Parallel()

	reg, err := registry.Parse([]byte(doc), time.Now())
	require.NoError(t, err)

	m := matcher.New(slog.Default(), staticSnapshot{reg: reg})

	got, ok := m.Match(t.Context(), "payments", map[string]string{"app": "billing"})
	require.True(t, ok)

	got.Selector["app"] = "mutated"

	again, ok := m.Match(t.Context(), "payments", map[string]string{"app": "billing"})
	require.True(t, ok)
	require.Equal(t, "billing", again.Selector["app"])
}
