package scanjob_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
)

func envMap(env []scanjob.EnvVar) map[string]string {
	out := make(map[string]string, len(env))
	for _, e := range env {
		out[e.Name] = e.Value
	}

	return out
}

func TestEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		give     registry.ApplicationConfig
		want     map[string]string
		wantNone []string
	}{
		{
			name: "explicit severities and version",
			give: registry.ApplicationConfig{
				Name:             "Billing",
				Namespace:        "payments",
				Selector:         registry.Selector{"tier": "api", "app": "billing"},
				ProjectGroup:     "Payments",
				Tier:             1,
				PolicyGating:     true,
				PolicySeverities: []registry.Severity{registry.SeverityBlocker, registry.SeverityCritical},
				ProjectVersion:   "2.4.0",
			},
			want: map[string]string{
				scanjob.EnvApplication:   "Billing",
				scanjob.EnvNamespace:     "payments",
				scanjob.EnvLabelSelector: "app=billing,tier=api",
				scanjob.EnvProjectGroup:  "Payments",
				scanjob.EnvProjectTier:   "1",
				scanjob.EnvPolicyRisk:    "BLOCKER,CRITICAL",
				scanjob.EnvVersionSource: scanjob.VersionSourceExplicit,
				scanjob.EnvVersion:       "2.4.0",
				scanjob.EnvTrigger:       "deployment-update",
			},
		},
		{
			name: "tier default severities",
			give: registry.ApplicationConfig{
				Name:         "Ledger",
				Namespace:    "payments",
				Selector:     registry.Selector{"app": "ledger"},
				ProjectGroup: "Payments",
				Tier:         4,
				PolicyGating: true,
			},
			want: map[string]string{
				scanjob.EnvPolicyRisk:    "BLOCKER",
				scanjob.EnvVersionSource: scanjob.VersionSourceAuto,
			},
			wantNone: []string{scanjob.EnvVersion},
		},
		{
			name: "discovery mode omits policy risk",
			give: registry.ApplicationConfig{
				Name:         "Web",
				Namespace:    "frontend",
				Selector:     registry.Selector{"app": "web"},
				ProjectGroup: "Frontend",
				Tier:         3,
			},
			want: map[string]string{
				scanjob.EnvProjectTier:   "3",
				scanjob.EnvVersionSource: scanjob.VersionSourceAuto,
			},
			wantNone: []string{scanjob.EnvPolicyRisk, scanjob.EnvVersion},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := envMap(scanjob.Environment(tt.give, "deployment-update"))

			for k, v := range tt.want {
				require.Equal(t, v, got[k], k)
			}

			for _, k := range tt.wantNone {
				require.NotContains(t, got, k)
			}
		})
	}
}

func TestJobName(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 5, 0, time.UTC)

	tests := []struct {
		name string
		give string
		want string
	}{
		{name: "simple", give: "Billing", want: "bd-selfscan-auto-billing-20260314-093005-abcde"},
		{name: "spaces and underscores", give: "Payment Gateway_v2", want: "bd-selfscan-auto-payment-gateway-v2-20260314-093005-abcde"},
		{
			name: "long names are shortened",
			give: "an-extremely-long-application-name-for-testing",
			want: "bd-selfscan-auto-an-extremely-long-applic-20260314-093005-abcde",
		},
		{name: "no usable characters", give: "___", want: "bd-selfscan-auto-app-20260314-093005-abcde"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := scanjob.JobName(tt.give, now, "abcdef12")
			require.Equal(t, tt.want, got)
			require.LessOrEqual(t, len(got), 63)
		})
	}
}

func TestNewJobRequest(t *testing.T) {
	t.Parallel()

	app := billingApp()
	now := time.Date(2026, 3, 14, 9, 30, 5, 0, time.UTC)

	req := scanjob.NewJobRequest(app, "Deployment update", "rec-1", now)

	require.True(t, strings.HasPrefix(req.Name, "bd-selfscan-auto-billing-20260314-093005-"))
	require.Equal(t, "billing", req.Labels[scanjob.LabelApplication])
	require.Equal(t, "deployment-update", req.Labels[scanjob.LabelTrigger])
	require.Equal(t, scanjob.ManagedByValue, req.Labels[scanjob.LabelManagedBy])
	require.Equal(t, "Billing", req.Annotations[scanjob.AnnotationApplication])
	require.Equal(t, "payments", req.Annotations[scanjob.AnnotationNamespace])
	require.Equal(t, "rec-1", req.Annotations[scanjob.AnnotationRecordID])
	require.Equal(t, []string{"/scripts/scan-application.sh", "Billing"}, req.Args)

	// Two requests in the same second still get distinct names.
	require.NotEqual(t, req.Name, scanjob.NewJobRequest(app, "deployment-update", "rec-2", now).Name)
}
