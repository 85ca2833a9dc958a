package scanjob

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
)

// NewJobRequest builds the scan job for app. The name is unique per call.
func NewJobRequest(
	app registry.ApplicationConfig,
	trigger,
	recordID string,
	now time.Time,
) JobRequest {
	safe := SafeName(app.Name)
	trigger = SafeName(trigger)

	return JobRequest{
		Name: JobName(app.Name, now, uuid.NewString()),
		Labels: map[string]string{
			LabelName:        LabelNameValue,
			LabelComponent:   LabelComponentValue,
			LabelInstance:    LabelNameValue,
			LabelManagedBy:   ManagedByValue,
			LabelScanType:    ScanTypeValue,
			LabelTrigger:     trigger,
			LabelApplication: safe,
		},
		Annotations: map[string]string{
			AnnotationApplication: app.Name,
			AnnotationNamespace:   app.Namespace,
			AnnotationTrigger:     trigger,
			AnnotationCreatedBy:   ManagedByValue,
			AnnotationRecordID:    recordID,
		},
		Env:  Environment(app, trigger),
		Args: []string{scanScript, app.Name},
	}
}

// Environment renders the payload contract for app. POLICY_GATING_RISK is omitted in
// discovery mode so the payload never fails on findings.
func Environment(app registry.ApplicationConfig, trigger string) []EnvVar {
	env := []EnvVar{
		{Name: EnvApplication, Value: app.Name},
		{Name: EnvNamespace, Value: app.Namespace},
		{Name: EnvLabelSelector, Value: app.Selector.String()},
		{Name: EnvProjectGroup, Value: app.ProjectGroup},
		{Name: EnvProjectTier, Value: strconv.Itoa(app.Tier)},
	}

	if severities := app.EffectiveSeverities(); len(severities) > 0 {
		env = append(env, EnvVar{Name: EnvPolicyRisk, Value: registry.JoinSeverities(severities)})
	}

	if app.ProjectVersion != "" {
		env = append(env,
			EnvVar{Name: EnvVersionSource, Value: VersionSourceExplicit},
			EnvVar{Name: EnvVersion, Value: app.ProjectVersion},
		)
	} else {
		env = append(env, EnvVar{Name: EnvVersionSource, Value: VersionSourceAuto})
	}

	return append(env, EnvVar{Name: EnvTrigger, Value: trigger})
}

// JobName returns bd-selfscan-auto-<app>-<yyyymmdd-hhmmss>-<suffix>, shortening the
// application part so the result is a valid object name.
func JobName(application string, now time.Time, suffix string) string {
	suffix = SafeName(suffix)
	if len(suffix) > jobNameSuffixes {
		suffix = suffix[:jobNameSuffixes]
	}

	stamp := now.UTC().Format(jobNameTime)
	budget := jobNameMaxLen - len(jobNamePrefix) - len(stamp) - len(suffix) - 2

	app := SafeName(application)
	if len(app) > budget {
		app = strings.TrimRight(app[:budget], "-")
	}

	if app == "" {
		app = "app"
	}

	return jobNamePrefix + app + "-" + stamp + "-" + suffix
}

// SafeName lowercases s and folds everything outside [a-z0-9] into single dashes, which
// keeps it valid both as a name segment and as a label value.
func SafeName(s string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)

			dash = false

			continue
		}

		if !dash && b.Len() > 0 {
			b.WriteByte('-')

			dash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if len(out) > jobNameMaxLen {
		out = strings.TrimRight(out[:jobNameMaxLen], "-")
	}

	return out
}
