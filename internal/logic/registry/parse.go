package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTier = 3
	minTier     = 1
	maxTier     = 4
)

type document struct {
	Applications []entry `yaml:"applications"`
}

// entry mirrors one registry item as written by operators. labelSelector and
// policyGatingRisk accept either a scalar or a collection, so they stay raw here.
type entry struct {
	Name             string    `yaml:"name"`
	Namespace        string    `yaml:"namespace"`
	LabelSelector    yaml.Node `yaml:"labelSelector"`
	ProjectGroup     string    `yaml:"projectGroup"`
	ProjectTier      *int      `yaml:"projectTier"`
	PolicyGating     bool      `yaml:"policyGating"`
	PolicyGatingRisk yaml.Node `yaml:"policyGatingRisk"`
	ProjectVersion   string    `yaml:"projectVersion"`
	ScanOnEvent      *bool     `yaml:"scanOnEvent"`
	ScanOnDeploy     *bool     `yaml:"scanOnDeploy"`
}

// Parse decodes and validates a registry document. Every invalid entry is reported,
// and any error means no registry is produced.
func Parse(data []byte, loadedAt time.Time) (*Registry, error) {
	var doc document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	apps := make([]ApplicationConfig, 0, len(doc.Applications))
	names := make(map[string]int, len(doc.Applications))
	selectors := make(map[string]string, len(doc.Applications))

	var errs error

	for i := range doc.Applications {
		app, err := doc.Applications[i].toApplication()
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%w: applications[%d] %q: %w",
				ErrInvalidEntry, i, doc.Applications[i].Name, err))

			continue
		}

		if prev, dup := names[app.Name]; dup {
			errs = errors.Join(errs, fmt.Errorf("%w: %q at applications[%d] and applications[%d]",
				ErrDuplicateName, app.Name, prev, i))

			continue
		}

		key := app.selectorKey()
		if prev, dup := selectors[key]; dup {
			errs = errors.Join(errs, fmt.Errorf("%w: %q and %q both select %s",
				ErrDuplicateSelector, prev, app.Name, key))

			continue
		}

		names[app.Name] = i
		selectors[key] = app.Name

		apps = append(apps, app)
	}

	if errs != nil {
		return nil, errs
	}

	sum := sha256.Sum256(data)

	return newRegistry(apps, hex.EncodeToString(sum[:8]), loadedAt), nil
}

func (e *entry) toApplication() (ApplicationConfig, error) {
	app := ApplicationConfig{
		Name:           strings.TrimSpace(e.Name),
		Namespace:      strings.TrimSpace(e.Namespace),
		ProjectGroup:   strings.TrimSpace(e.ProjectGroup),
		Tier:           defaultTier,
		PolicyGating:   e.PolicyGating,
		ProjectVersion: strings.TrimSpace(e.ProjectVersion),
	}

	switch {
	case app.Name == "":
		return app, fmt.Errorf("%w: name", ErrMissingField)
	case app.Namespace == "":
		return app, fmt.Errorf("%w: namespace", ErrMissingField)
	case app.ProjectGroup == "":
		return app, fmt.Errorf("%w: projectGroup", ErrMissingField)
	}

	if e.ProjectTier != nil {
		app.Tier = *e.ProjectTier
	}

	if app.Tier < minTier || app.Tier > maxTier {
		return app, fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidTier, app.Tier, minTier, maxTier)
	}

	selector, err := decodeSelector(&e.LabelSelector)
	if err != nil {
		return app, err
	}

	app.Selector = selector

	tokens, err := decodeList(&e.PolicyGatingRisk)
	if err != nil {
		return app, fmt.Errorf("%w: %w", ErrInvalidSeverity, err)
	}

	app.PolicySeverities, err = ParseSeverities(tokens)
	if err != nil {
		return app, err
	}

	switch {
	case e.ScanOnEvent != nil:
		app.ScanOnEvent = *e.ScanOnEvent
	case e.ScanOnDeploy != nil:
		app.ScanOnEvent = *e.ScanOnDeploy
	}

	return app, nil
}

func decodeSelector(node *yaml.Node) (Selector, error) {
	switch node.Kind {
	case 0:
		return nil, fmt.Errorf("%w: labelSelector", ErrMissingField)
	case yaml.ScalarNode:
		return ParseSelector(node.Value)
	case yaml.MappingNode:
		sel := Selector{}
		if err := node.Decode(&sel); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSelector, err)
		}

		if err := sel.validate(); err != nil {
			return nil, err
		}

		return sel, nil
	default:
		return nil, fmt.Errorf("%w: expected string or mapping", ErrInvalidSelector)
	}
}

func decodeList(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}

		return strings.Split(node.Value, ","), nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("expected string or list")
	}
}
