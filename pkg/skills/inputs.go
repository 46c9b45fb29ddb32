package skills

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ResolveInputs validates the inputs supplied to a run against the skill's
// input specs and applies defaults. A missing required input or a value of
// the wrong type is a ValidationError returned before any step executes.
func (d *Definition) ResolveInputs(given map[string]any) (map[string]any, error) {
	var result *multierror.Error
	resolved := make(map[string]any, len(d.Inputs))

	for _, spec := range d.Inputs {
		value, ok := given[spec.Name]
		if !ok {
			if spec.Required {
				result = multierror.Append(result, errors.Errorf("required input %q not provided", spec.Name))
				continue
			}
			if spec.Default != nil {
				resolved[spec.Name] = spec.Default
			}
			continue
		}
		if err := checkInputType(spec, value); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		resolved[spec.Name] = value
	}

	for name := range given {
		if !d.hasInput(name) {
			result = multierror.Append(result, errors.Errorf("unknown input %q", name))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		violations := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			violations = append(violations, e.Error())
		}
		return nil, NewValidationError(d.Name, violations...)
	}
	return resolved, nil
}

func (d *Definition) hasInput(name string) bool {
	for _, spec := range d.Inputs {
		if spec.Name == name {
			return true
		}
	}
	return false
}

func checkInputType(spec InputSpec, value any) error {
	ok := true
	switch spec.Type {
	case "", "any":
	case "string":
		_, ok = value.(string)
	case "number":
		switch value.(type) {
		case int, int64, float32, float64:
		default:
			ok = false
		}
	case "boolean":
		_, ok = value.(bool)
	case "object":
		_, ok = value.(map[string]any)
	case "array":
		_, ok = value.([]any)
	default:
		return errors.Errorf("input %q: unknown type %q", spec.Name, spec.Type)
	}
	if !ok {
		return errors.Errorf("input %q: expected %s, got %s", spec.Name, spec.Type, fmt.Sprintf("%T", value))
	}
	return nil
}
