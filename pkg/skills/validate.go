package skills

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// reservedNames are namespace roots available to every template; inputs and
// step bindings may not shadow them.
var reservedNames = map[string]struct{}{
	"inputs": {},
	"steps":  {},
}

// ValidationError reports every structural problem found in a definition or
// in the inputs supplied to a run. A skill that fails validation is never
// partially executed.
type ValidationError struct {
	Skill      string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("skill %q is invalid: %s", e.Skill, strings.Join(e.Violations, "; "))
}

// NewValidationError builds a ValidationError for the given skill.
func NewValidationError(skill string, violations ...string) *ValidationError {
	return &ValidationError{Skill: skill, Violations: violations}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the definition for structural consistency: unique step
// IDs and bindings, known step kinds and error policies, parseable
// timeouts, and a static scan of every template span, bare condition, and
// compute expression for references to bindings that are not produced by a
// strictly earlier step.
func (d *Definition) Validate() error {
	var result *multierror.Error

	if d.Name == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	if d.Description == "" {
		result = multierror.Append(result, errors.New("description is required"))
	}
	if len(d.Steps) == 0 {
		result = multierror.Append(result, errors.New("at least one step is required"))
	}

	inputNames := make(map[string]InputSpec, len(d.Inputs))
	for _, in := range d.Inputs {
		if in.Name == "" {
			result = multierror.Append(result, errors.New("input name is required"))
			continue
		}
		if _, reserved := reservedNames[in.Name]; reserved {
			result = multierror.Append(result, errors.Errorf("input %q shadows a reserved name", in.Name))
		}
		if _, dup := inputNames[in.Name]; dup {
			result = multierror.Append(result, errors.Errorf("duplicate input %q", in.Name))
		}
		switch in.Type {
		case "", "any", "string", "number", "boolean", "object", "array":
		default:
			result = multierror.Append(result, errors.Errorf("input %q: unknown type %q", in.Name, in.Type))
		}
		inputNames[in.Name] = in
	}

	stepIDs := make(map[string]struct{}, len(d.Steps))
	bindings := make(map[string]struct{}, len(d.Steps))
	for i, step := range d.Steps {
		if step.ID == "" {
			result = multierror.Append(result, errors.Errorf("step %d: id is required", i))
			continue
		}
		if _, dup := stepIDs[step.ID]; dup {
			result = multierror.Append(result, errors.Errorf("duplicate step id %q", step.ID))
		}
		stepIDs[step.ID] = struct{}{}

		switch step.Kind {
		case StepKindToolCall, StepKindCompute, StepKindSubSkill:
		case "":
			result = multierror.Append(result, errors.Errorf("step %q: kind is required", step.ID))
		default:
			result = multierror.Append(result, errors.Errorf("step %q: unknown kind %q", step.ID, step.Kind))
		}
		if step.Target == "" {
			result = multierror.Append(result, errors.Errorf("step %q: target is required", step.ID))
		}
		switch step.OnError {
		case "", ErrorPolicyAbort, ErrorPolicyContinue:
		default:
			result = multierror.Append(result, errors.Errorf("step %q: unknown on_error policy %q", step.ID, step.OnError))
		}
		if _, err := step.TimeoutDuration(); err != nil {
			result = multierror.Append(result, err)
		}

		binding := step.Binding()
		if _, reserved := reservedNames[binding]; reserved {
			result = multierror.Append(result, errors.Errorf("step %q: binding %q shadows a reserved name", step.ID, binding))
		}
		if _, isInput := inputNames[binding]; isInput {
			result = multierror.Append(result, errors.Errorf("step %q: binding %q collides with an input", step.ID, binding))
		}
		if _, dup := bindings[binding]; dup {
			result = multierror.Append(result, errors.Errorf("step %q: binding %q is already produced by an earlier step", step.ID, binding))
		}

		// Reference scan against bindings of strictly earlier steps only.
		if err := d.checkStepReferences(step, inputNames, bindings); err != nil {
			result = multierror.Append(result, err)
		}

		bindings[binding] = struct{}{}
	}

	for _, out := range d.Outputs {
		if out.Name == "" {
			result = multierror.Append(result, errors.New("output name is required"))
			continue
		}
		if err := d.checkReferences(fmt.Sprintf("output %q", out.Name), out.Value, inputNames, bindings); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		violations := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			violations = append(violations, e.Error())
		}
		return NewValidationError(d.Name, violations...)
	}
	return nil
}

func (d *Definition) checkStepReferences(step StepSpec, inputs map[string]InputSpec, earlier map[string]struct{}) error {
	var result *multierror.Error

	for name, tmpl := range step.Args {
		if err := d.checkReferences(fmt.Sprintf("step %q arg %q", step.ID, name), tmpl, inputs, earlier); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if step.Condition != "" {
		where := fmt.Sprintf("step %q condition", step.ID)
		// Conditions may be bare expressions without the {{ }} wrapper.
		var err error
		if len(TemplateSpans(step.Condition)) == 0 {
			err = d.checkExpression(where, step.Condition, inputs, earlier)
		} else {
			err = d.checkReferences(where, step.Condition, inputs, earlier)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if step.Kind == StepKindCompute {
		if err := d.checkExpression(fmt.Sprintf("step %q compute expression", step.ID), step.Target, inputs, earlier); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// checkExpression statically scans a bare expression, a compute target or an
// unwrapped condition, for references to unavailable bindings.
func (d *Definition) checkExpression(where, code string, inputs map[string]InputSpec, bindings map[string]struct{}) error {
	base, _ := SplitFilters(code)
	idents, err := ExprIdentifiers(base)
	if err != nil {
		return errors.Wrap(err, where)
	}
	var result *multierror.Error
	for _, ident := range idents {
		if err := d.checkIdentifier(where, ident, inputs, bindings); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (d *Definition) checkReferences(where, tmpl string, inputs map[string]InputSpec, bindings map[string]struct{}) error {
	idents, err := templateIdentifiers(tmpl)
	if err != nil {
		return errors.Wrap(err, where)
	}
	var result *multierror.Error
	for _, ident := range idents {
		if err := d.checkIdentifier(where, ident, inputs, bindings); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (d *Definition) checkIdentifier(where, ident string, inputs map[string]InputSpec, bindings map[string]struct{}) error {
	if name, ok := strings.CutPrefix(ident, "steps."); ok {
		if _, produced := bindings[name]; !produced {
			return errors.Errorf("%s references steps.%s but %q is not an earlier step's binding", where, name, name)
		}
		return nil
	}
	if _, reserved := reservedNames[ident]; reserved {
		return nil
	}
	if in, isInput := inputs[ident]; isInput {
		if !in.Required && in.Default == nil {
			return errors.Errorf("%s references optional input %q which has no default", where, ident)
		}
		return nil
	}
	if _, ok := bindings[ident]; ok {
		return nil
	}
	return errors.Errorf("%s references %q which is not an input or an earlier step's binding", where, ident)
}
