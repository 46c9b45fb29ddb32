// Package skills defines declarative skill definitions: multi-step
// automation workflows that chain named tools, inline computations and
// nested skills. Definitions are parsed from YAML, validated structurally
// before any execution, and cached in an immutable catalog.
package skills

import (
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StepKind distinguishes the three ways a step can be executed.
type StepKind string

const (
	// StepKindToolCall dispatches the step to a named tool in the registry.
	StepKindToolCall StepKind = "tool_call"
	// StepKindCompute evaluates a restricted inline expression.
	StepKindCompute StepKind = "compute"
	// StepKindSubSkill runs another skill as a nested sub-run.
	StepKindSubSkill StepKind = "sub_skill"
)

// ErrorPolicy controls what happens when a step fails.
type ErrorPolicy string

const (
	// ErrorPolicyAbort stops the run at the failing step (the default).
	ErrorPolicyAbort ErrorPolicy = "abort"
	// ErrorPolicyContinue records the failure and proceeds to the next step.
	ErrorPolicyContinue ErrorPolicy = "continue"
)

// Definition is an immutable skill definition. Once loaded and validated it
// is never mutated; the catalog hands out shared pointers.
type Definition struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description"`
	Version     string       `yaml:"version" json:"version,omitempty"`
	Inputs      []InputSpec  `yaml:"inputs" json:"inputs,omitempty"`
	Steps       []StepSpec   `yaml:"steps" json:"steps"`
	Outputs     []OutputSpec `yaml:"outputs" json:"outputs,omitempty"`
}

// InputSpec declares one run input.
type InputSpec struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
	Required    bool   `yaml:"required" json:"required,omitempty"`
	Default     any    `yaml:"default" json:"default,omitempty"`
}

// StepSpec declares one unit of work within a skill.
type StepSpec struct {
	ID        string            `yaml:"id" json:"id"`
	Kind      StepKind          `yaml:"kind" json:"kind"`
	Target    string            `yaml:"target" json:"target"`
	Args      map[string]string `yaml:"args" json:"args,omitempty"`
	Condition string            `yaml:"condition" json:"condition,omitempty"`
	Output    string            `yaml:"output" json:"output,omitempty"`
	OnError   ErrorPolicy       `yaml:"on_error" json:"on_error,omitempty"`
	Timeout   string            `yaml:"timeout" json:"timeout,omitempty"`
}

// OutputSpec declares one named output template rendered from the final
// execution context.
type OutputSpec struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value_template" json:"value_template"`
}

// Binding returns the name under which the step's result is exposed to
// later steps. It defaults to the step ID when no explicit output binding
// is declared.
func (s StepSpec) Binding() string {
	if s.Output != "" {
		return s.Output
	}
	return s.ID
}

// Policy returns the step's effective error policy.
func (s StepSpec) Policy() ErrorPolicy {
	if s.OnError == "" {
		return ErrorPolicyAbort
	}
	return s.OnError
}

// TimeoutDuration parses the step's timeout override. A zero duration means
// no step-level override.
func (s StepSpec) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "step %q: invalid timeout %q", s.ID, s.Timeout)
	}
	return d, nil
}

// Parse unmarshals a skill definition from YAML and validates it. It never
// returns a partially valid definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Wrap(err, "parse skill definition")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
