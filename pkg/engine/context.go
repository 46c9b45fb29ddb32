package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ExecutionContext is the per-run state: resolved inputs (read-only for the
// run) and an append-only, write-once map of step results keyed by binding.
// Each run owns its own context; nothing is shared between concurrent runs.
type ExecutionContext struct {
	RunID     string
	Skill     string
	StartedAt time.Time

	inputs  map[string]any
	order   []string
	results map[string]*StepResult
}

// NewExecutionContext creates a fresh context for one run.
func NewExecutionContext(skill string, inputs map[string]any) *ExecutionContext {
	return &ExecutionContext{
		RunID:     uuid.New().String(),
		Skill:     skill,
		StartedAt: time.Now(),
		inputs:    inputs,
		results:   make(map[string]*StepResult),
	}
}

// Bind records a step result under its binding. Bindings are write-once:
// rebinding an existing name is a programming error caught here rather than
// silently overwriting an earlier step's output.
func (c *ExecutionContext) Bind(result *StepResult) error {
	if _, exists := c.results[result.Binding]; exists {
		return errors.Errorf("binding %q already produced", result.Binding)
	}
	c.order = append(c.order, result.Binding)
	c.results[result.Binding] = result
	return nil
}

// Replace swaps a step's own result after a remediation retry. Only an
// existing binding may be replaced, and only with a result for the same step.
func (c *ExecutionContext) Replace(result *StepResult) error {
	existing, ok := c.results[result.Binding]
	if !ok {
		return errors.Errorf("binding %q does not exist", result.Binding)
	}
	if existing.StepID != result.StepID {
		return errors.Errorf("binding %q belongs to step %q, not %q", result.Binding, existing.StepID, result.StepID)
	}
	c.results[result.Binding] = result
	return nil
}

// Result returns the step result bound under the given name.
func (c *ExecutionContext) Result(binding string) (*StepResult, bool) {
	r, ok := c.results[binding]
	return r, ok
}

// Results returns all step results in execution order.
func (c *ExecutionContext) Results() []*StepResult {
	out := make([]*StepResult, 0, len(c.order))
	for _, binding := range c.order {
		out = append(out, c.results[binding])
	}
	return out
}

// Env builds the template namespace for this context: every input exposed
// both at the top level and under "inputs", every produced binding exposed
// as a top-level variable holding its raw value, and a "steps" namespace
// carrying status and error detail per binding so conditions can
// distinguish skipped from failed steps.
func (c *ExecutionContext) Env() map[string]any {
	env := make(map[string]any, len(c.inputs)+len(c.order)+2)

	inputs := make(map[string]any, len(c.inputs))
	for k, v := range c.inputs {
		env[k] = v
		inputs[k] = v
	}
	env["inputs"] = inputs

	steps := make(map[string]any, len(c.order))
	for _, binding := range c.order {
		r := c.results[binding]
		env[binding] = r.Value
		steps[binding] = map[string]any{
			"status": string(r.Status),
			"error":  r.Error,
			"value":  r.Value,
		}
	}
	env["steps"] = steps

	return env
}
