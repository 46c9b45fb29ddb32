package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// StepInvocationError means the invocation mechanism itself failed: an
// unknown tool or skill name, or a sub-skill recursion limit. There is
// nothing interpretable to recover from, so it aborts the run regardless of
// the step's on_error policy.
type StepInvocationError struct {
	StepID string
	Target string
	Err    error
}

func (e *StepInvocationError) Error() string {
	return fmt.Sprintf("step %q: cannot invoke %q: %v", e.StepID, e.Target, e.Err)
}

func (e *StepInvocationError) Unwrap() error {
	return e.Err
}

// IsStepInvocationError reports whether err is a StepInvocationError.
func IsStepInvocationError(err error) bool {
	var sie *StepInvocationError
	return errors.As(err, &sie)
}

// TemplateResolutionError means a template span could not be resolved,
// such as a missing binding or a raising expression. It is handled
// identically to a step Failure, so on_error: continue still applies.
type TemplateResolutionError struct {
	Where string
	Err   error
}

func (e *TemplateResolutionError) Error() string {
	return fmt.Sprintf("template resolution failed in %s: %v", e.Where, e.Err)
}

func (e *TemplateResolutionError) Unwrap() error {
	return e.Err
}

// IsTemplateResolutionError reports whether err is a TemplateResolutionError.
func IsTemplateResolutionError(err error) bool {
	var tre *TemplateResolutionError
	return errors.As(err, &tre)
}
