package engine

import "context"

// Failure describes a classified step failure, handed to remediators so
// they can decide whether it matches their category (expired auth, lost
// connectivity, and so on).
type Failure struct {
	Skill   string
	StepID  string
	Target  string
	Message string
}

// Remediator is a corrective action registered per failure category. When
// a step fails and a remediator applies, the engine invokes Remediate
// exactly once and re-executes the original step exactly once; a second
// failure is final.
type Remediator interface {
	Name() string
	Applies(failure Failure) bool
	Remediate(ctx context.Context) error
}

// remediatorFor returns the first registered remediator that applies.
func (e *Engine) remediatorFor(failure Failure) Remediator {
	for _, r := range e.remediators {
		if r.Applies(failure) {
			return r
		}
	}
	return nil
}
