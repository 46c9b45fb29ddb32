package engine

import "time"

// StepStatus is the classified outcome of one step.
type StepStatus string

const (
	// StatusSuccess means the step ran and its result classified as success.
	StatusSuccess StepStatus = "success"
	// StatusFailure means the step ran and its result classified as failure.
	StatusFailure StepStatus = "failure"
	// StatusSkipped means the step's condition evaluated false and the step
	// never ran. Distinguishable from failure so downstream branches can
	// tell "didn't run" from "ran and failed".
	StatusSkipped StepStatus = "skipped"
)

// StepResult records the outcome of one step. It is created once per step
// and replaced at most once, when a remediation retry re-executes the step.
type StepResult struct {
	StepID   string        `json:"step_id"`
	Binding  string        `json:"binding"`
	Status   StepStatus    `json:"status"`
	Value    any           `json:"value,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Retried  bool          `json:"retried,omitempty"`
}

// RunResult is what a skill run returns: the ordered step trace, the
// rendered outputs, and, when the run aborted, the failing step and its
// message. No step is ever dropped from the trace.
type RunResult struct {
	RunID          string         `json:"run_id"`
	Skill          string         `json:"skill"`
	StartedAt      time.Time      `json:"started_at"`
	Duration       time.Duration  `json:"duration"`
	Steps          []*StepResult  `json:"steps"`
	Outputs        map[string]any `json:"outputs"`
	Aborted        bool           `json:"aborted"`
	FailedStep     string         `json:"failed_step,omitempty"`
	FailureMessage string         `json:"failure_message,omitempty"`
}
