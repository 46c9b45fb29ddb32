// Package engine implements the skill execution engine: a small
// interpreter that loads a declarative step graph from the catalog,
// resolves templated references between steps, evaluates guard conditions,
// dispatches each step to a named tool, an inline computation or a nested
// skill, classifies raw results, and drives a bounded
// retry-after-remediation loop.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/skills"
	"github.com/skillet-ai/skillet/pkg/telemetry"
	"github.com/skillet-ai/skillet/pkg/tools"
)

const (
	// DefaultMaxDepth bounds sub-skill nesting to guard against accidental
	// recursion between skills.
	DefaultMaxDepth = 5
	// remediationAttempts is the dispatch budget per step: the original
	// execution plus exactly one retry after remediation.
	remediationAttempts = 2
)

// RunRecorder persists finished runs. The engine treats persistence as an
// external concern; a nil recorder disables it.
type RunRecorder interface {
	RecordRun(ctx context.Context, result *RunResult) error
}

// Engine executes skills from a catalog against a tool registry. It is
// safe for concurrent use: each run owns its own ExecutionContext, and the
// catalog and registry are effectively immutable after startup.
type Engine struct {
	catalog        *skills.Catalog
	registry       tools.Registry
	remediators    []Remediator
	recorder       RunRecorder
	defaultTimeout time.Duration
	maxDepth       int
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultTimeout sets the per-step timeout applied when a step has no
// timeout override. Zero means no timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Engine) { e.defaultTimeout = d }
}

// WithRemediators registers remediation hooks, consulted in order.
func WithRemediators(remediators ...Remediator) Option {
	return func(e *Engine) { e.remediators = append(e.remediators, remediators...) }
}

// WithRecorder sets the run recorder.
func WithRecorder(recorder RunRecorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithMaxDepth overrides the sub-skill nesting limit.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) { e.maxDepth = depth }
}

// New creates an engine over the given catalog and registry.
func New(catalog *skills.Catalog, registry tools.Registry, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		registry: registry,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the named skill with the given inputs. Inputs are validated
// against the skill's input specs before a single step executes. The
// returned RunResult always carries the ordered trace of completed steps;
// an abort is reported inside the result, not as an error. The error
// return is reserved for pre-execution failures (unknown skill, invalid
// inputs) and fatal invocation errors.
func (e *Engine) Run(ctx context.Context, name string, inputs map[string]any) (*RunResult, error) {
	def, ok := e.catalog.Get(name)
	if !ok {
		return nil, skills.NewValidationError(name, "skill not found in catalog")
	}
	resolved, err := def.ResolveInputs(inputs)
	if err != nil {
		return nil, err
	}

	result, err := e.run(ctx, def, resolved, 0)
	if result != nil && e.recorder != nil {
		if recErr := e.recorder.RecordRun(ctx, result); recErr != nil {
			logger.G(ctx).WithError(recErr).Warn("failed to record run")
		}
	}
	return result, err
}

// run drives one (possibly nested) skill run: steps execute strictly
// sequentially so that later templates see a deterministic context, and
// cancellation is honored only between steps.
func (e *Engine) run(ctx context.Context, def *skills.Definition, inputs map[string]any, depth int) (*RunResult, error) {
	ectx := NewExecutionContext(def.Name, inputs)
	log := logger.G(ctx).WithField("skill", def.Name).WithField("run_id", ectx.RunID)
	ctx = logger.WithLogger(ctx, log)

	tracer := telemetry.Tracer("")
	ctx, span := tracer.Start(ctx, "skill.run")
	span.SetAttributes(
		attribute.String("skill.name", def.Name),
		attribute.String("skill.run_id", ectx.RunID),
		attribute.Int("skill.depth", depth),
	)
	defer span.End()

	result := &RunResult{
		RunID:     ectx.RunID,
		Skill:     def.Name,
		StartedAt: ectx.StartedAt,
	}
	log.WithField("steps", len(def.Steps)).Info("starting skill run")

	var fatal error
	for _, step := range def.Steps {
		// Cancellation is only honored between steps; a cancelled run
		// returns whatever results were already produced.
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Aborted = true
			result.FailureMessage = ctxErr.Error()
			break
		}

		stepResult, err := e.executeStep(ctx, ectx, def, step, depth)
		if err != nil {
			// Invocation mechanism failure: fatal regardless of on_error.
			result.Aborted = true
			result.FailedStep = step.ID
			result.FailureMessage = err.Error()
			fatal = err
			break
		}

		if stepResult.Status == StatusFailure && step.Policy() == skills.ErrorPolicyAbort {
			log.WithField("step", step.ID).WithField("error", stepResult.Error).Warn("step failed, aborting run")
			result.Aborted = true
			result.FailedStep = step.ID
			result.FailureMessage = stepResult.Error
			break
		}
	}

	result.Steps = ectx.Results()
	// The composer renders even after an abort so partial results remain
	// inspectable.
	result.Outputs = e.composeOutputs(ctx, def, ectx)
	result.Duration = time.Since(ectx.StartedAt)

	if result.Aborted {
		span.SetStatus(codes.Error, result.FailureMessage)
		log.WithField("failed_step", result.FailedStep).Info("skill run aborted")
	} else {
		span.SetStatus(codes.Ok, "")
		log.WithField("duration", result.Duration).Info("skill run completed")
	}
	return result, fatal
}

// executeStep runs one step end to end: condition guard, dispatch with the
// remediation-retry protocol, outcome classification, and binding the
// result into the execution context. The returned error is only non-nil
// for fatal invocation failures.
func (e *Engine) executeStep(ctx context.Context, ectx *ExecutionContext, def *skills.Definition, step skills.StepSpec, depth int) (*StepResult, error) {
	log := logger.G(ctx).WithField("step", step.ID)
	start := time.Now()

	ctx, span := telemetry.Tracer("").Start(ctx, "skill.step")
	span.SetAttributes(
		attribute.String("step.id", step.ID),
		attribute.String("step.kind", string(step.Kind)),
	)
	defer span.End()

	resolver := NewResolver(ectx.Env())

	if step.Condition != "" && !e.evalCondition(ctx, resolver, step.Condition) {
		log.Debug("condition false, skipping step")
		skipped := &StepResult{
			StepID:   step.ID,
			Binding:  step.Binding(),
			Status:   StatusSkipped,
			Duration: time.Since(start),
		}
		if err := ectx.Bind(skipped); err != nil {
			return nil, errors.Wrapf(err, "step %q", step.ID)
		}
		return skipped, nil
	}

	var (
		raw     tools.Result
		fatal   error
		retried bool
	)
	var remediator Remediator

	attempt := func() error {
		if fatal != nil {
			return nil
		}
		// Re-resolve on retry: remediation may have refreshed state that
		// templates do not see, but the original step re-executes with
		// its original semantics.
		res, err := e.dispatch(ctx, NewResolver(ectx.Env()), step, depth)
		if err != nil {
			fatal = err
			return nil
		}
		raw = res
		if status, message := Classify(res); status == StatusFailure {
			return errors.New(message)
		}
		return nil
	}

	// The retry error is ignored: the step's final status comes from
	// classifying the last raw result below.
	_ = retry.Do(attempt,
		retry.Attempts(remediationAttempts),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			if fatal != nil {
				return false
			}
			remediator = e.remediatorFor(Failure{
				Skill:   def.Name,
				StepID:  step.ID,
				Target:  step.Target,
				Message: err.Error(),
			})
			return remediator != nil
		}),
		retry.OnRetry(func(_ uint, err error) {
			retried = true
			// The failed attempt is bound so the retry can replace it
			// under the same name.
			if bindErr := ectx.Bind(&StepResult{
				StepID:   step.ID,
				Binding:  step.Binding(),
				Status:   StatusFailure,
				Value:    raw.Value,
				Error:    err.Error(),
				Duration: time.Since(start),
			}); bindErr != nil {
				fatal = errors.Wrapf(bindErr, "step %q", step.ID)
				return
			}
			log.WithError(err).WithField("remediator", remediator.Name()).Info("remediating failed step before retry")
			if remErr := remediator.Remediate(ctx); remErr != nil {
				log.WithError(remErr).Warn("remediation action failed")
			}
		}),
	)

	if fatal != nil {
		return nil, fatal
	}

	status, message := Classify(raw)
	result := &StepResult{
		StepID:   step.ID,
		Binding:  step.Binding(),
		Status:   status,
		Value:    raw.Value,
		Error:    message,
		Duration: time.Since(start),
		Retried:  retried,
	}

	var bindErr error
	if retried {
		bindErr = ectx.Replace(result)
	} else {
		bindErr = ectx.Bind(result)
	}
	if bindErr != nil {
		return nil, errors.Wrapf(bindErr, "step %q", step.ID)
	}

	if status == StatusFailure {
		span.SetStatus(codes.Error, message)
		log.WithField("error", message).Debug("step classified as failure")
	} else {
		log.WithField("duration", result.Duration).Debug("step completed")
	}
	return result, nil
}

// dispatch routes a step to its executor by kind.
func (e *Engine) dispatch(ctx context.Context, resolver *Resolver, step skills.StepSpec, depth int) (tools.Result, error) {
	switch step.Kind {
	case skills.StepKindToolCall:
		return e.dispatchToolCall(ctx, resolver, step)
	case skills.StepKindCompute:
		return e.dispatchCompute(resolver, step), nil
	case skills.StepKindSubSkill:
		return e.dispatchSubSkill(ctx, resolver, step, depth)
	default:
		// Unreachable for validated definitions.
		return tools.Result{}, &StepInvocationError{StepID: step.ID, Target: step.Target, Err: errors.Errorf("unknown step kind %q", step.Kind)}
	}
}

func (e *Engine) dispatchToolCall(ctx context.Context, resolver *Resolver, step skills.StepSpec) (tools.Result, error) {
	args, err := resolver.ResolveArgs(step.Args)
	if err != nil {
		// Resolution failure surfaces as the step's failure, not a crash.
		tre := &TemplateResolutionError{Where: "step " + step.ID, Err: err}
		return tools.Result{Error: tre.Error()}, nil
	}

	timeout, err := e.stepTimeout(step)
	if err != nil {
		return tools.Result{Error: err.Error()}, nil
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if tool, ok := e.registry.Get(step.Target); ok {
		telemetry.AddEvent(ctx, "tool.invoke", tool.TracingKVs(args)...)
	}

	result, err := e.registry.Invoke(callCtx, step.Target, args)
	if err != nil {
		return tools.Result{}, &StepInvocationError{StepID: step.ID, Target: step.Target, Err: err}
	}
	if callCtx.Err() == context.DeadlineExceeded {
		// A timeout is surfaced through the normal classifier path.
		return tools.Errorf("tool %q timed out after %s", step.Target, timeout), nil
	}
	return result, nil
}

func (e *Engine) dispatchCompute(resolver *Resolver, step skills.StepSpec) tools.Result {
	value, err := resolver.Eval(step.Target)
	if err != nil {
		tre := &TemplateResolutionError{Where: "step " + step.ID, Err: err}
		return tools.Result{Error: tre.Error()}
	}
	return tools.Ok(value)
}

func (e *Engine) dispatchSubSkill(ctx context.Context, resolver *Resolver, step skills.StepSpec, depth int) (tools.Result, error) {
	if depth+1 > e.maxDepth {
		return tools.Result{}, &StepInvocationError{
			StepID: step.ID,
			Target: step.Target,
			Err:    errors.Errorf("sub-skill nesting depth %d exceeds maximum %d", depth+1, e.maxDepth),
		}
	}
	def, ok := e.catalog.Get(step.Target)
	if !ok {
		return tools.Result{}, &StepInvocationError{StepID: step.ID, Target: step.Target, Err: errors.New("skill not found in catalog")}
	}

	args, err := resolver.ResolveArgs(step.Args)
	if err != nil {
		tre := &TemplateResolutionError{Where: "step " + step.ID, Err: err}
		return tools.Result{Error: tre.Error()}, nil
	}
	inputs, err := def.ResolveInputs(args)
	if err != nil {
		return tools.Errorf("sub-skill %q: %v", step.Target, err), nil
	}

	// The sub-run is fully synchronous and folds into this single binding;
	// its internal step list never leaks into the parent.
	sub, err := e.run(ctx, def, inputs, depth+1)
	if err != nil {
		if IsStepInvocationError(err) {
			return tools.Result{}, err
		}
		return tools.Errorf("sub-skill %q: %v", step.Target, err), nil
	}

	folded := map[string]any{
		"success": !sub.Aborted,
		"run_id":  sub.RunID,
		"outputs": sub.Outputs,
	}
	if sub.Aborted {
		folded["error"] = sub.FailureMessage
	}
	return tools.Ok(folded), nil
}

func (e *Engine) stepTimeout(step skills.StepSpec) (time.Duration, error) {
	if override, err := step.TimeoutDuration(); err != nil {
		return 0, err
	} else if override > 0 {
		return override, nil
	}
	return e.defaultTimeout, nil
}

// evalCondition decides whether a step executes. Evaluation errors are
// fail-safe: the step is skipped with a warning, never aborting an
// otherwise-healthy run.
func (e *Engine) evalCondition(ctx context.Context, resolver *Resolver, condition string) bool {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true
	}

	var value any
	var err error
	if len(skills.TemplateSpans(condition)) > 0 {
		value, err = resolver.ResolveValue(condition)
	} else {
		value, err = resolver.Eval(condition)
	}
	if err != nil {
		logger.G(ctx).WithError(err).WithField("condition", condition).Warn("condition evaluation failed, treating as false")
		return false
	}
	return truthy(value)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "false" && v != "0"
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}

// composeOutputs renders the skill's declared output templates against the
// final context. A template that fails to resolve is logged and omitted so
// the remaining outputs still render.
func (e *Engine) composeOutputs(ctx context.Context, def *skills.Definition, ectx *ExecutionContext) map[string]any {
	if len(def.Outputs) == 0 {
		return nil
	}
	resolver := NewResolver(ectx.Env())
	outputs := make(map[string]any, len(def.Outputs))
	for _, spec := range def.Outputs {
		value, err := resolver.ResolveValue(spec.Value)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("output", spec.Name).Warn("output template failed to resolve")
			continue
		}
		outputs[spec.Name] = value
	}
	return outputs
}
