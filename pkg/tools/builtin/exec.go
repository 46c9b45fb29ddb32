package builtin

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/tools"
)

var _ tools.Tool = &ExecTool{}

const defaultExecTimeout = 60 * time.Second

// ExecInput defines the input parameters for the exec_command tool.
type ExecInput struct {
	Command string   `json:"command" mapstructure:"command" jsonschema:"description=The executable to run"`
	Args    []string `json:"args,omitempty" mapstructure:"args" jsonschema:"description=Arguments passed to the executable"`
	Timeout string   `json:"timeout,omitempty" mapstructure:"timeout" jsonschema:"description=Optional timeout such as 30s or 5m (default 60s)"`
}

// ExecTool runs a local executable and returns its output as a structured
// value. A non-zero exit code is reported through the success field so the
// engine's classifier can mark the step failed.
type ExecTool struct{}

// Name returns the name of the tool.
func (t *ExecTool) Name() string {
	return "exec_command"
}

// Description returns the description of the tool.
func (t *ExecTool) Description() string {
	return "Run a local command and capture stdout, stderr and the exit code."
}

// GenerateSchema generates the JSON schema for the tool's input parameters.
func (t *ExecTool) GenerateSchema() *jsonschema.Schema {
	return tools.GenerateSchema[ExecInput]()
}

// TracingKVs returns tracing key-value pairs for observability.
func (t *ExecTool) TracingKVs(args map[string]any) []attribute.KeyValue {
	var input ExecInput
	if err := mapstructure.Decode(args, &input); err != nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String("command", input.Command),
		attribute.Int("arg_count", len(input.Args)),
	}
}

// Invoke runs the command and returns its captured output.
func (t *ExecTool) Invoke(ctx context.Context, args map[string]any) tools.Result {
	var input ExecInput
	if err := mapstructure.Decode(args, &input); err != nil {
		return tools.Errorf("invalid exec_command args: %v", err)
	}
	if input.Command == "" {
		return tools.Errorf("command is required")
	}

	timeout := defaultExecTimeout
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return tools.Errorf("invalid timeout %q: %v", input.Timeout, err)
		}
		timeout = d
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, input.Command, input.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return tools.Errorf("run %q: %v", input.Command, err)
		}
	}

	return tools.Ok(map[string]any{
		"success":   exitCode == 0,
		"exit_code": exitCode,
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
	})
}
