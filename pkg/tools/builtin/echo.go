// Package builtin provides a small set of general-purpose tools that ship
// with Skillet. They exist so that skills are runnable out of the box;
// production deployments register their own tools alongside or instead of
// these.
package builtin

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/tools"
)

var _ tools.Tool = &EchoTool{}

// EchoInput defines the input parameters for the echo tool.
type EchoInput struct {
	Text string `json:"text" mapstructure:"text" jsonschema:"description=The text to return unchanged"`
}

// EchoTool returns its input text unchanged. Useful for wiring skill
// smoke tests and for binding a literal value to a step output.
type EchoTool struct{}

// Name returns the name of the tool.
func (t *EchoTool) Name() string {
	return "echo"
}

// Description returns the description of the tool.
func (t *EchoTool) Description() string {
	return "Return the given text unchanged."
}

// GenerateSchema generates the JSON schema for the tool's input parameters.
func (t *EchoTool) GenerateSchema() *jsonschema.Schema {
	return tools.GenerateSchema[EchoInput]()
}

// TracingKVs returns tracing key-value pairs for observability.
func (t *EchoTool) TracingKVs(args map[string]any) []attribute.KeyValue {
	var input EchoInput
	if err := mapstructure.Decode(args, &input); err != nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Int("text_length", len(input.Text)),
	}
}

// Invoke returns the input text as the result value.
func (t *EchoTool) Invoke(_ context.Context, args map[string]any) tools.Result {
	var input EchoInput
	if err := mapstructure.Decode(args, &input); err != nil {
		return tools.Errorf("invalid echo args: %v", err)
	}
	return tools.Ok(input.Text)
}
