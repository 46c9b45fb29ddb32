// Package tools defines the tool registry boundary consumed by the skill
// execution engine. Tools are external operations invoked by name; the
// engine treats them as black boxes and only interprets the Result they
// return.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// Result is the outcome of a tool invocation at the registry boundary.
// Either Value is set (success) or Error carries a failure message.
// Legacy tools that signal failure inside a plain string value are handled
// by the engine's classifier, not here.
type Result struct {
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Ok returns a successful Result carrying the given value.
func Ok(value any) Result {
	return Result{Value: value}
}

// Errorf returns a failed Result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// IsError reports whether the result carries an explicit failure.
func (r Result) IsError() bool {
	return r.Error != ""
}

// Tool is a single named operation that can be invoked by the engine.
type Tool interface {
	Name() string
	Description() string
	GenerateSchema() *jsonschema.Schema
	Invoke(ctx context.Context, args map[string]any) Result
	TracingKVs(args map[string]any) []attribute.KeyValue
}

// Registry resolves tool names to tools and invokes them. Implementations
// must be safe for concurrent use; the engine shares one registry across
// runs.
type Registry interface {
	// Invoke runs the named tool. A non-nil error means the invocation
	// mechanism itself failed (unknown tool, tool not permitted); it is
	// distinct from a tool returning a failed Result.
	Invoke(ctx context.Context, name string, args map[string]any) (Result, error)
	// Get returns the named tool, if registered.
	Get(name string) (Tool, bool)
	// Names returns the sorted names of all registered tools.
	Names() []string
}
