package builtin

import "github.com/skillet-ai/skillet/pkg/tools"

// RegisterAll registers every built-in tool on the given registry.
func RegisterAll(r *tools.InMemoryRegistry) error {
	for _, t := range []tools.Tool{
		&EchoTool{},
		&ExecTool{},
		NewHTTPRequestTool(),
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
