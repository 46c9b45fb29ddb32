package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/logger"
)

// ErrUnknownTool is returned by Invoke when no tool with the requested name
// is registered. The engine treats this as fatal for the whole run.
var ErrUnknownTool = errors.New("unknown tool")

// ErrToolNotPermitted is returned when a tool exists but is excluded by the
// registry's allowlist.
var ErrToolNotPermitted = errors.New("tool not permitted")

// InMemoryRegistry is the default Registry implementation. Tools are
// registered at startup; after that the registry is effectively immutable
// and safe to share between concurrent skill runs.
type InMemoryRegistry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	allowList []glob.Glob
}

// RegistryOption configures an InMemoryRegistry.
type RegistryOption func(*InMemoryRegistry) error

// WithAllowList restricts invocable tools to those matching at least one of
// the given glob patterns (e.g. "jira_*", "git_*").
func WithAllowList(patterns ...string) RegistryOption {
	return func(r *InMemoryRegistry) error {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return errors.Wrapf(err, "invalid allowlist pattern %q", p)
			}
			r.allowList = append(r.allowList, g)
		}
		return nil
	}
}

// NewRegistry creates an InMemoryRegistry with the given options.
func NewRegistry(opts ...RegistryOption) (*InMemoryRegistry, error) {
	r := &InMemoryRegistry{tools: make(map[string]Tool)}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the registry. Registering a duplicate name is an
// error so that two tools can never shadow each other silently.
func (r *InMemoryRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return errors.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns the named tool, if registered.
func (r *InMemoryRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the sorted names of all registered tools.
func (r *InMemoryRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named tool with the given args.
func (r *InMemoryRegistry) Invoke(ctx context.Context, name string, args map[string]any) (Result, error) {
	tool, ok := r.Get(name)
	if !ok {
		return Result{}, errors.Wrapf(ErrUnknownTool, "%q", name)
	}
	if !r.permitted(name) {
		return Result{}, errors.Wrapf(ErrToolNotPermitted, "%q", name)
	}

	logger.G(ctx).WithField("tool", name).Debug("invoking tool")
	return tool.Invoke(ctx, args), nil
}

func (r *InMemoryRegistry) permitted(name string) bool {
	if len(r.allowList) == 0 {
		return true
	}
	for _, g := range r.allowList {
		if g.Match(name) {
			return true
		}
	}
	return false
}
