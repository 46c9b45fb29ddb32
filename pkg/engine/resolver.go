package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/skills"
)

// Resolver substitutes {{ expr }} spans against a run's namespace. Spans
// are evaluated with expr-lang, which is sandboxed by construction: no
// filesystem, network, or process access, only the values in the
// environment and a fixed filter set.
type Resolver struct {
	env map[string]any
}

// NewResolver creates a resolver over the given namespace.
func NewResolver(env map[string]any) *Resolver {
	return &Resolver{env: env}
}

// Eval evaluates a single span expression (without the surrounding braces),
// applying any trailing filters left to right.
func (r *Resolver) Eval(span string) (any, error) {
	base, filters := skills.SplitFilters(span)

	program, err := expr.Compile(base, expr.Env(r.env))
	if err != nil {
		return nil, errors.Wrapf(err, "compile %q", base)
	}
	value, err := expr.Run(program, r.env)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %q", base)
	}

	for _, filter := range filters {
		value, err = applyFilter(filter, value)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

// ResolveString substitutes every {{ }} span in tmpl and returns the
// resulting string. Non-string span values are stringified (scalars via
// fmt, structured values as JSON).
func (r *Resolver) ResolveString(tmpl string) (string, error) {
	var firstErr error
	resolved := spanReplace(tmpl, func(span string) (string, bool) {
		value, err := r.Eval(span)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return "", false
		}
		return stringify(value), true
	})
	if firstErr != nil {
		return "", firstErr
	}
	return resolved, nil
}

// ResolveValue resolves a template to a typed value: a whole-string span
// like "{{ step.obj }}" yields the underlying value itself, anything else
// resolves as a string.
func (r *Resolver) ResolveValue(tmpl string) (any, error) {
	if skills.IsWholeSpan(tmpl) {
		spans := skills.TemplateSpans(tmpl)
		return r.Eval(spans[0])
	}
	return r.ResolveString(tmpl)
}

// ResolveArgs resolves a step's argument templates into typed values.
func (r *Resolver) ResolveArgs(args map[string]string) (map[string]any, error) {
	resolved := make(map[string]any, len(args))
	for name, tmpl := range args {
		value, err := r.ResolveValue(tmpl)
		if err != nil {
			return nil, errors.Wrapf(err, "arg %q", name)
		}
		resolved[name] = value
	}
	return resolved, nil
}

// spanReplace rewrites every {{ }} span via fn; fn returning false leaves
// the span in place.
func spanReplace(tmpl string, fn func(span string) (string, bool)) string {
	var sb strings.Builder
	rest := tmpl
	for {
		loc := spanLocation(rest)
		if loc == nil {
			sb.WriteString(rest)
			return sb.String()
		}
		sb.WriteString(rest[:loc[0]])
		span := strings.TrimSpace(rest[loc[0]+2 : loc[1]-2])
		if replacement, ok := fn(span); ok {
			sb.WriteString(replacement)
		} else {
			sb.WriteString(rest[loc[0]:loc[1]])
		}
		rest = rest[loc[1]:]
	}
}

func spanLocation(s string) []int {
	start := strings.Index(s, "{{")
	if start < 0 {
		return nil
	}
	end := strings.Index(s[start:], "}}")
	if end < 0 {
		return nil
	}
	return []int{start, start + end + 2}
}

// stringify renders a resolved value for interpolation into a larger
// string: strings pass through, nil becomes empty, structured values are
// rendered as JSON.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool, int, int64, uint64, float32:
		return fmt.Sprintf("%v", v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
