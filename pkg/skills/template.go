package skills

import (
	"regexp"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/pkg/errors"
)

// spanRe matches {{ ... }} template spans. The inner expression is
// evaluated with expr-lang; an optional trailing filter chain ("| slug")
// is split off before parsing.
var spanRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// TemplateSpans returns the inner expressions of all {{ }} spans in s, in
// order of appearance.
func TemplateSpans(s string) []string {
	matches := spanRe.FindAllStringSubmatch(s, -1)
	spans := make([]string, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, strings.TrimSpace(m[1]))
	}
	return spans
}

// IsWholeSpan reports whether s consists of exactly one {{ }} span with no
// surrounding text. Whole-span templates resolve to the underlying typed
// value instead of a string.
func IsWholeSpan(s string) bool {
	trimmed := strings.TrimSpace(s)
	loc := spanRe.FindStringIndex(trimmed)
	return loc != nil && loc[0] == 0 && loc[1] == len(trimmed)
}

// SplitFilters splits a span expression into the base expression and its
// filter chain. Filters are separated by single pipes at the top level:
// "fetch_issue.summary | slug" yields ("fetch_issue.summary", ["slug"]).
// Pipes inside string literals, brackets, or the || operator are left alone.
func SplitFilters(span string) (string, []string) {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(span); i++ {
		c := span[i]
		switch {
		case quote != 0:
			if c == quote && (i == 0 || span[i-1] != '\\') {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == '|' && depth == 0:
			if i+1 < len(span) && span[i+1] == '|' {
				i++ // logical or, not a filter pipe
				continue
			}
			parts = append(parts, span[start:i])
			start = i + 1
		}
	}
	parts = append(parts, span[start:])

	base := strings.TrimSpace(parts[0])
	var filters []string
	for _, f := range parts[1:] {
		if f = strings.TrimSpace(f); f != "" {
			filters = append(filters, f)
		}
	}
	return base, filters
}

type identCollector struct {
	idents map[string]struct{}
}

func (c *identCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.idents[n.Value] = struct{}{}
	case *ast.MemberNode:
		root, ok := n.Node.(*ast.IdentifierNode)
		if !ok {
			return
		}
		prop, ok := n.Property.(*ast.StringNode)
		if !ok {
			return
		}
		if root.Value == "steps" {
			c.idents["steps."+prop.Value] = struct{}{}
		}
	}
}

// ExprIdentifiers parses an expression and returns the top-level identifiers
// it references, with member access on the steps namespace reported as
// "steps.<binding>". Used by load-time validation to reject references to
// bindings that are not yet produced.
func ExprIdentifiers(code string) ([]string, error) {
	tree, err := parser.Parse(code)
	if err != nil {
		return nil, errors.Wrapf(err, "parse expression %q", code)
	}
	collector := &identCollector{idents: make(map[string]struct{})}
	ast.Walk(&tree.Node, collector)

	idents := make([]string, 0, len(collector.idents))
	for ident := range collector.idents {
		idents = append(idents, ident)
	}
	return idents, nil
}

// templateIdentifiers collects identifiers referenced by every span in a
// template string, skipping filter names.
func templateIdentifiers(tmpl string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, span := range TemplateSpans(tmpl) {
		base, _ := SplitFilters(span)
		idents, err := ExprIdentifiers(base)
		if err != nil {
			return nil, err
		}
		for _, ident := range idents {
			seen[ident] = struct{}{}
		}
	}
	idents := make([]string, 0, len(seen))
	for ident := range seen {
		idents = append(idents, ident)
	}
	return idents, nil
}
