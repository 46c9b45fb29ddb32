package engine

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// filters are the named transformations available after a pipe in a
// template span, e.g. {{ fetch_issue.summary | slug }}.
var filters = map[string]func(any) (any, error){
	"json":  filterJSON,
	"slug":  filterSlug,
	"upper": filterUpper,
	"lower": filterLower,
	"trim":  filterTrim,
	"join":  filterJoin,
}

func applyFilter(name string, value any) (any, error) {
	fn, ok := filters[name]
	if !ok {
		return nil, errors.Errorf("unknown filter %q", name)
	}
	return fn(value)
}

func filterJSON(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "json filter")
	}
	return string(data), nil
}

// filterSlug lowercases the value and collapses every run of
// non-alphanumeric characters into a single dash: "Fix bug" -> "fix-bug".
func filterSlug(value any) (any, error) {
	s := stringify(value)
	var sb strings.Builder
	lastDash := true // trim leading dashes
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			sb.WriteRune('-')
			lastDash = true
		}
	}
	return strings.TrimRight(sb.String(), "-"), nil
}

func filterUpper(value any) (any, error) {
	return strings.ToUpper(stringify(value)), nil
}

func filterLower(value any) (any, error) {
	return strings.ToLower(stringify(value)), nil
}

func filterTrim(value any) (any, error) {
	return strings.TrimSpace(stringify(value)), nil
}

// filterJoin joins the elements of a list with ", ", stringifying each
// element the same way interpolation does.
func filterJoin(value any) (any, error) {
	var items []string
	switch v := value.(type) {
	case []string:
		items = v
	case []any:
		for _, item := range v {
			items = append(items, stringify(item))
		}
	default:
		return nil, errors.Errorf("join filter: expected a list, got %T", value)
	}
	return strings.Join(items, ", "), nil
}

// Filters returns the names of all available filters, for documentation
// and error messages.
func Filters() []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	return names
}
