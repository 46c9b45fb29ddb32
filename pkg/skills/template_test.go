package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateSpans(t *testing.T) {
	spans := TemplateSpans("branch {{ prefix }}/{{ issue_key | slug }} created")
	assert.Equal(t, []string{"prefix", "issue_key | slug"}, spans)

	assert.Empty(t, TemplateSpans("no spans here"))
}

func TestIsWholeSpan(t *testing.T) {
	assert.True(t, IsWholeSpan("{{ fetch_issue.summary }}"))
	assert.True(t, IsWholeSpan("  {{ fetch_issue }}  "))
	assert.False(t, IsWholeSpan("prefix {{ fetch_issue }}"))
	assert.False(t, IsWholeSpan("{{ a }}{{ b }}"))
	assert.False(t, IsWholeSpan("plain text"))
}

func TestSplitFilters(t *testing.T) {
	tests := []struct {
		span    string
		base    string
		filters []string
	}{
		{"fetch_issue.summary", "fetch_issue.summary", nil},
		{"fetch_issue.summary | slug", "fetch_issue.summary", []string{"slug"}},
		{"title | trim | lower", "title", []string{"trim", "lower"}},
		{`a || b`, "a || b", nil},
		{`has(x) || missing | json`, "has(x) || missing", []string{"json"}},
		{`"a|b" | upper`, `"a|b"`, []string{"upper"}},
		{"items[0] | json", "items[0]", []string{"json"}},
	}

	for _, tt := range tests {
		base, filters := SplitFilters(tt.span)
		assert.Equal(t, tt.base, base, tt.span)
		assert.Equal(t, tt.filters, filters, tt.span)
	}
}

func TestExprIdentifiers(t *testing.T) {
	idents, err := ExprIdentifiers("fetch_issue.summary + issue_key")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fetch_issue", "issue_key"}, idents)

	_, err = ExprIdentifiers("not ( valid")
	assert.Error(t, err)
}

func TestExprIdentifiers_StepsNamespace(t *testing.T) {
	idents, err := ExprIdentifiers(`steps.deploy.status == "skipped"`)
	require.NoError(t, err)
	assert.Contains(t, idents, "steps.deploy")

	idents, err = ExprIdentifiers(`steps["deploy"].error`)
	require.NoError(t, err)
	assert.Contains(t, idents, "steps.deploy")
}
