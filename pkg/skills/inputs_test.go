package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputsDefinition() *Definition {
	return &Definition{
		Name:        "test-skill",
		Description: "a test skill",
		Inputs: []InputSpec{
			{Name: "issue_key", Type: "string", Required: true},
			{Name: "prefix", Type: "string", Default: "feature"},
			{Name: "dry_run", Type: "boolean", Default: false},
		},
		Steps: []StepSpec{
			{ID: "noop", Kind: StepKindCompute, Target: "1"},
		},
	}
}

func TestResolveInputs_AppliesDefaults(t *testing.T) {
	def := inputsDefinition()

	resolved, err := def.ResolveInputs(map[string]any{"issue_key": "AAP-1"})
	require.NoError(t, err)

	assert.Equal(t, "AAP-1", resolved["issue_key"])
	assert.Equal(t, "feature", resolved["prefix"])
	assert.Equal(t, false, resolved["dry_run"])
}

func TestResolveInputs_OverridesDefaults(t *testing.T) {
	def := inputsDefinition()

	resolved, err := def.ResolveInputs(map[string]any{
		"issue_key": "AAP-1",
		"prefix":    "bugfix",
	})
	require.NoError(t, err)
	assert.Equal(t, "bugfix", resolved["prefix"])
}

func TestResolveInputs_MissingRequired(t *testing.T) {
	def := inputsDefinition()

	_, err := def.ResolveInputs(nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), `required input "issue_key" not provided`)
}

func TestResolveInputs_WrongType(t *testing.T) {
	def := inputsDefinition()

	_, err := def.ResolveInputs(map[string]any{"issue_key": 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected string")

	_, err = def.ResolveInputs(map[string]any{"issue_key": "AAP-1", "dry_run": "yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected boolean")
}

func TestResolveInputs_UnknownInput(t *testing.T) {
	def := inputsDefinition()

	_, err := def.ResolveInputs(map[string]any{"issue_key": "AAP-1", "bogus": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown input "bogus"`)
}

func TestResolveInputs_NumberTypes(t *testing.T) {
	def := &Definition{
		Name:        "numbers",
		Description: "number input handling",
		Inputs:      []InputSpec{{Name: "count", Type: "number", Required: true}},
		Steps:       []StepSpec{{ID: "noop", Kind: StepKindCompute, Target: "1"}},
	}

	for _, value := range []any{3, int64(3), 3.5} {
		resolved, err := def.ResolveInputs(map[string]any{"count": value})
		require.NoError(t, err)
		assert.Equal(t, value, resolved["count"])
	}
}
