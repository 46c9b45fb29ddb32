package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionContext_BindIsWriteOnce(t *testing.T) {
	ectx := NewExecutionContext("test", nil)

	require.NoError(t, ectx.Bind(&StepResult{StepID: "a", Binding: "a", Status: StatusSuccess}))
	err := ectx.Bind(&StepResult{StepID: "b", Binding: "a", Status: StatusSuccess})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `binding "a" already produced`)
}

func TestExecutionContext_Replace(t *testing.T) {
	ectx := NewExecutionContext("test", nil)
	require.NoError(t, ectx.Bind(&StepResult{StepID: "a", Binding: "a", Status: StatusFailure}))

	// Same step may replace its own result after a remediation retry.
	require.NoError(t, ectx.Replace(&StepResult{StepID: "a", Binding: "a", Status: StatusSuccess, Retried: true}))

	result, ok := ectx.Result("a")
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.True(t, result.Retried)

	// A different step may not.
	err := ectx.Replace(&StepResult{StepID: "b", Binding: "a"})
	assert.Error(t, err)

	// And only existing bindings can be replaced.
	err = ectx.Replace(&StepResult{StepID: "c", Binding: "c"})
	assert.Error(t, err)
}

func TestExecutionContext_ResultsOrdered(t *testing.T) {
	ectx := NewExecutionContext("test", nil)
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, ectx.Bind(&StepResult{StepID: name, Binding: name, Status: StatusSuccess}))
	}

	results := ectx.Results()
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Binding)
	assert.Equal(t, "second", results[1].Binding)
	assert.Equal(t, "third", results[2].Binding)
}

func TestExecutionContext_Env(t *testing.T) {
	ectx := NewExecutionContext("test", map[string]any{"issue_key": "AAP-1"})
	require.NoError(t, ectx.Bind(&StepResult{
		StepID:  "fetch",
		Binding: "fetch",
		Status:  StatusSuccess,
		Value:   map[string]any{"summary": "Fix bug"},
	}))
	require.NoError(t, ectx.Bind(&StepResult{
		StepID:  "deploy",
		Binding: "deploy",
		Status:  StatusSkipped,
	}))

	env := ectx.Env()

	// Inputs are visible both top-level and under "inputs".
	assert.Equal(t, "AAP-1", env["issue_key"])
	assert.Equal(t, "AAP-1", env["inputs"].(map[string]any)["issue_key"])

	// Bindings expose raw values top-level.
	assert.Equal(t, map[string]any{"summary": "Fix bug"}, env["fetch"])

	// The steps namespace carries status detail.
	steps := env["steps"].(map[string]any)
	assert.Equal(t, "success", steps["fetch"].(map[string]any)["status"])
	assert.Equal(t, "skipped", steps["deploy"].(map[string]any)["status"])
}
