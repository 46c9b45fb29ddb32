package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillet-ai/skillet/pkg/engine"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "skillet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(runID, skill string, aborted bool) *engine.RunResult {
	result := &engine.RunResult{
		RunID:     runID,
		Skill:     skill,
		StartedAt: time.Now().Add(-2 * time.Second),
		Duration:  1500 * time.Millisecond,
		Steps: []*engine.StepResult{
			{
				StepID:   "fetch_issue",
				Binding:  "fetch_issue",
				Status:   engine.StatusSuccess,
				Value:    map[string]any{"summary": "Fix Login Bug!"},
				Duration: 400 * time.Millisecond,
			},
			{
				StepID:   "create_branch",
				Binding:  "create_branch",
				Status:   engine.StatusFailure,
				Error:    "permission denied",
				Duration: 100 * time.Millisecond,
				Retried:  true,
			},
		},
		Outputs: map[string]any{"branch": "feature/aap-1-fix-login-bug"},
	}
	if aborted {
		result.Aborted = true
		result.FailedStep = "create_branch"
		result.FailureMessage = "permission denied"
	}
	return result
}

func TestStore_RecordAndGetRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordRun(ctx, sampleResult("run-1", "create-feature-branch", true)))

	record, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "create-feature-branch", record.Skill)
	assert.True(t, record.Aborted)
	assert.Equal(t, "create_branch", record.FailedStep)
	assert.Equal(t, int64(1500), record.DurationMS)

	outputs, err := record.Outputs()
	require.NoError(t, err)
	assert.Equal(t, "feature/aap-1-fix-login-bug", outputs["branch"])

	require.Len(t, record.Steps, 2)
	assert.Equal(t, "fetch_issue", record.Steps[0].StepID)
	assert.Equal(t, "success", record.Steps[0].Status)
	assert.Contains(t, record.Steps[0].ValueJSON, "Fix Login Bug!")
	assert.Equal(t, "failure", record.Steps[1].Status)
	assert.Equal(t, "permission denied", record.Steps[1].Error)
	assert.True(t, record.Steps[1].Retried)
}

func TestStore_GetRun_NotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_ListRuns(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordRun(ctx, sampleResult("run-1", "alpha", false)))
	require.NoError(t, store.RecordRun(ctx, sampleResult("run-2", "beta", false)))
	require.NoError(t, store.RecordRun(ctx, sampleResult("run-3", "alpha", true)))

	records, err := store.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	// Listing does not load step traces.
	assert.Empty(t, records[0].Steps)

	records, err = store.ListRuns(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "alpha", r.Skill)
	}

	records, err = store.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStore_RecordRun_DuplicateRunID(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordRun(ctx, sampleResult("run-1", "alpha", false)))
	err := store.RecordRun(ctx, sampleResult("run-1", "alpha", false))
	assert.Error(t, err)
}
