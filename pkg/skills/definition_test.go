package skills

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const branchSkillYAML = `
name: create-feature-branch
description: Create a git branch named after a ticket
version: "1.0"
inputs:
  - name: issue_key
    type: string
    required: true
  - name: prefix
    type: string
    default: feature
steps:
  - id: fetch_issue
    kind: tool_call
    target: jira_get_issue
    args:
      key: "{{ issue_key }}"
  - id: slugify
    kind: compute
    target: fetch_issue.summary | slug
    output: branch_slug
  - id: create_branch
    kind: tool_call
    target: git_create_branch
    args:
      name: "{{ prefix }}/{{ issue_key }}-{{ branch_slug }}"
    timeout: 30s
    on_error: continue
outputs:
  - name: branch
    value_template: "{{ create_branch.branch }}"
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(branchSkillYAML))
	require.NoError(t, err)

	assert.Equal(t, "create-feature-branch", def.Name)
	assert.Len(t, def.Inputs, 2)
	assert.Len(t, def.Steps, 3)
	require.Len(t, def.Outputs, 1)
	assert.Equal(t, "{{ create_branch.branch }}", def.Outputs[0].Value)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("name: [unclosed"))
	assert.Error(t, err)
}

func TestStepSpec_Binding(t *testing.T) {
	assert.Equal(t, "fetch", StepSpec{ID: "fetch"}.Binding())
	assert.Equal(t, "issue", StepSpec{ID: "fetch", Output: "issue"}.Binding())
}

func TestStepSpec_Policy(t *testing.T) {
	assert.Equal(t, ErrorPolicyAbort, StepSpec{ID: "s"}.Policy())
	assert.Equal(t, ErrorPolicyContinue, StepSpec{ID: "s", OnError: ErrorPolicyContinue}.Policy())
}

func TestStepSpec_TimeoutDuration(t *testing.T) {
	d, err := StepSpec{ID: "s", Timeout: "45s"}.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)

	d, err = StepSpec{ID: "s"}.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)

	_, err = StepSpec{ID: "s", Timeout: "soon"}.TimeoutDuration()
	assert.Error(t, err)
}
