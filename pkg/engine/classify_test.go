package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillet-ai/skillet/pkg/tools"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		result      tools.Result
		wantStatus  StepStatus
		wantMessage string
	}{
		{
			name:       "explicit error field",
			result:     tools.Errorf("connection refused"),
			wantStatus: StatusFailure, wantMessage: "connection refused",
		},
		{
			name:       "structured success",
			result:     tools.Ok(map[string]any{"success": true, "branch": "main"}),
			wantStatus: StatusSuccess,
		},
		{
			name:       "structured failure",
			result:     tools.Ok(map[string]any{"success": false, "message": "permission denied"}),
			wantStatus: StatusFailure, wantMessage: "permission denied",
		},
		{
			name:       "structured error string",
			result:     tools.Ok(map[string]any{"error": "not found"}),
			wantStatus: StatusFailure, wantMessage: "not found",
		},
		{
			name:       "structured empty error string",
			result:     tools.Ok(map[string]any{"error": "", "data": 1}),
			wantStatus: StatusSuccess,
		},
		{
			name:       "plain string success",
			result:     tools.Ok("✅ deployed to production"),
			wantStatus: StatusSuccess,
		},
		{
			name:       "plain string with failure marker",
			result:     tools.Ok("❌ failed: timeout waiting for pod"),
			wantStatus: StatusFailure, wantMessage: "❌ failed: timeout waiting for pod",
		},
		{
			name:       "nil value",
			result:     tools.Ok(nil),
			wantStatus: StatusSuccess,
		},
		{
			name:       "number value",
			result:     tools.Ok(42),
			wantStatus: StatusSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := Classify(tt.result)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, message)
			}
		})
	}
}
