package engine

import (
	"fmt"
	"strings"

	"github.com/skillet-ai/skillet/pkg/tools"
)

// FailureSentinel is the marker legacy tools embed in plain-string results
// to signal failure. Scanning for it is lossy when legitimate output
// happens to contain the marker; tools should migrate to the structured
// Result error field, which always wins.
const FailureSentinel = "❌"

// Classify maps a raw tool result to success or failure. It is a pure
// function of the result alone:
//
//   - an explicit Result error -> failure
//   - a structured value with success: false or a non-empty error field -> failure
//   - a plain string containing the failure sentinel -> failure
//   - everything else -> success
func Classify(result tools.Result) (StepStatus, string) {
	if result.IsError() {
		return StatusFailure, result.Error
	}

	switch v := result.Value.(type) {
	case map[string]any:
		if success, ok := v["success"].(bool); ok && !success {
			return StatusFailure, failureMessage(v)
		}
		if errVal, ok := v["error"]; ok {
			if msg, isStr := errVal.(string); isStr && msg != "" {
				return StatusFailure, msg
			}
			if errVal != nil && !isEmptyValue(errVal) {
				return StatusFailure, failureMessage(v)
			}
		}
	case string:
		if strings.Contains(v, FailureSentinel) {
			return StatusFailure, v
		}
	}

	return StatusSuccess, ""
}

func failureMessage(v map[string]any) string {
	for _, key := range []string{"error", "message"} {
		if msg, ok := v[key].(string); ok && msg != "" {
			return msg
		}
	}
	return "tool reported failure"
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case string:
		return val == ""
	case nil:
		return true
	default:
		return fmt.Sprintf("%v", val) == ""
	}
}
