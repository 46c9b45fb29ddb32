package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillet-ai/skillet/pkg/tools"
)

func TestRegisterAll(t *testing.T) {
	registry, err := tools.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, RegisterAll(registry))

	assert.Equal(t, []string{"echo", "exec_command", "http_request"}, registry.Names())
}

func TestEchoTool(t *testing.T) {
	tool := &EchoTool{}

	result := tool.Invoke(context.Background(), map[string]any{"text": "hello"})
	require.False(t, result.IsError())
	assert.Equal(t, "hello", result.Value)

	assert.NotNil(t, tool.GenerateSchema())
}

func TestExecTool(t *testing.T) {
	tool := &ExecTool{}

	result := tool.Invoke(context.Background(), map[string]any{
		"command": "sh",
		"args":    []string{"-c", "echo out; echo err >&2"},
	})
	require.False(t, result.IsError())

	value := result.Value.(map[string]any)
	assert.Equal(t, true, value["success"])
	assert.Equal(t, 0, value["exit_code"])
	assert.Equal(t, "out\n", value["stdout"])
	assert.Equal(t, "err\n", value["stderr"])
}

func TestExecTool_NonZeroExit(t *testing.T) {
	tool := &ExecTool{}

	result := tool.Invoke(context.Background(), map[string]any{
		"command": "sh",
		"args":    []string{"-c", "exit 3"},
	})
	require.False(t, result.IsError())

	value := result.Value.(map[string]any)
	assert.Equal(t, false, value["success"])
	assert.Equal(t, 3, value["exit_code"])
}

func TestExecTool_MissingCommand(t *testing.T) {
	tool := &ExecTool{}

	result := tool.Invoke(context.Background(), map[string]any{})
	require.True(t, result.IsError())
	assert.Contains(t, result.Error, "command is required")
}

func TestHTTPRequestTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "method": r.Method})
	}))
	defer server.Close()

	tool := NewHTTPRequestTool()
	result := tool.Invoke(context.Background(), map[string]any{"url": server.URL})
	require.False(t, result.IsError())

	value := result.Value.(map[string]any)
	assert.Equal(t, true, value["success"])
	assert.Equal(t, 200, value["status"])

	body := value["body"].(map[string]any)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "GET", body["method"])
}

func TestHTTPRequestTool_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	tool := NewHTTPRequestTool()
	result := tool.Invoke(context.Background(), map[string]any{"url": server.URL})
	require.False(t, result.IsError())

	value := result.Value.(map[string]any)
	assert.Equal(t, false, value["success"])
	assert.Equal(t, 403, value["status"])
}

func TestHTTPRequestTool_MissingURL(t *testing.T) {
	tool := NewHTTPRequestTool()
	result := tool.Invoke(context.Background(), map[string]any{})
	require.True(t, result.IsError())
	assert.Contains(t, result.Error, "url is required")
}
