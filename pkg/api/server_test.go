package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/engine"
	"github.com/skillet-ai/skillet/pkg/skills"
	"github.com/skillet-ai/skillet/pkg/tools"
)

const echoSkillYAML = `
name: shout
description: uppercases a message
inputs:
  - name: message
    type: string
    required: true
steps:
  - id: upper
    kind: compute
    target: message | upper
outputs:
  - name: result
    value_template: "{{ upper }}"
`

const failingSkillYAML = `
name: always-fails
description: fails at its only step
steps:
  - id: boom
    kind: tool_call
    target: boom
`

type boomTool struct{}

func (boomTool) Name() string                                   { return "boom" }
func (boomTool) Description() string                            { return "always fails" }
func (boomTool) GenerateSchema() *jsonschema.Schema             { return &jsonschema.Schema{} }
func (boomTool) TracingKVs(map[string]any) []attribute.KeyValue { return nil }
func (boomTool) Invoke(context.Context, map[string]any) tools.Result {
	return tools.Errorf("kaboom")
}

func testServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shout.yaml"), []byte(echoSkillYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fails.yaml"), []byte(failingSkillYAML), 0o644))

	catalog, err := skills.NewCatalog(skills.WithDirs(dir))
	require.NoError(t, err)

	registry, err := tools.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, registry.Register(boomTool{}))

	eng := engine.New(catalog, registry)

	server, err := NewServer(&ServerConfig{Port: 8391}, eng, catalog, nil)
	require.NoError(t, err)
	return server
}

func TestServer_Healthz(t *testing.T) {
	server := testServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["skills"])
}

func TestServer_ListSkills(t *testing.T) {
	server := testServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/skills", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Skills []skillSummary `json:"skills"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Skills, 2)
	assert.Equal(t, "always-fails", body.Skills[0].Name)
	assert.Equal(t, "shout", body.Skills[1].Name)
}

func TestServer_GetSkill(t *testing.T) {
	server := testServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/skills/shout", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/skills/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RunSkill(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("POST", "/api/skills/shout/run",
		strings.NewReader(`{"inputs": {"message": "hello"}}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result engine.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Aborted)
	assert.Equal(t, "HELLO", result.Outputs["result"])
}

func TestServer_RunSkill_MissingInput(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("POST", "/api/skills/shout/run", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RunSkill_AbortedRun(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("POST", "/api/skills/always-fails/run", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var result engine.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Aborted)
	assert.Equal(t, "boom", result.FailedStep)
}

func TestServer_RunSkill_UnknownSkill(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("POST", "/api/skills/missing/run", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RunsEndpointsWithoutStore(t *testing.T) {
	server := testServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/runs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerConfig_Validate(t *testing.T) {
	cfg := &ServerConfig{Port: 8391}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost", cfg.Host)

	assert.Error(t, (&ServerConfig{Port: 0}).Validate())
	assert.Error(t, (&ServerConfig{Port: 70000}).Validate())
}
