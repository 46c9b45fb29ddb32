package builtin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/tools"
)

var _ tools.Tool = &HTTPRequestTool{}

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 1 << 20 // 1MB
)

// HTTPRequestInput defines the input parameters for the http_request tool.
type HTTPRequestInput struct {
	Method  string            `json:"method,omitempty" mapstructure:"method" jsonschema:"description=HTTP method (default GET)"`
	URL     string            `json:"url" mapstructure:"url" jsonschema:"description=The URL to request"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers" jsonschema:"description=Optional request headers"`
	Body    string            `json:"body,omitempty" mapstructure:"body" jsonschema:"description=Optional request body"`
}

// HTTPRequestTool performs an HTTP request and returns the response as a
// structured value. JSON response bodies are decoded so downstream steps
// can reference fields directly.
type HTTPRequestTool struct {
	client *http.Client
}

// NewHTTPRequestTool creates an HTTPRequestTool with a default client.
func NewHTTPRequestTool() *HTTPRequestTool {
	return &HTTPRequestTool{client: &http.Client{Timeout: defaultHTTPTimeout}}
}

// Name returns the name of the tool.
func (t *HTTPRequestTool) Name() string {
	return "http_request"
}

// Description returns the description of the tool.
func (t *HTTPRequestTool) Description() string {
	return "Perform an HTTP request and return status, headers and decoded body."
}

// GenerateSchema generates the JSON schema for the tool's input parameters.
func (t *HTTPRequestTool) GenerateSchema() *jsonschema.Schema {
	return tools.GenerateSchema[HTTPRequestInput]()
}

// TracingKVs returns tracing key-value pairs for observability.
func (t *HTTPRequestTool) TracingKVs(args map[string]any) []attribute.KeyValue {
	var input HTTPRequestInput
	if err := mapstructure.Decode(args, &input); err != nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String("method", input.Method),
		attribute.String("url", input.URL),
	}
}

// Invoke performs the request.
func (t *HTTPRequestTool) Invoke(ctx context.Context, args map[string]any) tools.Result {
	var input HTTPRequestInput
	if err := mapstructure.Decode(args, &input); err != nil {
		return tools.Errorf("invalid http_request args: %v", err)
	}
	if input.URL == "" {
		return tools.Errorf("url is required")
	}
	method := strings.ToUpper(input.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if input.Body != "" {
		body = strings.NewReader(input.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, input.URL, body)
	if err != nil {
		return tools.Errorf("build request: %v", err)
	}
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return tools.Errorf("%s %s: %v", method, input.URL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return tools.Errorf("read response body: %v", err)
	}

	var decoded any = string(raw)
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			decoded = v
		}
	}

	return tools.Ok(map[string]any{
		"success": resp.StatusCode < 400,
		"status":  resp.StatusCode,
		"body":    decoded,
	})
}
