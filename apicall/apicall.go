// Package apicall executes single API calls: one GraphQL query or one REST
// request. Ordinary failures (4xx/5xx, transport errors, malformed bodies)
// are reported in the Result, never raised, so callers branch on Success
// without wrapping every call site in error recovery.
package apicall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Result is the uniform outcome of one API call.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client executes API calls with a bounded HTTP client. Timeouts for the
// underlying calls are the client's responsibility; replay never hangs on
// a step the client itself does not bound.
type Client struct {
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-call timeout. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{http: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func failure(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// GraphQL posts one query (with optional variables) to the endpoint.
// GraphQL-level errors in the response body report as failures.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]any, endpoint string, headers map[string]string) Result {
	payload := map[string]any{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return failure("encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	applyHeaders(req, headers)

	resp, err := c.http.Do(req)
	if err != nil {
		return failure("query failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure("read response: %v", err)
	}
	if resp.StatusCode >= 400 {
		return failure("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}

	var envelope struct {
		Data   any `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return failure("decode response: %v", err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return failure("graphql errors: %s", strings.Join(msgs, "; "))
	}
	return Result{Success: true, Data: envelope.Data}
}

// RESTCall describes one REST request. Path placeholders of the form
// {name} are filled from PathParams.
type RESTCall struct {
	Method      string
	Path        string
	PathParams  map[string]any
	QueryParams map[string]any
	Body        map[string]any
	BaseURL     string
	Headers     map[string]string
	// AllowUnsafePaths are glob patterns; POST/PUT/PATCH/DELETE are
	// refused unless the path matches one.
	AllowUnsafePaths []string
}

// REST executes one REST request against the call's base URL.
func (c *Client) REST(ctx context.Context, call RESTCall) Result {
	method := strings.ToUpper(strings.TrimSpace(call.Method))
	if method == "" {
		method = http.MethodGet
	}
	if unsafeMethod(method) && !pathAllowed(call.Path, call.AllowUnsafePaths) {
		return failure("method %s not allowed for path %s", method, call.Path)
	}

	resolved := call.Path
	for name, value := range call.PathParams {
		resolved = strings.ReplaceAll(resolved, "{"+name+"}", url.PathEscape(paramText(value)))
	}

	full, err := joinURL(call.BaseURL, resolved)
	if err != nil {
		return failure("bad url: %v", err)
	}
	if len(call.QueryParams) > 0 {
		q := url.Values{}
		for name, value := range call.QueryParams {
			q.Set(name, paramText(value))
		}
		full += "?" + q.Encode()
	}

	var body io.Reader
	if len(call.Body) > 0 {
		encoded, err := json.Marshal(call.Body)
		if err != nil {
			return failure("encode body: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return failure("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	applyHeaders(req, call.Headers)

	resp, err := c.http.Do(req)
	if err != nil {
		return failure("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure("read response: %v", err)
	}
	if resp.StatusCode >= 400 {
		return failure("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}

	var data any
	if len(bytes.TrimSpace(raw)) == 0 {
		data = map[string]any{}
	} else if err := json.Unmarshal(raw, &data); err != nil {
		data = string(raw)
	}
	return Result{Success: true, Data: data}
}

func unsafeMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func pathAllowed(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, p); err == nil && ok {
			return true
		}
	}
	return false
}

func paramText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func joinURL(base, p string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(p, "/")
	return u.String(), nil
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
