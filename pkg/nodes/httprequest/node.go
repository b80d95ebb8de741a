// Package httprequest provides the node that performs an outbound HTTP call.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/protocol"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/dukex/nodebase/pkg/steps"
)

const (
	StepName = "http-request"

	// ContextKey holds the response in the returned context.
	ContextKey = "httpResponse"

	DefaultMethod  = http.MethodGet
	DefaultTimeout = 30 * time.Second

	// The body is sent verbatim as a string.
	bodyContentType = "text/plain;charset=UTF-8"
)

var (
	ErrMissingEndpoint = errors.New("http request node: endpoint not configured")
	ErrInvalidMethod   = errors.New("http request node: unsupported method")

	// Methods lists the accepted values of the method field.
	Methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

	bodyMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch}
)

// Config is the node's data payload.
type Config struct {
	Endpoint string
	Method   string
	Body     string
}

// ParseConfig reads the node data. Missing method defaults to GET.
func ParseConfig(data map[string]any) (Config, error) {
	config := Config{Method: DefaultMethod}

	endpoint, _ := data["endpoint"].(string)
	if strings.TrimSpace(endpoint) == "" {
		return config, steps.NonRetriable(ErrMissingEndpoint)
	}

	config.Endpoint = endpoint

	if method, ok := data["method"].(string); ok && method != "" {
		config.Method = strings.ToUpper(method)
	}

	if !slices.Contains(Methods, config.Method) {
		return config, steps.NonRetriable(fmt.Errorf("%w: %s", ErrInvalidMethod, config.Method))
	}

	if body, ok := data["body"].(string); ok {
		config.Body = body
	}

	return config, nil
}

// HasBody reports whether the configured method carries a request body.
func (c Config) HasBody() bool {
	return slices.Contains(bodyMethods, c.Method)
}

// Response is stored under ContextKey.
type Response struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Data       any    `json:"data"`
}

func (r Response) asMap() map[string]any {
	return map[string]any{
		"status":     r.Status,
		"statusText": r.StatusText,
		"data":       r.Data,
	}
}

// Executor performs the configured request inside the "http-request" step.
type Executor struct {
	client *http.Client
}

// NewExecutor returns an executor using client, or a client with
// DefaultTimeout when client is nil.
func NewExecutor(client *http.Client) *Executor {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return &Executor{client: client}
}

func (e *Executor) Kind() status.Kind {
	return status.KindHTTPRequest
}

func (e *Executor) Execute(ctx context.Context, req protocol.Request) (models.Context, error) {
	return protocol.Track(ctx, req, e.Kind(), func() (models.Context, error) {
		config, err := ParseConfig(req.Data)
		if err != nil {
			return nil, err
		}

		return req.Step.Run(ctx, StepName, func(ctx context.Context) (models.Context, error) {
			response, err := e.perform(ctx, config)
			if err != nil {
				return nil, err
			}

			return req.Context.With(ContextKey, response.asMap()), nil
		})
	})
}

func (e *Executor) perform(ctx context.Context, config Config) (*Response, error) {
	var body io.Reader
	if config.HasBody() {
		body = strings.NewReader(config.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, config.Method, config.Endpoint, body)
	if err != nil {
		return nil, steps.NonRetriable(fmt.Errorf("failed to build request: %w", err))
	}

	if config.HasBody() {
		httpReq.Header.Set("Content-Type", bodyContentType)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", config.Endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := classify(resp.StatusCode); err != nil {
		return nil, err
	}

	data, err := decode(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, err
	}

	return &Response{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Data:       data,
	}, nil
}

// classify turns non-2xx codes into errors. Client errors will not succeed
// on retry, except timeouts and rate limiting.
func classify(code int) error {
	if code >= 200 && code < 300 {
		return nil
	}

	err := fmt.Errorf("request failed with status %d %s", code, http.StatusText(code))

	if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
		return steps.NonRetriable(err)
	}

	return err
}

func decode(contentType string, raw []byte) (any, error) {
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return string(raw), nil
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return data, nil
}


func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}

	return text
}
