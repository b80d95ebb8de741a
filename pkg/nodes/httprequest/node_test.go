package httprequest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/protocol"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/dukex/nodebase/pkg/steps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyRunner struct {
	calls []string
}

func (s *spyRunner) Run(ctx context.Context, name string, fn steps.Func) (models.Context, error) {
	s.calls = append(s.calls, name)

	return fn(ctx)
}

func newRequest(data map[string]any, upstream models.Context, runner steps.Runner) (protocol.Request, *status.Recorder) {
	recorder := status.NewRecorder()

	return protocol.Request{
		Data:       data,
		NodeID:     "http-1",
		Context:    upstream,
		Step:       runner,
		Emitter:    recorder,
		WorkflowID: "wf-1",
		UserID:     "user-1",
	}, recorder
}

func TestExecute_JSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"message": "success", "count": 2}`))
	}))
	defer server.Close()

	runner := &spyRunner{}
	upstream := models.Context{"trigger": "manual", "nested": map[string]any{"a": 1}}
	req, recorder := newRequest(map[string]any{"endpoint": server.URL}, upstream, runner)

	out, err := NewExecutor(server.Client()).Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{StepName}, runner.calls)
	assert.Equal(t, "manual", out["trigger"])
	assert.Equal(t, map[string]any{"a": 1}, out["nested"])
	assert.NotContains(t, upstream, ContextKey)

	response, ok := out[ContextKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, response["status"])
	assert.Equal(t, "OK", response["statusText"])
	assert.Equal(t, map[string]any{"message": "success", "count": float64(2)}, response["data"])

	assert.Equal(t, []status.Status{status.StatusLoading, status.StatusSuccess}, recorder.Statuses("http-1"))
	for _, msg := range recorder.Messages() {
		assert.Equal(t, "http-request-execution:workflow:wf-1:user:user-1", msg.Channel)
	}
}

func TestExecute_TextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"looks": "like json"}`))
	}))
	defer server.Close()

	req, _ := newRequest(map[string]any{"endpoint": server.URL}, models.Context{}, &spyRunner{})

	out, err := NewExecutor(server.Client()).Execute(context.Background(), req)
	require.NoError(t, err)

	response := out[ContextKey].(map[string]any)
	assert.Equal(t, `{"looks": "like json"}`, response["data"])
}

func TestExecute_BodyOnlyForBodyMethods(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		wantBody string
	}{
		{name: "get ignores body", method: "GET", wantBody: ""},
		{name: "delete ignores body", method: "delete", wantBody: ""},
		{name: "post sends body", method: "POST", wantBody: "x"},
		{name: "put sends body", method: "PUT", wantBody: "x"},
		{name: "patch sends body", method: "patch", wantBody: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotMethod string
				gotBody   string
				gotType   string
			)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotType = r.Header.Get("Content-Type")
				raw, _ := io.ReadAll(r.Body)
				gotBody = string(raw)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			data := map[string]any{"endpoint": server.URL, "method": tt.method, "body": "x"}
			req, _ := newRequest(data, models.Context{}, &spyRunner{})

			_, err := NewExecutor(server.Client()).Execute(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantBody, gotBody)
			assert.Equal(t, strings.ToUpper(tt.method), gotMethod)

			if tt.wantBody != "" {
				assert.Equal(t, "text/plain;charset=UTF-8", gotType)
			}
		})
	}
}

func TestExecute_MissingEndpointSkipsStepRunner(t *testing.T) {
	for _, data := range []map[string]any{nil, {}, {"endpoint": ""}, {"endpoint": 3}} {
		runner := &spyRunner{}
		req, recorder := newRequest(data, models.Context{"k": "v"}, runner)

		out, err := NewExecutor(nil).Execute(context.Background(), req)

		require.Error(t, err)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, ErrMissingEndpoint)
		assert.True(t, steps.IsNonRetriable(err))
		assert.Empty(t, runner.calls)
		assert.Equal(t, []status.Status{status.StatusLoading, status.StatusError}, recorder.Statuses("http-1"))
	}
}

func TestExecute_InvalidMethodSkipsStepRunner(t *testing.T) {
	runner := &spyRunner{}
	req, recorder := newRequest(map[string]any{"endpoint": "http://localhost", "method": "TRACE"}, models.Context{}, runner)

	_, err := NewExecutor(nil).Execute(context.Background(), req)

	require.ErrorIs(t, err, ErrInvalidMethod)
	assert.True(t, steps.IsNonRetriable(err))
	assert.Empty(t, runner.calls)
	assert.Equal(t, []status.Status{status.StatusLoading, status.StatusError}, recorder.Statuses("http-1"))
}

func TestExecute_ServerErrorIsRetried(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	runner := steps.NewDurable("run-1", steps.NewMemoryStore(), steps.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}, log.Discard())
	req, recorder := newRequest(map[string]any{"endpoint": server.URL}, models.Context{}, runner)

	out, err := NewExecutor(server.Client()).Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, map[string]any{"ok": true}, out[ContextKey].(map[string]any)["data"])
	assert.Equal(t, []status.Status{status.StatusLoading, status.StatusSuccess}, recorder.Statuses("http-1"))
}

func TestExecute_ClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	runner := steps.NewDurable("run-1", steps.NewMemoryStore(), steps.Policy{
		MaxAttempts:     5,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}, log.Discard())
	req, recorder := newRequest(map[string]any{"endpoint": server.URL}, models.Context{}, runner)

	_, err := NewExecutor(server.Client()).Execute(context.Background(), req)

	require.Error(t, err)
	assert.True(t, steps.IsNonRetriable(err))
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, []status.Status{status.StatusLoading, status.StatusError}, recorder.Statuses("http-1"))
}

func TestExecute_TransportErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	req, recorder := newRequest(map[string]any{"endpoint": endpoint}, models.Context{}, &spyRunner{})

	_, err := NewExecutor(nil).Execute(context.Background(), req)

	require.Error(t, err)
	assert.False(t, steps.IsNonRetriable(err))
	assert.False(t, errors.Is(err, ErrMissingEndpoint))
	assert.Equal(t, []status.Status{status.StatusLoading, status.StatusError}, recorder.Statuses("http-1"))
}

func TestParseConfig_Defaults(t *testing.T) {
	config, err := ParseConfig(map[string]any{"endpoint": "https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, config.Method)
	assert.Empty(t, config.Body)
	assert.False(t, config.HasBody())
}

func TestNodeFactory(t *testing.T) {
	factory := NewNodeFactory(nil)

	assert.Equal(t, models.NodeTypeHTTPRequest, factory.Type())
	assert.Equal(t, models.CategoryTypeAction, factory.Category())
	assert.Equal(t, status.KindHTTPRequest, factory.Executor().Kind())
	assert.Equal(t, []string{"endpoint"}, factory.Schema()["required"])
}
