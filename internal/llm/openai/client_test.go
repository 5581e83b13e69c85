package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docstruct/internal/llm"
)

const gpaJSON = `{"extracted_data":[{"Key":"Undergraduate GPA","Value":"8.7","Comment":"on a 10-point scale."}]}`

func chatHandler(t *testing.T, content string, seen *chatRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		resp := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: url, Model: "test-model", Timeout: timeout}, nil)
}

func invocationReason(t *testing.T, err error) llm.InvocationReason {
	t.Helper()
	var inv *llm.InvocationError
	require.True(t, errors.As(err, &inv), "got %T: %v", err, err)
	assert.Equal(t, backendName, inv.Backend)
	return inv.Reason
}

func TestInvokeSendsJSONModeRequest(t *testing.T) {
	var seen chatRequest
	srv := httptest.NewServer(chatHandler(t, gpaJSON, &seen))
	defer srv.Close()

	raw, err := newTestClient(srv.URL+"/", 0).Invoke(context.Background(), "the instruction")
	require.NoError(t, err)

	assert.Equal(t, gpaJSON, raw.Text)
	assert.Equal(t, "test-model", raw.Model)
	assert.Equal(t, backendName, raw.Backend)

	assert.Equal(t, "test-model", seen.Model)
	assert.Equal(t, float32(0), seen.Temperature)
	assert.Equal(t, "json_object", seen.ResponseFormat.Type)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, message{Role: "system", Content: "the instruction"}, seen.Messages[0])
	assert.Equal(t, message{Role: "user", Content: llm.BuildUserMessage()}, seen.Messages[1])
}

func TestInvokeOutputValidates(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, "  "+gpaJSON+"\n", nil))
	defer srv.Close()

	raw, err := newTestClient(srv.URL, 0).Invoke(context.Background(), "x")
	require.NoError(t, err)
	res, err := llm.Validate([]byte(raw.Text))
	require.NoError(t, err)
	assert.Equal(t, []llm.Record{{Key: "Undergraduate GPA", Value: "8.7", Comment: "on a 10-point scale."}}, res.Records)
}

func TestInvokeNonJSONContent(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, "Here are your records: Key=GPA", nil))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).Invoke(context.Background(), "x")
	assert.Equal(t, llm.ReasonNonJSON, invocationReason(t, err))
}

func TestInvokeHTTPFailures(t *testing.T) {
	tests := []struct {
		status int
		reason llm.InvocationReason
	}{
		{http.StatusUnauthorized, llm.ReasonUnauthorized},
		{http.StatusInternalServerError, llm.ReasonRejected},
		{http.StatusBadRequest, llm.ReasonRejected},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"nope"}}`, tt.status)
		}))
		_, err := newTestClient(srv.URL, 0).Invoke(context.Background(), "x")
		srv.Close()
		assert.Equal(t, tt.reason, invocationReason(t, err), "status %d", tt.status)
	}
}

func TestInvokeNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).Invoke(context.Background(), "x")
	assert.Equal(t, llm.ReasonRejected, invocationReason(t, err))
}

func TestInvokeUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).Invoke(context.Background(), "x")
	assert.Equal(t, llm.ReasonRejected, invocationReason(t, err))
}

func TestInvokeMissingKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.Invoke(context.Background(), "x")
	assert.Equal(t, llm.ReasonUnauthorized, invocationReason(t, err))
}

func TestInvokeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).Invoke(context.Background(), "x")
	assert.Equal(t, llm.ReasonUnreachable, invocationReason(t, err))
}

func slowServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
}

func TestInvokeClientTimeout(t *testing.T) {
	srv := slowServer()
	defer srv.Close()

	_, err := newTestClient(srv.URL, 50*time.Millisecond).Invoke(context.Background(), "x")
	assert.Equal(t, llm.ReasonTimeout, invocationReason(t, err))
}

func TestInvokeCanceled(t *testing.T) {
	srv := slowServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := newTestClient(srv.URL, 0).Invoke(ctx, "x")
	assert.Equal(t, llm.ReasonCanceled, invocationReason(t, err))
}

func TestNewClientDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq")
	t.Setenv("OPENAI_API_KEY", "openai")

	c := NewClient(Config{}, nil)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, "groq", c.cfg.APIKey)
	assert.Equal(t, 60*time.Second, c.httpClient.Timeout)
}
