package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SendJSON posts body as JSON to url with optional headers and returns the raw
// response body. It does not assume any provider; callers decide the URL and
// headers. Every failure is an *InvocationError tagged with backend.
func SendJSON(ctx context.Context, client *http.Client, backend, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, &InvocationError{Backend: backend, Reason: ReasonRejected, Err: fmt.Errorf("encode json: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, &InvocationError{Backend: backend, Reason: ReasonUnreachable, Err: fmt.Errorf("build request: %w", err)}
	}

	// Default headers; allow caller overrides.
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Info("llm.http.request",
		"req_id", reqID,
		"url", url,
		"content_length", len(bs),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, &InvocationError{Backend: backend, Reason: ClassifyTransportError(ctx, err), Err: err}
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, &InvocationError{Backend: backend, Reason: ClassifyTransportError(ctx, err), Status: resp.StatusCode, Err: err}
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &InvocationError{
			Backend: backend,
			Reason:  ReasonForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("non-2xx status %d: %s", resp.StatusCode, truncate(string(raw), 512)),
		}
	}
	return raw, nil
}

// ClassifyTransportError maps an error raised before a response arrived.
// The context is consulted first so a caller's cancel or deadline wins over
// whatever the transport reported.
func ClassifyTransportError(ctx context.Context, err error) InvocationReason {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}
	return ReasonUnreachable
}

// ReasonForStatus maps a non-2xx HTTP status.
func ReasonForStatus(status int) InvocationReason {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ReasonUnauthorized
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ReasonTimeout
	default:
		return ReasonRejected
	}
}

// RequireJSON returns a non_json InvocationError when content is not a
// single valid JSON value.
func RequireJSON(backend, content string) error {
	if json.Valid([]byte(content)) {
		return nil
	}
	return &InvocationError{
		Backend: backend,
		Reason:  ReasonNonJSON,
		Err:     fmt.Errorf("response is not JSON: %s", truncate(content, 120)),
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
