package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docstruct/internal/llm"
)

const backendName = "gemini"

// Invoke implements llm.Invoker with JSON response MIME type and a response
// schema derived from the alias table.
func (c *Client) Invoke(ctx context.Context, instruction string) (llm.Raw, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.invoke.start",
		"req_id", rid,
		"backend", backendName,
		"model", c.cfg.Model,
		"temp", llm.Temperature,
		"instruction_len", len(instruction),
	)

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.newGen(instruction).GenerateContent(ctx, genai.Text(llm.BuildUserMessage()))
	if err != nil {
		ierr := classify(ctx, err)
		c.log.Error("llm.invoke.sdk_error",
			"req_id", rid, "reason", ierr.Reason, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Raw{}, ierr
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		c.log.Error("llm.invoke.no_candidates",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Raw{}, &llm.InvocationError{Backend: backendName, Reason: llm.ReasonRejected, Err: fmt.Errorf("no candidates in response")}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	content := strings.TrimSpace(sb.String())
	if err := llm.RequireJSON(backendName, content); err != nil {
		c.log.Error("llm.invoke.non_json",
			"req_id", rid, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Raw{}, err
	}

	c.log.Info("llm.invoke.ok",
		"req_id", rid,
		"backend", backendName,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Raw{Text: content, Model: c.cfg.Model, Backend: backendName}, nil
}

// classify maps SDK errors. REST failures surface as *googleapi.Error, gRPC
// ones carry a status code; anything else is a transport failure.
func classify(ctx context.Context, err error) *llm.InvocationError {
	ierr := &llm.InvocationError{Backend: backendName, Err: err}

	if ctx.Err() != nil {
		ierr.Reason = llm.ClassifyTransportError(ctx, err)
		return ierr
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		ierr.Status = gerr.Code
		ierr.Reason = llm.ReasonForStatus(gerr.Code)
		return ierr
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			ierr.Reason = llm.ReasonUnauthorized
			ierr.Status = http.StatusUnauthorized
		case codes.DeadlineExceeded:
			ierr.Reason = llm.ReasonTimeout
		case codes.Canceled:
			ierr.Reason = llm.ReasonCanceled
		case codes.Unavailable:
			ierr.Reason = llm.ReasonUnreachable
		default:
			ierr.Reason = llm.ReasonRejected
		}
		return ierr
	}

	ierr.Reason = llm.ClassifyTransportError(ctx, err)
	return ierr
}

// responseSchema mirrors llm.JSONSchema in the SDK's schema type.
func responseSchema() *genai.Schema {
	props := make(map[string]*genai.Schema)
	var required []string
	for _, f := range llm.Fields() {
		props[f.Wire] = &genai.Schema{Type: genai.TypeString, Description: f.Description}
		required = append(required, f.Wire)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			llm.EnvelopeKey: {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: props,
					Required:   required,
				},
			},
		},
		Required: []string{llm.EnvelopeKey},
	}
}
