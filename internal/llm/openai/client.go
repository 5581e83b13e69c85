package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docstruct/internal/llm"
)

const backendName = "openai"

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	Temperature    float32        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke implements llm.Invoker using chat/completions in JSON object mode.
// The instruction is sent as the system turn.
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

	if c.cfg.APIKey == "" {
		return llm.Raw{}, &llm.InvocationError{
			Backend: backendName,
			Reason:  llm.ReasonUnauthorized,
			Err:     fmt.Errorf("no api key configured"),
		}
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Temperature: llm.Temperature,
		ResponseFormat: responseFormat{
			Type: "json_object",
		},
		Messages: []message{
			{Role: "system", Content: instruction},
			{Role: "user", Content: llm.BuildUserMessage()},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.SendJSON(ctx, c.httpClient, backendName, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.invoke.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Raw{}, err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.invoke.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Raw{}, &llm.InvocationError{Backend: backendName, Reason: llm.ReasonRejected, Err: fmt.Errorf("decode chat response: %w", err)}
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.invoke.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Raw{}, &llm.InvocationError{Backend: backendName, Reason: llm.ReasonRejected, Err: fmt.Errorf("no choices in response")}
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
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
