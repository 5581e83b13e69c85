package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/docstruct/internal/llm"
)

const DefaultModel = "gemini-2.0-flash"

// Config for the Gemini client.
type Config struct {
	APIKey  string        // if empty, falls back to env GEMINI_API_KEY
	Model   string        // default DefaultModel
	Timeout time.Duration // per-call deadline; 0 = none
}

// generator is the slice of *genai.GenerativeModel the client uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Client struct {
	cfg    Config
	sdk    *genai.Client
	newGen func(instruction string) generator
	log    *slog.Logger
}

// NewClient dials the Generative Language API. Close releases the connection.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not found")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	sdk, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c := &Client{cfg: cfg, sdk: sdk, log: logger}
	c.newGen = func(instruction string) generator {
		return c.model(instruction)
	}
	return c, nil
}

// model builds a fresh GenerativeModel per call so the shared client is never
// mutated by an in-flight request.
func (c *Client) model(instruction string) *genai.GenerativeModel {
	m := c.sdk.GenerativeModel(c.cfg.Model)
	m.SetTemperature(llm.Temperature)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = responseSchema()
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}
	return m
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) Close() error {
	if c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}
