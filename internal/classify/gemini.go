package classify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"
)

// Client is the minimal surface the pipeline needs from an LLM provider.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig configures the Gemini-backed client.
type GeminiConfig struct {
	APIKey string
	Model  string
	// MinRequestGap spaces consecutive requests; fan-out batches otherwise
	// burst straight into the provider's rate limit.
	MinRequestGap time.Duration
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:        apiKey,
		Model:         "gemini-2.0-flash",
		MinRequestGap: 200 * time.Millisecond,
	}
}

// GeminiClient implements Client on the Google GenAI API, requesting
// JSON-only replies.
type GeminiClient struct {
	client *genai.Client
	model  string
	gap    time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiConfig("").Model
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, gap: cfg.MinRequestGap}, nil
}

// Complete sends one prompt and returns the raw reply text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.throttle()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr(float32(0)),
		})
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini request: empty response")
	}
	return text, nil
}

func (c *GeminiClient) throttle() {
	if c.gap <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.gap - time.Since(c.lastRequest); wait > 0 {
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}
