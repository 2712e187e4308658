package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Google GenAI transport.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, mostly for tests.
	BaseURL string
}

// Gemini completes prompts through the GenAI SDK with a JSON response type.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Transport = (*Gemini)(nil)

// NewGemini creates the transport.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", ErrAuthentication)
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Name implements Transport.
func (g *Gemini) Name() string { return "gemini" }

// Complete implements Transport.
func (g *Gemini) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(p.Temperature)),
		MaxOutputTokens:  int32(p.MaxTokens), //nolint:gosec // bounded by config validation
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", geminiError(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate", ErrResponseMalformed)
	}
	return text, nil
}

// geminiError maps SDK errors onto the oracle sentinels.
func geminiError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	switch {
	case code == 401 || code == 403:
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	case code == 429:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case code != 0:
		return fmt.Errorf("%w: status %d: %w", ErrUnexpectedStatus, code, err)
	default:
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
}
