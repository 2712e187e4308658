package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Anthropic defaults.
const (
	DefaultAnthropicURL     = "https://api.anthropic.com/v1/messages"
	DefaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	DefaultAnthropicVersion = "2023-06-01"

	maxErrorBody = 512
)

// AnthropicConfig configures the messages endpoint transport.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Version string
	// MaxConns caps connections per host; it should equal the dispatcher
	// concurrency.
	MaxConns int
	// HTTPClient overrides the client built from MaxConns.
	HTTPClient *http.Client
}

// Anthropic posts prompts to the messages endpoint.
type Anthropic struct {
	apiKey  string
	baseURL string
	model   string
	version string
	client  *http.Client
}

var _ Transport = (*Anthropic)(nil)

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropic creates the transport, filling defaults.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	a := &Anthropic{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		version: cfg.Version,
		client:  cfg.HTTPClient,
	}
	if a.baseURL == "" {
		a.baseURL = DefaultAnthropicURL
	}
	if a.model == "" {
		a.model = DefaultAnthropicModel
	}
	if a.version == "" {
		a.version = DefaultAnthropicVersion
	}
	if a.client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.MaxConns > 0 {
			tr.MaxConnsPerHost = cfg.MaxConns
			tr.MaxIdleConnsPerHost = cfg.MaxConns
		}
		a.client = &http.Client{Transport: tr}
	}
	return a
}

// Name implements Transport.
func (a *Anthropic) Name() string { return "anthropic" }

// Complete implements Transport. Deadlines come from ctx.
func (a *Anthropic) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       a.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("anthropic-version", a.version)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}
	if err := statusError(resp.StatusCode, raw); err != nil {
		return "", err
	}

	var out anthropicResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode envelope: %w", ErrResponseMalformed, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, out.Error.Type, out.Error.Message)
	}
	for _, block := range out.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content", ErrResponseMalformed)
}

// statusError maps a non-2xx status onto the oracle sentinels.
func statusError(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	msg := strings.ToValidUTF8(strings.TrimSpace(string(body)), "\uFFFD")
	if len(msg) > maxErrorBody {
		n := maxErrorBody
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuthentication, code, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrRateLimited, code, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUnexpectedStatus, code, msg)
	}
}
