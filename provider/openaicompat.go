package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hykang/chorus/internal/tlsutil"
	"github.com/hykang/chorus/types"
)

// HTTPConfig configures an OpenAI-compatible chat-completions
// capability. Most hosted providers (OpenAI, DeepSeek, Qwen and the
// rest of the compatible field) speak this dialect.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Model   string

	Temperature float32
	MaxTokens   int

	// Timeout bounds one completion call. Defaults to 60s.
	Timeout time.Duration

	// EndpointPath defaults to "/v1/chat/completions".
	EndpointPath string
}

// HTTPCapability calls an OpenAI-compatible chat-completions endpoint.
type HTTPCapability struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPCapability creates the capability.
func NewHTTPCapability(cfg HTTPConfig, logger *zap.Logger) *HTTPCapability {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPCapability{
		cfg:    cfg,
		client: tlsutil.Client(cfg.Timeout),
		logger: logger.With(zap.String("model", cfg.Model)),
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Invoke implements Capability.
func (c *HTTPCapability) Invoke(ctx context.Context, messages []types.ChatMessage) (*Invocation, error) {
	wire := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    wire,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewError(types.ErrTimeout, "completion call cancelled").WithCause(ctx.Err())
		}
		return nil, types.NewError(types.ErrProviderError, "completion call failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.mapStatus(resp.StatusCode, resp.Body)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, types.NewError(types.ErrInvalidResponse, "malformed completion response").WithCause(err)
	}
	if len(completion.Choices) == 0 {
		return nil, types.NewError(types.ErrInvalidResponse, "completion response has no choices")
	}

	content := completion.Choices[0].Message.Content
	prompt := completion.Usage.PromptTokens
	output := completion.Usage.CompletionTokens
	total := completion.Usage.TotalTokens
	if total == 0 {
		// Some compatible endpoints omit usage; fall back to local
		// estimation so billing never reads zero.
		prompt = EstimateMessageTokens(messages)
		output = EstimateTokens(content)
		total = prompt + output
	}

	return &Invocation{
		Content:          content,
		PromptTokens:     prompt,
		CompletionTokens: output,
		TotalTokens:      total,
	}, nil
}

func (c *HTTPCapability) mapStatus(status int, body io.Reader) error {
	msg := readErrorMessage(body)
	c.logger.Warn("completion endpoint returned error",
		zap.Int("status", status),
		zap.String("message", msg),
	)

	switch {
	case status == http.StatusGatewayTimeout:
		return types.NewError(types.ErrTimeout, msg).WithHTTPStatus(status).WithRetryable(true)
	case status == http.StatusTooManyRequests || status >= 500:
		return types.NewError(types.ErrProviderError, msg).WithHTTPStatus(status).WithRetryable(true)
	default:
		return types.NewError(types.ErrProviderError, msg).WithHTTPStatus(status)
	}
}

// readErrorMessage pulls the provider's error text out of a failed
// response, tolerating non-JSON bodies.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "provider returned an error with no body"
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
