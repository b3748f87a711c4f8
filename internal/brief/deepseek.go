package brief

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ryosukesatoh/ai-daily-brief/internal/retry"
)

const (
	DefaultBaseURL     = "https://api.deepseek.com/v1/"
	DefaultModel       = "deepseek-chat"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 8000
	DefaultTimeout     = 120 * time.Second
)

// ErrMissingAPIKey is returned when no API credential is configured. It is
// always reported before any network activity.
var ErrMissingAPIKey = errors.New("missing API key (set DEEPSEEK_API_KEY)")

// ClientConfig configures a DeepSeekClient.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// InsecureSkipVerify disables TLS certificate verification. Off unless
	// explicitly enabled.
	InsecureSkipVerify bool
	Retry              retry.Config
}

// DeepSeekClient calls the DeepSeek chat-completions endpoint through the
// OpenAI-compatible SDK.
type DeepSeekClient struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	retry       retry.Config
}

func NewDeepSeekClient(cfg ClientConfig) (*DeepSeekClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.InsecureSkipVerify {
		log.Printf("WARNING: TLS certificate verification is disabled for %s", cfg.BaseURL)
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via llm.insecure_skip_verify
		httpClient.Transport = transport
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		// Retries are governed by cfg.Retry, not by the SDK.
		option.WithMaxRetries(0),
	)

	return &DeepSeekClient{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retry:       cfg.Retry,
	}, nil
}

func (c *DeepSeekClient) Complete(ctx context.Context, system, user string) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	}

	var resp *openai.ChatCompletion
	err := retry.WithBackoff(ctx, c.retry, func(ctx context.Context) error {
		var err error
		resp, err = c.client.Chat.Completions.New(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("deepseek: request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("deepseek: empty choices")
	}

	return &Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
