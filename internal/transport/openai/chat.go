package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tytac116/PropMatch/internal/domain"
	"github.com/tytac116/PropMatch/internal/metrics"
)

// Default chat completion settings. Low temperature keeps relevance
// judgments stable across identical requests.
const (
	defaultChatTemperature = 0.3
	defaultChatMaxTokens   = 1000
)

// ChatClient runs chat completions against the OpenAI API. Responses
// are requested in JSON mode, so every prompt must describe a JSON
// response or the API rejects the request.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	user        string
	provider    string
	logger      *zap.Logger
}

// ChatConfig holds the chat provider settings.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	User        string
	Provider    string
	Logger      *zap.Logger
}

// NewChatClient creates an OpenAI chat completion client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultChatTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultChatMaxTokens
	}

	return &ChatClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
		user:        cfg.User,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}
}

// Complete implements domain.ChatCompleter.
func (c *ChatClient) Complete(ctx context.Context, msgs []domain.ChatMessage) (domain.ChatResult, error) {
	req := c.buildRequest(msgs)

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.ChatResult{}, parseChatError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.ChatResult{}, fmt.Errorf("empty chat response: %w", domain.ErrLLMProviderError)
	}

	result := domain.ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	c.recordSuccess(result, duration)

	return result, nil
}

// StreamComplete implements domain.ChatStreamer. Deltas are forwarded
// to onDelta as they arrive; the accumulated text and usage are
// returned once the stream ends.
func (c *ChatClient) StreamComplete(
	ctx context.Context, msgs []domain.ChatMessage, onDelta func(delta string) error,
) (domain.ChatResult, error) {
	req := c.buildRequest(msgs)
	// Usage arrives in a final chunk with no choices.
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	start := time.Now()

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return domain.ChatResult{}, parseChatError(err)
	}
	defer stream.Close()

	var sb strings.Builder
	var result domain.ChatResult

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.ChatRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
			return domain.ChatResult{}, parseChatError(err)
		}

		if chunk.Usage != nil {
			result.PromptTokens = chunk.Usage.PromptTokens
			result.CompletionTokens = chunk.Usage.CompletionTokens
			result.TotalTokens = chunk.Usage.TotalTokens
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		sb.WriteString(delta)
		if err := onDelta(delta); err != nil {
			metrics.ChatRequestsTotal.WithLabelValues(c.provider, c.model, "aborted").Inc()
			return domain.ChatResult{}, fmt.Errorf("stream consumer: %w", err)
		}
	}

	result.Content = sb.String()
	c.recordSuccess(result, time.Since(start))

	return result, nil
}

func (c *ChatClient) buildRequest(msgs []domain.ChatMessage) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		User:        c.user,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
}

func (c *ChatClient) recordSuccess(result domain.ChatResult, duration time.Duration) {
	metrics.ChatRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())
	if result.TotalTokens > 0 {
		metrics.ChatTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(result.PromptTokens))
		metrics.ChatTokensTotal.WithLabelValues(c.provider, c.model, "completion").Add(float64(result.CompletionTokens))
		metrics.ChatTokensTotal.WithLabelValues(c.provider, c.model, "total").Add(float64(result.TotalTokens))
	}

	c.logger.Debug("Chat completion finished",
		zap.String("provider", c.provider),
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
	)
}

// parseChatError maps transport failures to domain sentinels. Context
// cancellation passes through untouched so callers can tell a client
// disconnect from a provider failure.
func parseChatError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat request: %v: %w", err, domain.ErrLLMTimeout)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("chat API error %d: %s: %w",
				apiErr.HTTPStatusCode, apiErr.Message, domain.ErrRateLimited)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrLLMProviderError)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, domain.ErrLLMProviderError)
	}

	return fmt.Errorf("chat request failed: %w", domain.ErrLLMProviderError)
}
