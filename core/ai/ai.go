// Package ai answers free-form questions through an OpenAI-compatible chat completion API.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/arafat-telecom/chatbot/core/logger"
)

// EmptyReply is returned when the model produced no content.
const EmptyReply = "No response."

// ErrUnavailable is returned by the Unavailable responder.
var ErrUnavailable = errors.New("ai: responder not configured")

// Responder turns a user message into a reply.
type Responder interface {
	Ask(ctx context.Context, text string) (string, error)
}

// Options configure the OpenAI responder.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	HTTPClient  *http.Client
}

// OpenAI implements Responder with the openai-go client. DeepSeek and other
// compatible providers are reached by pointing BaseURL at them.
type OpenAI struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewOpenAI builds a responder from opts.
func NewOpenAI(opts Options) *OpenAI {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	return &OpenAI{
		client:      openai.NewClient(reqOpts...),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

// Ask sends text as a single user message and returns the first choice.
func (o *OpenAI) Ask(ctx context.Context, text string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text),
		},
		Temperature: openai.Float(o.temperature),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(o.maxTokens)
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Warn(ctx, "ai", "ai.ask",
			slog.String("status", "fail"),
			slog.String("model", o.model),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}

	reply := ""
	if len(resp.Choices) > 0 {
		reply = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if reply == "" {
		reply = EmptyReply
	}
	logger.Debug(ctx, "ai", "ai.ask",
		slog.String("status", "ok"),
		slog.String("model", o.model),
		slog.Int64("total_tokens", resp.Usage.TotalTokens),
		slog.Duration("duration", logger.Took(start)),
	)
	return reply, nil
}

// Unavailable is used when no API key is configured; every call fails with ErrUnavailable.
type Unavailable struct{}

// Ask always returns ErrUnavailable.
func (Unavailable) Ask(context.Context, string) (string, error) {
	return "", ErrUnavailable
}
