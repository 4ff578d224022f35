package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"policyqa/internal/generation"
)

// Config configures the OpenAI-compatible chat completion backend.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Generator calls an OpenAI-compatible chat completions endpoint. Every
// failure mode maps to a failed generation.Result.
type Generator struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewGenerator(cfg Config) (*Generator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1/"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Generator{
		client: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(cfg.BaseURL),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

func (g *Generator) Generate(ctx context.Context, prompt string) generation.Result {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(0),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return generation.Failed(generation.ReasonTimeout, err)
		}
		return generation.Failed(generation.ReasonError, err)
	}
	if len(resp.Choices) == 0 {
		return generation.Failed(generation.ReasonMalformed, errors.New("no choices in completion"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return generation.Failed(generation.ReasonEmpty, nil)
	}
	return generation.Ok(text)
}
