package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/civitas-io/mediawatch/internal/config"
	"github.com/civitas-io/mediawatch/internal/engine"
	openai "github.com/sashabaranov/go-openai"
)

// Client implements engine.Client using the OpenAI chat completions API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a Client from config. An empty BaseURL uses the public
// OpenAI endpoint; setting it allows pointing at a compatible gateway.
func NewClient(cfg config.OpenAIConfig) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(apiCfg), model: cfg.Model}
}

func (c *Client) Model() string { return c.model }

// Complete sends one rendered prompt and returns the raw JSON text plus token
// usage. Absent content is reported as engine.ErrNoContent so the retry
// policy can classify it as transient.
func (c *Client) Complete(ctx context.Context, req engine.CompletionRequest) (engine.CompletionResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	// Reasoning models reject MaxTokens and want MaxCompletionTokens instead.
	if strings.HasPrefix(c.model, "o1") || strings.HasPrefix(c.model, "o3") || strings.HasPrefix(c.model, "o4") {
		chatReq.MaxCompletionTokens = req.MaxTokens
	} else {
		chatReq.MaxTokens = req.MaxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return engine.CompletionResponse{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return engine.CompletionResponse{}, engine.ErrNoContent
	}

	return engine.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: engine.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

var _ engine.Client = (*Client)(nil)
