// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kuraryu/deep-research/pkg/types"
)

// OpenAIBackend calls the OpenAI chat completions API.
type OpenAIBackend struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIBackend builds a backend from the reason configuration.
func NewOpenAIBackend(cfg types.ReasonConfig) *OpenAIBackend {
	return &OpenAIBackend{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Complete sends one prompt and returns the first choice's text.
func (b *OpenAIBackend) Complete(ctx context.Context, kind PromptKind, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     b.model,
		MaxTokens: b.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai %s call: %w", kind, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
