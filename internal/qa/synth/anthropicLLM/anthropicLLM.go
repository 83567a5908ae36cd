package anthropicLLM

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/qa/synth"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

type llmClient struct {
	client    anthropic.Client
	modelName string
	maxTokens int64
	logger    *logger_i.Logger
}

func NewClient(apiKey string, modelName string) synth.Provider {
	logger := logger_i.NewLogger("llm_anthropic")
	if apiKey == "" {
		logger.Error("Missing Anthropic API key")
		return nil
	}

	logger.Info("Anthropic client created", "model", modelName)
	return &llmClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
		maxTokens: config.SynthesisMaxTokens,
		logger:    logger,
	}
}

func (c *llmClient) Synthesize(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("empty synthesis response")
	}
	return sb.String(), nil
}
