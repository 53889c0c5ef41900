// Package llm builds the chat models used by the agent, the text-to-SQL
// service and personalization.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const (
	ProviderGemini  = "gemini"
	ProviderLiteLLM = "litellm"
	ProviderMock    = "mock"
)

// Per-role sampling temperatures.
const (
	RouterTemperature          float32 = 0.0
	DocumentTemperature        float32 = 0.2
	PersonalizationTemperature float32 = 0.4
	SQLTemperature             float32 = 0.2
)

// ChatModels holds one model per role.
type ChatModels struct {
	Router          model.BaseChatModel
	Documents       model.BaseChatModel
	Personalization model.BaseChatModel
	SQL             model.BaseChatModel
	Provider        string
}

// NewChatModels creates the chat models for the configured provider.
func NewChatModels(ctx context.Context, cfg config.LLMConfig) (*ChatModels, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case ProviderMock:
		logx.Info().Msg("LLM_PROVIDER=mock detected, using mock chat models")
		m := NewMockChatModel()
		return &ChatModels{Router: m, Documents: m, Personalization: m, SQL: m, Provider: provider}, nil
	case ProviderLiteLLM:
		return &ChatModels{
			Router:          NewLiteLLMChatModel(cfg, cfg.RouterModel, RouterTemperature),
			Documents:       NewLiteLLMChatModel(cfg, cfg.DocumentQueryModel, DocumentTemperature),
			Personalization: NewLiteLLMChatModel(cfg, cfg.PersonalizationModel, PersonalizationTemperature),
			SQL:             NewLiteLLMChatModel(cfg, cfg.SQLModel, SQLTemperature),
			Provider:        provider,
		}, nil
	case ProviderGemini, "":
		return newGeminiChatModels(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Complete sends prompt as a single user message and returns the trimmed reply.
func Complete(ctx context.Context, m model.BaseChatModel, prompt string, opts ...model.Option) (string, error) {
	return CompleteMessages(ctx, m, []*schema.Message{schema.UserMessage(prompt)}, opts...)
}

// CompleteMessages generates a reply for an already formatted conversation.
func CompleteMessages(ctx context.Context, m model.BaseChatModel, messages []*schema.Message, opts ...model.Option) (string, error) {
	if m == nil {
		return "", fmt.Errorf("chat model is not configured")
	}
	resp, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Content), nil
}
