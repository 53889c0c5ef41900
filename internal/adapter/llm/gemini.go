package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

// NewGenAIClient creates the Gemini API client shared by chat and embeddings.
func NewGenAIClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY must be configured for Gemini access")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

func newGeminiChatModels(ctx context.Context, cfg config.LLMConfig) (*ChatModels, error) {
	client, err := NewGenAIClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	build := func(role, modelName string, temperature float32) (*gemini.ChatModel, error) {
		maxTokens := cfg.MaxTokens
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       modelName,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			logx.Error().Err(err).Str("role", role).Msg("Error creating Gemini chat model")
			return nil, fmt.Errorf("error creating %s model: %w", role, err)
		}
		return cm, nil
	}

	router, err := build("router", cfg.RouterModel, RouterTemperature)
	if err != nil {
		return nil, err
	}
	docs, err := build("document", cfg.DocumentQueryModel, DocumentTemperature)
	if err != nil {
		return nil, err
	}
	personalization, err := build("personalization", cfg.PersonalizationModel, PersonalizationTemperature)
	if err != nil {
		return nil, err
	}
	sqlModel, err := build("t2sql", cfg.SQLModel, SQLTemperature)
	if err != nil {
		return nil, err
	}

	return &ChatModels{
		Router:          router,
		Documents:       docs,
		Personalization: personalization,
		SQL:             sqlModel,
		Provider:        ProviderGemini,
	}, nil
}
