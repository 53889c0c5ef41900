// Package embedding provides brochure embedders behind eino's embedding.Embedder.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/llm"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
)

const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Embedders pairs the document-side and query-side embedders of one model.
type Embedders struct {
	Documents embedding.Embedder
	Queries   embedding.Embedder
}

// New builds the embedders selected by cfg. The hashing provider needs no credentials.
func New(ctx context.Context, cfg config.EmbeddingConfig, llmCfg config.LLMConfig) (*Embedders, error) {
	switch strings.ToLower(cfg.Provider) {
	case "hashing", "mock":
		h := NewHashingEmbedder(cfg.Dimensions)
		return &Embedders{Documents: h, Queries: h}, nil
	case "gemini", "":
		client, err := llm.NewGenAIClient(ctx, llmCfg.APIKey, llmCfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return &Embedders{
			Documents: NewGenAIEmbedder(client, cfg.Model, TaskRetrievalDocument, cfg.Dimensions, cfg.BatchSize),
			Queries:   NewGenAIEmbedder(client, cfg.Model, TaskRetrievalQuery, cfg.Dimensions, cfg.BatchSize),
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// ToFloat32 narrows eino's float64 vectors to the stored float32 form.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e embedding.Embedder, text string) ([]float32, error) {
	vectors, err := e.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return ToFloat32(vectors[0]), nil
}
