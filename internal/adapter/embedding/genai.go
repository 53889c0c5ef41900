package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"
)

// GenAIEmbedder generates embeddings using Google's Gemini API.
type GenAIEmbedder struct {
	client     *genai.Client
	model      string
	taskType   string
	dimensions int
	batchSize  int
}

var _ embedding.Embedder = (*GenAIEmbedder)(nil)

func NewGenAIEmbedder(client *genai.Client, model, taskType string, dimensions, batchSize int) *GenAIEmbedder {
	if model == "" {
		model = "gemini-embedding-001"
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	return &GenAIEmbedder{client: client, model: model, taskType: taskType, dimensions: dimensions, batchSize: batchSize}
}

// EmbedStrings embeds texts in batches of batchSize.
func (e *GenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := e.model
	options := embedding.GetCommonOptions(&embedding.Options{Model: &model}, opts...)

	cfg := &genai.EmbedContentConfig{TaskType: e.taskType}
	if e.dimensions > 0 {
		dims := int32(e.dimensions)
		cfg.OutputDimensionality = &dims
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		result, err := e.client.Models.EmbedContent(ctx, *options.Model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("GenAI batch embed failed: %w", err)
		}
		if len(result.Embeddings) != end-start {
			return nil, fmt.Errorf("GenAI returned %d embeddings for %d texts", len(result.Embeddings), end-start)
		}
		for _, emb := range result.Embeddings {
			vec := make([]float64, len(emb.Values))
			for i, v := range emb.Values {
				vec[i] = float64(v)
			}
			out = append(out, vec)
		}
	}
	return out, nil
}
