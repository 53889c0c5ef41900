// Package rag retrieves brochure context for a project.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"

	embedx "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/embedding"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const (
	DefaultCollection = "projects"
	DefaultLimit      = 4
	// MaxContextChars bounds the context handed to prompts.
	MaxContextChars = 2000
)

// Metadata keys set on retrieved documents.
const (
	MetaSource      = "source"
	MetaProjectName = "project_name"
	MetaDocumentID  = "document_id"
	MetaChunkIndex  = "chunk_index"
	MetaScore       = "score"
)

// CollectionName maps a project to its vector collection.
func CollectionName(project, defaultCollection string) string {
	if project == "" {
		if defaultCollection == "" {
			return DefaultCollection
		}
		return defaultCollection
	}
	return "project_" + strings.ReplaceAll(strings.ToLower(project), " ", "_")
}

// Retriever returns brochure documents for a project and question.
type Retriever interface {
	GetDocuments(ctx context.Context, project, query string, limit int) (*Result, error)
}

// ChunkStore is the part of the store the retriever reads.
type ChunkStore interface {
	SearchChunks(ctx context.Context, collection string, query []float32, limit int) ([]domain.ScoredChunk, error)
	ListChunks(ctx context.Context, collection, projectName string, limit int) ([]domain.DocumentChunk, error)
}

// Result holds the retrieved documents in rank order.
type Result struct {
	Documents []*schema.Document
}

// AsContext joins the document contents and truncates to maxChars runes.
func (r *Result) AsContext(maxChars int) string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		parts = append(parts, d.Content)
	}
	content := strings.Join(parts, "\n\n")
	if runes := []rune(content); maxChars > 0 && len(runes) > maxChars {
		return string(runes[:maxChars])
	}
	return content
}

// Sources lists the source of every document, in order.
func (r *Result) Sources() []string {
	sources := []string{}
	if r == nil {
		return sources
	}
	for _, d := range r.Documents {
		src, _ := d.MetaData[MetaSource].(string)
		sources = append(sources, src)
	}
	return sources
}

// Service is the project retriever backed by the chunk store.
type Service struct {
	store             ChunkStore
	embedder          embedding.Embedder
	defaultCollection string
}

var _ Retriever = (*Service)(nil)

func NewService(store ChunkStore, embedder embedding.Embedder, defaultCollection string) *Service {
	if defaultCollection == "" {
		defaultCollection = DefaultCollection
	}
	return &Service{store: store, embedder: embedder, defaultCollection: defaultCollection}
}

// GetDocuments searches the project collection with progressively broader
// queries, then the default collection, then falls back to raw chunks.
func (s *Service) GetDocuments(ctx context.Context, project, query string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	collection := CollectionName(project, s.defaultCollection)

	docs, err := s.searchWithVariants(ctx, collection, project, query, limit)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 && project != "" {
		logx.Info().Str("project", project).Msg("RAG retrying with default collection")
		docs, err = s.searchWithVariants(ctx, s.defaultCollection, "", query, limit)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			docs, err = s.fallbackDocuments(ctx, s.defaultCollection, project, limit)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(docs) == 0 {
		docs, err = s.fallbackDocuments(ctx, collection, project, limit)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Documents: docs}, nil
}

func queryVariants(project, query string) []string {
	variants := []string{query}
	if project != "" {
		variants = append(variants,
			fmt.Sprintf("%s project brochure highlights amenities features", project),
			fmt.Sprintf("%s brochure amenities location pricing", project),
		)
	}
	return append(variants, "project highlights amenities floorplans pricing location")
}

func (s *Service) searchWithVariants(ctx context.Context, collection, project, query string, limit int) ([]*schema.Document, error) {
	for _, prompt := range queryVariants(project, query) {
		if strings.TrimSpace(prompt) == "" {
			continue
		}
		vec, err := embedx.EmbedOne(ctx, s.embedder, prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		hits, err := s.store.SearchChunks(ctx, collection, vec, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", collection, err)
		}
		if len(hits) > 0 {
			logx.Info().Str("project", project).Str("query", prompt).Int("chunks", len(hits)).
				Msg("RAG retrieval succeeded")
			docs := make([]*schema.Document, 0, len(hits))
			for _, h := range hits {
				doc := toDocument(h.DocumentChunk)
				doc.MetaData[MetaScore] = h.Score
				docs = append(docs, doc)
			}
			return docs, nil
		}
	}
	return nil, nil
}

func (s *Service) fallbackDocuments(ctx context.Context, collection, project string, limit int) ([]*schema.Document, error) {
	logx.Info().Str("project", project).Str("collection", collection).Msg("RAG fallback hit; fetching raw documents")
	chunks, err := s.store.ListChunks(ctx, collection, project, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks of %s: %w", collection, err)
	}
	docs := make([]*schema.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, toDocument(c))
	}
	return docs, nil
}

func toDocument(c domain.DocumentChunk) *schema.Document {
	return &schema.Document{
		ID:      c.ID,
		Content: c.Content,
		MetaData: map[string]any{
			MetaSource:      c.Source,
			MetaProjectName: c.ProjectName,
			MetaDocumentID:  c.DocumentID,
			MetaChunkIndex:  c.ChunkIndex,
		},
	}
}
