// Package ingestion stores uploaded brochures and indexes them into the
// vector store.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	embedx "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/embedding"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/rag"
	store "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/repository"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const defaultBatchSize = 64

// Options tunes the ingestion service.
type Options struct {
	UploadDir         string
	DefaultCollection string
	BatchSize         int
	ChunkSize         int
	ChunkOverlap      int
}

// Upload is a brochure file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Result summarizes one ingestion run.
type Result struct {
	DocumentID     int64  `json:"document_id"`
	ProjectName    string `json:"project_name"`
	ChunksIndexed  int    `json:"chunks_indexed"`
	CollectionName string `json:"collection_name"`
}

type Service struct {
	store    store.Store
	embedder embedding.Embedder
	splitter *Splitter
	opts     Options
}

func NewService(st store.Store, embedder embedding.Embedder, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.DefaultCollection == "" {
		opts.DefaultCollection = rag.DefaultCollection
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	return &Service{
		store:    st,
		embedder: embedder,
		splitter: NewSplitter(opts.ChunkSize, opts.ChunkOverlap),
		opts:     opts,
	}
}

// DetectProjectName finds a project label contained in filename.
func DetectProjectName(filename string) string {
	lowered := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(filename))
	for _, p := range domain.Projects {
		if strings.Contains(lowered, strings.ToLower(string(p))) {
			return string(p)
		}
	}
	return ""
}

// StoreUpload writes the upload under the upload directory and records it.
func (s *Service) StoreUpload(ctx context.Context, up Upload, projectName string, uploadedBy *int64) (*domain.BrochureDocument, error) {
	if projectName == "" {
		projectName = DetectProjectName(up.Filename)
	}
	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(up.Filename))
	path := filepath.Join(s.opts.UploadDir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	hash := sha256.New()
	_, err = io.Copy(io.MultiWriter(f, hash), up.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	doc := &domain.BrochureDocument{
		ProjectName:  projectName,
		OriginalName: filepath.Base(up.Filename),
		FilePath:     path,
		Checksum:     hex.EncodeToString(hash.Sum(nil)),
		ContentType:  up.ContentType,
		Metadata:     map[string]any{},
		UploadedBy:   uploadedBy,
	}
	if err := s.store.CreateBrochureDocument(ctx, doc); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}
	return doc, nil
}

// Ingest loads, splits and embeds doc, replacing its previous chunks.
// Every attempt leaves an ingestion log behind.
func (s *Service) Ingest(ctx context.Context, doc *domain.BrochureDocument) (*Result, error) {
	collection := rag.CollectionName(doc.ProjectName, s.opts.DefaultCollection)
	chunks, err := s.index(ctx, doc, collection)
	if err != nil {
		s.writeLog(ctx, doc.ID, domain.IngestionFailed, err.Error(), 0)
		logx.Error().Err(err).Int64("document_id", doc.ID).Msg("brochure ingestion failed")
		return nil, err
	}

	s.writeLog(ctx, doc.ID, domain.IngestionCompleted,
		fmt.Sprintf("Ingested %d chunks into %s", chunks, collection), chunks)
	logx.Info().Int64("document_id", doc.ID).Str("collection", collection).Int("chunks", chunks).
		Msg("brochure ingested")

	return &Result{
		DocumentID:     doc.ID,
		ProjectName:    doc.ProjectName,
		ChunksIndexed:  chunks,
		CollectionName: collection,
	}, nil
}

func (s *Service) index(ctx context.Context, doc *domain.BrochureDocument, collection string) (int, error) {
	pages, err := LoadPages(doc.FilePath, doc.ContentType)
	if err != nil {
		return 0, err
	}

	var chunks []domain.DocumentChunk
	for _, page := range pages {
		for _, text := range s.splitter.Split(page.Text) {
			chunks = append(chunks, domain.DocumentChunk{
				Collection:  collection,
				DocumentID:  doc.ID,
				ProjectName: doc.ProjectName,
				Source:      doc.OriginalName,
				ChunkIndex:  len(chunks),
				Content:     text,
			})
		}
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no text found in %s", doc.OriginalName)
	}

	for start := 0; start < len(chunks); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		vectors, err := s.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(texts) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		for i, v := range vectors {
			chunks[start+i].Embedding = embedx.ToFloat32(v)
		}
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.DeleteChunksByDocument(ctx, collection, doc.ID); err != nil {
			return fmt.Errorf("failed to delete previous chunks: %w", err)
		}
		if err := tx.AddChunks(ctx, chunks); err != nil {
			return err
		}
		return tx.MarkDocumentIndexed(ctx, doc.ID)
	})
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	doc.LastIndexedAt = &now
	return len(chunks), nil
}

func (s *Service) writeLog(ctx context.Context, documentID int64, status domain.IngestionStatus, detail string, chunks int) {
	entry := &domain.DocumentIngestionLog{
		DocumentID:    documentID,
		Status:        status,
		Detail:        detail,
		ChunksIndexed: chunks,
	}
	if err := s.store.CreateIngestionLog(ctx, entry); err != nil {
		logx.Error().Err(err).Int64("document_id", documentID).Msg("failed to write ingestion log")
	}
}
