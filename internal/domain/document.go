package domain

import "time"

// BrochureDocument is an uploaded project brochure.
type BrochureDocument struct {
	ID            int64          `json:"id"`
	ProjectName   string         `json:"project_name"`
	OriginalName  string         `json:"original_name"`
	FilePath      string         `json:"file_path"`
	Checksum      string         `json:"checksum"`
	ContentType   string         `json:"content_type"`
	Metadata      map[string]any `json:"metadata"`
	UploadedBy    *int64         `json:"uploaded_by,omitempty"`
	UploadedAt    time.Time      `json:"uploaded_at"`
	LastIndexedAt *time.Time     `json:"last_indexed_at"`
}

// DocumentIngestionLog records one indexing attempt.
type DocumentIngestionLog struct {
	ID            int64           `json:"id"`
	DocumentID    int64           `json:"document_id"`
	Status        IngestionStatus `json:"status"`
	Detail        string          `json:"detail"`
	ChunksIndexed int             `json:"chunks_indexed"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DocumentChunk is a row of the vector store.
type DocumentChunk struct {
	ID          string    `json:"id"`
	Collection  string    `json:"collection"`
	DocumentID  int64     `json:"document_id"`
	ProjectName string    `json:"project_name"`
	Source      string    `json:"source"`
	ChunkIndex  int       `json:"chunk_index"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"-"`
}

// ScoredChunk is a chunk returned by similarity search. Higher scores are closer.
type ScoredChunk struct {
	DocumentChunk
	Score float64 `json:"score"`
}
