package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

// CreateBrochureDocument records an uploaded brochure.
func (s *SQLiteStore) CreateBrochureDocument(ctx context.Context, doc *domain.BrochureDocument) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO brochure_documents (project_name, original_name, file_path, checksum, content_type, metadata, uploaded_by, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ProjectName, doc.OriginalName, doc.FilePath, doc.Checksum, doc.ContentType,
		marshalJSON(doc.Metadata), doc.UploadedBy, doc.UploadedAt)
	if err != nil {
		return err
	}
	doc.ID, err = res.LastInsertId()
	return err
}

// GetBrochureDocument retrieves a brochure by ID.
func (s *SQLiteStore) GetBrochureDocument(ctx context.Context, id int64) (*domain.BrochureDocument, error) {
	var (
		doc        domain.BrochureDocument
		metadata   sql.NullString
		uploadedBy sql.NullInt64
		indexedAt  sql.NullTime
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT id, project_name, original_name, file_path, checksum, content_type, metadata, uploaded_by, uploaded_at, last_indexed_at
		FROM brochure_documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.ProjectName, &doc.OriginalName, &doc.FilePath, &doc.Checksum, &doc.ContentType,
			&metadata, &uploadedBy, &doc.UploadedAt, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc.Metadata = unmarshalJSON(metadata)
	if uploadedBy.Valid {
		doc.UploadedBy = &uploadedBy.Int64
	}
	doc.LastIndexedAt = nullTime(indexedAt)
	return &doc, nil
}

// MarkDocumentIndexed stamps last_indexed_at.
func (s *SQLiteStore) MarkDocumentIndexed(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE brochure_documents SET last_indexed_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "document", id)
}

// CreateIngestionLog records the outcome of an indexing run.
func (s *SQLiteStore) CreateIngestionLog(ctx context.Context, log *domain.DocumentIngestionLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO document_ingestion_logs (document_id, status, detail, chunks_indexed, created_at) VALUES (?, ?, ?, ?, ?)`,
		log.DocumentID, log.Status, log.Detail, log.ChunksIndexed, log.CreatedAt)
	if err != nil {
		return err
	}
	log.ID, err = res.LastInsertId()
	return err
}

// ListIngestionLogs returns the indexing history of a document, newest first.
func (s *SQLiteStore) ListIngestionLogs(ctx context.Context, documentID int64) ([]domain.DocumentIngestionLog, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, document_id, status, detail, chunks_indexed, created_at
		FROM document_ingestion_logs WHERE document_id = ? ORDER BY created_at DESC, id DESC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.DocumentIngestionLog
	for rows.Next() {
		var l domain.DocumentIngestionLog
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Status, &l.Detail, &l.ChunksIndexed, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
