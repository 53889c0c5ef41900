package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

const chunkColumns = `id, collection, document_id, project_name, source, chunk_index, content`

// DeleteChunksByDocument drops a document's chunks from a collection.
func (s *SQLiteStore) DeleteChunksByDocument(ctx context.Context, collection string, documentID int64) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM document_chunks WHERE collection = ? AND document_id = ?`, collection, documentID)
	return err
}

// AddChunks inserts chunks, assigning IDs to those without one.
func (s *SQLiteStore) AddChunks(ctx context.Context, chunks []domain.DocumentChunk) error {
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO document_chunks (id, collection, document_id, project_name, source, chunk_index, content, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Collection, c.DocumentID, c.ProjectName, c.Source, c.ChunkIndex, c.Content,
			encodeFloat32Slice(c.Embedding)); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// SearchChunks returns the limit chunks of collection closest to query by cosine similarity.
func (s *SQLiteStore) SearchChunks(ctx context.Context, collection string, query []float32, limit int) ([]domain.ScoredChunk, error) {
	if len(query) == 0 || limit <= 0 {
		return nil, nil
	}
	if s.vec {
		return s.searchChunksVec(ctx, collection, query, limit)
	}
	return s.searchChunksScan(ctx, collection, query, limit)
}

func (s *SQLiteStore) searchChunksVec(ctx context.Context, collection string, query []float32, limit int) ([]domain.ScoredChunk, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+chunkColumns+`, vec_distance_cosine(embedding, ?) AS distance
		FROM document_chunks
		WHERE collection = ? AND embedding IS NOT NULL AND length(embedding) = ?
		ORDER BY distance ASC
		LIMIT ?`,
		encodeFloat32Slice(query), collection, len(query)*4, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredChunk
	for rows.Next() {
		var sc domain.ScoredChunk
		var distance float64
		if err := rows.Scan(&sc.ID, &sc.Collection, &sc.DocumentID, &sc.ProjectName, &sc.Source,
			&sc.ChunkIndex, &sc.Content, &distance); err != nil {
			return nil, err
		}
		sc.Score = 1 - distance
		out = append(out, sc)
	}
	return out, rows.Err()
}

// searchChunksScan ranks every chunk of the collection in process.
func (s *SQLiteStore) searchChunksScan(ctx context.Context, collection string, query []float32, limit int) ([]domain.ScoredChunk, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+chunkColumns+`, embedding FROM document_chunks WHERE collection = ? AND embedding IS NOT NULL`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var scored []domain.ScoredChunk
	for rows.Next() {
		var sc domain.ScoredChunk
		var blob []byte
		if err := rows.Scan(&sc.ID, &sc.Collection, &sc.DocumentID, &sc.ProjectName, &sc.Source,
			&sc.ChunkIndex, &sc.Content, &blob); err != nil {
			return nil, err
		}
		vec := decodeFloat32Slice(blob)
		if len(vec) != len(query) {
			continue
		}
		sc.Score = cosineSimilarity(query, vec)
		scored = append(scored, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// ListChunks returns raw chunks of a collection in document order. An empty
// projectName matches every chunk.
func (s *SQLiteStore) ListChunks(ctx context.Context, collection, projectName string, limit int) ([]domain.DocumentChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE collection = ?`
	args := []any{collection}
	if projectName != "" {
		query += ` AND project_name = ?`
		args = append(args, projectName)
	}
	query += ` ORDER BY document_id ASC, chunk_index ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		if err := rows.Scan(&c.ID, &c.Collection, &c.DocumentID, &c.ProjectName, &c.Source, &c.ChunkIndex, &c.Content); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// encodeFloat32Slice encodes a vector as the little-endian blob sqlite-vec reads.
func encodeFloat32Slice(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil
	}
	return buf.Bytes()
}

func decodeFloat32Slice(blob []byte) []float32 {
	if len(blob)%4 != 0 {
		return nil
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
