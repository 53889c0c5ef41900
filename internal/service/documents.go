package service

import (
	"context"
	"fmt"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/ingestion"
)

// UploadDocuments stores and indexes each brochure in turn. The first
// failure stops the batch.
func (s *Service) UploadDocuments(ctx context.Context, userID int64, uploads []ingestion.Upload, projectName string) ([]ingestion.Result, error) {
	if len(uploads) == 0 {
		return nil, errx.BadRequest(domain.ErrValidation, "No files were provided.")
	}

	results := make([]ingestion.Result, 0, len(uploads))
	for _, up := range uploads {
		res, err := s.ingestOne(ctx, userID, up, projectName)
		if err != nil {
			return nil, errx.BadRequest(err, fmt.Sprintf("Failed to ingest %s: %v", up.Filename, err))
		}
		results = append(results, *res)
	}
	return results, nil
}

func (s *Service) ingestOne(ctx context.Context, userID int64, up ingestion.Upload, projectName string) (*ingestion.Result, error) {
	doc, err := s.ingestion.StoreUpload(ctx, up, projectName, &userID)
	if err != nil {
		return nil, err
	}
	return s.ingestion.Ingest(ctx, doc)
}
