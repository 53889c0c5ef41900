package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/ingestion"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/service"
)

// AgentQuery asks the agent about a campaign lead.
// POST /api/agent/query
func (h *Handler) AgentQuery(c echo.Context) error {
	var req service.AgentQuery
	if err := bind(c, &req); err != nil {
		return WriteError(c, err)
	}
	answer, err := h.service.QueryAgent(c.Request().Context(), currentUser(c).ID, req)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, answer)
}

// AgentThread returns the recent agent turns of a campaign lead.
// GET /api/agent/threads/:campaign_lead_id?limit=
func (h *Handler) AgentThread(c echo.Context) error {
	campaignLeadID, err := pathID(c, "campaign_lead_id")
	if err != nil {
		return WriteError(c, err)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return WriteError(c, errx.BadRequest(domain.ErrValidation, "limit must be a positive integer."))
		}
	}
	turns, err := h.service.Thread(c.Request().Context(), currentUser(c).ID, campaignLeadID, limit)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, turns)
}

// UploadDocuments ingests multipart "files" into the brochure index.
// POST /api/agent/documents/upload?project_name=
func (h *Handler) UploadDocuments(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return WriteError(c, errx.BadRequest(err, "Expected a multipart form with files."))
	}
	files := form.File["files"]
	if len(files) == 0 {
		return WriteError(c, errx.BadRequest(domain.ErrValidation, "No files were provided."))
	}

	uploads := make([]ingestion.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return WriteError(c, errx.BadRequest(err, fmt.Sprintf("Failed to ingest %s: %v", fh.Filename, err)))
		}
		defer f.Close()
		uploads = append(uploads, ingestion.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Body:        f,
		})
	}

	results, err := h.service.UploadDocuments(c.Request().Context(), currentUser(c).ID, uploads, c.QueryParam("project_name"))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, results)
}
