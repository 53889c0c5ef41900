package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/service"
)

// ShortlistLeads filters leads.
// POST /api/leads/shortlist
func (h *Handler) ShortlistLeads(c echo.Context) error {
	var filter domain.LeadFilter
	if err := bind(c, &filter); err != nil {
		return WriteError(c, err)
	}
	res, err := h.service.Shortlist(c.Request().Context(), filter)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CreateLead adds a lead to the CRM.
// POST /api/leads
func (h *Handler) CreateLead(c echo.Context) error {
	var lead domain.Lead
	if err := bind(c, &lead); err != nil {
		return WriteError(c, err)
	}
	created, err := h.service.CreateLead(c.Request().Context(), &lead)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetLead returns one lead.
// GET /api/leads/:lead_id
func (h *Handler) GetLead(c echo.Context) error {
	id, err := pathID(c, "lead_id")
	if err != nil {
		return WriteError(c, err)
	}
	lead, err := h.service.GetLead(c.Request().Context(), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// RecordConversation logs a sales conversation against a lead.
// POST /api/leads/:lead_id/conversation
func (h *Handler) RecordConversation(c echo.Context) error {
	id, err := pathID(c, "lead_id")
	if err != nil {
		return WriteError(c, err)
	}
	var note service.ConversationNote
	if err := bind(c, &note); err != nil {
		return WriteError(c, err)
	}
	lead, err := h.service.RecordConversation(c.Request().Context(), id, note)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}
