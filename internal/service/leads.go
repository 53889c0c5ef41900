package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	store "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/repository"
)

const (
	minShortlistFilters = 2

	msgTooFewFilters = "Please select at least 2 filter fields before shortlisting leads."
	msgNotFound      = "Not found."
)

// ShortlistResult is the shortlist response. Count covers every match.
type ShortlistResult struct {
	Count int           `json:"count"`
	Leads []domain.Lead `json:"leads"`
}

// Shortlist returns the leads matching at least two filter criteria.
func (s *Service) Shortlist(ctx context.Context, filter domain.LeadFilter) (*ShortlistResult, error) {
	if filter.ActiveFilters() < minShortlistFilters {
		return nil, errx.BadRequest(domain.ErrValidation, msgTooFewFilters)
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	leads, count, err := s.store.ShortlistLeads(ctx, filter, store.MaxShortlistRows)
	if err != nil {
		return nil, fmt.Errorf("failed to shortlist leads: %w", err)
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	return &ShortlistResult{Count: count, Leads: leads}, nil
}

func validateFilter(f domain.LeadFilter) error {
	for _, p := range f.ProjectNames {
		if !p.Valid() {
			return errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid project.", p))
		}
	}
	for _, u := range f.UnitTypes {
		if !u.Valid() {
			return errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid unit type.", u))
		}
	}
	if f.LeadStatus != nil && !f.LeadStatus.Valid() {
		return errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid lead status.", *f.LeadStatus))
	}
	if f.BudgetMin != nil && f.BudgetMax != nil && *f.BudgetMin > *f.BudgetMax {
		return errx.BadRequest(domain.ErrValidation, "budget_min cannot exceed budget_max.")
	}
	return nil
}

// CreateLead validates and stores a new lead.
func (s *Service) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	lead.CRMID = strings.TrimSpace(lead.CRMID)
	switch {
	case lead.CRMID == "":
		return nil, errx.BadRequest(domain.ErrValidation, "crm_id is required.")
	case strings.TrimSpace(lead.FirstName) == "":
		return nil, errx.BadRequest(domain.ErrValidation, "first_name is required.")
	case !lead.ProjectEnquired.Valid():
		return nil, errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid project.", lead.ProjectEnquired))
	case !lead.UnitType.Valid():
		return nil, errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid unit type.", lead.UnitType))
	case lead.Status != "" && !lead.Status.Valid():
		return nil, errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid lead status.", lead.Status))
	}
	if lead.ProfileMetadata == nil {
		lead.ProfileMetadata = map[string]any{}
	}
	lead.ID = 0

	if err := s.store.CreateLead(ctx, lead); err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) && conflict.Field == "email" {
			return nil, errx.BadRequest(err, "lead with this email already exists.")
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, errx.BadRequest(err, "lead with this crm id already exists.")
		}
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

func (s *Service) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if lead == nil {
		return nil, errx.NotFound(domain.ErrNotFound, msgNotFound)
	}
	return lead, nil
}

// ConversationNote is a sales conversation summary logged against a lead.
type ConversationNote struct {
	Summary    string       `json:"summary" validate:"required"`
	OccurredOn *domain.Date `json:"occurred_on"`
}

// RecordConversation stores the latest conversation summary on a lead.
func (s *Service) RecordConversation(ctx context.Context, id int64, note ConversationNote) (*domain.Lead, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	lead.RecordConversation(note.Summary, note.OccurredOn)
	if err := s.store.RecordLeadConversation(ctx, lead.ID, lead.LastConversationSummary, *lead.LastConversationDate); err != nil {
		return nil, fmt.Errorf("failed to record conversation: %w", err)
	}
	return s.GetLead(ctx, id)
}
