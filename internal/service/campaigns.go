package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/dispatch"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/personalization"
	store "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/repository"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const (
	defaultGenerationWorkers = 4

	msgNoLeadsSelected = "Select at least one lead to create a campaign."
)

// CreateCampaignRequest starts a campaign over shortlisted leads.
type CreateCampaignRequest struct {
	Name            string                `json:"name" validate:"required,max=255"`
	ProjectName     domain.ProjectName    `json:"project_name" validate:"required"`
	MessageChannel  domain.MessageChannel `json:"message_channel"`
	OfferDetails    string                `json:"offer_details"`
	LeadIDs         []int64               `json:"lead_ids"`
	FiltersSnapshot map[string]any        `json:"filters_snapshot"`
}

// CampaignDetail is a campaign with its campaign leads.
type CampaignDetail struct {
	domain.Campaign
	Leads []domain.CampaignLead `json:"leads"`
}

// Dashboard is the campaign overview returned to the operator.
type Dashboard struct {
	Campaign domain.Campaign        `json:"campaign"`
	Metrics  domain.CampaignMetrics `json:"metrics"`
	Leads    []domain.CampaignLead  `json:"leads"`
}

// ConversationThread is the lead behind a campaign lead and the messages
// exchanged with it, oldest first.
type ConversationThread struct {
	Lead     *domain.Lead                 `json:"lead"`
	Messages []domain.ConversationMessage `json:"messages"`
}

// CreateCampaign personalizes a message for every lead, then stores the
// campaign and dispatches the outreach in one transaction. Queued outreach is
// handed off after the commit instead. Any failure is a 400 carrying the
// error text.
func (s *Service) CreateCampaign(ctx context.Context, userID int64, req CreateCampaignRequest) (*CampaignDetail, error) {
	detail, err := s.createCampaign(ctx, userID, req)
	if err != nil {
		var appErr *errx.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, errx.BadRequest(err, err.Error())
	}
	return detail, nil
}

func (s *Service) createCampaign(ctx context.Context, userID int64, req CreateCampaignRequest) (*CampaignDetail, error) {
	ids := uniqueIDs(req.LeadIDs)
	if len(ids) == 0 {
		return nil, errx.BadRequest(domain.ErrValidation, msgNoLeadsSelected)
	}
	if !req.ProjectName.Valid() {
		return nil, errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid project.", req.ProjectName))
	}
	if req.MessageChannel == "" {
		req.MessageChannel = domain.ChannelEmail
	}
	if !req.MessageChannel.Valid() {
		return nil, errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid message channel.", req.MessageChannel))
	}

	leads, err := s.store.GetLeadsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	if missing := missingIDs(ids, leads); len(missing) > 0 {
		return nil, errx.BadRequest(domain.ErrNotFound, "Lead IDs not found: "+joinIDs(missing))
	}

	campaign := &domain.Campaign{
		Name:           req.Name,
		ProjectName:    req.ProjectName,
		MessageChannel: req.MessageChannel,
		OfferDetails:   req.OfferDetails,
		Filters:        req.FiltersSnapshot,
		CreatedBy:      userID,
	}

	messages, err := s.personalize(ctx, campaign, leads)
	if err != nil {
		return nil, err
	}

	_, handoff := s.dispatcher.(dispatch.Handoff)
	detail := &CampaignDetail{Leads: make([]domain.CampaignLead, 0, len(leads))}
	var sent []domain.ConversationMessage
	var pending []dispatch.Outreach
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		detail.Leads = detail.Leads[:0]
		sent = sent[:0]
		pending = pending[:0]
		if err := tx.CreateCampaign(ctx, campaign); err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}
		now := s.now()
		for i := range leads {
			lead := &leads[i]
			msg := messages[i]

			cl := &domain.CampaignLead{
				CampaignID:          campaign.ID,
				LeadID:              lead.ID,
				Lead:                lead,
				ShortlistedAt:       now,
				PersonalizedMessage: msg.Body,
			}
			cl.MarkSent(now)
			if err := tx.CreateCampaignLead(ctx, cl); err != nil {
				return fmt.Errorf("failed to add lead %d to campaign: %w", lead.ID, err)
			}

			outreach, err := dispatch.NewOutreach(s.targets, campaign, lead, cl.ID, msg.Body)
			if err != nil {
				return err
			}

			cm := &domain.ConversationMessage{
				CampaignLeadID: cl.ID,
				Sender:         domain.SenderAgent,
				Message:        msg.Body,
				Metadata: map[string]any{
					"sources": msg.Sources,
					"context": msg.ContextSnippet,
					"sent_to": outreach.Recipient,
				},
			}
			if err := tx.CreateConversationMessage(ctx, cm); err != nil {
				return fmt.Errorf("failed to store outreach message: %w", err)
			}

			if handoff {
				pending = append(pending, outreach)
			} else if err := s.dispatcher.Dispatch(ctx, outreach); err != nil {
				return err
			}
			detail.Leads = append(detail.Leads, *cl)
			sent = append(sent, *cm)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("campaign", req.Name).Int("leads", len(leads)).Msg("campaign creation rolled back")
		return nil, err
	}

	detail.Campaign = *campaign
	s.handOff(ctx, detail, pending)
	logx.Info().Int64("campaign_id", campaign.ID).Str("channel", string(campaign.MessageChannel)).
		Int("leads", len(detail.Leads)).Msg("campaign created")
	s.publishMessages(campaign.ID, sent...)
	return detail, nil
}

// handOff passes committed outreach on, in lead order. A lead whose
// outreach could not be handed off goes back to pending.
func (s *Service) handOff(ctx context.Context, detail *CampaignDetail, pending []dispatch.Outreach) {
	for i, o := range pending {
		err := s.dispatcher.Dispatch(ctx, o)
		if err == nil {
			continue
		}
		logx.Error().Err(err).Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).
			Msg("outreach handoff failed after commit")
		cl := &detail.Leads[i]
		cl.MarkPending()
		if err := s.store.UpdateCampaignLead(ctx, cl); err != nil {
			logx.Error().Err(err).Int64("campaign_lead_id", cl.ID).Msg("failed to reset campaign lead to pending")
		}
	}
}

// personalize generates one message per lead with bounded concurrency.
func (s *Service) personalize(ctx context.Context, campaign *domain.Campaign, leads []domain.Lead) ([]*personalization.Message, error) {
	workers := defaultGenerationWorkers
	if s.config != nil && s.config.Agent.GenerationWorkers > 0 {
		workers = s.config.Agent.GenerationWorkers
	}

	messages := make([]*personalization.Message, len(leads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range leads {
		g.Go(func() error {
			msg, err := s.personalizer.Generate(gctx, campaign, &leads[i], campaign.OfferDetails)
			if err != nil {
				return fmt.Errorf("failed to personalize message for lead %d: %w", leads[i].ID, err)
			}
			messages[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return messages, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func missingIDs(ids []int64, leads []domain.Lead) []int64 {
	found := make(map[int64]bool, len(leads))
	for _, l := range leads {
		found[l.ID] = true
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return missing
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

// ListCampaigns returns the caller's campaigns, newest first.
func (s *Service) ListCampaigns(ctx context.Context, userID int64) ([]domain.Campaign, error) {
	campaigns, err := s.store.ListCampaignsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}
	return campaigns, nil
}

// Campaign returns a campaign owned by userID, or a 404.
func (s *Service) Campaign(ctx context.Context, userID, campaignID int64) (*domain.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if c == nil || c.CreatedBy != userID {
		return nil, errx.NotFound(domain.ErrNotFound, msgNotFound)
	}
	return c, nil
}

func (s *Service) Dashboard(ctx context.Context, userID, campaignID int64) (*Dashboard, error) {
	c, err := s.Campaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	metrics, err := s.store.GetCampaignMetrics(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute campaign metrics: %w", err)
	}
	leads, err := s.store.ListCampaignLeads(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign leads: %w", err)
	}
	return &Dashboard{Campaign: *c, Metrics: *metrics, Leads: leads}, nil
}

// Conversation returns the thread of a campaign lead that belongs to campaignID.
func (s *Service) Conversation(ctx context.Context, userID, campaignID, campaignLeadID int64) (*ConversationThread, error) {
	if _, err := s.Campaign(ctx, userID, campaignID); err != nil {
		return nil, err
	}
	cl, err := s.store.GetCampaignLead(ctx, campaignLeadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign lead: %w", err)
	}
	if cl == nil || cl.CampaignID != campaignID {
		return nil, errx.NotFound(domain.ErrNotFound, msgNotFound)
	}
	messages, err := s.store.ListConversationMessages(ctx, cl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if messages == nil {
		messages = []domain.ConversationMessage{}
	}
	return &ConversationThread{Lead: cl.Lead, Messages: messages}, nil
}

// ownedCampaignLead loads a campaign lead whose campaign userID owns.
func (s *Service) ownedCampaignLead(ctx context.Context, userID, campaignLeadID int64) (*domain.CampaignLead, *domain.Campaign, error) {
	cl, err := s.store.GetCampaignLead(ctx, campaignLeadID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get campaign lead: %w", err)
	}
	if cl == nil {
		return nil, nil, errx.NotFound(domain.ErrNotFound, msgNotFound)
	}
	c, err := s.Campaign(ctx, userID, cl.CampaignID)
	if err != nil {
		return nil, nil, err
	}
	return cl, c, nil
}
