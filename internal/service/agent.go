package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/agent"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

const (
	defaultThreadLimit = 20

	msgNoAgentResponse = "Unable to generate agent response."
)

// AgentQuery asks the agent a question about a campaign lead.
type AgentQuery struct {
	CampaignLeadID int64  `json:"campaign_lead_id" validate:"required"`
	Query          string `json:"query" validate:"required"`
}

// AgentAnswer is the agent reply with whatever the chosen route produced.
type AgentAnswer struct {
	Route   domain.Route `json:"route"`
	Reply   string       `json:"reply"`
	SQL     *string      `json:"sql"`
	Rows    []domain.Row `json:"rows"`
	Sources []string     `json:"sources"`
}

// QueryAgent runs the router graph for a campaign lead the caller owns.
func (s *Service) QueryAgent(ctx context.Context, userID int64, q AgentQuery) (*AgentAnswer, error) {
	cl, campaign, err := s.ownedCampaignLead(ctx, userID, q.CampaignLeadID)
	if err != nil {
		return nil, err
	}

	resp, err := s.agent.Run(ctx, agent.Request{
		Query:          q.Query,
		Lead:           cl.Lead,
		Campaign:       campaign,
		CampaignLeadID: cl.ID,
		ThreadID:       agent.ThreadID(cl.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run agent: %w", err)
	}

	reply := resp.Reply()
	if reply == "" {
		return nil, errx.New(nil, http.StatusInternalServerError, msgNoAgentResponse)
	}

	out := &AgentAnswer{
		Route:   resp.Route,
		Reply:   reply,
		Rows:    resp.Rows,
		Sources: nonNil(resp.Sources),
	}
	if resp.SQL != "" {
		out.SQL = &resp.SQL
	}
	if out.Rows == nil {
		out.Rows = []domain.Row{}
	}
	return out, nil
}

// Thread returns the recent agent turns of a campaign lead the caller owns.
func (s *Service) Thread(ctx context.Context, userID, campaignLeadID int64, limit int) ([]agent.Turn, error) {
	cl, _, err := s.ownedCampaignLead(ctx, userID, campaignLeadID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultThreadLimit
	}
	turns, err := s.threads.Thread(ctx, agent.ThreadID(cl.ID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent thread: %w", err)
	}
	if turns == nil {
		turns = []agent.Turn{}
	}
	return turns, nil
}
