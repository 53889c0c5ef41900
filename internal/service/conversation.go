package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/agent"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	store "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/repository"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const (
	scheduleLayout      = "Monday, 02 January at 15:04"
	defaultScheduleText = "the earliest available slot"
	fallbackReply       = "Thank you for reaching out. I'll get back to you shortly."
	routeGoalConfirm    = "goal_confirmation"
)

var (
	visitKeywords = []string{"visit", "tour", "viewing", "see the property", "schedule a visit"}
	callKeywords  = []string{"call", "phone", "discuss", "speak"}
)

// CustomerMessage is a reply received from a lead.
type CustomerMessage struct {
	CustomerMessage  string              `json:"customer_message" validate:"required"`
	RequestedGoal    *domain.GoalOutcome `json:"requested_goal"`
	ProposedSchedule *time.Time          `json:"proposed_schedule"`
}

// AgentReply is what the agent answered a customer message with.
type AgentReply struct {
	Reply         string             `json:"reply"`
	Intent        domain.GoalOutcome `json:"intent"`
	GoalOutcome   domain.GoalOutcome `json:"goal_outcome"`
	ScheduledTime *time.Time         `json:"scheduled_time"`
}

// DetectGoal finds a visit or call request in message. Visit wins over call.
func DetectGoal(message string) domain.GoalOutcome {
	lowered := strings.ToLower(message)
	for _, kw := range visitKeywords {
		if strings.Contains(lowered, kw) {
			return domain.GoalVisit
		}
	}
	for _, kw := range callKeywords {
		if strings.Contains(lowered, kw) {
			return domain.GoalCall
		}
	}
	return domain.GoalNone
}

// ScheduleText renders a proposed schedule for a confirmation reply.
func ScheduleText(at *time.Time) string {
	if at == nil {
		return defaultScheduleText
	}
	return at.Format(scheduleLayout)
}

// GoalConfirmation is the reply sent once a visit or call is booked.
func GoalConfirmation(goal domain.GoalOutcome, lead *domain.Lead, project domain.ProjectName, at *time.Time) string {
	schedule := ScheduleText(at)
	if goal == domain.GoalVisit {
		return fmt.Sprintf("Wonderful news, %s! I've reserved a property viewing for %s at %s. "+
			"Our sales team will confirm the details over email shortly.", lead.FirstName, schedule, project)
	}
	return fmt.Sprintf("Great, %s! I've scheduled a call for %s to walk you through %s. "+
		"A sales advisor will reach out from the official line.", lead.FirstName, schedule, project)
}

// HandleCustomerMessage records a lead's reply and answers it. A visit or
// call request is booked and confirmed; anything else goes to the agent.
func (s *Service) HandleCustomerMessage(ctx context.Context, userID, campaignLeadID int64, in CustomerMessage) (*AgentReply, error) {
	cl, campaign, err := s.ownedCampaignLead(ctx, userID, campaignLeadID)
	if err != nil {
		return nil, err
	}

	goal := DetectGoal(in.CustomerMessage)
	if in.RequestedGoal != nil && *in.RequestedGoal != "" {
		goal = *in.RequestedGoal
	}
	if !goal.Valid() {
		return nil, errx.BadRequest(domain.ErrValidation, fmt.Sprintf("%q is not a valid goal.", goal))
	}

	reply := &AgentReply{Intent: domain.GoalNone, GoalOutcome: domain.GoalNone}
	agentMeta := map[string]any{}
	if goal != domain.GoalNone {
		reply.Reply = GoalConfirmation(goal, cl.Lead, campaign.ProjectName, in.ProposedSchedule)
		reply.Intent = goal
		reply.GoalOutcome = goal
		reply.ScheduledTime = in.ProposedSchedule
		agentMeta["route"] = routeGoalConfirm
	} else {
		resp := s.askAgent(ctx, cl, campaign, in.CustomerMessage)
		reply.Reply = resp.Reply()
		if reply.Reply == "" {
			reply.Reply = fallbackReply
		}
		agentMeta["route"] = string(resp.Route)
		agentMeta["sources"] = nonNil(resp.Sources)
		agentMeta["sql"] = resp.SQL
	}

	var stored []domain.ConversationMessage
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		now := s.now()
		customer := &domain.ConversationMessage{
			CampaignLeadID: cl.ID,
			Sender:         domain.SenderCustomer,
			Message:        in.CustomerMessage,
			Intent:         string(goal),
			CreatedAt:      now,
		}
		if err := tx.CreateConversationMessage(ctx, customer); err != nil {
			return fmt.Errorf("failed to store customer message: %w", err)
		}

		cl.MarkResponded(now)
		if cl.Lead != nil && cl.Lead.MarkConnected() {
			if err := tx.UpdateLeadStatus(ctx, cl.LeadID, cl.Lead.Status); err != nil {
				return fmt.Errorf("failed to update lead status: %w", err)
			}
		}
		if goal != domain.GoalNone {
			cl.MarkGoal(goal, in.ProposedSchedule, now)
		} else {
			cl.MarkAgentReply(now)
		}

		answer := &domain.ConversationMessage{
			CampaignLeadID: cl.ID,
			Sender:         domain.SenderAgent,
			Message:        reply.Reply,
			Intent:         string(reply.Intent),
			Metadata:       agentMeta,
			CreatedAt:      now,
		}
		if err := tx.CreateConversationMessage(ctx, answer); err != nil {
			return fmt.Errorf("failed to store agent reply: %w", err)
		}
		if err := tx.UpdateCampaignLead(ctx, cl); err != nil {
			return fmt.Errorf("failed to update campaign lead: %w", err)
		}
		stored = []domain.ConversationMessage{*customer, *answer}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logx.Info().Int64("campaign_id", campaign.ID).Int64("campaign_lead_id", cl.ID).
		Str("goal", string(goal)).Msg("customer message handled")
	s.publishMessages(campaign.ID, stored...)
	return reply, nil
}

// askAgent runs the agent on a customer message. Failures degrade to an
// empty response so the caller falls back to the holding reply.
func (s *Service) askAgent(ctx context.Context, cl *domain.CampaignLead, campaign *domain.Campaign, question string) *agent.Response {
	resp, err := s.agent.Run(ctx, agent.Request{
		Query:          question,
		Lead:           cl.Lead,
		Campaign:       campaign,
		CampaignLeadID: cl.ID,
		ThreadID:       agent.ThreadID(cl.ID),
	})
	if err != nil {
		logx.Error().Err(err).Int64("campaign_lead_id", cl.ID).Msg("agent failed to answer customer message")
		return &agent.Response{}
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
