package domain

import "time"

// Campaign is an outreach run over a set of shortlisted leads.
type Campaign struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	ProjectName    ProjectName    `json:"project_name"`
	MessageChannel MessageChannel `json:"message_channel"`
	OfferDetails   string         `json:"offer_details"`
	Filters        map[string]any `json:"filters"`
	CreatedBy      int64          `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CampaignMetrics are the dashboard counters of a campaign.
type CampaignMetrics struct {
	TotalLeads     int `json:"total_leads"`
	MessagesSent   int `json:"messages_sent"`
	LeadsResponded int `json:"leads_responded"`
	GoalsCompleted int `json:"goals_completed"`
}

// CampaignLead links a lead to a campaign and tracks the follow-up state.
type CampaignLead struct {
	ID                    int64         `json:"id"`
	CampaignID            int64         `json:"campaign_id"`
	LeadID                int64         `json:"lead_id"`
	Lead                  *Lead         `json:"lead,omitempty"`
	ShortlistedAt         time.Time     `json:"shortlisted_at"`
	PersonalizedMessage   string        `json:"personalized_message"`
	DispatchTime          *time.Time    `json:"dispatch_time"`
	Status                MessageStatus `json:"status"`
	GoalOutcome           GoalOutcome   `json:"goal_outcome"`
	ScheduledDatetime     *time.Time    `json:"scheduled_datetime"`
	LastCustomerMessageAt *time.Time    `json:"last_customer_message_at"`
	LastAgentMessageAt    *time.Time    `json:"last_agent_message_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func (cl *CampaignLead) MarkSent(now time.Time) {
	cl.Status = MessageStatusSent
	cl.DispatchTime = &now
}

// MarkPending undoes MarkSent for outreach that never left.
func (cl *CampaignLead) MarkPending() {
	cl.Status = MessageStatusPending
	cl.DispatchTime = nil
}

// MarkResponded records a customer reply. A met goal is never downgraded.
func (cl *CampaignLead) MarkResponded(now time.Time) {
	if cl.Status != MessageStatusGoalMet {
		cl.Status = MessageStatusResponded
	}
	cl.LastCustomerMessageAt = &now
}

func (cl *CampaignLead) MarkGoal(outcome GoalOutcome, scheduledFor *time.Time, now time.Time) {
	cl.GoalOutcome = outcome
	cl.Status = MessageStatusGoalMet
	cl.ScheduledDatetime = scheduledFor
	cl.LastAgentMessageAt = &now
}

func (cl *CampaignLead) MarkAgentReply(now time.Time) {
	cl.LastAgentMessageAt = &now
}

// ConversationMessage is one turn of a campaign lead's follow-up thread.
type ConversationMessage struct {
	ID             int64          `json:"id"`
	CampaignLeadID int64          `json:"campaign_lead_id"`
	Sender         SenderType     `json:"sender"`
	Message        string         `json:"message"`
	Intent         string         `json:"intent"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
}
