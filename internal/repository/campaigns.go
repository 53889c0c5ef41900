package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

const campaignColumns = `id, name, project_name, message_channel, offer_details, filters, created_by, created_at, updated_at`

// CreateCampaign inserts a campaign and sets its ID.
func (s *SQLiteStore) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	if c.MessageChannel == "" {
		c.MessageChannel = domain.ChannelEmail
	}
	if c.Filters == nil {
		c.Filters = map[string]any{}
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO campaigns (name, project_name, message_channel, offer_details, filters, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.ProjectName, c.MessageChannel, c.OfferDetails, marshalJSON(c.Filters), c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// GetCampaign retrieves a campaign by ID.
func (s *SQLiteStore) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, err := scanCampaign(s.q.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaignsByUser returns the campaigns a user created, newest first.
func (s *SQLiteStore) ListCampaignsByUser(ctx context.Context, userID int64) ([]domain.Campaign, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE created_by = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// GetCampaignMetrics aggregates the dashboard counters of a campaign.
func (s *SQLiteStore) GetCampaignMetrics(ctx context.Context, campaignID int64) (*domain.CampaignMetrics, error) {
	var m domain.CampaignMetrics
	err := s.q.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN personalized_message <> '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN goal_outcome IN (?, ?) THEN 1 ELSE 0 END), 0)
		FROM campaign_leads WHERE campaign_id = ?`,
		domain.MessageStatusResponded, domain.MessageStatusGoalMet,
		domain.GoalCall, domain.GoalVisit,
		campaignID,
	).Scan(&m.TotalLeads, &m.MessagesSent, &m.LeadsResponded, &m.GoalsCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate campaign metrics: %w", err)
	}
	return &m, nil
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var c domain.Campaign
	var filters sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.ProjectName, &c.MessageChannel, &c.OfferDetails, &filters,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Filters = unmarshalJSON(filters)
	return &c, nil
}

const campaignLeadColumns = `cl.id, cl.campaign_id, cl.lead_id, cl.shortlisted_at, cl.personalized_message,
	cl.dispatch_time, cl.status, cl.goal_outcome, cl.scheduled_datetime,
	cl.last_customer_message_at, cl.last_agent_message_at, cl.updated_at`

// CreateCampaignLead inserts a campaign lead. The pair (campaign, lead) is unique.
func (s *SQLiteStore) CreateCampaignLead(ctx context.Context, cl *domain.CampaignLead) error {
	now := time.Now().UTC()
	if cl.ShortlistedAt.IsZero() {
		cl.ShortlistedAt = now
	}
	cl.UpdatedAt = now
	if cl.Status == "" {
		cl.Status = domain.MessageStatusPending
	}
	if cl.GoalOutcome == "" {
		cl.GoalOutcome = domain.GoalNone
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO campaign_leads (campaign_id, lead_id, shortlisted_at, personalized_message, dispatch_time,
			status, goal_outcome, scheduled_datetime, last_customer_message_at, last_agent_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cl.CampaignID, cl.LeadID, cl.ShortlistedAt, cl.PersonalizedMessage, cl.DispatchTime,
		cl.Status, cl.GoalOutcome, cl.ScheduledDatetime, cl.LastCustomerMessageAt, cl.LastAgentMessageAt, cl.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lead %d already in campaign %d: %w", cl.LeadID, cl.CampaignID, domain.ErrConflict)
		}
		return err
	}
	cl.ID, err = res.LastInsertId()
	return err
}

// GetCampaignLead retrieves a campaign lead with its lead loaded.
func (s *SQLiteStore) GetCampaignLead(ctx context.Context, id int64) (*domain.CampaignLead, error) {
	cl, err := scanCampaignLead(s.q.QueryRowContext(ctx,
		`SELECT `+campaignLeadColumns+`, `+prefixed("l", leadColumns)+`
		FROM campaign_leads cl JOIN leads l ON l.id = cl.lead_id WHERE cl.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// ListCampaignLeads returns the leads of a campaign in shortlist order.
func (s *SQLiteStore) ListCampaignLeads(ctx context.Context, campaignID int64) ([]domain.CampaignLead, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+campaignLeadColumns+`, `+prefixed("l", leadColumns)+`
		FROM campaign_leads cl JOIN leads l ON l.id = cl.lead_id
		WHERE cl.campaign_id = ? ORDER BY cl.shortlisted_at ASC, cl.id ASC`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CampaignLead{}
	for rows.Next() {
		cl, err := scanCampaignLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cl)
	}
	return out, rows.Err()
}

// UpdateCampaignLead persists the follow-up state of a campaign lead.
func (s *SQLiteStore) UpdateCampaignLead(ctx context.Context, cl *domain.CampaignLead) error {
	cl.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`UPDATE campaign_leads SET personalized_message = ?, dispatch_time = ?, status = ?, goal_outcome = ?,
			scheduled_datetime = ?, last_customer_message_at = ?, last_agent_message_at = ?, updated_at = ?
		WHERE id = ?`,
		cl.PersonalizedMessage, cl.DispatchTime, cl.Status, cl.GoalOutcome,
		cl.ScheduledDatetime, cl.LastCustomerMessageAt, cl.LastAgentMessageAt, cl.UpdatedAt, cl.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, "campaign lead", cl.ID)
}

// campaignLeadRow adapts a row so the campaign lead and lead columns scan in one pass.
type campaignLeadRow struct {
	row  rowScanner
	dest []any
}

func (r *campaignLeadRow) Scan(dest ...any) error {
	return r.row.Scan(append(r.dest, dest...)...)
}

func scanCampaignLead(row rowScanner) (*domain.CampaignLead, error) {
	var (
		cl           domain.CampaignLead
		dispatchTime sql.NullTime
		scheduled    sql.NullTime
		lastCustomer sql.NullTime
		lastAgent    sql.NullTime
	)
	wrapped := &campaignLeadRow{row: row, dest: []any{
		&cl.ID, &cl.CampaignID, &cl.LeadID, &cl.ShortlistedAt, &cl.PersonalizedMessage,
		&dispatchTime, &cl.Status, &cl.GoalOutcome, &scheduled,
		&lastCustomer, &lastAgent, &cl.UpdatedAt,
	}}
	lead, err := scanLead(wrapped)
	if err != nil {
		return nil, err
	}
	cl.Lead = lead
	cl.DispatchTime = nullTime(dispatchTime)
	cl.ScheduledDatetime = nullTime(scheduled)
	cl.LastCustomerMessageAt = nullTime(lastCustomer)
	cl.LastAgentMessageAt = nullTime(lastAgent)
	return &cl, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
