package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

const leadColumns = `id, user_id, crm_id, first_name, last_name, email, phone_number,
	project_enquired, unit_type, status, budget_min, budget_max, family_size,
	location_preference, purchase_motive, financing_readiness, profile_metadata,
	last_conversation_date, last_conversation_summary, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateLead inserts a lead and sets its ID and timestamps.
func (s *SQLiteStore) CreateLead(ctx context.Context, lead *domain.Lead) error {
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = now
	}
	if lead.Status == "" {
		lead.Status = domain.LeadStatusNotConnected
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO leads (user_id, crm_id, first_name, last_name, email, phone_number,
			project_enquired, unit_type, status, budget_min, budget_max, family_size,
			location_preference, purchase_motive, financing_readiness, profile_metadata,
			last_conversation_date, last_conversation_summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.UserID, lead.CRMID, lead.FirstName, lead.LastName, lead.Email, lead.PhoneNumber,
		lead.ProjectEnquired, lead.UnitType, lead.Status, lead.BudgetMin, lead.BudgetMax, lead.FamilySize,
		lead.LocationPreference, lead.PurchaseMotive, lead.FinancingReadiness, marshalJSON(lead.ProfileMetadata),
		lead.LastConversationDate, lead.LastConversationSummary, lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lead %q: %w", lead.CRMID, &domain.ConflictError{Field: uniqueColumn(err)})
		}
		return err
	}
	lead.ID, err = res.LastInsertId()
	return err
}

// GetLead retrieves a lead by ID.
func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	lead, err := scanLead(s.q.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// GetLeadsByIDs returns the leads that exist among ids, newest update first.
func (s *SQLiteStore) GetLeadsByIDs(ctx context.Context, ids []int64) ([]domain.Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryLeads(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id IN (`+placeholders(len(ids))+`) ORDER BY updated_at DESC, id DESC`,
		args...)
}

// ShortlistLeads returns up to limit matching leads and the total match count.
func (s *SQLiteStore) ShortlistLeads(ctx context.Context, filter domain.LeadFilter, limit int) ([]domain.Lead, int, error) {
	where, args := shortlistWhere(filter)

	var count int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}
	if limit <= 0 || limit > MaxShortlistRows {
		limit = MaxShortlistRows
	}
	leads, err := s.queryLeads(ctx,
		`SELECT `+leadColumns+` FROM leads`+where+` ORDER BY updated_at DESC, id DESC LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, 0, err
	}
	return leads, count, nil
}

func shortlistWhere(f domain.LeadFilter) (string, []any) {
	var clauses []string
	var args []any

	if len(f.ProjectNames) > 0 {
		clauses = append(clauses, "project_enquired IN ("+placeholders(len(f.ProjectNames))+")")
		for _, p := range f.ProjectNames {
			args = append(args, string(p))
		}
	}
	if len(f.UnitTypes) > 0 {
		clauses = append(clauses, "unit_type IN ("+placeholders(len(f.UnitTypes))+")")
		for _, u := range f.UnitTypes {
			args = append(args, string(u))
		}
	}
	if f.LeadStatus != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*f.LeadStatus))
	}
	if f.LastConversationFrom != nil {
		clauses = append(clauses, "last_conversation_date >= ?")
		args = append(args, f.LastConversationFrom.String())
	}
	if f.LastConversationTo != nil {
		clauses = append(clauses, "last_conversation_date <= ?")
		args = append(args, f.LastConversationTo.String())
	}
	if f.BudgetMin != nil || f.BudgetMax != nil {
		lo, hi := 0.0, math.MaxFloat64
		if f.BudgetMin != nil {
			lo = *f.BudgetMin
		}
		if f.BudgetMax != nil {
			hi = *f.BudgetMax
		}
		// Leads with no budget at all stay in; otherwise the ranges must overlap.
		clauses = append(clauses,
			"((budget_min IS NULL AND budget_max IS NULL) OR (budget_min <= ? AND budget_max >= ?))")
		args = append(args, hi, lo)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// UpdateLeadStatus sets the funnel status of a lead.
func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id int64, status domain.LeadStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "lead", id)
}

// RecordLeadConversation stores the latest conversation summary and day.
func (s *SQLiteStore) RecordLeadConversation(ctx context.Context, id int64, summary string, on domain.Date) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE leads SET last_conversation_summary = ?, last_conversation_date = ?, updated_at = ? WHERE id = ?`,
		summary, on, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "lead", id)
}

func (s *SQLiteStore) queryLeads(ctx context.Context, query string, args ...any) ([]domain.Lead, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var (
		lead       domain.Lead
		userID     sql.NullInt64
		budgetMin  sql.NullFloat64
		budgetMax  sql.NullFloat64
		familySize sql.NullInt64
		metadata   sql.NullString
		lastDate   sql.NullString
	)
	err := row.Scan(&lead.ID, &userID, &lead.CRMID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.PhoneNumber,
		&lead.ProjectEnquired, &lead.UnitType, &lead.Status, &budgetMin, &budgetMax, &familySize,
		&lead.LocationPreference, &lead.PurchaseMotive, &lead.FinancingReadiness, &metadata,
		&lastDate, &lead.LastConversationSummary, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		lead.UserID = &userID.Int64
	}
	if budgetMin.Valid {
		lead.BudgetMin = &budgetMin.Float64
	}
	if budgetMax.Valid {
		lead.BudgetMax = &budgetMax.Float64
	}
	if familySize.Valid {
		n := int(familySize.Int64)
		lead.FamilySize = &n
	}
	lead.ProfileMetadata = unmarshalJSON(metadata)
	if lastDate.Valid && lastDate.String != "" {
		var d domain.Date
		if err := d.Scan(lastDate.String); err == nil {
			lead.LastConversationDate = &d
		}
	}
	return &lead, nil
}

func requireAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
