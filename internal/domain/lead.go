package domain

import (
	"strconv"
	"strings"
	"time"
)

// Lead is a CRM contact interested in a project.
type Lead struct {
	ID                      int64          `json:"id"`
	UserID                  *int64         `json:"user_id,omitempty"`
	CRMID                   string         `json:"crm_id"`
	FirstName               string         `json:"first_name"`
	LastName                string         `json:"last_name"`
	Email                   string         `json:"email"`
	PhoneNumber             string         `json:"phone_number"`
	ProjectEnquired         ProjectName    `json:"project_enquired"`
	UnitType                UnitType       `json:"unit_type"`
	Status                  LeadStatus     `json:"status"`
	BudgetMin               *float64       `json:"budget_min"`
	BudgetMax               *float64       `json:"budget_max"`
	FamilySize              *int           `json:"family_size"`
	LocationPreference      string         `json:"location_preference"`
	PurchaseMotive          string         `json:"purchase_motive"`
	FinancingReadiness      string         `json:"financing_readiness"`
	ProfileMetadata         map[string]any `json:"profile_metadata"`
	LastConversationDate    *Date          `json:"last_conversation_date"`
	LastConversationSummary string         `json:"last_conversation_summary"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// FullName joins the non-empty name parts with a single space.
func (l *Lead) FullName() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{l.FirstName, l.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// FormatAmount renders a budget bound with two decimals, or "None" when unset.
func FormatAmount(v *float64) string {
	if v == nil {
		return "None"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// MarkConnected moves a not_connected lead to connected and reports whether
// the status changed. Leads further along keep their status.
func (l *Lead) MarkConnected() bool {
	if l.Status != LeadStatusNotConnected {
		return false
	}
	l.Status = LeadStatusConnected
	return true
}

// RecordConversation stores the latest conversation summary. A nil day means today.
func (l *Lead) RecordConversation(summary string, occurredOn *Date) {
	day := Today()
	if occurredOn != nil {
		day = *occurredOn
	}
	l.LastConversationSummary = summary
	l.LastConversationDate = &day
}

// LeadFilter holds the shortlist criteria. Unset fields do not filter.
type LeadFilter struct {
	ProjectNames         []ProjectName `json:"project_names"`
	BudgetMin            *float64      `json:"budget_min"`
	BudgetMax            *float64      `json:"budget_max"`
	UnitTypes            []UnitType    `json:"unit_types"`
	LeadStatus           *LeadStatus   `json:"lead_status"`
	LastConversationFrom *Date         `json:"last_conversation_from"`
	LastConversationTo   *Date         `json:"last_conversation_to"`
}

// ActiveFilters counts the criteria that were provided.
func (f LeadFilter) ActiveFilters() int {
	n := 0
	if len(f.ProjectNames) > 0 {
		n++
	}
	if len(f.UnitTypes) > 0 {
		n++
	}
	for _, set := range []bool{
		f.BudgetMin != nil,
		f.BudgetMax != nil,
		f.LeadStatus != nil,
		f.LastConversationFrom != nil,
		f.LastConversationTo != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Snapshot renders the filter as the JSON object stored on a campaign.
func (f LeadFilter) Snapshot() map[string]any {
	out := map[string]any{}
	if len(f.ProjectNames) > 0 {
		out["project_names"] = f.ProjectNames
	}
	if len(f.UnitTypes) > 0 {
		out["unit_types"] = f.UnitTypes
	}
	if f.BudgetMin != nil {
		out["budget_min"] = *f.BudgetMin
	}
	if f.BudgetMax != nil {
		out["budget_max"] = *f.BudgetMax
	}
	if f.LeadStatus != nil {
		out["lead_status"] = *f.LeadStatus
	}
	if f.LastConversationFrom != nil {
		out["last_conversation_from"] = f.LastConversationFrom.String()
	}
	if f.LastConversationTo != nil {
		out["last_conversation_to"] = f.LastConversationTo.String()
	}
	return out
}
