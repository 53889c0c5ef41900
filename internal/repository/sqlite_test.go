package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func seedUser(t *testing.T, s *SQLiteStore, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, PasswordHash: "x", IsActive: true}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedLead(t *testing.T, s *SQLiteStore, crmID string, mutate func(*domain.Lead)) *domain.Lead {
	t.Helper()
	lead := &domain.Lead{
		CRMID:           crmID,
		FirstName:       "Lead",
		LastName:        crmID,
		Email:           crmID + "@example.com",
		ProjectEnquired: domain.ProjectSobhaWaves,
		UnitType:        domain.UnitTwoBed,
		BudgetMin:       ptr(500000.0),
		BudgetMax:       ptr(800000.0),
	}
	if mutate != nil {
		mutate(lead)
	}
	require.NoError(t, s.CreateLead(context.Background(), lead))
	return lead
}

func TestSQLiteStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := seedUser(t, s, "alice")
	assert.NotZero(t, u.ID)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)

	missing, err := s.GetUser(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = s.CreateUser(ctx, &domain.User{Username: "alice", PasswordHash: "y"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestSQLiteStoreLeadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	day := domain.NewDate(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))
	lead := seedLead(t, s, "CRM-1", func(l *domain.Lead) {
		l.FamilySize = ptr(4)
		l.ProfileMetadata = map[string]any{"source": "expo"}
		l.LastConversationDate = &day
	})

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.LeadStatusNotConnected, got.Status)
	assert.Equal(t, 500000.0, *got.BudgetMin)
	assert.Equal(t, 4, *got.FamilySize)
	assert.Equal(t, "expo", got.ProfileMetadata["source"])
	require.NotNil(t, got.LastConversationDate)
	assert.Equal(t, "2024-05-10", got.LastConversationDate.String())

	err = s.CreateLead(ctx, &domain.Lead{CRMID: "CRM-1", Email: "other@example.com", FirstName: "X",
		ProjectEnquired: domain.ProjectAltura, UnitType: domain.UnitStudio})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "crm_id", conflict.Field)

	err = s.CreateLead(ctx, &domain.Lead{CRMID: "CRM-2", Email: lead.Email, FirstName: "X",
		ProjectEnquired: domain.ProjectAltura, UnitType: domain.UnitStudio})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "email", conflict.Field)

	require.NoError(t, s.UpdateLeadStatus(ctx, lead.ID, domain.LeadStatusConnected))
	require.NoError(t, s.RecordLeadConversation(ctx, lead.ID, "Asked about payment plans", domain.NewDate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))))
	got, err = s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusConnected, got.Status)
	assert.Equal(t, "Asked about payment plans", got.LastConversationSummary)
	assert.Equal(t, "2024-06-01", got.LastConversationDate.String())

	err = s.UpdateLeadStatus(ctx, 999, domain.LeadStatusConnected)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSQLiteStoreShortlistBudgetOverlap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedLead(t, s, "in-range", nil)
	seedLead(t, s, "no-budget", func(l *domain.Lead) { l.BudgetMin, l.BudgetMax = nil, nil })
	seedLead(t, s, "too-rich", func(l *domain.Lead) { l.BudgetMin, l.BudgetMax = ptr(2000000.0), ptr(3000000.0) })
	seedLead(t, s, "other-project", func(l *domain.Lead) { l.ProjectEnquired = domain.ProjectAltura })

	filter := domain.LeadFilter{
		ProjectNames: []domain.ProjectName{domain.ProjectSobhaWaves},
		BudgetMax:    ptr(900000.0),
	}
	leads, count, err := s.ShortlistLeads(ctx, filter, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ids := map[string]bool{}
	for _, l := range leads {
		ids[l.CRMID] = true
	}
	assert.True(t, ids["in-range"])
	assert.True(t, ids["no-budget"])
}

func TestSQLiteStoreShortlistCapsRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		seedLead(t, s, "crm-"+string(rune('a'+i)), nil)
	}
	status := domain.LeadStatusNotConnected
	leads, count, err := s.ShortlistLeads(ctx, domain.LeadFilter{
		UnitTypes:  []domain.UnitType{domain.UnitTwoBed},
		LeadStatus: &status,
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Len(t, leads, 3)
}

func TestSQLiteStoreCampaignLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner")
	leadA := seedLead(t, s, "A", nil)
	leadB := seedLead(t, s, "B", nil)

	campaign := &domain.Campaign{
		Name:           "Spring",
		ProjectName:    domain.ProjectSobhaWaves,
		MessageChannel: domain.ChannelEmail,
		Filters:        map[string]any{"unit_types": []string{"2 bed"}},
		CreatedBy:      owner.ID,
	}
	require.NoError(t, s.CreateCampaign(ctx, campaign))

	now := time.Now().UTC()
	clA := &domain.CampaignLead{CampaignID: campaign.ID, LeadID: leadA.ID, PersonalizedMessage: "Hi A"}
	clA.MarkSent(now)
	require.NoError(t, s.CreateCampaignLead(ctx, clA))
	clB := &domain.CampaignLead{CampaignID: campaign.ID, LeadID: leadB.ID}
	require.NoError(t, s.CreateCampaignLead(ctx, clB))

	dup := &domain.CampaignLead{CampaignID: campaign.ID, LeadID: leadA.ID}
	assert.True(t, errors.Is(s.CreateCampaignLead(ctx, dup), domain.ErrConflict))

	got, err := s.GetCampaignLead(ctx, clA.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Lead)
	assert.Equal(t, "A", got.Lead.CRMID)
	assert.Equal(t, domain.MessageStatusSent, got.Status)
	require.NotNil(t, got.DispatchTime)

	got.MarkResponded(now)
	got.MarkGoal(domain.GoalVisit, nil, now)
	require.NoError(t, s.UpdateCampaignLead(ctx, got))

	metrics, err := s.GetCampaignMetrics(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignMetrics{TotalLeads: 2, MessagesSent: 1, LeadsResponded: 1, GoalsCompleted: 1}, *metrics)

	list, err := s.ListCampaignsByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []any{"2 bed"}, list[0].Filters["unit_types"])

	leads, err := s.ListCampaignLeads(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Len(t, leads, 2)
}

func TestSQLiteStoreWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner")

	boom := errors.New("dispatch failed")
	err := s.WithTx(ctx, func(tx Store) error {
		c := &domain.Campaign{Name: "Doomed", ProjectName: domain.ProjectAltura, CreatedBy: owner.ID}
		if err := tx.CreateCampaign(ctx, c); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := s.ListCampaignsByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteStoreConversationOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner")
	lead := seedLead(t, s, "A", nil)
	c := &domain.Campaign{Name: "C", ProjectName: domain.ProjectAltura, CreatedBy: owner.ID}
	require.NoError(t, s.CreateCampaign(ctx, c))
	cl := &domain.CampaignLead{CampaignID: c.ID, LeadID: lead.ID}
	require.NoError(t, s.CreateCampaignLead(ctx, cl))

	base := time.Now().UTC()
	require.NoError(t, s.CreateConversationMessage(ctx, &domain.ConversationMessage{
		CampaignLeadID: cl.ID, Sender: domain.SenderCustomer, Message: "second", CreatedAt: base.Add(time.Second),
	}))
	require.NoError(t, s.CreateConversationMessage(ctx, &domain.ConversationMessage{
		CampaignLeadID: cl.ID, Sender: domain.SenderAgent, Message: "first", CreatedAt: base,
		Metadata: map[string]any{"route": "rag"},
	}))

	msgs, err := s.ListConversationMessages(ctx, cl.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "rag", msgs[0].Metadata["route"])
}

func TestSQLiteStoreChunkSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chunks := []domain.DocumentChunk{
		{Collection: "project_altura", DocumentID: 1, ProjectName: "Altura", Source: "a.pdf", ChunkIndex: 0, Content: "pool", Embedding: []float32{1, 0, 0}},
		{Collection: "project_altura", DocumentID: 1, ProjectName: "Altura", Source: "a.pdf", ChunkIndex: 1, Content: "gym", Embedding: []float32{0, 1, 0}},
		{Collection: "projects", DocumentID: 2, ProjectName: "Altura", Source: "b.pdf", ChunkIndex: 0, Content: "other", Embedding: []float32{1, 0, 0}},
	}
	require.NoError(t, s.AddChunks(ctx, chunks))
	assert.NotEmpty(t, chunks[0].ID)

	hits, err := s.SearchChunks(ctx, "project_altura", []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "pool", hits[0].Content)
	assert.InDelta(t, 0.99, hits[0].Score, 0.01)

	raw, err := s.ListChunks(ctx, "projects", "Altura", 10)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "other", raw[0].Content)

	require.NoError(t, s.DeleteChunksByDocument(ctx, "project_altura", 1))
	hits, err = s.SearchChunks(ctx, "project_altura", []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSQLiteStoreQueryReadOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedLead(t, s, "A", nil)
	seedLead(t, s, "B", func(l *domain.Lead) { l.Status = domain.LeadStatusConnected })

	cols, rows, err := s.QueryReadOnly(ctx, "SELECT status, COUNT(*) AS n FROM leads GROUP BY status ORDER BY status", analyticsTables, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "n"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, "connected", rows[0][0])

	_, _, err = s.QueryReadOnly(ctx, "DELETE FROM leads", analyticsTables, 10)
	assert.Error(t, err)

	// The pooled connection must accept writes again afterwards.
	seedLead(t, s, "C", nil)
}

var analyticsTables = []string{"leads", "campaigns", "campaign_leads", "conversation_messages"}

func TestSQLiteStoreQueryReadOnlyTables(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "agent")
	seedLead(t, s, "A", nil)

	denied := []string{
		`SELECT username, password_hash FROM "users"`,
		"SELECT password_hash FROM [users]",
		"SELECT l.crm_id, u.password_hash FROM leads l, users u",
		"SELECT (SELECT password_hash FROM users LIMIT 1) FROM leads",
		"SELECT sql FROM sqlite_master",
		"SELECT name FROM pragma_table_info('users')",
	}
	for _, q := range denied {
		_, rows, err := s.QueryReadOnly(ctx, q, analyticsTables, 10)
		assert.Error(t, err, q)
		assert.Empty(t, rows, q)
	}

	cols, rows, err := s.QueryReadOnly(ctx, `SELECT COUNT(*) AS n FROM "leads" l, campaigns c`, analyticsTables, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0][0])

	_, rows, err = s.QueryReadOnly(ctx, `SELECT crm_id FROM "leads"`, analyticsTables, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0][0])

	// The authorizer is gone once the query returns.
	seedUser(t, s, "second")
}

func TestSQLiteStoreTableColumns(t *testing.T) {
	s := newTestStore(t)
	cols, err := s.TableColumns(context.Background(), "campaign_leads")
	require.NoError(t, err)
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "goal_outcome")

	_, err = s.TableColumns(context.Background(), "leads; DROP TABLE leads")
	assert.Error(t, err)
}
