package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/agent"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/auth"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/dispatch"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/ingestion"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/personalization"
	store "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/repository"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/tests/helpers"
)

type stubPersonalizer struct {
	err error
}

func (p *stubPersonalizer) Generate(_ context.Context, campaign *domain.Campaign, lead *domain.Lead, _ string) (*personalization.Message, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &personalization.Message{
		Body:           "Hi " + lead.FirstName + ", news about " + string(campaign.ProjectName),
		Sources:        []string{"brochure.pdf"},
		ContextSnippet: "Beach access",
	}, nil
}

type stubRunner struct {
	mu   sync.Mutex
	resp *agent.Response
	err  error
	reqs []agent.Request
}

func (r *stubRunner) Run(_ context.Context, req agent.Request) (*agent.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return r.resp, nil
}

type stubDispatcher struct {
	mu   sync.Mutex
	sent []dispatch.Outreach
	err  error
}

func (d *stubDispatcher) Dispatch(_ context.Context, o dispatch.Outreach) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, o)
	return nil
}

// queueDispatcher is a stubDispatcher that hands outreach to another process.
type queueDispatcher struct {
	stubDispatcher
}

func (*queueDispatcher) Handoff() {}

// failingMessages fails the failOn-th conversation message written in a transaction.
type failingMessages struct {
	store.Store
	failOn int
	calls  *int
}

func (f failingMessages) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return f.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(failingMessages{Store: tx, failOn: f.failOn, calls: f.calls})
	})
}

func (f failingMessages) CreateConversationMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	*f.calls++
	if *f.calls == f.failOn {
		return errors.New("disk full")
	}
	return f.Store.CreateConversationMessage(ctx, msg)
}

type stubThreads struct {
	threadID string
	turns    []agent.Turn
}

func (s *stubThreads) Thread(_ context.Context, threadID string, _ int) ([]agent.Turn, error) {
	s.threadID = threadID
	return s.turns, nil
}

type stubIngester struct {
	err error
}

func (s *stubIngester) StoreUpload(_ context.Context, up ingestion.Upload, projectName string, _ *int64) (*domain.BrochureDocument, error) {
	return &domain.BrochureDocument{ID: 7, ProjectName: projectName, OriginalName: up.Filename}, nil
}

func (s *stubIngester) Ingest(_ context.Context, doc *domain.BrochureDocument) (*ingestion.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ingestion.Result{DocumentID: doc.ID, ProjectName: doc.ProjectName, ChunksIndexed: 3, CollectionName: "project_altura"}, nil
}

type stubFeed struct {
	mu     sync.Mutex
	events []FeedEvent
}

func (f *stubFeed) Publish(_ string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, v.(FeedEvent))
	return nil
}

type testEnv struct {
	svc        *Service
	store      *store.SQLiteStore
	runner     *stubRunner
	dispatcher *stubDispatcher
	threads    *stubThreads
	ingester   *stubIngester
	feed       *stubFeed
	user       *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := helpers.NewTestSQLiteStore(t)
	cfg := &config.Config{
		Auth:  config.AuthConfig{JWTSecret: "test-secret", AccessTTL: 5 * time.Minute, RefreshTTL: 24 * time.Hour},
		Email: config.EmailConfig{OverrideEmail: "qa@example.com"},
		Agent: config.AgentConfig{GenerationWorkers: 2},
	}
	env := &testEnv{
		store:      st,
		runner:     &stubRunner{resp: &agent.Response{Route: domain.RouteRAG, Answer: "It has a pool.", Sources: []string{"a.pdf"}}},
		dispatcher: &stubDispatcher{},
		threads:    &stubThreads{},
		ingester:   &stubIngester{},
		feed:       &stubFeed{},
	}
	env.svc = New(Deps{
		Store:        st,
		Config:       cfg,
		Issuer:       auth.NewIssuer(cfg.Auth),
		Personalizer: &stubPersonalizer{},
		Agent:        env.runner,
		Threads:      env.threads,
		Dispatcher:   env.dispatcher,
		Ingestion:    env.ingester,
		Feed:         env.feed,
	})
	env.user = helpers.SeedUser(t, st, "operator")
	return env
}

// seedCampaign creates a one-lead campaign through the service.
func (e *testEnv) seedCampaign(t *testing.T) (*CampaignDetail, *domain.Lead) {
	t.Helper()
	lead := helpers.SeedLead(t, e.store, "CRM-1", nil)
	detail, err := e.svc.CreateCampaign(context.Background(), e.user.ID, CreateCampaignRequest{
		Name:        "Spring launch",
		ProjectName: domain.ProjectSobhaWaves,
		LeadIDs:     []int64{lead.ID},
	})
	require.NoError(t, err)
	return detail, lead
}

func requireStatus(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	gotStatus, gotMessage := errx.StatusAndMessage(err)
	assert.Equal(t, status, gotStatus)
	if message != "" {
		assert.Equal(t, message, gotMessage)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tokens, err := env.svc.Login(ctx, "operator", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Access)
	assert.NotEmpty(t, tokens.Refresh)

	user, err := env.svc.Authenticate(ctx, tokens.Access)
	require.NoError(t, err)
	assert.Equal(t, env.user.ID, user.ID)

	refreshed, err := env.svc.RefreshToken(ctx, tokens.Refresh)
	require.NoError(t, err)
	assert.Equal(t, tokens.Refresh, refreshed.Refresh)
	assert.NotEmpty(t, refreshed.Access)

	_, err = env.svc.Login(ctx, "operator", "wrong")
	requireStatus(t, err, 401, "Invalid credentials")

	_, err = env.svc.RefreshToken(ctx, tokens.Access)
	requireStatus(t, err, 401, "Invalid refresh token")

	_, err = env.svc.Authenticate(ctx, tokens.Refresh)
	requireStatus(t, err, 401, "")
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.svc.CreateUser(ctx, "manager", "m@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	_, err = env.svc.CreateUser(ctx, "manager", "m@example.com", "pw")
	requireStatus(t, err, 400, "")
}

func TestShortlistRequiresTwoFilters(t *testing.T) {
	env := newTestEnv(t)
	status := domain.LeadStatusNotConnected

	_, err := env.svc.Shortlist(context.Background(), domain.LeadFilter{LeadStatus: &status})
	requireStatus(t, err, 400, "Please select at least 2 filter fields before shortlisting leads.")
}

func TestShortlist(t *testing.T) {
	env := newTestEnv(t)
	helpers.SeedLead(t, env.store, "CRM-1", nil)
	helpers.SeedLead(t, env.store, "CRM-2", func(l *domain.Lead) { l.UnitType = domain.UnitPenthouse })
	status := domain.LeadStatusNotConnected

	res, err := env.svc.Shortlist(context.Background(), domain.LeadFilter{
		LeadStatus: &status,
		UnitTypes:  []domain.UnitType{domain.UnitTwoBed},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, "CRM-1", res.Leads[0].CRMID)
}

func TestCreateLeadDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := func() *domain.Lead {
		return &domain.Lead{CRMID: "CRM-9", FirstName: "Ravi", Email: "ravi@example.com", ProjectEnquired: domain.ProjectAltura, UnitType: domain.UnitStudio}
	}

	created, err := env.svc.CreateLead(ctx, lead())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.LeadStatusNotConnected, created.Status)

	sameCRM := lead()
	sameCRM.Email = "ravi.k@example.com"
	_, err = env.svc.CreateLead(ctx, sameCRM)
	requireStatus(t, err, 400, "lead with this crm id already exists.")

	sameEmail := lead()
	sameEmail.CRMID = "CRM-11"
	_, err = env.svc.CreateLead(ctx, sameEmail)
	requireStatus(t, err, 400, "lead with this email already exists.")

	bad := lead()
	bad.CRMID = "CRM-10"
	bad.UnitType = "castle"
	_, err = env.svc.CreateLead(ctx, bad)
	requireStatus(t, err, 400, "")
}

func TestRecordConversation(t *testing.T) {
	env := newTestEnv(t)
	lead := helpers.SeedLead(t, env.store, "CRM-1", nil)
	day := domain.NewDate(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))

	got, err := env.svc.RecordConversation(context.Background(), lead.ID, ConversationNote{Summary: "Wants sea view", OccurredOn: &day})
	require.NoError(t, err)
	assert.Equal(t, "Wants sea view", got.LastConversationSummary)
	require.NotNil(t, got.LastConversationDate)
	assert.Equal(t, "2025-04-02", got.LastConversationDate.String())

	_, err = env.svc.RecordConversation(context.Background(), 999, ConversationNote{Summary: "x"})
	requireStatus(t, err, 404, "")
}

func TestCreateCampaignValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := helpers.SeedLead(t, env.store, "CRM-1", nil)

	_, err := env.svc.CreateCampaign(ctx, env.user.ID, CreateCampaignRequest{Name: "x", ProjectName: domain.ProjectAltura})
	requireStatus(t, err, 400, "Select at least one lead to create a campaign.")

	_, err = env.svc.CreateCampaign(ctx, env.user.ID, CreateCampaignRequest{
		Name:        "x",
		ProjectName: domain.ProjectAltura,
		LeadIDs:     []int64{9, lead.ID, 3},
	})
	requireStatus(t, err, 400, "Lead IDs not found: 3, 9")
}

func TestCreateCampaign(t *testing.T) {
	env := newTestEnv(t)
	detail, lead := env.seedCampaign(t)

	assert.NotZero(t, detail.ID)
	require.Len(t, detail.Leads, 1)
	cl := detail.Leads[0]
	assert.Equal(t, domain.MessageStatusSent, cl.Status)
	assert.NotNil(t, cl.DispatchTime)
	assert.Equal(t, "Hi Asha, news about Sobha Waves", cl.PersonalizedMessage)
	require.NotNil(t, cl.Lead)
	assert.Equal(t, lead.ID, cl.Lead.ID)

	require.Len(t, env.dispatcher.sent, 1)
	o := env.dispatcher.sent[0]
	assert.Equal(t, domain.ChannelEmail, o.Channel)
	assert.Equal(t, "qa@example.com", o.Recipient)
	assert.Equal(t, "[Sobha Waves] Personalized follow-up for Asha Menon", o.Subject)

	msgs, err := env.store.ListConversationMessages(context.Background(), cl.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.SenderAgent, msgs[0].Sender)
	assert.Equal(t, "qa@example.com", msgs[0].Metadata["sent_to"])
	assert.Equal(t, "Beach access", msgs[0].Metadata["context"])

	require.Len(t, env.feed.events, 1)
	assert.Equal(t, detail.ID, env.feed.events[0].CampaignID)
}

func TestCreateCampaignRollsBackOnDispatchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.err = errors.New("smtp unavailable")
	lead := helpers.SeedLead(t, env.store, "CRM-1", nil)

	_, err := env.svc.CreateCampaign(context.Background(), env.user.ID, CreateCampaignRequest{
		Name:        "x",
		ProjectName: domain.ProjectAltura,
		LeadIDs:     []int64{lead.ID},
	})
	requireStatus(t, err, 400, "smtp unavailable")

	campaigns, err := env.svc.ListCampaigns(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, campaigns)
	assert.Empty(t, env.feed.events)
}

func TestCreateCampaignQueuesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	queue := &queueDispatcher{}
	env.svc.dispatcher = queue
	first := helpers.SeedLead(t, env.store, "CRM-1", nil)
	second := helpers.SeedLead(t, env.store, "CRM-2", nil)
	req := CreateCampaignRequest{Name: "x", ProjectName: domain.ProjectAltura, LeadIDs: []int64{first.ID, second.ID}}

	env.svc.store = failingMessages{Store: env.store, failOn: 2, calls: new(int)}
	_, err := env.svc.CreateCampaign(context.Background(), env.user.ID, req)
	requireStatus(t, err, 400, "failed to store outreach message: disk full")
	assert.Empty(t, queue.sent)

	env.svc.store = env.store
	detail, err := env.svc.CreateCampaign(context.Background(), env.user.ID, req)
	require.NoError(t, err)
	require.Len(t, queue.sent, 2)
	assert.Equal(t, detail.Leads[0].ID, queue.sent[0].CampaignLeadID)
	assert.Equal(t, detail.Leads[1].ID, queue.sent[1].CampaignLeadID)
}

func TestCreateCampaignQueueFailureLeavesLeadPending(t *testing.T) {
	env := newTestEnv(t)
	env.svc.dispatcher = &queueDispatcher{stubDispatcher{err: errors.New("broker closed")}}
	lead := helpers.SeedLead(t, env.store, "CRM-1", nil)

	detail, err := env.svc.CreateCampaign(context.Background(), env.user.ID, CreateCampaignRequest{
		Name:        "x",
		ProjectName: domain.ProjectAltura,
		LeadIDs:     []int64{lead.ID},
	})
	require.NoError(t, err)
	require.Len(t, detail.Leads, 1)
	assert.Equal(t, domain.MessageStatusPending, detail.Leads[0].Status)
	assert.Nil(t, detail.Leads[0].DispatchTime)

	cl, err := env.store.GetCampaignLead(context.Background(), detail.Leads[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusPending, cl.Status)
}

func TestCreateCampaignWithoutEmailOverride(t *testing.T) {
	env := newTestEnv(t)
	env.svc.targets = dispatch.Targets{}
	lead := helpers.SeedLead(t, env.store, "CRM-1", nil)

	_, err := env.svc.CreateCampaign(context.Background(), env.user.ID, CreateCampaignRequest{
		Name:        "x",
		ProjectName: domain.ProjectAltura,
		LeadIDs:     []int64{lead.ID},
	})
	requireStatus(t, err, 400, dispatch.ErrEmailOverrideMissing.Error())
}

func TestDashboardOwnership(t *testing.T) {
	env := newTestEnv(t)
	detail, _ := env.seedCampaign(t)
	other := helpers.SeedUser(t, env.store, "intruder")
	ctx := context.Background()

	dash, err := env.svc.Dashboard(ctx, env.user.ID, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Metrics.TotalLeads)
	assert.Equal(t, 1, dash.Metrics.MessagesSent)
	assert.Len(t, dash.Leads, 1)

	_, err = env.svc.Dashboard(ctx, other.ID, detail.ID)
	requireStatus(t, err, 404, "")

	list, err := env.svc.ListCampaigns(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConversationRequiresMatchingCampaign(t *testing.T) {
	env := newTestEnv(t)
	detail, lead := env.seedCampaign(t)
	clID := detail.Leads[0].ID
	ctx := context.Background()

	thread, err := env.svc.Conversation(ctx, env.user.ID, detail.ID, clID)
	require.NoError(t, err)
	assert.Len(t, thread.Messages, 1)
	require.NotNil(t, thread.Lead)
	assert.Equal(t, lead.ID, thread.Lead.ID)
	assert.Equal(t, "Asha", thread.Lead.FirstName)

	_, err = env.svc.Conversation(ctx, env.user.ID, detail.ID+1, clID)
	requireStatus(t, err, 404, "")
}

func TestHandleCustomerMessageBooksVisit(t *testing.T) {
	env := newTestEnv(t)
	detail, lead := env.seedCampaign(t)
	clID := detail.Leads[0].ID
	at := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)

	reply, err := env.svc.HandleCustomerMessage(context.Background(), env.user.ID, clID, CustomerMessage{
		CustomerMessage:  "Can I book a tour? Or maybe a call.",
		ProposedSchedule: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GoalVisit, reply.Intent)
	assert.Equal(t, domain.GoalVisit, reply.GoalOutcome)
	assert.Equal(t, "Wonderful news, Asha! I've reserved a property viewing for Monday, 02 June at 15:30 at Sobha Waves. "+
		"Our sales team will confirm the details over email shortly.", reply.Reply)
	assert.Empty(t, env.runner.reqs)

	cl, err := env.store.GetCampaignLead(context.Background(), clID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusGoalMet, cl.Status)
	assert.Equal(t, domain.GoalVisit, cl.GoalOutcome)
	require.NotNil(t, cl.ScheduledDatetime)

	got, err := env.store.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusConnected, got.Status)

	msgs, err := env.store.ListConversationMessages(context.Background(), clID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.SenderCustomer, msgs[1].Sender)
	assert.Equal(t, "goal_confirmation", msgs[2].Metadata["route"])
}

func TestHandleCustomerMessageKeepsAdvancedLeadStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := helpers.SeedLead(t, env.store, "CRM-1", func(l *domain.Lead) { l.Status = domain.LeadStatusPurchased })
	detail, err := env.svc.CreateCampaign(ctx, env.user.ID, CreateCampaignRequest{
		Name:        "Owners club",
		ProjectName: domain.ProjectSobhaWaves,
		LeadIDs:     []int64{lead.ID},
	})
	require.NoError(t, err)

	_, err = env.svc.HandleCustomerMessage(ctx, env.user.ID, detail.Leads[0].ID, CustomerMessage{
		CustomerMessage: "Does it have a pool?",
	})
	require.NoError(t, err)

	got, err := env.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusPurchased, got.Status)
}

func TestHandleCustomerMessageRequestedCall(t *testing.T) {
	env := newTestEnv(t)
	detail, _ := env.seedCampaign(t)
	goal := domain.GoalCall

	reply, err := env.svc.HandleCustomerMessage(context.Background(), env.user.ID, detail.Leads[0].ID, CustomerMessage{
		CustomerMessage: "Sounds good",
		RequestedGoal:   &goal,
	})
	require.NoError(t, err)
	assert.Equal(t, "Great, Asha! I've scheduled a call for the earliest available slot to walk you through Sobha Waves. "+
		"A sales advisor will reach out from the official line.", reply.Reply)
	assert.Nil(t, reply.ScheduledTime)
}

func TestHandleCustomerMessageAsksAgent(t *testing.T) {
	env := newTestEnv(t)
	detail, _ := env.seedCampaign(t)
	clID := detail.Leads[0].ID

	reply, err := env.svc.HandleCustomerMessage(context.Background(), env.user.ID, clID, CustomerMessage{
		CustomerMessage: "Does it have a pool?",
	})
	require.NoError(t, err)
	assert.Equal(t, "It has a pool.", reply.Reply)
	assert.Equal(t, domain.GoalNone, reply.Intent)
	require.Len(t, env.runner.reqs, 1)
	assert.Equal(t, agent.ThreadID(clID), env.runner.reqs[0].ThreadID)

	cl, err := env.store.GetCampaignLead(context.Background(), clID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusResponded, cl.Status)
	assert.NotNil(t, cl.LastAgentMessageAt)

	// one outreach event plus the customer message and the reply
	assert.Len(t, env.feed.events, 3)
}

func TestHandleCustomerMessageFallsBack(t *testing.T) {
	env := newTestEnv(t)
	detail, _ := env.seedCampaign(t)
	env.runner.err = errors.New("model offline")

	reply, err := env.svc.HandleCustomerMessage(context.Background(), env.user.ID, detail.Leads[0].ID, CustomerMessage{
		CustomerMessage: "Hello?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Thank you for reaching out. I'll get back to you shortly.", reply.Reply)
}

func TestQueryAgent(t *testing.T) {
	env := newTestEnv(t)
	detail, _ := env.seedCampaign(t)
	clID := detail.Leads[0].ID
	ctx := context.Background()

	env.runner.resp = &agent.Response{
		Route:   domain.RouteT2SQL,
		SQL:     "SELECT 1",
		Message: "The lead count is 7.",
		Rows:    []domain.Row{{Columns: []string{"lead_count"}, Values: []any{int64(7)}}},
	}
	answer, err := env.svc.QueryAgent(ctx, env.user.ID, AgentQuery{CampaignLeadID: clID, Query: "how many leads?"})
	require.NoError(t, err)
	assert.Equal(t, "The lead count is 7.", answer.Reply)
	require.NotNil(t, answer.SQL)
	assert.Equal(t, "SELECT 1", *answer.SQL)
	assert.Empty(t, answer.Sources)

	env.runner.resp = &agent.Response{Route: domain.RouteRAG}
	_, err = env.svc.QueryAgent(ctx, env.user.ID, AgentQuery{CampaignLeadID: clID, Query: "hi"})
	requireStatus(t, err, 500, "Unable to generate agent response.")

	other := helpers.SeedUser(t, env.store, "intruder")
	_, err = env.svc.QueryAgent(ctx, other.ID, AgentQuery{CampaignLeadID: clID, Query: "hi"})
	requireStatus(t, err, 404, "")
}

func TestThread(t *testing.T) {
	env := newTestEnv(t)
	detail, _ := env.seedCampaign(t)

	turns, err := env.svc.Thread(context.Background(), env.user.ID, detail.Leads[0].ID, 0)
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Equal(t, agent.ThreadID(detail.Leads[0].ID), env.threads.threadID)
}

func TestUploadDocuments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	results, err := env.svc.UploadDocuments(ctx, env.user.ID, []ingestion.Upload{{Filename: "altura.pdf"}}, "Altura")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].ChunksIndexed)

	env.ingester.err = errors.New("no text")
	_, err = env.svc.UploadDocuments(ctx, env.user.ID, []ingestion.Upload{{Filename: "altura.pdf"}}, "Altura")
	requireStatus(t, err, 400, "Failed to ingest altura.pdf: no text")

	_, err = env.svc.UploadDocuments(ctx, env.user.ID, nil, "")
	requireStatus(t, err, 400, "")
}

func TestDetectGoal(t *testing.T) {
	cases := map[string]domain.GoalOutcome{
		"I'd like to SEE THE PROPERTY":     domain.GoalVisit,
		"can we discuss pricing":           domain.GoalCall,
		"call me or arrange a viewing":     domain.GoalVisit,
		"what amenities are there?":        domain.GoalNone,
		"Please phone me after 6pm, thank": domain.GoalCall,
	}
	for msg, want := range cases {
		assert.Equal(t, want, DetectGoal(msg), msg)
	}
}
