package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/llm"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/rag"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/t2sql"
)

type stubSQL struct {
	result *t2sql.Result
	asked  []string
}

func (s *stubSQL) Answer(_ context.Context, question string) (*t2sql.Result, error) {
	s.asked = append(s.asked, question)
	return s.result, nil
}

type stubRetriever struct{ docs []*schema.Document }

func (s stubRetriever) GetDocuments(context.Context, string, string, int) (*rag.Result, error) {
	return &rag.Result{Documents: s.docs}, nil
}

func newTestAgent(t *testing.T, sql *stubSQL, opts ...llm.MockOption) *Agent {
	t.Helper()
	model := llm.NewMockChatModel(opts...)
	retriever := stubRetriever{docs: []*schema.Document{
		{Content: "Panoramic skyline views and an infinity pool.", MetaData: map[string]any{rag.MetaSource: "altura.pdf"}},
	}}
	a, err := New(context.Background(), Config{
		Router:    NewRouter(model),
		SQL:       sql,
		Documents: NewDocumentAnswerTool(retriever, model, 4),
	})
	require.NoError(t, err)
	return a
}

func TestRouterDecide(t *testing.T) {
	ctx := context.Background()

	r := NewRouter(llm.NewMockChatModel())
	assert.Equal(t, domain.RouteT2SQL, r.Decide(ctx, "How many leads are connected?"))
	assert.Equal(t, domain.RouteRAG, r.Decide(ctx, "Does the tower have a gym?"))

	failing := NewRouter(llm.NewMockChatModel(llm.WithError(errors.New("boom"))))
	assert.Equal(t, domain.RouteT2SQL, failing.Decide(ctx, "What is the average budget?"))
	assert.Equal(t, domain.RouteRAG, failing.Decide(ctx, "Tell me about the pool"))

	unclear := NewRouter(llm.NewMockChatModel(llm.WithCannedReply("classify", "not sure")))
	assert.Equal(t, domain.RouteT2SQL, unclear.Decide(ctx, "revenue by project"))
	assert.Equal(t, domain.RouteRAG, unclear.Decide(ctx, "describe the lobby"))
}

func TestRunT2SQLRoute(t *testing.T) {
	sql := &stubSQL{result: &t2sql.Result{
		SQL:         "SELECT COUNT(*) AS lead_count FROM leads WHERE status = 'connected';",
		Rows:        []domain.Row{{Columns: []string{"lead_count"}, Values: []any{int64(7)}}},
		Explanation: "Counts the number of connected leads in the CRM.",
	}}
	a := newTestAgent(t, sql)

	resp, err := a.Run(context.Background(), Request{Query: "How many connected leads do we have?", CampaignLeadID: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.RouteT2SQL, resp.Route)
	assert.Equal(t, "The lead count is 7 for connected leads.", resp.Message)
	assert.Equal(t, resp.Message, resp.Reply())
	assert.Equal(t, []string{"How many connected leads do we have?"}, sql.asked)

	turns, err := a.Thread(context.Background(), "campaign-lead-3", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, domain.RouteT2SQL, turns[0].Route)
	assert.Equal(t, resp.Message, turns[0].Reply)
}

func TestRunRAGRoute(t *testing.T) {
	a := newTestAgent(t, &stubSQL{}, llm.WithCannedReply("sales associate", "  The pool is open daily. Shall we book a viewing?  "))

	lead := &domain.Lead{ID: 1, FirstName: "Morgan", UnitType: domain.UnitThreeBed}
	campaign := &domain.Campaign{ID: 2, ProjectName: domain.ProjectAltura}
	resp, err := a.Run(context.Background(), Request{
		Query: "Tell me about the pool", Lead: lead, Campaign: campaign, CampaignLeadID: 5, ThreadID: "custom",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RouteRAG, resp.Route)
	assert.Equal(t, "The pool is open daily. Shall we book a viewing?", resp.Answer)
	assert.Equal(t, []string{"altura.pdf"}, resp.Sources)

	turns, err := a.Thread(context.Background(), "custom", 0)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestRunRAGRequiresLeadAndCampaign(t *testing.T) {
	a := newTestAgent(t, &stubSQL{})
	_, err := a.Run(context.Background(), Request{Query: "Tell me about the pool"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lead and campaign are required for RAG responses.")
}

func TestNewRequiresTools(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
