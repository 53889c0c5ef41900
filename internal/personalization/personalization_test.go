package personalization

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/llm"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/rag"
)

type stubRetriever struct {
	project string
	query   string
	docs    []*schema.Document
}

func (s *stubRetriever) GetDocuments(_ context.Context, project, query string, _ int) (*rag.Result, error) {
	s.project, s.query = project, query
	return &rag.Result{Documents: s.docs}, nil
}

func ptr[T any](v T) *T { return &v }

func TestVariablesDefaults(t *testing.T) {
	campaign := &domain.Campaign{ProjectName: domain.ProjectAltura, MessageChannel: domain.ChannelWhatsApp}
	lead := &domain.Lead{FirstName: "Ravi", UnitType: domain.UnitStudio, FamilySize: ptr(0)}

	vars := Variables(campaign, lead, "  ", "")
	assert.Equal(t, "WHATSAPP", vars["channel"])
	assert.Equal(t, "Not specified", vars["family_size"])
	assert.Equal(t, "Not specified", vars["budget_range"])
	assert.Equal(t, "None recorded", vars["additional_notes"])
	assert.Equal(t, "Unavailable", vars["last_conversation_date"])
	assert.Equal(t, "Unavailable", vars["last_conversation_summary"])
	assert.Equal(t, "[omit offer]", vars["offer_details"])
	assert.Equal(t, "No brochure information was available.", vars["project_context"])
}

func TestVariablesFromProfile(t *testing.T) {
	campaign := &domain.Campaign{ProjectName: domain.ProjectSobhaWaves, MessageChannel: domain.ChannelEmail}
	day := domain.NewDate(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC))
	lead := &domain.Lead{
		FirstName:               "Asha",
		BudgetMax:               ptr(800000.0),
		FamilySize:              ptr(4),
		ProfileMetadata:         map[string]any{"pets": "cat"},
		LastConversationDate:    &day,
		LastConversationSummary: "Asked about schools",
	}

	vars := Variables(campaign, lead, "5% off", "Beach access")
	assert.Equal(t, "EMAIL", vars["channel"])
	assert.Equal(t, "800000.00", vars["budget_range"])
	assert.Equal(t, "4", vars["family_size"])
	assert.Equal(t, `{"pets":"cat"}`, vars["additional_notes"])
	assert.Equal(t, "2025-03-09", vars["last_conversation_date"])
	assert.Equal(t, "5% off", vars["offer_details"])
	assert.Equal(t, "Beach access", vars["project_context"])
}

func TestGenerate(t *testing.T) {
	retriever := &stubRetriever{docs: []*schema.Document{
		{Content: "Infinity pool", MetaData: map[string]any{rag.MetaSource: "waves.pdf"}},
	}}
	model := llm.NewMockChatModel(llm.WithCannedReply("hyper-personalized", "  Hi Asha, come see the pool!  "))
	gen := NewGenerator(retriever, model, 4)

	campaign := &domain.Campaign{ProjectName: domain.ProjectSobhaWaves, MessageChannel: domain.ChannelEmail}
	lead := &domain.Lead{ID: 7, FirstName: "Asha", UnitType: domain.UnitTwoBed, BudgetMin: ptr(500000.0)}

	msg, err := gen.Generate(context.Background(), campaign, lead, "")
	require.NoError(t, err)
	assert.Equal(t, "Hi Asha, come see the pool!", msg.Body)
	assert.Equal(t, []string{"waves.pdf"}, msg.Sources)
	assert.Equal(t, "Infinity pool", msg.ContextSnippet)
	assert.Equal(t, "Sobha Waves", retriever.project)
	assert.Equal(t, "Key selling points for Sobha Waves relevant to 2 bed and budget 500000.00-None", retriever.query)
}
