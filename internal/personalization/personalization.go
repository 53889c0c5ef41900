// Package personalization writes the first outreach message of a campaign.
package personalization

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/llm"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/rag"
)

const (
	notSpecified = "Not specified"
	unavailable  = "Unavailable"
	omitOffer    = "[omit offer]"
	noBrochure   = "No brochure information was available."
)

const messageTemplate = `You are an AI property sales assistant tasked with nurturing leads.
Compose a hyper-personalized {channel} message. Strictly follow the rules:
- Use the lead's first name in the greeting.
- Acknowledge their previous enquiry and last conversation summary.
- Highlight the project features that align with the lead's preferences, using the provided brochure context.
- If a sales offer is provided (Offer details != "[omit offer]"), include it immediately before the call to action.
- Close with an assertive call to action encouraging the lead to schedule a property viewing or call.

Lead profile:
- Name: {lead_name}
- Family size: {family_size}
- Budget range: {budget_range}
- Unit preference: {unit_type}
- Location preference: {location_preference}
- Purchase motive: {purchase_motive}
- Financing readiness: {financing_readiness}
- Additional notes: {additional_notes}
- Last conversation date: {last_conversation_date}
- Last conversation summary: {last_conversation_summary}

Campaign:
- Project name: {project_name}
- Offer details: {offer_details}
- Message channel: {channel}

Brochure context:
{project_context}

Respond with the final message only.`

// Message is a generated outreach message with the brochure context behind it.
type Message struct {
	Body           string
	Sources        []string
	ContextSnippet string
}

// Personalizer writes outreach for one lead of a campaign.
type Personalizer interface {
	Generate(ctx context.Context, campaign *domain.Campaign, lead *domain.Lead, offer string) (*Message, error)
}

type Generator struct {
	retriever rag.Retriever
	model     model.BaseChatModel
	template  prompt.ChatTemplate
	limit     int
}

var _ Personalizer = (*Generator)(nil)

func NewGenerator(retriever rag.Retriever, m model.BaseChatModel, retrievalLimit int) *Generator {
	return &Generator{
		retriever: retriever,
		model:     m,
		template:  prompt.FromMessages(schema.FString, schema.UserMessage(messageTemplate)),
		limit:     retrievalLimit,
	}
}

// Generate retrieves selling points for the lead and asks the model for the message.
func (g *Generator) Generate(ctx context.Context, campaign *domain.Campaign, lead *domain.Lead, offer string) (*Message, error) {
	query := fmt.Sprintf("Key selling points for %s relevant to %s and budget %s-%s",
		campaign.ProjectName, lead.UnitType, domain.FormatAmount(lead.BudgetMin), domain.FormatAmount(lead.BudgetMax))
	docs, err := g.retriever.GetDocuments(ctx, string(campaign.ProjectName), query, g.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve brochure context: %w", err)
	}
	snippet := docs.AsContext(rag.MaxContextChars)

	messages, err := g.template.Format(ctx, Variables(campaign, lead, offer, snippet))
	if err != nil {
		return nil, fmt.Errorf("failed to format personalization prompt: %w", err)
	}
	body, err := llm.CompleteMessages(ctx, g.model, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate message for lead %d: %w", lead.ID, err)
	}

	return &Message{Body: body, Sources: docs.Sources(), ContextSnippet: snippet}, nil
}

// Variables fills the prompt placeholders for lead.
func Variables(campaign *domain.Campaign, lead *domain.Lead, offer, projectContext string) map[string]any {
	var bounds []string
	for _, b := range []*float64{lead.BudgetMin, lead.BudgetMax} {
		if b != nil {
			bounds = append(bounds, domain.FormatAmount(b))
		}
	}

	familySize := notSpecified
	if lead.FamilySize != nil && *lead.FamilySize != 0 {
		familySize = strconv.Itoa(*lead.FamilySize)
	}
	notes := "None recorded"
	if len(lead.ProfileMetadata) > 0 {
		if b, err := json.Marshal(lead.ProfileMetadata); err == nil {
			notes = string(b)
		}
	}
	lastDate := unavailable
	if lead.LastConversationDate != nil {
		lastDate = lead.LastConversationDate.String()
	}

	return map[string]any{
		"channel":                   strings.ToUpper(string(campaign.MessageChannel)),
		"lead_name":                 lead.FirstName,
		"family_size":               familySize,
		"budget_range":              orDefault(strings.Join(bounds, " | "), notSpecified),
		"unit_type":                 string(lead.UnitType),
		"location_preference":       orDefault(lead.LocationPreference, notSpecified),
		"purchase_motive":           orDefault(lead.PurchaseMotive, notSpecified),
		"financing_readiness":       orDefault(lead.FinancingReadiness, notSpecified),
		"additional_notes":          notes,
		"last_conversation_date":    lastDate,
		"last_conversation_summary": orDefault(lead.LastConversationSummary, unavailable),
		"project_name":              string(campaign.ProjectName),
		"offer_details":             orDefault(strings.TrimSpace(offer), omitOffer),
		"project_context":           orDefault(projectContext, noBrochure),
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
