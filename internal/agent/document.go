package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/llm"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/rag"
)

const documentTemplate = `You are an AI sales associate continuing a lead nurturing conversation for {project_name}.
Using the context below, answer the customer's question accurately and concisely.
Always close with a suggestion to schedule a viewing or call.

Lead context:
- Name: {lead_name}
- Preferences: {lead_preferences}
- Last conversation summary: {last_conversation_summary}

Customer question:
{question}

Brochure snippets:
{context}

Answer:`

// DocumentAnswer is a brochure-grounded reply.
type DocumentAnswer struct {
	Answer  string
	Sources []string
}

// DocumentAnswerTool answers customer questions from brochure context.
type DocumentAnswerTool struct {
	retriever rag.Retriever
	model     model.BaseChatModel
	template  prompt.ChatTemplate
	limit     int
}

func NewDocumentAnswerTool(retriever rag.Retriever, m model.BaseChatModel, limit int) *DocumentAnswerTool {
	return &DocumentAnswerTool{
		retriever: retriever,
		model:     m,
		template:  prompt.FromMessages(schema.FString, schema.UserMessage(documentTemplate)),
		limit:     limit,
	}
}

func (d *DocumentAnswerTool) Answer(ctx context.Context, lead *domain.Lead, campaign *domain.Campaign, question string) (*DocumentAnswer, error) {
	docs, err := d.retriever.GetDocuments(ctx, string(campaign.ProjectName), question, d.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve brochure context: %w", err)
	}
	snippet := docs.AsContext(rag.MaxContextChars)
	if snippet == "" {
		snippet = "No brochure context was found."
	}
	summary := lead.LastConversationSummary
	if summary == "" {
		summary = "Unavailable"
	}

	messages, err := d.template.Format(ctx, map[string]any{
		"project_name": string(campaign.ProjectName),
		"lead_name":    lead.FirstName,
		"lead_preferences": fmt.Sprintf("Unit type: %s, Budget: %s-%s, Location: %s",
			lead.UnitType, domain.FormatAmount(lead.BudgetMin), domain.FormatAmount(lead.BudgetMax), lead.LocationPreference),
		"last_conversation_summary": summary,
		"question":                  question,
		"context":                   snippet,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format document prompt: %w", err)
	}
	answer, err := llm.CompleteMessages(ctx, d.model, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to answer from brochures: %w", err)
	}
	return &DocumentAnswer{Answer: answer, Sources: docs.Sources()}, nil
}
