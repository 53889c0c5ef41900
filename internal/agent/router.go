package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/llm"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

var sqlKeywords = []string{
	"count", "number", "total", "average", "avg", "sum", "ratio",
	"metrics", "how many", "max", "min", "budget", "revenue",
}

// Router classifies a question as analytics (t2sql) or brochure (rag).
type Router struct {
	model model.BaseChatModel
}

func NewRouter(m model.BaseChatModel) *Router {
	return &Router{model: m}
}

func routerPrompt(query string) string {
	return "You classify questions for a real-estate sales agent.\n" +
		"Respond with only `T2SQL` if the question requires analytical metrics, SQL aggregates, numeric summaries, or CRM counts/averages.\n" +
		"Respond with only `RAG` if the question requires brochure content, amenities, descriptions, copywriting, scheduling, or follow-up messaging.\n" +
		fmt.Sprintf("Question: %s\n", query) +
		"Answer (T2SQL or RAG):"
}

// Decide asks the model and falls back to keywords when the model fails or
// gives an unclear answer.
func (r *Router) Decide(ctx context.Context, query string) domain.Route {
	answer, err := llm.Complete(ctx, r.model, routerPrompt(query))
	if err != nil {
		logx.Warn().Err(err).Msg("router model failed; falling back to keywords")
	} else {
		decision := strings.ToLower(answer)
		if strings.Contains(decision, "sql") {
			return domain.RouteT2SQL
		}
		if strings.Contains(decision, "rag") {
			return domain.RouteRAG
		}
	}
	return KeywordRoute(query)
}

// KeywordRoute routes by analytics keywords alone.
func KeywordRoute(query string) domain.Route {
	text := strings.ToLower(query)
	for _, kw := range sqlKeywords {
		if strings.Contains(text, kw) {
			return domain.RouteT2SQL
		}
	}
	return domain.RouteRAG
}
