// Package agent routes customer questions to text-to-SQL or brochure
// retrieval and keeps per-thread memory of the answers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/t2sql"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const (
	NodeRouter = "router"
	NodeT2SQL  = string(domain.RouteT2SQL)
	NodeRAG    = string(domain.RouteRAG)

	maxRunSteps = 10
)

// ErrMissingContext is returned by the rag route without a lead and campaign.
var ErrMissingContext = errors.New("Lead and campaign are required for RAG responses.")

// Request is one question asked about a campaign lead.
type Request struct {
	Query          string
	Lead           *domain.Lead
	Campaign       *domain.Campaign
	CampaignLeadID int64
	// ThreadID defaults to the campaign lead thread.
	ThreadID string
}

// Response is what either route produced.
type Response struct {
	Route       domain.Route `json:"route"`
	SQL         string       `json:"sql,omitempty"`
	Rows        []domain.Row `json:"rows,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
	Message     string       `json:"message,omitempty"`
	Answer      string       `json:"answer,omitempty"`
	Sources     []string     `json:"sources,omitempty"`
}

// Reply is the text shown to the customer.
func (r *Response) Reply() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Answer
}

// Runner answers agent requests.
type Runner interface {
	Run(ctx context.Context, req Request) (*Response, error)
}

// DocumentAnswerer answers from brochure context.
type DocumentAnswerer interface {
	Answer(ctx context.Context, lead *domain.Lead, campaign *domain.Campaign, question string) (*DocumentAnswer, error)
}

// Decider picks the route of a question.
type Decider interface {
	Decide(ctx context.Context, query string) domain.Route
}

// Config wires the agent's collaborators.
type Config struct {
	Router    Decider
	SQL       t2sql.Answerer
	Documents DocumentAnswerer
	Formatter SQLAnswerFormatter
	Memory    Memory
}

type routedRequest struct {
	Request
	Route domain.Route
}

// Agent is the compiled router graph.
type Agent struct {
	runnable compose.Runnable[Request, *Response]
	memory   Memory
}

var _ Runner = (*Agent)(nil)

// New builds START -> router -> (t2sql | rag) -> END.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.Router == nil || cfg.SQL == nil || cfg.Documents == nil {
		return nil, fmt.Errorf("agent router, sql and document tools are required")
	}
	if cfg.Memory == nil {
		cfg.Memory = NewInMemoryMemory(0)
	}

	g := compose.NewGraph[Request, *Response]()

	if err := g.AddLambdaNode(NodeRouter, compose.InvokableLambda(
		func(ctx context.Context, req Request) (*routedRequest, error) {
			route := cfg.Router.Decide(ctx, req.Query)
			logx.Debug().Str("route", string(route)).Int64("campaign_lead_id", req.CampaignLeadID).Msg("query routed")
			return &routedRequest{Request: req, Route: route}, nil
		})); err != nil {
		return nil, fmt.Errorf("failed to add router node: %w", err)
	}

	if err := g.AddLambdaNode(NodeT2SQL, compose.InvokableLambda(
		func(ctx context.Context, in *routedRequest) (*Response, error) {
			return answerSQL(ctx, cfg, in)
		})); err != nil {
		return nil, fmt.Errorf("failed to add t2sql node: %w", err)
	}

	if err := g.AddLambdaNode(NodeRAG, compose.InvokableLambda(
		func(ctx context.Context, in *routedRequest) (*Response, error) {
			return answerRAG(ctx, cfg, in)
		})); err != nil {
		return nil, fmt.Errorf("failed to add rag node: %w", err)
	}

	if err := g.AddEdge(compose.START, NodeRouter); err != nil {
		return nil, err
	}
	branch := compose.NewGraphBranch(
		func(_ context.Context, in *routedRequest) (string, error) {
			return string(in.Route), nil
		},
		map[string]bool{NodeT2SQL: true, NodeRAG: true},
	)
	if err := g.AddBranch(NodeRouter, branch); err != nil {
		return nil, fmt.Errorf("failed to add route branch: %w", err)
	}
	for _, node := range []string{NodeT2SQL, NodeRAG} {
		if err := g.AddEdge(node, compose.END); err != nil {
			return nil, err
		}
	}

	runnable, err := g.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		return nil, fmt.Errorf("failed to compile agent graph: %w", err)
	}
	return &Agent{runnable: runnable, memory: cfg.Memory}, nil
}

func answerSQL(ctx context.Context, cfg Config, in *routedRequest) (*Response, error) {
	result, err := cfg.SQL.Answer(ctx, in.Query)
	if err != nil {
		return nil, err
	}
	logx.Info().Str("route", NodeT2SQL).Int64("lead_id", leadID(in.Lead)).Int64("campaign_id", campaignID(in.Campaign)).
		Int("row_count", len(result.Rows)).Msg("agent answered")
	return &Response{
		Route:       domain.RouteT2SQL,
		SQL:         result.SQL,
		Rows:        result.Rows,
		Explanation: result.Explanation,
		Message:     cfg.Formatter.Format(in.Query, result),
	}, nil
}

func answerRAG(ctx context.Context, cfg Config, in *routedRequest) (*Response, error) {
	if in.Lead == nil || in.Campaign == nil {
		return nil, ErrMissingContext
	}
	answer, err := cfg.Documents.Answer(ctx, in.Lead, in.Campaign, in.Query)
	if err != nil {
		return nil, err
	}
	logx.Info().Str("route", NodeRAG).Int64("lead_id", in.Lead.ID).Int64("campaign_id", in.Campaign.ID).
		Strs("sources", answer.Sources).Msg("agent answered")
	return &Response{
		Route:   domain.RouteRAG,
		Answer:  answer.Answer,
		Sources: answer.Sources,
	}, nil
}

// Run invokes the graph and records the turn in the request's thread.
func (a *Agent) Run(ctx context.Context, req Request) (*Response, error) {
	if req.ThreadID == "" {
		req.ThreadID = ThreadID(req.CampaignLeadID)
	}
	resp, err := a.runnable.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	turn := Turn{Query: req.Query, Route: resp.Route, Reply: resp.Reply(), At: time.Now().UTC()}
	if err := a.memory.Append(ctx, req.ThreadID, turn); err != nil {
		logx.Warn().Err(err).Str("thread_id", req.ThreadID).Msg("failed to record agent turn")
	}
	return resp, nil
}

// Thread returns the most recent turns of a thread.
func (a *Agent) Thread(ctx context.Context, threadID string, limit int) ([]Turn, error) {
	return a.memory.Recent(ctx, threadID, limit)
}

func leadID(l *domain.Lead) int64 {
	if l == nil {
		return 0
	}
	return l.ID
}

func campaignID(c *domain.Campaign) int64 {
	if c == nil {
		return 0
	}
	return c.ID
}
