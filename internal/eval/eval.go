// Package eval scores the agent against scripted scenarios using
// deterministic backends.
package eval

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"gopkg.in/yaml.v3"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/agent"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/rag"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/t2sql"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const (
	DefaultReportPath        = "agent_evaluation_scores.json"
	KeywordCoverageThreshold = 0.7

	MetricKeywordCoverage = "KeywordCoverage"
	MetricRouteAccuracy   = "RouteAccuracy"
)

//go:embed scenarios.yaml
var defaultScenarios []byte

// Scenario is one scripted question.
type Scenario struct {
	Name          string       `yaml:"name" json:"name"`
	Query         string       `yaml:"query" json:"input"`
	ExpectedRoute domain.Route `yaml:"expected_route" json:"expected_route"`
	Keywords      []string     `yaml:"keywords" json:"keywords"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// DefaultScenarios returns the embedded scenarios.
func DefaultScenarios() ([]Scenario, error) {
	return ParseScenarios(defaultScenarios)
}

// LoadScenarios reads scenarios from a YAML file.
func LoadScenarios(path string) ([]Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	return ParseScenarios(raw)
}

func ParseScenarios(raw []byte) ([]Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios defined")
	}
	for i, s := range f.Scenarios {
		if strings.TrimSpace(s.Query) == "" {
			return nil, fmt.Errorf("scenario %d has no query", i)
		}
		if s.ExpectedRoute != domain.RouteT2SQL && s.ExpectedRoute != domain.RouteRAG {
			return nil, fmt.Errorf("scenario %d has unknown route %q", i, s.ExpectedRoute)
		}
	}
	return f.Scenarios, nil
}

// MetricResult is the score of one metric on one case.
type MetricResult struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Success   bool    `json:"success"`
	Reason    string  `json:"reason"`
}

// KeywordCoverage scores the share of keywords present in output.
func KeywordCoverage(output string, keywords []string) MetricResult {
	res := MetricResult{Name: MetricKeywordCoverage, Threshold: KeywordCoverageThreshold}
	if len(keywords) == 0 {
		res.Score, res.Success, res.Reason = 1, true, "No keywords to check."
		return res
	}
	text := strings.ToLower(output)
	var missing []string
	for _, kw := range keywords {
		if !strings.Contains(text, strings.ToLower(kw)) {
			missing = append(missing, kw)
		}
	}
	res.Score = 1 - float64(len(missing))/float64(len(keywords))
	res.Success = res.Score >= res.Threshold
	if len(missing) == 0 {
		res.Reason = "All keywords present."
	} else {
		res.Reason = "Missing keywords: " + strings.Join(missing, ", ")
	}
	return res
}

// RouteAccuracy scores 1 when the agent took the expected route.
func RouteAccuracy(actual, expected domain.Route) MetricResult {
	res := MetricResult{Name: MetricRouteAccuracy, Threshold: 1}
	if actual == expected {
		res.Score, res.Success, res.Reason = 1, true, "Route matched."
		return res
	}
	res.Reason = fmt.Sprintf("Expected route %s, got %s.", expected, actual)
	return res
}

// CaseResult is the outcome of one scenario.
type CaseResult struct {
	Name          string         `json:"name"`
	Input         string         `json:"input"`
	ActualOutput  string         `json:"actual_output"`
	Route         domain.Route   `json:"route"`
	ExpectedRoute domain.Route   `json:"expected_route"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Metrics       []MetricResult `json:"metrics"`
}

// Report collects every case of a run.
type Report struct {
	TestResults []CaseResult `json:"test_results"`
	Passed      int          `json:"passed"`
	Total       int          `json:"total"`
}

// Run evaluates runner against scenarios for a seeded lead and campaign.
func Run(ctx context.Context, runner agent.Runner, lead *domain.Lead, campaign *domain.Campaign, scenarios []Scenario) *Report {
	report := &Report{Total: len(scenarios)}
	for i, s := range scenarios {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("scenario-%d", i+1)
		}
		cr := CaseResult{Name: name, Input: s.Query, ExpectedRoute: s.ExpectedRoute}

		resp, err := runner.Run(ctx, agent.Request{
			Query:          s.Query,
			Lead:           lead,
			Campaign:       campaign,
			CampaignLeadID: int64(i + 1),
		})
		if err != nil {
			cr.Error = err.Error()
			logx.Warn().Err(err).Str("scenario", name).Msg("agent failed during evaluation")
		} else {
			cr.Route = resp.Route
			cr.ActualOutput = resp.Reply()
		}

		cr.Metrics = []MetricResult{
			KeywordCoverage(cr.ActualOutput, s.Keywords),
			RouteAccuracy(cr.Route, s.ExpectedRoute),
		}
		cr.Success = err == nil
		for _, m := range cr.Metrics {
			cr.Success = cr.Success && m.Success
		}
		if cr.Success {
			report.Passed++
		}
		report.TestResults = append(report.TestResults, cr)
	}
	return report
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, report *Report) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// NewStubAgent builds the agent over the deterministic evaluation backends.
func NewStubAgent(ctx context.Context) (*agent.Agent, error) {
	m := stubModel{}
	return agent.New(ctx, agent.Config{
		Router:    agent.NewRouter(m),
		SQL:       stubSQL{},
		Documents: agent.NewDocumentAnswerTool(stubRetriever{}, m, 4),
		Memory:    agent.NewInMemoryMemory(0),
	})
}

// SeedLead returns the lead and campaign every scenario is asked about.
func SeedLead() (*domain.Lead, *domain.Campaign) {
	budgetMin, budgetMax := 550000.0, 780000.0
	lead := &domain.Lead{
		ID:                      1,
		CRMID:                   "EVAL-1",
		FirstName:               "Morgan",
		LastName:                "Shaw",
		Email:                   "morgan@example.com",
		ProjectEnquired:         domain.ProjectAltura,
		UnitType:                domain.UnitTwoBed,
		Status:                  domain.LeadStatusConnected,
		BudgetMin:               &budgetMin,
		BudgetMax:               &budgetMax,
		LastConversationSummary: "Asked about amenities suitable for young children.",
	}
	campaign := &domain.Campaign{
		ID:             1,
		Name:           "Evaluation",
		ProjectName:    domain.ProjectAltura,
		MessageChannel: domain.ChannelEmail,
		OfferDetails:   "Complimentary parking for early buyers.",
	}
	return lead, campaign
}

const (
	skylineTrigger = "panoramic skyline views"
	amenityReply   = "Highlight the panoramic skyline views, the infinity pool for families, and the co-working lounge close to the metro for Morgan."
	defaultReply   = "Here is the requested information."
	leadCountSQL   = "SELECT COUNT(*) as lead_count FROM leads WHERE status = 'connected';"
)

// stubModel routes like the keyword router and answers brochure prompts
// with a fixed recommendation.
type stubModel struct{}

var _ model.BaseChatModel = stubModel{}

func (stubModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	var prompt string
	if len(input) > 0 {
		prompt = input[len(input)-1].Content
	}
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "answer (t2sql or rag)"):
		question := prompt
		if _, after, ok := strings.Cut(prompt, "Question:"); ok {
			question, _, _ = strings.Cut(after, "\n")
		}
		return schema.AssistantMessage(strings.ToUpper(string(agent.KeywordRoute(question))), nil), nil
	case strings.Contains(lower, skylineTrigger):
		return schema.AssistantMessage(amenityReply, nil), nil
	}
	return schema.AssistantMessage(defaultReply, nil), nil
}

func (m stubModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type stubRetriever struct{}

func (stubRetriever) GetDocuments(_ context.Context, project, _ string, _ int) (*rag.Result, error) {
	return &rag.Result{Documents: []*schema.Document{
		{ID: "eval-1", Content: "Panoramic skyline views and an infinity pool perfect for families.",
			MetaData: map[string]any{rag.MetaSource: "altura-brochure.pdf", rag.MetaProjectName: project}},
		{ID: "eval-2", Content: "Co-working lounge and quick access to the metro station.",
			MetaData: map[string]any{rag.MetaSource: "altura-brochure.pdf", rag.MetaProjectName: project}},
	}}, nil
}

type stubSQL struct{}

func (stubSQL) Answer(_ context.Context, _ string) (*t2sql.Result, error) {
	return &t2sql.Result{
		SQL:         leadCountSQL,
		Rows:        []domain.Row{{Columns: []string{"lead_count"}, Values: []any{7}}},
		Explanation: "Counts the number of connected leads in the CRM.",
	}, nil
}
