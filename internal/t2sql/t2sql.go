// Package t2sql answers analytics questions by generating and running SQL
// against the CRM database.
package t2sql

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/llm"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/policy"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const (
	NotGeneratedSQL       = "/* SQL not generated */"
	ResponseUnavailable   = "Assistant response unavailable."
	DefaultMaxRows        = 200
	schemaUnavailableText = "Schema information unavailable."
)

// AnalyticsTables are described to the model and readable by generated SQL.
var AnalyticsTables = []string{"leads", "campaigns", "campaign_leads", "conversation_messages"}

// Result is the outcome of one question.
type Result struct {
	SQL         string       `json:"sql"`
	Rows        []domain.Row `json:"rows"`
	Explanation string       `json:"explanation"`
}

// Answerer turns a question into a SQL result.
type Answerer interface {
	Answer(ctx context.Context, question string) (*Result, error)
}

// Database is the part of the store the service reads.
type Database interface {
	TableColumns(ctx context.Context, table string) ([]domain.ColumnInfo, error)
	QueryReadOnly(ctx context.Context, query string, tables []string, maxRows int) ([]string, [][]any, error)
}

// Guard vets generated SQL before it runs.
type Guard interface {
	Check(ctx context.Context, sql string) (policy.Decision, error)
}

type Service struct {
	db      Database
	model   model.BaseChatModel
	guard   Guard
	maxRows int
}

var _ Answerer = (*Service)(nil)

func NewService(db Database, m model.BaseChatModel, guard Guard, maxRows int) *Service {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Service{db: db, model: m, guard: guard, maxRows: maxRows}
}

// Answer asks the model for a query, vets it and runs it read-only.
func (s *Service) Answer(ctx context.Context, question string) (*Result, error) {
	system, err := s.SchemaPrompt(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := llm.CompleteMessages(ctx, s.model, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(questionPrompt(question)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate sql: %w", err)
	}

	sql, explanation := ParseReply(reply)
	result := &Result{SQL: sql, Rows: []domain.Row{}, Explanation: explanation}
	if sql == NotGeneratedSQL {
		return result, nil
	}

	decision, err := s.guard.Check(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to check sql: %w", err)
	}
	if !decision.Allow {
		logx.Warn().Str("sql", sql).Strs("reasons", decision.Reasons).Msg("generated sql blocked")
		result.Explanation = strings.Join(decision.Reasons, " ")
		return result, nil
	}

	columns, values, err := s.db.QueryReadOnly(ctx, sql, AnalyticsTables, s.maxRows)
	if err != nil {
		logx.Warn().Err(err).Str("sql", sql).Msg("generated sql failed")
		result.Explanation = fmt.Sprintf("The generated query could not be executed: %v", err)
		return result, nil
	}
	for _, v := range values {
		result.Rows = append(result.Rows, domain.Row{Columns: columns, Values: v})
	}
	logx.Debug().Str("sql", sql).Int("rows", len(result.Rows)).Msg("text-to-sql answered")
	return result, nil
}

// SchemaPrompt describes the analytics tables from PRAGMA table_info.
func (s *Service) SchemaPrompt(ctx context.Context) (string, error) {
	var sections []string
	for _, table := range AnalyticsTables {
		cols, err := s.db.TableColumns(ctx, table)
		if err != nil {
			return "", fmt.Errorf("failed to describe %s: %w", table, err)
		}
		if len(cols) == 0 {
			continue
		}
		lines := make([]string, 0, len(cols))
		for _, c := range cols {
			typ := c.Type
			if typ == "" {
				typ = "TEXT"
			}
			lines = append(lines, fmt.Sprintf("- %s (%s)", c.Name, typ))
		}
		sections = append(sections, table+" columns:\n"+strings.Join(lines, "\n"))
	}
	description := schemaUnavailableText
	if len(sections) > 0 {
		description = strings.Join(sections, "\n\n")
	}

	return "You are an analytics assistant for a real-estate CRM. Use SQL to answer questions.\n\n" +
		"Database schema snapshot:\n" + description + "\n\n" + guidelines, nil
}

const guidelines = `Guidelines:
- Prefer data from ` + "`leads`" + ` for lead analytics. Budget information lives in ` + "`budget_min` and `budget_max`" + `.
- When asked for a single budget number, compute the average of available bounds, e.g. ` + "`AVG((budget_min + budget_max) / 2.0)`" + `.
- ` + "`status`, `project_enquired`, `unit_type`, and `last_conversation_date`" + ` are on ` + "`leads`" + `.
- Join ` + "`campaign_leads`" + ` to relate campaigns and leads (` + "`campaign_id` / `lead_id`" + `).
- Always generate valid SQLite-compatible SQL using the tables and columns documented here. Do not guess table names.
- If data is missing, explain it rather than fabricating numbers.`

func questionPrompt(question string) string {
	question = strings.Join(strings.Fields(question), " ")
	return "Write one SQLite SELECT statement that answers the question below.\n" +
		"Reply with the statement in a ```sql fenced block, followed by a one-sentence explanation of what it computes.\n\n" +
		"Question: " + question + "\n" +
		"Answer:"
}

var (
	fencePattern     = regexp.MustCompile("(?is)```(?:sql)?[ \\t]*\\n?(.*?)```")
	statementPattern = regexp.MustCompile(`(?i)^\s*(select|with)\b`)
)

// ParseReply splits a model reply into its SQL and explanation. When no SQL
// is present the SQL is NotGeneratedSQL.
func ParseReply(reply string) (sql, explanation string) {
	reply = strings.TrimSpace(reply)
	if m := fencePattern.FindStringSubmatchIndex(reply); m != nil {
		sql = strings.TrimSpace(reply[m[2]:m[3]])
		explanation = strings.TrimSpace(reply[:m[0]] + " " + reply[m[1]:])
	} else {
		var rest []string
		for _, line := range strings.Split(reply, "\n") {
			if sql == "" && statementPattern.MatchString(line) {
				sql = strings.TrimSpace(line)
				continue
			}
			rest = append(rest, line)
		}
		explanation = strings.TrimSpace(strings.Join(rest, "\n"))
	}

	if sql == "" {
		sql = NotGeneratedSQL
		explanation = reply
	}
	if explanation == "" {
		explanation = ResponseUnavailable
	}
	return sql, explanation
}
