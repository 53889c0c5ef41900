package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/t2sql"
)

func single(col string, v any) *t2sql.Result {
	return &t2sql.Result{Rows: []domain.Row{{Columns: []string{col}, Values: []any{v}}}}
}

func TestFormatNoRows(t *testing.T) {
	got := SQLAnswerFormatter{}.Format("How many leads?", &t2sql.Result{})
	assert.Equal(t, "I could not find results for 'How many leads?'.", got)
}

func TestFormatSingleValue(t *testing.T) {
	f := SQLAnswerFormatter{}
	assert.Equal(t, "The lead count is 7.", f.Format("How many leads?", single("lead_count", 7)))
	assert.Equal(t, "The lead count is 7 for connected leads.", f.Format("How many connected leads?", single("lead_count", 7)))
	assert.Equal(t, "The avg budget is 650000.5 for the requested budget.", f.Format("Average budget?", single("avg_budget", 650000.5)))
	assert.Equal(t, "The lead count is 2 for the requested status.", f.Format("Leads by status purchased", single("lead_count", 2)))
	assert.Equal(t, "The lead count is 2 for connected leads.", f.Format("status connected", single("lead_count", 2)))
	assert.Equal(t, "The max budget is None.", f.Format("max", single("max_budget", nil)))
}

func TestFormatRows(t *testing.T) {
	res := &t2sql.Result{}
	for i := 0; i < 7; i++ {
		res.Rows = append(res.Rows, domain.Row{
			Columns: []string{"project_enquired", "lead_count"},
			Values:  []any{fmt.Sprintf("P%d", i), i},
		})
	}
	got := SQLAnswerFormatter{}.Format("leads per project", res)
	assert.Contains(t, got, " • project enquired: P0, lead count: 0\n")
	assert.Contains(t, got, " • project enquired: P4, lead count: 4")
	assert.NotContains(t, got, "P5")
	assert.Contains(t, got, "\nShowing first 5 of 7 records.")

	two := &t2sql.Result{Rows: res.Rows[:2]}
	assert.Equal(t, " • project enquired: P0, lead count: 0\n • project enquired: P1, lead count: 1",
		SQLAnswerFormatter{}.Format("leads per project", two))
}
