package agent

import (
	"fmt"
	"strings"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/t2sql"
)

const maxFormattedRows = 5

// SQLAnswerFormatter turns query rows into a customer-facing sentence.
type SQLAnswerFormatter struct{}

func (SQLAnswerFormatter) Format(question string, result *t2sql.Result) string {
	if result == nil || len(result.Rows) == 0 {
		return fmt.Sprintf("I could not find results for '%s'.", question)
	}

	if first := result.Rows[0]; len(result.Rows) == 1 && len(first.Columns) == 1 {
		message := fmt.Sprintf("The %s is %s", humanize(first.Columns[0]), formatValue(first.Get(first.Columns[0])))
		q := strings.ToLower(question)
		var qualifiers []string
		if strings.Contains(q, "connected") {
			qualifiers = append(qualifiers, "for connected leads")
		}
		if strings.Contains(q, "budget") {
			qualifiers = append(qualifiers, "for the requested budget")
		}
		if strings.Contains(q, "status") && !strings.Contains(q, "connected") {
			qualifiers = append(qualifiers, "for the requested status")
		}
		if len(qualifiers) > 0 {
			message += " " + strings.Join(qualifiers, " ")
		}
		return strings.TrimRight(message, " ") + "."
	}

	lines := make([]string, 0, maxFormattedRows)
	for _, row := range result.Rows[:min(len(result.Rows), maxFormattedRows)] {
		parts := make([]string, 0, len(row.Columns))
		for i, col := range row.Columns {
			var v any
			if i < len(row.Values) {
				v = row.Values[i]
			}
			parts = append(parts, humanize(col)+": "+formatValue(v))
		}
		lines = append(lines, " • "+strings.Join(parts, ", "))
	}
	summary := strings.Join(lines, "\n")
	if len(result.Rows) > maxFormattedRows {
		summary += fmt.Sprintf("\nShowing first %d of %d records.", maxFormattedRows, len(result.Rows))
	}
	return summary
}

func humanize(column string) string {
	return strings.ReplaceAll(column, "_", " ")
}

func formatValue(v any) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprint(v)
}
