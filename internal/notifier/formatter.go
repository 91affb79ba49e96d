package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"FinanceETL/internal/model"
	"FinanceETL/internal/pipeline"
)

var statusIcon = map[pipeline.Status]string{
	pipeline.StatusOK:      "✅",
	pipeline.StatusPartial: "⚠️",
	pipeline.StatusFailed:  "❌",
	pipeline.StatusSkipped: "⏭",
}

const maxReportIssues = 5

// FormatRunReport formats a pipeline result into a Telegram message.
func FormatRunReport(res *pipeline.Result) string {
	var b strings.Builder
	p := res.Params

	b.WriteString(fmt.Sprintf("%s <b>FinanceETL %s</b> | %s\n\n", statusIcon[res.Status], res.Status, p.Ticker))
	b.WriteString(fmt.Sprintf("Range: %s → %s\n", model.DateKey(p.Start), model.DateKey(p.End)))
	b.WriteString(fmt.Sprintf("Currency: USD → %s\n", p.TargetCurrency))
	b.WriteString(fmt.Sprintf("Facts written: %d\n", res.FactsWritten))
	if n := len(res.Rejected); n > 0 {
		b.WriteString(fmt.Sprintf("Rejected rows: %d\n", n))
	}

	b.WriteString("\n<b>Stages:</b>\n")
	for _, s := range res.Stages {
		b.WriteString(fmt.Sprintf("  %s %s: %d rows\n", statusIcon[s.Status], s.Name, s.Rows))
	}

	if issues := res.Issues(); len(issues) > 0 {
		b.WriteString("\n<b>Issues:</b>\n")
		for i, is := range issues {
			if i == maxReportIssues {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(issues)-maxReportIssues))
				break
			}
			b.WriteString("  • " + html.EscapeString(is) + "\n")
		}
	}

	if !res.FinishedAt.IsZero() {
		b.WriteString(fmt.Sprintf("\nRun %s in %s", shortID(res.RunID), res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
