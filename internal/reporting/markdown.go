package reporting

import (
	"fmt"
	"strings"
	"time"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/pipeline"
)

// RenderMarkdown renders a forecast run as Markdown string.
// Percentiles are tabulated every step hours and at the final hour.
func RenderMarkdown(r *domain.ForecastRun, step int) string {
	var sb strings.Builder

	created := time.UnixMilli(r.CreatedAtMs).UTC()

	sb.WriteString("# Fluence Forecast\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", created.Format(time.RFC3339)))

	sb.WriteString("## Run\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.RunID))
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", r.Status))
	sb.WriteString(fmt.Sprintf("| Live Level | %s |\n", orDash(optFloat(r.Level, "%.3f"))))
	sb.WriteString(fmt.Sprintf("| Live Trend (log10/h) | %s |\n", orDash(optFloat(r.Trend, "%.5f"))))
	sb.WriteString(fmt.Sprintf("| Library Size | %d |\n", r.LibrarySize))
	sb.WriteString(fmt.Sprintf("| Magnitude Matches | %d |\n", r.MagnitudeMatches))
	sb.WriteString(fmt.Sprintf("| Selected | %d |\n", r.Selected))
	sb.WriteString(fmt.Sprintf("| Bin Width (log10) | %.4f |\n", r.BinWidth))
	sb.WriteString("\n")

	sb.WriteString("## Fluence Percentiles\n\n")
	if len(r.P50) == 0 {
		sb.WriteString("No forecast available.\n\n")
		return sb.String()
	}

	if step < 1 {
		step = 1
	}
	sb.WriteString("| Hour | P10 | P50 | P90 |\n")
	sb.WriteString("|------|-----|-----|-----|\n")
	for i := range r.P50 {
		hour := i + 1
		if hour%step != 0 && hour != len(r.P50) {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %d | %.4e | %.4e | %.4e |\n", hour, r.P10[i], r.P50[i], r.P90[i]))
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderSufficiency renders archive sufficiency checks as Markdown string.
func RenderSufficiency(s *pipeline.SufficiencyResult) string {
	var sb strings.Builder

	sb.WriteString("## Archive Sufficiency\n\n")
	sb.WriteString(fmt.Sprintf("Samples: %d | Valid: %d | Span: %.1f h | Largest gap: %.1f h | Trajectories: %d\n\n",
		s.Samples, s.ValidSamples, s.SpanHours, s.LargestGapHrs, s.Trajectories))

	sb.WriteString("| Check | Threshold | Actual | Status |\n")
	sb.WriteString("|-------|-----------|--------|--------|\n")
	for _, check := range s.Checks {
		status := "FAIL"
		if check.Pass {
			status = "PASS"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			check.Name, check.Threshold, check.Actual, status))
	}
	sb.WriteString("\n")

	if s.AllPass {
		sb.WriteString("**All checks passed.**\n")
	} else {
		sb.WriteString("**Some checks failed.** Forecasts may report INSUFFICIENT_DATA.\n")
	}

	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
