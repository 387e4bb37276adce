package reporting

import (
	"fmt"
	"strings"
	"time"

	"fluence-lab/internal/domain"
)

// summaryHours are the horizons shown in the text summary, when within the forecast.
var summaryHours = []int{6, 12, 24, 48}

// RenderSummary renders a short plain-text summary of a forecast run.
func RenderSummary(r *domain.ForecastRun) string {
	var sb strings.Builder

	created := time.UnixMilli(r.CreatedAtMs).UTC()
	sb.WriteString(fmt.Sprintf("Forecast %s at %s: %s\n", r.RunID, created.Format(time.RFC3339), r.Status))

	if r.Level != nil {
		sb.WriteString(fmt.Sprintf("  live level %.3f", *r.Level))
		if r.Trend != nil {
			sb.WriteString(fmt.Sprintf(", trend %+.5f log10/h", *r.Trend))
		} else {
			sb.WriteString(", no trend")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("  library %d trajectories", r.LibrarySize))
	if r.Status == domain.ForecastStatusOK {
		sb.WriteString(fmt.Sprintf(", %d in bin (width %.3f), %d selected", r.MagnitudeMatches, r.BinWidth, r.Selected))
	}
	sb.WriteString("\n")

	for _, h := range summaryHours {
		if h > len(r.P50) {
			continue
		}
		i := h - 1
		sb.WriteString(fmt.Sprintf("  +%2dh fluence p10 %.3e  p50 %.3e  p90 %.3e\n", h, r.P10[i], r.P50[i], r.P90[i]))
	}

	return sb.String()
}
