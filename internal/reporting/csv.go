package reporting

import (
	"fmt"
	"strings"
	"time"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/exposure"
)

// RenderCSV renders forecast percentile curves as CSV string.
func RenderCSV(f *domain.FluenceForecast) string {
	var sb strings.Builder

	sb.WriteString("hour,p10,p50,p90\n")
	if f == nil {
		return sb.String()
	}

	for i, h := range f.Hours {
		sb.WriteString(fmt.Sprintf("%d,%.1f,%.1f,%.1f\n", h, f.P10[i], f.P50[i], f.P90[i]))
	}

	return sb.String()
}

// RenderRunsCSV renders a forecast run history, one row per run,
// with the fluence percentiles at the final forecast hour.
func RenderRunsCSV(runs []*domain.ForecastRun) string {
	var sb strings.Builder

	sb.WriteString("run_id,created_at_ms,status,level,trend,library_size,magnitude_matches,selected,bin_width,")
	sb.WriteString("final_p10,final_p50,final_p90\n")

	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%d,%d,%d,%.6f,%s,%s,%s\n",
			r.RunID,
			r.CreatedAtMs,
			r.Status,
			optFloat(r.Level, "%.3f"),
			optFloat(r.Trend, "%.6f"),
			r.LibrarySize,
			r.MagnitudeMatches,
			r.Selected,
			r.BinWidth,
			lastValue(r.P10),
			lastValue(r.P50),
			lastValue(r.P90),
		))
	}

	return sb.String()
}

// RenderTimelineCSV renders a projected fluence timeline as CSV string.
// Percentile columns are empty when the timeline has no forecast.
func RenderTimelineCSV(tl *exposure.Timeline) string {
	var sb strings.Builder

	sb.WriteString("time,flat,p10,p50,p90\n")
	for i, t := range tl.Times {
		sb.WriteString(domain.TimeFromHours(t).Format(time.RFC3339))
		sb.WriteString(fmt.Sprintf(",%.1f", tl.Flat[i]))
		if tl.P50 != nil {
			sb.WriteString(fmt.Sprintf(",%.1f,%.1f,%.1f\n", tl.P10[i], tl.P50[i], tl.P90[i]))
		} else {
			sb.WriteString(",,,\n")
		}
	}

	return sb.String()
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf(format, *v)
}

func lastValue(v []float64) string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", v[len(v)-1])
}
