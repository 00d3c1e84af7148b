package cli

import (
	"fmt"
	"math"
	"time"

	"breach-analyzer/internal/models"
	"breach-analyzer/pkg/utils"
)

// FormatMetric formats a metric with four decimals, N/A for undefined values.
func FormatMetric(v float64) string {
	if math.IsInf(v, 0) {
		return "N/A"
	}
	return utils.FormatStat(v)
}

// FormatListingDate formats a disclosure date the way the listing shows it:
// month-day-year followed by the weekday.
func FormatListingDate(t time.Time) string {
	return t.Format("01-02-2006  Monday")
}

// FormatDisclosureLine formats one numbered entry of the disclosure listing.
func FormatDisclosureLine(index int, t time.Time) string {
	return fmt.Sprintf(" [%d] %s", index, FormatListingDate(t))
}

// FormatCenter formats a window center, noting how far it moved past the
// disclosure date.
func FormatCenter(w models.DisclosureWindow) string {
	center := w.Center.Format(models.DateLayout)
	if !w.Substituted {
		return center
	}
	days := w.OffsetDays()
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%s (+%d %s)", center, days, unit)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
