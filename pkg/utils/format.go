// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatStat formats a statistic or p-value with four decimals.
// NaN renders as "N/A".
func FormatStat(v float64) string {
	if math.IsNaN(v) {
		return "N/A"
	}
	return fmt.Sprintf("%.4f", v)
}

// FormatVolume formats a volume in compact form (K/M/B).
func FormatVolume(v float64) string {
	if math.IsNaN(v) {
		return "N/A"
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	}
	return fmt.Sprintf("%.0f", v)
}

// FormatRatio formats "n / total".
func FormatRatio(n, total int) string {
	return fmt.Sprintf("%d / %d", n, total)
}

// YesNo renders a boolean as Yes/No.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// CleanCompanyName drops the ", Inc." suffix used in listings.
func CleanCompanyName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, ", Inc.", ""))
}
