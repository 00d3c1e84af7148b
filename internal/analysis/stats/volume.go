// Package stats prepares disclosure windows and runs the paired statistical tests.
package stats

import (
	"strconv"
	"strings"
)

// NormalizeVolume converts a volume that may carry a magnitude suffix to a
// plain number. A value containing "M" is scaled by 1e6 and one containing
// "B" by 1e9; anything else must parse as a float.
func NormalizeVolume(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.Contains(s, "M"):
		v, err := parseFloat(strings.ReplaceAll(s, "M", ""))
		if err != nil {
			return 0, err
		}
		return v * 1e6, nil
	case strings.Contains(s, "B"):
		v, err := parseFloat(strings.ReplaceAll(s, "B", ""))
		if err != nil {
			return 0, err
		}
		return v * 1e9, nil
	}
	return parseFloat(s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
