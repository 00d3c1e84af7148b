package stats

import (
	"fmt"

	"breach-analyzer/internal/models"
)

// Direction is the sign of a correlation coefficient.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNone     Direction = ""
)

// DirectionOf returns the direction of coefficient r. Zero reads as negative.
func DirectionOf(r float64) Direction {
	if r > 0 {
		return DirectionPositive
	}
	return DirectionNegative
}

// Narrative returns the interpretation sentence for a test outcome. Every
// report surface takes its wording from here.
func Narrative(kind models.TestKind, significant bool, dir Direction) string {
	const subject = "stock price change and index change"

	if kind == models.Pearson {
		if significant {
			if dir == DirectionNone {
				dir = DirectionPositive
			}
			return fmt.Sprintf("The correlation is statistically significant, indicating a %s relationship between %s.", dir, subject)
		}
		return fmt.Sprintf("The correlation is not statistically significant, indicating no significant linear relationship between %s.", subject)
	}

	name := testName(kind)
	if significant {
		return fmt.Sprintf("The %s result is statistically significant, indicating a significant difference between %s.", name, subject)
	}
	return fmt.Sprintf("The %s result is not statistically significant, indicating no significant difference between %s.", name, subject)
}

// FailureNarrative describes a test that could not be computed.
func FailureNarrative(kind models.TestKind) string {
	return fmt.Sprintf("The %s could not be computed for this window.", testName(kind))
}

func testName(kind models.TestKind) string {
	switch kind {
	case models.PairedT:
		return "t-test"
	case models.SignedRank:
		return "Wilcoxon test"
	case models.Pearson:
		return "correlation"
	case models.RankSum:
		return "Mann-Whitney U test"
	}
	return string(kind)
}

// Classification labels an outcome for the per-window interpretation.
func Classification(o models.TestOutcome) string {
	if !o.Failed() && o.Significant {
		return "Statistically significant"
	}
	return "Not statistically significant"
}
