package analytics

import (
	"math"
	"slices"

	"github.com/sadopc/somnus/internal/sleep"
)

// Stats are the dashboard figures, available for any history length.
type Stats struct {
	Count                int     `json:"count"`
	AverageDurationHours float64 `json:"averageDurationHours"` // one decimal
	AverageQuality       int     `json:"averageQuality"`
	// Progress is Count over the analysis threshold, capped at 1.
	Progress float64 `json:"progress"`
}

func Summarize(history []sleep.Session) Stats {
	duration, quality := means(history)
	return Stats{
		Count:                len(history),
		AverageDurationHours: math.Round(duration*10) / 10,
		AverageQuality:       int(math.Round(quality)),
		Progress:             math.Min(1, float64(len(history))/sleep.MilestoneThreshold),
	}
}

// Recent returns the newest n sessions of a newest-first history, oldest
// first, for charting.
func Recent(history []sleep.Session, n int) []sleep.Session {
	if n <= 0 {
		return nil
	}
	if n > len(history) {
		n = len(history)
	}
	out := slices.Clone(history[:n])
	slices.Reverse(out)
	return out
}
