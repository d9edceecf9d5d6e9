// Package analytics derives statistics and a recommendation category from a
// sleep history. Every function is pure: it reads the history passed in and
// nothing else.
package analytics

import (
	"fmt"
	"math"

	"github.com/sadopc/somnus/internal/sleep"
)

// Category is the recommendation bucket of a completed history.
type Category string

const (
	FastSleep Category = "fast_sleep"
	DeepSleep Category = "deep_sleep"
	Recovery  Category = "recovery"
)

// Label is the human name of the pattern behind a category.
func (c Category) Label() string {
	switch c {
	case FastSleep:
		return "Sleep duration deficient"
	case DeepSleep:
		return "Low sleep quality"
	case Recovery:
		return "Fatigue accumulation"
	}
	return string(c)
}

// Classification thresholds.
const (
	ShortSleepHours = 6.0
	LowQualityScore = 75.0
)

const recoveryRationale = "Your sleep pattern is stable, but fatigue shows up when you wake. " +
	"Mineral support that maximizes physical recovery while you sleep is recommended."

// Snapshot is the analysis of a history with at least
// sleep.MilestoneThreshold sessions.
type Snapshot struct {
	AverageDurationHours float64  `json:"averageDurationHours"`
	AverageQualityScore  float64  `json:"averageQualityScore"`
	Category             Category `json:"category"`
	Rationale            string   `json:"rationale"`
	Summary              string   `json:"summary"`
}

// Analyze classifies history. ok is false while the history is shorter than
// sleep.MilestoneThreshold; Remaining reports how many sessions are missing.
func Analyze(history []sleep.Session) (snap Snapshot, ok bool) {
	if len(history) < sleep.MilestoneThreshold {
		return Snapshot{}, false
	}

	avgDuration, avgQuality := means(history)
	snap = Snapshot{
		AverageDurationHours: avgDuration,
		AverageQualityScore:  avgQuality,
	}

	// First matching rule wins.
	switch {
	case avgDuration < ShortSleepHours:
		snap.Category = FastSleep
		snap.Rationale = fmt.Sprintf("Your average sleep is %.1f hours, short of the recommended amount. "+
			"A solution that helps you fall asleep faster is needed.", avgDuration)
	case avgQuality < LowQualityScore:
		snap.Category = DeepSleep
		snap.Rationale = fmt.Sprintf("Your sleep efficiency score measured %d, which is low. "+
			"Raising the share of deep (non-REM) sleep matters most.", int(math.Round(avgQuality)))
	default:
		snap.Category = Recovery
		snap.Rationale = recoveryRationale
	}
	snap.Summary = snap.Category.Label()
	return snap, true
}

// Remaining is the number of sessions still needed before Analyze reports a
// snapshot.
func Remaining(history []sleep.Session) int {
	return max(0, sleep.MilestoneThreshold-len(history))
}

func means(history []sleep.Session) (duration, quality float64) {
	if len(history) == 0 {
		return 0, 0
	}
	var sumDuration float64
	var sumQuality int
	for _, s := range history {
		sumDuration += s.DurationHours()
		sumQuality += s.QualityScore()
	}
	n := float64(len(history))
	return sumDuration / n, float64(sumQuality) / n
}
