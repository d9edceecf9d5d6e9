package sleep

import (
	"math"
	"time"
)

// QualityPerHour is the linear weight of one hour of sleep in the quality
// score.
const QualityPerHour = 12

// MaxQuality is the upper bound of a quality score.
const MaxQuality = 100

// Session is one sleep attempt. EndTime, Duration and Quality are either all
// set (completed) or all nil.
type Session struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Duration  *float64   `json:"duration,omitempty"` // hours, one decimal
	Quality   *int       `json:"quality,omitempty"`  // 0-100
}

// Completed reports whether all derived fields are present.
func (s Session) Completed() bool {
	return s.EndTime != nil && s.Duration != nil && s.Quality != nil
}

// Partial reports whether some, but not all, derived fields are present.
func (s Session) Partial() bool {
	n := 0
	if s.EndTime != nil {
		n++
	}
	if s.Duration != nil {
		n++
	}
	if s.Quality != nil {
		n++
	}
	return n > 0 && n < 3
}

// DurationHours returns the duration, or 0 when absent.
func (s Session) DurationHours() float64 {
	if s.Duration == nil {
		return 0
	}
	return *s.Duration
}

// QualityScore returns the quality, or 0 when absent.
func (s Session) QualityScore() int {
	if s.Quality == nil {
		return 0
	}
	return *s.Quality
}

// Score derives the duration in hours (rounded to one decimal) and the
// quality score of a session spanning start to end. A negative span is
// clamped to zero and reported through regressed.
func Score(start, end time.Time) (hours float64, quality int, regressed bool) {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
		regressed = true
	}
	hours = math.Round(elapsed.Hours()*10) / 10
	return hours, QualityFor(hours), regressed
}

// QualityFor maps a duration in hours onto the 0-100 quality scale.
func QualityFor(hours float64) int {
	if hours <= 0 || math.IsNaN(hours) {
		return 0
	}
	q := int(math.Round(hours * QualityPerHour))
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}

func completed(id string, start, end time.Time, hours float64, quality int) Session {
	return Session{
		ID:        id,
		StartTime: start,
		EndTime:   &end,
		Duration:  &hours,
		Quality:   &quality,
	}
}
