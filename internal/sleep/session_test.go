package sleep

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

func TestQualityFor(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		want  int
	}{
		{name: "zero", hours: 0, want: 0},
		{name: "negative", hours: -2, want: 0},
		{name: "five hours", hours: 5.0, want: 60},
		{name: "rounds half up", hours: 0.125, want: 2},
		{name: "seven and a half", hours: 7.5, want: 90},
		{name: "rounds up to cap", hours: 8.3, want: 100},
		{name: "clamped above cap", hours: 8.5, want: 100},
		{name: "long sleep", hours: 14, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualityFor(tt.hours); got != tt.want {
				t.Fatalf("QualityFor(%v) = %d, want %d", tt.hours, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		span        time.Duration
		wantHours   float64
		wantQuality int
		regressed   bool
	}{
		{name: "five hours", span: 5 * time.Hour, wantHours: 5.0, wantQuality: 60},
		{name: "rounded to one decimal", span: 7*time.Hour + 20*time.Minute, wantHours: 7.3, wantQuality: 88},
		{name: "eight and a half", span: 8*time.Hour + 30*time.Minute, wantHours: 8.5, wantQuality: 100},
		{name: "zero", span: 0, wantHours: 0, wantQuality: 0},
		{name: "a few minutes", span: 2 * time.Minute, wantHours: 0, wantQuality: 0},
		{name: "clock regression", span: -3 * time.Hour, wantHours: 0, wantQuality: 0, regressed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours, quality, regressed := Score(base, base.Add(tt.span))
			if hours != tt.wantHours {
				t.Fatalf("hours = %v, want %v", hours, tt.wantHours)
			}
			if quality != tt.wantQuality {
				t.Fatalf("quality = %d, want %d", quality, tt.wantQuality)
			}
			if regressed != tt.regressed {
				t.Fatalf("regressed = %v, want %v", regressed, tt.regressed)
			}
		})
	}
}

func TestQualityDerivableFromDuration(t *testing.T) {
	for m := 0; m <= 12*60; m += 7 {
		hours, quality, _ := Score(base, base.Add(time.Duration(m)*time.Minute))
		if quality != QualityFor(hours) {
			t.Fatalf("%d min: quality %d not derivable from duration %v", m, quality, hours)
		}
		if quality < 0 || quality > MaxQuality {
			t.Fatalf("%d min: quality %d out of range", m, quality)
		}
	}
}

func TestSessionCompleted(t *testing.T) {
	s := completed("a", base, base.Add(6*time.Hour), 6, 72)
	if !s.Completed() || s.Partial() {
		t.Fatal("completed session misreported")
	}

	inProgress := Session{ID: "b", StartTime: base}
	if inProgress.Completed() || inProgress.Partial() {
		t.Fatal("in-progress session misreported")
	}
	if inProgress.DurationHours() != 0 || inProgress.QualityScore() != 0 {
		t.Fatal("absent fields should read as zero")
	}

	end := base.Add(time.Hour)
	partial := Session{ID: "c", StartTime: base, EndTime: &end}
	if partial.Completed() || !partial.Partial() {
		t.Fatal("partial session misreported")
	}
}

func TestSessionJSONShape(t *testing.T) {
	s := completed("abc", base, base.Add(5*time.Hour), 5, 60)
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"id":"abc"`, `"startTime":`, `"endTime":`, `"duration":5`, `"quality":60`} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("missing %s in %s", field, data)
		}
	}

	inProgress, _ := json.Marshal(Session{ID: "x", StartTime: base})
	if strings.Contains(string(inProgress), "endTime") || strings.Contains(string(inProgress), "quality") {
		t.Fatalf("in-progress session should omit derived fields: %s", inProgress)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := completed("a", base, base.Add(6*time.Hour), 6, 72)
	c := s.clone()
	*c.Quality = 1
	*c.Duration = 1
	if s.QualityScore() != 72 || s.DurationHours() != 6 {
		t.Fatal("clone shares pointers with the original")
	}
}
