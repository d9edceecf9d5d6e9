package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/somnus/internal/analytics"
	"github.com/sadopc/somnus/internal/sleep"
)

type jsonExport struct {
	ExportedAt string              `json:"exported_at"`
	Count      int                 `json:"count"`
	Summary    analytics.Stats     `json:"summary"`
	Analysis   *analytics.Snapshot `json:"analysis,omitempty"`
	Sessions   []jsonSession       `json:"sessions"`
}

type jsonSession struct {
	ID        string   `json:"id"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time,omitempty"`
	Duration  *float64 `json:"duration_hours,omitempty"`
	Slept     string   `json:"slept"`
	Quality   *int     `json:"quality,omitempty"`
}

// ToJSON writes history, newest first, with its summary and, once
// available, its analysis.
func ToJSON(history []sleep.Session, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(history),
		Summary:    analytics.Summarize(history),
	}
	if snap, ok := analytics.Analyze(history); ok {
		export.Analysis = &snap
	}

	for _, s := range history {
		endStr := ""
		if s.EndTime != nil {
			endStr = s.EndTime.Local().Format(time.RFC3339)
		}
		export.Sessions = append(export.Sessions, jsonSession{
			ID:        s.ID,
			StartTime: s.StartTime.Local().Format(time.RFC3339),
			EndTime:   endStr,
			Duration:  s.Duration,
			Slept:     formatHours(s.DurationHours()),
			Quality:   s.Quality,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
