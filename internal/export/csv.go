package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/somnus/internal/sleep"
)

// ToCSV writes history, newest first, to path.
func ToCSV(history []sleep.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Start", "End", "Duration (h)", "Slept", "Quality"}); err != nil {
		return err
	}

	for _, s := range history {
		endStr, durStr, qualStr := "", "", ""
		if s.EndTime != nil {
			endStr = s.EndTime.Local().Format(time.RFC3339)
		}
		if s.Duration != nil {
			durStr = strconv.FormatFloat(*s.Duration, 'f', 1, 64)
		}
		if s.Quality != nil {
			qualStr = strconv.Itoa(*s.Quality)
		}

		row := []string{
			s.ID,
			s.StartTime.Local().Format(time.RFC3339),
			endStr,
			durStr,
			formatHours(s.DurationHours()),
			qualStr,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatHours renders fractional hours as hh:mm.
func formatHours(h float64) string {
	mins := int64(h*60 + 0.5)
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
