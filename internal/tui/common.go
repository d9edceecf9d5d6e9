package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/somnus/internal/sleep"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewCare
	viewRoutine
	viewSettings
)

var viewNames = []string{"Dashboard", "Care", "Routine", "Settings"}

// --- Messages ---

type sleepStartedMsg struct {
	start time.Time
}

type sleepEndedMsg struct {
	completion sleep.Completion
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type planSelectedMsg struct {
	name string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatCountdown renders m:ss like a kitchen timer.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.1fh", h)
}

func errorCmd(format string, err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf(format, err), isError: true}
	}
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text}
	}
}
