package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/somnus/internal/store"
)

type soundTrack struct {
	id   string
	name string
	kind string
}

var soundTracks = []soundTrack{
	{id: "1", name: "Crackling fire", kind: "nature"},
	{id: "2", name: "Deep ocean", kind: "water"},
	{id: "3", name: "Summer night rain", kind: "weather"},
	{id: "4", name: "White noise", kind: "synthetic"},
}

const noTrack = -1

type routineModel struct {
	store  *store.Store
	width  int
	height int

	cursor  int
	playing int // index into soundTracks, or noTrack

	length    time.Duration
	remaining time.Duration
}

func newRoutineModel(s *store.Store) routineModel {
	r := routineModel{
		store:   s,
		playing: noTrack,
	}
	r.loadSettings()
	r.remaining = r.length
	return r
}

func (r *routineModel) loadSettings() {
	r.length = time.Duration(r.store.RoutineMinutes()) * time.Minute
}

func (r *routineModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r routineModel) isPlaying() bool { return r.playing != noTrack }

// sleepChanged follows the sleep session: starting one plays the first
// track, ending one stops playback.
func (r routineModel) sleepChanged(sleeping bool) routineModel {
	if sleeping {
		r.playing = 0
		r.cursor = 0
	} else {
		r.playing = noTrack
	}
	return r
}

func (r routineModel) update(msg tea.Msg) (routineModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if r.isPlaying() && r.remaining > 0 {
			r.remaining -= time.Second
			if r.remaining <= 0 {
				r.remaining = 0
				r.playing = noTrack
				return r, statusCmd("Sound timer finished. Sleep well.")
			}
		}
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if r.cursor > 0 {
				r.cursor--
			}
		case key.Matches(msg, keys.Down):
			if r.cursor < len(soundTracks)-1 {
				r.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if r.playing == r.cursor {
				r.playing = noTrack
			} else {
				r.playing = r.cursor
			}
		case key.Matches(msg, keys.Play):
			if r.isPlaying() {
				r.playing = noTrack
			} else {
				r.playing = r.cursor
			}
		case key.Matches(msg, keys.Reset):
			r.loadSettings()
			r.remaining = r.length
		}
	}
	return r, nil
}

func (r routineModel) view() string {
	w := r.width - 4

	title := titleStyle.Render("Sleep timer")

	var clock, indicator string
	if r.isPlaying() {
		clock = clockSleepingStyle.Width(w - 6).Render(formatCountdown(r.remaining))
		indicator = accentStyle.Render("♪  " + soundTracks[r.playing].name)
	} else {
		clock = clockStyle.Width(w - 6).Render(formatCountdown(r.remaining))
		indicator = mutedStyle.Render("■  paused")
	}

	timerPanel := panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		title, "", clock, indicator,
	))

	rows := []string{titleStyle.Render("Sound mix"), ""}
	for i, t := range soundTracks {
		cursor := "  "
		style := normalItemStyle
		if i == r.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		marker := mutedStyle.Render("○")
		if i == r.playing {
			marker = accentStyle.Render("●")
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %-20s", cursor, marker, t.name))+
			mutedStyle.Render(" "+t.kind))
	}
	rows = append(rows, "",
		mutedStyle.Render("  enter: play track  space: play/pause  r: reset"),
		"",
		mutedStyle.Italic(true).Render("  You did well today. Have a restful night."),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		timerPanel,
		panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}
