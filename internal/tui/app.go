package tui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/somnus/internal/export"
	"github.com/sadopc/somnus/internal/milestone"
	"github.com/sadopc/somnus/internal/sleep"
	"github.com/sadopc/somnus/internal/store"
)

// App is the root Bubble Tea model.
type App struct {
	store  *store.Store
	engine *sleep.Engine
	log    *slog.Logger
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	care      careModel
	routine   routineModel
	settings  settingsModel

	help   help.Model
	status string
}

func NewApp(s *store.Store, e *sleep.Engine, log *slog.Logger) App {
	h := help.New()
	h.ShowAll = false

	notifier := milestone.New(func() {
		log.Info("sleep history reached the analysis milestone", "sessions", sleep.MilestoneThreshold)
	})

	return App{
		store:      s,
		engine:     e,
		log:        log,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(s, e, notifier),
		care:       newCareModel(s, e),
		routine:    newRoutineModel(s).sleepChanged(e.Sleeping()),
		settings:   newSettingsModel(s),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.care.setSize(a.width, contentHeight)
		a.routine.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isCapturing() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, a.dashboard.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewCare
			return a, a.care.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewRoutine
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

		// Sleep controls work from every view.
		if key.Matches(msg, keys.Start) || key.Matches(msg, keys.Wake) {
			var cmd tea.Cmd
			a.dashboard, cmd = a.dashboard.update(msg)
			return a, cmd
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		a.routine, cmd = a.routine.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		if msg.isError {
			a.log.Error("tui", "status", msg.text)
		}
		return a, nil

	case sleepStartedMsg:
		a.status = "Good night. Sleep tracking started at " + msg.start.Local().Format("15:04")
		a.routine = a.routine.sleepChanged(true)
		if !a.isCapturing() {
			a.activeView = viewRoutine
		}
		return a, nil

	case sleepEndedMsg:
		s := msg.completion.Session
		a.status = fmt.Sprintf("Good morning. You slept %s, quality %d", formatHours(s.DurationHours()), s.QualityScore())
		a.routine = a.routine.sleepChanged(false)
		if a.dashboard.showMilestone {
			a.activeView = viewDashboard
		}
		return a, a.care.refresh()

	case planSelectedMsg:
		a.status = "Subscribed to " + msg.name
		return a, nil

	case settingsSavedMsg:
		a.status = "Settings saved"
		if !a.routine.isPlaying() {
			a.routine.loadSettings()
			a.routine.remaining = a.routine.length
		}
		return a, a.dashboard.loadData()

	case dashboardDataMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case careDataMsg:
		var cmd tea.Cmd
		a.care, cmd = a.care.update(msg)
		return a, cmd

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewCare:
		a.care, cmd = a.care.update(msg)
	case viewRoutine:
		a.routine, cmd = a.routine.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

// isCapturing reports whether the active view owns every key press.
func (a App) isCapturing() bool {
	if a.dashboard.showMilestone {
		return a.activeView == viewDashboard
	}
	if a.activeView == viewSettings {
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadData()
	case viewCare:
		return a.care.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewCare:
		content = a.care.view()
	case viewRoutine:
		content = a.routine.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(a.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("somnus")
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	sleepInfo := ""
	if a.dashboard.isSleeping() {
		sleepInfo = accentStyle.Render(" ☾ " + a.dashboard.elapsed())
	}
	if err := a.engine.Degraded(); err != nil {
		sleepInfo += errorStyle.Render(" ⚠ not saving")
	}

	left := footerStyle.Render(helpView)
	right := sleepInfo + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		home, _ := os.UserHomeDir()
		return a, a.doExport(a.exportCursor, home)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int, dir string) tea.Cmd {
	return func() tea.Msg {
		history := a.engine.History()
		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("somnus-export-%s.csv", dateStr))
			if err := export.ToCSV(history, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("somnus-export-%s.json", dateStr))
			if err := export.ToJSON(history, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		a.log.Info("history exported", "path", path, "sessions", len(history))
		return exportDoneMsg{path: path}
	}
}
