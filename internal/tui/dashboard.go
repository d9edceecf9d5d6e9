package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/somnus/internal/analytics"
	"github.com/sadopc/somnus/internal/milestone"
	"github.com/sadopc/somnus/internal/sleep"
	"github.com/sadopc/somnus/internal/store"
)

const (
	chartNights  = 7
	recentNights = 3
)

type dashboardModel struct {
	store    *store.Store
	engine   *sleep.Engine
	notifier *milestone.Notifier
	timer    sleepTimer
	width    int
	height   int

	userName string
	history  []sleep.Session
	stats    analytics.Stats
	chart    barchart.Model

	// showMilestone keeps the acknowledgement dialog up until dismissed.
	showMilestone bool
}

func newDashboardModel(s *store.Store, e *sleep.Engine, n *milestone.Notifier) dashboardModel {
	return dashboardModel{
		store:    s,
		engine:   e,
		notifier: n,
		timer:    newSleepTimer(e),
		chart:    barchart.New(60, 10),
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.buildChart()
}

func (d dashboardModel) isSleeping() bool { return d.timer.running() }
func (d dashboardModel) elapsed() string  { return formatDuration(d.timer.currentElapsed()) }

type dashboardDataMsg struct {
	userName string
	history  []sleep.Session
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		return dashboardDataMsg{
			userName: d.store.SettingOr(store.SettingUserName, "Sleeper"),
			history:  d.engine.History(),
		}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.userName = msg.userName
		d.history = msg.history
		d.stats = analytics.Summarize(msg.history)
		d.buildChart()
		return d, nil

	case tickMsg:
		d.timer.tick()
		return d, nil

	case tea.KeyMsg:
		if d.showMilestone {
			if key.Matches(msg, keys.Enter) || key.Matches(msg, keys.Back) {
				d.showMilestone = false
			}
			return d, nil
		}

		switch {
		case key.Matches(msg, keys.Start):
			return d.startSleep()
		case key.Matches(msg, keys.Wake):
			return d.wakeUp()
		}
	}
	return d, nil
}

func (d dashboardModel) startSleep() (dashboardModel, tea.Cmd) {
	start, err := d.timer.begin()
	if errors.Is(err, sleep.ErrAlreadySleeping) {
		return d, statusCmd("Already sleeping. Press x to wake up.")
	}
	if err != nil {
		return d, errorCmd("Error: %v", err)
	}
	return d, func() tea.Msg { return sleepStartedMsg{start: start} }
}

func (d dashboardModel) wakeUp() (dashboardModel, tea.Cmd) {
	c, err := d.timer.finish()
	if errors.Is(err, sleep.ErrInvalidState) {
		return d, statusCmd("No sleep in progress. Press s to start.")
	}
	if err != nil {
		return d, errorCmd("Error: %v", err)
	}
	if d.notifier.Observe(c) {
		d.showMilestone = true
	}
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return sleepEndedMsg{completion: c} },
	)
}

func (d *dashboardModel) buildChart() {
	chartWidth := max(d.width-8, 20)
	chartHeight := 8
	if d.height > 36 {
		chartHeight = 12
	}

	d.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, s := range analytics.Recent(d.history, chartNights) {
		bars = append(bars, barchart.BarData{
			Label: s.StartTime.Local().Format("Mon"),
			Values: []barchart.BarValue{{
				Name:  "quality",
				Value: float64(s.QualityScore()),
				Style: lipgloss.NewStyle().Foreground(colorPrimary),
			}},
		})
	}
	if len(bars) == 0 {
		return
	}

	d.chart.PushAll(bars)
	d.chart.Draw()
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	if d.showMilestone {
		return d.renderMilestoneDialog(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderSleepPanel(contentWidth),
		d.renderProgressPanel(contentWidth),
		d.renderTrendPanel(contentWidth),
		d.renderRecentPanel(contentWidth),
	)
}

func (d dashboardModel) renderSleepPanel(w int) string {
	greeting := highlightStyle.Render(fmt.Sprintf("Good night, %s", d.userName))

	if d.timer.running() {
		clock := clockSleepingStyle.Width(w - 6).Render(formatDuration(d.timer.currentElapsed()))
		since := mutedStyle.Render("asleep since " + d.timer.start.Local().Format("15:04"))
		content := lipgloss.JoinVertical(lipgloss.Center,
			greeting,
			clock,
			accentStyle.Render("☾  SLEEPING"),
			since,
		)
		return activePanelStyle.Width(w).Render(content)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		greeting,
		clockStyle.Width(w-6).Render("00:00:00"),
		mutedStyle.Render("■  AWAKE"),
		mutedStyle.Render("Press s when you go to bed"),
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderProgressPanel(w int) string {
	if d.stats.Count >= sleep.MilestoneThreshold {
		content := lipgloss.JoinVertical(lipgloss.Left,
			successStyle.Bold(true).Render("30-night sleep map complete"),
			mutedStyle.Render("Your analysis report is ready in the Care tab."),
		)
		return panelStyle.Width(w).Render(content)
	}

	barWidth := max(w-16, 10)
	filled := int(d.stats.Progress * float64(barWidth))
	bar := accentStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", barWidth-filled))

	content := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s  %s",
			titleStyle.Render("Collecting data"),
			highlightStyle.Render(fmt.Sprintf("%d%%", int(d.stats.Progress*100+0.5)))),
		bar,
		mutedStyle.Render(fmt.Sprintf("%d of %d nights recorded", d.stats.Count, sleep.MilestoneThreshold)),
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderTrendPanel(w int) string {
	title := titleStyle.Render("Recent trend")
	averages := fmt.Sprintf("  %s avg sleep   %s avg quality",
		highlightStyle.Render(formatHours(d.stats.AverageDurationHours)),
		successStyle.Render(fmt.Sprintf("%d", d.stats.AverageQuality)),
	)

	if len(d.history) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, averages, "", mutedStyle.Render("No sleep recorded yet"),
		))
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		title, averages, "", d.chart.View(),
	))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent nights")
	if len(d.history) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No nights yet"),
		))
	}

	rows := []string{title}
	for _, s := range d.history[:min(recentNights, len(d.history))] {
		rows = append(rows, fmt.Sprintf("  ✓ %s  %-8s %s",
			s.StartTime.Local().Format("Jan 02 15:04"),
			formatHours(s.DurationHours()),
			highlightStyle.Render(fmt.Sprintf("%3d", s.QualityScore())),
		))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderMilestoneDialog(w int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		accentStyle.Bold(true).Render("☾  30 nights complete"),
		"",
		normalItemStyle.Render(milestone.Message),
		"",
		mutedStyle.Render("enter: ok"),
	)
	return dialogStyle.Width(w).Render(content)
}
