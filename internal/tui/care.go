package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/somnus/internal/analytics"
	"github.com/sadopc/somnus/internal/catalog"
	"github.com/sadopc/somnus/internal/sleep"
	"github.com/sadopc/somnus/internal/store"
)

type careModel struct {
	store  *store.Store
	engine *sleep.Engine
	width  int
	height int

	products  []catalog.Product
	cursor    int
	snapshot  analytics.Snapshot
	ready     bool
	remaining int
	plan      string // selected product id
}

func newCareModel(s *store.Store, e *sleep.Engine) careModel {
	return careModel{
		store:     s,
		engine:    e,
		products:  catalog.All(),
		remaining: sleep.MilestoneThreshold,
	}
}

func (c *careModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type careDataMsg struct {
	history []sleep.Session
	plan    string
}

func (c careModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return careDataMsg{
			history: c.engine.History(),
			plan:    c.store.SettingOr(store.SettingSelectedPlan, ""),
		}
	}
}

func (c careModel) update(msg tea.Msg) (careModel, tea.Cmd) {
	switch msg := msg.(type) {
	case careDataMsg:
		c.snapshot, c.ready = analytics.Analyze(msg.history)
		c.remaining = analytics.Remaining(msg.history)
		c.plan = msg.plan
		if c.ready {
			c.cursor = c.recommendedIndex()
		}
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if c.cursor > 0 {
				c.cursor--
			}
		case key.Matches(msg, keys.Down):
			if c.cursor < len(c.products)-1 {
				c.cursor++
			}
		case key.Matches(msg, keys.Enter):
			return c.selectPlan()
		}
	}
	return c, nil
}

func (c careModel) selectPlan() (careModel, tea.Cmd) {
	if len(c.products) == 0 {
		return c, nil
	}
	p := c.products[c.cursor]
	if err := c.store.SetSetting(store.SettingSelectedPlan, p.ID); err != nil {
		return c, errorCmd("Error: %v", err)
	}
	c.plan = p.ID
	return c, func() tea.Msg { return planSelectedMsg{name: p.Name} }
}

// recommendedIndex is the catalog position of the product matching the
// current analysis, or 0.
func (c careModel) recommendedIndex() int {
	rec, ok := catalog.ForCategory(c.snapshot.Category)
	if !ok {
		return 0
	}
	for i, p := range c.products {
		if p.ID == rec.ID {
			return i
		}
	}
	return 0
}

func (c careModel) view() string {
	w := c.width - 4
	return lipgloss.JoinVertical(lipgloss.Left,
		c.renderReport(w),
		c.renderProducts(w),
	)
}

func (c careModel) renderReport(w int) string {
	title := titleStyle.Render("Sleep analysis")

	if !c.ready {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			warningStyle.Render(fmt.Sprintf("Need %d more nights of data", c.remaining)),
			mutedStyle.Render(fmt.Sprintf("A full report unlocks after %d recorded nights.", sleep.MilestoneThreshold)),
		)
		return panelStyle.Width(w).Render(content)
	}

	s := c.snapshot
	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		accentStyle.Bold(true).Render(s.Category.Label()),
		fmt.Sprintf("%s avg sleep   %s avg quality",
			highlightStyle.Render(fmt.Sprintf("%.1fh", s.AverageDurationHours)),
			successStyle.Render(fmt.Sprintf("%.0f", s.AverageQualityScore))),
		"",
		normalItemStyle.Width(w-6).Render(s.Summary),
		mutedStyle.Width(w-6).Render(s.Rationale),
	)
	return activePanelStyle.Width(w).Render(content)
}

func (c careModel) renderProducts(w int) string {
	rows := []string{titleStyle.Render("Care plans"), ""}

	var recommended string
	if c.ready {
		if p, ok := catalog.ForCategory(c.snapshot.Category); ok {
			recommended = p.ID
		}
	}

	for i, p := range c.products {
		cursor := "  "
		style := normalItemStyle
		if i == c.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		var tags []string
		if p.ID == recommended {
			tags = append(tags, accentStyle.Render("★ recommended"))
		}
		if p.ID == c.plan {
			tags = append(tags, successStyle.Render("✓ subscribed"))
		}
		line := fmt.Sprintf("%s%-28s %s", cursor, p.Name, mutedStyle.Render(catalog.FormatPrice(p.Price)))
		if len(tags) > 0 {
			line += "  " + strings.Join(tags, " ")
		}
		rows = append(rows, style.Render(line))
		if i == c.cursor {
			rows = append(rows, mutedStyle.Render("    "+p.Description))
			rows = append(rows, mutedStyle.Render("    "+strings.Join(p.Benefits, " · ")))
		}
	}

	rows = append(rows, "", mutedStyle.Render("  ↑/↓: browse  enter: subscribe"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
