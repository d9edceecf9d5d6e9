package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/somnus/internal/catalog"
	"github.com/sadopc/somnus/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	userName       *string
	targetSleep    *string
	wakeUp         *string
	routineMinutes *string
}

func newSettingsModel(s *store.Store) settingsModel {
	un, ts, wu, rm := "", "", "", ""
	return settingsModel{
		store:          s,
		userName:       &un,
		targetSleep:    &ts,
		wakeUp:         &wu,
		routineMinutes: &rm,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

// settingsSavedMsg tells other views to reload what they read from settings.
type settingsSavedMsg struct{}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.userName = s.store.SettingOr(store.SettingUserName, "Sleeper")
	*s.targetSleep = s.store.SettingOr(store.SettingTargetSleepTime, "23:00")
	*s.wakeUp = s.store.SettingOr(store.SettingWakeUpTime, "07:30")
	*s.routineMinutes = strconv.Itoa(s.store.RoutineMinutes())

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(s.userName).Validate(validateName),
			huh.NewInput().Title("Target bedtime (HH:MM)").Value(s.targetSleep).Validate(validateClock),
			huh.NewInput().Title("Wake-up time (HH:MM)").Value(s.wakeUp).Validate(validateClock),
		).Title("Profile"),
		huh.NewGroup(
			huh.NewInput().Title("Sound timer (min)").Value(s.routineMinutes).Validate(validateMinutes),
		).Title("Routine"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, errorCmd("Save failed: %v", err)
		}
		return s, tea.Batch(s.refresh(), func() tea.Msg { return settingsSavedMsg{} })
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	values := []store.Setting{
		{Key: store.SettingUserName, Value: *s.userName},
		{Key: store.SettingTargetSleepTime, Value: *s.targetSleep},
		{Key: store.SettingWakeUpTime, Value: *s.wakeUp},
		{Key: store.SettingRoutineMinutes, Value: *s.routineMinutes},
	}
	for _, v := range values {
		if err := s.store.SetSetting(v.Key, v.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(settingLabel(setting.Key))
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func settingLabel(k string) string {
	switch k {
	case store.SettingUserName:
		return "Name"
	case store.SettingTargetSleepTime:
		return "Target bedtime"
	case store.SettingWakeUpTime:
		return "Wake-up time"
	case store.SettingRoutineMinutes:
		return "Sound timer"
	case store.SettingSelectedPlan:
		return "Care plan"
	}
	return k
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.SettingRoutineMinutes:
		if n, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d min", n)
		}
	case store.SettingSelectedPlan:
		if v == "" {
			return "none"
		}
		if p, ok := catalog.ByID(v); ok {
			return p.Name
		}
	}
	return v
}

func validateName(s string) error {
	if s == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func validateClock(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("use 24-hour HH:MM")
	}
	return nil
}

func validateMinutes(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 240 {
		return fmt.Errorf("enter whole minutes between 1 and 240")
	}
	return nil
}
