package store

import "time"

// Record is one row of the key-value table.
type Record struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type Setting struct {
	Key   string
	Value string
}

// Setting keys seeded by the first migration.
const (
	SettingUserName        = "user_name"
	SettingTargetSleepTime = "target_sleep_time"
	SettingWakeUpTime      = "wake_up_time"
	SettingRoutineMinutes  = "routine_minutes"
	SettingSelectedPlan    = "selected_plan"
)
