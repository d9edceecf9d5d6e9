package tui

import (
	"time"

	"github.com/sadopc/somnus/internal/sleep"
)

// sleepTimer is the dashboard's view of the engine's in-progress session.
// The engine holds the state; the timer only caches what the last tick saw
// so rendering never takes the engine lock.
type sleepTimer struct {
	engine *sleep.Engine

	sleeping bool
	start    time.Time
	elapsed  time.Duration
}

func newSleepTimer(e *sleep.Engine) sleepTimer {
	t := sleepTimer{engine: e}
	t.tick()
	return t
}

func (t *sleepTimer) begin() (time.Time, error) {
	if err := t.engine.Start(); err != nil {
		return time.Time{}, err
	}
	t.tick()
	return t.start, nil
}

func (t *sleepTimer) finish() (sleep.Completion, error) {
	c, err := t.engine.End()
	if err != nil {
		return sleep.Completion{}, err
	}
	t.tick()
	return c, nil
}

func (t *sleepTimer) tick() {
	t.start, t.sleeping = t.engine.StartTime()
	t.elapsed = t.engine.Elapsed()
}

func (t sleepTimer) running() bool {
	return t.sleeping
}

func (t sleepTimer) currentElapsed() time.Duration {
	if !t.sleeping {
		return 0
	}
	return t.elapsed
}
