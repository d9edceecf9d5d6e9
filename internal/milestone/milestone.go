// Package milestone turns the engine's completion results into a single
// user-facing notification when the history first reaches the analysis
// threshold.
package milestone

import (
	"sync"

	"github.com/sadopc/somnus/internal/sleep"
)

// Message is shown when the milestone fires.
const Message = "Congratulations! 30 days of sleep data are complete. Check your report in the Care tab."

type Notifier struct {
	once   sync.Once
	notify func()
}

// New returns a Notifier that calls notify at most once.
func New(notify func()) *Notifier {
	return &Notifier{notify: notify}
}

// Observe fires the notification if c is the milestone completion. It
// reports whether the notification fired on this call.
func (n *Notifier) Observe(c sleep.Completion) bool {
	if !c.ReachedMilestone {
		return false
	}
	fired := false
	n.once.Do(func() {
		fired = true
		if n.notify != nil {
			n.notify()
		}
	})
	return fired
}
