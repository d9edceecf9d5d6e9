package milestone

import (
	"testing"
	"time"

	"github.com/sadopc/somnus/internal/sleep"
)

type memStore map[string]string

func (m memStore) Get(k string) (string, bool, error) { v, ok := m[k]; return v, ok, nil }
func (m memStore) Set(k, v string) error              { m[k] = v; return nil }
func (m memStore) Delete(k string) error              { delete(m, k); return nil }

func TestObserveIgnoresOrdinaryCompletions(t *testing.T) {
	calls := 0
	n := New(func() { calls++ })
	if n.Observe(sleep.Completion{}) {
		t.Fatal("ordinary completion should not fire")
	}
	if calls != 0 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestObserveFiresOnce(t *testing.T) {
	calls := 0
	n := New(func() { calls++ })
	if !n.Observe(sleep.Completion{ReachedMilestone: true}) {
		t.Fatal("milestone completion should fire")
	}
	if n.Observe(sleep.Completion{ReachedMilestone: true}) {
		t.Fatal("second milestone should not fire again")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestObserveNilCallback(t *testing.T) {
	n := New(nil)
	if !n.Observe(sleep.Completion{ReachedMilestone: true}) {
		t.Fatal("should report firing even without a callback")
	}
}

func TestMilestoneAcrossThirtyFiveNights(t *testing.T) {
	now := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	e := sleep.New(memStore{}, sleep.WithClock(sleep.ClockFunc(func() time.Time { return now })))

	var firedAt []int
	var night int
	n := New(func() { firedAt = append(firedAt, night) })

	for night = 1; night <= 35; night++ {
		if err := e.Start(); err != nil {
			t.Fatal(err)
		}
		now = now.Add(7 * time.Hour)
		c, err := e.End()
		if err != nil {
			t.Fatal(err)
		}
		n.Observe(c)
		now = now.Add(17 * time.Hour)
	}

	if len(firedAt) != 1 || firedAt[0] != 30 {
		t.Fatalf("fired on nights %v, want [30]", firedAt)
	}
}
