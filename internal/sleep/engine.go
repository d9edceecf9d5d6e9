package sleep

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MilestoneThreshold is the history size at which analysis becomes
// available and the milestone fires.
const MilestoneThreshold = 30

type State int

const (
	Idle State = iota
	Sleeping
)

func (s State) String() string {
	if s == Sleeping {
		return "sleeping"
	}
	return "idle"
}

// Clock abstracts time to keep the engine deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDs replaces the session id generator (UUID v4 by default).
func WithIDs(next func() string) Option {
	return func(e *Engine) { e.newID = next }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Completion is the result of ending a session.
type Completion struct {
	Session Session
	// ReachedMilestone is set only on the completion that grows the
	// stored history to exactly MilestoneThreshold entries.
	ReachedMilestone bool
}

// Engine owns the sleep session state machine and the session history. It
// is the only writer of the history and in-progress records.
type Engine struct {
	mu    sync.Mutex
	store Store
	clock Clock
	newID func() string
	log   *slog.Logger

	state     State
	startTime time.Time
	history   []Session // newest first
	// retained holds stored entries that are not complete sessions. They
	// stay out of History but are written back, oldest position, on every
	// save and still count toward the milestone.
	retained []json.RawMessage

	// degraded holds the first store failure. Once set, the engine stops
	// touching the store for the rest of the run.
	degraded error
}

// New builds an Engine and restores its state from store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: systemClock{},
		newID: uuid.NewString,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.restore()
	return e
}

func (e *Engine) restore() {
	history, retained, err := e.loadHistory()
	if err != nil {
		e.fail("load history", err)
		return
	}

	flag, found, err := e.store.Get(KeySleeping)
	if err != nil {
		e.fail("load sleeping flag", err)
		return
	}
	e.history = history
	e.retained = retained
	if !found || flag != "true" {
		return
	}

	raw, found, err := e.store.Get(KeyStartTime)
	if err != nil {
		e.history, e.retained = nil, nil
		e.fail("load start time", err)
		return
	}
	start, perr := time.Parse(time.RFC3339Nano, raw)
	if !found || perr != nil {
		e.log.Warn("discarding in-progress marker without a usable start time", "start_time", raw)
		e.write("clear corrupt marker", nil, []string{KeySleeping, KeyStartTime})
		return
	}

	e.state = Sleeping
	e.startTime = start
	e.log.Info("resumed sleep session", "start", start, "history", len(history))
}

func (e *Engine) loadHistory() ([]Session, []json.RawMessage, error) {
	raw, found, err := e.store.Get(KeyHistory)
	if err != nil {
		return nil, nil, err
	}
	if !found || raw == "" {
		return nil, nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, nil, fmt.Errorf("decode history: %w", err)
	}

	var (
		history  []Session
		retained []json.RawMessage
	)
	for i, entry := range entries {
		var s Session
		if err := json.Unmarshal(entry, &s); err != nil {
			return nil, nil, fmt.Errorf("decode history entry %d: %w", i, err)
		}
		if !s.Completed() {
			e.log.Warn("keeping incomplete history entry out of analysis", "id", s.ID, "partial", s.Partial())
			retained = append(retained, entry)
			continue
		}
		history = append(history, s)
	}
	return history, retained, nil
}

// encodeHistory serialises history followed by the retained entries.
func (e *Engine) encodeHistory(history []Session) ([]byte, error) {
	entries := make([]json.RawMessage, 0, len(history)+len(e.retained))
	for _, s := range history {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		entries = append(entries, b)
	}
	entries = append(entries, e.retained...)
	return json.Marshal(entries)
}

// Start begins a session at the current instant. It returns
// ErrAlreadySleeping, and changes nothing, when a session is in progress.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Sleeping {
		return ErrAlreadySleeping
	}

	now := e.clock.Now()
	e.state = Sleeping
	e.startTime = now

	// Start time is written before the flag, so an interrupted write never
	// leaves a flag without a start time.
	e.write("persist in-progress marker", map[string]string{
		KeyStartTime: now.Format(time.RFC3339Nano),
		KeySleeping:  "true",
	}, nil)
	e.log.Info("sleep session started", "start", now)
	return nil
}

// End completes the in-progress session, prepends it to the history and
// clears the in-progress marker. Without a known start time it logs and
// returns ErrInvalidState without touching any state.
func (e *Engine) End() (Completion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Sleeping || e.startTime.IsZero() {
		e.log.Warn("end requested with no sleep session in progress")
		return Completion{}, ErrInvalidState
	}

	end := e.clock.Now()
	hours, quality, regressed := Score(e.startTime, end)
	if regressed {
		e.log.Warn("clock regression, clamping duration to zero", "start", e.startTime, "end", end)
	}
	session := completed(e.newID(), e.startTime, end, hours, quality)

	history := make([]Session, 0, len(e.history)+1)
	history = append(history, session)
	history = append(history, e.history...)

	e.history = history
	e.state = Idle
	e.startTime = time.Time{}

	payload, err := e.encodeHistory(history)
	if err != nil {
		e.fail("encode history", err)
	} else {
		e.write("persist history", map[string]string{KeyHistory: string(payload)}, []string{KeySleeping, KeyStartTime})
	}

	e.log.Info("sleep session completed",
		"id", session.ID, "duration_h", hours, "quality", quality, "history", len(history))

	return Completion{
		Session:          session.clone(),
		ReachedMilestone: len(history)+len(e.retained) == MilestoneThreshold,
	}, nil
}

// write applies sets then deletes, atomically when the store is a Batcher.
// Failures switch the engine to in-memory operation.
func (e *Engine) write(op string, sets map[string]string, deletes []string) {
	if e.degraded != nil {
		return
	}
	if b, ok := e.store.(Batcher); ok {
		if err := b.Apply(sets, deletes); err != nil {
			e.fail(op, err)
		}
		return
	}

	// Without a batch the order matters: history first, then the marker.
	for _, k := range []string{KeyHistory, KeyStartTime, KeySleeping} {
		v, ok := sets[k]
		if !ok {
			continue
		}
		if err := e.store.Set(k, v); err != nil {
			e.fail(op, err)
			return
		}
	}
	for _, k := range deletes {
		if err := e.store.Delete(k); err != nil {
			e.fail(op, err)
			return
		}
	}
}

func (e *Engine) fail(op string, err error) {
	if e.degraded == nil {
		e.degraded = fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
	}
	e.log.Error("sleep store failure, continuing in memory", "op", op, "error", err)
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Sleeping() bool {
	return e.State() == Sleeping
}

// StartTime returns the start of the in-progress session.
func (e *Engine) StartTime() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startTime, e.state == Sleeping
}

// Elapsed returns the time slept so far, or 0 when idle.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Sleeping {
		return 0
	}
	d := e.clock.Now().Sub(e.startTime)
	if d < 0 {
		return 0
	}
	return d
}

// History returns a copy of the completed sessions, newest first.
func (e *Engine) History() []Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Session, len(e.history))
	for i, s := range e.history {
		out[i] = s.clone()
	}
	return out
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history)
}

// Degraded returns the store failure that switched the engine to
// in-memory operation, or nil.
func (e *Engine) Degraded() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.degraded
}

func (s Session) clone() Session {
	c := s
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.Duration != nil {
		d := *s.Duration
		c.Duration = &d
	}
	if s.Quality != nil {
		q := *s.Quality
		c.Quality = &q
	}
	return c
}
