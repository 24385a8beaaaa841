// Package picker implements the calendar and clock sub-dialogs that the
// conversation engine delegates to while collecting a deadline.
package picker

import (
	"time"

	"taskbot/internal/chat"
)

type Outcome int

const (
	// Pending means the picker consumed the action and should be redrawn.
	Pending Outcome = iota
	Resolved
	Aborted
	// Ignored means the action did not apply, e.g. a stale out-of-range day.
	Ignored
)

type Result struct {
	Outcome Outcome
	Value   time.Time
}

type Kind string

const (
	KindDate Kind = "date"
	KindTime Kind = "time"
)

// State is the redraw state persisted in the dialog session between turns.
type State struct {
	Kind  Kind   `json:"kind"`
	Month string `json:"month,omitempty"`
	Date  string `json:"date,omitempty"`
	Hour  *int   `json:"hour,omitempty"`
}

// SubDialog is a self-contained widget that owns its own rendering and
// action handling until it resolves or aborts.
type SubDialog interface {
	Render() chat.Reply
	Handle(a chat.Action) Result
	State() State
}

// Bounds carries the user's clock and the selectable range.
type Bounds struct {
	Now      time.Time
	Location *time.Location
	Weeks    int
	Step     time.Duration
	Lead     time.Duration
}

func DefaultBounds(now time.Time, loc *time.Location) Bounds {
	return Bounds{
		Now:      now,
		Location: loc,
		Weeks:    12,
		Step:     5 * time.Minute,
		Lead:     10 * time.Minute,
	}
}

func (b Bounds) loc() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

func (b Bounds) today() time.Time {
	return startOfDay(b.Now.In(b.loc()))
}

// stepMinutes falls back to five minutes unless Step divides an hour.
func (b Bounds) stepMinutes() int {
	step := int(b.Step / time.Minute)
	if step <= 0 || 60%step != 0 {
		return 5
	}
	return step
}

// earliest is the first selectable slot: now plus the lead time, rounded up
// to the step.
func (b Bounds) earliest() time.Time {
	return roundUp(b.Now.Add(b.Lead).In(b.loc()), b.stepMinutes())
}

// Restore rebuilds a sub-dialog from its persisted state.
func Restore(st State, b Bounds) (SubDialog, bool) {
	switch st.Kind {
	case KindDate:
		return restoreDatePicker(st, b), true
	case KindTime:
		tp, err := restoreTimePicker(st, b)
		if err != nil {
			return nil, false
		}
		return tp, true
	}
	return nil, false
}

// Handles reports whether the action belongs to a picker of the given kind.
func Handles(kind Kind, a chat.Action) bool {
	switch a.Kind {
	case chat.ActionCalendarNav, chat.ActionCalendarDay, chat.ActionCalendarBack:
		return kind == KindDate
	case chat.ActionClockHour, chat.ActionClockMinute, chat.ActionClockBack:
		return kind == KindTime
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func noop(label string) chat.Button {
	return chat.ButtonFor(label, chat.Action{Kind: chat.ActionNoop})
}
