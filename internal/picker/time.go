package picker

import (
	"errors"
	"fmt"
	"time"

	"taskbot/internal/chat"
)

const (
	hoursPerRow   = 6
	minutesPerRow = 4
)

var errNoDate = errors.New("time picker state has no date")

// TimePicker offers step-aligned times on a fixed date in two pages: the
// hour first, then the minutes within it. Slots earlier than now plus the
// lead time are never offered.
type TimePicker struct {
	date     time.Time
	step     int
	earliest time.Time
	hour     *int
}

func NewTimePicker(date time.Time, b Bounds) *TimePicker {
	return &TimePicker{
		date:     time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, b.loc()),
		step:     b.stepMinutes(),
		earliest: b.earliest(),
	}
}

func restoreTimePicker(st State, b Bounds) (*TimePicker, error) {
	date, err := time.ParseInLocation(dateLayout, st.Date, b.loc())
	if err != nil {
		return nil, errNoDate
	}
	tp := NewTimePicker(date, b)
	if st.Hour != nil && tp.hourAvailable(*st.Hour) {
		h := *st.Hour
		tp.hour = &h
	}
	return tp, nil
}

// roundUp moves t forward to the next multiple of step minutes within its hour.
func roundUp(t time.Time, step int) time.Time {
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	offset := t.Sub(base)
	slot := time.Duration(step) * time.Minute
	slots := offset / slot
	if offset%slot != 0 {
		slots++
	}
	return base.Add(slots * slot)
}

func (tp *TimePicker) State() State {
	return State{Kind: KindTime, Date: tp.date.Format(dateLayout), Hour: tp.hour}
}

// Date is the day the picker offers times for.
func (tp *TimePicker) Date() time.Time {
	return tp.date
}

func (tp *TimePicker) slot(hour, minute int) time.Time {
	return time.Date(tp.date.Year(), tp.date.Month(), tp.date.Day(), hour, minute, 0, 0, tp.date.Location())
}

func (tp *TimePicker) slotAvailable(hour, minute int) bool {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || minute%tp.step != 0 {
		return false
	}
	return !tp.slot(hour, minute).Before(tp.earliest)
}

func (tp *TimePicker) hourAvailable(hour int) bool {
	return tp.slotAvailable(hour, 60-tp.step)
}

// HasSlots reports whether any time on the picker's date can still be chosen.
func (tp *TimePicker) HasSlots() bool {
	return tp.hourAvailable(23)
}

func (tp *TimePicker) Render() chat.Reply {
	back := chat.Row(chat.ButtonFor("⬅️ Back", chat.Action{Kind: chat.ActionClockBack}))
	day := tp.date.Format("02.01.2006")

	if tp.hour == nil {
		var rows [][]chat.Button
		var row []chat.Button
		for h := 0; h < 24; h++ {
			if !tp.hourAvailable(h) {
				continue
			}
			row = append(row, chat.ButtonFor(fmt.Sprintf("%02d", h), chat.Action{Kind: chat.ActionClockHour, Hour: h}))
			if len(row) == hoursPerRow {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
		if len(rows) == 0 {
			return chat.Reply{
				Text:     fmt.Sprintf("⏰ No times left on %s. Pick another date.", day),
				Controls: [][]chat.Button{back},
			}
		}
		return chat.Reply{
			Text:     fmt.Sprintf("⏰ %s: choose the hour:", day),
			Controls: append(rows, back),
		}
	}

	h := *tp.hour
	var rows [][]chat.Button
	var row []chat.Button
	for m := 0; m < 60; m += tp.step {
		if !tp.slotAvailable(h, m) {
			continue
		}
		row = append(row, chat.ButtonFor(fmt.Sprintf("%02d:%02d", h, m), chat.Action{Kind: chat.ActionClockMinute, Hour: h, Minute: m}))
		if len(row) == minutesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return chat.Reply{
		Text:     fmt.Sprintf("⏰ %s: choose the minutes:", day),
		Controls: append(rows, back),
	}
}

func (tp *TimePicker) Handle(a chat.Action) Result {
	switch a.Kind {
	case chat.ActionClockHour:
		if !tp.hourAvailable(a.Hour) {
			return Result{Outcome: Ignored}
		}
		h := a.Hour
		tp.hour = &h
		return Result{Outcome: Pending}

	case chat.ActionClockMinute:
		if !tp.slotAvailable(a.Hour, a.Minute) {
			return Result{Outcome: Ignored}
		}
		return Result{Outcome: Resolved, Value: tp.slot(a.Hour, a.Minute)}

	case chat.ActionClockBack:
		if tp.hour != nil {
			tp.hour = nil
			return Result{Outcome: Pending}
		}
		return Result{Outcome: Aborted}
	}
	return Result{Outcome: Ignored}
}
