package picker

import (
	"fmt"
	"strconv"
	"time"

	"taskbot/internal/chat"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

var weekdayHeader = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// DatePicker offers the days from the first one with a selectable slot left
// through Weeks weeks after today, one month per page.
type DatePicker struct {
	first time.Time
	last  time.Time
	month time.Time
}

func NewDatePicker(b Bounds) *DatePicker {
	first := startOfDay(b.earliest())
	weeks := b.Weeks
	if weeks <= 0 {
		weeks = 1
	}
	return &DatePicker{
		first: first,
		last:  b.today().AddDate(0, 0, weeks*7),
		month: firstOfMonth(first),
	}
}

func restoreDatePicker(st State, b Bounds) *DatePicker {
	dp := NewDatePicker(b)
	if month, err := time.ParseInLocation(monthLayout, st.Month, b.loc()); err == nil && dp.monthInRange(month) {
		dp.month = month
	}
	return dp
}

func (dp *DatePicker) State() State {
	return State{Kind: KindDate, Month: dp.month.Format(monthLayout)}
}

func (dp *DatePicker) monthInRange(month time.Time) bool {
	return !month.Before(firstOfMonth(dp.first)) && !month.After(firstOfMonth(dp.last))
}

func (dp *DatePicker) dayInRange(day time.Time) bool {
	return !day.Before(dp.first) && !day.After(dp.last)
}

func (dp *DatePicker) Render() chat.Reply {
	var rows [][]chat.Button

	header := []chat.Button{}
	prev := dp.month.AddDate(0, -1, 0)
	next := dp.month.AddDate(0, 1, 0)
	if dp.monthInRange(prev) {
		header = append(header, chat.ButtonFor("«", chat.Action{Kind: chat.ActionCalendarNav, Date: prev}))
	}
	header = append(header, noop(dp.month.Format("January 2006")))
	if dp.monthInRange(next) {
		header = append(header, chat.ButtonFor("»", chat.Action{Kind: chat.ActionCalendarNav, Date: next}))
	}
	rows = append(rows, header)

	weekdays := make([]chat.Button, 0, 7)
	for _, name := range weekdayHeader {
		weekdays = append(weekdays, noop(name))
	}
	rows = append(rows, weekdays)

	daysInMonth := dp.month.AddDate(0, 1, -1).Day()
	offset := (int(dp.month.Weekday()) + 6) % 7
	cells := offset + daysInMonth
	for row := 0; row < (cells+6)/7; row++ {
		week := make([]chat.Button, 0, 7)
		for col := 0; col < 7; col++ {
			day := row*7 + col - offset + 1
			if day < 1 || day > daysInMonth {
				week = append(week, noop(" "))
				continue
			}
			date := time.Date(dp.month.Year(), dp.month.Month(), day, 0, 0, 0, 0, dp.month.Location())
			if !dp.dayInRange(date) {
				week = append(week, noop(" "))
				continue
			}
			week = append(week, chat.ButtonFor(strconv.Itoa(day), chat.Action{Kind: chat.ActionCalendarDay, Date: date}))
		}
		rows = append(rows, week)
	}

	rows = append(rows, chat.Row(chat.ButtonFor("⬅️ Back", chat.Action{Kind: chat.ActionCalendarBack})))

	return chat.Reply{
		Text:     fmt.Sprintf("📅 Choose a date (until %s):", dp.last.Format("02.01.2006")),
		Controls: rows,
	}
}

func (dp *DatePicker) Handle(a chat.Action) Result {
	switch a.Kind {
	case chat.ActionCalendarNav:
		month := time.Date(a.Date.Year(), a.Date.Month(), 1, 0, 0, 0, 0, dp.first.Location())
		if !dp.monthInRange(month) {
			return Result{Outcome: Ignored}
		}
		dp.month = month
		return Result{Outcome: Pending}

	case chat.ActionCalendarDay:
		day := time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, dp.first.Location())
		if !dp.dayInRange(day) {
			return Result{Outcome: Ignored}
		}
		return Result{Outcome: Resolved, Value: day}

	case chat.ActionCalendarBack:
		return Result{Outcome: Aborted}
	}
	return Result{Outcome: Ignored}
}
