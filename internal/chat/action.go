package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActionKind is the closed set of button actions understood by the engine.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionNoop
	ActionMainMenu
	ActionHelp
	ActionCreateTask
	ActionCreatePriority
	ActionConfirmCreate
	ActionSkipDeadline
	ActionListTasks
	ActionShowFilters
	ActionViewTask
	ActionCompleteTask
	ActionEditTask
	ActionEditText
	ActionEditDeadline
	ActionEditPriority
	ActionSetPriority
	ActionCancelEdit
	ActionDeleteTask
	ActionConfirmDelete
	ActionSettings
	ActionChangeTimezone
	ActionSetTimezone
	ActionExport
	ActionCalendarNav
	ActionCalendarDay
	ActionCalendarBack
	ActionClockHour
	ActionClockMinute
	ActionClockBack
)

// List filters carried by ActionListTasks.
const (
	FilterAll    = "all"
	FilterToday  = "today"
	FilterWeek   = "week"
	FilterHigh   = "high"
	FilterMedium = "medium"
	FilterLow    = "low"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

var actionNames = map[ActionKind]string{
	ActionNoop:           "noop",
	ActionMainMenu:       "menu",
	ActionHelp:           "help",
	ActionCreateTask:     "create",
	ActionCreatePriority: "createPriority",
	ActionConfirmCreate:  "confirmCreate",
	ActionSkipDeadline:   "skipDeadline",
	ActionListTasks:      "list",
	ActionShowFilters:    "filters",
	ActionViewTask:       "view",
	ActionCompleteTask:   "complete",
	ActionEditTask:       "edit",
	ActionEditText:       "editText",
	ActionEditDeadline:   "editDeadline",
	ActionEditPriority:   "editPriority",
	ActionSetPriority:    "setPriority",
	ActionCancelEdit:     "cancelEdit",
	ActionDeleteTask:     "delete",
	ActionConfirmDelete:  "confirmDelete",
	ActionSettings:       "settings",
	ActionChangeTimezone: "changeTz",
	ActionSetTimezone:    "setTz",
	ActionExport:         "export",
	ActionCalendarNav:    "cal:nav",
	ActionCalendarDay:    "cal:day",
	ActionCalendarBack:   "cal:back",
	ActionClockHour:      "clock:hour",
	ActionClockMinute:    "clock:min",
	ActionClockBack:      "clock:back",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// Action is a parsed button payload. Only the fields relevant to Kind are set.
type Action struct {
	Kind    ActionKind
	TaskID  uint
	Level   int
	Page    int
	Filter  string
	Confirm bool
	Zone    string
	Date    time.Time
	Hour    int
	Minute  int
}

// Payload encodes the action back into its wire form.
func (a Action) Payload() string {
	name := a.Kind.String()
	switch a.Kind {
	case ActionCreatePriority:
		return fmt.Sprintf("%s:%d", name, a.Level)
	case ActionConfirmCreate:
		if a.Confirm {
			return name + ":yes"
		}
		return name + ":no"
	case ActionListTasks:
		filter := a.Filter
		if filter == "" {
			filter = FilterAll
		}
		return fmt.Sprintf("%s:%s:%d", name, filter, a.Page)
	case ActionViewTask, ActionCompleteTask, ActionEditTask, ActionEditText,
		ActionEditDeadline, ActionEditPriority, ActionCancelEdit,
		ActionDeleteTask, ActionConfirmDelete:
		return fmt.Sprintf("%s:%d", name, a.TaskID)
	case ActionSetPriority:
		return fmt.Sprintf("%s:%d:%d", name, a.TaskID, a.Level)
	case ActionSetTimezone:
		return name + ":" + a.Zone
	case ActionCalendarNav:
		return name + ":" + a.Date.Format(monthLayout)
	case ActionCalendarDay:
		return name + ":" + a.Date.Format(dayLayout)
	case ActionClockHour:
		return fmt.Sprintf("%s:%02d", name, a.Hour)
	case ActionClockMinute:
		return fmt.Sprintf("%s:%02d:%02d", name, a.Hour, a.Minute)
	}
	return name
}

// ParseAction turns a raw button payload into an Action. Unrecognised or
// malformed payloads yield ActionUnknown and are dropped by the engine.
func ParseAction(payload string) Action {
	parts := strings.Split(strings.TrimSpace(payload), ":")
	unknown := Action{Kind: ActionUnknown}

	switch parts[0] {
	case "noop":
		return Action{Kind: ActionNoop}
	case "menu":
		return Action{Kind: ActionMainMenu}
	case "help":
		return Action{Kind: ActionHelp}
	case "create":
		return Action{Kind: ActionCreateTask}
	case "skipDeadline":
		return Action{Kind: ActionSkipDeadline}
	case "filters":
		return Action{Kind: ActionShowFilters}
	case "settings":
		return Action{Kind: ActionSettings}
	case "changeTz":
		return Action{Kind: ActionChangeTimezone}
	case "export":
		return Action{Kind: ActionExport}

	case "createPriority":
		if len(parts) != 2 {
			return unknown
		}
		level, err := strconv.Atoi(parts[1])
		if err != nil {
			return unknown
		}
		return Action{Kind: ActionCreatePriority, Level: level}

	case "confirmCreate":
		if len(parts) != 2 || (parts[1] != "yes" && parts[1] != "no") {
			return unknown
		}
		return Action{Kind: ActionConfirmCreate, Confirm: parts[1] == "yes"}

	case "list":
		a := Action{Kind: ActionListTasks, Filter: FilterAll}
		if len(parts) >= 2 {
			if !validFilter(parts[1]) {
				return unknown
			}
			a.Filter = parts[1]
		}
		if len(parts) == 3 {
			page, err := strconv.Atoi(parts[2])
			if err != nil || page < 0 {
				return unknown
			}
			a.Page = page
		}
		if len(parts) > 3 {
			return unknown
		}
		return a

	case "view", "complete", "edit", "editText", "editDeadline", "editPriority",
		"cancelEdit", "delete", "confirmDelete":
		if len(parts) != 2 {
			return unknown
		}
		id, ok := parseID(parts[1])
		if !ok {
			return unknown
		}
		return Action{Kind: kindByName(parts[0]), TaskID: id}

	case "setPriority":
		if len(parts) != 3 {
			return unknown
		}
		id, ok := parseID(parts[1])
		if !ok {
			return unknown
		}
		level, err := strconv.Atoi(parts[2])
		if err != nil {
			return unknown
		}
		return Action{Kind: ActionSetPriority, TaskID: id, Level: level}

	case "setTz":
		if len(parts) != 2 || parts[1] == "" {
			return unknown
		}
		return Action{Kind: ActionSetTimezone, Zone: parts[1]}

	case "cal":
		return parseCalendar(parts)

	case "clock":
		return parseClock(parts)
	}

	return unknown
}

func parseCalendar(parts []string) Action {
	unknown := Action{Kind: ActionUnknown}
	if len(parts) == 2 && parts[1] == "back" {
		return Action{Kind: ActionCalendarBack}
	}
	if len(parts) != 3 {
		return unknown
	}
	switch parts[1] {
	case "nav":
		month, err := time.Parse(monthLayout, parts[2])
		if err != nil {
			return unknown
		}
		return Action{Kind: ActionCalendarNav, Date: month}
	case "day":
		day, err := time.Parse(dayLayout, parts[2])
		if err != nil {
			return unknown
		}
		return Action{Kind: ActionCalendarDay, Date: day}
	}
	return unknown
}

func parseClock(parts []string) Action {
	unknown := Action{Kind: ActionUnknown}
	if len(parts) == 2 && parts[1] == "back" {
		return Action{Kind: ActionClockBack}
	}
	switch {
	case len(parts) == 3 && parts[1] == "hour":
		hour, err := strconv.Atoi(parts[2])
		if err != nil || hour < 0 || hour > 23 {
			return unknown
		}
		return Action{Kind: ActionClockHour, Hour: hour}
	case len(parts) == 4 && parts[1] == "min":
		hour, err := strconv.Atoi(parts[2])
		if err != nil || hour < 0 || hour > 23 {
			return unknown
		}
		minute, err := strconv.Atoi(parts[3])
		if err != nil || minute < 0 || minute > 59 {
			return unknown
		}
		return Action{Kind: ActionClockMinute, Hour: hour, Minute: minute}
	}
	return unknown
}

func kindByName(name string) ActionKind {
	for kind, n := range actionNames {
		if n == name {
			return kind
		}
	}
	return ActionUnknown
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func validFilter(f string) bool {
	switch f {
	case FilterAll, FilterToday, FilterWeek, FilterHigh, FilterMedium, FilterLow:
		return true
	}
	return false
}
