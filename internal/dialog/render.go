package dialog

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"taskbot/internal/chat"
	"taskbot/internal/models"
)

const (
	dateTimeLayout = "02.01.2006 15:04"
	listLabelRunes = 32
)

var filterTitles = map[string]string{
	chat.FilterAll:    "All tasks",
	chat.FilterToday:  "Due today",
	chat.FilterWeek:   "Due this week",
	chat.FilterHigh:   "High priority",
	chat.FilterMedium: "Medium priority",
	chat.FilterLow:    "Low priority",
}

func button(label string, kind chat.ActionKind) chat.Button {
	return chat.ButtonFor(label, chat.Action{Kind: kind})
}

func taskButton(label string, kind chat.ActionKind, id uint) chat.Button {
	return chat.ButtonFor(label, chat.Action{Kind: kind, TaskID: id})
}

func listButton(label, filter string, page int) chat.Button {
	return chat.ButtonFor(label, chat.Action{Kind: chat.ActionListTasks, Filter: filter, Page: page})
}

func menuRow() []chat.Button {
	return chat.Row(button("🏠 Menu", chat.ActionMainMenu))
}

func mainMenu(text string) chat.Reply {
	return chat.Reply{
		Text: text,
		Controls: [][]chat.Button{
			chat.Row(button("➕ New task", chat.ActionCreateTask), listButton("📋 My tasks", chat.FilterAll, 0)),
			chat.Row(button("⚙️ Settings", chat.ActionSettings), button("📤 Export", chat.ActionExport)),
			chat.Row(button("❓ Help", chat.ActionHelp)),
		},
	}
}

func notFoundReply() chat.Reply {
	return mainMenu("🔍 Task not found. It may have been deleted.")
}

func failureReply() chat.Reply {
	return chat.Reply{
		Text:     "😔 Something went wrong, please try again in a moment.",
		Controls: [][]chat.Button{menuRow()},
	}
}

func formatDeadline(deadline *time.Time, loc *time.Location) string {
	if deadline == nil {
		return "Not set"
	}
	return deadline.In(loc).Format(dateTimeLayout)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func statusIcon(t models.Task) string {
	if t.IsDone() {
		return "✅"
	}
	return "⏳"
}

func taskCard(t *models.Task, loc *time.Location) chat.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Task #%d\n\n", statusIcon(*t), t.ID)
	fmt.Fprintf(&b, "%s\n\n", t.Body)
	fmt.Fprintf(&b, "📅 Deadline: %s\n", formatDeadline(t.Deadline, loc))
	fmt.Fprintf(&b, "%s Priority: %s\n", t.Priority.Emoji(), t.Priority.Label())
	fmt.Fprintf(&b, "📌 Status: %s\n", t.Status.Label())
	fmt.Fprintf(&b, "🕒 Created: %s", t.CreatedAt.In(loc).Format(dateTimeLayout))

	var actions []chat.Button
	if !t.IsDone() {
		actions = append(actions, taskButton("✅ Done", chat.ActionCompleteTask, t.ID))
	}
	actions = append(actions,
		taskButton("✏️ Edit", chat.ActionEditTask, t.ID),
		taskButton("🗑 Delete", chat.ActionDeleteTask, t.ID),
	)

	return chat.Reply{
		Text: b.String(),
		Controls: [][]chat.Button{
			actions,
			chat.Row(listButton("⬅️ Back to list", chat.FilterAll, 0), button("🏠 Menu", chat.ActionMainMenu)),
		},
	}
}

func editMenu(t *models.Task) chat.Reply {
	return chat.Reply{
		Text: fmt.Sprintf("✏️ What do you want to change in task #%d?\n\n%s", t.ID, truncate(t.Body, 200)),
		Controls: [][]chat.Button{
			chat.Row(taskButton("📝 Text", chat.ActionEditText, t.ID)),
			chat.Row(taskButton("📅 Deadline", chat.ActionEditDeadline, t.ID)),
			chat.Row(taskButton("🎯 Priority", chat.ActionEditPriority, t.ID)),
			chat.Row(taskButton("⬅️ Back", chat.ActionCancelEdit, t.ID)),
		},
	}
}

// priorityRow renders one button per level using action to build each payload.
func priorityRow(action func(p models.Priority) chat.Action) []chat.Button {
	row := make([]chat.Button, 0, len(models.Priorities))
	for _, p := range models.Priorities {
		row = append(row, chat.ButtonFor(p.Emoji()+" "+p.Label(), action(p)))
	}
	return row
}

func taskList(tasks []models.Task, filter string, page, pageSize int, loc *time.Location) chat.Reply {
	title := filterTitles[filter]
	if len(tasks) == 0 {
		return chat.Reply{
			Text: fmt.Sprintf("📋 %s\n\nNothing here yet.", title),
			Controls: [][]chat.Button{
				chat.Row(button("➕ New task", chat.ActionCreateTask)),
				chat.Row(button("🔎 Filters", chat.ActionShowFilters), button("🏠 Menu", chat.ActionMainMenu)),
			},
		}
	}

	pages := (len(tasks) + pageSize - 1) / pageSize
	if page >= pages {
		page = pages - 1
	}
	from := page * pageSize
	to := from + pageSize
	if to > len(tasks) {
		to = len(tasks)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s: %d (page %d/%d)\n", title, len(tasks), page+1, pages)

	var rows [][]chat.Button
	for _, t := range tasks[from:to] {
		fmt.Fprintf(&b, "\n%s %s #%d %s", statusIcon(t), t.Priority.Emoji(), t.ID, truncate(t.Body, listLabelRunes))
		if t.Deadline != nil {
			fmt.Fprintf(&b, " (until %s)", formatDeadline(t.Deadline, loc))
		}
		label := fmt.Sprintf("%s %s %s", statusIcon(t), t.Priority.Emoji(), truncate(t.Body, listLabelRunes))
		rows = append(rows, chat.Row(taskButton(label, chat.ActionViewTask, t.ID)))
	}

	var nav []chat.Button
	if page > 0 {
		nav = append(nav, listButton("‹ Prev", filter, page-1))
	}
	if page < pages-1 {
		nav = append(nav, listButton("Next ›", filter, page+1))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, chat.Row(button("🔎 Filters", chat.ActionShowFilters), button("🏠 Menu", chat.ActionMainMenu)))

	return chat.Reply{Text: b.String(), Controls: rows}
}

func filterMenu() chat.Reply {
	return chat.Reply{
		Text: "🔎 Which tasks do you want to see?",
		Controls: [][]chat.Button{
			chat.Row(listButton("📋 All", chat.FilterAll, 0)),
			chat.Row(listButton("📆 Today", chat.FilterToday, 0), listButton("🗓 This week", chat.FilterWeek, 0)),
			chat.Row(
				listButton("🔴 High", chat.FilterHigh, 0),
				listButton("🟡 Medium", chat.FilterMedium, 0),
				listButton("🟢 Low", chat.FilterLow, 0),
			),
			menuRow(),
		},
	}
}

const helpText = `❓ How it works

➕ New task: send the text, pick a date and time (or type it as dd.mm.yyyy hh:mm), choose a priority and confirm.
📋 My tasks: browse, filter by date or priority, open a task to complete, edit or delete it.
⚙️ Settings: choose the timezone deadlines are shown in.
📤 Export: download all your tasks as a CSV file.

Commands: /new /list /settings /export /help`
