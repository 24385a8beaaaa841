package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"taskbot/internal/chat"
	"taskbot/internal/models"
	"taskbot/internal/picker"
	"taskbot/internal/repositories"
)

func (e *Engine) startCreate(_ context.Context, t *turn) error {
	t.session.Start(FlowCreate, StateAwaitingText)
	t.reply(e.createTextPrompt(t))
	return nil
}

func (e *Engine) createTextPrompt(*turn) chat.Reply {
	return chat.Reply{
		Text:     fmt.Sprintf("✍️ Send me the task text (up to %d characters).", e.cfg.MaxBodyLength),
		Controls: [][]chat.Button{chat.Row(button("❌ Cancel", chat.ActionMainMenu))},
	}
}

// validateText trims the body and enforces the configured length.
func (e *Engine) validateText(text string) (string, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) > e.cfg.MaxBodyLength {
		return "", invalid(fieldText, fmt.Sprintf("The text is too long, keep it under %d characters.", e.cfg.MaxBodyLength))
	}
	body, err := repositories.ValidateBody(text)
	if err != nil {
		return "", invalid(fieldText, "The task text can't be empty.")
	}
	return body, nil
}

func (e *Engine) createReceiveText(_ context.Context, t *turn) error {
	body, err := e.validateText(t.text)
	if err != nil {
		return err
	}
	t.session.Set(fieldText, body)
	e.enterDate(t)
	t.reply(e.createDatePrompt(t))
	return nil
}

func (e *Engine) enterDate(t *turn) {
	t.session.State = StateAwaitingDate
	st := picker.NewDatePicker(e.bounds(t)).State()
	t.session.Picker = &st
}

func (e *Engine) enterTime(t *turn, date time.Time) {
	t.session.State = StateAwaitingTime
	t.session.Set(fieldDate, date.Format("2006-01-02"))
	st := picker.NewTimePicker(date, e.bounds(t)).State()
	t.session.Picker = &st
}

// restorePicker returns the sub-dialog parked in the session, or a fresh one
// of the given kind when the session has none.
func (e *Engine) restorePicker(t *turn, kind picker.Kind) picker.SubDialog {
	if t.session.Picker != nil && t.session.Picker.Kind == kind {
		if sub, ok := picker.Restore(*t.session.Picker, e.bounds(t)); ok {
			return sub
		}
	}
	if kind == picker.KindTime {
		date, err := time.ParseInLocation("2006-01-02", t.session.Get(fieldDate), t.loc)
		if err != nil {
			date = t.now
		}
		return picker.NewTimePicker(date, e.bounds(t))
	}
	return picker.NewDatePicker(e.bounds(t))
}

func (e *Engine) datePrompt(t *turn, intro, skipLabel string) chat.Reply {
	r := e.restorePicker(t, picker.KindDate).Render()
	r.Text = intro + "\n\n" + r.Text + "\nOr type it as dd.mm.yyyy hh:mm."
	back := r.Controls[len(r.Controls)-1]
	r.Controls = append(r.Controls[:len(r.Controls)-1],
		chat.Row(button(skipLabel, chat.ActionSkipDeadline)),
		back,
	)
	return r
}

func (e *Engine) createDatePrompt(t *turn) chat.Reply {
	return e.datePrompt(t, "📌 "+truncate(t.session.Get(fieldText), 100), "🚫 No deadline")
}

func (e *Engine) timePrompt(t *turn) chat.Reply {
	sub := e.restorePicker(t, picker.KindTime)
	if tp, ok := sub.(*picker.TimePicker); ok && !tp.HasSlots() {
		return e.backToDate(t, tp.Date())
	}
	return sub.Render()
}

// backToDate reopens the calendar once the chosen day has run out of times,
// keeping everything else the flow has collected.
func (e *Engine) backToDate(t *turn, day time.Time) chat.Reply {
	e.enterDate(t)
	r := e.prompts[stateKey{t.session.Flow, StateAwaitingDate}](t)
	r.Text = fmt.Sprintf("⏰ No times left on %s. Pick another date.\n\n", day.Format("02.01.2006")) + r.Text
	return r
}

func (e *Engine) createDateSelected(_ context.Context, t *turn, date time.Time) error {
	e.enterTime(t, date)
	t.reply(e.timePrompt(t))
	return nil
}

func (e *Engine) createTimeSelected(_ context.Context, t *turn, deadline time.Time) error {
	e.enterPriority(t, &deadline)
	return nil
}

// parseTypedDeadline reads "dd.mm.yyyy hh:mm" in the user's zone.
func parseTypedDeadline(t *turn) (time.Time, error) {
	deadline, err := time.ParseInLocation(dateTimeLayout, strings.TrimSpace(t.text), t.loc)
	if err != nil {
		return time.Time{}, invalid(fieldDeadline, "I couldn't read that date. Use dd.mm.yyyy hh:mm, e.g. "+t.now.Add(24*time.Hour).Format(dateTimeLayout)+".")
	}
	if !deadline.After(t.now) {
		return time.Time{}, invalid(fieldDeadline, "The deadline must be in the future.")
	}
	return deadline, nil
}

func (e *Engine) createTypedDeadline(_ context.Context, t *turn) error {
	deadline, err := parseTypedDeadline(t)
	if err != nil {
		return err
	}
	e.enterPriority(t, &deadline)
	return nil
}

func (e *Engine) createSkipDeadline(_ context.Context, t *turn) error {
	e.enterPriority(t, nil)
	return nil
}

func (e *Engine) enterPriority(t *turn, deadline *time.Time) {
	t.session.State = StateAwaitingPriority
	t.session.Picker = nil
	delete(t.session.Fields, fieldDate)
	if deadline != nil {
		t.session.Set(fieldDeadline, deadline.UTC().Format(time.RFC3339))
	} else {
		t.session.Set(fieldDeadline, "")
	}
	t.reply(createPriorityPrompt(t))
}

func createPriorityPrompt(*turn) chat.Reply {
	return chat.Reply{
		Text: "🎯 Choose a priority:",
		Controls: [][]chat.Button{
			priorityRow(func(p models.Priority) chat.Action {
				return chat.Action{Kind: chat.ActionCreatePriority, Level: int(p)}
			}),
			chat.Row(button("❌ Cancel", chat.ActionMainMenu)),
		},
	}
}

func (e *Engine) createReceivePriority(_ context.Context, t *turn) error {
	p, err := models.ParsePriority(t.action.Level)
	if err != nil {
		return invalid(fieldPriority, "Pick one of the priority buttons.")
	}
	t.session.Set(fieldPriority, strconv.Itoa(int(p)))
	t.session.State = StateAwaitingConfirmation
	t.reply(confirmPrompt(t))
	return nil
}

// draft is the task collected so far in the create flow.
type draft struct {
	body     string
	deadline *time.Time
	priority models.Priority
}

func draftOf(t *turn) draft {
	d := draft{body: t.session.Get(fieldText)}
	if v := t.session.Get(fieldDeadline); v != "" {
		if deadline, err := time.Parse(time.RFC3339, v); err == nil {
			d.deadline = &deadline
		}
	}
	if level, err := strconv.Atoi(t.session.Get(fieldPriority)); err == nil {
		d.priority = models.Priority(level)
	}
	return d
}

func confirmPrompt(t *turn) chat.Reply {
	d := draftOf(t)
	text := fmt.Sprintf("🧾 Save this task?\n\n📌 %s\n📅 Deadline: %s\n%s Priority: %s",
		d.body, formatDeadline(d.deadline, t.loc), d.priority.Emoji(), d.priority.Label())
	return chat.Reply{
		Text: text,
		Controls: [][]chat.Button{chat.Row(
			chat.ButtonFor("✅ Save", chat.Action{Kind: chat.ActionConfirmCreate, Confirm: true}),
			chat.ButtonFor("❌ Cancel", chat.Action{Kind: chat.ActionConfirmCreate, Confirm: false}),
		)},
	}
}

func (e *Engine) createConfirm(ctx context.Context, t *turn) error {
	if !t.action.Confirm {
		return e.createAbort(ctx, t)
	}

	d := draftOf(t)
	task, err := e.tasks.Create(ctx, t.owner(), d.body, d.deadline, d.priority)
	if err != nil {
		return err
	}

	t.session.Reset()
	card := taskCard(task, t.loc)
	card.Text = "✅ Task saved!\n\n" + card.Text
	t.reply(card)
	return nil
}

func (e *Engine) createAbort(_ context.Context, t *turn) error {
	t.session.Reset()
	t.reply(mainMenu("❌ Task creation cancelled."))
	return nil
}
