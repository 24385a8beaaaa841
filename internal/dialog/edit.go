package dialog

import (
	"context"
	"strconv"
	"time"

	"taskbot/internal/chat"
	"taskbot/internal/models"
	"taskbot/internal/repositories"
)

func (e *Engine) showEditMenu(ctx context.Context, t *turn) error {
	task, err := e.tasks.GetByID(ctx, t.action.TaskID, t.owner())
	if err != nil {
		return err
	}
	t.reply(editMenu(task))
	return nil
}

// startEdit checks the task exists before entering an edit flow for it.
func (e *Engine) startEdit(ctx context.Context, t *turn, flow, state string) (*models.Task, error) {
	task, err := e.tasks.GetByID(ctx, t.action.TaskID, t.owner())
	if err != nil {
		return nil, err
	}
	t.session.Start(flow, state)
	t.session.Set(fieldTaskID, strconv.FormatUint(uint64(task.ID), 10))
	return task, nil
}

func editingID(t *turn) uint {
	id, err := strconv.ParseUint(t.session.Get(fieldTaskID), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func cancelEditRow(id uint) []chat.Button {
	return chat.Row(taskButton("❌ Cancel", chat.ActionCancelEdit, id))
}

func (e *Engine) startEditText(ctx context.Context, t *turn) error {
	task, err := e.startEdit(ctx, t, FlowEditText, StateAwaitingText)
	if err != nil {
		return err
	}
	t.reply(chat.Reply{Text: "Current text:\n\n" + task.Body})
	t.reply(e.editTextPrompt(t))
	return nil
}

func (e *Engine) editTextPrompt(t *turn) chat.Reply {
	r := e.createTextPrompt(t)
	r.Text = "📝 Send the new text for the task."
	r.Controls = [][]chat.Button{cancelEditRow(editingID(t))}
	return r
}

func (e *Engine) editReceiveText(ctx context.Context, t *turn) error {
	body, err := e.validateText(t.text)
	if err != nil {
		return err
	}
	return e.commitEdit(ctx, t, repositories.TaskPatch{Body: &body}, "✅ Text updated.")
}

func (e *Engine) startEditDeadline(ctx context.Context, t *turn) error {
	if _, err := e.startEdit(ctx, t, FlowEditDeadline, StateAwaitingDate); err != nil {
		return err
	}
	e.enterDate(t)
	t.reply(e.editDatePrompt(t))
	return nil
}

func (e *Engine) editDatePrompt(t *turn) chat.Reply {
	return e.datePrompt(t, "📅 Choose the new deadline.", "🚫 Remove deadline")
}

func (e *Engine) editDateSelected(_ context.Context, t *turn, date time.Time) error {
	e.enterTime(t, date)
	t.reply(e.timePrompt(t))
	return nil
}

func (e *Engine) editTimeSelected(ctx context.Context, t *turn, deadline time.Time) error {
	return e.commitEdit(ctx, t, repositories.TaskPatch{Deadline: &deadline}, "✅ Deadline updated.")
}

func (e *Engine) editTypedDeadline(ctx context.Context, t *turn) error {
	deadline, err := parseTypedDeadline(t)
	if err != nil {
		return err
	}
	return e.commitEdit(ctx, t, repositories.TaskPatch{Deadline: &deadline}, "✅ Deadline updated.")
}

func (e *Engine) editClearDeadline(ctx context.Context, t *turn) error {
	return e.commitEdit(ctx, t, repositories.TaskPatch{ClearDeadline: true}, "✅ Deadline removed.")
}

// editAbort leaves the stored task untouched and returns to its card.
func (e *Engine) editAbort(ctx context.Context, t *turn) error {
	id := editingID(t)
	t.session.Reset()
	return e.showTask(ctx, t, id, "↩️ Nothing changed.")
}

func (e *Engine) startEditPriority(ctx context.Context, t *turn) error {
	task, err := e.startEdit(ctx, t, FlowEditPriority, StateAwaitingPriority)
	if err != nil {
		return err
	}
	r := editPriorityPrompt(t)
	r.Text = "🎯 Current priority: " + task.Priority.Label() + "\n" + r.Text
	t.reply(r)
	return nil
}

func editPriorityPrompt(t *turn) chat.Reply {
	id := editingID(t)
	return chat.Reply{
		Text: "Choose the new priority:",
		Controls: [][]chat.Button{
			priorityRow(func(p models.Priority) chat.Action {
				return chat.Action{Kind: chat.ActionSetPriority, TaskID: id, Level: int(p)}
			}),
			cancelEditRow(id),
		},
	}
}

func (e *Engine) editReceivePriority(ctx context.Context, t *turn) error {
	if t.action.TaskID != editingID(t) {
		return errDropped
	}
	p, err := models.ParsePriority(t.action.Level)
	if err != nil {
		return invalid(fieldPriority, "Pick one of the priority buttons.")
	}
	return e.commitEdit(ctx, t, repositories.TaskPatch{Priority: &p}, "✅ Priority updated.")
}

// commitEdit applies the patch in one store call and shows the task again.
func (e *Engine) commitEdit(ctx context.Context, t *turn, patch repositories.TaskPatch, done string) error {
	id := editingID(t)
	ok, err := e.tasks.UpdateFields(ctx, id, t.owner(), patch)
	if err != nil {
		return err
	}
	if !ok {
		return repositories.ErrNotFound
	}
	t.session.Reset()
	return e.showTask(ctx, t, id, done)
}

func (e *Engine) showTask(ctx context.Context, t *turn, id uint, prefix string) error {
	task, err := e.tasks.GetByID(ctx, id, t.owner())
	if err != nil {
		return err
	}
	card := taskCard(task, t.loc)
	if prefix != "" {
		card.Text = prefix + "\n\n" + card.Text
	}
	t.reply(card)
	return nil
}
