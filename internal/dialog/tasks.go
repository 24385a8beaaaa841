package dialog

import (
	"context"
	"fmt"

	"taskbot/internal/chat"
	"taskbot/internal/models"
	"taskbot/internal/repositories"
)

func (e *Engine) showMenu(_ context.Context, t *turn) error {
	t.reply(mainMenu(fmt.Sprintf("👋 Hi, %s! What would you like to do?", t.user.DisplayName)))
	return nil
}

func (e *Engine) showHelp(_ context.Context, t *turn) error {
	t.reply(chat.Reply{Text: helpText, Controls: [][]chat.Button{menuRow()}})
	return nil
}

func (e *Engine) showFilters(_ context.Context, t *turn) error {
	t.reply(filterMenu())
	return nil
}

// fetch resolves a list filter to a store query. Day and week bounds come
// from the user's local clock.
func (e *Engine) fetch(ctx context.Context, t *turn, filter string) ([]models.Task, error) {
	switch filter {
	case chat.FilterToday:
		return e.tasks.ListDueWithinDay(ctx, t.owner(), t.now)
	case chat.FilterWeek:
		return e.tasks.ListDueWithinWeek(ctx, t.owner(), t.now)
	case chat.FilterHigh:
		return e.tasks.ListByPriority(ctx, t.owner(), models.PriorityHigh)
	case chat.FilterMedium:
		return e.tasks.ListByPriority(ctx, t.owner(), models.PriorityMedium)
	case chat.FilterLow:
		return e.tasks.ListByPriority(ctx, t.owner(), models.PriorityLow)
	}
	return e.tasks.ListAll(ctx, t.owner())
}

func (e *Engine) listTasks(ctx context.Context, t *turn) error {
	filter := t.action.Filter
	if filter == "" {
		filter = chat.FilterAll
	}
	tasks, err := e.fetch(ctx, t, filter)
	if err != nil {
		return err
	}
	t.reply(taskList(tasks, filter, t.action.Page, e.cfg.PageSize, t.loc))
	return nil
}

func (e *Engine) viewTask(ctx context.Context, t *turn) error {
	return e.showTask(ctx, t, t.action.TaskID, "")
}

func (e *Engine) completeTask(ctx context.Context, t *turn) error {
	ok, err := e.tasks.UpdateStatus(ctx, t.action.TaskID, t.owner(), models.StatusDone)
	if err != nil {
		return err
	}
	if !ok {
		return repositories.ErrNotFound
	}
	return e.showTask(ctx, t, t.action.TaskID, "🎉 Marked as done.")
}

func (e *Engine) askDelete(ctx context.Context, t *turn) error {
	task, err := e.tasks.GetByID(ctx, t.action.TaskID, t.owner())
	if err != nil {
		return err
	}
	t.reply(chat.Reply{
		Text: fmt.Sprintf("🗑 Delete task #%d?\n\n%s", task.ID, truncate(task.Body, 200)),
		Controls: [][]chat.Button{chat.Row(
			taskButton("✅ Yes, delete", chat.ActionConfirmDelete, task.ID),
			taskButton("❌ No", chat.ActionViewTask, task.ID),
		)},
	})
	return nil
}

func (e *Engine) confirmDelete(ctx context.Context, t *turn) error {
	ok, err := e.tasks.Delete(ctx, t.action.TaskID, t.owner())
	if err != nil {
		return err
	}
	if !ok {
		return repositories.ErrNotFound
	}
	tasks, err := e.tasks.ListAll(ctx, t.owner())
	if err != nil {
		return err
	}
	r := taskList(tasks, chat.FilterAll, 0, e.cfg.PageSize, t.loc)
	r.Text = "🗑 Task deleted.\n\n" + r.Text
	t.reply(r)
	return nil
}
