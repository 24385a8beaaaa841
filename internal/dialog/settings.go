package dialog

import (
	"bytes"
	"context"
	"fmt"

	"taskbot/internal/chat"
	"taskbot/internal/export"
	"taskbot/internal/timezone"
)

func (e *Engine) showSettings(_ context.Context, t *turn) error {
	t.reply(chat.Reply{
		Text: fmt.Sprintf("⚙️ Settings\n\n🌍 Timezone: %s", timezone.DisplayName(t.user.Timezone, t.now)),
		Controls: [][]chat.Button{
			chat.Row(button("🌍 Change timezone", chat.ActionChangeTimezone)),
			menuRow(),
		},
	})
	return nil
}

func (e *Engine) startChangeTimezone(_ context.Context, t *turn) error {
	t.session.Start(FlowSettings, StateAwaitingTimezone)
	t.reply(timezonePrompt(t))
	return nil
}

func timezonePrompt(t *turn) chat.Reply {
	var rows [][]chat.Button
	var row []chat.Button
	for _, zone := range timezone.Available {
		label := timezone.DisplayName(zone, t.now)
		if zone == t.user.Timezone {
			label = "✅ " + label
		}
		row = append(row, chat.ButtonFor(label, chat.Action{Kind: chat.ActionSetTimezone, Zone: zone}))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, chat.Row(button("⬅️ Back", chat.ActionSettings)))
	return chat.Reply{Text: "🌍 Choose your timezone:", Controls: rows}
}

func (e *Engine) setTimezone(ctx context.Context, t *turn) error {
	zone := t.action.Zone
	if !timezone.IsOffered(zone) {
		return invalid("timezone", "Pick one of the listed timezones.")
	}
	if _, err := e.users.UpdateTimezone(ctx, t.owner(), zone); err != nil {
		return err
	}

	t.user.Timezone = zone
	t.loc = timezone.Load(zone)
	t.now = t.now.In(t.loc)
	t.session.Reset()

	t.reply(chat.Reply{Text: "✅ Timezone changed to " + timezone.DisplayName(zone, t.now) + "."})
	return e.showSettings(ctx, t)
}

func (e *Engine) exportTasks(ctx context.Context, t *turn) error {
	tasks, err := e.tasks.ListAll(ctx, t.owner())
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		t.reply(mainMenu("📭 You have no tasks to export yet."))
		return nil
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, tasks, t.loc); err != nil {
		return fmt.Errorf("render export: %w", err)
	}

	t.reply(chat.Reply{
		Text: fmt.Sprintf("📤 Exported %d tasks.", len(tasks)),
		Document: &chat.Document{
			Filename:    export.Filename(t.owner(), t.now),
			ContentType: export.ContentType,
			Content:     buf.Bytes(),
		},
		Controls: [][]chat.Button{menuRow()},
	})
	return nil
}
