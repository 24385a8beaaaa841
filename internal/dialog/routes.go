package dialog

import (
	"taskbot/internal/chat"
	"taskbot/internal/picker"
)

// Flows and their states. An idle session has neither.
const (
	FlowCreate       = "create"
	FlowEditText     = "edit_text"
	FlowEditDeadline = "edit_deadline"
	FlowEditPriority = "edit_priority"
	FlowSettings     = "settings"

	StateAwaitingText         = "awaiting_text"
	StateAwaitingDate         = "awaiting_date"
	StateAwaitingTime         = "awaiting_time"
	StateAwaitingPriority     = "awaiting_priority"
	StateAwaitingConfirmation = "awaiting_confirmation"
	StateAwaitingTimezone     = "awaiting_timezone"
)

// Session field keys.
const (
	fieldText     = "text"
	fieldDate     = "date"
	fieldDeadline = "deadline"
	fieldPriority = "priority"
	fieldTaskID   = "task_id"
)

func (e *Engine) registerRoutes() {
	e.global(chat.ActionMainMenu, e.showMenu)
	e.global(chat.ActionHelp, e.showHelp)
	e.global(chat.ActionCreateTask, e.startCreate)
	e.global(chat.ActionListTasks, e.listTasks)
	e.global(chat.ActionShowFilters, e.showFilters)
	e.global(chat.ActionViewTask, e.viewTask)
	e.global(chat.ActionCompleteTask, e.completeTask)
	e.global(chat.ActionEditTask, e.showEditMenu)
	e.global(chat.ActionEditText, e.startEditText)
	e.global(chat.ActionEditDeadline, e.startEditDeadline)
	e.global(chat.ActionEditPriority, e.startEditPriority)
	e.global(chat.ActionCancelEdit, e.viewTask)
	e.global(chat.ActionDeleteTask, e.askDelete)
	e.global(chat.ActionConfirmDelete, e.confirmDelete)
	e.global(chat.ActionSettings, e.showSettings)
	e.global(chat.ActionChangeTimezone, e.startChangeTimezone)
	e.global(chat.ActionExport, e.exportTasks)

	e.on(FlowCreate, StateAwaitingText, textInput, e.createReceiveText)
	e.on(FlowCreate, StateAwaitingDate, textInput, e.createTypedDeadline)
	e.on(FlowCreate, StateAwaitingDate, chat.ActionSkipDeadline, e.createSkipDeadline)
	e.on(FlowCreate, StateAwaitingPriority, chat.ActionCreatePriority, e.createReceivePriority)
	e.on(FlowCreate, StateAwaitingConfirmation, chat.ActionConfirmCreate, e.createConfirm)
	e.host(FlowCreate, StateAwaitingDate, continuation{kind: picker.KindDate, onSelect: e.createDateSelected, onBack: e.createAbort})
	e.host(FlowCreate, StateAwaitingTime, continuation{kind: picker.KindTime, onSelect: e.createTimeSelected, onBack: e.createAbort})
	e.prompt(FlowCreate, StateAwaitingText, e.createTextPrompt)
	e.prompt(FlowCreate, StateAwaitingDate, e.createDatePrompt)
	e.prompt(FlowCreate, StateAwaitingTime, e.timePrompt)
	e.prompt(FlowCreate, StateAwaitingPriority, createPriorityPrompt)
	e.prompt(FlowCreate, StateAwaitingConfirmation, confirmPrompt)

	e.on(FlowEditText, StateAwaitingText, textInput, e.editReceiveText)
	e.prompt(FlowEditText, StateAwaitingText, e.editTextPrompt)

	e.on(FlowEditDeadline, StateAwaitingDate, textInput, e.editTypedDeadline)
	e.on(FlowEditDeadline, StateAwaitingDate, chat.ActionSkipDeadline, e.editClearDeadline)
	e.host(FlowEditDeadline, StateAwaitingDate, continuation{kind: picker.KindDate, onSelect: e.editDateSelected, onBack: e.editAbort})
	e.host(FlowEditDeadline, StateAwaitingTime, continuation{kind: picker.KindTime, onSelect: e.editTimeSelected, onBack: e.editAbort})
	e.prompt(FlowEditDeadline, StateAwaitingDate, e.editDatePrompt)
	e.prompt(FlowEditDeadline, StateAwaitingTime, e.timePrompt)

	e.on(FlowEditPriority, StateAwaitingPriority, chat.ActionSetPriority, e.editReceivePriority)
	e.prompt(FlowEditPriority, StateAwaitingPriority, editPriorityPrompt)

	e.on(FlowSettings, StateAwaitingTimezone, chat.ActionSetTimezone, e.setTimezone)
	e.prompt(FlowSettings, StateAwaitingTimezone, timezonePrompt)
}
