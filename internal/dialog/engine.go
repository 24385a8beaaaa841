// Package dialog is the conversation engine: a per-user state machine driven
// by text and button events, delegating deadline entry to the picker
// sub-dialogs and persisting through the task store.
package dialog

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"taskbot/internal/chat"
	"taskbot/internal/models"
	"taskbot/internal/picker"
	"taskbot/internal/repositories"
	"taskbot/internal/session"
	"taskbot/internal/timezone"
)

// TaskStore is the owner-scoped task persistence the engine drives.
type TaskStore interface {
	Create(ctx context.Context, owner, body string, deadline *time.Time, priority models.Priority) (*models.Task, error)
	ListAll(ctx context.Context, owner string) ([]models.Task, error)
	ListDueWithinDay(ctx context.Context, owner string, ref time.Time) ([]models.Task, error)
	ListDueWithinWeek(ctx context.Context, owner string, ref time.Time) ([]models.Task, error)
	ListByPriority(ctx context.Context, owner string, priority models.Priority) ([]models.Task, error)
	GetByID(ctx context.Context, id uint, owner string) (*models.Task, error)
	UpdateStatus(ctx context.Context, id uint, owner string, status models.Status) (bool, error)
	UpdateFields(ctx context.Context, id uint, owner string, patch repositories.TaskPatch) (bool, error)
	Delete(ctx context.Context, id uint, owner string) (bool, error)
}

type UserStore interface {
	Upsert(ctx context.Context, externalID, displayName, timezone string) (*models.User, error)
	UpdateTimezone(ctx context.Context, externalID, timezone string) (bool, error)
}

type Config struct {
	CalendarWeeks   int
	MinuteStep      time.Duration
	LeadTime        time.Duration
	PageSize        int
	MaxBodyLength   int
	DefaultTimezone string
}

func DefaultConfig() Config {
	return Config{
		CalendarWeeks:   12,
		MinuteStep:      5 * time.Minute,
		LeadTime:        10 * time.Minute,
		PageSize:        5,
		MaxBodyLength:   models.MaxBodyLength,
		DefaultTimezone: timezone.Default,
	}
}

// textInput is the pattern for free text typed in a state.
const textInput chat.ActionKind = -1

type stateKey struct {
	flow  string
	state string
}

type routeKey struct {
	stateKey
	kind chat.ActionKind
}

type handlerFunc func(ctx context.Context, t *turn) error

// continuation is what a parent state registers for the picker it hosts.
type continuation struct {
	kind     picker.Kind
	onSelect func(ctx context.Context, t *turn, value time.Time) error
	onBack   func(ctx context.Context, t *turn) error
}

type Engine struct {
	tasks    TaskStore
	users    UserStore
	sessions session.Store
	cfg      Config
	now      func() time.Time
	locks    *keyedMutex

	routes        map[routeKey]handlerFunc
	globals       map[chat.ActionKind]handlerFunc
	continuations map[stateKey]continuation
	prompts       map[stateKey]func(t *turn) chat.Reply
}

func New(tasks TaskStore, users UserStore, sessions session.Store, cfg Config) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 5
	}
	if cfg.MaxBodyLength <= 0 || cfg.MaxBodyLength > models.MaxBodyLength {
		cfg.MaxBodyLength = models.MaxBodyLength
	}
	if cfg.CalendarWeeks <= 0 {
		cfg.CalendarWeeks = 12
	}
	if cfg.MinuteStep <= 0 {
		cfg.MinuteStep = 5 * time.Minute
	}

	e := &Engine{
		tasks:         tasks,
		users:         users,
		sessions:      sessions,
		cfg:           cfg,
		now:           time.Now,
		locks:         newKeyedMutex(),
		routes:        make(map[routeKey]handlerFunc),
		globals:       make(map[chat.ActionKind]handlerFunc),
		continuations: make(map[stateKey]continuation),
		prompts:       make(map[stateKey]func(t *turn) chat.Reply),
	}
	e.registerRoutes()
	return e
}

// WithClock replaces the engine's clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) on(flow, state string, kind chat.ActionKind, h handlerFunc) {
	e.routes[routeKey{stateKey{flow, state}, kind}] = h
}

func (e *Engine) global(kind chat.ActionKind, h handlerFunc) {
	e.globals[kind] = h
}

func (e *Engine) host(flow, state string, c continuation) {
	e.continuations[stateKey{flow, state}] = c
}

func (e *Engine) prompt(flow, state string, p func(t *turn) chat.Reply) {
	e.prompts[stateKey{flow, state}] = p
}

// turn is the context of one event being handled.
type turn struct {
	event   chat.Event
	action  chat.Action
	text    string
	user    *models.User
	loc     *time.Location
	now     time.Time
	session *session.Session
	replies []chat.Reply
}

func (t *turn) reply(r chat.Reply) {
	t.replies = append(t.replies, r)
}

func (t *turn) owner() string {
	return t.event.UserID
}

// Handle processes one event for one user and returns the replies to send.
// Events for the same user are handled one at a time.
func (e *Engine) Handle(ctx context.Context, ev chat.Event) ([]chat.Reply, error) {
	if strings.TrimSpace(ev.UserID) == "" {
		return nil, ErrInvalidEvent
	}

	unlock := e.locks.Lock(ev.UserID)
	defer unlock()

	t := &turn{event: ev, now: e.now()}
	if ev.Kind == chat.EventText {
		t.text = ev.Payload
		if a, ok := command(ev.Payload); ok {
			t.action = a
		} else {
			t.action = chat.Action{Kind: textInput}
		}
	} else {
		t.action = chat.ParseAction(ev.Payload)
		if t.action.Kind == chat.ActionUnknown {
			return nil, nil
		}
	}

	sess, err := e.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return e.fail(ev, err), nil
	}
	t.session = sess

	h, global := e.match(t)
	if h == nil {
		return nil, nil
	}

	if err := e.identify(ctx, t); err != nil {
		return e.fail(ev, err), nil
	}

	snapshot := *t.session
	if global {
		t.session.Reset()
	}

	err = h(ctx, t)
	switch {
	case err == nil:
	case errors.Is(err, errDropped):
		return nil, nil
	case errors.Is(err, repositories.ErrNotFound):
		t.session.Reset()
		t.replies = nil
		t.reply(notFoundReply())
	default:
		if ve, ok := asValidation(err); ok {
			*t.session = snapshot
			return e.revalidate(t, ve), nil
		}
		return e.fail(ev, err), nil
	}

	if err := e.sessions.Put(ctx, t.session); err != nil {
		return e.fail(ev, err), nil
	}
	return t.replies, nil
}

// match finds the handler for the event: a route for the current state
// first, then the picker the state hosts, then a global route.
func (e *Engine) match(t *turn) (handlerFunc, bool) {
	s := t.session
	kind := t.action.Kind

	if h, ok := e.routes[routeKey{stateKey{s.Flow, s.State}, kind}]; ok && !s.IsIdle() {
		return h, false
	}

	if c, ok := e.continuations[stateKey{s.Flow, s.State}]; ok && s.Picker != nil && picker.Handles(c.kind, t.action) {
		return func(ctx context.Context, t *turn) error {
			return e.delegate(ctx, t, c)
		}, false
	}

	if h, ok := e.globals[kind]; ok {
		return h, true
	}
	return nil, false
}

func (e *Engine) delegate(ctx context.Context, t *turn, c continuation) error {
	sub, ok := picker.Restore(*t.session.Picker, e.bounds(t))
	if !ok {
		return errDropped
	}
	if tp, ok := sub.(*picker.TimePicker); ok && !tp.HasSlots() {
		t.reply(e.backToDate(t, tp.Date()))
		return nil
	}

	res := sub.Handle(t.action)
	switch res.Outcome {
	case picker.Pending:
		st := sub.State()
		t.session.Picker = &st
		t.reply(e.prompts[stateKey{t.session.Flow, t.session.State}](t))
		return nil
	case picker.Resolved:
		return c.onSelect(ctx, t, res.Value)
	case picker.Aborted:
		return c.onBack(ctx, t)
	}
	return errDropped
}

func (e *Engine) identify(ctx context.Context, t *turn) error {
	name := strings.TrimSpace(t.event.DisplayName)
	if name == "" {
		name = t.event.UserID
	}
	user, err := e.users.Upsert(ctx, t.event.UserID, name, timezone.FromLocale(t.event.Locale, e.cfg.DefaultTimezone))
	if err != nil {
		return err
	}
	t.user = user
	t.loc = timezone.Load(user.Timezone)
	t.now = t.now.In(t.loc)
	return nil
}

func (e *Engine) bounds(t *turn) picker.Bounds {
	return picker.Bounds{
		Now:      t.now,
		Location: t.loc,
		Weeks:    e.cfg.CalendarWeeks,
		Step:     e.cfg.MinuteStep,
		Lead:     e.cfg.LeadTime,
	}
}

func (e *Engine) revalidate(t *turn, ve *ValidationError) []chat.Reply {
	replies := []chat.Reply{{Text: "⚠️ " + ve.Message}}
	if p, ok := e.prompts[stateKey{t.session.Flow, t.session.State}]; ok && !t.session.IsIdle() {
		replies = append(replies, p(t))
	}
	return replies
}

func (e *Engine) fail(ev chat.Event, err error) []chat.Reply {
	log.Printf("❌ Dialog failed for user %s (%s %q): %v", ev.UserID, ev.Kind, ev.Payload, err)
	return []chat.Reply{failureReply()}
}

var commands = map[string]chat.ActionKind{
	"/start":    chat.ActionMainMenu,
	"/menu":     chat.ActionMainMenu,
	"/help":     chat.ActionHelp,
	"/new":      chat.ActionCreateTask,
	"/list":     chat.ActionListTasks,
	"/settings": chat.ActionSettings,
	"/export":   chat.ActionExport,
}

// command maps a registered slash command to its action.
func command(text string) (chat.Action, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return chat.Action{}, false
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	kind, ok := commands[name]
	if !ok {
		return chat.Action{}, false
	}
	a := chat.Action{Kind: kind}
	if kind == chat.ActionListTasks {
		a.Filter = chat.FilterAll
	}
	return a, true
}
