package dialog_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"taskbot/internal/chat"
	"taskbot/internal/database"
	"taskbot/internal/dialog"
	"taskbot/internal/models"
	"taskbot/internal/repositories"
	"taskbot/internal/session"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"
)

type EngineSuite struct {
	suite.Suite
	pool     *database.DatabasePool
	tasks    *repositories.TaskRepository
	users    *repositories.UserRepository
	sessions *session.MemoryStore
	engine   *dialog.Engine
	now      time.Time
	ctx      context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:   database.DriverSQLite,
		DSN:      ":memory:",
		LogLevel: logger.Silent,
	})
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(pool.DB))

	s.pool = pool
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	cb := repositories.NewStoreBreaker(nil)
	s.tasks = repositories.NewTaskRepository(pool.DB, cb).WithClock(func() time.Time { return s.now })
	s.users = repositories.NewUserRepository(pool.DB, cb)
	s.sessions = session.NewMemoryStore(time.Hour, 0)
	s.engine = s.newEngine(s.tasks)
}

func (s *EngineSuite) newEngine(tasks dialog.TaskStore) *dialog.Engine {
	return dialog.New(tasks, s.users, s.sessions, dialog.DefaultConfig()).
		WithClock(func() time.Time { return s.now })
}

func (s *EngineSuite) TearDownTest() {
	if s.sessions != nil {
		s.sessions.Close()
		s.sessions = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

func (s *EngineSuite) send(user string, kind chat.EventKind, payload string) []chat.Reply {
	replies, err := s.engine.Handle(s.ctx, chat.Event{UserID: user, Kind: kind, Payload: payload, Locale: "en", DisplayName: user})
	s.Require().NoError(err)
	return replies
}

func (s *EngineSuite) press(user, payload string) []chat.Reply {
	return s.send(user, chat.EventButton, payload)
}

func (s *EngineSuite) say(user, text string) []chat.Reply {
	return s.send(user, chat.EventText, text)
}

func (s *EngineSuite) session(user string) *session.Session {
	sess, err := s.sessions.Get(s.ctx, user)
	s.Require().NoError(err)
	return sess
}

func (s *EngineSuite) listAll(user string) []models.Task {
	tasks, err := s.tasks.ListAll(s.ctx, user)
	s.Require().NoError(err)
	return tasks
}

func hasPayload(replies []chat.Reply, payload string) bool {
	for _, r := range replies {
		for _, row := range r.Controls {
			for _, b := range row {
				if b.Payload == payload {
					return true
				}
			}
		}
	}
	return false
}

func joined(replies []chat.Reply) string {
	var parts []string
	for _, r := range replies {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n")
}

// toConfirmation drives the create flow up to the confirmation prompt.
func (s *EngineSuite) toConfirmation(user string) {
	s.press(user, "create")
	replies := s.say(user, "Buy milk")
	s.True(hasPayload(replies, "cal:day:2026-10-21"))
	s.True(hasPayload(replies, "skipDeadline"))

	replies = s.press(user, "cal:day:2026-10-21")
	s.True(hasPayload(replies, "clock:hour:18"))

	replies = s.press(user, "clock:hour:18")
	s.True(hasPayload(replies, "clock:min:18:30"))

	replies = s.press(user, "clock:min:18:30")
	s.True(hasPayload(replies, "createPriority:3"))

	replies = s.press(user, "createPriority:3")
	s.Contains(joined(replies), "21.10.2026 18:30")
	s.Equal(dialog.StateAwaitingConfirmation, s.session(user).State)
}

func (s *EngineSuite) TestCreateFlow_PersistsExactlyOneTask() {
	s.toConfirmation("alice")

	replies := s.press("alice", "confirmCreate:yes")
	s.Contains(joined(replies), "Task saved")

	tasks := s.listAll("alice")
	s.Require().Len(tasks, 1)
	s.Equal("Buy milk", tasks[0].Body)
	s.Equal(models.PriorityHigh, tasks[0].Priority)
	s.Require().NotNil(tasks[0].Deadline)
	s.True(time.Date(2026, 10, 21, 18, 30, 0, 0, time.UTC).Equal(*tasks[0].Deadline))
	s.True(s.session("alice").IsIdle())
}

func (s *EngineSuite) TestCreateFlow_DuplicateConfirmIsDropped() {
	s.toConfirmation("alice")

	s.press("alice", "confirmCreate:yes")
	replies := s.press("alice", "confirmCreate:yes")

	s.Empty(replies)
	s.Len(s.listAll("alice"), 1)
}

func (s *EngineSuite) TestCreateFlow_ConcurrentConfirmsPersistOnce() {
	s.toConfirmation("alice")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.engine.Handle(s.ctx, chat.Event{UserID: "alice", Kind: chat.EventButton, Payload: "confirmCreate:yes"})
		}()
	}
	wg.Wait()

	s.Len(s.listAll("alice"), 1)
}

func (s *EngineSuite) TestCreateFlow_DeclineWritesNothing() {
	s.toConfirmation("alice")

	replies := s.press("alice", "confirmCreate:no")
	s.Contains(joined(replies), "cancelled")
	s.Empty(s.listAll("alice"))
	s.True(s.session("alice").IsIdle())
}

func (s *EngineSuite) TestCreateFlow_DatePickerBackAborts() {
	s.press("alice", "create")
	s.say("alice", "Buy milk")

	replies := s.press("alice", "cal:back")
	s.Contains(joined(replies), "cancelled")
	s.True(s.session("alice").IsIdle())
	s.Empty(s.listAll("alice"))
}

func (s *EngineSuite) TestCreateFlow_TimePickerBackStepsThenAborts() {
	s.press("alice", "create")
	s.say("alice", "Buy milk")
	s.press("alice", "cal:day:2026-10-21")
	s.press("alice", "clock:hour:18")

	replies := s.press("alice", "clock:back")
	s.True(hasPayload(replies, "clock:hour:18"))
	s.Equal(dialog.StateAwaitingTime, s.session("alice").State)

	replies = s.press("alice", "clock:back")
	s.Contains(joined(replies), "cancelled")
	s.True(s.session("alice").IsIdle())
	s.Empty(s.listAll("alice"))
}

func (s *EngineSuite) TestCreateFlow_LateEveningSkipsToday() {
	s.now = time.Date(2026, 10, 19, 23, 55, 0, 0, time.UTC)
	s.press("alice", "create")

	replies := s.say("alice", "Buy milk")
	s.False(hasPayload(replies, "cal:day:2026-10-19"))
	s.True(hasPayload(replies, "cal:day:2026-10-20"))

	s.Empty(s.press("alice", "cal:day:2026-10-19"))
	sess := s.session("alice")
	s.Equal(dialog.StateAwaitingDate, sess.State)
	s.Equal("Buy milk", sess.Get("text"))

	replies = s.press("alice", "cal:day:2026-10-20")
	s.True(hasPayload(replies, "clock:hour:00"))
	s.Equal(dialog.StateAwaitingTime, s.session("alice").State)
}

func (s *EngineSuite) TestCreateFlow_TimePageOutOfSlotsReturnsToCalendar() {
	s.now = time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC)
	s.press("alice", "create")
	s.say("alice", "Buy milk")

	replies := s.press("alice", "cal:day:2026-10-19")
	s.True(hasPayload(replies, "clock:hour:23"))

	// midnight passes while the hour page is open
	s.now = time.Date(2026, 10, 19, 23, 58, 0, 0, time.UTC)
	replies = s.press("alice", "clock:back")
	s.Contains(joined(replies), "No times left on 19.10.2026")
	s.False(hasPayload(replies, "cal:day:2026-10-19"))
	s.True(hasPayload(replies, "cal:day:2026-10-20"))

	sess := s.session("alice")
	s.Equal(dialog.StateAwaitingDate, sess.State)
	s.Equal("Buy milk", sess.Get("text"))

	s.press("alice", "cal:day:2026-10-20")
	s.press("alice", "clock:hour:09")
	s.press("alice", "clock:min:09:00")
	s.press("alice", "createPriority:3")
	s.press("alice", "confirmCreate:yes")

	tasks := s.listAll("alice")
	s.Require().Len(tasks, 1)
	s.Equal("Buy milk", tasks[0].Body)
	s.Require().NotNil(tasks[0].Deadline)
	s.True(time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC).Equal(*tasks[0].Deadline))
}

func (s *EngineSuite) TestCreateFlow_CalendarNavigationRedraws() {
	s.press("alice", "create")
	s.say("alice", "Buy milk")

	replies := s.press("alice", "cal:nav:2026-11")
	s.True(hasPayload(replies, "cal:day:2026-11-15"))
	s.Equal("2026-11", s.session("alice").Picker.Month)
	s.Equal(dialog.StateAwaitingDate, s.session("alice").State)
}

func (s *EngineSuite) TestCreateFlow_TypedDeadline() {
	s.press("alice", "create")
	s.say("alice", "Buy milk")

	replies := s.say("alice", "22.10.2026 09:15")
	s.True(hasPayload(replies, "createPriority:1"))
	s.press("alice", "createPriority:1")
	s.press("alice", "confirmCreate:yes")

	tasks := s.listAll("alice")
	s.Require().Len(tasks, 1)
	s.True(time.Date(2026, 10, 22, 9, 15, 0, 0, time.UTC).Equal(*tasks[0].Deadline))
}

func (s *EngineSuite) TestCreateFlow_MalformedDeadlineKeepsState() {
	s.press("alice", "create")
	s.say("alice", "Buy milk")

	replies := s.say("alice", "tomorrow-ish")
	s.Contains(joined(replies), "dd.mm.yyyy hh:mm")
	s.True(hasPayload(replies, "cal:back"))

	sess := s.session("alice")
	s.Equal(dialog.StateAwaitingDate, sess.State)
	s.Equal("Buy milk", sess.Get("text"))

	replies = s.say("alice", "01.01.2020 10:00")
	s.Contains(joined(replies), "future")
	s.Equal(dialog.StateAwaitingDate, s.session("alice").State)
}

func (s *EngineSuite) TestCreateFlow_EmptyAndOversizedText() {
	s.press("alice", "create")

	replies := s.say("alice", "   ")
	s.Contains(joined(replies), "can't be empty")
	s.Equal(dialog.StateAwaitingText, s.session("alice").State)

	replies = s.say("alice", strings.Repeat("x", models.MaxBodyLength+1))
	s.Contains(joined(replies), "too long")
	s.Equal(dialog.StateAwaitingText, s.session("alice").State)
}

func (s *EngineSuite) TestCreateFlow_SkipDeadline() {
	s.press("alice", "create")
	s.say("alice", "Someday")
	s.press("alice", "skipDeadline")
	s.press("alice", "createPriority:2")

	replies := s.press("alice", "confirmCreate:yes")
	s.Contains(joined(replies), "Not set")

	tasks := s.listAll("alice")
	s.Require().Len(tasks, 1)
	s.Nil(tasks[0].Deadline)
}

func (s *EngineSuite) TestGlobalRouteClearsInFlightFlow() {
	s.press("alice", "create")
	s.say("alice", "Buy milk")

	replies := s.press("alice", "menu")
	s.True(hasPayload(replies, "create"))
	s.True(s.session("alice").IsIdle())

	s.Empty(s.press("alice", "cal:day:2026-10-21"))
}

func (s *EngineSuite) TestUnknownAndIdleEventsAreDropped() {
	s.Empty(s.press("alice", "bogus:payload"))
	s.Empty(s.press("alice", "createPriority:3"))
	s.Empty(s.say("alice", "just chatting"))
}

func (s *EngineSuite) TestSlashCommands() {
	replies := s.say("alice", "/new")
	s.Contains(joined(replies), "Send me the task text")
	s.Equal(dialog.FlowCreate, s.session("alice").Flow)

	replies = s.say("alice", "/help")
	s.Contains(joined(replies), "How it works")
	s.True(s.session("alice").IsIdle())
}

func (s *EngineSuite) seed(user, body string, deadline *time.Time, p models.Priority) *models.Task {
	_, err := s.users.Upsert(s.ctx, user, user, "UTC")
	s.Require().NoError(err)
	task, err := s.tasks.Create(s.ctx, user, body, deadline, p)
	s.Require().NoError(err)
	return task
}

func (s *EngineSuite) TestEditPriority_PreservesOtherFields() {
	due := time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC)
	task := s.seed("alice", "Report", &due, models.PriorityLow)
	id := "1"
	s.Require().Equal(uint(1), task.ID)

	replies := s.press("alice", "editPriority:"+id)
	s.True(hasPayload(replies, "setPriority:1:3"))

	replies = s.press("alice", "setPriority:1:3")
	s.Contains(joined(replies), "Priority updated")

	got, err := s.tasks.GetByID(s.ctx, task.ID, "alice")
	s.Require().NoError(err)
	s.Equal(models.PriorityHigh, got.Priority)
	s.Equal("Report", got.Body)
	s.True(due.Equal(*got.Deadline))
	s.True(s.session("alice").IsIdle())
}

func (s *EngineSuite) TestEditPriority_StaleTaskButtonDropped() {
	s.seed("alice", "One", nil, models.PriorityLow)
	s.seed("alice", "Two", nil, models.PriorityLow)

	s.press("alice", "editPriority:1")
	s.Empty(s.press("alice", "setPriority:2:3"))
	s.Equal(dialog.FlowEditPriority, s.session("alice").Flow)

	got, err := s.tasks.GetByID(s.ctx, 2, "alice")
	s.Require().NoError(err)
	s.Equal(models.PriorityLow, got.Priority)
}

func (s *EngineSuite) TestEditText() {
	s.seed("alice", "Old text", nil, models.PriorityMedium)

	s.press("alice", "editText:1")
	replies := s.say("alice", "New text")
	s.Contains(joined(replies), "Text updated")

	got, err := s.tasks.GetByID(s.ctx, 1, "alice")
	s.Require().NoError(err)
	s.Equal("New text", got.Body)
	s.Equal(models.PriorityMedium, got.Priority)
}

func (s *EngineSuite) TestEditDeadline_AbortLeavesDeadline() {
	due := time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC)
	s.seed("alice", "Report", &due, models.PriorityLow)

	s.press("alice", "editDeadline:1")
	s.press("alice", "cal:day:2026-10-30")
	replies := s.press("alice", "clock:back")
	s.Contains(joined(replies), "Nothing changed")
	s.True(s.session("alice").IsIdle())

	got, err := s.tasks.GetByID(s.ctx, 1, "alice")
	s.Require().NoError(err)
	s.True(due.Equal(*got.Deadline))
}

func (s *EngineSuite) TestEditDeadline_PickAndClear() {
	s.seed("alice", "Report", nil, models.PriorityLow)

	s.press("alice", "editDeadline:1")
	s.press("alice", "cal:day:2026-10-30")
	s.press("alice", "clock:hour:9")
	replies := s.press("alice", "clock:min:09:45")
	s.Contains(joined(replies), "30.10.2026 09:45")

	s.press("alice", "editDeadline:1")
	replies = s.press("alice", "skipDeadline")
	s.Contains(joined(replies), "Deadline removed")

	got, err := s.tasks.GetByID(s.ctx, 1, "alice")
	s.Require().NoError(err)
	s.Nil(got.Deadline)
}

func (s *EngineSuite) TestCancelEditReturnsToTask() {
	s.seed("alice", "Report", nil, models.PriorityLow)

	s.press("alice", "editText:1")
	replies := s.press("alice", "cancelEdit:1")
	s.Contains(joined(replies), "Report")
	s.True(hasPayload(replies, "complete:1"))
	s.True(s.session("alice").IsIdle())
}

func (s *EngineSuite) TestOwnershipIsolation() {
	s.seed("alice", "Private", nil, models.PriorityHigh)

	for _, payload := range []string{"view:1", "complete:1", "delete:1", "confirmDelete:1", "editText:1"} {
		replies := s.press("bob", payload)
		s.Contains(joined(replies), "Task not found", payload)
	}

	got, err := s.tasks.GetByID(s.ctx, 1, "alice")
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
}

func (s *EngineSuite) TestCompleteAndDelete() {
	s.seed("alice", "Report", nil, models.PriorityLow)

	replies := s.press("alice", "complete:1")
	s.Contains(joined(replies), "Marked as done")
	s.False(hasPayload(replies, "complete:1"))

	replies = s.press("alice", "delete:1")
	s.True(hasPayload(replies, "confirmDelete:1"))

	replies = s.press("alice", "confirmDelete:1")
	s.Contains(joined(replies), "Task deleted")
	s.Empty(s.listAll("alice"))

	replies = s.press("alice", "confirmDelete:1")
	s.Contains(joined(replies), "Task not found")
}

func (s *EngineSuite) TestListPaginationAndFilters() {
	for i := 0; i < 7; i++ {
		s.seed("alice", "Task", nil, models.PriorityMedium)
	}
	s.seed("alice", "Urgent", nil, models.PriorityHigh)

	replies := s.press("alice", "list")
	s.Contains(joined(replies), "page 1/2")
	s.True(hasPayload(replies, "view:8"))
	s.True(hasPayload(replies, "list:all:1"))

	replies = s.press("alice", "list:all:1")
	s.Contains(joined(replies), "page 2/2")
	s.True(hasPayload(replies, "list:all:0"))

	replies = s.press("alice", "list:high:0")
	s.Contains(joined(replies), "High priority: 1")
}

func (s *EngineSuite) TestListTodayUsesUserTimezone() {
	_, err := s.users.Upsert(s.ctx, "alice", "alice", "Asia/Tokyo")
	s.Require().NoError(err)

	// 10:00 UTC is 19:00 in Tokyo; 16:00 UTC is already the next day there
	tonight := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2026, 10, 19, 16, 0, 0, 0, time.UTC)
	s.seed("alice", "Tonight", &tonight, models.PriorityLow)
	s.seed("alice", "Tomorrow", &tomorrow, models.PriorityLow)

	replies := s.press("alice", "list:today:0")
	s.True(hasPayload(replies, "view:1"))
	s.False(hasPayload(replies, "view:2"))
	s.Contains(joined(replies), "19.10.2026 23:00")
}

func (s *EngineSuite) TestFirstContactUsesLocaleTimezone() {
	_, err := s.engine.Handle(s.ctx, chat.Event{UserID: "ivan", Kind: chat.EventButton, Payload: "menu", Locale: "ru", DisplayName: "Ivan"})
	s.Require().NoError(err)

	user, err := s.users.GetByExternalID(s.ctx, "ivan")
	s.Require().NoError(err)
	s.Equal("Europe/Moscow", user.Timezone)
	s.Equal("Ivan", user.DisplayName)
}

func (s *EngineSuite) TestChangeTimezone() {
	replies := s.press("alice", "changeTz")
	s.True(hasPayload(replies, "setTz:Asia/Tokyo"))

	replies = s.press("alice", "setTz:Asia/Tokyo")
	s.Contains(joined(replies), "Tokyo (UTC+9)")

	user, err := s.users.GetByExternalID(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Asia/Tokyo", user.Timezone)

	s.Empty(s.press("alice", "setTz:Europe/Berlin"))
}

func (s *EngineSuite) TestChangeTimezone_RejectsUnlistedZone() {
	s.press("alice", "changeTz")

	replies := s.press("alice", "setTz:Mars/Olympus")
	s.Contains(joined(replies), "listed timezones")
	s.Equal(dialog.StateAwaitingTimezone, s.session("alice").State)
}

func (s *EngineSuite) TestExport() {
	s.seed("alice", "Report", nil, models.PriorityLow)

	replies := s.press("alice", "export")
	s.Require().Len(replies, 1)
	doc := replies[0].Document
	s.Require().NotNil(doc)
	s.Equal("tasks_export_alice_20261019_100000.csv", doc.Filename)
	s.True(strings.HasPrefix(string(doc.Content), "sep=;\r\n"))
	s.Contains(string(doc.Content), "1;Report;Not set;Low;Active")
}

type failingTasks struct {
	dialog.TaskStore
}

func (f failingTasks) Create(context.Context, string, string, *time.Time, models.Priority) (*models.Task, error) {
	return nil, repositories.ErrStoreUnavailable
}

func (s *EngineSuite) TestStoreUnavailableKeepsSession() {
	s.toConfirmation("alice")
	s.engine = s.newEngine(failingTasks{TaskStore: s.tasks})

	replies := s.press("alice", "confirmCreate:yes")
	s.Contains(joined(replies), "Something went wrong")

	sess := s.session("alice")
	s.Equal(dialog.StateAwaitingConfirmation, sess.State)
	s.Equal("Buy milk", sess.Get("text"))
	s.Empty(s.listAll("alice"))
}

func (s *EngineSuite) TestEventWithoutUser() {
	_, err := s.engine.Handle(s.ctx, chat.Event{Kind: chat.EventText, Payload: "hi"})
	s.ErrorIs(err, dialog.ErrInvalidEvent)
}
