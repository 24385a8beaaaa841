package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskbot/internal/breaker"
	"taskbot/internal/database"
	"taskbot/internal/models"
	"taskbot/internal/repositories"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"
)

type RepositorySuite struct {
	suite.Suite
	pool  *database.DatabasePool
	tasks *repositories.TaskRepository
	users *repositories.UserRepository
	clock time.Time
	ctx   context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:   database.DriverSQLite,
		DSN:      ":memory:",
		LogLevel: logger.Silent,
	})
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(pool.DB))

	s.pool = pool
	s.ctx = context.Background()
	s.clock = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	cb := repositories.NewStoreBreaker(nil)
	s.tasks = repositories.NewTaskRepository(pool.DB, cb).WithClock(s.tick)
	s.users = repositories.NewUserRepository(pool.DB, cb)

	for _, id := range []string{"alice", "bob"} {
		_, err := s.users.Upsert(s.ctx, id, id, "UTC")
		s.Require().NoError(err)
	}
}

func (s *RepositorySuite) TearDownTest() {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

func (s *RepositorySuite) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *RepositorySuite) create(owner, body string, deadline *time.Time, p models.Priority) *models.Task {
	task, err := s.tasks.Create(s.ctx, owner, body, deadline, p)
	s.Require().NoError(err)
	return task
}

func at(t time.Time) *time.Time { return &t }

func ids(tasks []models.Task) []uint {
	out := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func (s *RepositorySuite) TestCreate_AssignsOwnerAndDefaults() {
	task := s.create("alice", "  Buy milk  ", nil, models.PriorityMedium)

	s.NotZero(task.ID)
	s.Equal("Buy milk", task.Body)
	s.Equal(models.StatusActive, task.Status)
	s.Nil(task.Deadline)
	s.Equal(task.CreatedAt, task.UpdatedAt)

	got, err := s.tasks.GetByID(s.ctx, task.ID, "alice")
	s.Require().NoError(err)
	s.Equal(task.Body, got.Body)
	s.Equal(models.PriorityMedium, got.Priority)
}

func (s *RepositorySuite) TestCreate_StoresDeadlineInUTC() {
	moscow := time.FixedZone("MSK", 3*60*60)
	due := time.Date(2026, 10, 21, 12, 30, 0, 0, moscow)

	task := s.create("alice", "Call", &due, models.PriorityLow)

	got, err := s.tasks.GetByID(s.ctx, task.ID, "alice")
	s.Require().NoError(err)
	s.Require().NotNil(got.Deadline)
	s.True(due.Equal(*got.Deadline))
	s.Equal(9, got.Deadline.UTC().Hour())
}

func (s *RepositorySuite) TestCreate_Validation() {
	_, err := s.tasks.Create(s.ctx, "alice", "   ", nil, models.PriorityLow)
	s.ErrorIs(err, repositories.ErrInvalidBody)

	long := make([]rune, models.MaxBodyLength+1)
	for i := range long {
		long[i] = 'ж'
	}
	_, err = s.tasks.Create(s.ctx, "alice", string(long), nil, models.PriorityLow)
	s.ErrorIs(err, repositories.ErrInvalidBody)

	_, err = s.tasks.Create(s.ctx, "alice", string(long[:models.MaxBodyLength]), nil, models.PriorityLow)
	s.NoError(err)

	_, err = s.tasks.Create(s.ctx, "alice", "x", nil, models.Priority(4))
	s.ErrorIs(err, repositories.ErrInvalidPriority)
}

func (s *RepositorySuite) TestCreate_UnknownOwner() {
	_, err := s.tasks.Create(s.ctx, "mallory", "x", nil, models.PriorityLow)
	s.ErrorIs(err, repositories.ErrNotFound)
}

func (s *RepositorySuite) TestOwnershipIsolation() {
	task := s.create("alice", "Secret", nil, models.PriorityHigh)

	_, err := s.tasks.GetByID(s.ctx, task.ID, "bob")
	s.ErrorIs(err, repositories.ErrNotFound)

	ok, err := s.tasks.UpdateStatus(s.ctx, task.ID, "bob", models.StatusDone)
	s.NoError(err)
	s.False(ok)

	body := "hijacked"
	ok, err = s.tasks.UpdateFields(s.ctx, task.ID, "bob", repositories.TaskPatch{Body: &body})
	s.NoError(err)
	s.False(ok)

	ok, err = s.tasks.Delete(s.ctx, task.ID, "bob")
	s.NoError(err)
	s.False(ok)

	list, err := s.tasks.ListAll(s.ctx, "bob")
	s.NoError(err)
	s.Empty(list)

	got, err := s.tasks.GetByID(s.ctx, task.ID, "alice")
	s.Require().NoError(err)
	s.Equal("Secret", got.Body)
	s.Equal(models.StatusActive, got.Status)
}

func (s *RepositorySuite) TestListAll_Ordering() {
	low := s.create("alice", "low", nil, models.PriorityLow)
	high1 := s.create("alice", "high 1", nil, models.PriorityHigh)
	med := s.create("alice", "medium", nil, models.PriorityMedium)
	high2 := s.create("alice", "high 2", nil, models.PriorityHigh)

	list, err := s.tasks.ListAll(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal([]uint{high2.ID, high1.ID, med.ID, low.ID}, ids(list))
}

func (s *RepositorySuite) TestListByPriority() {
	first := s.create("alice", "a", nil, models.PriorityHigh)
	s.create("alice", "b", nil, models.PriorityLow)
	second := s.create("alice", "c", nil, models.PriorityHigh)
	s.create("bob", "d", nil, models.PriorityHigh)

	list, err := s.tasks.ListByPriority(s.ctx, "alice", models.PriorityHigh)
	s.Require().NoError(err)
	s.Equal([]uint{second.ID, first.ID}, ids(list))

	_, err = s.tasks.ListByPriority(s.ctx, "alice", models.Priority(0))
	s.ErrorIs(err, repositories.ErrInvalidPriority)
}

func (s *RepositorySuite) TestListDueWithinDay_Boundaries() {
	ref := time.Date(2026, 10, 21, 15, 0, 0, 0, time.UTC)

	start := s.create("alice", "start", at(time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)), models.PriorityLow)
	end := s.create("alice", "end", at(time.Date(2026, 10, 21, 23, 59, 59, 0, time.UTC)), models.PriorityHigh)
	s.create("alice", "next", at(time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)), models.PriorityHigh)
	s.create("alice", "before", at(time.Date(2026, 10, 20, 23, 59, 59, 0, time.UTC)), models.PriorityHigh)
	s.create("alice", "none", nil, models.PriorityHigh)

	list, err := s.tasks.ListDueWithinDay(s.ctx, "alice", ref)
	s.Require().NoError(err)
	s.Equal([]uint{end.ID, start.ID}, ids(list))
}

func (s *RepositorySuite) TestListDueWithinDay_UsesReferenceLocation() {
	moscow := time.FixedZone("MSK", 3*60*60)
	ref := time.Date(2026, 10, 21, 1, 0, 0, 0, moscow)

	// 22:00 UTC on the 20th is already the 21st in Moscow
	early := s.create("alice", "early", at(time.Date(2026, 10, 20, 22, 0, 0, 0, time.UTC)), models.PriorityLow)
	s.create("alice", "late", at(time.Date(2026, 10, 21, 21, 0, 0, 0, time.UTC)), models.PriorityLow)

	list, err := s.tasks.ListDueWithinDay(s.ctx, "alice", ref)
	s.Require().NoError(err)
	s.Equal([]uint{early.ID}, ids(list))
}

func (s *RepositorySuite) TestListDueWithinWeek_Boundaries() {
	ref := time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC)

	today := s.create("alice", "today", at(time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)), models.PriorityLow)
	seventh := s.create("alice", "day seven", at(time.Date(2026, 10, 28, 23, 59, 59, 0, time.UTC)), models.PriorityMedium)
	s.create("alice", "day eight", at(time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC)), models.PriorityHigh)
	s.create("bob", "other", at(time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)), models.PriorityHigh)

	list, err := s.tasks.ListDueWithinWeek(s.ctx, "alice", ref)
	s.Require().NoError(err)
	s.Equal([]uint{seventh.ID, today.ID}, ids(list))
}

func (s *RepositorySuite) TestUpdateFields_PartialPatch() {
	due := time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)
	task := s.create("alice", "Original", &due, models.PriorityLow)

	high := models.PriorityHigh
	ok, err := s.tasks.UpdateFields(s.ctx, task.ID, "alice", repositories.TaskPatch{Priority: &high})
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.tasks.GetByID(s.ctx, task.ID, "alice")
	s.Require().NoError(err)
	s.Equal(models.PriorityHigh, got.Priority)
	s.Equal("Original", got.Body)
	s.Require().NotNil(got.Deadline)
	s.True(due.Equal(*got.Deadline))
	s.True(got.UpdatedAt.After(task.UpdatedAt))
	s.True(got.CreatedAt.Equal(task.CreatedAt))

	ok, err = s.tasks.UpdateFields(s.ctx, task.ID, "alice", repositories.TaskPatch{ClearDeadline: true})
	s.Require().NoError(err)
	s.True(ok)

	got, err = s.tasks.GetByID(s.ctx, task.ID, "alice")
	s.Require().NoError(err)
	s.Nil(got.Deadline)
	s.Equal(models.PriorityHigh, got.Priority)
}

func (s *RepositorySuite) TestUpdateFields_RejectsInvalidValues() {
	task := s.create("alice", "Original", nil, models.PriorityLow)

	empty := ""
	_, err := s.tasks.UpdateFields(s.ctx, task.ID, "alice", repositories.TaskPatch{Body: &empty})
	s.ErrorIs(err, repositories.ErrInvalidBody)

	bad := models.Priority(7)
	_, err = s.tasks.UpdateFields(s.ctx, task.ID, "alice", repositories.TaskPatch{Priority: &bad})
	s.ErrorIs(err, repositories.ErrInvalidPriority)
}

func (s *RepositorySuite) TestUpdateStatusAndDelete() {
	task := s.create("alice", "Do it", nil, models.PriorityLow)

	ok, err := s.tasks.UpdateStatus(s.ctx, task.ID, "alice", models.StatusDone)
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.tasks.GetByID(s.ctx, task.ID, "alice")
	s.Require().NoError(err)
	s.True(got.IsDone())

	ok, err = s.tasks.Delete(s.ctx, task.ID, "alice")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.tasks.Delete(s.ctx, task.ID, "alice")
	s.NoError(err)
	s.False(ok)

	_, err = s.tasks.GetByID(s.ctx, task.ID, "alice")
	s.ErrorIs(err, repositories.ErrNotFound)
}

func (s *RepositorySuite) TestStoreUnavailable() {
	s.Require().NoError(s.pool.Close())

	_, err := s.tasks.ListAll(s.ctx, "alice")
	s.ErrorIs(err, repositories.ErrStoreUnavailable)
}

func (s *RepositorySuite) TestOpenBreakerFailsFast() {
	cb := repositories.NewStoreBreaker(&breaker.Config{Name: "test", MaxFailures: 1, Timeout: time.Minute, HalfOpenMaxCalls: 1})
	tasks := repositories.NewTaskRepository(s.pool.DB, cb)

	_, err := tasks.GetByID(s.ctx, 999, "alice")
	s.ErrorIs(err, repositories.ErrNotFound)
	s.Equal(breaker.StateClosed, cb.GetState())

	cb.Execute(func() error { return errors.New("driver failure") })
	s.Equal(breaker.StateOpen, cb.GetState())

	_, err = tasks.ListAll(s.ctx, "alice")
	s.ErrorIs(err, repositories.ErrStoreUnavailable)
}

func (s *RepositorySuite) TestUserUpsert() {
	user, err := s.users.Upsert(s.ctx, "carol", "Carol", "Europe/Berlin")
	s.Require().NoError(err)
	s.NotZero(user.ID)
	s.Equal("Europe/Berlin", user.Timezone)

	again, err := s.users.Upsert(s.ctx, "carol", "Carol B.", "America/New_York")
	s.Require().NoError(err)
	s.Equal(user.ID, again.ID)
	s.Equal("Carol B.", again.DisplayName)
	s.Equal("Europe/Berlin", again.Timezone)

	ok, err := s.users.UpdateTimezone(s.ctx, "carol", "Asia/Tokyo")
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.users.GetByExternalID(s.ctx, "carol")
	s.Require().NoError(err)
	s.Equal("Asia/Tokyo", got.Timezone)

	_, err = s.users.GetByExternalID(s.ctx, "nobody")
	s.ErrorIs(err, repositories.ErrNotFound)
}
