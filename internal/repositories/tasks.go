package repositories

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"taskbot/internal/breaker"
	"taskbot/internal/models"

	"gorm.io/gorm"
)

const (
	orderByPriority = "priority DESC, created_at DESC, id DESC"
	orderByCreated  = "created_at DESC, id DESC"
)

// TaskPatch lists the fields to change. Nil fields are left untouched.
type TaskPatch struct {
	Body          *string
	Deadline      *time.Time
	ClearDeadline bool
	Priority      *models.Priority
}

// TaskRepository scopes every statement to the owning user's external id.
type TaskRepository struct {
	db      *gorm.DB
	breaker *breaker.CircuitBreaker
	now     func() time.Time
}

func NewTaskRepository(db *gorm.DB, cb *breaker.CircuitBreaker) *TaskRepository {
	return &TaskRepository{db: db, breaker: cb, now: time.Now}
}

// WithClock replaces the clock used for created_at and updated_at.
func (r *TaskRepository) WithClock(now func() time.Time) *TaskRepository {
	r.now = now
	return r
}

func (r *TaskRepository) ownerID(db *gorm.DB, owner string) *gorm.DB {
	return db.Model(&models.User{}).Select("id").Where("external_id = ?", owner)
}

func (r *TaskRepository) owned(ctx context.Context, owner string) *gorm.DB {
	db := r.db.WithContext(ctx)
	return db.Model(&models.Task{}).Where("user_id = (?)", r.ownerID(db, owner))
}

func ValidateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > models.MaxBodyLength {
		return "", ErrInvalidBody
	}
	return body, nil
}

func (r *TaskRepository) Create(ctx context.Context, owner, body string, deadline *time.Time, priority models.Priority) (*models.Task, error) {
	body, err := ValidateBody(body)
	if err != nil {
		return nil, err
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	now := r.now().UTC()
	task := models.Task{
		Body:      body,
		Deadline:  utc(deadline),
		Priority:  priority,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = guard(r.breaker, func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var user models.User
			if err := tx.Where("external_id = ?", owner).First(&user).Error; err != nil {
				return err
			}
			task.UserID = user.ID
			return tx.Omit("User").Create(&task).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) ListAll(ctx context.Context, owner string) ([]models.Task, error) {
	var tasks []models.Task
	err := guard(r.breaker, func() error {
		return r.owned(ctx, owner).Order(orderByPriority).Find(&tasks).Error
	})
	return tasks, err
}

// ListDueWithinDay returns tasks due on the calendar day of ref, in ref's location.
func (r *TaskRepository) ListDueWithinDay(ctx context.Context, owner string, ref time.Time) ([]models.Task, error) {
	start := startOfDay(ref)
	return r.listDueBetween(ctx, owner, start, start.AddDate(0, 0, 1))
}

// ListDueWithinWeek returns tasks due from the start of ref's day through the
// end of the seventh day after it.
func (r *TaskRepository) ListDueWithinWeek(ctx context.Context, owner string, ref time.Time) ([]models.Task, error) {
	start := startOfDay(ref)
	return r.listDueBetween(ctx, owner, start, start.AddDate(0, 0, 8))
}

func (r *TaskRepository) listDueBetween(ctx context.Context, owner string, from, to time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := guard(r.breaker, func() error {
		return r.owned(ctx, owner).
			Where("deadline IS NOT NULL AND deadline >= ? AND deadline < ?", from.UTC(), to.UTC()).
			Order(orderByPriority).
			Find(&tasks).Error
	})
	return tasks, err
}

func (r *TaskRepository) ListByPriority(ctx context.Context, owner string, priority models.Priority) ([]models.Task, error) {
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}
	var tasks []models.Task
	err := guard(r.breaker, func() error {
		return r.owned(ctx, owner).Where("priority = ?", priority).Order(orderByCreated).Find(&tasks).Error
	})
	return tasks, err
}

func (r *TaskRepository) GetByID(ctx context.Context, id uint, owner string) (*models.Task, error) {
	var task models.Task
	err := guard(r.breaker, func() error {
		return r.owned(ctx, owner).Where("id = ?", id).First(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id uint, owner string, status models.Status) (bool, error) {
	return r.update(ctx, id, owner, map[string]interface{}{"status": status})
}

func (r *TaskRepository) UpdateFields(ctx context.Context, id uint, owner string, patch TaskPatch) (bool, error) {
	values := map[string]interface{}{}
	if patch.Body != nil {
		body, err := ValidateBody(*patch.Body)
		if err != nil {
			return false, err
		}
		values["body"] = body
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return false, ErrInvalidPriority
		}
		values["priority"] = *patch.Priority
	}
	switch {
	case patch.ClearDeadline:
		values["deadline"] = nil
	case patch.Deadline != nil:
		values["deadline"] = patch.Deadline.UTC()
	}
	return r.update(ctx, id, owner, values)
}

func (r *TaskRepository) update(ctx context.Context, id uint, owner string, values map[string]interface{}) (bool, error) {
	values["updated_at"] = r.now().UTC()

	var affected int64
	err := guard(r.breaker, func() error {
		res := r.owned(ctx, owner).Where("id = ?", id).Updates(values)
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}

func (r *TaskRepository) Delete(ctx context.Context, id uint, owner string) (bool, error) {
	var affected int64
	err := guard(r.breaker, func() error {
		db := r.db.WithContext(ctx)
		res := db.Where("id = ? AND user_id = (?)", id, r.ownerID(db, owner)).Delete(&models.Task{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
