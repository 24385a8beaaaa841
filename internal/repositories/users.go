package repositories

import (
	"context"

	"taskbot/internal/breaker"
	"taskbot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db      *gorm.DB
	breaker *breaker.CircuitBreaker
}

func NewUserRepository(db *gorm.DB, cb *breaker.CircuitBreaker) *UserRepository {
	return &UserRepository{db: db, breaker: cb}
}

// Upsert creates the user on first contact with the given timezone and keeps
// the display name current afterwards. An existing timezone is never replaced.
func (r *UserRepository) Upsert(ctx context.Context, externalID, displayName, timezone string) (*models.User, error) {
	var user models.User
	err := guard(r.breaker, func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			candidate := models.User{
				ExternalID:  externalID,
				DisplayName: displayName,
				Timezone:    timezone,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "external_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"display_name"}),
			}).Create(&candidate).Error
			if err != nil {
				return err
			}
			return tx.Where("external_id = ?", externalID).First(&user).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	err := guard(r.breaker, func() error {
		return r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateTimezone(ctx context.Context, externalID, timezone string) (bool, error) {
	var affected int64
	err := guard(r.breaker, func() error {
		res := r.db.WithContext(ctx).Model(&models.User{}).
			Where("external_id = ?", externalID).
			Update("timezone", timezone)
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}
