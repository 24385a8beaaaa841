package repositories

import (
	"errors"
	"fmt"

	"taskbot/internal/breaker"
	"taskbot/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidBody      = fmt.Errorf("task text must be between 1 and %d characters", models.MaxBodyLength)
	ErrInvalidPriority  = models.ErrInvalidPriority
)

// NewStoreBreaker returns a breaker that treats missing rows as healthy calls.
func NewStoreBreaker(config *breaker.Config) *breaker.CircuitBreaker {
	if config == nil {
		config = breaker.DefaultConfig("store")
	}
	config.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
	}
	return breaker.New(config)
}

func guard(cb *breaker.CircuitBreaker, fn func() error) error {
	var err error
	if cb == nil {
		err = fn()
	} else {
		err = cb.Execute(fn)
	}
	return translate(err)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrInvalidBody), errors.Is(err, ErrInvalidPriority):
		return err
	case errors.Is(err, breaker.ErrOpen):
		return ErrStoreUnavailable
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
