package models

import (
	"errors"
	"time"
)

var ErrInvalidPriority = errors.New("priority must be low, medium or high")

type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Priorities lists the valid levels from highest to lowest.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func ParsePriority(level int) (Priority, error) {
	p := Priority(level)
	if !p.Valid() {
		return 0, ErrInvalidPriority
	}
	return p, nil
}

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return "Unknown"
}

func (p Priority) Emoji() string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityMedium:
		return "🟡"
	}
	return "🟢"
}

type Status int

const (
	StatusActive Status = 0
	StatusDone   Status = 1
)

func (s Status) Label() string {
	if s == StatusDone {
		return "Done"
	}
	return "Active"
}

// MaxBodyLength bounds the task text, counted in runes.
const MaxBodyLength = 4096

type Task struct {
	ID        uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	Body      string     `json:"body" gorm:"size:4096;not null"`
	Deadline  *time.Time `json:"deadline,omitempty" gorm:"index"`
	Priority  Priority   `json:"priority" gorm:"not null"`
	Status    Status     `json:"status" gorm:"not null;default:0"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime:false"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (t *Task) HasDeadline() bool {
	return t.Deadline != nil
}

func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}
