package models

import "time"

type User struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalID  string    `json:"external_id" gorm:"size:64;uniqueIndex;not null"`
	DisplayName string    `json:"display_name" gorm:"size:255;not null"`
	Timezone    string    `json:"timezone" gorm:"size:64;not null"`
	CreatedAt   time.Time `json:"created_at"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:UserID"`
}

// All returns the models managed by migrations, parents first.
func All() []interface{} {
	return []interface{}{&User{}, &Task{}}
}
