package model

import "time"

// Preference is one persisted key-value pair, scoped to a client.
type Preference struct {
	Scope     string    `gorm:"primaryKey;size:128"`
	Key       string    `gorm:"primaryKey;size:128"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
