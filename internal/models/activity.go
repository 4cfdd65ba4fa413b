package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is the admin-facing audit feed. Lifecycle transitions and catalog maintenance write here.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   string            `gorm:"size:64" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Inquiry is a lead captured by one of the public consultation forms.
type Inquiry struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ReferenceID string     `gorm:"size:64;uniqueIndex" json:"reference_id"`
	Name        string     `gorm:"size:128;not null" json:"name"`
	Email       string     `gorm:"size:160;not null" json:"email"`
	Phone       string     `gorm:"size:32" json:"phone"`
	Interest    string     `gorm:"size:32;not null" json:"interest"`
	EntityKind  string     `gorm:"size:32" json:"entity_kind"`
	EntityID    string     `gorm:"size:64" json:"entity_id"`
	Message     string     `gorm:"type:text" json:"message"`
	Status      string     `gorm:"size:32;not null" json:"status"`
	Checksum    string     `gorm:"size:128;index" json:"checksum"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}
