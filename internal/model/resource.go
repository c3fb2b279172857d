package model

import (
	"time"

	"github.com/google/uuid"
)

type ResourceKind string

const (
	ResourceKindVenue ResourceKind = "venue"
	ResourceKindEvent ResourceKind = "event"
)

type ResourceStatus string

const (
	ResourceStatusActive      ResourceStatus = "active"
	ResourceStatusInactive    ResourceStatus = "inactive"
	ResourceStatusMaintenance ResourceStatus = "maintenance"
)

// Resource — бронируемая сущность (площадка или событие).
// Принадлежит ровно одному владельцу через OwnerID.
type Resource struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Kind ResourceKind `gorm:"type:varchar(16);not null;index"`

	// Внешний идентификатор владельца из сервиса идентификации.
	OwnerID string `gorm:"type:varchar(64);not null;index"`

	Name string `gorm:"type:varchar(255);not null"`

	// Допустимое число участников [CapacityMin, CapacityMax].
	CapacityMin int `gorm:"not null;default:1"`
	CapacityMax int `gorm:"not null"`

	Status ResourceStatus `gorm:"type:varchar(16);not null;default:'active';index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Slots []TimeSlot `gorm:"foreignKey:ResourceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
