package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Тип события аудита.
type EventType string

const (
	EventTypeBookingCreated        EventType = "booking_created"
	EventTypeBookingUpdated        EventType = "booking_updated"
	EventTypeBookingConfirmed      EventType = "booking_confirmed"
	EventTypeBookingCancelled      EventType = "booking_cancelled"
	EventTypeBookingCompleted      EventType = "booking_completed"
	EventTypePaymentRecorded       EventType = "payment_recorded"
	EventTypeAvailabilityPublished EventType = "availability_published"
)

// events — события аудита
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	UserID     string     `gorm:"type:varchar(64);index"`
	BookingID  *uuid.UUID `gorm:"type:uuid;index"`
	ResourceID *uuid.UUID `gorm:"type:uuid;index"`

	Details datatypes.JSON
}

// processed_messages — входящие сообщения брокера, уже применённые к броням.
type ProcessedMessage struct {
	ID          string `gorm:"type:varchar(128);primaryKey"`
	RoutingKey  string `gorm:"type:varchar(64);not null;index"`
	ProcessedAt time.Time
}
