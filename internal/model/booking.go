package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Active — бронь удерживает слоты.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// Terminal — переходы из статуса запрещены.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

// BookingType различает цель брони: площадка или событие.
type BookingType string

const (
	BookingTypeVenue BookingType = "venue"
	BookingTypeEvent BookingType = "event"
)

func (t BookingType) Valid() bool {
	return t == BookingTypeVenue || t == BookingTypeEvent
}

// ContactInfo — снимок контактов на момент создания брони.
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// bookings
type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	BookingType BookingType `gorm:"type:varchar(16);not null"`
	// Ровно одна из ссылок заполнена — по BookingType.
	ResourceID *uuid.UUID `gorm:"type:uuid;index:idx_bookings_resource_status,priority:1"`
	EventID    *uuid.UUID `gorm:"type:uuid;index:idx_bookings_event_status,priority:1"`
	UserID     string     `gorm:"type:varchar(64);not null;index"`

	// Даты YYYY-MM-DD, время HH:MM — окно применяется к каждой дате диапазона.
	StartDate string `gorm:"type:varchar(10);not null;index"`
	EndDate   string `gorm:"type:varchar(10);not null;index"`
	StartTime string `gorm:"type:varchar(5);not null"`
	EndTime   string `gorm:"type:varchar(5);not null"`

	AttendeeCount int    `gorm:"not null"`
	TotalAmount   int64  `gorm:"not null;default:0"` // в минорных единицах
	Currency      string `gorm:"type:varchar(3);not null"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(16);not null"`
	PaymentID     string        `gorm:"type:varchar(128)"`

	Status BookingStatus `gorm:"type:varchar(32);not null;index:idx_bookings_resource_status,priority:2;index:idx_bookings_event_status,priority:2"`

	ContactInfo datatypes.JSONType[ContactInfo]
	Notes       string `gorm:"type:text"`

	CreatedAt    time.Time
	UpdatedAt    time.Time
	ConfirmedAt  *time.Time
	CancelledAt  *time.Time
	CompletedAt  *time.Time
	CancelReason string `gorm:"type:text"`

	// Версия для оптимистичной блокировки переходов.
	Version int `gorm:"not null;default:1"`
}

// TargetID возвращает id площадки или события, на которое оформлена бронь.
func (b *Booking) TargetID() uuid.UUID {
	if b.BookingType == BookingTypeEvent && b.EventID != nil {
		return *b.EventID
	}
	if b.ResourceID != nil {
		return *b.ResourceID
	}
	return uuid.Nil
}
