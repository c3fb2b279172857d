package model

import (
	"time"

	"github.com/google/uuid"
)

// time_slots — опубликованные слоты ресурса на дату.
// Слот недоступен тогда и только тогда, когда на него ссылается активная бронь.
type TimeSlot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ResourceID uuid.UUID  `gorm:"type:uuid;not null;index:idx_time_slots_resource_date,priority:1"`
	ScheduleID *uuid.UUID `gorm:"type:uuid;index"`

	Date      string `gorm:"type:varchar(10);not null;index:idx_time_slots_resource_date,priority:2"`
	StartTime string `gorm:"type:varchar(5);not null"`
	EndTime   string `gorm:"type:varchar(5);not null"`

	Available bool       `gorm:"not null;default:true"`
	BookingID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
