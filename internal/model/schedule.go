package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScheduleRule — параметры публикации слотов, хранится как JSON.
type ScheduleRule struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	SlotMinutes int    `json:"slot_minutes"`
	Weekdays    []int  `json:"weekdays,omitempty"`
	Interval    int    `json:"interval,omitempty"`
	// Даты, пропущенные при публикации.
	Except []string `json:"except,omitempty"`
}

// schedules
type Schedule struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ResourceID uuid.UUID `gorm:"type:uuid;not null;index"`

	StartDate string `gorm:"type:varchar(10);not null"`
	EndDate   string `gorm:"type:varchar(10);not null"`

	Rule datatypes.JSONType[ScheduleRule]

	CreatedAt time.Time
	UpdatedAt time.Time
}
