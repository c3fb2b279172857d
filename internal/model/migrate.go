package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей подсистемы бронирования.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Resource{},
		&Schedule{},
		&TimeSlot{},
		&Booking{},
		&Event{},
		&ProcessedMessage{},
	)
}
