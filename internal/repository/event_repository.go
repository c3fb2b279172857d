package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/reservation-platform/internal/model"
)

// EventRepository — журнал аудита.
type EventRepository interface {
	Append(ctx context.Context, eventType model.EventType, userID string, bookingID, resourceID *uuid.UUID, details any) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.Event, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Append(
	ctx context.Context,
	eventType model.EventType,
	userID string,
	bookingID, resourceID *uuid.UUID,
	details any,
) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	ev := model.Event{
		ID:         uuid.New(),
		EventType:  eventType,
		CreatedAt:  time.Now().UTC(),
		UserID:     userID,
		BookingID:  bookingID,
		ResourceID: resourceID,
		Details:    datatypes.JSON(raw),
	}
	return r.db.WithContext(ctx).Create(&ev).Error
}

func (r *GormEventRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MessageRepository хранит id обработанных сообщений брокера.
type MessageRepository interface {
	// Seen — сообщение уже применялось.
	Seen(ctx context.Context, id string) (bool, error)
	MarkProcessed(ctx context.Context, id, routingKey string) error
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Seen(ctx context.Context, id string) (bool, error) {
	var m model.ProcessedMessage
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (r *GormMessageRepository) MarkProcessed(ctx context.Context, id, routingKey string) error {
	return r.db.WithContext(ctx).
		Create(&model.ProcessedMessage{ID: id, RoutingKey: routingKey, ProcessedAt: time.Now().UTC()}).
		Error
}
