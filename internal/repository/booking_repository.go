package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/model"
)

// BookingFilter — параметры выборки броней. Пустые поля не фильтруют.
type BookingFilter struct {
	Statuses    []model.BookingStatus
	BookingType model.BookingType
	ResourceID  *uuid.UUID
	EventID     *uuid.UUID
	UserID      string
	// Бронь попадает в выборку, если её диапазон дат пересекается с [From, To].
	From string
	To   string
	// Только брони, закончившиеся не позже этой даты.
	EndsBy string

	Offset int
	Limit  int
}

// StatusAggregate — агрегат по статусу и валюте.
type StatusAggregate struct {
	Status   model.BookingStatus
	Currency string
	Count    int64
	Amount   int64
}

type BookingRepository interface {
	// Создать новое бронирование.
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Обновить изменяемые поля, если статус и версия не сдвинулись.
	Update(ctx context.Context, booking *model.Booking, expected model.BookingStatus) error
	// Страница броней по фильтру и общее количество.
	List(ctx context.Context, f BookingFilter) ([]model.Booking, int64, error)
	// Агрегаты по статусам для всех броней фильтра (без пагинации).
	Stats(ctx context.Context, f BookingFilter) ([]StatusAggregate, error)
}

// Колонки, которые можно менять после создания.
var bookingMutableColumns = []string{
	"start_date", "end_date", "start_time", "end_time",
	"attendee_count", "total_amount", "currency",
	"payment_status", "payment_id",
	"status", "contact_info", "notes",
	"confirmed_at", "cancelled_at", "completed_at", "cancel_reason",
	"version", "updated_at",
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.Version == 0 {
		booking.Version = 1
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("booking", id.String())
		}
		return nil, err
	}
	return &b, nil
}

// Update пишет только изменяемые колонки. Переход применяется, только если в базе
// бронь всё ещё в статусе expected и с той же версией; иначе InvalidTransition
// с текущим статусом. При успехе booking.Version увеличивается.
func (r *GormBookingRepository) Update(ctx context.Context, booking *model.Booking, expected model.BookingStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.Booking
		if err := tx.First(&cur, "id = ?", booking.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("booking", booking.ID.String())
			}
			return err
		}
		if err := checkImmutable(&cur, booking); err != nil {
			return err
		}
		if cur.Status != expected {
			return apperror.InvalidTransition(string(cur.Status), "update")
		}
		if cur.Version != booking.Version {
			return apperror.InvalidTransition(string(cur.Status), "update").WithField("version")
		}

		prev := booking.Version
		booking.Version = prev + 1
		booking.UpdatedAt = time.Now().UTC()

		res := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ? AND version = ?", booking.ID, expected, prev).
			Select(bookingMutableColumns).
			Updates(booking)
		if res.Error != nil {
			booking.Version = prev
			return res.Error
		}
		if res.RowsAffected != 1 {
			booking.Version = prev
			return apperror.InvalidTransition(string(cur.Status), "update").WithField("version")
		}
		return nil
	})
}

func checkImmutable(cur, next *model.Booking) error {
	immutable := func(field string) error {
		return (&apperror.Error{
			Kind:   apperror.KindImmutableField,
			Field:  field,
			Detail: fmt.Sprintf("%s cannot change after creation", field),
		})
	}
	switch {
	case cur.UserID != next.UserID:
		return immutable("userId")
	case cur.BookingType != next.BookingType:
		return immutable("bookingType")
	case !sameID(cur.ResourceID, next.ResourceID):
		return immutable("resourceId")
	case !sameID(cur.EventID, next.EventID):
		return immutable("eventId")
	}
	return nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *GormBookingRepository) scoped(ctx context.Context, f BookingFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Booking{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.BookingType != "" {
		q = q.Where("booking_type = ?", f.BookingType)
	}
	if f.ResourceID != nil {
		q = q.Where("resource_id = ?", *f.ResourceID)
	}
	if f.EventID != nil {
		q = q.Where("event_id = ?", *f.EventID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	// Даты хранятся как YYYY-MM-DD, поэтому строковое сравнение корректно.
	if f.From != "" {
		q = q.Where("end_date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("start_date <= ?", f.To)
	}
	if f.EndsBy != "" {
		q = q.Where("end_date <= ?", f.EndsBy)
	}
	return q
}

func (r *GormBookingRepository) List(ctx context.Context, f BookingFilter) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	q := r.scoped(ctx, f)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	if err := q.Order("created_at DESC").Order("id").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

func (r *GormBookingRepository) Stats(ctx context.Context, f BookingFilter) ([]StatusAggregate, error) {
	var rows []StatusAggregate
	err := r.scoped(ctx, f).
		Select("status, currency, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount").
		Group("status, currency").
		Order("status, currency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
