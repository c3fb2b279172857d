package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/model"
)

// SlotPlanner получает слоты даты (по возрастанию начала) и возвращает id слотов,
// которые нужно занять, или бизнес-ошибку.
type SlotPlanner func(slots []model.TimeSlot) ([]uuid.UUID, error)

// SlotLayout получает уже опубликованные слоты даты и возвращает новые слоты
// этой даты или бизнес-ошибку.
type SlotLayout func(date string, existing []model.TimeSlot) ([]model.TimeSlot, error)

type SlotRepository interface {
	// Слоты ресурса за диапазон дат [from, to], по дате и началу.
	ListByRange(ctx context.Context, resourceID uuid.UUID, from, to string) ([]model.TimeSlot, error)
	// Слоты ресурса на дату.
	ListByDate(ctx context.Context, resourceID uuid.UUID, date string) ([]model.TimeSlot, error)
	// Атомарно записать расписание и слоты дат, разложенные layout.
	Publish(ctx context.Context, schedule *model.Schedule, dates []string, layout SlotLayout) ([]model.TimeSlot, error)
	// Атомарно занять слоты даты, выбранные planner, за бронью bookingID.
	// Возвращает все занятые слоты и те, что были свободны до вызова.
	Acquire(ctx context.Context, resourceID uuid.UUID, date string, bookingID uuid.UUID, plan SlotPlanner) (held, acquired []uuid.UUID, err error)
	// Освободить слоты по id, если они заняты bookingID.
	ReleaseIDs(ctx context.Context, bookingID uuid.UUID, ids []uuid.UUID) (int64, error)
	// Освободить слоты даты по id без проверки владельца.
	ReleaseSlots(ctx context.Context, ids []uuid.UUID) (int64, error)
	// Освободить все слоты брони, кроме keep.
	ReleaseBookingExcept(ctx context.Context, bookingID uuid.UUID, keep []uuid.UUID) (int64, error)
	// Слоты, которые держит бронь.
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.TimeSlot, error)
	// Удалить свободные слоты ресурса за диапазон дат.
	DeleteFree(ctx context.Context, resourceID uuid.UUID, from, to string) (int64, error)
}

type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

func (r *GormSlotRepository) ListByRange(ctx context.Context, resourceID uuid.UUID, from, to string) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) ListByDate(ctx context.Context, resourceID uuid.UUID, date string) ([]model.TimeSlot, error) {
	return r.ListByRange(ctx, resourceID, date, date)
}

// Publish держит строку ресурса под FOR UPDATE до конца транзакции, поэтому
// публикации одного ресурса идут по очереди и layout видит слоты, записанные
// предыдущей. Ошибка layout откатывает расписание и все даты.
func (r *GormSlotRepository) Publish(
	ctx context.Context,
	schedule *model.Schedule,
	dates []string,
	layout SlotLayout,
) ([]model.TimeSlot, error) {
	var created []model.TimeSlot

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []model.Resource
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", schedule.ResourceID).
			Limit(1).
			Find(&locked).Error
		if err != nil {
			return err
		}

		created = created[:0]
		for _, date := range dates {
			var existing []model.TimeSlot
			err := tx.Where("resource_id = ? AND date = ?", schedule.ResourceID, date).
				Order("start_time ASC").
				Find(&existing).Error
			if err != nil {
				return err
			}
			slots, err := layout(date, existing)
			if err != nil {
				return err
			}
			created = append(created, slots...)
		}

		if schedule.ID == uuid.Nil {
			schedule.ID = uuid.New()
		}
		if err := tx.Create(schedule).Error; err != nil {
			return err
		}
		if len(created) == 0 {
			return nil
		}
		for i := range created {
			if created[i].ID == uuid.Nil {
				created[i].ID = uuid.New()
			}
			created[i].ScheduleID = &schedule.ID
		}
		return tx.CreateInBatches(created, 200).Error
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Acquire — единственная точка, где слот становится занятым. Чтение и
// compare-and-set выполняются в одной транзакции; UPDATE затрагивает строку,
// только если она свободна или уже принадлежит этой же брони. Если затронуто
// меньше строк, чем выбрано, кто-то успел раньше — SlotConflict, откат.
func (r *GormSlotRepository) Acquire(
	ctx context.Context,
	resourceID uuid.UUID,
	date string,
	bookingID uuid.UUID,
	plan SlotPlanner,
) ([]uuid.UUID, []uuid.UUID, error) {
	var held, acquired []uuid.UUID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slots []model.TimeSlot
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("resource_id = ? AND date = ?", resourceID, date).
			Order("start_time ASC").
			Find(&slots).Error
		if err != nil {
			return err
		}

		ids, err := plan(slots)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return apperror.ErrSlotNotFound.WithDate(date)
		}

		want := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			want[id] = struct{}{}
		}
		acquired = acquired[:0]
		for _, s := range slots {
			if _, ok := want[s.ID]; ok && s.Available {
				acquired = append(acquired, s.ID)
			}
		}

		res := tx.Model(&model.TimeSlot{}).
			Where("id IN ?", ids).
			Where("(available = ? OR booking_id = ?)", true, bookingID).
			Updates(map[string]any{
				"available":  false,
				"booking_id": bookingID,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return apperror.ErrSlotConflict.WithDate(date)
		}
		held = ids
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return held, acquired, nil
}

func (r *GormSlotRepository) ReleaseIDs(ctx context.Context, bookingID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("id IN ? AND booking_id = ?", ids, bookingID).
		Updates(releasedColumns())
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) ReleaseSlots(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("id IN ? AND available = ?", ids, false).
		Updates(releasedColumns())
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) ReleaseBookingExcept(ctx context.Context, bookingID uuid.UUID, keep []uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("booking_id = ?", bookingID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	res := q.Updates(releasedColumns())
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("date ASC").
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) DeleteFree(ctx context.Context, resourceID uuid.UUID, from, to string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("resource_id = ? AND date >= ? AND date <= ? AND available = ?", resourceID, from, to, true).
		Delete(&model.TimeSlot{})
	return res.RowsAffected, res.Error
}

func releasedColumns() map[string]any {
	return map[string]any{
		"available":  true,
		"booking_id": nil,
		"updated_at": time.Now().UTC(),
	}
}
