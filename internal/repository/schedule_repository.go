package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/reservation-platform/internal/model"
)

// Расписания пишутся вместе со слотами в SlotRepository.Publish.
type ScheduleRepository interface {
	// ListByResource возвращает расписания ресурса.
	ListByResource(ctx context.Context, resourceID uuid.UUID) ([]model.Schedule, error)
}

type GormScheduleRepository struct {
	db *gorm.DB
}

func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

func (r *GormScheduleRepository) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("created_at DESC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}
