package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/model"
)

// ResourceRepository — каталог бронируемых ресурсов (площадки и события).
type ResourceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	Create(ctx context.Context, resource *model.Resource) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ResourceStatus) error
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Resource, int64, error)
}

type GormResourceRepository struct {
	db *gorm.DB
}

func NewGormResourceRepository(db *gorm.DB) *GormResourceRepository {
	return &GormResourceRepository{db: db}
}

func (r *GormResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	var res model.Resource
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("resource", id.String())
		}
		return nil, err
	}
	return &res, nil
}

func (r *GormResourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	if resource.ID == uuid.Nil {
		resource.ID = uuid.New()
	}
	if resource.Status == "" {
		resource.Status = model.ResourceStatusActive
	}
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *GormResourceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ResourceStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Resource{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("resource", id.String())
	}
	return nil
}

func (r *GormResourceRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Resource, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Resource{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var resources []model.Resource
	if err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&resources).Error; err != nil {
		return nil, 0, err
	}
	return resources, total, nil
}
