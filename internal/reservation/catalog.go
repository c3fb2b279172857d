package reservation

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/repository"
)

// RegisterResourceRequest — новая площадка или событие текущего пользователя.
type RegisterResourceRequest struct {
	Kind        model.ResourceKind `json:"kind" validate:"required,oneof=venue event"`
	Name        string             `json:"name" validate:"required,max=255"`
	CapacityMin int                `json:"capacityMin" validate:"gte=1"`
	CapacityMax int                `json:"capacityMax" validate:"gtefield=CapacityMin"`
}

// Catalog — ресурсы владельца: регистрация, смена статуса и опубликованные
// расписания. Бронирование читает ресурсы через ResourceDirectory.
type Catalog struct {
	resources repository.ResourceRepository
	schedules repository.ScheduleRepository
	validate  *validator.Validate
	log       logrus.FieldLogger
}

func NewCatalog(resources repository.ResourceRepository, schedules repository.ScheduleRepository, log logrus.FieldLogger) *Catalog {
	return &Catalog{
		resources: resources,
		schedules: schedules,
		validate:  newValidator(),
		log:       log.WithField("component", "catalog"),
	}
}

// Register создаёт активный ресурс, владелец — текущий пользователь.
func (c *Catalog) Register(ctx context.Context, req RegisterResourceRequest) (*model.Resource, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(c.validate, req); err != nil {
		return nil, err
	}

	res := &model.Resource{
		Kind:        req.Kind,
		OwnerID:     userID,
		Name:        req.Name,
		CapacityMin: req.CapacityMin,
		CapacityMax: req.CapacityMax,
		Status:      model.ResourceStatusActive,
	}
	if err := c.resources.Create(ctx, res); err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"resource_id": res.ID, "owner_id": userID, "kind": res.Kind}).
		Info("resource registered")
	return res, nil
}

// SetStatus меняет статус ресурса. Новые брони принимаются только для active;
// уже существующие брони статус ресурса не трогает.
func (c *Catalog) SetStatus(ctx context.Context, id uuid.UUID, status model.ResourceStatus) (*model.Resource, error) {
	switch status {
	case model.ResourceStatusActive, model.ResourceStatusInactive, model.ResourceStatusMaintenance:
	default:
		return nil, apperror.New(apperror.KindInvalidRequest, "unknown resource status %q", status).
			WithField("status")
	}
	res, err := c.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.resources.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	res.Status = status
	c.log.WithFields(logrus.Fields{"resource_id": id, "status": status}).Info("resource status changed")
	return res, nil
}

// Mine — ресурсы текущего пользователя постранично.
func (c *Catalog) Mine(ctx context.Context, offset, limit int) (calendar.Page[model.Resource], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return calendar.Page[model.Resource]{}, err
	}
	offset, limit = calendar.NormalizeLimits(offset, limit)
	items, total, err := c.resources.ListByOwner(ctx, userID, limit, offset)
	if err != nil {
		return calendar.Page[model.Resource]{}, err
	}
	return calendar.NewPage(items, offset, limit, total), nil
}

// Schedules — правила публикации ресурса, новые первыми. Только для владельца.
func (c *Catalog) Schedules(ctx context.Context, id uuid.UUID) ([]model.Schedule, error) {
	if _, err := c.owned(ctx, id); err != nil {
		return nil, err
	}
	return c.schedules.ListByResource(ctx, id)
}

func (c *Catalog) owned(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.resources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.OwnerID != userID {
		return nil, permissionDenied("only the resource owner may do this")
	}
	return res, nil
}
