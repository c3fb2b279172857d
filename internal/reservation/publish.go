package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/availability"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/model"
)

// PublishInput — запрос на публикацию слотов в транспортном виде.
type PublishInput struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	SlotMinutes int    `json:"slotMinutes"`
	// 0 — воскресенье, как в time.Weekday.
	Weekdays []int `json:"weekdays,omitempty"`
	Interval int   `json:"interval,omitempty"`
	// Даты YYYY-MM-DD внутри диапазона, которые пропускаются.
	ExceptDates []string `json:"exceptDates,omitempty"`
}

// Parse разбирает даты, окно и правило повторения.
func (in PublishInput) Parse() (availability.PublishRequest, error) {
	r, err := calendar.ParseDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return availability.PublishRequest{}, apperror.New(apperror.KindInvalidDateRange, "%v", err).WithField("endDate")
	}
	w, err := calendar.ParseWindow(in.StartTime, in.EndTime)
	if err != nil {
		return availability.PublishRequest{}, apperror.New(apperror.KindInvalidDateRange, "%v", err).WithField("endTime")
	}
	if in.SlotMinutes <= 0 {
		return availability.PublishRequest{}, apperror.New(apperror.KindInvalidRequest, "slotMinutes must be positive").
			WithField("slotMinutes")
	}
	if in.Interval < 0 {
		return availability.PublishRequest{}, apperror.New(apperror.KindInvalidRequest, "interval must not be negative").
			WithField("interval")
	}
	weekdays := make([]time.Weekday, 0, len(in.Weekdays))
	for _, d := range in.Weekdays {
		if d < 0 || d > 6 {
			return availability.PublishRequest{}, apperror.New(apperror.KindInvalidRequest, "weekday %d out of range 0..6", d).
				WithField("weekdays")
		}
		weekdays = append(weekdays, time.Weekday(d))
	}
	except := make([]calendar.Date, 0, len(in.ExceptDates))
	for _, raw := range in.ExceptDates {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			return availability.PublishRequest{}, apperror.New(apperror.KindInvalidRequest, "%v", err).
				WithField("exceptDates")
		}
		except = append(except, d)
	}
	return availability.PublishRequest{
		Range:      r,
		Window:     w,
		SlotLength: time.Duration(in.SlotMinutes) * time.Minute,
		Weekdays:   weekdays,
		Interval:   in.Interval,
		Except:     except,
	}, nil
}

// PublishAvailability публикует слоты ресурса. Доступно только владельцу.
func (e *Engine) PublishAvailability(ctx context.Context, resourceID uuid.UUID, req availability.PublishRequest) ([]model.TimeSlot, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.publish_availability")
	slots, err := e.publish(ctx, resourceID, req)
	endSpan(span, err)
	return slots, err
}

func (e *Engine) publish(ctx context.Context, resourceID uuid.UUID, req availability.PublishRequest) ([]model.TimeSlot, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	res, err := e.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res.OwnerID != userID {
		return nil, permissionDenied("only the resource owner may publish availability")
	}
	today := e.today()
	if req.Range.End.Before(today) {
		return nil, apperror.New(apperror.KindInvalidDateRange, "range %s is in the past", req.Range).
			WithField("endDate")
	}

	slots, err := e.index.Publish(ctx, res.ID, req)
	if err != nil {
		return nil, err
	}

	if err := e.audit.Append(ctx, model.EventTypeAvailabilityPublished, userID, nil, &res.ID, map[string]any{
		"range":  req.Range.String(),
		"window": req.Window.String(),
		"slots":  len(slots),
	}); err != nil {
		e.log.WithField("resource_id", res.ID).WithError(err).Error("append audit event")
	}
	return slots, nil
}

// UnpublishAvailability снимает свободные слоты ресурса за диапазон.
func (e *Engine) UnpublishAvailability(ctx context.Context, resourceID uuid.UUID, r calendar.DateRange) (int64, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return 0, err
	}
	res, err := e.resources.GetByID(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	if res.OwnerID != userID {
		return 0, permissionDenied("only the resource owner may withdraw availability")
	}
	return e.index.Unpublish(ctx, res.ID, r)
}
