// Package availability хранит опубликованные слоты ресурсов и является
// единственной точкой, где слот становится занятым или свободным.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/repository"
)

// TimeSlot — слот на чтение.
type TimeSlot struct {
	ID        uuid.UUID
	Window    calendar.Window
	Available bool
	BookingID *uuid.UUID
}

// AvailabilitySlot — все слоты ресурса на одну дату, по возрастанию начала.
type AvailabilitySlot struct {
	ResourceID uuid.UUID
	Date       calendar.Date
	Slots      []TimeSlot
}

// Hold — результат резервирования окна на одну дату.
type Hold struct {
	ResourceID uuid.UUID
	Date       calendar.Date
	Window     calendar.Window
	// Held — все слоты, которые теперь держит бронь.
	Held []uuid.UUID
	// Acquired — те из Held, что были свободны до вызова. Только их
	// можно освобождать при компенсации.
	Acquired []uuid.UUID
}

type Index struct {
	slots  repository.SlotRepository
	log    logrus.FieldLogger
	tracer trace.Tracer
}

func NewIndex(slots repository.SlotRepository, log logrus.FieldLogger) *Index {
	return &Index{
		slots:  slots,
		log:    log.WithField("component", "availability"),
		tracer: otel.Tracer("reservation/availability"),
	}
}

// GetAvailability возвращает по записи на каждую дату диапазона, для которой
// опубликованы слоты. Даты без слотов пропускаются: это "нет данных", а не отказ.
func (x *Index) GetAvailability(ctx context.Context, resourceID uuid.UUID, r calendar.DateRange) ([]AvailabilitySlot, error) {
	ctx, span := x.tracer.Start(ctx, "availability.get",
		trace.WithAttributes(
			attribute.String("resource.id", resourceID.String()),
			attribute.String("date.range", r.String()),
		))
	defer span.End()

	rows, err := x.slots.ListByRange(ctx, resourceID, r.Start.String(), r.End.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list slots: %w", err)
	}

	var out []AvailabilitySlot
	for _, row := range rows {
		d, err := calendar.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", row.ID, err)
		}
		w, err := calendar.ParseWindow(row.StartTime, row.EndTime)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", row.ID, err)
		}
		if n := len(out); n == 0 || !out[n-1].Date.Equal(d) {
			out = append(out, AvailabilitySlot{ResourceID: resourceID, Date: d})
		}
		last := &out[len(out)-1]
		last.Slots = append(last.Slots, TimeSlot{
			ID:        row.ID,
			Window:    w,
			Available: row.Available,
			BookingID: row.BookingID,
		})
	}
	return out, nil
}

// ReserveSlot занимает за бронью все слоты даты, пересекающиеся с окном.
// Слоты должны покрывать окно без пропусков (иначе SlotNotFound) и быть
// свободны либо уже принадлежать этой брони (иначе SlotConflict).
func (x *Index) ReserveSlot(
	ctx context.Context,
	resourceID uuid.UUID,
	date calendar.Date,
	w calendar.Window,
	bookingID uuid.UUID,
) (Hold, error) {
	ctx, span := x.tracer.Start(ctx, "availability.reserve_slot",
		trace.WithAttributes(
			attribute.String("resource.id", resourceID.String()),
			attribute.String("booking.id", bookingID.String()),
			attribute.String("date", date.String()),
			attribute.String("window", w.String()),
		))
	defer span.End()

	held, acquired, err := x.slots.Acquire(ctx, resourceID, date.String(), bookingID, planWindow(date, w, bookingID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Hold{}, err
	}

	span.SetAttributes(attribute.Int("slots.held", len(held)))
	return Hold{
		ResourceID: resourceID,
		Date:       date,
		Window:     w,
		Held:       held,
		Acquired:   acquired,
	}, nil
}

// planWindow выбирает слоты даты под окно w.
func planWindow(date calendar.Date, w calendar.Window, bookingID uuid.UUID) repository.SlotPlanner {
	return func(slots []model.TimeSlot) ([]uuid.UUID, error) {
		var (
			ids     []uuid.UUID
			windows []calendar.Window
		)
		for _, s := range slots {
			sw, err := calendar.ParseWindow(s.StartTime, s.EndTime)
			if err != nil {
				return nil, fmt.Errorf("slot %s: %w", s.ID, err)
			}
			if !sw.Overlaps(w) {
				continue
			}
			if !s.Available && (s.BookingID == nil || *s.BookingID != bookingID) {
				return nil, apperror.New(apperror.KindSlotConflict, "slot %s is held by another booking", calendar.FormatSlot(date, sw)).
					WithDate(date.String())
			}
			ids = append(ids, s.ID)
			windows = append(windows, sw)
		}
		calendar.SortWindows(windows)
		if len(ids) == 0 || !calendar.Covers(windows, w) {
			return nil, apperror.New(apperror.KindSlotNotFound, "no published slots cover %s", w).
				WithDate(date.String())
		}
		return ids, nil
	}
}

// ReleaseSlot освобождает слоты даты, пересекающиеся с окном. Повторный вызов
// ничего не меняет.
func (x *Index) ReleaseSlot(ctx context.Context, resourceID uuid.UUID, date calendar.Date, w calendar.Window) error {
	ctx, span := x.tracer.Start(ctx, "availability.release_slot",
		trace.WithAttributes(
			attribute.String("resource.id", resourceID.String()),
			attribute.String("date", date.String()),
			attribute.String("window", w.String()),
		))
	defer span.End()

	rows, err := x.slots.ListByDate(ctx, resourceID, date.String())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("list slots: %w", err)
	}

	var ids []uuid.UUID
	for _, s := range rows {
		if s.Available {
			continue
		}
		sw, err := calendar.ParseWindow(s.StartTime, s.EndTime)
		if err != nil {
			return fmt.Errorf("slot %s: %w", s.ID, err)
		}
		if sw.Overlaps(w) {
			ids = append(ids, s.ID)
		}
	}

	n, err := x.slots.ReleaseSlots(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("release slots: %w", err)
	}
	span.SetAttributes(attribute.Int64("slots.released", n))
	return nil
}

// ReserveRange резервирует окно на каждую дату диапазона: либо все даты, либо
// ни одной. При отказе на какой-то дате уже захваченные слоты освобождаются
// до возврата ошибки.
func (x *Index) ReserveRange(
	ctx context.Context,
	resourceID uuid.UUID,
	r calendar.DateRange,
	w calendar.Window,
	bookingID uuid.UUID,
) ([]Hold, error) {
	ctx, span := x.tracer.Start(ctx, "availability.reserve_range",
		trace.WithAttributes(
			attribute.String("resource.id", resourceID.String()),
			attribute.String("booking.id", bookingID.String()),
			attribute.String("date.range", r.String()),
			attribute.String("window", w.String()),
		))
	defer span.End()

	holds := make([]Hold, 0, r.Len())
	for _, d := range r.Days() {
		h, err := x.ReserveSlot(ctx, resourceID, d, w, bookingID)
		if err != nil {
			// Компенсация должна пройти даже при отменённом контексте запроса.
			if relErr := x.ReleaseHolds(context.WithoutCancel(ctx), bookingID, holds); relErr != nil {
				x.log.WithFields(logrus.Fields{
					"booking_id":  bookingID,
					"resource_id": resourceID,
					"date":        d.String(),
				}).WithError(relErr).Error("compensating release failed")
				span.RecordError(relErr)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, nil
}

// ReleaseHolds освобождает слоты, захваченные этими holds. Слоты, которые
// бронь держала ещё до резервирования, не трогаются.
func (x *Index) ReleaseHolds(ctx context.Context, bookingID uuid.UUID, holds []Hold) error {
	var ids []uuid.UUID
	for _, h := range holds {
		ids = append(ids, h.Acquired...)
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := x.slots.ReleaseIDs(ctx, bookingID, ids); err != nil {
		return fmt.Errorf("release holds: %w", err)
	}
	return nil
}

// ReleaseBookingExcept освобождает все слоты брони, кроме удерживаемых holds.
func (x *Index) ReleaseBookingExcept(ctx context.Context, bookingID uuid.UUID, keep []Hold) (int64, error) {
	var ids []uuid.UUID
	for _, h := range keep {
		ids = append(ids, h.Held...)
	}
	n, err := x.slots.ReleaseBookingExcept(ctx, bookingID, ids)
	if err != nil {
		return 0, fmt.Errorf("release booking slots: %w", err)
	}
	return n, nil
}

// ReleaseBooking освобождает все слоты брони.
func (x *Index) ReleaseBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	return x.ReleaseBookingExcept(ctx, bookingID, nil)
}

// HeldBy возвращает слоты, которые держит бронь.
func (x *Index) HeldBy(ctx context.Context, bookingID uuid.UUID) ([]model.TimeSlot, error) {
	return x.slots.ListByBooking(ctx, bookingID)
}

// PublishRequest — параметры публикации слотов.
type PublishRequest struct {
	Range      calendar.DateRange
	Window     calendar.Window
	SlotLength time.Duration
	// Пусто — каждый день (с шагом Interval дней). Иначе — указанные дни
	// недели, каждые Interval недель.
	Weekdays []time.Weekday
	Interval int
	// Даты, на которые слоты не публикуются.
	Except []calendar.Date
}

// Publish нарезает окно на слоты фиксированной длины и публикует их на даты
// диапазона. Новые слоты не должны пересекаться с уже опубликованными.
func (x *Index) Publish(ctx context.Context, resourceID uuid.UUID, req PublishRequest) ([]model.TimeSlot, error) {
	ctx, span := x.tracer.Start(ctx, "availability.publish",
		trace.WithAttributes(
			attribute.String("resource.id", resourceID.String()),
			attribute.String("date.range", req.Range.String()),
			attribute.String("window", req.Window.String()),
		))
	defer span.End()

	windows, err := calendar.SplitToTimeSlots(req.Window, req.SlotLength, 0)
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidRequest, "%v", err).WithField("slotMinutes")
	}
	if len(windows) == 0 {
		return nil, apperror.New(apperror.KindInvalidRequest, "window %s is shorter than one slot", req.Window).
			WithField("slotMinutes")
	}

	rule := calendar.RecurringRule{Freq: calendar.FreqDaily, Interval: req.Interval}
	if len(req.Weekdays) > 0 {
		rule.Freq = calendar.FreqWeekly
		rule.Weekdays = req.Weekdays
	}
	except := make([]string, 0, len(req.Except))
	if len(req.Except) > 0 {
		rule.Exceptions = make(map[calendar.Date]struct{}, len(req.Except))
		for _, d := range req.Except {
			rule.Exceptions[d] = struct{}{}
			except = append(except, d.String())
		}
	}
	dates, err := calendar.ExpandRecurringRule(rule, req.Range)
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidDateRange, "%v", err)
	}

	weekdays := make([]int, 0, len(req.Weekdays))
	for _, wd := range req.Weekdays {
		weekdays = append(weekdays, int(wd))
	}
	schedule := &model.Schedule{
		ResourceID: resourceID,
		StartDate:  req.Range.Start.String(),
		EndDate:    req.Range.End.String(),
		Rule: datatypes.NewJSONType(model.ScheduleRule{
			StartTime:   req.Window.Start.String(),
			EndTime:     req.Window.End.String(),
			SlotMinutes: int(req.SlotLength / time.Minute),
			Weekdays:    weekdays,
			Interval:    rule.Interval,
			Except:      except,
		}),
	}
	days := make([]string, 0, len(dates))
	for _, d := range dates {
		days = append(days, d.String())
	}

	slots, err := x.slots.Publish(ctx, schedule, days, layoutWindows(resourceID, windows))
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("publish slots: %w", err)
	}

	x.log.WithFields(logrus.Fields{
		"resource_id": resourceID,
		"range":       req.Range.String(),
		"slots":       len(slots),
	}).Info("availability published")
	return slots, nil
}

// layoutWindows раскладывает окна на дату, если ни одно не пересекается с уже
// опубликованными слотами.
func layoutWindows(resourceID uuid.UUID, windows []calendar.Window) repository.SlotLayout {
	return func(date string, existing []model.TimeSlot) ([]model.TimeSlot, error) {
		current := make([]calendar.Window, 0, len(existing))
		for _, s := range existing {
			sw, err := calendar.ParseWindow(s.StartTime, s.EndTime)
			if err != nil {
				return nil, fmt.Errorf("slot %s: %w", s.ID, err)
			}
			current = append(current, sw)
		}
		slots := make([]model.TimeSlot, 0, len(windows))
		for _, w := range windows {
			if overlap, conflicts := calendar.HasOverlap(w, current, false); overlap {
				return nil, apperror.New(apperror.KindSlotConflict, "slot %s overlaps published %s", w, conflicts[0]).
					WithDate(date)
			}
			slots = append(slots, model.TimeSlot{
				ResourceID: resourceID,
				Date:       date,
				StartTime:  w.Start.String(),
				EndTime:    w.End.String(),
				Available:  true,
			})
		}
		return slots, nil
	}
}

// Unpublish удаляет свободные слоты диапазона. Занятые слоты остаются.
func (x *Index) Unpublish(ctx context.Context, resourceID uuid.UUID, r calendar.DateRange) (int64, error) {
	n, err := x.slots.DeleteFree(ctx, resourceID, r.Start.String(), r.End.String())
	if err != nil {
		return 0, fmt.Errorf("delete free slots: %w", err)
	}
	return n, nil
}
