// Package reservation — единственное место, где брони создаются и меняют
// статус: проверка окна, вместимости и статуса ресурса, резервирование
// слотов, машина состояний и связь со статусом платежа.
package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/availability"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/events"
	"github.com/Leganyst/reservation-platform/internal/identity"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/repository"
)

// ResourceDirectory — справочник ресурсов: владелец, вместимость, статус.
type ResourceDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error)
}

// Publisher отправляет события броней наружу.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type nopPublisher struct{}

func (nopPublisher) PublishJSON(context.Context, string, any) error { return nil }

const systemActor = "system"

type Engine struct {
	bookings  repository.BookingRepository
	index     *availability.Index
	resources ResourceDirectory
	audit     repository.EventRepository
	publisher Publisher

	validate *validator.Validate
	log      logrus.FieldLogger
	tracer   trace.Tracer

	now func() time.Time
	// Часовой пояс, в котором трактуются даты и время броней.
	loc *time.Location
	// Новое окно брони должно начинаться позже текущего момента.
	futureOnly bool
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithFutureStartOnly запрещает создавать брони и переносить их на окно,
// которое уже началось. По умолчанию окно в прошлом допускается.
func WithFutureStartOnly() Option {
	return func(e *Engine) { e.futureOnly = true }
}

func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

func NewEngine(
	bookings repository.BookingRepository,
	index *availability.Index,
	resources ResourceDirectory,
	audit repository.EventRepository,
	log logrus.FieldLogger,
	opts ...Option,
) *Engine {
	e := &Engine{
		bookings:  bookings,
		index:     index,
		resources: resources,
		audit:     audit,
		publisher: nopPublisher{},
		validate:  newValidator(),
		log:       log.WithField("component", "reservation"),
		tracer:    otel.Tracer("reservation/engine"),
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create проверяет заявку, атомарно резервирует окно на все даты диапазона и
// записывает бронь в статусе pending.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.create",
		trace.WithAttributes(attribute.String("booking.type", string(req.BookingType))))
	b, err := e.create(ctx, req)
	if b != nil {
		span.SetAttributes(attribute.String("booking.id", b.ID.String()))
	}
	endSpan(span, err)
	return b, err
}

func (e *Engine) create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(e.validate, req); err != nil {
		return nil, err
	}
	targetID, err := checkTarget(req.BookingType, req.ResourceID, req.EventID)
	if err != nil {
		return nil, err
	}

	win, err := parseBookingWindow(req.StartDate, req.EndDate, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := e.checkFuture(win); err != nil {
		return nil, err
	}

	res, err := e.resources.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := checkResource(res, req.BookingType, req.AttendeeCount); err != nil {
		return nil, err
	}

	bookingID := uuid.New()
	holds, err := e.index.ReserveRange(ctx, res.ID, win.Dates, win.Time, bookingID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	b := &model.Booking{
		ID:            bookingID,
		BookingType:   req.BookingType,
		UserID:        userID,
		StartDate:     win.Dates.Start.String(),
		EndDate:       win.Dates.End.String(),
		StartTime:     win.Time.Start.String(),
		EndTime:       win.Time.End.String(),
		AttendeeCount: req.AttendeeCount,
		TotalAmount:   req.TotalAmount,
		Currency:      req.Currency,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.BookingStatusPending,
		ContactInfo:   datatypes.NewJSONType(contactInfo(req.Contact)),
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	if req.BookingType == model.BookingTypeEvent {
		b.EventID = &targetID
	} else {
		b.ResourceID = &targetID
	}

	if err := e.bookings.Create(ctx, b); err != nil {
		e.compensate(ctx, bookingID, holds)
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	e.record(ctx, model.EventTypeBookingCreated, events.RKBookingCreated, userID, b, nil)
	return b, nil
}

// Update меняет окно, число участников или контакты pending-брони. Новое окно
// резервируется до освобождения старого: при конфликте бронь и её слоты
// остаются прежними.
func (e *Engine) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*model.Booking, error) {
	ctx, span := e.startSpan(ctx, "reservation.update", id)
	b, err := e.update(ctx, id, req)
	endSpan(span, err)
	return b, err
}

func (e *Engine) update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*model.Booking, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	b, err := e.load(ctx, id, TransitionUpdate)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, permissionDenied("only the requester may update a booking")
	}
	if _, err := Next(b.Status, TransitionUpdate); err != nil {
		return nil, err
	}
	if req.ExpectedVersion > 0 && req.ExpectedVersion != b.Version {
		return nil, apperror.InvalidTransition(string(b.Status), string(TransitionUpdate)).WithField("version")
	}
	if err := validateStruct(e.validate, req); err != nil {
		return nil, err
	}

	oldWin, err := windowOf(b)
	if err != nil {
		return nil, fmt.Errorf("stored booking %s: %w", b.ID, err)
	}

	next := *b
	if req.StartDate != nil {
		next.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		next.EndDate = *req.EndDate
	}
	if req.StartTime != nil {
		next.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		next.EndTime = *req.EndTime
	}
	if req.AttendeeCount != nil {
		next.AttendeeCount = *req.AttendeeCount
	}
	if req.TotalAmount != nil {
		next.TotalAmount = *req.TotalAmount
	}
	if req.Contact != nil {
		next.ContactInfo = datatypes.NewJSONType(contactInfo(*req.Contact))
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}

	newWin := oldWin
	if req.changesWindow() {
		newWin, err = parseBookingWindow(next.StartDate, next.EndDate, next.StartTime, next.EndTime)
		if err != nil {
			return nil, err
		}
	}
	moved := !newWin.equal(oldWin)
	if moved {
		if err := e.checkFuture(newWin); err != nil {
			return nil, err
		}
	}
	next.StartDate, next.EndDate = newWin.Dates.Start.String(), newWin.Dates.End.String()
	next.StartTime, next.EndTime = newWin.Time.Start.String(), newWin.Time.End.String()

	res, err := e.resources.GetByID(ctx, b.TargetID())
	if err != nil {
		return nil, err
	}
	if err := checkResource(res, b.BookingType, next.AttendeeCount); err != nil {
		return nil, err
	}

	var holds []availability.Hold
	if moved {
		holds, err = e.index.ReserveRange(ctx, res.ID, newWin.Dates, newWin.Time, b.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := e.bookings.Update(ctx, &next, model.BookingStatusPending); err != nil {
		if moved {
			e.compensate(ctx, b.ID, holds)
		}
		return nil, err
	}

	if moved {
		if _, err := e.index.ReleaseBookingExcept(ctx, b.ID, holds); err != nil {
			return nil, fmt.Errorf("release previous window of booking %s: %w", b.ID, err)
		}
	}

	e.record(ctx, model.EventTypeBookingUpdated, events.RKBookingUpdated, userID, &next, map[string]any{
		"window_changed": moved,
		"previous_window": map[string]string{
			"start_date": b.StartDate, "end_date": b.EndDate,
			"start_time": b.StartTime, "end_time": b.EndTime,
		},
	})
	return &next, nil
}

// Confirm переводит pending-бронь в confirmed. Подтверждает владелец ресурса.
func (e *Engine) Confirm(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	ctx, span := e.startSpan(ctx, "reservation.confirm", id)
	b, err := e.confirm(ctx, id)
	endSpan(span, err)
	return b, err
}

func (e *Engine) confirm(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	b, err := e.load(ctx, id, TransitionConfirm)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(ctx, b, userID); err != nil {
		return nil, err
	}

	from := b.Status
	to, err := Next(from, TransitionConfirm)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	b.Status = to
	b.ConfirmedAt = &now
	if err := e.bookings.Update(ctx, b, from); err != nil {
		return nil, err
	}

	e.record(ctx, model.EventTypeBookingConfirmed, events.RKBookingConfirmed, userID, b, nil)
	return b, nil
}

// Cancel отменяет pending или confirmed бронь и освобождает её слоты.
// Оплаченная бронь получает paymentStatus=refunded в том же переходе.
// Отменить может заявитель или владелец ресурса.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Booking, error) {
	ctx, span := e.startSpan(ctx, "reservation.cancel", id)
	b, err := e.cancel(ctx, id, reason)
	endSpan(span, err)
	return b, err
}

func (e *Engine) cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Booking, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	b, err := e.load(ctx, id, TransitionCancel)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		if err := e.requireOwner(ctx, b, userID); err != nil {
			return nil, err
		}
	}

	from := b.Status
	if from == model.BookingStatusCancelled {
		// Добираем слоты, если прошлая отмена не успела их освободить.
		if _, err := e.index.ReleaseBooking(ctx, b.ID); err != nil {
			e.log.WithField("booking_id", b.ID).WithError(err).Warn("release slots of cancelled booking")
		}
	}
	to, err := Next(from, TransitionCancel)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	b.Status = to
	b.CancelledAt = &now
	b.CancelReason = reason
	b.PaymentStatus = paymentAfterCancel(b.PaymentStatus)
	if err := e.bookings.Update(ctx, b, from); err != nil {
		return nil, err
	}

	e.record(ctx, model.EventTypeBookingCancelled, events.RKBookingCancelled, userID, b, map[string]any{
		"previous_status": from,
		"reason":          reason,
	})

	// Отмена уже записана: слоты без брони доберёт повторный Cancel.
	if _, err := e.index.ReleaseBooking(ctx, b.ID); err != nil {
		e.log.WithField("booking_id", b.ID).WithError(err).Error("release slots of cancelled booking")
	}
	return b, nil
}

// Complete завершает confirmed-бронь после окончания её окна. Вызывает
// владелец ресурса; в остальных случаях завершение происходит лениво при
// следующем обращении к брони.
func (e *Engine) Complete(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	ctx, span := e.startSpan(ctx, "reservation.complete", id)
	b, err := e.complete(ctx, id)
	endSpan(span, err)
	return b, err
}

func (e *Engine) complete(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	b, err := e.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(ctx, b, userID); err != nil {
		return nil, err
	}
	if _, err := Next(b.Status, TransitionComplete); err != nil {
		return nil, err
	}
	ended, err := e.ended(b)
	if err != nil {
		return nil, err
	}
	if !ended {
		return nil, apperror.New(apperror.KindInvalidTransition, "booking ends %s %s", b.EndDate, b.EndTime).
			WithStatus(string(b.Status)).
			WithField("endDate")
	}
	if err := e.completeBooking(ctx, b, userID); err != nil {
		return nil, err
	}
	return b, nil
}

// RecordPayment применяет результат платежа: pending->paid, pending->failed,
// failed->paid; refunded принимается только для отменённой брони.
// Повтор того же результата ничего не меняет.
func (e *Engine) RecordPayment(ctx context.Context, id uuid.UUID, paymentID string, status model.PaymentStatus) (*model.Booking, error) {
	ctx, span := e.startSpan(ctx, "reservation.record_payment", id)
	span.SetAttributes(attribute.String("payment.status", string(status)))
	b, err := e.recordPayment(ctx, id, paymentID, status)
	endSpan(span, err)
	return b, err
}

func (e *Engine) recordPayment(ctx context.Context, id uuid.UUID, paymentID string, status model.PaymentStatus) (*model.Booking, error) {
	if !status.Valid() || status == model.PaymentStatusPending {
		return nil, apperror.New(apperror.KindInvalidRequest, "unsupported payment status %q", status).
			WithField("paymentStatus")
	}
	b, err := e.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == status && (paymentID == "" || b.PaymentID == paymentID) {
		return b, nil
	}

	if status == model.PaymentStatusRefunded {
		if b.Status != model.BookingStatusCancelled {
			return nil, apperror.New(apperror.KindInvalidTransition, "refund recorded for a %s booking", b.Status).
				WithStatus(string(b.Status)).
				WithField("paymentStatus")
		}
	} else if !b.Status.Active() {
		return nil, apperror.InvalidTransition(string(b.Status), "record payment for")
	}
	if err := nextPayment(b.PaymentStatus, status); err != nil {
		return nil, err
	}

	previous := b.PaymentStatus
	b.PaymentStatus = status
	if paymentID != "" {
		b.PaymentID = paymentID
	}
	if err := e.bookings.Update(ctx, b, b.Status); err != nil {
		return nil, err
	}

	e.record(ctx, model.EventTypePaymentRecorded, "", systemActor, b, map[string]any{
		"payment_id":       paymentID,
		"previous_payment": previous,
	})
	return b, nil
}

// Settle лениво завершает confirmed-бронь, окно которой уже прошло.
// Возвращает актуальную бронь.
func (e *Engine) Settle(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	if _, err := e.settle(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// load читает бронь и лениво завершает её. Если бронь только что завершилась,
// переход t недопустим.
func (e *Engine) load(ctx context.Context, id uuid.UUID, t Transition) (*model.Booking, error) {
	b, err := e.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	settled, err := e.settle(ctx, b)
	if err != nil {
		return nil, err
	}
	if settled {
		return nil, apperror.InvalidTransition(string(b.Status), string(t))
	}
	return b, nil
}

func (e *Engine) settle(ctx context.Context, b *model.Booking) (bool, error) {
	if b.Status != model.BookingStatusConfirmed {
		return false, nil
	}
	ended, err := e.ended(b)
	if err != nil || !ended {
		return false, err
	}
	if err := e.completeBooking(ctx, b, systemActor); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) completeBooking(ctx context.Context, b *model.Booking, actor string) error {
	from := b.Status
	to, err := Next(from, TransitionComplete)
	if err != nil {
		return err
	}
	now := e.now().UTC()
	b.Status = to
	b.CompletedAt = &now
	if err := e.bookings.Update(ctx, b, from); err != nil {
		return err
	}
	e.record(ctx, model.EventTypeBookingCompleted, events.RKBookingCompleted, actor, b, nil)

	// Завершённая бронь не активна и не держит слоты.
	if _, err := e.index.ReleaseBooking(ctx, b.ID); err != nil {
		return fmt.Errorf("release slots of booking %s: %w", b.ID, err)
	}
	return nil
}

func (e *Engine) ended(b *model.Booking) (bool, error) {
	win, err := windowOf(b)
	if err != nil {
		return false, fmt.Errorf("stored booking %s: %w", b.ID, err)
	}
	return !win.End(e.loc).After(e.now()), nil
}

// today — текущая дата в часовом поясе броней.
func (e *Engine) today() calendar.Date {
	return calendar.DateOf(e.now().In(e.loc))
}

func (e *Engine) checkFuture(win bookingWindow) error {
	if !e.futureOnly || win.Start(e.loc).After(e.now()) {
		return nil
	}
	return apperror.New(apperror.KindInvalidDateRange, "booking must start in the future").
		WithField("startDate").
		WithDate(win.Dates.Start.String())
}

func (e *Engine) requireOwner(ctx context.Context, b *model.Booking, userID string) error {
	res, err := e.resources.GetByID(ctx, b.TargetID())
	if err != nil {
		return err
	}
	if res.OwnerID != userID {
		return permissionDenied("only the resource owner may do this")
	}
	return nil
}

// compensate освобождает слоты, захваченные в этом запросе.
func (e *Engine) compensate(ctx context.Context, bookingID uuid.UUID, holds []availability.Hold) {
	if err := e.index.ReleaseHolds(context.WithoutCancel(ctx), bookingID, holds); err != nil {
		e.log.WithField("booking_id", bookingID).WithError(err).Error("compensating release failed")
	}
}

// record пишет событие аудита и публикует событие брони. Ошибки журналируются
// и не отменяют уже применённый переход.
func (e *Engine) record(
	ctx context.Context,
	eventType model.EventType,
	routingKey string,
	actor string,
	b *model.Booking,
	details map[string]any,
) {
	log := e.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"event":      eventType,
		"status":     b.Status,
		"actor":      actor,
	})

	if details == nil {
		details = map[string]any{}
	}
	details["status"] = b.Status
	details["payment_status"] = b.PaymentStatus
	details["version"] = b.Version

	targetID := b.TargetID()
	if err := e.audit.Append(ctx, eventType, actor, &b.ID, &targetID, details); err != nil {
		log.WithError(err).Error("append audit event")
	}

	if routingKey != "" {
		msg := events.NewEnvelope(routingKey, uuid.NewString(), e.now(), snapshot(b, actor))
		if err := e.publisher.PublishJSON(ctx, routingKey, msg); err != nil {
			log.WithError(err).Warn("publish booking event")
		}
	}
	log.Info("booking transition applied")
}

func snapshot(b *model.Booking, actor string) events.Booking {
	s := events.Booking{
		BookingID:     b.ID.String(),
		BookingType:   string(b.BookingType),
		UserID:        b.UserID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		AttendeeCount: b.AttendeeCount,
		TotalAmount:   b.TotalAmount,
		Currency:      b.Currency,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Actor:         actor,
	}
	if b.ResourceID != nil {
		s.ResourceID = b.ResourceID.String()
	}
	if b.EventID != nil {
		s.EventID = b.EventID.String()
	}
	return s
}

func checkResource(res *model.Resource, t model.BookingType, attendees int) error {
	if string(res.Kind) != string(t) {
		return apperror.New(apperror.KindInvalidRequest, "resource %s is a %s, not a %s", res.ID, res.Kind, t).
			WithField("bookingType")
	}
	if attendees < res.CapacityMin || attendees > res.CapacityMax {
		return apperror.New(apperror.KindCapacityExceeded, "attendeeCount %d outside capacity [%d, %d]",
			attendees, res.CapacityMin, res.CapacityMax).
			WithField("attendeeCount")
	}
	if res.Status != model.ResourceStatusActive {
		return apperror.New(apperror.KindResourceUnavailable, "resource %s is %s", res.ID, res.Status).
			WithStatus(string(res.Status))
	}
	return nil
}

func contactInfo(c Contact) model.ContactInfo {
	return model.ContactInfo{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

func requireUser(ctx context.Context) (string, error) {
	userID, ok := identity.CurrentUserID(ctx)
	if !ok {
		return "", permissionDenied("authentication required")
	}
	return userID, nil
}

func permissionDenied(msg string) error {
	return apperror.New(apperror.KindPermissionDenied, "%s", msg)
}

func (e *Engine) startSpan(ctx context.Context, name string, id uuid.UUID) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("booking.id", id.String())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
