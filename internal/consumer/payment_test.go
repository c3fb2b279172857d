package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/reservation-platform/internal/availability"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/db/dbtest"
	"github.com/Leganyst/reservation-platform/internal/events"
	"github.com/Leganyst/reservation-platform/internal/identity"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/repository"
	"github.com/Leganyst/reservation-platform/internal/reservation"
)

type env struct {
	handler  *PaymentHandler
	engine   *reservation.Engine
	bookings *repository.GormBookingRepository
	messages *repository.GormMessageRepository
	booking  *model.Booking
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.New(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	resources := repository.NewGormResourceRepository(db)
	bookings := repository.NewGormBookingRepository(db)
	messages := repository.NewGormMessageRepository(db)
	index := availability.NewIndex(repository.NewGormSlotRepository(db), log)
	engine := reservation.NewEngine(bookings, index, resources, repository.NewGormEventRepository(db), log,
		reservation.WithClock(func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }),
		reservation.WithLocation(time.UTC),
	)

	ctx := context.Background()
	res := &model.Resource{
		Kind:        model.ResourceKindVenue,
		OwnerID:     "owner-1",
		Name:        "Studio",
		CapacityMin: 1,
		CapacityMax: 10,
		Status:      model.ResourceStatusActive,
	}
	require.NoError(t, resources.Create(ctx, res))
	r, err := calendar.ParseDateRange("2024-06-01", "2024-06-01")
	require.NoError(t, err)
	w, err := calendar.ParseWindow("09:00", "12:00")
	require.NoError(t, err)
	_, err = index.Publish(ctx, res.ID, availability.PublishRequest{Range: r, Window: w, SlotLength: time.Hour})
	require.NoError(t, err)

	resourceID := res.ID
	b, err := engine.Create(identity.WithUser(ctx, "user-1"), reservation.CreateRequest{
		BookingType:   model.BookingTypeVenue,
		ResourceID:    &resourceID,
		StartDate:     "2024-06-01",
		EndDate:       "2024-06-01",
		StartTime:     "09:00",
		EndTime:       "10:00",
		AttendeeCount: 2,
		TotalAmount:   5000,
		Currency:      "USD",
		Contact:       reservation.Contact{Name: "Cy", Email: "cy@example.com"},
	})
	require.NoError(t, err)

	return &env{
		handler:  NewPaymentHandler(engine, messages, log),
		engine:   engine,
		bookings: bookings,
		messages: messages,
		booking:  b,
	}
}

func paymentBody(t *testing.T, key, msgID string, bookingID uuid.UUID, paymentID string) []byte {
	t.Helper()
	b, err := json.Marshal(events.NewEnvelope(key, msgID, time.Now(), events.Payment{
		PaymentID: paymentID,
		BookingID: bookingID.String(),
		Amount:    5000,
		Currency:  "USD",
	}))
	require.NoError(t, err)
	return b
}

func TestPaymentHandler_PaidIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	body := paymentBody(t, events.RKPaymentPaid, "msg-1", e.booking.ID, "pay-1")

	assert.Equal(t, Ack, e.handler.Handle(ctx, events.RKPaymentPaid, "", body))

	got, err := e.bookings.GetByID(ctx, e.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, "pay-1", got.PaymentID)
	version := got.Version

	seen, err := e.messages.Seen(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.Equal(t, Ack, e.handler.Handle(ctx, events.RKPaymentPaid, "", body))
	got, err = e.bookings.GetByID(ctx, e.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, version, got.Version)
}

func TestPaymentHandler_FailedThenPaid(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Equal(t, Ack, e.handler.Handle(ctx, events.RKPaymentFailed, "",
		paymentBody(t, events.RKPaymentFailed, "m-1", e.booking.ID, "pay-1")))
	assert.Equal(t, Ack, e.handler.Handle(ctx, events.RKPaymentPaid, "",
		paymentBody(t, events.RKPaymentPaid, "m-2", e.booking.ID, "pay-2")))

	got, err := e.bookings.GetByID(ctx, e.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, "pay-2", got.PaymentID)
}

func TestPaymentHandler_BusinessRejectionIsAcked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Возврат по активной брони не применяется.
	out := e.handler.Handle(ctx, events.RKPaymentRefunded, "",
		paymentBody(t, events.RKPaymentRefunded, "m-1", e.booking.ID, "pay-1"))
	assert.Equal(t, Ack, out)

	got, err := e.bookings.GetByID(ctx, e.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, got.PaymentStatus)

	out = e.handler.Handle(ctx, events.RKPaymentPaid, "",
		paymentBody(t, events.RKPaymentPaid, "m-2", uuid.New(), "pay-1"))
	assert.Equal(t, Ack, out)
}

func TestPaymentHandler_MalformedAndUnknown(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Equal(t, Drop, e.handler.Handle(ctx, events.RKPaymentPaid, "", []byte("{not json")))
	assert.Equal(t, Drop, e.handler.Handle(ctx, events.RKPaymentPaid, "", []byte(`{"data":{"booking_id":"nope"}}`)))
	assert.Equal(t, Ack, e.handler.Handle(ctx, "payment.created", "", []byte(`{}`)))
}

type brokenRecorder struct{}

func (brokenRecorder) RecordPayment(context.Context, uuid.UUID, string, model.PaymentStatus) (*model.Booking, error) {
	return nil, errors.New("database is locked")
}

func TestPaymentHandler_InfraErrorRequeues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewPaymentHandler(brokenRecorder{}, e.messages, log)
	out := h.Handle(ctx, events.RKPaymentPaid, "", paymentBody(t, events.RKPaymentPaid, "m-1", e.booking.ID, "pay-1"))
	assert.Equal(t, Requeue, out)

	seen, err := e.messages.Seen(ctx, "m-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMessageID_Fallbacks(t *testing.T) {
	assert.Equal(t, "env", messageID("env", "del", events.RKPaymentPaid, "p"))
	assert.Equal(t, "del", messageID("", "del", events.RKPaymentPaid, "p"))
	assert.Equal(t, "payment.paid:p", messageID("", "", events.RKPaymentPaid, "p"))
}
