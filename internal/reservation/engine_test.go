package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/events"
	"github.com/Leganyst/reservation-platform/internal/model"
)

// Сценарии A–D на одной брони: создание, конфликт, подтверждение, отмена
// оплаченной брони.
func TestBookingLifecycle_Scenarios(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")

	// A
	a, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 20))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, a.Status)
	assert.Equal(t, model.PaymentStatusPending, a.PaymentStatus)
	assert.Equal(t, requesterID, a.UserID)
	assert.Equal(t, "ann@example.com", a.ContactInfo.Data().Email)
	assert.Equal(t, map[string]uuid.UUID{"10:00": a.ID, "11:00": a.ID}, f.heldBy(t, v1.ID, "2024-06-01"))

	// B
	_, err = f.engine.Create(asUser("user-2"), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "11:00", "13:00", 5))
	require.ErrorIs(t, err, apperror.ErrSlotConflict)
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, "2024-06-01", e.Date)

	got, err := f.query.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, got.Status)
	assert.Equal(t, map[string]uuid.UUID{"10:00": a.ID, "11:00": a.ID}, f.heldBy(t, v1.ID, "2024-06-01"))

	// C
	c, err := f.engine.Confirm(asUser(ownerID), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, c.Status)
	require.NotNil(t, c.ConfirmedAt)
	assert.Equal(t, map[string]uuid.UUID{"10:00": a.ID, "11:00": a.ID}, f.heldBy(t, v1.ID, "2024-06-01"))

	// D
	_, err = f.engine.RecordPayment(context.Background(), a.ID, "pay_1", model.PaymentStatusPaid)
	require.NoError(t, err)
	d, err := f.engine.Cancel(asUser(requesterID), a.ID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, d.Status)
	assert.Equal(t, model.PaymentStatusRefunded, d.PaymentStatus)
	require.NotNil(t, d.CancelledAt)
	assert.Empty(t, f.heldBy(t, v1.ID, "2024-06-01"))

	assert.Equal(t, []string{
		events.RKBookingCreated,
		events.RKBookingConfirmed,
		events.RKBookingCancelled,
	}, f.publisher.Keys())

	audit, err := f.audit.ListByBooking(context.Background(), a.ID)
	require.NoError(t, err)
	var types []model.EventType
	for _, ev := range audit {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []model.EventType{
		model.EventTypeBookingCreated,
		model.EventTypeBookingConfirmed,
		model.EventTypePaymentRecorded,
		model.EventTypeBookingCancelled,
	}, types)
}

// Сценарий E: многодневная бронь не оставляет частичных резервов.
func TestCreate_MultiDayAllOrNothing(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-07-01", "2024-07-03")

	blocker, err := f.engine.Create(asUser("user-2"), venueRequest(v1.ID, "2024-07-02", "2024-07-02", "10:00", "11:00", 2))
	require.NoError(t, err)

	_, err = f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-07-01", "2024-07-03", "09:00", "12:00", 10))
	require.ErrorIs(t, err, apperror.ErrSlotConflict)
	e, _ := apperror.As(err)
	assert.Equal(t, "2024-07-02", e.Date)

	assert.Empty(t, f.heldBy(t, v1.ID, "2024-07-01"))
	assert.Empty(t, f.heldBy(t, v1.ID, "2024-07-03"))
	assert.Equal(t, map[string]uuid.UUID{"10:00": blocker.ID}, f.heldBy(t, v1.ID, "2024-07-02"))

	page, err := f.query.List(context.Background(), Filter{ResourceID: &v1.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestCreate_MultiDayHoldsEveryDate(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-07-01", "2024-07-03")

	b, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-07-01", "2024-07-03", "18:00", "20:00", 10))
	require.NoError(t, err)
	for _, d := range []string{"2024-07-01", "2024-07-02", "2024-07-03"} {
		assert.Equal(t, map[string]uuid.UUID{"18:00": b.ID, "19:00": b.ID}, f.heldBy(t, v1.ID, d), d)
	}

	_, err = f.engine.Cancel(asUser(requesterID), b.ID, "")
	require.NoError(t, err)
	for _, d := range []string{"2024-07-01", "2024-07-02", "2024-07-03"} {
		assert.Empty(t, f.heldBy(t, v1.ID, d), d)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-03")

	cases := []struct {
		name  string
		req   CreateRequest
		want  error
		field string
	}{
		{
			name:  "end date before start date",
			req:   venueRequest(v1.ID, "2024-06-02", "2024-06-01", "10:00", "12:00", 10),
			want:  apperror.ErrInvalidDateRange,
			field: "endDate",
		},
		{
			name:  "same date, end time before start time",
			req:   venueRequest(v1.ID, "2024-06-01", "2024-06-01", "12:00", "10:00", 10),
			want:  apperror.ErrInvalidDateRange,
			field: "endTime",
		},
		{
			name:  "same date, empty window",
			req:   venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "10:00", 10),
			want:  apperror.ErrInvalidDateRange,
			field: "endTime",
		},
		{
			name:  "malformed date",
			req:   venueRequest(v1.ID, "01.06.2024", "2024-06-01", "10:00", "12:00", 10),
			want:  apperror.ErrInvalidDateRange,
			field: "startDate",
		},
		{
			name:  "too many attendees",
			req:   venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 101),
			want:  apperror.ErrCapacityExceeded,
			field: "attendeeCount",
		},
		{
			name:  "too few attendees",
			req:   venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 0),
			want:  apperror.ErrCapacityExceeded,
			field: "attendeeCount",
		},
		{
			name: "bad email",
			req: func() CreateRequest {
				r := venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10)
				r.Contact.Email = "nope"
				return r
			}(),
			want:  apperror.ErrInvalidRequest,
			field: "contactInfo.email",
		},
		{
			name: "both targets",
			req: func() CreateRequest {
				r := venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10)
				r.EventID = ptr(uuid.New())
				return r
			}(),
			want:  apperror.ErrInvalidRequest,
			field: "eventId",
		},
		{
			name: "event type against a venue",
			req: func() CreateRequest {
				r := venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10)
				r.BookingType = model.BookingTypeEvent
				r.EventID, r.ResourceID = r.ResourceID, nil
				return r
			}(),
			want:  apperror.ErrInvalidRequest,
			field: "bookingType",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Create(asUser(requesterID), tc.req)
			require.ErrorIs(t, err, tc.want)
			e, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, tc.field, e.Field)
		})
	}

	// ни одна из отклонённых заявок не заняла слоты
	for _, d := range []string{"2024-06-01", "2024-06-02"} {
		assert.Empty(t, f.heldBy(t, v1.ID, d))
	}
}

func TestCreate_StartInThePast(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-04-01", "2024-04-01")

	b, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-04-01", "2024-04-01", "10:00", "12:00", 10))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, b.Status)

	strict := newFixture(t, WithFutureStartOnly())
	v2 := strict.resource(t, model.ResourceKindVenue, "2024-04-01", "2024-05-01")
	ctx := asUser(requesterID)

	_, err = strict.engine.Create(ctx, venueRequest(v2.ID, "2024-04-01", "2024-04-01", "10:00", "12:00", 10))
	require.ErrorIs(t, err, apperror.ErrInvalidDateRange)
	e, _ := apperror.As(err)
	assert.Equal(t, "startDate", e.Field)

	// Часы — 2024-05-01 09:00: окно 08:00 уже началось.
	_, err = strict.engine.Create(ctx, venueRequest(v2.ID, "2024-05-01", "2024-05-01", "08:00", "10:00", 10))
	require.ErrorIs(t, err, apperror.ErrInvalidDateRange)

	later, err := strict.engine.Create(ctx, venueRequest(v2.ID, "2024-05-01", "2024-05-01", "10:00", "11:00", 10))
	require.NoError(t, err)

	_, err = strict.engine.Update(ctx, later.ID, UpdateRequest{StartTime: ptr("08:00")})
	require.ErrorIs(t, err, apperror.ErrInvalidDateRange)

	// После начала окна бронь ещё можно править, пока окно не сдвигается.
	strict.clock.Set(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC))
	up, err := strict.engine.Update(ctx, later.ID, UpdateRequest{
		StartTime:     ptr("10:00"),
		AttendeeCount: ptr(12),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, up.AttendeeCount)
	assert.Equal(t, map[string]uuid.UUID{"10:00": later.ID}, strict.heldBy(t, v2.ID, "2024-05-01"))
}

func TestCreate_ResourceChecks(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")
	ctx := asUser(requesterID)

	_, err := f.engine.Create(ctx, venueRequest(uuid.New(), "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, f.resources.UpdateStatus(context.Background(), v1.ID, model.ResourceStatusMaintenance))
	_, err = f.engine.Create(ctx, venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.ErrorIs(t, err, apperror.ErrResourceUnavailable)
	e, _ := apperror.As(err)
	assert.Equal(t, string(model.ResourceStatusMaintenance), e.Status)

	_, err = f.engine.Create(ctx, venueRequest(v1.ID, "2024-06-01", "2024-06-01", "21:00", "22:00", 10))
	require.ErrorIs(t, err, apperror.ErrResourceUnavailable)

	require.NoError(t, f.resources.UpdateStatus(context.Background(), v1.ID, model.ResourceStatusActive))
	_, err = f.engine.Create(ctx, venueRequest(v1.ID, "2024-06-01", "2024-06-01", "21:00", "22:00", 10))
	require.ErrorIs(t, err, apperror.ErrSlotNotFound)

	_, err = f.engine.Create(context.Background(), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.ErrorIs(t, err, apperror.ErrPermissionDenied)
}

func TestCreate_EventBooking(t *testing.T) {
	f := newFixture(t)
	ev := f.resource(t, model.ResourceKindEvent, "2024-06-01", "2024-06-01")

	id := ev.ID
	b, err := f.engine.Create(asUser(requesterID), CreateRequest{
		BookingType:   model.BookingTypeEvent,
		EventID:       &id,
		StartDate:     "2024-06-01",
		EndDate:       "2024-06-01",
		StartTime:     "18:00",
		EndTime:       "20:00",
		AttendeeCount: 4,
		Currency:      "EUR",
		Contact:       Contact{Name: "Bob", Email: "bob@example.com"},
	})
	require.NoError(t, err)
	assert.Nil(t, b.ResourceID)
	require.NotNil(t, b.EventID)
	assert.Equal(t, ev.ID, b.TargetID())
	assert.Len(t, f.heldBy(t, ev.ID, "2024-06-01"), 2)
}

func TestCreate_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := []string{"10:00", "11:00"}[i%2]
			end := []string{"12:00", "13:00"}[i%2]
			_, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", start, end, 10))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperror.KindOf(err) == apperror.KindSlotConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	page, err := f.query.List(context.Background(), Filter{ResourceID: &v1.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	held := f.heldBy(t, v1.ID, "2024-06-01")
	assert.Len(t, held, 2)
	for _, id := range held {
		assert.Equal(t, page.Items[0].ID, id)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-02")
	ctx := asUser(requesterID)

	b, err := f.engine.Create(ctx, venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.NoError(t, err)
	other, err := f.engine.Create(asUser("user-2"), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "14:00", "15:00", 10))
	require.NoError(t, err)

	t.Run("moves the window", func(t *testing.T) {
		up, err := f.engine.Update(ctx, b.ID, UpdateRequest{StartTime: ptr("11:00"), EndTime: ptr("13:00")})
		require.NoError(t, err)
		assert.Equal(t, "11:00", up.StartTime)
		assert.Equal(t, 2, up.Version)
		assert.Equal(t, map[string]uuid.UUID{
			"11:00": b.ID,
			"12:00": b.ID,
			"14:00": other.ID,
		}, f.heldBy(t, v1.ID, "2024-06-01"))
	})

	t.Run("conflict keeps old slots", func(t *testing.T) {
		_, err := f.engine.Update(ctx, b.ID, UpdateRequest{StartTime: ptr("13:00"), EndTime: ptr("15:00")})
		require.ErrorIs(t, err, apperror.ErrSlotConflict)

		got, err := f.query.Get(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, "11:00", got.StartTime)
		assert.Equal(t, map[string]uuid.UUID{
			"11:00": b.ID,
			"12:00": b.ID,
			"14:00": other.ID,
		}, f.heldBy(t, v1.ID, "2024-06-01"))
	})

	t.Run("moves to another date", func(t *testing.T) {
		_, err := f.engine.Update(ctx, b.ID, UpdateRequest{StartDate: ptr("2024-06-02"), EndDate: ptr("2024-06-02")})
		require.NoError(t, err)
		assert.Equal(t, map[string]uuid.UUID{"14:00": other.ID}, f.heldBy(t, v1.ID, "2024-06-01"))
		assert.Equal(t, map[string]uuid.UUID{"11:00": b.ID, "12:00": b.ID}, f.heldBy(t, v1.ID, "2024-06-02"))
	})

	t.Run("capacity", func(t *testing.T) {
		_, err := f.engine.Update(ctx, b.ID, UpdateRequest{AttendeeCount: ptr(500)})
		require.ErrorIs(t, err, apperror.ErrCapacityExceeded)
	})

	t.Run("stale version", func(t *testing.T) {
		_, err := f.engine.Update(ctx, b.ID, UpdateRequest{Notes: ptr("x"), ExpectedVersion: 1})
		require.ErrorIs(t, err, apperror.ErrInvalidTransition)
		e, _ := apperror.As(err)
		assert.Equal(t, "version", e.Field)
	})

	t.Run("only requester", func(t *testing.T) {
		_, err := f.engine.Update(asUser("user-2"), b.ID, UpdateRequest{Notes: ptr("x")})
		require.ErrorIs(t, err, apperror.ErrPermissionDenied)
	})

	t.Run("not pending", func(t *testing.T) {
		_, err := f.engine.Confirm(asUser(ownerID), b.ID)
		require.NoError(t, err)
		_, err = f.engine.Update(ctx, b.ID, UpdateRequest{Notes: ptr("x")})
		require.ErrorIs(t, err, apperror.ErrInvalidTransition)
		e, _ := apperror.As(err)
		assert.Equal(t, string(model.BookingStatusConfirmed), e.Status)
	})
}

func TestStateMachine_TerminalStates(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")

	b, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.NoError(t, err)

	_, err = f.engine.Cancel(asUser(requesterID), b.ID, "")
	require.NoError(t, err)

	_, err = f.engine.Cancel(asUser(requesterID), b.ID, "")
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = f.engine.Confirm(asUser(ownerID), b.ID)
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)
	e, _ := apperror.As(err)
	assert.Equal(t, string(model.BookingStatusCancelled), e.Status)

	_, err = f.engine.Complete(asUser(ownerID), b.ID)
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestCancel_ReleaseFailureKeepsCancellation(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")
	ctx := asUser(requesterID)

	b, err := f.engine.Create(ctx, venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.NoError(t, err)

	f.slots.failRelease.Store(true)
	c, err := f.engine.Cancel(ctx, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, c.Status)

	got, err := f.query.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	assert.Len(t, f.heldBy(t, v1.ID, "2024-06-01"), 2)
	assert.Contains(t, f.publisher.Keys(), events.RKBookingCancelled)

	// Повторная отмена отклоняется, но добирает слоты.
	f.slots.failRelease.Store(false)
	_, err = f.engine.Cancel(ctx, b.ID, "")
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Empty(t, f.heldBy(t, v1.ID, "2024-06-01"))
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")

	b, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.NoError(t, err)

	_, err = f.engine.Confirm(asUser(requesterID), b.ID)
	require.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = f.engine.Cancel(asUser("stranger"), b.ID, "")
	require.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = f.engine.Cancel(context.Background(), b.ID, "")
	require.ErrorIs(t, err, apperror.ErrPermissionDenied)

	// владелец ресурса может отменить чужую бронь
	c, err := f.engine.Cancel(asUser(ownerID), b.ID, "venue closed")
	require.NoError(t, err)
	assert.Equal(t, "venue closed", c.CancelReason)
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")

	b, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.NoError(t, err)

	_, err = f.engine.Complete(asUser(ownerID), b.ID)
	require.ErrorIs(t, err, apperror.ErrInvalidTransition, "pending cannot complete")

	_, err = f.engine.Confirm(asUser(ownerID), b.ID)
	require.NoError(t, err)

	_, err = f.engine.Complete(asUser(ownerID), b.ID)
	require.ErrorIs(t, err, apperror.ErrInvalidTransition, "window has not ended")

	f.clock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	_, err = f.engine.Complete(asUser(requesterID), b.ID)
	require.ErrorIs(t, err, apperror.ErrPermissionDenied)

	done, err := f.engine.Complete(asUser(ownerID), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Empty(t, f.heldBy(t, v1.ID, "2024-06-01"))

	_, err = f.engine.Confirm(asUser(ownerID), b.ID)
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestLazyCompletion(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")

	b, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.NoError(t, err)
	_, err = f.engine.Confirm(asUser(ownerID), b.ID)
	require.NoError(t, err)

	f.clock.Set(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))

	_, err = f.engine.Cancel(asUser(requesterID), b.ID, "")
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)
	e, _ := apperror.As(err)
	assert.Equal(t, string(model.BookingStatusCompleted), e.Status)

	got, err := f.query.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, got.Status)
	assert.Equal(t, model.PaymentStatusPending, got.PaymentStatus)
	assert.Empty(t, f.heldBy(t, v1.ID, "2024-06-01"))
	assert.Contains(t, f.publisher.Keys(), events.RKBookingCompleted)
}

func TestLazyCompletion_OnRead(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")

	b, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.NoError(t, err)
	_, err = f.engine.Confirm(asUser(ownerID), b.ID)
	require.NoError(t, err)

	got, err := f.query.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, got.Status)

	f.clock.Set(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC))
	got, err = f.query.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, got.Status)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")
	ctx := context.Background()

	b, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "12:00", 10))
	require.NoError(t, err)

	_, err = f.engine.RecordPayment(ctx, b.ID, "pay_1", model.PaymentStatusRefunded)
	require.ErrorIs(t, err, apperror.ErrInvalidTransition, "refund of an active booking")

	got, err := f.engine.RecordPayment(ctx, b.ID, "pay_1", model.PaymentStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, got.PaymentStatus)

	got, err = f.engine.RecordPayment(ctx, b.ID, "pay_2", model.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, "pay_2", got.PaymentID)

	// повтор того же результата
	again, err := f.engine.RecordPayment(ctx, b.ID, "pay_2", model.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)

	_, err = f.engine.RecordPayment(ctx, b.ID, "pay_3", model.PaymentStatusFailed)
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = f.engine.RecordPayment(ctx, b.ID, "", model.PaymentStatusPending)
	require.ErrorIs(t, err, apperror.ErrInvalidRequest)

	_, err = f.engine.RecordPayment(ctx, uuid.New(), "pay_1", model.PaymentStatusPaid)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
