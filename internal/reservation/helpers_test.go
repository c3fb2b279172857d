package reservation

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Leganyst/reservation-platform/internal/availability"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/db/dbtest"
	"github.com/Leganyst/reservation-platform/internal/identity"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/repository"
)

const (
	ownerID     = "owner-1"
	requesterID = "user-1"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// flakySlots роняет освобождение слотов брони, пока включён failRelease.
type flakySlots struct {
	*repository.GormSlotRepository
	failRelease atomic.Bool
}

func (s *flakySlots) ReleaseBookingExcept(ctx context.Context, bookingID uuid.UUID, keep []uuid.UUID) (int64, error) {
	if s.failRelease.Load() {
		return 0, errors.New("connection reset by peer")
	}
	return s.GormSlotRepository.ReleaseBookingExcept(ctx, bookingID, keep)
}

type fixture struct {
	engine    *Engine
	query     *Query
	catalog   *Catalog
	index     *availability.Index
	slots     *flakySlots
	resources *repository.GormResourceRepository
	bookings  *repository.GormBookingRepository
	audit     *repository.GormEventRepository
	publisher *recordingPublisher
	clock     *fakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := dbtest.New(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		resources: repository.NewGormResourceRepository(db),
		bookings:  repository.NewGormBookingRepository(db),
		audit:     repository.NewGormEventRepository(db),
		publisher: &recordingPublisher{},
		slots:     &flakySlots{GormSlotRepository: repository.NewGormSlotRepository(db)},
		clock:     &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	schedules := repository.NewGormScheduleRepository(db)
	f.index = availability.NewIndex(f.slots, log)
	opts = append([]Option{
		WithClock(f.clock.Now),
		WithLocation(time.UTC),
		WithPublisher(f.publisher),
	}, opts...)
	f.engine = NewEngine(f.bookings, f.index, f.resources, f.audit, log, opts...)
	f.query = NewQuery(f.bookings, f.index, f.engine)
	f.catalog = NewCatalog(f.resources, schedules, log)
	return f
}

func asUser(id string) context.Context {
	return identity.WithUser(context.Background(), id)
}

// resource создаёт активный ресурс вместимостью 1–100 с часовыми слотами
// 08:00–20:00 на диапазон дат.
func (f *fixture) resource(t rapid.TB, kind model.ResourceKind, from, to string) *model.Resource {
	t.Helper()
	res := &model.Resource{
		Kind:        kind,
		OwnerID:     ownerID,
		Name:        "V1",
		CapacityMin: 1,
		CapacityMax: 100,
		Status:      model.ResourceStatusActive,
	}
	require.NoError(t, f.resources.Create(context.Background(), res))

	r, err := calendar.ParseDateRange(from, to)
	require.NoError(t, err)
	w, err := calendar.ParseWindow("08:00", "20:00")
	require.NoError(t, err)
	_, err = f.index.Publish(context.Background(), res.ID, availability.PublishRequest{
		Range:      r,
		Window:     w,
		SlotLength: time.Hour,
	})
	require.NoError(t, err)
	return res
}

func venueRequest(resourceID uuid.UUID, startDate, endDate, startTime, endTime string, attendees int) CreateRequest {
	id := resourceID
	return CreateRequest{
		BookingType:   model.BookingTypeVenue,
		ResourceID:    &id,
		StartDate:     startDate,
		EndDate:       endDate,
		StartTime:     startTime,
		EndTime:       endTime,
		AttendeeCount: attendees,
		TotalAmount:   150_00,
		Currency:      "USD",
		Contact:       Contact{Name: "Ann", Email: "ann@example.com", Phone: "+100000"},
	}
}

// heldBy — окна даты, занятые каждой бронью.
func (f *fixture) heldBy(t rapid.TB, resourceID uuid.UUID, date string) map[string]uuid.UUID {
	t.Helper()
	days, err := f.query.Availability(context.Background(), resourceID, date, date)
	require.NoError(t, err)
	out := map[string]uuid.UUID{}
	for _, d := range days {
		for _, s := range d.Slots {
			if !s.Available {
				require.NotNil(t, s.BookingID)
				out[s.Window.Start.String()] = *s.BookingID
			}
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func mustRange(t rapid.TB, start, end string) calendar.DateRange {
	t.Helper()
	r, err := calendar.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func mustWindow(t rapid.TB, start, end string) calendar.Window {
	t.Helper()
	w, err := calendar.ParseWindow(start, end)
	require.NoError(t, err)
	return w
}
