package reservation

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/availability"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/repository"
)

// Filter — параметры списка броней. Пустые поля не фильтруют.
type Filter struct {
	Statuses    []model.BookingStatus `json:"status,omitempty"`
	BookingType model.BookingType     `json:"bookingType,omitempty"`
	ResourceID  *uuid.UUID            `json:"resourceId,omitempty"`
	EventID     *uuid.UUID            `json:"eventId,omitempty"`
	UserID      string                `json:"userId,omitempty"`
	// Бронь попадает в выборку, если её даты пересекаются с [From, To].
	From string `json:"startDate,omitempty"`
	To   string `json:"endDate,omitempty"`

	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// Stats — агрегаты по броням фильтра.
type Stats struct {
	Total    int64                         `json:"total"`
	ByStatus map[model.BookingStatus]int64 `json:"byStatus"`
	// Сумма неотменённых броней. Смешивает валюты; для отчётов — ByCurrency.
	NonCancelledAmount int64            `json:"nonCancelledAmount"`
	ByCurrency         map[string]int64 `json:"nonCancelledAmountByCurrency"`
}

func newStats() Stats {
	return Stats{
		ByStatus:   map[model.BookingStatus]int64{},
		ByCurrency: map[string]int64{},
	}
}

func (s *Stats) add(status model.BookingStatus, currency string, count, amount int64) {
	s.Total += count
	s.ByStatus[status] += count
	if status == model.BookingStatusCancelled {
		return
	}
	s.NonCancelledAmount += amount
	s.ByCurrency[currency] += amount
}

// Summarize считает агрегаты по уже выбранным броням (например, по странице).
func Summarize(bookings []model.Booking) Stats {
	s := newStats()
	for _, b := range bookings {
		s.add(b.Status, b.Currency, 1, b.TotalAmount)
	}
	return s
}

// Query — чтение броней и доступности. Каждый вызов читает из хранилища.
type Query struct {
	bookings repository.BookingRepository
	index    *availability.Index
	engine   *Engine
}

func NewQuery(bookings repository.BookingRepository, index *availability.Index, engine *Engine) *Query {
	return &Query{bookings: bookings, index: index, engine: engine}
}

// List возвращает страницу броней и общее количество по фильтру. Статусы и
// фильтр по статусу учитывают ленивое завершение.
func (q *Query) List(ctx context.Context, f Filter) (calendar.Page[model.Booking], error) {
	rf, err := toRepoFilter(f)
	if err != nil {
		return calendar.Page[model.Booking]{}, err
	}
	if err := q.settleEnded(ctx, rf); err != nil {
		return calendar.Page[model.Booking]{}, err
	}
	rf.Offset, rf.Limit = calendar.NormalizeLimits(f.Offset, f.Limit)

	items, total, err := q.bookings.List(ctx, rf)
	if err != nil {
		return calendar.Page[model.Booking]{}, err
	}
	return calendar.NewPage(items, rf.Offset, rf.Limit, total), nil
}

// Get возвращает бронь по id. Confirmed-бронь с прошедшим окном при чтении
// переводится в completed.
func (q *Query) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := q.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.engine == nil {
		return b, nil
	}
	return q.engine.Settle(ctx, b)
}

// Stats — агрегаты по всем броням фильтра, без пагинации.
func (q *Query) Stats(ctx context.Context, f Filter) (Stats, error) {
	rf, err := toRepoFilter(f)
	if err != nil {
		return Stats{}, err
	}
	if err := q.settleEnded(ctx, rf); err != nil {
		return Stats{}, err
	}
	rows, err := q.bookings.Stats(ctx, rf)
	if err != nil {
		return Stats{}, err
	}
	s := newStats()
	for _, r := range rows {
		s.add(r.Status, r.Currency, r.Count, r.Amount)
	}
	return s, nil
}

// Availability — опубликованные слоты ресурса за диапазон дат.
func (q *Query) Availability(ctx context.Context, resourceID uuid.UUID, startDate, endDate string) ([]availability.AvailabilitySlot, error) {
	r, err := calendar.ParseDateRange(startDate, endDate)
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidDateRange, "%v", err).WithField("endDate")
	}
	return q.index.GetAvailability(ctx, resourceID, r)
}

// settleEnded завершает confirmed-брони фильтра, окно которых уже прошло,
// до того как выборка или агрегаты прочитают их статус.
func (q *Query) settleEnded(ctx context.Context, rf repository.BookingFilter) error {
	if q.engine == nil {
		return nil
	}
	if len(rf.Statuses) > 0 &&
		!slices.Contains(rf.Statuses, model.BookingStatusConfirmed) &&
		!slices.Contains(rf.Statuses, model.BookingStatusCompleted) {
		return nil
	}
	rf.Statuses = []model.BookingStatus{model.BookingStatusConfirmed}
	rf.EndsBy = q.engine.today().String()
	rf.Offset, rf.Limit = 0, 0

	due, _, err := q.bookings.List(ctx, rf)
	if err != nil {
		return err
	}
	for i := range due {
		_, err := q.engine.Settle(ctx, &due[i])
		// Параллельный запрос мог завершить бронь раньше.
		if err != nil && apperror.KindOf(err) != apperror.KindInvalidTransition {
			return err
		}
	}
	return nil
}

func toRepoFilter(f Filter) (repository.BookingFilter, error) {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return repository.BookingFilter{}, apperror.New(apperror.KindInvalidRequest, "unknown status %q", s).
				WithField("status")
		}
	}
	if f.BookingType != "" && !f.BookingType.Valid() {
		return repository.BookingFilter{}, apperror.New(apperror.KindInvalidRequest, "unknown booking type %q", f.BookingType).
			WithField("bookingType")
	}
	if f.From != "" {
		if _, err := calendar.ParseDate(f.From); err != nil {
			return repository.BookingFilter{}, apperror.New(apperror.KindInvalidDateRange, "%v", err).WithField("startDate")
		}
	}
	if f.To != "" {
		if _, err := calendar.ParseDate(f.To); err != nil {
			return repository.BookingFilter{}, apperror.New(apperror.KindInvalidDateRange, "%v", err).WithField("endDate")
		}
	}
	if f.From != "" && f.To != "" && f.To < f.From {
		return repository.BookingFilter{}, apperror.New(apperror.KindInvalidDateRange, "endDate %s is before startDate %s", f.To, f.From).
			WithField("endDate")
	}
	return repository.BookingFilter{
		Statuses:    f.Statuses,
		BookingType: f.BookingType,
		ResourceID:  f.ResourceID,
		EventID:     f.EventID,
		UserID:      f.UserID,
		From:        f.From,
		To:          f.To,
	}, nil
}
