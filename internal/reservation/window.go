package reservation

import (
	"time"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/model"
)

// bookingWindow — диапазон дат и ежедневное окно [Start, End), которое
// действует на каждую дату диапазона.
type bookingWindow struct {
	Dates calendar.DateRange
	Time  calendar.Window
}

func parseBookingWindow(startDate, endDate, startTime, endTime string) (bookingWindow, error) {
	invalid := func(field, format string, args ...any) *apperror.Error {
		return apperror.New(apperror.KindInvalidDateRange, format, args...).WithField(field)
	}

	sd, err := calendar.ParseDate(startDate)
	if err != nil {
		return bookingWindow{}, invalid("startDate", "startDate must be YYYY-MM-DD, got %q", startDate)
	}
	ed, err := calendar.ParseDate(endDate)
	if err != nil {
		return bookingWindow{}, invalid("endDate", "endDate must be YYYY-MM-DD, got %q", endDate)
	}
	st, err := calendar.ParseClock(startTime)
	if err != nil || st == calendar.EndOfDay {
		return bookingWindow{}, invalid("startTime", "startTime must be HH:MM, got %q", startTime)
	}
	et, err := calendar.ParseClock(endTime)
	if err != nil {
		return bookingWindow{}, invalid("endTime", "endTime must be HH:MM, got %q", endTime)
	}

	dates, err := calendar.NewDateRange(sd, ed)
	if err != nil {
		return bookingWindow{}, invalid("endDate", "endDate %s is before startDate %s", ed, sd).WithDate(sd.String())
	}
	w, err := calendar.NewWindow(st, et)
	if err != nil {
		return bookingWindow{}, invalid("endTime", "endTime %s must be after startTime %s", et, st).WithDate(sd.String())
	}
	return bookingWindow{Dates: dates, Time: w}, nil
}

func windowOf(b *model.Booking) (bookingWindow, error) {
	return parseBookingWindow(b.StartDate, b.EndDate, b.StartTime, b.EndTime)
}

// Start — момент начала брони.
func (w bookingWindow) Start(loc *time.Location) time.Time {
	return w.Dates.Start.At(w.Time.Start, loc)
}

// End — момент окончания окна в последнюю дату.
func (w bookingWindow) End(loc *time.Location) time.Time {
	return w.Dates.End.At(w.Time.End, loc)
}

func (w bookingWindow) equal(o bookingWindow) bool {
	return w.Dates.Start.Equal(o.Dates.Start) && w.Dates.End.Equal(o.Dates.End) && w.Time == o.Time
}
