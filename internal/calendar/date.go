package calendar

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	minutesPerDay = 24 * 60
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidClock     = errors.New("invalid time of day")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrSlotDuration     = errors.New("slot duration must be positive")
)

// Date — календарная дата без времени и часового пояса.
type Date struct {
	t time.Time // полночь UTC
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// DateOf возвращает календарную дату момента t в его собственном часовом поясе.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// At возвращает момент времени c в дату d в часовом поясе loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(d.t.Year(), d.t.Month(), d.t.Day(), 0, 0, 0, 0, loc)
	return start.Add(time.Duration(c) * time.Minute)
}

// Clock — время суток в минутах от полуночи, [0, 1440]. 24:00 допустимо
// только как конец интервала.
type Clock int

const EndOfDay Clock = minutesPerDay

func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

// ParseClock разбирает время в формате HH:MM.
func ParseClock(s string) (Clock, error) {
	if s == "24:00" {
		return EndOfDay, nil
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return NewClock(t.Hour(), t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) Valid() bool { return c >= 0 && c <= EndOfDay }

// Window — полуоткрытый интервал времени суток [Start, End).
type Window struct {
	Start Clock
	End   Clock
}

func NewWindow(start, end Clock) (Window, error) {
	if !start.Valid() || !end.Valid() || end <= start {
		return Window{}, ErrInvalidTimeRange
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindow разбирает пару HH:MM в интервал.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	return NewWindow(s, e)
}

func (w Window) String() string { return w.Start.String() + "–" + w.End.String() }

func (w Window) Duration() time.Duration { return time.Duration(w.End-w.Start) * time.Minute }

func (w Window) Overlaps(o Window) bool { return w.Start < o.End && o.Start < w.End }

func (w Window) Contains(o Window) bool { return w.Start <= o.Start && o.End <= w.End }

// DateRange — включительный диапазон дат [Start, End].
type DateRange struct {
	Start Date
	End   Date
}

func NewDateRange(start, end Date) (DateRange, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange разбирает пару YYYY-MM-DD.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

func (r DateRange) String() string { return r.Start.String() + ".." + r.End.String() }

// Len — количество дней в диапазоне.
func (r DateRange) Len() int {
	return int(r.End.t.Sub(r.Start.t)/(24*time.Hour)) + 1
}

func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps — есть ли у диапазонов общий день.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.End.Before(o.Start) && !o.End.Before(r.Start)
}

// Days разворачивает диапазон в список дат по возрастанию.
func (r DateRange) Days() []Date {
	days := make([]Date, 0, r.Len())
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// FormatSlot форматирует слот в строку вида "Sat, 01.06.2024, 10:00–12:00".
func FormatSlot(d Date, w Window) string {
	return fmt.Sprintf("%s, %s, %s", d.Weekday().String()[:3], d.t.Format("02.01.2006"), w.String())
}
