package calendar

import (
	"errors"
	"sort"
	"time"

	"github.com/jinzhu/now"
)

// SplitToTimeSlots разбивает интервал суток на слоты фиксированной длительности.
// alignMinutes > 0 — выравнивание начала по ближайшей отметке, кратной alignMinutes.
// "Хвост" меньшей длительности, чем slotDuration, отбрасывается.
func SplitToTimeSlots(w Window, slotDuration time.Duration, alignMinutes int) ([]Window, error) {
	step := Clock(slotDuration / time.Minute)
	if step <= 0 {
		return nil, ErrSlotDuration
	}
	if w.End <= w.Start {
		return []Window{}, nil
	}

	start := w.Start
	if alignMinutes > 0 {
		if rem := int(start) % alignMinutes; rem != 0 {
			start += Clock(alignMinutes - rem)
		}
		if start >= w.End {
			return []Window{}, nil
		}
	}

	var slots []Window
	for cur := start; cur+step <= w.End; cur += step {
		slots = append(slots, Window{Start: cur, End: cur + step})
	}
	return slots, nil
}

// HasOverlap проверяет, пересекается ли w с existing, и возвращает конфликты.
// inclusive = true — касание концами считается пересечением.
func HasOverlap(w Window, existing []Window, inclusive bool) (bool, []Window) {
	var conflicts []Window
	for _, e := range existing {
		if windowsOverlap(w, e, inclusive) {
			conflicts = append(conflicts, e)
		}
	}
	return len(conflicts) > 0, conflicts
}

func windowsOverlap(a, b Window, inclusive bool) bool {
	if inclusive {
		return a.Start <= b.End && b.Start <= a.End
	}
	return a.Overlaps(b)
}

// Covers сообщает, покрывают ли слоты интервал w без пропусков.
// Слоты должны быть отсортированы по Start и не пересекаться.
func Covers(slots []Window, w Window) bool {
	cursor := w.Start
	for _, s := range slots {
		if s.End <= cursor {
			continue
		}
		if s.Start > cursor {
			return false
		}
		cursor = s.End
		if cursor >= w.End {
			return true
		}
	}
	return cursor >= w.End
}

// SortWindows сортирует интервалы по началу.
func SortWindows(ws []Window) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].Start < ws[j].Start })
}

// ===== Правила повторения =====

type RecurrenceFrequency int

const (
	FreqDaily RecurrenceFrequency = iota
	FreqWeekly
)

type RecurringRule struct {
	Freq     RecurrenceFrequency
	Interval int            // каждые Interval дней/недель (>=1)
	Weekdays []time.Weekday // для FreqWeekly; пусто — день недели первой даты
	// Исключения по датам.
	Exceptions map[Date]struct{}
}

// Недели правил повторения начинаются с понедельника.
var weekConfig = &now.Config{WeekStartDay: time.Monday}

// ExpandRecurringRule разворачивает правило в набор дат внутри window.
// Отсчёт повторений идёт от window.Start: для FreqDaily — в днях, для
// FreqWeekly — в календарных неделях, начиная с недели window.Start.
func ExpandRecurringRule(rule RecurringRule, window DateRange) ([]Date, error) {
	if window.Start.IsZero() || window.End.Before(window.Start) {
		return nil, errors.New("recurring rule: invalid window")
	}
	if rule.Interval <= 0 {
		rule.Interval = 1
	}

	weekdays := rule.Weekdays
	if rule.Freq == FreqWeekly && len(weekdays) == 0 {
		weekdays = []time.Weekday{window.Start.Weekday()}
	}

	firstWeek := window.Start.weekStart()
	var result []Date
	for _, d := range window.Days() {
		offset := window.Start.daysUntil(d)
		switch rule.Freq {
		case FreqWeekly:
			week := firstWeek.daysUntil(d.weekStart()) / 7
			if week%rule.Interval != 0 || !containsWeekday(weekdays, d.Weekday()) {
				continue
			}
		default:
			if offset%rule.Interval != 0 {
				continue
			}
		}
		if _, skip := rule.Exceptions[d]; skip {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

func (d Date) daysUntil(o Date) int {
	return int(o.t.Sub(d.t) / (24 * time.Hour))
}

func (d Date) weekStart() Date {
	return Date{t: weekConfig.With(d.t).BeginningOfWeek()}
}

func containsWeekday(list []time.Weekday, w time.Weekday) bool {
	for _, d := range list {
		if d == w {
			return true
		}
	}
	return false
}
