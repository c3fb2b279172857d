package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind — класс бизнес-ошибки подсистемы бронирования.
type Kind string

const (
	KindInvalidDateRange    Kind = "invalid_date_range"
	KindCapacityExceeded    Kind = "capacity_exceeded"
	KindResourceUnavailable Kind = "resource_unavailable"
	KindSlotConflict        Kind = "slot_conflict"
	KindSlotNotFound        Kind = "slot_not_found"
	KindInvalidTransition   Kind = "invalid_transition"
	KindNotFound            Kind = "not_found"
	KindInvalidRequest      Kind = "invalid_request"
	KindImmutableField      Kind = "immutable_field"
	KindPermissionDenied    Kind = "permission_denied"
)

// Sentinels for errors.Is; matching is by Kind only.
var (
	ErrInvalidDateRange    = &Error{Kind: KindInvalidDateRange}
	ErrCapacityExceeded    = &Error{Kind: KindCapacityExceeded}
	ErrResourceUnavailable = &Error{Kind: KindResourceUnavailable}
	ErrSlotConflict        = &Error{Kind: KindSlotConflict}
	ErrSlotNotFound        = &Error{Kind: KindSlotNotFound}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrImmutableField      = &Error{Kind: KindImmutableField}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
)

// Error — типизированный отказ с деталями для слоя представления:
// какое поле, в каком статусе была запись, на какую дату конфликт.
type Error struct {
	Kind   Kind
	Field  string
	Status string
	Date   string
	Detail string
}

func (e *Error) Error() string {
	parts := []string{string(e.Kind)}
	if e.Field != "" {
		parts = append(parts, "field="+e.Field)
	}
	if e.Status != "" {
		parts = append(parts, "status="+e.Status)
	}
	if e.Date != "" {
		parts = append(parts, "date="+e.Date)
	}
	msg := strings.Join(parts, " ")
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is сравнивает только Kind, чтобы errors.Is(err, ErrSlotConflict) работал
// независимо от деталей.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

func (e *Error) WithStatus(status string) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

func (e *Error) WithDate(date string) *Error {
	cp := *e
	cp.Date = date
	return &cp
}

// As достаёт *Error из цепочки обёрток.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf возвращает Kind ошибки или пустую строку для инфраструктурных ошибок.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

func NotFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Field: what, Detail: fmt.Sprintf("%s %s not found", what, id)}
}

func InvalidTransition(from, event string) *Error {
	return &Error{
		Kind:   KindInvalidTransition,
		Status: from,
		Detail: fmt.Sprintf("cannot %s booking in status %s", event, from),
	}
}
