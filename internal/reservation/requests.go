package reservation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/model"
)

// Contact — контакты заявителя.
type Contact struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// CreateRequest — заявка на бронь. Заполняется ровно одно из ResourceID и
// EventID, в соответствии с BookingType.
type CreateRequest struct {
	BookingType model.BookingType `json:"bookingType" validate:"required,oneof=venue event"`
	ResourceID  *uuid.UUID        `json:"resourceId,omitempty"`
	EventID     *uuid.UUID        `json:"eventId,omitempty"`

	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`

	AttendeeCount int    `json:"attendeeCount"`
	TotalAmount   int64  `json:"totalAmount" validate:"gte=0"`
	Currency      string `json:"currency" validate:"required,len=3,uppercase"`

	Contact Contact `json:"contactInfo" validate:"required"`
	Notes   string  `json:"notes" validate:"max=2000"`
}

// UpdateRequest — изменения pending-брони. nil — поле не меняется.
type UpdateRequest struct {
	StartDate     *string  `json:"startDate,omitempty"`
	EndDate       *string  `json:"endDate,omitempty"`
	StartTime     *string  `json:"startTime,omitempty"`
	EndTime       *string  `json:"endTime,omitempty"`
	AttendeeCount *int     `json:"attendeeCount,omitempty"`
	TotalAmount   *int64   `json:"totalAmount,omitempty" validate:"omitempty,gte=0"`
	Contact       *Contact `json:"contactInfo,omitempty"`
	Notes         *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`

	// ExpectedVersion > 0 — изменение применяется только к этой версии брони.
	ExpectedVersion int `json:"expectedVersion,omitempty" validate:"gte=0"`
}

func (r UpdateRequest) changesWindow() bool {
	return r.StartDate != nil || r.EndDate != nil || r.StartTime != nil || r.EndTime != nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// В ошибках — имена полей как в JSON.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct переводит ошибки validator в InvalidRequest с первым
// невалидным полем.
func validateStruct(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		return apperror.New(apperror.KindInvalidRequest, "%s failed on %q", field, fe.Tag()).WithField(field)
	}
	return apperror.New(apperror.KindInvalidRequest, "%v", err)
}

// checkTarget проверяет, что заполнена ровно одна ссылка и она соответствует типу.
func checkTarget(t model.BookingType, resourceID, eventID *uuid.UUID) (uuid.UUID, error) {
	switch {
	case resourceID != nil && eventID != nil:
		return uuid.Nil, apperror.New(apperror.KindInvalidRequest, "a booking targets either a venue or an event, not both").
			WithField("eventId")
	case t == model.BookingTypeVenue && resourceID != nil && *resourceID != uuid.Nil:
		return *resourceID, nil
	case t == model.BookingTypeEvent && eventID != nil && *eventID != uuid.Nil:
		return *eventID, nil
	case t == model.BookingTypeEvent:
		return uuid.Nil, apperror.New(apperror.KindInvalidRequest, "eventId is required for event bookings").
			WithField("eventId")
	default:
		return uuid.Nil, apperror.New(apperror.KindInvalidRequest, "resourceId is required for venue bookings").
			WithField("resourceId")
	}
}
