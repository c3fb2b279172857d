// Package reservationv1 — контракт gRPC-сервиса бронирования
// reservation.v1.ReservationService. Сообщения передаются JSON-кодеком.
package reservationv1

import "google.golang.org/protobuf/types/known/timestamppb"

type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	Id            string       `json:"id"`
	BookingType   string       `json:"booking_type"`
	ResourceId    string       `json:"resource_id,omitempty"`
	EventId       string       `json:"event_id,omitempty"`
	UserId        string       `json:"user_id"`
	StartDate     string       `json:"start_date"`
	EndDate       string       `json:"end_date"`
	StartTime     string       `json:"start_time"`
	EndTime       string       `json:"end_time"`
	AttendeeCount int32        `json:"attendee_count"`
	TotalAmount   int64        `json:"total_amount"`
	Currency      string       `json:"currency"`
	PaymentStatus string       `json:"payment_status"`
	PaymentId     string       `json:"payment_id,omitempty"`
	Status        string       `json:"status"`
	ContactInfo   *ContactInfo `json:"contact_info,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CancelReason  string       `json:"cancel_reason,omitempty"`
	Version       int32        `json:"version"`

	CreatedAt   *timestamppb.Timestamp `json:"created_at,omitempty"`
	UpdatedAt   *timestamppb.Timestamp `json:"updated_at,omitempty"`
	ConfirmedAt *timestamppb.Timestamp `json:"confirmed_at,omitempty"`
	CancelledAt *timestamppb.Timestamp `json:"cancelled_at,omitempty"`
	CompletedAt *timestamppb.Timestamp `json:"completed_at,omitempty"`
}

type CreateBookingRequest struct {
	BookingType   string       `json:"booking_type"`
	ResourceId    string       `json:"resource_id,omitempty"`
	EventId       string       `json:"event_id,omitempty"`
	StartDate     string       `json:"start_date"`
	EndDate       string       `json:"end_date"`
	StartTime     string       `json:"start_time"`
	EndTime       string       `json:"end_time"`
	AttendeeCount int32        `json:"attendee_count"`
	TotalAmount   int64        `json:"total_amount"`
	Currency      string       `json:"currency"`
	ContactInfo   *ContactInfo `json:"contact_info,omitempty"`
	Notes         string       `json:"notes,omitempty"`
}

// UpdateBookingRequest: nil-поля не меняются.
type UpdateBookingRequest struct {
	BookingId       string       `json:"booking_id"`
	StartDate       *string      `json:"start_date,omitempty"`
	EndDate         *string      `json:"end_date,omitempty"`
	StartTime       *string      `json:"start_time,omitempty"`
	EndTime         *string      `json:"end_time,omitempty"`
	AttendeeCount   *int32       `json:"attendee_count,omitempty"`
	TotalAmount     *int64       `json:"total_amount,omitempty"`
	ContactInfo     *ContactInfo `json:"contact_info,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
	ExpectedVersion int32        `json:"expected_version,omitempty"`
}

type ConfirmBookingRequest struct {
	BookingId string `json:"booking_id"`
}

type CancelBookingRequest struct {
	BookingId string `json:"booking_id"`
	Reason    string `json:"reason,omitempty"`
}

type CompleteBookingRequest struct {
	BookingId string `json:"booking_id"`
}

type GetBookingRequest struct {
	BookingId string `json:"booking_id"`
}

type BookingResponse struct {
	Booking *Booking `json:"booking"`
}

type BookingFilter struct {
	Status      []string `json:"status,omitempty"`
	BookingType string   `json:"booking_type,omitempty"`
	ResourceId  string   `json:"resource_id,omitempty"`
	EventId     string   `json:"event_id,omitempty"`
	UserId      string   `json:"user_id,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
}

type ListBookingsRequest struct {
	Filter *BookingFilter `json:"filter,omitempty"`
	Offset int32          `json:"offset,omitempty"`
	Limit  int32          `json:"limit,omitempty"`
}

type ListBookingsResponse struct {
	Bookings   []*Booking `json:"bookings"`
	TotalCount int64      `json:"total_count"`
	Offset     int32      `json:"offset"`
	Limit      int32      `json:"limit"`
}

type BookingStatsRequest struct {
	Filter *BookingFilter `json:"filter,omitempty"`
}

type BookingStatsResponse struct {
	Total                  int64            `json:"total"`
	ByStatus               map[string]int64 `json:"by_status"`
	NonCancelledAmount     int64            `json:"non_cancelled_amount"`
	NonCancelledByCurrency map[string]int64 `json:"non_cancelled_by_currency"`
}

type GetAvailabilityRequest struct {
	ResourceId string `json:"resource_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

type TimeSlot struct {
	Id        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
	BookingId string `json:"booking_id,omitempty"`
}

type AvailabilityDay struct {
	Date  string      `json:"date"`
	Slots []*TimeSlot `json:"slots"`
}

type GetAvailabilityResponse struct {
	ResourceId string             `json:"resource_id"`
	Days       []*AvailabilityDay `json:"days"`
}

type PublishAvailabilityRequest struct {
	ResourceId  string   `json:"resource_id"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	SlotMinutes int32    `json:"slot_minutes"`
	Weekdays    []int32  `json:"weekdays,omitempty"`
	Interval    int32    `json:"interval,omitempty"`
	ExceptDates []string `json:"except_dates,omitempty"`
}

type PublishAvailabilityResponse struct {
	Published int32 `json:"published"`
}
