// Package events описывает сообщения брокера: исходящие события броней и
// входящие результаты платежей.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys.
const (
	RKBookingCreated   = "booking.created"
	RKBookingUpdated   = "booking.updated"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCancelled = "booking.cancelled"
	RKBookingCompleted = "booking.completed"

	RKPaymentPaid     = "payment.paid"
	RKPaymentFailed   = "payment.failed"
	RKPaymentRefunded = "payment.refunded"
)

// PaymentKeys — ключи, на которые подписан приёмник платежей.
var PaymentKeys = []string{RKPaymentPaid, RKPaymentFailed, RKPaymentRefunded}

const envelopeVersion = 1

// Envelope — общий конверт сообщения.
type Envelope[T any] struct {
	Event      string    `json:"event"`
	Version    int       `json:"version"`
	MessageID  string    `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       T         `json:"data"`
}

func NewEnvelope[T any](event, messageID string, at time.Time, data T) Envelope[T] {
	return Envelope[T]{
		Event:      event,
		Version:    envelopeVersion,
		MessageID:  messageID,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}

// ID — идентификатор сообщения для дедупликации на стороне получателя.
func (e Envelope[T]) ID() string { return e.MessageID }

// Booking — снимок брони в исходящем событии.
type Booking struct {
	BookingID     string `json:"booking_id"`
	BookingType   string `json:"booking_type"`
	ResourceID    string `json:"resource_id,omitempty"`
	EventID       string `json:"event_id,omitempty"`
	UserID        string `json:"user_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	AttendeeCount int    `json:"attendee_count"`
	TotalAmount   int64  `json:"total_amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Actor         string `json:"actor,omitempty"`
}

// Payment — результат платежа от платёжного сервиса.
type Payment struct {
	PaymentID      string `json:"payment_id"`
	BookingID      string `json:"booking_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}

func Unmarshal[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
