package reservation

import (
	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/model"
)

// Transition — событие жизненного цикла брони.
type Transition string

const (
	TransitionUpdate   Transition = "update"
	TransitionConfirm  Transition = "confirm"
	TransitionCancel   Transition = "cancel"
	TransitionComplete Transition = "complete"
)

// Таблица переходов. Из cancelled и completed переходов нет.
var transitions = map[model.BookingStatus]map[Transition]model.BookingStatus{
	model.BookingStatusPending: {
		TransitionUpdate:  model.BookingStatusPending,
		TransitionConfirm: model.BookingStatusConfirmed,
		TransitionCancel:  model.BookingStatusCancelled,
	},
	model.BookingStatusConfirmed: {
		TransitionCancel:   model.BookingStatusCancelled,
		TransitionComplete: model.BookingStatusCompleted,
	},
}

// Next возвращает статус после перехода или InvalidTransition.
func Next(from model.BookingStatus, t Transition) (model.BookingStatus, error) {
	to, ok := transitions[from][t]
	if !ok {
		return "", apperror.InvalidTransition(string(from), string(t))
	}
	return to, nil
}

// Допустимые изменения статуса платежа по сообщениям платёжного сервиса.
// paid -> refunded происходит при отмене брони.
var paymentTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentStatusPending: {model.PaymentStatusPaid, model.PaymentStatusFailed},
	model.PaymentStatusFailed:  {model.PaymentStatusPaid},
	model.PaymentStatusPaid:    {model.PaymentStatusRefunded},
}

func nextPayment(from, to model.PaymentStatus) error {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return nil
		}
	}
	return apperror.New(apperror.KindInvalidTransition, "payment status cannot change from %s to %s", from, to).
		WithField("paymentStatus").
		WithStatus(string(from))
}

// paymentAfterCancel — статус платежа после отмены брони.
func paymentAfterCancel(p model.PaymentStatus) model.PaymentStatus {
	if p == model.PaymentStatusPaid {
		return model.PaymentStatusRefunded
	}
	return p
}
