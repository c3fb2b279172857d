// Package consumer применяет результаты платежей, пришедшие из брокера.
package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/events"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/repository"
)

// PaymentRecorder — часть ядра, применяющая статус платежа к брони.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, id uuid.UUID, paymentID string, status model.PaymentStatus) (*model.Booking, error)
}

// Outcome — что сделать с сообщением после обработки.
type Outcome int

const (
	Ack Outcome = iota
	// Requeue — временная ошибка, сообщение вернётся в очередь.
	Requeue
	// Drop — сообщение не разбирается, повтор бессмыслен.
	Drop
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	default:
		return "drop"
	}
}

var keyStatus = map[string]model.PaymentStatus{
	events.RKPaymentPaid:     model.PaymentStatusPaid,
	events.RKPaymentFailed:   model.PaymentStatusFailed,
	events.RKPaymentRefunded: model.PaymentStatusRefunded,
}

// PaymentHandler обрабатывает одно сообщение о платеже. Повторная доставка
// того же message_id ничего не меняет.
type PaymentHandler struct {
	recorder PaymentRecorder
	messages repository.MessageRepository
	log      logrus.FieldLogger
}

func NewPaymentHandler(recorder PaymentRecorder, messages repository.MessageRepository, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{recorder: recorder, messages: messages, log: log}
}

// Handle: бизнес-отказ (бронь не найдена, переход недопустим) подтверждается
// и только журналируется; ошибки хранилища возвращают сообщение в очередь.
func (h *PaymentHandler) Handle(ctx context.Context, routingKey, deliveryID string, body []byte) Outcome {
	log := h.log.WithField("routing_key", routingKey)

	status, ok := keyStatus[routingKey]
	if !ok {
		log.Debug("ignore message")
		return Ack
	}

	env, err := events.Unmarshal[events.Envelope[events.Payment]](body)
	if err != nil {
		log.WithError(err).Warn("malformed payment message")
		return Drop
	}
	bookingID, err := uuid.Parse(env.Data.BookingID)
	if err != nil {
		log.WithField("booking_id", env.Data.BookingID).Warn("payment message without valid booking id")
		return Drop
	}

	msgID := messageID(env.MessageID, deliveryID, routingKey, env.Data.PaymentID)
	log = log.WithFields(logrus.Fields{
		"message_id": msgID,
		"booking_id": bookingID,
		"payment_id": env.Data.PaymentID,
	})

	seen, err := h.messages.Seen(ctx, msgID)
	if err != nil {
		log.WithError(err).Error("check processed message")
		return Requeue
	}
	if seen {
		log.Debug("duplicate payment message")
		return Ack
	}

	if _, err := h.recorder.RecordPayment(ctx, bookingID, env.Data.PaymentID, status); err != nil {
		if _, business := apperror.As(err); !business || errors.Is(err, context.Canceled) {
			log.WithError(err).Error("record payment")
			return Requeue
		}
		log.WithError(err).Warn("payment result rejected")
	}

	if err := h.messages.MarkProcessed(ctx, msgID, routingKey); err != nil {
		// Повтор безопасен: тот же статус с тем же payment id — no-op.
		log.WithError(err).Warn("mark message processed")
	}
	return Ack
}

func messageID(envelopeID, deliveryID, routingKey, paymentID string) string {
	switch {
	case envelopeID != "":
		return envelopeID
	case deliveryID != "":
		return deliveryID
	default:
		return fmt.Sprintf("%s:%s", routingKey, paymentID)
	}
}

// Run читает deliveries до закрытия канала или отмены ctx.
func (h *PaymentHandler) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			h.settle(d, h.Handle(ctx, d.RoutingKey, d.MessageId, d.Body))
		}
	}
}

func (h *PaymentHandler) settle(d amqp.Delivery, o Outcome) {
	var err error
	switch o {
	case Ack:
		err = d.Ack(false)
	case Requeue:
		err = d.Nack(false, true)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		h.log.WithError(err).WithField("outcome", o.String()).Warn("settle delivery")
	}
}
