// Package events announces appointment changes to other services.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	AppointmentReserved  = "APPOINTMENT_RESERVED"
	AppointmentAccepted  = "APPOINTMENT_ACCEPTED"
	AppointmentRejected  = "APPOINTMENT_REJECTED"
	AppointmentCancelled = "APPOINTMENT_CANCELLED"
	AppointmentCompleted = "APPOINTMENT_COMPLETED"
	AppointmentRated     = "APPOINTMENT_RATED"
	AppointmentUpdated   = "APPOINTMENT_UPDATED"
	AppointmentsDeleted  = "APPOINTMENTS_DELETED"
	SlotOpened           = "SLOT_OPENED"
)

type Event struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

var ErrNotConfirmed = errors.New("broker did not confirm event")

// confirmer is the part of an amqp.Channel in confirm mode the publisher uses.
type confirmer interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
	Close() error
}

type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type amqpChannel struct {
	*amqp.Channel
}

func (c amqpChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return dc, nil
}

// AMQPPublisher publishes persistent JSON events to a topic exchange and
// waits for the broker confirm of each one. The routing key is the
// lower-cased event type.
type AMQPPublisher struct {
	ch       confirmer
	exchange string
	log      *zap.Logger
}

func NewAMQPPublisher(conn *amqp.Connection, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return newPublisher(amqpChannel{ch}, exchange, log), nil
}

func newPublisher(ch confirmer, exchange string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, log: log}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    ev.ID.String(),
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}

	confirm, err := p.ch.publish(ctx, p.exchange, RoutingKey(ev.Type), msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	ack, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	if !ack {
		return fmt.Errorf("publish %s: %w", ev.Type, ErrNotConfirmed)
	}

	p.log.Debug("event published", zap.String("type", ev.Type), zap.String("event_id", ev.ID.String()))
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}

// RoutingKey maps APPOINTMENT_RESERVED to appointment.reserved.
func RoutingKey(eventType string) string {
	b := []byte(eventType)
	for i, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		case c == '_':
			b[i] = '.'
		}
	}
	return string(b)
}
