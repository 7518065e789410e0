// Package events fans card lifecycle events out to the configured sinks.
// Publishing is fire-and-forget: a slow or failing sink never blocks or
// fails a state transition.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vcard-service/internal/model"
	"vcard-service/internal/util"
)

type Type string

const (
	CardCreated            Type = "card.created"
	CardConfirmed          Type = "card.confirmed"
	CardExpired            Type = "card.expired"
	CardRefundAcknowledged Type = "card.refund_acknowledged"
)

type Event struct {
	ID          string                `json:"id"`
	Type        Type                  `json:"type"`
	DeviceID    string                `json:"deviceId"`
	User        string                `json:"user"` // email fingerprint
	Transaction model.CardTransaction `json:"transaction"`
	OccurredAt  time.Time             `json:"occurredAt"`
}

// New builds an event for tx. The email is stored only as a fingerprint.
func New(typ Type, deviceID, email string, tx model.CardTransaction, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        typ,
		DeviceID:    deviceID,
		User:        util.Fingerprint(email),
		Transaction: tx,
		OccurredAt:  at.UTC(),
	}
}

// Sink delivers one event to an external system.
type Sink interface {
	Name() string
	Publish(ctx context.Context, e Event) error
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event) {}
