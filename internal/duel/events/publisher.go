package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/taskduel/taskduel/internal/duel"
)

// Subjects carrying duel lifecycle events. Outbound notification delivery is
// handled by external consumers of these subjects.
const (
	SubjectDuelStarted   = "duel.events.started"
	SubjectDuelCompleted = "duel.events.completed"
)

// Event types carried in the envelope.
const (
	TypeDuelStarted   = "DuelStarted"
	TypeDuelCompleted = "DuelCompleted"
)

// Envelope wraps every published lifecycle event.
type Envelope struct {
	EventID   string          `json:"event_id"`
	DuelID    string          `json:"duel_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// DuelStartedPayload carries the initial snapshot of a freshly created duel.
type DuelStartedPayload struct {
	Fight duel.Snapshot `json:"fight"`
}

// DuelCompletedPayload carries the final outcome of a duel.
type DuelCompletedPayload struct {
	WinnerAccountID *string `json:"winner_account_id"`
	Draw            bool    `json:"draw"`
}

// Publisher publishes duel lifecycle events to NATS.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials NATS with infinite reconnects and logged connection state
// changes.
func Connect(url string) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// PublishDuelStarted announces a duel's creation with its initial snapshot.
func (p *Publisher) PublishDuelStarted(duelID uuid.UUID, snap duel.Snapshot) error {
	return p.publish(SubjectDuelStarted, TypeDuelStarted, duelID, DuelStartedPayload{Fight: snap})
}

// PublishDuelCompleted announces a duel's final outcome.
func (p *Publisher) PublishDuelCompleted(duelID uuid.UUID, winnerAccountID *string, draw bool) error {
	return p.publish(SubjectDuelCompleted, TypeDuelCompleted, duelID, DuelCompletedPayload{
		WinnerAccountID: winnerAccountID,
		Draw:            draw,
	})
}

func (p *Publisher) publish(subject, eventType string, duelID uuid.UUID, payload any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	envelope := Envelope{
		EventID:   uuid.New().String(),
		DuelID:    duelID.String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
