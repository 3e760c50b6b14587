package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/taskduel/taskduel/internal/challenge"
	"github.com/taskduel/taskduel/internal/duel"
)

const finalizeTimeout = 5 * time.Second

// ChallengeStore is what the gateway needs from challenge persistence: the
// connect-time lookup and the single finalize write.
type ChallengeStore interface {
	LiveChallengeByAccount(ctx context.Context, accountID string) (*challenge.Challenge, error)
	CompleteChallenge(ctx context.Context, id uuid.UUID, winnerAccountID *string) error
}

// EventPublisher announces duel lifecycle events to external collaborators.
type EventPublisher interface {
	PublishDuelStarted(duelID uuid.UUID, snap duel.Snapshot) error
	PublishDuelCompleted(duelID uuid.UUID, winnerAccountID *string, draw bool) error
}

// Config holds the duel timing settings the orchestrator applies to every
// session it creates.
type Config struct {
	Countdown    time.Duration
	Round        time.Duration
	PollInterval time.Duration
}

// DefaultConfig returns the domain default timings.
func DefaultConfig() Config {
	return Config{
		Countdown:    duel.DefaultCountdown,
		Round:        duel.DefaultRound,
		PollInterval: 100 * time.Millisecond,
	}
}

// Orchestrator drives duel sessions: it routes inbound messages through the
// action resolver, broadcasts state to both participants, and performs the
// single finalize-and-persist step when a duel ends.
type Orchestrator struct {
	registry  *duel.Registry
	store     ChallengeStore
	publisher EventPublisher
	clock     clockwork.Clock
	cfg       Config
	manager   *ConnectionManager
}

// NewOrchestrator wires an orchestrator and its connection manager together.
func NewOrchestrator(registry *duel.Registry, store ChallengeStore, publisher EventPublisher, clock clockwork.Clock, connConfig ConnectionConfig, cfg Config) *Orchestrator {
	o := &Orchestrator{
		registry:  registry,
		store:     store,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
	}
	o.manager = NewConnectionManager(connConfig, o)
	return o
}

// Start runs the broadcast loop until the context is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.manager.Start(ctx)
}

// HandleMessage processes one inbound message from a participant connection.
// Messages within one connection arrive strictly in order; the session lock
// serializes the two connections of a duel.
func (o *Orchestrator) HandleMessage(c *Connection, raw []byte) {
	sess := o.registry.Get(c.DuelID)

	// Action application is suppressed for the whole countdown; connectivity
	// is unaffected.
	if sess != nil && sess.Duel.Timer.InCountdown() {
		return
	}

	accountID, action, ok := parseMessage(raw)
	if !ok {
		log.Debug().
			Str("connection_id", c.ID).
			Str("duel_id", c.DuelID.String()).
			Msg("dropping malformed message")
		return
	}

	if sess == nil {
		if action == tokenStartGame {
			o.startDuel(c, raw, accountID)
			return
		}
		// Pre-session chatter is relayed to the still-waiting peer as-is.
		o.manager.BroadcastExcept(c.DuelID, accountID, raw)
		return
	}

	o.handleDuelMessage(c, sess, raw, accountID, action)
}

// HandleDisconnect settles the outcome on behalf of the leaving side when the
// duel is already over. An unended duel stays live in the registry for the
// remaining participant.
func (o *Orchestrator) HandleDisconnect(c *Connection) {
	sess := o.registry.Get(c.DuelID)
	if sess == nil {
		return
	}

	sess.Lock()
	ended := sess.Duel.Ended()
	sess.Unlock()

	if ended {
		o.finishDuel(sess, c.Challenge)
	}
}

// startDuel creates the duel through the registry's create-once path and
// announces it. The loser of a create race falls back to normal in-session
// message handling against the already-created duel.
func (o *Orchestrator) startDuel(c *Connection, raw []byte, accountID string) {
	created := false
	sess := o.registry.GetOrCreate(c.DuelID, func() *duel.Duel {
		created = true
		return o.newDuel(c.Challenge)
	})

	if !created {
		o.handleDuelMessage(c, sess, raw, accountID, tokenStartGame)
		return
	}

	sess.Lock()
	snap := sess.Duel.Snapshot()
	sess.Unlock()

	log.Info().
		Str("duel_id", sess.ID.String()).
		Str("account_id", accountID).
		Msg("duel created")

	payload, err := json.Marshal(serverEvent{Type: eventServerInfo, Message: msgGameStarted, Fight: snap})
	if err != nil {
		log.Error().Err(err).Str("duel_id", sess.ID.String()).Msg("failed to marshal game_started event")
		return
	}
	o.manager.Broadcast(sess.ID, payload)

	if o.publisher != nil {
		if err := o.publisher.PublishDuelStarted(sess.ID, snap); err != nil {
			log.Error().Err(err).Str("duel_id", sess.ID.String()).Msg("failed to publish DuelStarted")
		}
	}

	go o.watchCountdown(sess)
	go o.watchRoundEnd(sess, c.Challenge)
}

// handleDuelMessage resolves and applies one in-session message, then relays
// it to the opposing participant. The resolve-then-apply sequence runs to
// completion under the session lock before any other message is considered.
func (o *Orchestrator) handleDuelMessage(c *Connection, sess *duel.Session, raw []byte, accountID, action string) {
	sess.Lock()
	act, err := duel.ResolveAction(accountID, action, sess.Duel)
	if err != nil {
		sess.Unlock()
		// Aborts only this message; the session continues.
		log.Warn().
			Str("duel_id", sess.ID.String()).
			Str("account_id", accountID).
			Msg("dropping action from unknown actor")
		return
	}
	if err := act.Apply(sess.Duel); err != nil {
		if !errors.Is(err, duel.ErrDuelEnded) {
			log.Error().Err(err).Str("duel_id", sess.ID.String()).Msg("action apply failed")
		}
		// ErrDuelEnded: the duel finished under us; fall through so the
		// game-over handling below runs.
	}
	ended := sess.Duel.Ended()
	snap := sess.Duel.Snapshot()
	sess.Unlock()

	if ended {
		o.finishDuel(sess, c.Challenge)
		return
	}

	payload, err := json.Marshal(relayEvent{Fight: snap, Data: string(raw)})
	if err != nil {
		log.Error().Err(err).Str("duel_id", sess.ID.String()).Msg("failed to marshal relay event")
		return
	}
	o.manager.BroadcastExcept(sess.ID, accountID, payload)
}

func (o *Orchestrator) newDuel(ch *challenge.Challenge) *duel.Duel {
	timer := duel.NewPhaseTimer(o.clock, o.cfg.Countdown, o.cfg.Round)
	initiator := &duel.Combatant{
		AccountID: ch.InitiatorAccountID,
		Name:      ch.InitiatorName,
		Health:    ch.InitiatorHealth,
		Strength:  ch.InitiatorStrength,
	}
	opponent := &duel.Combatant{
		AccountID: ch.OpponentAccountID,
		Name:      ch.OpponentName,
		Health:    ch.OpponentHealth,
		Strength:  ch.OpponentStrength,
	}
	return duel.New(initiator, opponent, timer)
}

// watchCountdown polls until the countdown elapses, then announces the start
// of the round. The poll re-checks every tick so the wait stays responsive.
func (o *Orchestrator) watchCountdown(sess *duel.Session) {
	for sess.Duel.Timer.InCountdown() {
		o.clock.Sleep(o.cfg.PollInterval)
	}

	sess.Lock()
	snap := sess.Duel.Snapshot()
	sess.Unlock()

	payload, err := json.Marshal(serverEvent{Type: eventServerInfo, Message: msgFightStarted, Fight: snap})
	if err != nil {
		log.Error().Err(err).Str("duel_id", sess.ID.String()).Msg("failed to marshal fight_started event")
		return
	}
	o.manager.Broadcast(sess.ID, payload)
}

// watchRoundEnd detects the duel's end independently of inbound traffic, so a
// round that times out with neither side attacking still finalizes. It stops
// once the session leaves the registry.
func (o *Orchestrator) watchRoundEnd(sess *duel.Session, ch *challenge.Challenge) {
	for {
		if o.registry.Get(sess.ID) == nil {
			return
		}

		sess.Lock()
		ended := sess.Duel.Ended()
		sess.Unlock()

		if ended {
			o.finishDuel(sess, ch)
			return
		}
		o.clock.Sleep(o.cfg.PollInterval)
	}
}

// finishDuel broadcasts the terminal event, performs the single
// finalize-and-persist write, evicts the session, and closes both
// connections. The session's finalize guard makes this a no-op for every
// caller after the first, however many sides observe the end concurrently.
func (o *Orchestrator) finishDuel(sess *duel.Session, ch *challenge.Challenge) {
	sess.Finalize(func() {
		sess.Lock()
		snap := sess.Duel.Snapshot()
		draw := sess.Duel.Draw()
		var winner *string
		if w := sess.Duel.Winner(); w != nil {
			id := w.AccountID
			winner = &id
		}
		sess.Unlock()

		log.Info().
			Str("duel_id", sess.ID.String()).
			Bool("draw", draw).
			Msg("duel ended")

		if payload, err := json.Marshal(serverEvent{Type: eventServerInfo, Message: msgGameOver, Fight: snap}); err == nil {
			// Delivered synchronously so the terminal event is queued before
			// the connections close.
			o.manager.deliver(BroadcastMessage{DuelID: sess.ID, Payload: payload})
		}

		if err := ch.Complete(winner); err != nil {
			log.Warn().Err(err).Str("duel_id", sess.ID.String()).Msg("challenge status transition failed at finalize")
		}

		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()
		if err := o.store.CompleteChallenge(ctx, sess.ID, winner); err != nil {
			log.Error().Err(err).Str("duel_id", sess.ID.String()).Msg("finalize write failed")
		}

		if o.publisher != nil {
			if err := o.publisher.PublishDuelCompleted(sess.ID, winner, draw); err != nil {
				log.Error().Err(err).Str("duel_id", sess.ID.String()).Msg("failed to publish DuelCompleted")
			}
		}

		o.registry.Remove(sess.ID)
		o.manager.CloseDuel(sess.ID)
	})
}
