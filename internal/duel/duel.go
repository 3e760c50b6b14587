package duel

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// DamageCoefficient scales a combatant's strength into per-hit damage.
const DamageCoefficient = 0.1

// Default phase timer durations.
const (
	DefaultCountdown = 3 * time.Second
	DefaultRound     = 30 * time.Second
)

// ErrDuelEnded is returned when an attack is applied to a duel that is
// already over. Callers discard the action; this is a race guard, not a
// user-visible error.
var ErrDuelEnded = errors.New("duel already ended")

// Combatant is one side's live state within a duel.
type Combatant struct {
	AccountID string
	Name      string
	Health    int
	Strength  int
}

// Damage is the amount of health this combatant removes per hit.
func (c *Combatant) Damage() int {
	return int(float64(c.Strength) * DamageCoefficient)
}

// TakeHit lowers health by damage, clamped at zero. Health only ever
// decreases over a duel's lifetime.
func (c *Combatant) TakeHit(damage int) {
	c.Health -= damage
	if c.Health < 0 {
		c.Health = 0
	}
}

// Dead reports whether the combatant has no health left.
func (c *Combatant) Dead() bool {
	return c.Health <= 0
}

// PhaseTimer governs the countdown-then-round timing of a duel. Durations are
// fixed at construction; only the clock advances. The clock is injected so
// timer behavior is testable with a fake clock.
type PhaseTimer struct {
	start     time.Time
	countdown time.Duration
	round     time.Duration
	clock     clockwork.Clock
}

// NewPhaseTimer starts a phase timer at the clock's current instant.
func NewPhaseTimer(clock clockwork.Clock, countdown, round time.Duration) PhaseTimer {
	return PhaseTimer{
		start:     clock.Now(),
		countdown: countdown,
		round:     round,
		clock:     clock,
	}
}

// Start returns the instant the countdown began.
func (t PhaseTimer) Start() time.Time { return t.start }

// Countdown returns the fixed countdown duration.
func (t PhaseTimer) Countdown() time.Duration { return t.countdown }

// Round returns the fixed round duration.
func (t PhaseTimer) Round() time.Duration { return t.round }

// EndTime is the instant the round is over: start + countdown + round.
func (t PhaseTimer) EndTime() time.Time {
	return t.start.Add(t.countdown).Add(t.round)
}

// TimeLeft is the remaining time until EndTime. Negative once timed out.
func (t PhaseTimer) TimeLeft() time.Duration {
	return t.EndTime().Sub(t.clock.Now())
}

// InCountdown reports whether the pre-round countdown is still running.
func (t PhaseTimer) InCountdown() bool {
	return t.clock.Now().Before(t.start.Add(t.countdown))
}

// TimedOut reports whether the round clock has run out.
func (t PhaseTimer) TimedOut() bool {
	return !t.clock.Now().Before(t.EndTime())
}

// Duel is one live two-player combat session. It carries no I/O; the gateway
// serializes all mutations per duel.
type Duel struct {
	Player1 *Combatant
	Player2 *Combatant
	Timer   PhaseTimer

	// ended marks a duel finished before somebody dies or time runs out.
	ended bool
}

// New creates a duel between two combatants under the given timer.
func New(p1, p2 *Combatant, timer PhaseTimer) *Duel {
	return &Duel{Player1: p1, Player2: p2, Timer: timer}
}

// Ended reports whether the duel is over: explicitly force-ended, either
// combatant dead, or the round clock ran out. Idempotent and side-effect free.
func (d *Duel) Ended() bool {
	if d.ended {
		return true
	}
	return d.Player1.Dead() || d.Player2.Dead() || d.Timer.TimedOut()
}

// Attack applies one hit from attacker to defender. Attacking a finished duel
// returns ErrDuelEnded without touching either combatant.
func (d *Duel) Attack(attacker, defender *Combatant) error {
	if d.Ended() {
		return ErrDuelEnded
	}
	defender.TakeHit(attacker.Damage())
	return nil
}

// ForceEnd marks the duel over regardless of health or timer. Irreversible.
func (d *Duel) ForceEnd() {
	d.ended = true
}

// Draw evaluates from current state: both combatants still standing, or the
// round clock ran out. This is the evaluation the engine has always used; it
// is deliberately independent of Ended.
func (d *Duel) Draw() bool {
	return (!d.Player1.Dead() && !d.Player2.Dead()) || d.Timer.TimedOut()
}

// Winner returns the surviving combatant, or nil while the duel is running or
// when it is a draw.
func (d *Duel) Winner() *Combatant {
	if d.Draw() || !d.Ended() {
		return nil
	}
	if d.Player1.Dead() {
		return d.Player2
	}
	return d.Player1
}
