package duel

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// CombatantSnapshot is the wire view of one combatant.
type CombatantSnapshot struct {
	AccountID string `json:"account_id"`
	Health    int    `json:"health"`
	Strength  int    `json:"strength"`
}

// TimerSnapshot is the wire view of the phase timer. Instants are unix
// seconds, durations whole seconds, matching what existing clients parse.
type TimerSnapshot struct {
	StartTime         float64 `json:"start_time"`
	Duration          int     `json:"duration"`
	CountdownDuration int     `json:"countdown_duration"`
	IsCountdown       bool    `json:"is_countdown"`
	EndTime           float64 `json:"end_time"`
	TimeLeft          float64 `json:"time_left"`
}

// Snapshot is a point-in-time serializable view of a full duel. It is both
// the broadcast payload and enough to reconstruct duel state.
type Snapshot struct {
	Player1    CombatantSnapshot `json:"player1"`
	Player2    CombatantSnapshot `json:"player2"`
	FightTimer TimerSnapshot     `json:"fight_timer"`
	Winner     *string           `json:"winner"`
	Ended      bool              `json:"ended"`
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Snapshot captures the duel's current state, including the derived ended and
// winner fields.
func (d *Duel) Snapshot() Snapshot {
	snap := Snapshot{
		Player1: CombatantSnapshot{
			AccountID: d.Player1.AccountID,
			Health:    d.Player1.Health,
			Strength:  d.Player1.Strength,
		},
		Player2: CombatantSnapshot{
			AccountID: d.Player2.AccountID,
			Health:    d.Player2.Health,
			Strength:  d.Player2.Strength,
		},
		FightTimer: TimerSnapshot{
			StartTime:         unixSeconds(d.Timer.Start()),
			Duration:          int(d.Timer.Round() / time.Second),
			CountdownDuration: int(d.Timer.Countdown() / time.Second),
			IsCountdown:       d.Timer.InCountdown(),
			EndTime:           unixSeconds(d.Timer.EndTime()),
			TimeLeft:          d.Timer.TimeLeft().Seconds(),
		},
		Ended: d.Ended(),
	}
	if w := d.Winner(); w != nil {
		id := w.AccountID
		snap.Winner = &id
	}
	return snap
}

// FromSnapshot rebuilds a duel from a snapshot. Derived fields are recomputed
// against the given clock rather than trusted from the snapshot.
func FromSnapshot(snap Snapshot, clock clockwork.Clock) *Duel {
	sec := float64(time.Second)
	timer := PhaseTimer{
		start:     time.Unix(0, int64(snap.FightTimer.StartTime*sec)),
		countdown: time.Duration(snap.FightTimer.CountdownDuration) * time.Second,
		round:     time.Duration(snap.FightTimer.Duration) * time.Second,
		clock:     clock,
	}
	return New(
		&Combatant{
			AccountID: snap.Player1.AccountID,
			Health:    snap.Player1.Health,
			Strength:  snap.Player1.Strength,
		},
		&Combatant{
			AccountID: snap.Player2.AccountID,
			Health:    snap.Player2.Health,
			Strength:  snap.Player2.Strength,
		},
		timer,
	)
}
