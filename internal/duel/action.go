package duel

import "errors"

// Offensive action tokens recognized on the wire. Both resolve to the same
// plain attack.
const (
	ActionKick  = "kick"
	ActionPunch = "punch"
)

// ErrUnknownActor reports an action whose account id belongs to neither
// combatant of the duel.
var ErrUnknownActor = errors.New("account is not part of this duel")

// Action is a resolved in-duel action. Resolving never mutates combat state;
// applying the action is a separate explicit step.
type Action interface {
	Apply(d *Duel) error
}

// NoOp leaves the duel untouched.
type NoOp struct{}

func (NoOp) Apply(*Duel) error { return nil }

// AttackAction applies one hit from Attacker to Defender.
type AttackAction struct {
	Attacker *Combatant
	Defender *Combatant
}

func (a AttackAction) Apply(d *Duel) error {
	return d.Attack(a.Attacker, a.Defender)
}

// ResolveAction maps an inbound (account id, action token) pair onto a
// concrete action. With no live duel every token resolves to a no-op; an
// offensive token from an account outside the duel fails with
// ErrUnknownActor; any other token is a no-op.
func ResolveAction(accountID, token string, d *Duel) (Action, error) {
	if d == nil {
		return NoOp{}, nil
	}
	switch token {
	case ActionKick, ActionPunch:
		switch accountID {
		case d.Player1.AccountID:
			return AttackAction{Attacker: d.Player1, Defender: d.Player2}, nil
		case d.Player2.AccountID:
			return AttackAction{Attacker: d.Player2, Defender: d.Player1}, nil
		default:
			return nil, ErrUnknownActor
		}
	default:
		return NoOp{}, nil
	}
}
