package duel

import (
	"testing"

	"github.com/jonboulle/clockwork"
)

func TestResolveActionWithoutDuelIsNoOp(t *testing.T) {
	for _, token := range []string{ActionKick, ActionPunch, "waiting", "start_game", "dance"} {
		act, err := ResolveAction("alice", token, nil)
		if err != nil {
			t.Fatalf("token %q: unexpected error: %v", token, err)
		}
		if _, ok := act.(NoOp); !ok {
			t.Fatalf("token %q: resolved %T, want NoOp", token, act)
		}
	}
}

func TestResolveOffensiveTokens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)

	tests := []struct {
		name      string
		accountID string
		token     string
		attacker  *Combatant
		defender  *Combatant
	}{
		{"kick by player1", "alice", ActionKick, d.Player1, d.Player2},
		{"punch by player1", "alice", ActionPunch, d.Player1, d.Player2},
		{"kick by player2", "bob", ActionKick, d.Player2, d.Player1},
		{"punch by player2", "bob", ActionPunch, d.Player2, d.Player1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, err := ResolveAction(tt.accountID, tt.token, d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			attack, ok := act.(AttackAction)
			if !ok {
				t.Fatalf("resolved %T, want AttackAction", act)
			}
			if attack.Attacker != tt.attacker || attack.Defender != tt.defender {
				t.Fatalf("attack pairing attacker=%s defender=%s, want attacker=%s defender=%s",
					attack.Attacker.AccountID, attack.Defender.AccountID,
					tt.attacker.AccountID, tt.defender.AccountID)
			}
		})
	}

	// Resolving alone must not touch combat state.
	if d.Player1.Health != 100 || d.Player2.Health != 100 {
		t.Fatalf("resolving mutated health: %d/%d", d.Player1.Health, d.Player2.Health)
	}
}

func TestResolveUnknownActorFails(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)

	if _, err := ResolveAction("mallory", ActionKick, d); err != ErrUnknownActor {
		t.Fatalf("err = %v, want ErrUnknownActor", err)
	}
	if d.Player1.Health != 100 || d.Player2.Health != 100 {
		t.Fatalf("unknown actor changed health: %d/%d", d.Player1.Health, d.Player2.Health)
	}
}

func TestResolveUnrecognizedTokenIsNoOp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)

	act, err := ResolveAction("alice", "headbutt", d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := act.Apply(d); err != nil {
		t.Fatalf("apply no-op: %v", err)
	}
	if d.Player1.Health != 100 || d.Player2.Health != 100 {
		t.Fatalf("no-op changed health: %d/%d", d.Player1.Health, d.Player2.Health)
	}
}

func TestApplyAttackAction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)

	act, err := ResolveAction("bob", ActionPunch, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := act.Apply(d); err != nil {
		t.Fatalf("apply attack: %v", err)
	}
	if got, want := d.Player1.Health, 99; got != want {
		t.Fatalf("player1 health = %d, want %d", got, want)
	}
}
