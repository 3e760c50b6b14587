package duel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func testDuel(clock clockwork.Clock) *Duel {
	return New(
		&Combatant{AccountID: "alice", Health: 100, Strength: 100},
		&Combatant{AccountID: "bob", Health: 100, Strength: 10},
		NewPhaseTimer(clock, DefaultCountdown, DefaultRound),
	)
}

func TestAttackReducesDefenderHealthOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)

	if err := d.Attack(d.Player1, d.Player2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := d.Player2.Health, 90; got != want {
		t.Fatalf("defender health = %d, want %d", got, want)
	}
	if got, want := d.Player1.Health, 100; got != want {
		t.Fatalf("attacker health = %d, want %d", got, want)
	}

	if err := d.Attack(d.Player2, d.Player1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := d.Player1.Health, 99; got != want {
		t.Fatalf("defender health = %d, want %d", got, want)
	}
}

func TestAttackClampsHealthAtZero(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := New(
		&Combatant{AccountID: "alice", Health: 100, Strength: 1000},
		&Combatant{AccountID: "bob", Health: 5, Strength: 10},
		NewPhaseTimer(clock, DefaultCountdown, DefaultRound),
	)

	if err := d.Attack(d.Player1, d.Player2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Player2.Health; got != 0 {
		t.Fatalf("defender health = %d, want 0", got)
	}
}

func TestTenAttacksKillAndDecideWinner(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)

	for i := 0; i < 10; i++ {
		if d.Ended() {
			t.Fatalf("duel ended after %d attacks", i)
		}
		if err := d.Attack(d.Player1, d.Player2); err != nil {
			t.Fatalf("attack %d: %v", i, err)
		}
	}

	if got := d.Player2.Health; got != 0 {
		t.Fatalf("defender health = %d, want 0", got)
	}
	if !d.Ended() {
		t.Fatal("duel should be ended after defender death")
	}
	if d.Draw() {
		t.Fatal("duel should not be a draw")
	}
	w := d.Winner()
	if w == nil || w.AccountID != "alice" {
		t.Fatalf("winner = %v, want alice", w)
	}
}

func TestAttackAfterEndIsRejected(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)
	d.Player2.Health = 0

	if !d.Ended() {
		t.Fatal("duel with a dead combatant should be ended")
	}

	for i := 0; i < 3; i++ {
		if err := d.Attack(d.Player2, d.Player1); err != ErrDuelEnded {
			t.Fatalf("attack after end: err = %v, want ErrDuelEnded", err)
		}
	}
	if got, want := d.Player1.Health, 100; got != want {
		t.Fatalf("health changed after end: %d, want %d", got, want)
	}
	if !d.Ended() {
		t.Fatal("Ended() must stay true after further attack attempts")
	}
}

func TestTimeoutWithBothAliveIsDraw(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)

	if d.Ended() {
		t.Fatal("fresh duel should not be ended")
	}
	if d.Winner() != nil {
		t.Fatal("winner should be nil while the duel runs")
	}

	clock.Advance(DefaultCountdown + DefaultRound)

	if !d.Timer.TimedOut() {
		t.Fatal("timer should report timed out")
	}
	if !d.Ended() {
		t.Fatal("duel should be ended at timeout")
	}
	if !d.Draw() {
		t.Fatal("timeout with both alive should be a draw")
	}
	if d.Winner() != nil {
		t.Fatal("winner should be nil on a draw")
	}
}

func TestForceEndWithoutLoserIsDraw(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)

	d.ForceEnd()

	if !d.Ended() {
		t.Fatal("force-ended duel should be ended")
	}
	if !d.Draw() {
		t.Fatal("force-ended duel without a loser should be a draw")
	}
	if d.Winner() != nil {
		t.Fatal("winner should be nil for a forced draw")
	}
}

func TestPhaseTimerPhases(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := NewPhaseTimer(clock, 3*time.Second, 30*time.Second)

	if !timer.InCountdown() {
		t.Fatal("timer should start in countdown")
	}
	if timer.TimedOut() {
		t.Fatal("fresh timer should not be timed out")
	}

	clock.Advance(3 * time.Second)
	if timer.InCountdown() {
		t.Fatal("countdown should be over after its duration")
	}
	if timer.TimedOut() {
		t.Fatal("round should still be running")
	}

	if got, want := timer.EndTime(), timer.Start().Add(33*time.Second); !got.Equal(want) {
		t.Fatalf("end time = %v, want %v", got, want)
	}
	if got, want := timer.TimeLeft(), 30*time.Second; got != want {
		t.Fatalf("time left = %v, want %v", got, want)
	}

	clock.Advance(30 * time.Second)
	if !timer.TimedOut() {
		t.Fatal("timer should be timed out at its end instant")
	}
}

func TestSnapshotWireShape(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)
	d.Player2.Health = 0

	data, err := json.Marshal(d.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	for _, key := range []string{"player1", "player2", "fight_timer", "winner", "ended"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("snapshot is missing key %q", key)
		}
	}

	var timerFields map[string]json.RawMessage
	if err := json.Unmarshal(decoded["fight_timer"], &timerFields); err != nil {
		t.Fatalf("unmarshal fight_timer: %v", err)
	}
	for _, key := range []string{"start_time", "duration", "countdown_duration", "is_countdown", "end_time", "time_left"} {
		if _, ok := timerFields[key]; !ok {
			t.Fatalf("fight_timer is missing key %q", key)
		}
	}

	var playerFields map[string]json.RawMessage
	if err := json.Unmarshal(decoded["player1"], &playerFields); err != nil {
		t.Fatalf("unmarshal player1: %v", err)
	}
	for _, key := range []string{"account_id", "health", "strength"} {
		if _, ok := playerFields[key]; !ok {
			t.Fatalf("player1 is missing key %q", key)
		}
	}

	var winner string
	if err := json.Unmarshal(decoded["winner"], &winner); err != nil {
		t.Fatalf("unmarshal winner: %v", err)
	}
	if winner != "alice" {
		t.Fatalf("winner = %q, want alice", winner)
	}
}

func TestSnapshotWinnerNullWhileRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	snap := testDuel(clock).Snapshot()

	if snap.Winner != nil {
		t.Fatalf("winner = %v, want nil", *snap.Winner)
	}
	if snap.Ended {
		t.Fatal("fresh duel snapshot should not be ended")
	}
	if !snap.FightTimer.IsCountdown {
		t.Fatal("fresh duel snapshot should be in countdown")
	}
	if got, want := snap.FightTimer.Duration, 30; got != want {
		t.Fatalf("duration = %d, want %d", got, want)
	}
	if got, want := snap.FightTimer.CountdownDuration, 3; got != want {
		t.Fatalf("countdown_duration = %d, want %d", got, want)
	}
}

func TestFromSnapshotRebuildsState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := testDuel(clock)
	d.Attack(d.Player1, d.Player2)

	rebuilt := FromSnapshot(d.Snapshot(), clock)

	if got, want := rebuilt.Player1.AccountID, "alice"; got != want {
		t.Fatalf("player1 account = %q, want %q", got, want)
	}
	if got, want := rebuilt.Player2.Health, 90; got != want {
		t.Fatalf("player2 health = %d, want %d", got, want)
	}
	// Start instants travel as float unix seconds; allow sub-microsecond loss.
	if diff := rebuilt.Timer.Start().Sub(d.Timer.Start()); diff < -time.Microsecond || diff > time.Microsecond {
		t.Fatalf("timer start = %v, want %v", rebuilt.Timer.Start(), d.Timer.Start())
	}
	if got, want := rebuilt.Timer.Round(), DefaultRound; got != want {
		t.Fatalf("round duration = %v, want %v", got, want)
	}
	if rebuilt.Ended() {
		t.Fatal("rebuilt duel should not be ended")
	}
}
