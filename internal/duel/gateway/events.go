package gateway

import (
	"encoding/json"

	"github.com/taskduel/taskduel/internal/duel"
)

// Server-authored message markers sent under the server_info envelope.
const (
	eventServerInfo = "server_info"

	msgGameStarted  = "game_started"
	msgFightStarted = "fight_started"
	msgGameOver     = "game_over"
)

// Inbound action tokens with session-control meaning. Offensive tokens live
// with the action resolver.
const (
	tokenStartGame = "start_game"
)

// serverEvent is a server-authored broadcast carrying a duel snapshot.
type serverEvent struct {
	Type    string        `json:"type"`
	Message string        `json:"message"`
	Fight   duel.Snapshot `json:"fight"`
}

// relayEvent forwards a participant's raw message to the opponent together
// with the current snapshot.
type relayEvent struct {
	Fight duel.Snapshot `json:"fight"`
	Data  string        `json:"data"`
}

// parseMessage extracts the required account_id and action fields from an
// inbound payload. Extra fields are ignored; a payload that is not JSON or is
// missing either key reports ok false and is silently dropped by the caller.
func parseMessage(raw []byte) (accountID, action string, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", "", false
	}
	rawAccount, hasAccount := fields["account_id"]
	rawAction, hasAction := fields["action"]
	if !hasAccount || !hasAction {
		return "", "", false
	}
	if err := json.Unmarshal(rawAccount, &accountID); err != nil {
		return "", "", false
	}
	if err := json.Unmarshal(rawAction, &action); err != nil {
		return "", "", false
	}
	return accountID, action, true
}
