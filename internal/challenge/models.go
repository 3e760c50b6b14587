package challenge

import "github.com/google/uuid"

// Status tracks a fight challenge through its lifecycle.
type Status string

const (
	StatusWaitingAccept Status = "WAITING_ACCEPT"
	StatusAccepted      Status = "ACCEPTED"
	// StatusPending means the fight has started and a duel session may run.
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// Challenge is one fight challenge between two players, carrying the stats
// each side brings into the duel. The duel engine reads it at connect time and
// writes it back exactly once at finalize time.
type Challenge struct {
	ID uuid.UUID

	InitiatorAccountID string
	InitiatorName      string
	OpponentAccountID  string
	OpponentName       string

	InitiatorHealth   int
	InitiatorStrength int
	OpponentHealth    int
	OpponentStrength  int

	Status          Status
	WinnerAccountID *string
	Draw            bool
}
