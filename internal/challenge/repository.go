package challenge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound means the account has no live challenge to duel over.
	ErrNotFound = errors.New("no live challenge for account")
	// ErrAmbiguous means the account has more than one live challenge, which
	// the duel engine refuses to pick between.
	ErrAmbiguous = errors.New("more than one live challenge for account")
	// ErrNotPending means the finalize write found the challenge no longer
	// pending, usually because another process already completed it.
	ErrNotPending = errors.New("challenge is not pending")
)

// Repository is the Postgres-backed challenge store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const liveChallengeQuery = `
SELECT id,
       initiator_account_id, initiator_name,
       opponent_account_id, opponent_name,
       initiator_health, initiator_strength,
       opponent_health, opponent_strength,
       status
FROM fight_challenges
WHERE status = 'PENDING'
  AND (initiator_account_id = $1 OR opponent_account_id = $1)`

// LiveChallengeByAccount returns the single in-progress challenge the account
// participates in. Zero matches yields ErrNotFound, more than one
// ErrAmbiguous; both refuse a duel connection.
func (r *Repository) LiveChallengeByAccount(ctx context.Context, accountID string) (*Challenge, error) {
	rows, err := r.pool.Query(ctx, liveChallengeQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("query live challenge: %w", err)
	}
	defer rows.Close()

	var matches []*Challenge
	for rows.Next() {
		var c Challenge
		if err := rows.Scan(
			&c.ID,
			&c.InitiatorAccountID, &c.InitiatorName,
			&c.OpponentAccountID, &c.OpponentName,
			&c.InitiatorHealth, &c.InitiatorStrength,
			&c.OpponentHealth, &c.OpponentStrength,
			&c.Status,
		); err != nil {
			return nil, fmt.Errorf("scan challenge row: %w", err)
		}
		matches = append(matches, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read challenge rows: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

const completeChallengeQuery = `
UPDATE fight_challenges
SET status = 'COMPLETED',
    winner_account_id = $2,
    draw = $3
WHERE id = $1 AND status = 'PENDING'`

// CompleteChallenge marks the challenge finished, recording either the winning
// account id or an explicit draw. The status guard in the WHERE clause keeps
// the write from ever landing twice.
func (r *Repository) CompleteChallenge(ctx context.Context, id uuid.UUID, winnerAccountID *string) error {
	tag, err := r.pool.Exec(ctx, completeChallengeQuery, id, winnerAccountID, winnerAccountID == nil)
	if err != nil {
		return fmt.Errorf("complete challenge %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete challenge %s: %w", id, ErrNotPending)
	}
	return nil
}
