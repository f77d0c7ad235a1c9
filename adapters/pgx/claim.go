package pgx

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lborres/butaca/core"
)

// userExists runs inside q so claim writes see the same snapshot
func userExists(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return core.ErrUserNotFound
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) GetClaims(ctx context.Context, userID string) ([]core.Claim, error) {
	if err := userExists(ctx, a.pool, userID); err != nil {
		return nil, err
	}

	rows, err := a.pool.Query(ctx,
		`SELECT claim_type, claim_value FROM user_claims WHERE user_id = $1 ORDER BY claim_type, claim_value`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Claim, error) {
		var c core.Claim
		err := row.Scan(&c.Type, &c.Value)
		return c, err
	})
}

// SetClaim deletes every claim of claimType and inserts the new pair in one
// transaction. The user row is locked so concurrent replaces serialize.
func (a *Adapter) SetClaim(ctx context.Context, userID, claimType, value string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return core.ErrUserNotFound
	}

	return pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return core.ErrUserNotFound
			}
			return err
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM user_claims WHERE user_id = $1 AND claim_type = $2`,
			userID, claimType,
		); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO user_claims (user_id, claim_type, claim_value) VALUES ($1, $2, $3)`,
			userID, claimType, value,
		)
		return err
	})
}

func (a *Adapter) AddClaim(ctx context.Context, userID string, claim core.Claim) error {
	if err := userExists(ctx, a.pool, userID); err != nil {
		return err
	}

	_, err := a.pool.Exec(ctx,
		`INSERT INTO user_claims (user_id, claim_type, claim_value) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, claim_type, claim_value) DO NOTHING`,
		userID, claim.Type, claim.Value,
	)
	return err
}

func (a *Adapter) RemoveClaim(ctx context.Context, userID string, claim core.Claim) error {
	if err := userExists(ctx, a.pool, userID); err != nil {
		return err
	}

	_, err := a.pool.Exec(ctx,
		`DELETE FROM user_claims WHERE user_id = $1 AND claim_type = $2 AND claim_value = $3`,
		userID, claim.Type, claim.Value,
	)
	return err
}
