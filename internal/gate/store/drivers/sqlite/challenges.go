package sqlite

import (
	"context"

	"github.com/copperline/gate/internal/gate/domain"
)

type challengesRepo struct {
	q dbtx
}

func (r *challengesRepo) Create(ctx context.Context, c domain.Challenge) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO challenges (id, account_id, purpose, session_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		c.ID, c.AccountID, string(c.Purpose), c.SessionData, c.ExpiresAt.UTC())
	return err
}

func (r *challengesRepo) Consume(ctx context.Context, id string) (domain.Challenge, error) {
	// DELETE ... RETURNING makes the redeem single use even under
	// concurrent attempts. Expired challenges are treated as gone.
	var c domain.Challenge
	err := r.q.QueryRowContext(ctx, `
		DELETE FROM challenges
		WHERE id = ? AND expires_at > CURRENT_TIMESTAMP
		RETURNING id, account_id, purpose, session_data, expires_at, created_at`, id).
		Scan(&c.ID, &c.AccountID, &c.Purpose, &c.SessionData, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return c, nil
}

func (r *challengesRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM challenges
		WHERE expires_at <= CURRENT_TIMESTAMP`)
	return err
}
