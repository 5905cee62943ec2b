package sqlite

import (
	"context"
	"time"

	"github.com/copperline/gate/internal/gate/domain"
)

type sessionsRepo struct {
	q dbtx
}

func (r *sessionsRepo) Get(ctx context.Context, sessionID string) (domain.LoginSession, error) {
	var s domain.LoginSession
	err := r.q.QueryRowContext(ctx, `
		SELECT id, account_id, second_factor_required, created_at, updated_at
		FROM login_sessions
		WHERE id = ?`, sessionID).
		Scan(&s.ID, &s.AccountID, &s.SecondFactorRequired, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.LoginSession{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) Upsert(ctx context.Context, s domain.LoginSession) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_sessions (id, account_id, second_factor_required, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			account_id = excluded.account_id,
			second_factor_required = excluded.second_factor_required,
			updated_at = CURRENT_TIMESTAMP`,
		s.ID, s.AccountID, s.SecondFactorRequired)
	return err
}

func (r *sessionsRepo) SetRequired(ctx context.Context, sessionID string, required bool) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE login_sessions
		SET second_factor_required = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, required, sessionID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *sessionsRepo) ClearAllForAccount(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE login_sessions
		SET second_factor_required = 0, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ? AND second_factor_required = 1`, accountID)
	return err
}

func (r *sessionsRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM login_sessions
		WHERE id = ?`, sessionID)
	return err
}

func (r *sessionsRepo) DeleteStale(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM login_sessions
		WHERE updated_at < ?`, cutoff.UTC())
	return err
}
