package sqlite

import (
	"context"

	"github.com/copperline/gate/internal/gate/domain"
)

type recoveryCodesRepo struct {
	q dbtx
}

func (r *recoveryCodesRepo) Create(ctx context.Context, code domain.RecoveryCode) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO recovery_codes (id, account_id, code_hash, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		code.ID, code.AccountID, code.CodeHash)
	return err
}

func (r *recoveryCodesRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.RecoveryCode, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, account_id, code_hash, created_at
		FROM recovery_codes
		WHERE account_id = ?
		ORDER BY created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecoveryCode
	for rows.Next() {
		var c domain.RecoveryCode
		if err := rows.Scan(&c.ID, &c.AccountID, &c.CodeHash, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *recoveryCodesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM recovery_codes
		WHERE id = ?`, id)
	return err
}

func (r *recoveryCodesRepo) DeleteAll(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM recovery_codes
		WHERE account_id = ?`, accountID)
	return err
}

func (r *recoveryCodesRepo) Count(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM recovery_codes
		WHERE account_id = ?`, accountID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
