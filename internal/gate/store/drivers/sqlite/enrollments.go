package sqlite

import (
	"context"
	"database/sql"

	"github.com/copperline/gate/internal/gate/domain"
	"github.com/copperline/gate/internal/gate/store"
)

type enrollmentsRepo struct {
	q dbtx
}

const enrollmentColumns = `id, account_id, kind, status, secret, key_handle, created_at, updated_at`

func scanEnrollment(row interface{ Scan(dest ...any) error }) (domain.Enrollment, error) {
	var e domain.Enrollment
	err := row.Scan(&e.ID, &e.AccountID, &e.Kind, &e.Status, &e.Secret, &e.KeyHandle, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *enrollmentsRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Enrollment, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments
		WHERE account_id = ?
		ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *enrollmentsRepo) GetByKindStatus(ctx context.Context, accountID string, kind domain.FactorKind, status domain.EnrollmentStatus) (domain.Enrollment, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments
		WHERE account_id = ? AND kind = ? AND status = ?`, accountID, string(kind), string(status))

	e, err := scanEnrollment(row)
	if err != nil {
		return domain.Enrollment{}, mapNotFound(err)
	}
	return e, nil
}

func (r *enrollmentsRepo) UpsertPending(ctx context.Context, e domain.Enrollment) error {
	// Replace any previous pending record of the same kind; the unique
	// index on (account_id, kind, status) makes the conflict target safe.
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO enrollments (id, account_id, kind, status, secret, key_handle, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (account_id, kind, status) DO UPDATE SET
			id = excluded.id,
			secret = excluded.secret,
			key_handle = excluded.key_handle,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		e.ID, e.AccountID, string(e.Kind), e.Secret, e.KeyHandle)
	return err
}

func (r *enrollmentsRepo) SetPendingKeyHandle(ctx context.Context, accountID string, kind domain.FactorKind, keyHandle []byte) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE enrollments
		SET key_handle = ?, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ? AND kind = ? AND status = 'pending'`,
		keyHandle, accountID, string(kind))
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *enrollmentsRepo) UpdateActiveKeyHandle(ctx context.Context, accountID string, kind domain.FactorKind, keyHandle []byte) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE enrollments
		SET key_handle = ?, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ? AND kind = ? AND status = 'active'`,
		keyHandle, accountID, string(kind))
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *enrollmentsRepo) PromotePending(ctx context.Context, accountID string, kind domain.FactorKind) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE enrollments
		SET status = 'active', updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ? AND kind = ? AND status = 'pending'`,
		accountID, string(kind))
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *enrollmentsRepo) DeleteKindStatus(ctx context.Context, accountID string, kind domain.FactorKind, status domain.EnrollmentStatus) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM enrollments
		WHERE account_id = ? AND kind = ? AND status = ?`,
		accountID, string(kind), string(status))
	return err
}

func (r *enrollmentsRepo) DeleteKind(ctx context.Context, accountID string, kind domain.FactorKind) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM enrollments
		WHERE account_id = ? AND kind = ?`, accountID, string(kind))
	return err
}

func (r *enrollmentsRepo) DeleteAll(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM enrollments
		WHERE account_id = ?`, accountID)
	return err
}

func (r *enrollmentsRepo) CountActive(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM enrollments
		WHERE account_id = ? AND status = 'active'`, accountID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// requireRowAffected maps a zero-row update to store.ErrNotFound.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
