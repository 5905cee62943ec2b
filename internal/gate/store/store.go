package store

import (
	"context"
	"errors"
	"time"

	"github.com/copperline/gate/internal/gate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for the second-factor registry
// and its supporting tables. Concrete drivers (sqlite today) implement it.
// Sub-repositories keep concerns tidy and stop callers from accidentally
// opening transactions within transactions.
type Store interface {
	Enrollments() Enrollments
	Sessions() Sessions
	Challenges() Challenges
	RecoveryCodes() RecoveryCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run the multi-step registry operations (confirm,
	// disable) that must be atomic per (account, kind).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Enrollments interface {
	// ListByAccount returns every enrollment for the account, newest first.
	ListByAccount(ctx context.Context, accountID string) ([]domain.Enrollment, error)

	// GetByKindStatus fetches the single enrollment in the given state, or
	// ErrNotFound.
	GetByKindStatus(ctx context.Context, accountID string, kind domain.FactorKind, status domain.EnrollmentStatus) (domain.Enrollment, error)

	// UpsertPending writes a Pending enrollment, replacing any prior
	// Pending record of the same kind. An Active record of the same kind
	// is never touched.
	UpsertPending(ctx context.Context, e domain.Enrollment) error

	// SetPendingKeyHandle stores the provider credential on the Pending
	// enrollment of the given kind. ErrNotFound if no Pending record
	// exists.
	SetPendingKeyHandle(ctx context.Context, accountID string, kind domain.FactorKind, keyHandle []byte) error

	// UpdateActiveKeyHandle refreshes the credential stored on the Active
	// enrollment, for sign count bookkeeping after an assertion.
	// ErrNotFound if no Active record exists.
	UpdateActiveKeyHandle(ctx context.Context, accountID string, kind domain.FactorKind, keyHandle []byte) error

	// PromotePending flips the Pending enrollment of the given kind to
	// Active. ErrNotFound if no Pending record exists. Callers must first
	// remove any existing Active record of the kind, inside the same
	// transaction.
	PromotePending(ctx context.Context, accountID string, kind domain.FactorKind) error

	// DeleteKindStatus removes the enrollment in the given state.
	// Deleting a missing record is a no-op.
	DeleteKindStatus(ctx context.Context, accountID string, kind domain.FactorKind, status domain.EnrollmentStatus) error

	// DeleteKind removes both the Active and Pending enrollments of the
	// kind. Idempotent.
	DeleteKind(ctx context.Context, accountID string, kind domain.FactorKind) error

	// DeleteAll removes every factor record for the account.
	DeleteAll(ctx context.Context, accountID string) error

	// CountActive returns the number of Active enrollments for the account.
	CountActive(ctx context.Context, accountID string) (int, error)
}

type Sessions interface {
	// Get returns the login session by id.
	Get(ctx context.Context, sessionID string) (domain.LoginSession, error)

	// Upsert creates or replaces the session's gating state.
	Upsert(ctx context.Context, s domain.LoginSession) error

	// SetRequired updates the second-factor flag. ErrNotFound if the
	// session does not exist.
	SetRequired(ctx context.Context, sessionID string, required bool) error

	// ClearAllForAccount forces second_factor_required=false on every
	// session of the account. Used when the last active factor goes away.
	ClearAllForAccount(ctx context.Context, accountID string) error

	// Delete discards the session's gating state (logout). Idempotent.
	Delete(ctx context.Context, sessionID string) error

	// DeleteStale removes sessions not updated since the cutoff
	// (housekeeping).
	DeleteStale(ctx context.Context, cutoff time.Time) error
}

type Challenges interface {
	// Create stores a freshly issued security-key challenge.
	Create(ctx context.Context, c domain.Challenge) error

	// Consume atomically fetches and removes an unexpired challenge by id,
	// enforcing single use. ErrNotFound covers missing, already-used and
	// expired challenges alike.
	Consume(ctx context.Context, id string) (domain.Challenge, error)

	// DeleteExpired removes challenges past their expiry (housekeeping).
	DeleteExpired(ctx context.Context) error
}

type RecoveryCodes interface {
	// Create stores one recovery code hash for an account.
	Create(ctx context.Context, code domain.RecoveryCode) error

	// ListByAccount returns all stored code hashes for the account. The
	// hashes are salted, so matching a presented code means verifying
	// against each in turn.
	ListByAccount(ctx context.Context, accountID string) ([]domain.RecoveryCode, error)

	// Delete removes a single code after use.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every recovery code for the account.
	DeleteAll(ctx context.Context, accountID string) error

	// Count returns the number of remaining codes for the account.
	Count(ctx context.Context, accountID string) (int, error)
}
