package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copperline/gate/internal/gate/directory"
	"github.com/copperline/gate/internal/gate/domain"
	"github.com/copperline/gate/internal/gate/provider"
	"github.com/copperline/gate/internal/gate/store"
	"github.com/copperline/gate/pkg/cryptox"
	"github.com/copperline/gate/pkg/idx"
	"github.com/copperline/gate/pkg/remember"
)

const (
	recoveryCodeCount = 10                  // Number of recovery codes in a batch
	recoveryCodeBytes = cryptox.TokenSize64 // 64-bit entropy per recovery code
)

// AccountDirectory is the read-only slice of the account directory this
// service needs.
type AccountDirectory interface {
	GetAccount(ctx context.Context, accountID string) (domain.Account, error)
}

// SecondFactorService drives the setup, verify and disable flows for every
// factor kind and keeps the per-session gate in step with the registry.
type SecondFactorService struct {
	Store        store.Store
	TOTP         provider.TOTPProvider
	SecurityKeys provider.SecurityKeyProvider
	Directory    AccountDirectory

	// Secrets seals TOTP seeds at rest.
	Secrets *cryptox.SecretBox

	// Remember mints and checks the remember-device bypass token.
	Remember       *remember.Codec
	RememberMaxAge time.Duration

	// SecurityKeysEnabled is the deployment-level toggle. When false every
	// security-key operation fails with ErrMethodDisabled before touching
	// the registry or the provider.
	SecurityKeysEnabled bool
}

// TOTPSetup is the provisioning material returned when a TOTP enrollment
// begins.
type TOTPSetup struct {
	Secret string // base32 seed for manual entry
	URL    string // otpauth:// URI for QR rendering
}

// SetupTOTP begins (or restarts) a TOTP enrollment. Any prior pending
// enrollment of the kind is replaced; an active one is untouched until
// confirmation succeeds.
func (s *SecondFactorService) SetupTOTP(ctx context.Context, accountID string) (TOTPSetup, error) {
	acct, err := s.lookupAccount(ctx, accountID)
	if err != nil {
		return TOTPSetup{}, err
	}

	material, err := s.TOTP.GenerateSecret(acct.Username)
	if err != nil {
		return TOTPSetup{}, mapProviderErr(err)
	}

	sealed, err := s.Secrets.Seal([]byte(material.Secret))
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("failed to seal totp secret: %w", err)
	}

	err = s.Store.Enrollments().UpsertPending(ctx, domain.Enrollment{
		ID:        idx.New().String(),
		AccountID: accountID,
		Kind:      domain.FactorTOTP,
		Status:    domain.EnrollmentPending,
		Secret:    sealed,
	})
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("failed to store pending enrollment: %w", err)
	}

	return TOTPSetup{Secret: material.Secret, URL: material.URL}, nil
}

// ConfirmTOTPResult is returned by a successful confirmation.
type ConfirmTOTPResult struct {
	// RecoveryCodes is the freshly issued batch, shown to the user exactly
	// once. Only hashes are kept server-side.
	RecoveryCodes []string

	// RememberToken is set when the caller opted in to remember-device.
	RememberToken string
}

// ConfirmTOTP promotes the pending enrollment to active after checking a
// code against the pending seed. On a wrong code the pending enrollment is
// left intact so the user can retry with a fresh code. Confirmation does
// not clear any session gate; the session that set the factor up was
// already trusted.
func (s *SecondFactorService) ConfirmTOTP(ctx context.Context, accountID, code string, rememberDevice bool) (ConfirmTOTPResult, error) {
	pending, err := s.Store.Enrollments().GetByKindStatus(ctx, accountID, domain.FactorTOTP, domain.EnrollmentPending)
	if err != nil {
		return ConfirmTOTPResult{}, fmt.Errorf("failed to load pending enrollment: %w", err)
	}

	secret, err := s.Secrets.Open(pending.Secret)
	if err != nil {
		return ConfirmTOTPResult{}, fmt.Errorf("failed to open totp secret: %w", err)
	}

	if err := s.TOTP.CheckCode(string(secret), code); err != nil {
		return ConfirmTOTPResult{}, mapProviderErr(err)
	}

	// Hash the new recovery batch before opening the transaction; argon2
	// is deliberately slow.
	codes, hashes, err := generateRecoveryCodes(accountID)
	if err != nil {
		return ConfirmTOTPResult{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Enrollments().DeleteKindStatus(ctx, accountID, domain.FactorTOTP, domain.EnrollmentActive); err != nil {
			return fmt.Errorf("failed to remove previous enrollment: %w", err)
		}
		if err := tx.Enrollments().PromotePending(ctx, accountID, domain.FactorTOTP); err != nil {
			return fmt.Errorf("failed to promote enrollment: %w", err)
		}
		if err := tx.RecoveryCodes().DeleteAll(ctx, accountID); err != nil {
			return fmt.Errorf("failed to clear old recovery codes: %w", err)
		}
		for _, rc := range hashes {
			if err := tx.RecoveryCodes().Create(ctx, rc); err != nil {
				return fmt.Errorf("failed to store recovery code: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return ConfirmTOTPResult{}, err
	}

	result := ConfirmTOTPResult{RecoveryCodes: codes}
	if rememberDevice {
		token, err := s.Remember.Mint(accountID)
		if err != nil {
			return ConfirmTOTPResult{}, fmt.Errorf("failed to mint remember token: %w", err)
		}
		result.RememberToken = token
	}
	return result, nil
}

// VerifyTOTP checks a code against the active enrollment and, on success,
// clears the session's second-factor gate. On failure the gate is left
// untouched and the caller may retry.
func (s *SecondFactorService) VerifyTOTP(ctx context.Context, accountID, sessionID, code string, rememberDevice bool) (string, error) {
	active, err := s.Store.Enrollments().GetByKindStatus(ctx, accountID, domain.FactorTOTP, domain.EnrollmentActive)
	if err != nil {
		return "", fmt.Errorf("failed to load active enrollment: %w", err)
	}

	secret, err := s.Secrets.Open(active.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to open totp secret: %w", err)
	}

	if err := s.TOTP.CheckCode(string(secret), code); err != nil {
		return "", mapProviderErr(err)
	}

	if err := s.clearGate(ctx, sessionID); err != nil {
		return "", err
	}

	return s.mintIfRequested(accountID, rememberDevice)
}

// RedeemRememberToken clears the session gate when a valid, unexpired
// remember-device token is presented. Invalid tokens fail closed as
// ErrVerificationFailed with no detail about what was wrong.
func (s *SecondFactorService) RedeemRememberToken(ctx context.Context, accountID, sessionID, token string) error {
	if token == "" {
		return ErrInvalidRequest
	}
	if !s.Remember.Verify(token, accountID, s.RememberMaxAge) {
		return ErrVerificationFailed
	}
	return s.clearGate(ctx, sessionID)
}

// DisableFactor removes the active and pending enrollments of the kind.
// Idempotent: disabling an unenrolled kind succeeds. When the account's
// last active factor goes away, every session of the account has its gate
// force-cleared so no login is left demanding a factor that no longer
// exists.
func (s *SecondFactorService) DisableFactor(ctx context.Context, accountID string, kind domain.FactorKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown factor kind %q", ErrInvalidRequest, kind)
	}
	if kind == domain.FactorSecurityKey && !s.SecurityKeysEnabled {
		return ErrMethodDisabled
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Enrollments().DeleteKind(ctx, accountID, kind); err != nil {
			return fmt.Errorf("failed to remove enrollments: %w", err)
		}
		if kind == domain.FactorTOTP {
			if err := tx.RecoveryCodes().DeleteAll(ctx, accountID); err != nil {
				return fmt.Errorf("failed to remove recovery codes: %w", err)
			}
		}
		return clearGateIfNoActive(ctx, tx, accountID)
	})
}

// DisableAllFactors wipes every factor record and recovery code for the
// account and force-clears the gate on all of its sessions.
func (s *SecondFactorService) DisableAllFactors(ctx context.Context, accountID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Enrollments().DeleteAll(ctx, accountID); err != nil {
			return fmt.Errorf("failed to remove enrollments: %w", err)
		}
		if err := tx.RecoveryCodes().DeleteAll(ctx, accountID); err != nil {
			return fmt.Errorf("failed to remove recovery codes: %w", err)
		}
		if err := tx.Sessions().ClearAllForAccount(ctx, accountID); err != nil {
			return fmt.Errorf("failed to clear session gates: %w", err)
		}
		return nil
	})
}

// ListEnrollments returns the account's factor records, newest first.
func (s *SecondFactorService) ListEnrollments(ctx context.Context, accountID string) ([]domain.Enrollment, error) {
	return s.Store.Enrollments().ListByAccount(ctx, accountID)
}

// clearGate marks the session as satisfied. A session the gate has never
// seen is fine; there is simply nothing to clear.
func (s *SecondFactorService) clearGate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := s.Store.Sessions().SetRequired(ctx, sessionID, false)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to clear session gate: %w", err)
	}
	return nil
}

func (s *SecondFactorService) mintIfRequested(accountID string, rememberDevice bool) (string, error) {
	if !rememberDevice {
		return "", nil
	}
	token, err := s.Remember.Mint(accountID)
	if err != nil {
		return "", fmt.Errorf("failed to mint remember token: %w", err)
	}
	return token, nil
}

func (s *SecondFactorService) lookupAccount(ctx context.Context, accountID string) (domain.Account, error) {
	return resolveAccount(ctx, s.Directory, accountID)
}

// resolveAccount fetches the account from the directory, mapping an unknown
// account to NotFound and everything else to ProviderUnavailable.
func resolveAccount(ctx context.Context, dir AccountDirectory, accountID string) (domain.Account, error) {
	acct, err := dir.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, directory.ErrAccountNotFound) {
			return domain.Account{}, fmt.Errorf("account %s: %w", accountID, store.ErrNotFound)
		}
		return domain.Account{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return acct, nil
}

// clearGateIfNoActive force-clears every session gate of the account once
// it has zero active factors. Runs inside the same transaction as the
// disable so a concurrent verify cannot observe a half-applied state.
func clearGateIfNoActive(ctx context.Context, tx store.Tx, accountID string) error {
	count, err := tx.Enrollments().CountActive(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to count active enrollments: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := tx.Sessions().ClearAllForAccount(ctx, accountID); err != nil {
		return fmt.Errorf("failed to clear session gates: %w", err)
	}
	return nil
}

func generateRecoveryCodes(accountID string) ([]string, []domain.RecoveryCode, error) {
	codes := make([]string, recoveryCodeCount)
	hashes := make([]domain.RecoveryCode, recoveryCodeCount)
	for i := range recoveryCodeCount {
		code, err := cryptox.GenerateToken(recoveryCodeBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate recovery code: %w", err)
		}
		hash, err := cryptox.HashSecret(code)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash recovery code: %w", err)
		}
		codes[i] = code
		hashes[i] = domain.RecoveryCode{
			ID:        idx.New().String(),
			AccountID: accountID,
			CodeHash:  hash,
		}
	}
	return codes, hashes, nil
}

// mapProviderErr translates adapter sentinels into the service taxonomy,
// keeping verification failures and provider outages distinct.
func mapProviderErr(err error) error {
	switch {
	case errors.Is(err, provider.ErrVerificationFailed):
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	case errors.Is(err, provider.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	default:
		return err
	}
}
