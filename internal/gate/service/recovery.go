package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/copperline/gate/internal/gate/domain"
	"github.com/copperline/gate/internal/gate/store"
	"github.com/copperline/gate/pkg/cryptox"
)

// RegenerateRecoveryCodes replaces the account's recovery batch after a
// fresh TOTP check. The old batch stops working the moment the new one is
// issued.
func (s *SecondFactorService) RegenerateRecoveryCodes(ctx context.Context, accountID, code string) ([]string, error) {
	active, err := s.Store.Enrollments().GetByKindStatus(ctx, accountID, domain.FactorTOTP, domain.EnrollmentActive)
	if err != nil {
		return nil, fmt.Errorf("failed to load active enrollment: %w", err)
	}

	secret, err := s.Secrets.Open(active.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to open totp secret: %w", err)
	}

	if err := s.TOTP.CheckCode(string(secret), code); err != nil {
		return nil, mapProviderErr(err)
	}

	codes, hashes, err := generateRecoveryCodes(accountID)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
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
		return nil, err
	}

	return codes, nil
}

// VerifyRecoveryCode burns a single-use recovery code and clears the
// session gate. Each stored hash is salted, so the presented code is
// checked against every remaining hash in turn.
func (s *SecondFactorService) VerifyRecoveryCode(ctx context.Context, accountID, sessionID, code string) (remaining int, err error) {
	if code == "" {
		return 0, ErrInvalidRequest
	}

	stored, err := s.Store.RecoveryCodes().ListByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to load recovery codes: %w", err)
	}

	matchedID := ""
	for _, rc := range stored {
		verr := cryptox.VerifyHash(code, rc.CodeHash)
		if verr == nil {
			matchedID = rc.ID
			break
		}
		if !errors.Is(verr, cryptox.ErrHashMismatch) {
			return 0, fmt.Errorf("failed to check recovery code: %w", verr)
		}
	}
	if matchedID == "" {
		return 0, ErrVerificationFailed
	}

	if err := s.Store.RecoveryCodes().Delete(ctx, matchedID); err != nil {
		return 0, fmt.Errorf("failed to burn recovery code: %w", err)
	}

	if err := s.clearGate(ctx, sessionID); err != nil {
		return 0, err
	}

	remaining, err = s.Store.RecoveryCodes().Count(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to count recovery codes: %w", err)
	}
	return remaining, nil
}
