package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/copperline/gate/internal/gate/domain"
	"github.com/copperline/gate/internal/gate/provider"
	"github.com/copperline/gate/internal/gate/store"
	"github.com/copperline/gate/pkg/idx"
)

// challengeTTL bounds how long a browser has between the begin and finish
// halves of a security-key ceremony.
const challengeTTL = 5 * time.Minute

// KeyCeremony is the public half of a started ceremony: the options blob
// goes to the browser verbatim and the challenge id comes back with the
// browser's response.
type KeyCeremony struct {
	ChallengeID string
	Options     json.RawMessage
}

// StartKeyRegistration begins a security-key enrollment: a pending record
// is written (replacing any prior pending one) and the provider's creation
// options are returned alongside a single-use challenge reference.
func (s *SecondFactorService) StartKeyRegistration(ctx context.Context, accountID string) (KeyCeremony, error) {
	if !s.SecurityKeysEnabled {
		return KeyCeremony{}, ErrMethodDisabled
	}

	acct, err := s.keyAccount(ctx, accountID)
	if err != nil {
		return KeyCeremony{}, err
	}

	options, sessionData, err := s.SecurityKeys.BeginRegistration(acct)
	if err != nil {
		return KeyCeremony{}, mapProviderErr(err)
	}

	err = s.Store.Enrollments().UpsertPending(ctx, domain.Enrollment{
		ID:        idx.New().String(),
		AccountID: accountID,
		Kind:      domain.FactorSecurityKey,
		Status:    domain.EnrollmentPending,
	})
	if err != nil {
		return KeyCeremony{}, fmt.Errorf("failed to store pending enrollment: %w", err)
	}

	return s.storeChallenge(ctx, accountID, domain.ChallengeRegistration, options, sessionData)
}

// FinishKeyRegistration validates the browser's attestation response,
// activates the enrollment, and clears the current session's gate: a
// successful registration also proves possession for this session.
func (s *SecondFactorService) FinishKeyRegistration(ctx context.Context, accountID, sessionID, challengeID string, response []byte, rememberDevice bool) (string, error) {
	if !s.SecurityKeysEnabled {
		return "", ErrMethodDisabled
	}

	sessionData, err := s.consumeChallenge(ctx, accountID, challengeID, domain.ChallengeRegistration)
	if err != nil {
		return "", err
	}

	acct, err := s.keyAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	credential, err := s.SecurityKeys.FinishRegistration(acct, sessionData, response)
	if err != nil {
		return "", mapProviderErr(err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Enrollments().SetPendingKeyHandle(ctx, accountID, domain.FactorSecurityKey, credential); err != nil {
			return fmt.Errorf("failed to store key handle: %w", err)
		}
		if err := tx.Enrollments().DeleteKindStatus(ctx, accountID, domain.FactorSecurityKey, domain.EnrollmentActive); err != nil {
			return fmt.Errorf("failed to remove previous enrollment: %w", err)
		}
		if err := tx.Enrollments().PromotePending(ctx, accountID, domain.FactorSecurityKey); err != nil {
			return fmt.Errorf("failed to promote enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := s.clearGate(ctx, sessionID); err != nil {
		return "", err
	}

	return s.mintIfRequested(accountID, rememberDevice)
}

// StartKeyAssertion begins a verification ceremony against the active
// enrollment.
func (s *SecondFactorService) StartKeyAssertion(ctx context.Context, accountID string) (KeyCeremony, error) {
	if !s.SecurityKeysEnabled {
		return KeyCeremony{}, ErrMethodDisabled
	}

	acct, err := s.keyAccount(ctx, accountID)
	if err != nil {
		return KeyCeremony{}, err
	}
	if len(acct.Credentials) == 0 {
		return KeyCeremony{}, fmt.Errorf("no active security key: %w", store.ErrNotFound)
	}

	options, sessionData, err := s.SecurityKeys.BeginAssertion(acct)
	if err != nil {
		return KeyCeremony{}, mapProviderErr(err)
	}

	return s.storeChallenge(ctx, accountID, domain.ChallengeAssertion, options, sessionData)
}

// VerifyKey validates the browser's assertion response and clears the
// session gate on success. The stored credential is refreshed with the
// provider's updated sign count.
func (s *SecondFactorService) VerifyKey(ctx context.Context, accountID, sessionID, challengeID string, response []byte, rememberDevice bool) (string, error) {
	if !s.SecurityKeysEnabled {
		return "", ErrMethodDisabled
	}

	sessionData, err := s.consumeChallenge(ctx, accountID, challengeID, domain.ChallengeAssertion)
	if err != nil {
		return "", err
	}

	acct, err := s.keyAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if len(acct.Credentials) == 0 {
		return "", fmt.Errorf("no active security key: %w", store.ErrNotFound)
	}

	credential, err := s.SecurityKeys.FinishAssertion(acct, sessionData, response)
	if err != nil {
		return "", mapProviderErr(err)
	}

	err = s.Store.Enrollments().UpdateActiveKeyHandle(ctx, accountID, domain.FactorSecurityKey, credential)
	if err != nil {
		return "", fmt.Errorf("failed to update key handle: %w", err)
	}

	if err := s.clearGate(ctx, sessionID); err != nil {
		return "", err
	}

	return s.mintIfRequested(accountID, rememberDevice)
}

// keyAccount assembles the provider-facing identity: directory username
// plus the active credential, if any.
func (s *SecondFactorService) keyAccount(ctx context.Context, accountID string) (provider.KeyAccount, error) {
	acct, err := s.lookupAccount(ctx, accountID)
	if err != nil {
		return provider.KeyAccount{}, err
	}

	out := provider.KeyAccount{ID: acct.ID, Username: acct.Username}

	active, err := s.Store.Enrollments().GetByKindStatus(ctx, accountID, domain.FactorSecurityKey, domain.EnrollmentActive)
	switch {
	case err == nil:
		if len(active.KeyHandle) > 0 {
			out.Credentials = [][]byte{active.KeyHandle}
		}
	case errors.Is(err, store.ErrNotFound):
		// no active key yet
	default:
		return provider.KeyAccount{}, fmt.Errorf("failed to load active enrollment: %w", err)
	}

	return out, nil
}

func (s *SecondFactorService) storeChallenge(ctx context.Context, accountID string, purpose domain.ChallengePurpose, options json.RawMessage, sessionData []byte) (KeyCeremony, error) {
	challenge := domain.Challenge{
		ID:          idx.New().String(),
		AccountID:   accountID,
		Purpose:     purpose,
		SessionData: sessionData,
		ExpiresAt:   time.Now().Add(challengeTTL),
	}
	if err := s.Store.Challenges().Create(ctx, challenge); err != nil {
		return KeyCeremony{}, fmt.Errorf("failed to store challenge: %w", err)
	}
	return KeyCeremony{ChallengeID: challenge.ID, Options: options}, nil
}

// consumeChallenge redeems a challenge exactly once and checks it belongs
// to the right account and ceremony. A mismatch is reported as not found
// so a guessing caller learns nothing.
func (s *SecondFactorService) consumeChallenge(ctx context.Context, accountID, challengeID string, purpose domain.ChallengePurpose) ([]byte, error) {
	challenge, err := s.Store.Challenges().Consume(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem challenge: %w", err)
	}
	if challenge.AccountID != accountID || challenge.Purpose != purpose {
		return nil, fmt.Errorf("challenge mismatch: %w", store.ErrNotFound)
	}
	return challenge.SessionData, nil
}
