package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/copperline/gate/internal/gate/domain"
	"github.com/copperline/gate/internal/gate/store"
)

// SessionGateService tracks, per login session, whether a second factor is
// still owed. Sessions are independent rows; there is no cross-session
// locking.
type SessionGateService struct {
	Store     store.Store
	Directory AccountDirectory

	// SecurityKeysEnabled mirrors the orchestrator's deployment toggle. A
	// factor kind that cannot be verified must not gate a session.
	SecurityKeysEnabled bool
}

// ChallengeSession is called by the web layer at password-authentication
// time. It records the session and decides whether a second factor is owed:
// true when the account holds at least one active enrollment of a kind that
// is usable right now (enabled for the deployment and, when the directory
// restricts kinds, enabled for the account).
func (s *SessionGateService) ChallengeSession(ctx context.Context, sessionID, accountID string) (domain.LoginSession, error) {
	if sessionID == "" || accountID == "" {
		return domain.LoginSession{}, fmt.Errorf("%w: session and account ids are required", ErrInvalidRequest)
	}

	acct, err := resolveAccount(ctx, s.Directory, accountID)
	if err != nil {
		return domain.LoginSession{}, err
	}

	enrollments, err := s.Store.Enrollments().ListByAccount(ctx, accountID)
	if err != nil {
		return domain.LoginSession{}, fmt.Errorf("failed to load enrollments: %w", err)
	}

	required := false
	for _, kind := range domain.ActiveKinds(enrollments) {
		if s.kindUsable(kind, acct) {
			required = true
			break
		}
	}

	session := domain.LoginSession{
		ID:                   sessionID,
		AccountID:            accountID,
		SecondFactorRequired: required,
	}
	if err := s.Store.Sessions().Upsert(ctx, session); err != nil {
		return domain.LoginSession{}, fmt.Errorf("failed to store session gate: %w", err)
	}
	return session, nil
}

// Get returns the session's gating state.
func (s *SessionGateService) Get(ctx context.Context, sessionID string) (domain.LoginSession, error) {
	return s.Store.Sessions().Get(ctx, sessionID)
}

// IsSatisfied reports whether the session may access protected routes. A
// session the gate has never seen is satisfied: it belongs to an account
// that was never challenged.
func (s *SessionGateService) IsSatisfied(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.Store.Sessions().Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !session.SecondFactorRequired, nil
}

// OnLogout discards the session's gating state.
func (s *SessionGateService) OnLogout(ctx context.Context, sessionID string) error {
	return s.Store.Sessions().Delete(ctx, sessionID)
}

// kindUsable reports whether an active enrollment of the kind can actually
// be verified and should therefore gate a session. An empty directory kind
// list means no per-account restriction.
func (s *SessionGateService) kindUsable(kind domain.FactorKind, acct domain.Account) bool {
	if kind == domain.FactorSecurityKey && !s.SecurityKeysEnabled {
		return false
	}
	if len(acct.EnabledFactorKinds) == 0 {
		return true
	}
	return slices.Contains(acct.EnabledFactorKinds, kind)
}
