package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/copperline/gate/internal/gate/domain"
	"github.com/copperline/gate/internal/gate/provider"
	"github.com/copperline/gate/internal/gate/store"
	"github.com/stretchr/testify/require"
)

// fakeKeys accepts any response equal to wantResponse and hands back a
// credential blob derived from the session data.
type fakeKeys struct {
	wantResponse []byte
	beginErr     error
	finishErr    error
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{wantResponse: []byte(`{"attestation":"ok"}`)}
}

func (f *fakeKeys) BeginRegistration(acct provider.KeyAccount) (json.RawMessage, []byte, error) {
	if f.beginErr != nil {
		return nil, nil, f.beginErr
	}
	return json.RawMessage(`{"publicKey":{"challenge":"reg"}}`), []byte(`{"ceremony":"registration"}`), nil
}

func (f *fakeKeys) FinishRegistration(acct provider.KeyAccount, sessionData, response []byte) ([]byte, error) {
	if f.finishErr != nil {
		return nil, f.finishErr
	}
	if !bytes.Equal(response, f.wantResponse) {
		return nil, provider.ErrVerificationFailed
	}
	return []byte(`{"id":"cred-1","signCount":0}`), nil
}

func (f *fakeKeys) BeginAssertion(acct provider.KeyAccount) (json.RawMessage, []byte, error) {
	if f.beginErr != nil {
		return nil, nil, f.beginErr
	}
	return json.RawMessage(`{"publicKey":{"challenge":"assert"}}`), []byte(`{"ceremony":"assertion"}`), nil
}

func (f *fakeKeys) FinishAssertion(acct provider.KeyAccount, sessionData, response []byte) ([]byte, error) {
	if f.finishErr != nil {
		return nil, f.finishErr
	}
	if !bytes.Equal(response, f.wantResponse) {
		return nil, provider.ErrVerificationFailed
	}
	return []byte(`{"id":"cred-1","signCount":1}`), nil
}

// enrollKey walks the account through a full registration ceremony.
func (e *testEnv) enrollKey(t *testing.T, ctx context.Context, sessionID string) {
	t.Helper()
	ceremony, err := e.svc.StartKeyRegistration(ctx, e.account)
	require.NoError(t, err)
	_, err = e.svc.FinishKeyRegistration(ctx, e.account, sessionID, ceremony.ChallengeID, e.keys.wantResponse, false)
	require.NoError(t, err)
}

func TestKeyRegistration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	session, err := env.gate.ChallengeSession(ctx, "sess-1", env.account)
	require.NoError(t, err)
	require.False(t, session.SecondFactorRequired)

	ceremony, err := env.svc.StartKeyRegistration(ctx, env.account)
	require.NoError(t, err)
	require.NotEmpty(t, ceremony.ChallengeID)
	require.NotEmpty(t, ceremony.Options)

	t.Run("bad attestation fails, challenge burnt", func(t *testing.T) {
		_, err := env.svc.FinishKeyRegistration(ctx, env.account, "sess-1", ceremony.ChallengeID, []byte(`{"bogus":true}`), false)
		require.ErrorIs(t, err, ErrVerificationFailed)

		// The challenge was single use; even the right response is now
		// rejected until a new ceremony starts.
		_, err = env.svc.FinishKeyRegistration(ctx, env.account, "sess-1", ceremony.ChallengeID, env.keys.wantResponse, false)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("successful finish activates and clears the gate", func(t *testing.T) {
		// Gate the session first: give the account an active factor by
		// completing the ceremony, then challenge a fresh session.
		env.enrollKey(t, ctx, "sess-1")

		enrollments, err := env.svc.ListEnrollments(ctx, env.account)
		require.NoError(t, err)
		require.Equal(t, []domain.FactorKind{domain.FactorSecurityKey}, domain.ActiveKinds(enrollments))

		session, err := env.gate.ChallengeSession(ctx, "sess-2", env.account)
		require.NoError(t, err)
		require.True(t, session.SecondFactorRequired)

		// Re-registering from the gated session proves possession.
		env.enrollKey(t, ctx, "sess-2")

		ok, err := env.gate.IsSatisfied(ctx, "sess-2")
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestKeyAssertion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.enrollKey(t, ctx, "")

	session, err := env.gate.ChallengeSession(ctx, "sess-1", env.account)
	require.NoError(t, err)
	require.True(t, session.SecondFactorRequired)

	ceremony, err := env.svc.StartKeyAssertion(ctx, env.account)
	require.NoError(t, err)

	t.Run("bad assertion leaves the gate", func(t *testing.T) {
		_, err := env.svc.VerifyKey(ctx, env.account, "sess-1", ceremony.ChallengeID, []byte(`{"bogus":true}`), false)
		require.ErrorIs(t, err, ErrVerificationFailed)

		ok, err := env.gate.IsSatisfied(ctx, "sess-1")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("good assertion clears the gate and updates the credential", func(t *testing.T) {
		ceremony, err := env.svc.StartKeyAssertion(ctx, env.account)
		require.NoError(t, err)

		token, err := env.svc.VerifyKey(ctx, env.account, "sess-1", ceremony.ChallengeID, env.keys.wantResponse, true)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		ok, err := env.gate.IsSatisfied(ctx, "sess-1")
		require.NoError(t, err)
		require.True(t, ok)

		active, err := env.store.Enrollments().GetByKindStatus(ctx, env.account, domain.FactorSecurityKey, domain.EnrollmentActive)
		require.NoError(t, err)
		require.Contains(t, string(active.KeyHandle), `"signCount":1`)
	})

	t.Run("assertion without an active key is not found", func(t *testing.T) {
		env2 := newTestEnv(t)
		_, err := env2.svc.StartKeyAssertion(ctx, env2.account)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestKeyChallengeBelongsToAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	ceremony, err := env.svc.StartKeyRegistration(ctx, env.account)
	require.NoError(t, err)

	_, err = env.svc.FinishKeyRegistration(ctx, "acc-other", "", ceremony.ChallengeID, env.keys.wantResponse, false)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSecurityKeysDisabled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.svc.SecurityKeysEnabled = false

	_, err := env.svc.StartKeyRegistration(ctx, env.account)
	require.ErrorIs(t, err, ErrMethodDisabled)

	_, err = env.svc.FinishKeyRegistration(ctx, env.account, "", "chal", nil, false)
	require.ErrorIs(t, err, ErrMethodDisabled)

	_, err = env.svc.StartKeyAssertion(ctx, env.account)
	require.ErrorIs(t, err, ErrMethodDisabled)

	_, err = env.svc.VerifyKey(ctx, env.account, "", "chal", nil, false)
	require.ErrorIs(t, err, ErrMethodDisabled)

	err = env.svc.DisableFactor(ctx, env.account, domain.FactorSecurityKey)
	require.ErrorIs(t, err, ErrMethodDisabled)
}

func TestDisabledKeysDoNotGateSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.enrollKey(t, ctx, "")

	// The deployment turns keys off afterwards; an unusable factor must
	// not lock new sessions out.
	env.gate.SecurityKeysEnabled = false

	session, err := env.gate.ChallengeSession(ctx, "sess-1", env.account)
	require.NoError(t, err)
	require.False(t, session.SecondFactorRequired)
}
