package gate_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copperline/gate/pkg/gatesdk"
)

// TestRecoveryCodeRedemption burns a recovery code to clear a gated session
// and checks that each code is single use.
func TestRecoveryCodeRedemption(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := newGateClient(t, baseURL)
	ctx := t.Context()

	_, codes := enrollTOTP(t, client, testAccountID)

	session, err := client.ChallengeSession(ctx, "sess-recovery-1", gatesdk.ChallengeSessionRequest{
		AccountID: testAccountID,
	})
	require.NoError(t, err)
	require.True(t, session.SecondFactorRequired)

	resp, err := client.VerifyRecoveryCode(ctx, testAccountID, gatesdk.RecoveryVerifyRequest{
		SessionID: "sess-recovery-1",
		Code:      codes[0],
	})
	require.NoError(t, err)
	require.Equal(t, 9, resp.Remaining)

	session, err = client.GetSession(ctx, "sess-recovery-1")
	require.NoError(t, err)
	require.False(t, session.SecondFactorRequired)

	t.Logf("Recovery code accepted, %d remaining", resp.Remaining)

	// The same code again must fail.
	_, err = client.VerifyRecoveryCode(ctx, testAccountID, gatesdk.RecoveryVerifyRequest{
		Code: codes[0],
	})
	assertGateError(t, err, http.StatusForbidden, gatesdk.ErrorCodeVerificationFailed)

	t.Logf("Recovery code reuse correctly rejected")
}

// TestRecoveryCodeRegeneration replaces the batch and checks the old codes
// stop working.
func TestRecoveryCodeRegeneration(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := newGateClient(t, baseURL)
	ctx := t.Context()

	secret, oldCodes := enrollTOTP(t, client, testAccountID)

	regen, err := client.RegenerateRecoveryCodes(ctx, testAccountID, gatesdk.RecoveryRegenerateRequest{
		Code: generateTOTP(t, secret),
	})
	require.NoError(t, err)
	require.Len(t, regen.Codes, 10)

	t.Logf("Regenerated recovery codes")

	_, err = client.VerifyRecoveryCode(ctx, testAccountID, gatesdk.RecoveryVerifyRequest{
		Code: oldCodes[0],
	})
	assertGateError(t, err, http.StatusForbidden, gatesdk.ErrorCodeVerificationFailed)

	resp, err := client.VerifyRecoveryCode(ctx, testAccountID, gatesdk.RecoveryVerifyRequest{
		Code: regen.Codes[0],
	})
	require.NoError(t, err)
	require.Equal(t, 9, resp.Remaining)
}

// TestRecoveryRegenerationRequiresCode makes sure a wrong TOTP code cannot
// rotate the batch.
func TestRecoveryRegenerationRequiresCode(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := newGateClient(t, baseURL)
	ctx := t.Context()

	_, oldCodes := enrollTOTP(t, client, testAccountID)

	_, err := client.RegenerateRecoveryCodes(ctx, testAccountID, gatesdk.RecoveryRegenerateRequest{
		Code: "000000",
	})
	assertGateError(t, err, http.StatusForbidden, gatesdk.ErrorCodeVerificationFailed)

	// The old batch survives the failed attempt.
	resp, err := client.VerifyRecoveryCode(ctx, testAccountID, gatesdk.RecoveryVerifyRequest{
		Code: oldCodes[0],
	})
	require.NoError(t, err)
	require.Equal(t, 9, resp.Remaining)
}
