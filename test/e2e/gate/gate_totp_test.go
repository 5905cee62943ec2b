package gate_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/copperline/gate/pkg/gatesdk"
)

// generateTOTP produces a code for the given secret at the current time.
func generateTOTP(t *testing.T, secret string) string {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	return code
}

// enrollTOTP walks an account through setup and confirm, returning the
// shared secret and the recovery codes handed out on confirmation.
func enrollTOTP(t *testing.T, client *gatesdk.Client, accountID string) (string, []string) {
	t.Helper()
	ctx := t.Context()

	setup, err := client.SetupTOTP(ctx, accountID)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.URL, "otpauth://")

	confirm, err := client.ConfirmTOTP(ctx, accountID, gatesdk.TOTPConfirmRequest{
		Code: generateTOTP(t, setup.Secret),
	})
	require.NoError(t, err)
	require.Len(t, confirm.RecoveryCodes, 10)

	return setup.Secret, confirm.RecoveryCodes
}

// TestTOTPEnrollmentAndVerification walks the full TOTP lifecycle: enroll,
// gate a login session, verify a code to clear it, then disable.
func TestTOTPEnrollmentAndVerification(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := newGateClient(t, baseURL)
	ctx := t.Context()

	secret, _ := enrollTOTP(t, client, testAccountID)
	t.Logf("TOTP enrolled for %s", testAccountID)

	enrollments, err := client.ListEnrollments(ctx, testAccountID)
	require.NoError(t, err)
	require.Len(t, enrollments.Enrollments, 1)
	require.Equal(t, "totp", enrollments.Enrollments[0].Kind)
	require.Equal(t, "active", enrollments.Enrollments[0].Status)

	// A fresh login session for this account must now be gated.
	session, err := client.ChallengeSession(ctx, "sess-totp-1", gatesdk.ChallengeSessionRequest{
		AccountID: testAccountID,
	})
	require.NoError(t, err)
	require.True(t, session.SecondFactorRequired)

	// A wrong code leaves the gate in place.
	_, err = client.VerifyTOTP(ctx, testAccountID, gatesdk.TOTPVerifyRequest{
		SessionID: "sess-totp-1",
		Code:      "000000",
	})
	assertGateError(t, err, http.StatusForbidden, gatesdk.ErrorCodeVerificationFailed)

	session, err = client.GetSession(ctx, "sess-totp-1")
	require.NoError(t, err)
	require.True(t, session.SecondFactorRequired)

	// The right code clears it.
	_, err = client.VerifyTOTP(ctx, testAccountID, gatesdk.TOTPVerifyRequest{
		SessionID: "sess-totp-1",
		Code:      generateTOTP(t, secret),
	})
	require.NoError(t, err)

	session, err = client.GetSession(ctx, "sess-totp-1")
	require.NoError(t, err)
	require.False(t, session.SecondFactorRequired)

	t.Logf("Session gate cleared after TOTP verification")

	// Disabling the last factor means new sessions are no longer gated.
	require.NoError(t, client.DisableTOTP(ctx, testAccountID))

	session, err = client.ChallengeSession(ctx, "sess-totp-2", gatesdk.ChallengeSessionRequest{
		AccountID: testAccountID,
	})
	require.NoError(t, err)
	require.False(t, session.SecondFactorRequired)
}

// TestTOTPConfirmRequiresCorrectCode checks that a failed confirmation
// keeps the pending enrollment so the user can retry with the same secret.
func TestTOTPConfirmRequiresCorrectCode(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := newGateClient(t, baseURL)
	ctx := t.Context()

	setup, err := client.SetupTOTP(ctx, testAccountID)
	require.NoError(t, err)

	_, err = client.ConfirmTOTP(ctx, testAccountID, gatesdk.TOTPConfirmRequest{
		Code: "000000",
	})
	assertGateError(t, err, http.StatusForbidden, gatesdk.ErrorCodeVerificationFailed)

	// The pending enrollment survives, so the original secret still confirms.
	confirm, err := client.ConfirmTOTP(ctx, testAccountID, gatesdk.TOTPConfirmRequest{
		Code: generateTOTP(t, setup.Secret),
	})
	require.NoError(t, err)
	require.Len(t, confirm.RecoveryCodes, 10)

	t.Logf("Confirmation retried successfully after a wrong code")
}

// TestTOTPReenrollmentReplacesSecret covers starting enrollment again while
// a previous one is active: the active secret keeps working until the new
// one is confirmed.
func TestTOTPReenrollmentReplacesSecret(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := newGateClient(t, baseURL)
	ctx := t.Context()

	oldSecret, _ := enrollTOTP(t, client, testAccountID)

	setup, err := client.SetupTOTP(ctx, testAccountID)
	require.NoError(t, err)
	require.NotEqual(t, oldSecret, setup.Secret)

	// Old secret still verifies while the replacement is only pending.
	_, err = client.VerifyTOTP(ctx, testAccountID, gatesdk.TOTPVerifyRequest{
		Code: generateTOTP(t, oldSecret),
	})
	require.NoError(t, err)

	_, err = client.ConfirmTOTP(ctx, testAccountID, gatesdk.TOTPConfirmRequest{
		Code: generateTOTP(t, setup.Secret),
	})
	require.NoError(t, err)

	// Now the roles flip.
	_, err = client.VerifyTOTP(ctx, testAccountID, gatesdk.TOTPVerifyRequest{
		Code: generateTOTP(t, setup.Secret),
	})
	require.NoError(t, err)

	enrollments, err := client.ListEnrollments(ctx, testAccountID)
	require.NoError(t, err)
	require.Len(t, enrollments.Enrollments, 1)

	t.Logf("Re-enrollment promoted and old enrollment replaced")
}
