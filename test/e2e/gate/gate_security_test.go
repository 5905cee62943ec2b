package gate_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copperline/gate/pkg/gatesdk"
)

// requireStatus asserts the error is a GateError with the given HTTP status.
// Middleware rejections carry RFC 6750 headers rather than a JSON body, so
// only the status is meaningful there.
func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	var gerr *gatesdk.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, status, gerr.StatusCode)
}

// TestRequestsRequireServiceToken checks every protected route rejects
// unauthenticated callers.
func TestRequestsRequireServiceToken(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := gatesdk.NewClient(baseURL, "")
	ctx := t.Context()

	_, err := client.SetupTOTP(ctx, testAccountID)
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = client.ListEnrollments(ctx, testAccountID)
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = client.GetSession(ctx, "sess-any")
	requireStatus(t, err, http.StatusUnauthorized)

	t.Logf("Unauthenticated requests correctly rejected")
}

// TestScopesAreEnforced checks a token holding only gate:read cannot manage
// or verify factors.
func TestScopesAreEnforced(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	readOnly := gatesdk.NewClient(baseURL, serviceToken(t, gatesdk.ScopeRead))
	ctx := t.Context()

	_, err := readOnly.SetupTOTP(ctx, testAccountID)
	requireStatus(t, err, http.StatusForbidden)

	_, err = readOnly.VerifyTOTP(ctx, testAccountID, gatesdk.TOTPVerifyRequest{Code: "123456"})
	requireStatus(t, err, http.StatusForbidden)

	// Reads still work.
	_, err = readOnly.ListEnrollments(ctx, testAccountID)
	require.NoError(t, err)

	t.Logf("Scope enforcement verified")
}

// TestCodeShapeIsValidatedAtTheBoundary checks malformed codes are rejected
// as bad requests before any verification is attempted.
func TestCodeShapeIsValidatedAtTheBoundary(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := newGateClient(t, baseURL)
	ctx := t.Context()

	for _, code := range []string{"", "12345", "1234567", "12345a", "12 456"} {
		_, err := client.VerifyTOTP(ctx, testAccountID, gatesdk.TOTPVerifyRequest{Code: code})
		assertGateError(t, err, http.StatusBadRequest, gatesdk.ErrorCodeInvalidRequest)
	}
}

// TestUnknownAccountIsNotFound checks enrollment against an account the
// directory does not know about.
func TestUnknownAccountIsNotFound(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()

	client := newGateClient(t, baseURL)

	_, err := client.SetupTOTP(t.Context(), "acc-does-not-exist")
	assertGateError(t, err, http.StatusNotFound, gatesdk.ErrorCodeNotFound)
}
