package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "gate-test"
	testAudience = "gate"
)

func signerVerifier(t *testing.T, secret string) (*HS256Signer, *HS256Verifier) {
	t.Helper()
	signer, err := NewSignerHS256([]byte(secret))
	require.NoError(t, err)
	return signer, NewVerifierHS256([]byte(secret), testIssuer, []string{testAudience})
}

func TestHS256RoundTrip(t *testing.T) {
	signer, verifier := signerVerifier(t, "shared-secret")

	claims := NewServiceClaims(
		"account-web",
		[]string{"gate:verify", "gate:manage"},
		DefaultServiceTokenTTL,
		testIssuer,
		[]string{testAudience},
		time.Now(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "account-web", got.Subject)
	require.Equal(t, []string{"gate:verify", "gate:manage"}, got.Scopes)
	require.NoError(t, got.ValidateExpiry())
}

func TestHS256RejectsWrongSecret(t *testing.T) {
	signer, _ := signerVerifier(t, "secret-a")
	_, verifier := signerVerifier(t, "secret-b")

	token, err := signer.Sign(NewServiceClaims(
		"account-web", nil, time.Minute, testIssuer, []string{testAudience}, time.Now()))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestHS256RejectsWrongIssuerAndAudience(t *testing.T) {
	signer, verifier := signerVerifier(t, "shared-secret")

	t.Run("issuer mismatch", func(t *testing.T) {
		token, err := signer.Sign(NewServiceClaims(
			"account-web", nil, time.Minute, "someone-else", []string{testAudience}, time.Now()))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrIssuer)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		token, err := signer.Sign(NewServiceClaims(
			"account-web", nil, time.Minute, testIssuer, []string{"other-service"}, time.Now()))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrAudience)
	})
}

func TestHS256ExpiredToken(t *testing.T) {
	signer, verifier := signerVerifier(t, "shared-secret")

	token, err := signer.Sign(NewServiceClaims(
		"account-web", nil, time.Minute, testIssuer, []string{testAudience},
		time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	// Signature and claims still verify; expiry is a separate check.
	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.ErrorIs(t, got.ValidateExpiry(), ErrExpired)
}

func TestHS256Malformed(t *testing.T) {
	_, verifier := signerVerifier(t, "shared-secret")

	for _, token := range []string{"", "garbage", "a.b", "a.b.c"} {
		_, err := verifier.Verify(token)
		require.Error(t, err, "token %q", token)
	}
}

func TestNewSignerHS256RejectsEmptySecret(t *testing.T) {
	_, err := NewSignerHS256(nil)
	require.Error(t, err)
}
