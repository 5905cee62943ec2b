package remember

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testAccountID = "01JD0V9GJT6M4X1Q2W3E4R5T6Y"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]byte("test-signing-secret"))
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsEmptySecret(t *testing.T) {
	_, err := NewCodec(nil)
	require.Error(t, err)
}

func TestMintVerifyRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.Mint(testAccountID)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "::"), 3)

	require.True(t, c.Verify(token, testAccountID, 30*24*time.Hour))
}

func TestVerifyRejectsTampering(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.Mint(testAccountID)
	require.NoError(t, err)

	t.Run("any single flipped character invalidates", func(t *testing.T) {
		for i := range token {
			if token[i] == ':' {
				continue
			}
			altered := []byte(token)
			if altered[i] == '0' {
				altered[i] = '1'
			} else {
				altered[i] = '0'
			}
			require.False(t, c.Verify(string(altered), testAccountID, time.Hour),
				"altered byte %d should invalidate", i)
		}
	})

	t.Run("different account invalidates", func(t *testing.T) {
		require.False(t, c.Verify(token, "01JD0V9GJT6M4X1Q2W3E4R5T6Z", time.Hour))
	})

	t.Run("different secret invalidates", func(t *testing.T) {
		other, err := NewCodec([]byte("other-secret"))
		require.NoError(t, err)
		require.False(t, other.Verify(token, testAccountID, time.Hour))
	})
}

func TestVerifyFailsClosedOnMalformedTokens(t *testing.T) {
	c := newTestCodec(t)

	for _, token := range []string{
		"",
		"::",
		"abc",
		"abc::def",
		"abc::def::ghi::jkl",
		"zzzz::aabbccddeeff0011::deadbeef",     // bad timestamp hex
		"18f0::not-hex::deadbeef",              // bad nonce hex
		"-18f0::aabbccddeeff0011::" + strings.Repeat("0", 64), // negative timestamp
	} {
		require.False(t, c.Verify(token, testAccountID, time.Hour), "token %q", token)
	}
}

func TestVerifyEnforcesMaxAge(t *testing.T) {
	c := newTestCodec(t)
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	token := c.mintAt(testAccountID, issued, nonce)

	t.Run("valid inside the window", func(t *testing.T) {
		now := issued.Add(29 * 24 * time.Hour)
		require.True(t, c.verifyAt(token, testAccountID, 30*24*time.Hour, now))
	})

	t.Run("invalid past the window even with a correct signature", func(t *testing.T) {
		now := issued.Add(31 * 24 * time.Hour)
		require.False(t, c.verifyAt(token, testAccountID, 30*24*time.Hour, now))
	})
}

func TestVerifyRejectsFutureTimestamps(t *testing.T) {
	c := newTestCodec(t)
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	token := c.mintAt(testAccountID, issued, nonce)

	t.Run("small skew tolerated", func(t *testing.T) {
		now := issued.Add(-30 * time.Second)
		require.True(t, c.verifyAt(token, testAccountID, time.Hour, now))
	})

	t.Run("stamp well ahead of the clock fails closed", func(t *testing.T) {
		now := issued.Add(-2 * time.Minute)
		require.False(t, c.verifyAt(token, testAccountID, time.Hour, now))
	})
}

func TestMintedTokensAreUnique(t *testing.T) {
	c := newTestCodec(t)

	a, err := c.Mint(testAccountID)
	require.NoError(t, err)
	b, err := c.Mint(testAccountID)
	require.NoError(t, err)

	require.NotEqual(t, a, b, "fresh nonce per mint")
}
