package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSecretRoundTrip(t *testing.T) {
	hash, err := HashSecret("recovery-code-1234")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyHash("recovery-code-1234", hash))
	require.ErrorIs(t, VerifyHash("recovery-code-9999", hash), ErrHashMismatch)
}

func TestHashSecretSalted(t *testing.T) {
	a, err := HashSecret("same-value")
	require.NoError(t, err)
	b, err := HashSecret("same-value")
	require.NoError(t, err)

	require.NotEqual(t, a, b, "each hash must carry a fresh salt")
}

func TestVerifyHashMalformed(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not phc", "plainhash"},
		{"wrong algorithm", "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"bad salt encoding", "$argon2id$v=19$m=19456,t=2,p=1$!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyHash("value", tt.hash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrHashMismatch)
		})
	}
}
