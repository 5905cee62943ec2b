package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecretBoxRoundTrip(t *testing.T) {
	box, err := NewSecretBox([]byte("test-master-key"))
	require.NoError(t, err)

	sealed, err := box.Seal([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "JBSWY3DPEHPK3PXP")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", string(opened))
}

func TestSecretBoxFreshNonces(t *testing.T) {
	box, err := NewSecretBox([]byte("test-master-key"))
	require.NoError(t, err)

	a, err := box.Seal([]byte("secret"))
	require.NoError(t, err)
	b, err := box.Seal([]byte("secret"))
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestSecretBoxRejectsTampering(t *testing.T) {
	box, err := NewSecretBox([]byte("test-master-key"))
	require.NoError(t, err)

	sealed, err := box.Seal([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = box.Open(sealed)
	require.Error(t, err)
}

func TestSecretBoxWrongKey(t *testing.T) {
	box1, err := NewSecretBox([]byte("key-one"))
	require.NoError(t, err)
	box2, err := NewSecretBox([]byte("key-two"))
	require.NoError(t, err)

	sealed, err := box1.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = box2.Open(sealed)
	require.Error(t, err)
}

func TestSecretBoxRejectsEmptyKey(t *testing.T) {
	_, err := NewSecretBox(nil)
	require.Error(t, err)
}

func TestSecretBoxShortCiphertext(t *testing.T) {
	box, err := NewSecretBox([]byte("test-master-key"))
	require.NoError(t, err)

	_, err = box.Open([]byte{0x01, 0x02})
	require.Error(t, err)
}
