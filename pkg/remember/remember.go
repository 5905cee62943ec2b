// Package remember mints and verifies the stateless "remember this device"
// bearer token. A token lets a client that already passed a second-factor
// check skip further checks until the token ages out.
//
// Token format: timestampHex::nonceHex::signatureHex, where the signature is
// an HMAC-SHA256 over the first two parts, keyed with the process signing
// secret bound to the account id. Nothing is stored server-side; validity is
// purely a function of the signature and the token's age.
package remember

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NonceSize is the number of random bytes in each token.
const NonceSize = 8

// maxClockSkew bounds how far in the future a token's timestamp may sit
// before it is rejected. Minting and verifying hosts share a clock in
// practice; anything beyond a small skew is a forged or corrupted stamp.
const maxClockSkew = time.Minute

const partSeparator = "::"

// Codec signs and verifies remember tokens with a fixed signing secret.
// Safe for concurrent use; it holds no mutable state.
type Codec struct {
	secret []byte
}

// NewCodec returns a codec using the given signing secret. The secret is a
// process-wide configuration value loaded once at startup.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("remember: empty signing secret")
	}
	return &Codec{secret: secret}, nil
}

// Mint issues a token for accountID using the current time.
func (c *Codec) Mint(accountID string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("remember: failed to generate nonce: %w", err)
	}
	return c.mintAt(accountID, time.Now(), nonce), nil
}

func (c *Codec) mintAt(accountID string, now time.Time, nonce []byte) string {
	tsHex := strconv.FormatInt(now.UnixMilli(), 16)
	nonceHex := hex.EncodeToString(nonce)
	sig := c.sign(accountID, tsHex, nonceHex)

	return tsHex + partSeparator + nonceHex + partSeparator + sig
}

// Verify reports whether token is a valid, unexpired remember token for
// accountID. It fails closed: any malformed input is simply invalid.
func (c *Codec) Verify(token, accountID string, maxAge time.Duration) bool {
	return c.verifyAt(token, accountID, maxAge, time.Now())
}

func (c *Codec) verifyAt(token, accountID string, maxAge time.Duration, now time.Time) bool {
	parts := strings.Split(token, partSeparator)
	if len(parts) != 3 {
		return false
	}
	tsHex, nonceHex, sig := parts[0], parts[1], parts[2]

	issuedMilli, err := strconv.ParseInt(tsHex, 16, 64)
	if err != nil || issuedMilli <= 0 {
		return false
	}
	if _, err := hex.DecodeString(nonceHex); err != nil {
		return false
	}

	want := c.sign(accountID, tsHex, nonceHex)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return false
	}

	age := now.UnixMilli() - issuedMilli
	if age < -maxClockSkew.Milliseconds() {
		return false
	}
	return age <= maxAge.Milliseconds()
}

// sign keys the MAC with secret:accountID so a leaked signature is only
// useful for the one account it was issued to.
func (c *Codec) sign(accountID, tsHex, nonceHex string) string {
	key := append(append([]byte{}, c.secret...), []byte(":"+accountID)...)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(tsHex + partSeparator + nonceHex))
	return hex.EncodeToString(mac.Sum(nil))
}
