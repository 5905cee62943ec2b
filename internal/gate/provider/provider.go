// Package provider adapts the concrete factor implementations (TOTP,
// security keys) behind small interfaces so the orchestration layer never
// touches a vendor API directly.
//
// Implementations report failures through two distinct sentinels:
// ErrVerificationFailed means the presented proof was wrong, and
// ErrUnavailable means the provider itself could not do its job. Callers
// rely on the two never being conflated.
package provider

import (
	"encoding/json"
	"errors"
)

var (
	// ErrVerificationFailed indicates the code, attestation or assertion
	// did not check out. The caller, not the provider, is at fault.
	ErrVerificationFailed = errors.New("provider: verification failed")

	// ErrUnavailable indicates the provider could not complete the
	// operation for reasons unrelated to the presented proof.
	ErrUnavailable = errors.New("provider: unavailable")
)

// TOTPSecret is the material handed back when a new TOTP enrollment starts.
type TOTPSecret struct {
	// Secret is the base32 seed to show the user for manual entry.
	Secret string

	// URL is the otpauth:// provisioning URI for QR rendering.
	URL string
}

type TOTPProvider interface {
	// GenerateSecret mints a fresh seed labelled for the account.
	GenerateSecret(accountName string) (TOTPSecret, error)

	// CheckCode validates a 6-digit code against the seed.
	// ErrVerificationFailed on mismatch.
	CheckCode(secret, code string) error
}

// KeyAccount carries the identity material a security-key ceremony needs.
// Credentials holds the account's registered credentials, each in the
// JSON encoding produced by FinishRegistration.
type KeyAccount struct {
	ID          string
	Username    string
	Credentials [][]byte
}

// SecurityKeyProvider runs the two-step register and assert ceremonies.
// Everything crossing the interface is opaque JSON: options go to the
// browser verbatim, session data is persisted between the two halves, and
// response is the browser's answer verbatim.
type SecurityKeyProvider interface {
	BeginRegistration(acct KeyAccount) (options json.RawMessage, sessionData []byte, err error)

	// FinishRegistration returns the new credential, JSON-encoded, ready
	// for the registry to store as the key handle.
	FinishRegistration(acct KeyAccount, sessionData []byte, response []byte) (credential []byte, err error)

	BeginAssertion(acct KeyAccount) (options json.RawMessage, sessionData []byte, err error)

	// FinishAssertion returns the credential with its updated sign count;
	// the caller should write it back to the registry.
	FinishAssertion(acct KeyAccount, sessionData []byte, response []byte) (credential []byte, err error)
}
