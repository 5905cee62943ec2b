package service

import "errors"

// Outcome sentinels shared by the orchestration services. NotFound cases
// surface as store.ErrNotFound so callers handle one sentinel for both the
// registry and the session gate.
var (
	// ErrInvalidRequest covers malformed input the caller should have
	// rejected (unknown factor kind, empty token, wrong code shape).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrVerificationFailed means the presented code, assertion or token
	// did not verify. Retryable by the user.
	ErrVerificationFailed = errors.New("second factor verification failed")

	// ErrProviderUnavailable means an external dependency (factor
	// provider, account directory) failed. Transient, retry with backoff.
	// Never reported as ErrVerificationFailed: an outage must not look
	// like a failed login, and a failed login must not look like an
	// outage.
	ErrProviderUnavailable = errors.New("factor provider unavailable")

	// ErrMethodDisabled means the factor kind is switched off for this
	// deployment.
	ErrMethodDisabled = errors.New("second factor method disabled")
)
