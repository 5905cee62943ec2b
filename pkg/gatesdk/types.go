package gatesdk

import (
	"encoding/json"
	"time"
)

// TOTPSetupResponse carries the provisioning material for a new TOTP
// enrollment. The secret is shown exactly once.
type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// TOTPConfirmRequest activates a pending TOTP enrollment.
type TOTPConfirmRequest struct {
	Code           string `json:"code"`
	RememberDevice bool   `json:"remember_device,omitempty"`
}

// TOTPConfirmResponse returns the one-time recovery batch and, when
// requested, a remember-device token.
type TOTPConfirmResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
	RememberToken string   `json:"remember_token,omitempty"`
}

// TOTPVerifyRequest checks a code during login.
type TOTPVerifyRequest struct {
	SessionID      string `json:"session_id,omitempty"`
	Code           string `json:"code"`
	RememberDevice bool   `json:"remember_device,omitempty"`
}

// VerifyResponse is returned by every successful verification operation.
type VerifyResponse struct {
	RememberToken string `json:"remember_token,omitempty"`
}

// KeyCeremonyResponse starts a security-key ceremony: Options goes to the
// browser API verbatim and ChallengeID comes back with the response.
type KeyCeremonyResponse struct {
	ChallengeID string          `json:"challenge_id"`
	Options     json.RawMessage `json:"options"`
}

// KeyFinishRequest completes a security-key ceremony.
type KeyFinishRequest struct {
	SessionID      string          `json:"session_id,omitempty"`
	Response       json.RawMessage `json:"response"`
	RememberDevice bool            `json:"remember_device,omitempty"`
}

// RecoveryRegenerateRequest replaces the recovery batch after a TOTP check.
type RecoveryRegenerateRequest struct {
	Code string `json:"code"`
}

// RecoveryCodesResponse is the new batch, shown once.
type RecoveryCodesResponse struct {
	Codes []string `json:"codes"`
}

// RecoveryVerifyRequest burns a single-use recovery code.
type RecoveryVerifyRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Code      string `json:"code"`
}

// RecoveryVerifyResponse reports how many codes are left.
type RecoveryVerifyResponse struct {
	Remaining int `json:"remaining"`
}

// RememberRedeemRequest presents a remember-device token to skip the gate.
type RememberRedeemRequest struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// ChallengeSessionRequest registers a freshly password-authenticated
// session with the gate.
type ChallengeSessionRequest struct {
	AccountID string `json:"account_id"`
}

// SessionResponse is the session's gating state.
type SessionResponse struct {
	SessionID            string `json:"session_id"`
	AccountID            string `json:"account_id"`
	SecondFactorRequired bool   `json:"second_factor_required"`
}

// Enrollment is one factor record, without its secret material.
type Enrollment struct {
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// EnrollmentsResponse lists an account's factor records.
type EnrollmentsResponse struct {
	Enrollments []Enrollment `json:"enrollments"`
}

// ErrorResponse mirrors the JSON body of a GateError.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database,omitempty"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version,omitempty"`
	Uptime  string        `json:"uptime,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
