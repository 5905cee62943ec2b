// Package gatesdk is the typed client for the second-factor gate service.
// It is consumed by the web layer and by the end-to-end test suite.
package gatesdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the gate service with a pre-issued service token. The
// gate authenticates callers, not end users; the token identifies the
// calling service and its scopes.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Token is the bearer service token sent on every request.
	Token string
}

// NewClient creates a gate service client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Token: token,
	}
}

func accountPath(accountID, suffix string) string {
	return "/v1/accounts/" + url.PathEscape(accountID) + suffix
}

func sessionPath(sessionID, suffix string) string {
	return "/v1/sessions/" + url.PathEscape(sessionID) + suffix
}

// SetupTOTP begins (or restarts) a TOTP enrollment.
func (c *Client) SetupTOTP(ctx context.Context, accountID string) (TOTPSetupResponse, error) {
	var out TOTPSetupResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/totp"), nil, &out)
	return out, err
}

// ConfirmTOTP activates the pending enrollment with a first code.
func (c *Client) ConfirmTOTP(ctx context.Context, accountID string, req TOTPConfirmRequest) (TOTPConfirmResponse, error) {
	var out TOTPConfirmResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/totp/confirm"), req, &out)
	return out, err
}

// VerifyTOTP checks a login code and clears the session gate on success.
func (c *Client) VerifyTOTP(ctx context.Context, accountID string, req TOTPVerifyRequest) (VerifyResponse, error) {
	var out VerifyResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/totp/verify"), req, &out)
	return out, err
}

// DisableTOTP removes the TOTP enrollment. Idempotent.
func (c *Client) DisableTOTP(ctx context.Context, accountID string) error {
	return c.doJSON(ctx, http.MethodDelete, accountPath(accountID, "/totp"), nil, nil)
}

// StartKeyRegistration begins a security-key enrollment ceremony.
func (c *Client) StartKeyRegistration(ctx context.Context, accountID string) (KeyCeremonyResponse, error) {
	var out KeyCeremonyResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/security-keys/registrations"), nil, &out)
	return out, err
}

// FinishKeyRegistration completes the enrollment ceremony.
func (c *Client) FinishKeyRegistration(ctx context.Context, accountID, challengeID string, req KeyFinishRequest) (VerifyResponse, error) {
	var out VerifyResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/security-keys/registrations/"+url.PathEscape(challengeID)), req, &out)
	return out, err
}

// StartKeyAssertion begins a security-key verification ceremony.
func (c *Client) StartKeyAssertion(ctx context.Context, accountID string) (KeyCeremonyResponse, error) {
	var out KeyCeremonyResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/security-keys/assertions"), nil, &out)
	return out, err
}

// VerifyKey completes the verification ceremony and clears the session
// gate on success.
func (c *Client) VerifyKey(ctx context.Context, accountID, challengeID string, req KeyFinishRequest) (VerifyResponse, error) {
	var out VerifyResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/security-keys/assertions/"+url.PathEscape(challengeID)), req, &out)
	return out, err
}

// DisableSecurityKey removes the security-key enrollment. Idempotent.
func (c *Client) DisableSecurityKey(ctx context.Context, accountID string) error {
	return c.doJSON(ctx, http.MethodDelete, accountPath(accountID, "/security-keys"), nil, nil)
}

// DisableAllFactors wipes every factor for the account.
func (c *Client) DisableAllFactors(ctx context.Context, accountID string) error {
	return c.doJSON(ctx, http.MethodDelete, accountPath(accountID, "/factors"), nil, nil)
}

// ListEnrollments returns the account's factor records.
func (c *Client) ListEnrollments(ctx context.Context, accountID string) (EnrollmentsResponse, error) {
	var out EnrollmentsResponse
	err := c.doJSON(ctx, http.MethodGet, accountPath(accountID, "/enrollments"), nil, &out)
	return out, err
}

// RegenerateRecoveryCodes replaces the recovery batch after a TOTP check.
func (c *Client) RegenerateRecoveryCodes(ctx context.Context, accountID string, req RecoveryRegenerateRequest) (RecoveryCodesResponse, error) {
	var out RecoveryCodesResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/recovery"), req, &out)
	return out, err
}

// VerifyRecoveryCode burns a single-use recovery code and clears the
// session gate.
func (c *Client) VerifyRecoveryCode(ctx context.Context, accountID string, req RecoveryVerifyRequest) (RecoveryVerifyResponse, error) {
	var out RecoveryVerifyResponse
	err := c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/recovery/verify"), req, &out)
	return out, err
}

// RedeemRememberToken presents a remember-device token.
func (c *Client) RedeemRememberToken(ctx context.Context, accountID string, req RememberRedeemRequest) error {
	return c.doJSON(ctx, http.MethodPost, accountPath(accountID, "/remember/redeem"), req, nil)
}

// ChallengeSession registers a freshly password-authenticated session and
// reports whether a second factor is owed.
func (c *Client) ChallengeSession(ctx context.Context, sessionID string, req ChallengeSessionRequest) (SessionResponse, error) {
	var out SessionResponse
	err := c.doJSON(ctx, http.MethodPost, sessionPath(sessionID, "/challenge"), req, &out)
	return out, err
}

// GetSession returns the session's gating state.
func (c *Client) GetSession(ctx context.Context, sessionID string) (SessionResponse, error) {
	var out SessionResponse
	err := c.doJSON(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &out)
	return out, err
}

// Logout discards the session's gating state.
func (c *Client) Logout(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, sessionPath(sessionID, ""), nil, nil)
}

// Livez checks process liveness. No auth required.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &out)
	return out, err
}

// Readyz checks readiness including database connectivity. No auth
// required.
func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &out)
	return out, err
}
