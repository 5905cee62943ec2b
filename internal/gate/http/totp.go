package http

import (
	"encoding/json"
	"net/http"

	"github.com/copperline/gate/internal/gate/domain"
	"github.com/copperline/gate/internal/gate/service"
	"github.com/copperline/gate/pkg/cryptox"
	"github.com/copperline/gate/pkg/gatesdk"
	"github.com/copperline/gate/pkg/httpx"
	"github.com/copperline/gate/pkg/slogx"
)

// TOTPHandler handles the TOTP enrollment and verification endpoints.
type TOTPHandler struct {
	SecondFactorService *service.SecondFactorService
}

// HandleSetup handles POST /v1/accounts/{accountID}/totp
//
//	@Summary		Begin TOTP enrollment
//	@Description	Generates a TOTP seed for the account and stores it as a pending enrollment. Replaces any prior pending enrollment; an active one is untouched until confirmation.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Produce		json
//	@Param			accountID	path		string						true	"Account ID"
//	@Success		200			{object}	gatesdk.TOTPSetupResponse	"Seed and otpauth URL (shown once)"
//	@Failure		401			{object}	gatesdk.ErrorResponse		"Invalid or missing service token"
//	@Failure		404			{object}	gatesdk.ErrorResponse		"Account not found"
//	@Failure		503			{object}	gatesdk.ErrorResponse		"Provider unavailable"
//	@Router			/v1/accounts/{accountID}/totp [post].
func (h *TOTPHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	setup, err := h.SecondFactorService.SetupTOTP(ctx, accountID)
	if err != nil {
		writeServiceError(w, log, err, "failed to set up totp", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.TOTPSetupResponse{
		Secret: setup.Secret,
		URL:    setup.URL,
	})
}

// HandleConfirm handles POST /v1/accounts/{accountID}/totp/confirm
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Validates a first code against the pending seed and promotes the enrollment to active, replacing any previously active TOTP factor. Returns the recovery code batch.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			accountID	path		string						true	"Account ID"
//	@Param			request		body		gatesdk.TOTPConfirmRequest	true	"Six digit code"
//	@Success		200			{object}	gatesdk.TOTPConfirmResponse	"Recovery codes (shown once)"
//	@Failure		400			{object}	gatesdk.ErrorResponse		"Malformed code"
//	@Failure		403			{object}	gatesdk.ErrorResponse		"Code did not verify"
//	@Failure		404			{object}	gatesdk.ErrorResponse		"No pending enrollment"
//	@Router			/v1/accounts/{accountID}/totp/confirm [post].
func (h *TOTPHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	var req gatesdk.TOTPConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if !isSixDigits(req.Code) {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.SecondFactorService.ConfirmTOTP(ctx, accountID, req.Code, req.RememberDevice)
	if err != nil {
		writeServiceError(w, log, err, "failed to confirm totp", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.TOTPConfirmResponse{
		RecoveryCodes: result.RecoveryCodes,
		RememberToken: result.RememberToken,
	})
}

// HandleVerify handles POST /v1/accounts/{accountID}/totp/verify
//
//	@Summary		Verify a TOTP code
//	@Description	Checks a login code against the active enrollment and clears the session's second-factor gate on success.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			accountID	path		string					true	"Account ID"
//	@Param			request		body		gatesdk.TOTPVerifyRequest	true	"Six digit code and session"
//	@Success		200			{object}	gatesdk.VerifyResponse	"Optional remember token"
//	@Failure		400			{object}	gatesdk.ErrorResponse	"Malformed code"
//	@Failure		403			{object}	gatesdk.ErrorResponse	"Code did not verify"
//	@Failure		404			{object}	gatesdk.ErrorResponse	"No active enrollment"
//	@Failure		503			{object}	gatesdk.ErrorResponse	"Provider unavailable"
//	@Router			/v1/accounts/{accountID}/totp/verify [post].
func (h *TOTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	var req gatesdk.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if !isSixDigits(req.Code) {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	token, err := h.SecondFactorService.VerifyTOTP(ctx, accountID, req.SessionID, req.Code, req.RememberDevice)
	if err != nil {
		writeServiceError(w, log, err, "failed to verify totp", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.VerifyResponse{RememberToken: token})
}

// HandleDisable handles DELETE /v1/accounts/{accountID}/totp
//
//	@Summary		Disable TOTP
//	@Description	Removes the active and pending TOTP enrollments and the recovery codes. Idempotent. Clears every session gate when the last active factor goes away.
//	@Tags			TOTP
//	@Security		BearerAuth
//	@Param			accountID	path	string	true	"Account ID"
//	@Success		204			"Disabled"
//	@Failure		401			{object}	gatesdk.ErrorResponse	"Invalid or missing service token"
//	@Router			/v1/accounts/{accountID}/totp [delete].
func (h *TOTPHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	if err := h.SecondFactorService.DisableFactor(ctx, accountID, domain.FactorTOTP); err != nil {
		writeServiceError(w, log, err, "failed to disable totp", "account_id", accountID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDisableAll handles DELETE /v1/accounts/{accountID}/factors
//
//	@Summary		Disable all second factors
//	@Description	Removes every factor record and recovery code for the account and force-clears the gate on all of its sessions.
//	@Tags			Factors
//	@Security		BearerAuth
//	@Param			accountID	path	string	true	"Account ID"
//	@Success		204			"Disabled"
//	@Failure		401			{object}	gatesdk.ErrorResponse	"Invalid or missing service token"
//	@Router			/v1/accounts/{accountID}/factors [delete].
func (h *TOTPHandler) HandleDisableAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	if err := h.SecondFactorService.DisableAllFactors(ctx, accountID); err != nil {
		writeServiceError(w, log, err, "failed to disable all factors", "account_id", accountID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRedeemRemember handles POST /v1/accounts/{accountID}/remember/redeem
//
//	@Summary		Redeem a remember-device token
//	@Description	Verifies a remember-device token and clears the session's second-factor gate. Invalid or expired tokens fail closed.
//	@Tags			Remember
//	@Security		BearerAuth
//	@Accept			json
//	@Param			accountID	path	string							true	"Account ID"
//	@Param			request		body	gatesdk.RememberRedeemRequest	true	"Token and session"
//	@Success		204			"Gate cleared"
//	@Failure		400			{object}	gatesdk.ErrorResponse	"Malformed request"
//	@Failure		403			{object}	gatesdk.ErrorResponse	"Token did not verify"
//	@Router			/v1/accounts/{accountID}/remember/redeem [post].
func (h *TOTPHandler) HandleRedeemRemember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	var req gatesdk.RememberRedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// Log the token only as a fingerprint; the raw value is a bearer
	// credential.
	tokenFP := cryptox.FingerprintToken(req.Token)

	if err := h.SecondFactorService.RedeemRememberToken(ctx, accountID, req.SessionID, req.Token); err != nil {
		writeServiceError(w, log, err, "failed to redeem remember token", "account_id", accountID, "token_fp", tokenFP)
		return
	}

	log.Info("remember token redeemed", "account_id", accountID, "token_fp", tokenFP)
	w.WriteHeader(http.StatusNoContent)
}
