package http

import (
	"encoding/json"
	"net/http"

	"github.com/copperline/gate/internal/gate/service"
	"github.com/copperline/gate/pkg/gatesdk"
	"github.com/copperline/gate/pkg/httpx"
	"github.com/copperline/gate/pkg/slogx"
)

// RecoveryHandler handles the recovery-code endpoints.
type RecoveryHandler struct {
	SecondFactorService *service.SecondFactorService
}

// HandleRegenerate handles POST /v1/accounts/{accountID}/recovery
//
//	@Summary		Regenerate recovery codes
//	@Description	Replaces the account's recovery batch after a fresh TOTP check. The old batch stops working immediately.
//	@Tags			Recovery
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			accountID	path		string								true	"Account ID"
//	@Param			request		body		gatesdk.RecoveryRegenerateRequest	true	"Six digit code"
//	@Success		200			{object}	gatesdk.RecoveryCodesResponse		"New batch (shown once)"
//	@Failure		400			{object}	gatesdk.ErrorResponse				"Malformed code"
//	@Failure		403			{object}	gatesdk.ErrorResponse				"Code did not verify"
//	@Failure		404			{object}	gatesdk.ErrorResponse				"No active TOTP enrollment"
//	@Router			/v1/accounts/{accountID}/recovery [post].
func (h *RecoveryHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	var req gatesdk.RecoveryRegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if !isSixDigits(req.Code) {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	codes, err := h.SecondFactorService.RegenerateRecoveryCodes(ctx, accountID, req.Code)
	if err != nil {
		writeServiceError(w, log, err, "failed to regenerate recovery codes", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.RecoveryCodesResponse{Codes: codes})
}

// HandleVerify handles POST /v1/accounts/{accountID}/recovery/verify
//
//	@Summary		Verify a recovery code
//	@Description	Burns a single-use recovery code and clears the session's second-factor gate.
//	@Tags			Recovery
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			accountID	path		string							true	"Account ID"
//	@Param			request		body		gatesdk.RecoveryVerifyRequest	true	"Recovery code and session"
//	@Success		200			{object}	gatesdk.RecoveryVerifyResponse	"Remaining code count"
//	@Failure		400			{object}	gatesdk.ErrorResponse			"Malformed request"
//	@Failure		403			{object}	gatesdk.ErrorResponse			"Code did not verify"
//	@Router			/v1/accounts/{accountID}/recovery/verify [post].
func (h *RecoveryHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	var req gatesdk.RecoveryVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	remaining, err := h.SecondFactorService.VerifyRecoveryCode(ctx, accountID, req.SessionID, req.Code)
	if err != nil {
		writeServiceError(w, log, err, "failed to verify recovery code", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.RecoveryVerifyResponse{Remaining: remaining})
}
