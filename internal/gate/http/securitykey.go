package http

import (
	"encoding/json"
	"net/http"

	"github.com/copperline/gate/internal/gate/domain"
	"github.com/copperline/gate/internal/gate/service"
	"github.com/copperline/gate/pkg/gatesdk"
	"github.com/copperline/gate/pkg/httpx"
	"github.com/copperline/gate/pkg/slogx"
)

// SecurityKeyHandler handles the security-key ceremony endpoints.
type SecurityKeyHandler struct {
	SecondFactorService *service.SecondFactorService
}

// HandleStartRegistration handles POST /v1/accounts/{accountID}/security-keys/registrations
//
//	@Summary		Begin security-key registration
//	@Description	Starts a registration ceremony: writes a pending enrollment and returns the creation options for the browser plus a single-use challenge reference.
//	@Tags			SecurityKeys
//	@Security		BearerAuth
//	@Produce		json
//	@Param			accountID	path		string						true	"Account ID"
//	@Success		200			{object}	gatesdk.KeyCeremonyResponse	"Challenge reference and creation options"
//	@Failure		403			{object}	gatesdk.ErrorResponse		"Method disabled"
//	@Failure		503			{object}	gatesdk.ErrorResponse		"Provider unavailable"
//	@Router			/v1/accounts/{accountID}/security-keys/registrations [post].
func (h *SecurityKeyHandler) HandleStartRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	ceremony, err := h.SecondFactorService.StartKeyRegistration(ctx, accountID)
	if err != nil {
		writeServiceError(w, log, err, "failed to start key registration", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.KeyCeremonyResponse{
		ChallengeID: ceremony.ChallengeID,
		Options:     ceremony.Options,
	})
}

// HandleFinishRegistration handles POST /v1/accounts/{accountID}/security-keys/registrations/{challengeID}
//
//	@Summary		Finish security-key registration
//	@Description	Validates the browser's attestation response, activates the enrollment, and clears the session's gate: a successful registration also proves possession for the current session.
//	@Tags			SecurityKeys
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			accountID	path		string					true	"Account ID"
//	@Param			challengeID	path		string					true	"Challenge ID from the start call"
//	@Param			request		body		gatesdk.KeyFinishRequest	true	"Browser response"
//	@Success		200			{object}	gatesdk.VerifyResponse	"Optional remember token"
//	@Failure		403			{object}	gatesdk.ErrorResponse	"Attestation did not verify or method disabled"
//	@Failure		404			{object}	gatesdk.ErrorResponse	"Unknown or expired challenge"
//	@Router			/v1/accounts/{accountID}/security-keys/registrations/{challengeID} [post].
func (h *SecurityKeyHandler) HandleFinishRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")
	challengeID := r.PathValue("challengeID")

	var req gatesdk.KeyFinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if len(req.Response) == 0 {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	token, err := h.SecondFactorService.FinishKeyRegistration(ctx, accountID, req.SessionID, challengeID, req.Response, req.RememberDevice)
	if err != nil {
		writeServiceError(w, log, err, "failed to finish key registration", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.VerifyResponse{RememberToken: token})
}

// HandleStartAssertion handles POST /v1/accounts/{accountID}/security-keys/assertions
//
//	@Summary		Begin security-key verification
//	@Description	Starts an assertion ceremony against the active enrollment.
//	@Tags			SecurityKeys
//	@Security		BearerAuth
//	@Produce		json
//	@Param			accountID	path		string						true	"Account ID"
//	@Success		200			{object}	gatesdk.KeyCeremonyResponse	"Challenge reference and request options"
//	@Failure		403			{object}	gatesdk.ErrorResponse		"Method disabled"
//	@Failure		404			{object}	gatesdk.ErrorResponse		"No active security key"
//	@Router			/v1/accounts/{accountID}/security-keys/assertions [post].
func (h *SecurityKeyHandler) HandleStartAssertion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	ceremony, err := h.SecondFactorService.StartKeyAssertion(ctx, accountID)
	if err != nil {
		writeServiceError(w, log, err, "failed to start key assertion", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.KeyCeremonyResponse{
		ChallengeID: ceremony.ChallengeID,
		Options:     ceremony.Options,
	})
}

// HandleVerify handles POST /v1/accounts/{accountID}/security-keys/assertions/{challengeID}
//
//	@Summary		Finish security-key verification
//	@Description	Validates the browser's assertion response and clears the session's second-factor gate on success.
//	@Tags			SecurityKeys
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			accountID	path		string					true	"Account ID"
//	@Param			challengeID	path		string					true	"Challenge ID from the start call"
//	@Param			request		body		gatesdk.KeyFinishRequest	true	"Browser response"
//	@Success		200			{object}	gatesdk.VerifyResponse	"Optional remember token"
//	@Failure		403			{object}	gatesdk.ErrorResponse	"Assertion did not verify or method disabled"
//	@Failure		404			{object}	gatesdk.ErrorResponse	"Unknown or expired challenge"
//	@Router			/v1/accounts/{accountID}/security-keys/assertions/{challengeID} [post].
func (h *SecurityKeyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")
	challengeID := r.PathValue("challengeID")

	var req gatesdk.KeyFinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if len(req.Response) == 0 {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	token, err := h.SecondFactorService.VerifyKey(ctx, accountID, req.SessionID, challengeID, req.Response, req.RememberDevice)
	if err != nil {
		writeServiceError(w, log, err, "failed to verify security key", "account_id", accountID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.VerifyResponse{RememberToken: token})
}

// HandleDisable handles DELETE /v1/accounts/{accountID}/security-keys
//
//	@Summary		Disable the security key
//	@Description	Removes the active and pending security-key enrollments. Idempotent. Clears every session gate when the last active factor goes away.
//	@Tags			SecurityKeys
//	@Security		BearerAuth
//	@Param			accountID	path	string	true	"Account ID"
//	@Success		204			"Disabled"
//	@Failure		403			{object}	gatesdk.ErrorResponse	"Method disabled"
//	@Router			/v1/accounts/{accountID}/security-keys [delete].
func (h *SecurityKeyHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	if err := h.SecondFactorService.DisableFactor(ctx, accountID, domain.FactorSecurityKey); err != nil {
		writeServiceError(w, log, err, "failed to disable security key", "account_id", accountID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
