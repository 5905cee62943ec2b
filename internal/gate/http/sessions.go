package http

import (
	"encoding/json"
	"net/http"

	"github.com/copperline/gate/internal/gate/service"
	"github.com/copperline/gate/pkg/gatesdk"
	"github.com/copperline/gate/pkg/httpx"
	"github.com/copperline/gate/pkg/slogx"
)

// SessionHandler handles the session-gate endpoints.
type SessionHandler struct {
	SessionGateService *service.SessionGateService
}

// HandleChallenge handles POST /v1/sessions/{sessionID}/challenge
//
//	@Summary		Challenge a session
//	@Description	Called at password-authentication time. Records the session and decides whether a second factor is owed based on the account's active enrollments.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			sessionID	path		string							true	"Session ID"
//	@Param			request		body		gatesdk.ChallengeSessionRequest	true	"Account the session belongs to"
//	@Success		200			{object}	gatesdk.SessionResponse			"Gating state"
//	@Failure		400			{object}	gatesdk.ErrorResponse			"Malformed request"
//	@Failure		503			{object}	gatesdk.ErrorResponse			"Account directory unavailable"
//	@Router			/v1/sessions/{sessionID}/challenge [post].
func (h *SessionHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sessionID := r.PathValue("sessionID")

	var req gatesdk.ChallengeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gatesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	session, err := h.SessionGateService.ChallengeSession(ctx, sessionID, req.AccountID)
	if err != nil {
		writeServiceError(w, log, err, "failed to challenge session", "session_id", sessionID)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, gatesdk.SessionResponse{
		SessionID:            session.ID,
		AccountID:            session.AccountID,
		SecondFactorRequired: session.SecondFactorRequired,
	})
}

// HandleGet handles GET /v1/sessions/{sessionID}
//
//	@Summary		Read a session's gating state
//	@Description	Used by the web layer to decide whether protected routes are reachable.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			sessionID	path		string					true	"Session ID"
//	@Success		200			{object}	gatesdk.SessionResponse	"Gating state"
//	@Failure		404			{object}	gatesdk.ErrorResponse	"Session never challenged"
//	@Router			/v1/sessions/{sessionID} [get].
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sessionID := r.PathValue("sessionID")

	session, err := h.SessionGateService.Get(ctx, sessionID)
	if err != nil {
		writeServiceError(w, log, err, "failed to read session", "session_id", sessionID)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, gatesdk.SessionResponse{
		SessionID:            session.ID,
		AccountID:            session.AccountID,
		SecondFactorRequired: session.SecondFactorRequired,
	})
}

// HandleLogout handles DELETE /v1/sessions/{sessionID}
//
//	@Summary		Discard a session's gating state
//	@Description	Called on logout. Idempotent.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			sessionID	path	string	true	"Session ID"
//	@Success		204			"Discarded"
//	@Failure		401			{object}	gatesdk.ErrorResponse	"Invalid or missing service token"
//	@Router			/v1/sessions/{sessionID} [delete].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	sessionID := r.PathValue("sessionID")

	if err := h.SessionGateService.OnLogout(ctx, sessionID); err != nil {
		writeServiceError(w, log, err, "failed to discard session", "session_id", sessionID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
