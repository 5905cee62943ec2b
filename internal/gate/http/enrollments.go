package http

import (
	"net/http"

	"github.com/copperline/gate/internal/gate/service"
	"github.com/copperline/gate/pkg/gatesdk"
	"github.com/copperline/gate/pkg/httpx"
	"github.com/copperline/gate/pkg/slogx"
)

// EnrollmentHandler handles the enrollment listing endpoint.
type EnrollmentHandler struct {
	SecondFactorService *service.SecondFactorService
}

// HandleList handles GET /v1/accounts/{accountID}/enrollments
//
//	@Summary		List factor enrollments
//	@Description	Returns the account's factor records (kind, status, creation time) without any secret material. Used by the web layer's security settings page.
//	@Tags			Factors
//	@Security		BearerAuth
//	@Produce		json
//	@Param			accountID	path		string						true	"Account ID"
//	@Success		200			{object}	gatesdk.EnrollmentsResponse	"Enrollments, newest first"
//	@Failure		401			{object}	gatesdk.ErrorResponse		"Invalid or missing service token"
//	@Router			/v1/accounts/{accountID}/enrollments [get].
func (h *EnrollmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := r.PathValue("accountID")

	enrollments, err := h.SecondFactorService.ListEnrollments(ctx, accountID)
	if err != nil {
		writeServiceError(w, log, err, "failed to list enrollments", "account_id", accountID)
		return
	}

	out := gatesdk.EnrollmentsResponse{Enrollments: []gatesdk.Enrollment{}}
	for _, e := range enrollments {
		out.Enrollments = append(out.Enrollments, gatesdk.Enrollment{
			Kind:      string(e.Kind),
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt,
		})
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}
