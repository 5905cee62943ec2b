package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/copperline/gate/internal/gate/service"
	"github.com/copperline/gate/internal/gate/store"
	"github.com/copperline/gate/pkg/gatesdk"
)

// writeServiceError maps the service taxonomy onto the wire. Verification
// failures and provider outages stay distinct all the way out; anything
// unrecognised is a 500 and gets logged, the caller learns nothing more.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		gatesdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, store.ErrNotFound):
		gatesdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrVerificationFailed):
		gatesdk.ErrVerificationFailed.WriteError(w)
	case errors.Is(err, service.ErrProviderUnavailable):
		log.Warn(msg, append(args, "err", err)...)
		gatesdk.ErrProviderUnavailable.WriteError(w)
	case errors.Is(err, service.ErrMethodDisabled):
		gatesdk.ErrMethodDisabled.WriteError(w)
	default:
		log.Error(msg, append(args, "err", err)...)
		gatesdk.ErrServerError.WriteError(w)
	}
}

// isSixDigits enforces the code shape at the boundary so malformed input
// never reaches the registry or the provider.
func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
