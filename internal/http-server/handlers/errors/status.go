package errors

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"evcoupon/entity"
	"evcoupon/lib/api/response"
	"evcoupon/lib/sl"

	"github.com/go-chi/render"
)

// StatusOf maps a service error to an HTTP status. windowStatus is used for
// ErrWindowViolation because the right answer depends on who asked.
func StatusOf(err error, windowStatus int) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	case stderrors.Is(err, entity.ErrWindowViolation):
		return windowStatus
	case stderrors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Failed renders err with its mapped status; internal errors hide their text from the client.
func Failed(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, windowStatus int) {
	status := StatusOf(err, windowStatus)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
		message = "Internal error"
	} else {
		log.Debug("request rejected", sl.Err(err), slog.Int("status", status))
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(message))
}

// OutcomeStatus maps a scan outcome to an HTTP status.
func OutcomeStatus(outcome entity.RedemptionOutcome) int {
	switch outcome {
	case entity.OutcomeRedeemed, entity.OutcomeChecked, entity.OutcomeAlreadyRedeemed:
		return http.StatusOK
	case entity.OutcomeNotYetOpen, entity.OutcomeExpired:
		return http.StatusBadRequest
	case entity.OutcomeNotFound:
		return http.StatusNotFound
	case entity.OutcomeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
