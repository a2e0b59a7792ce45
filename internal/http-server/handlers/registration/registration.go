package registration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"evcoupon/entity"
	"evcoupon/impl/coupon"
	"evcoupon/internal/http-server/handlers/errors"
	"evcoupon/lib/api/cont"
	"evcoupon/lib/api/response"
	"evcoupon/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	RegisterForEvent(ctx context.Context, customerID, eventID string, req *entity.RegisterRequest) (*coupon.IssueResult, error)
	SetRegistrationStatus(ctx context.Context, id string, status entity.RegistrationStatus) (*entity.Registration, error)
}

// Register answers 201 for a new registration and 200 when an existing one was updated.
func Register(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.registration"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		customerID := cont.GetCustomer(r.Context())
		eventID := chi.URLParam(r, "eventId")
		log = log.With(
			slog.String("customer_id", customerID),
			slog.String("event_id", eventID),
		)

		var req entity.RegisterRequest
		if err := render.Bind(r, &req); err != nil {
			log.Warn("invalid request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		res, err := handler.RegisterForEvent(r.Context(), customerID, eventID, &req)
		if err != nil {
			errors.Failed(w, r, log, err, http.StatusBadRequest)
			return
		}

		if res.Created {
			render.Status(r, http.StatusCreated)
		}
		render.JSON(w, r, response.Ok(res))
	}
}

func SetStatus(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		log := logger.With(
			sl.Module("http.handlers.registration"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("registration_id", id),
		)

		var req entity.RegistrationStatusRequest
		if err := render.Bind(r, &req); err != nil {
			log.Warn("invalid request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		reg, err := handler.SetRegistrationStatus(r.Context(), id, req.Status)
		if err != nil {
			errors.Failed(w, r, log, err, http.StatusForbidden)
			return
		}
		render.JSON(w, r, response.Ok(reg))
	}
}
