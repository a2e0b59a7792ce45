package coupons

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"evcoupon/entity"
	"evcoupon/internal/http-server/handlers/errors"
	"evcoupon/lib/api/response"
	"evcoupon/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	CouponDefinition(ctx context.Context, id int64) (*entity.CouponDefinition, error)
	CreateCouponDefinition(ctx context.Context, req *entity.CouponDefinitionRequest) (*entity.CouponDefinition, error)
	UpdateCouponDefinition(ctx context.Context, id int64, req *entity.CouponDefinitionRequest) (*entity.CouponDefinition, error)
	SetCouponActive(ctx context.Context, id int64, active bool) (*entity.CouponDefinition, error)
}

func logFor(logger *slog.Logger, r *http.Request) *slog.Logger {
	return logger.With(
		sl.Module("http.handlers.coupons"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func badRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Warn("invalid request", sl.Err(err))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
}

func couponID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("coupon id must be a positive integer")
	}
	return id, nil
}

func Create(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logFor(logger, r)

		var req entity.CouponDefinitionRequest
		if err := render.Bind(r, &req); err != nil {
			badRequest(w, r, log, err)
			return
		}

		def, err := handler.CreateCouponDefinition(r.Context(), &req)
		if err != nil {
			errors.Failed(w, r, log, err, http.StatusForbidden)
			return
		}
		log.With(slog.Int64("id", def.ID), slog.String("code", def.Code)).Info("coupon created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(def))
	}
}

func Get(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logFor(logger, r)

		id, err := couponID(r)
		if err != nil {
			badRequest(w, r, log, err)
			return
		}

		def, err := handler.CouponDefinition(r.Context(), id)
		if err != nil {
			errors.Failed(w, r, log, err, http.StatusForbidden)
			return
		}
		render.JSON(w, r, response.Ok(def))
	}
}

func Update(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logFor(logger, r)

		id, err := couponID(r)
		if err != nil {
			badRequest(w, r, log, err)
			return
		}
		var req entity.CouponDefinitionRequest
		if err = render.Bind(r, &req); err != nil {
			badRequest(w, r, log, err)
			return
		}

		def, err := handler.UpdateCouponDefinition(r.Context(), id, &req)
		if err != nil {
			errors.Failed(w, r, log.With(slog.Int64("id", id)), err, http.StatusForbidden)
			return
		}
		render.JSON(w, r, response.Ok(def))
	}
}

func SetStatus(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logFor(logger, r)

		id, err := couponID(r)
		if err != nil {
			badRequest(w, r, log, err)
			return
		}
		var req entity.StatusRequest
		if err = render.Bind(r, &req); err != nil {
			badRequest(w, r, log, err)
			return
		}

		def, err := handler.SetCouponActive(r.Context(), id, *req.Active)
		if err != nil {
			errors.Failed(w, r, log.With(slog.Int64("id", id)), err, http.StatusForbidden)
			return
		}
		render.JSON(w, r, response.Ok(def))
	}
}
