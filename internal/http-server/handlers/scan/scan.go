package scan

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"evcoupon/entity"
	"evcoupon/internal/http-server/handlers/errors"
	"evcoupon/lib/api/cont"
	"evcoupon/lib/api/response"
	"evcoupon/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	ScanCoupon(ctx context.Context, op *entity.Operator, req *entity.ScanRequest) (*entity.RedemptionResult, error)
	OperatorCoupons(ctx context.Context) ([]entity.CouponDefinition, error)
}

// Redeem is called by the scanning device. The result body is returned for every
// outcome; only redeemed and checked scans are reported as success.
func Redeem(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.scan"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		op := cont.GetOperator(r.Context())
		if op != nil {
			log = log.With(slog.Int64("operator_id", op.ID))
		}

		var req entity.ScanRequest
		if err := render.Bind(r, &req); err != nil {
			log.Warn("invalid request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		res, err := handler.ScanCoupon(r.Context(), op, &req)
		if err != nil {
			errors.Failed(w, r, log, err, http.StatusBadRequest)
			return
		}

		render.Status(r, errors.OutcomeStatus(res.Outcome))
		switch res.Outcome {
		case entity.OutcomeRedeemed, entity.OutcomeChecked:
			render.JSON(w, r, response.Ok(res))
		default:
			render.JSON(w, r, response.Warning(res, res.Message))
		}
	}
}

func Coupons(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.scan"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		defs, err := handler.OperatorCoupons(r.Context())
		if err != nil {
			errors.Failed(w, r, log, err, http.StatusBadRequest)
			return
		}
		render.JSON(w, r, response.Ok(defs))
	}
}
