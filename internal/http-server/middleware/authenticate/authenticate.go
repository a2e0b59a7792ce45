package authenticate

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"evcoupon/entity"
	"evcoupon/lib/api/cont"
	"evcoupon/lib/api/response"
	"evcoupon/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Authenticate interface {
	AuthenticateByToken(token string) (*entity.Operator, error)
}

// New resolves the bearer token to an operator and stores it in the request context.
func New(log *slog.Logger, auth Authenticate) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			logger := log.With(
				mod,
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			header := r.Header.Get("Authorization")
			if header == "" {
				logger.Debug("authorization header not found")
				authFailed(w, r, http.StatusUnauthorized, "Authorization header not found")
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				logger.Debug("token not found")
				authFailed(w, r, http.StatusUnauthorized, "Token not found")
				return
			}
			logger = logger.With(sl.Secret("token", token))

			if auth == nil {
				authFailed(w, r, http.StatusUnauthorized, "Unauthorized: authentication not enabled")
				return
			}

			op, err := auth.AuthenticateByToken(token)
			if err != nil {
				if errors.Is(err, entity.ErrForbidden) {
					logger.Warn("unknown token", sl.Err(err), sl.Topic(entity.TopicSecurity))
					authFailed(w, r, http.StatusUnauthorized, "Unauthorized: token not found")
					return
				}
				logger.Error("operator lookup", sl.Err(err))
				authFailed(w, r, http.StatusInternalServerError, "Authentication unavailable")
				return
			}

			w.Header().Set("X-Operator", op.Name)
			next.ServeHTTP(w, r.WithContext(cont.PutOperator(r.Context(), op)))
		}

		return http.HandlerFunc(fn)
	}
}

// Admin lets only administrators through. It must run after New.
func Admin(log *slog.Logger) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			op := cont.GetOperator(r.Context())
			if op == nil {
				authFailed(w, r, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !op.IsAdmin() {
				log.With(
					mod,
					slog.Int64("operator_id", op.ID),
					slog.String("path", r.URL.Path),
				).Warn("admin route denied", sl.Topic(entity.TopicSecurity))
				authFailed(w, r, http.StatusForbidden, "Forbidden: insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, response.Error(message))
}
