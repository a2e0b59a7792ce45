package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"evcoupon/internal/config"
	"evcoupon/internal/http-server/handlers/coupons"
	"evcoupon/internal/http-server/handlers/errors"
	"evcoupon/internal/http-server/handlers/registration"
	"evcoupon/internal/http-server/handlers/scan"
	"evcoupon/internal/http-server/middleware/authenticate"
	"evcoupon/internal/http-server/middleware/customer"
	"evcoupon/internal/http-server/middleware/requestlog"
	"evcoupon/internal/http-server/middleware/timeout"
	"evcoupon/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	registration.Core
	scan.Core
	coupons.Core
}

// NewRouter builds the routing tree without binding a listener.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(timeout.Timeout(5 * time.Second))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestlog.New(log))
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(v1 chi.Router) {
		v1.With(customer.New(conf.Listen.CustomerHeader)).
			Post("/events/{eventId}/register", registration.Register(log, handler))

		v1.Route("/operator", func(op chi.Router) {
			op.Use(authenticate.New(log, handler))
			op.Patch("/redeem", scan.Redeem(log, handler))
			op.Get("/coupons", scan.Coupons(log, handler))
		})

		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(authenticate.New(log, handler))
			admin.Use(authenticate.Admin(log))
			admin.Post("/coupons", coupons.Create(log, handler))
			admin.Get("/coupons/{id}", coupons.Get(log, handler))
			admin.Put("/coupons/{id}", coupons.Update(log, handler))
			admin.Patch("/coupons/{id}/status", coupons.SetStatus(log, handler))
			admin.Patch("/registrations/{id}/status", registration.SetStatus(log, handler))
		})
	})

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler) *Server {
	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	return &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
		httpServer: &http.Server{
			Handler:      NewRouter(conf, log, handler),
			ErrorLog:     httpLog,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks until the server is shut down; a clean shutdown returns nil.
func (s *Server) Start() error {
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIp, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	s.log.Info("starting api server", slog.String("address", serverAddress))

	err = s.httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
