package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prosante/appointment-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints stay outside the identity requirement.
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Service))
			r.Get("/", listAppointmentsHandler(cfg.Service))
			r.Get("/{id}", getAppointmentHandler(cfg.Service))
			r.Put("/{id}", updateAppointmentHandler(cfg.Service))
			r.Delete("/{id}", deleteAppointmentHandler(cfg.Service))
		})

		r.Route("/professionals/{id}", func(r chi.Router) {
			r.Get("/", getProfessionalHandler(cfg.Service))
			r.Get("/availabilities", listAvailabilityHandler(cfg.Service))
			r.Put("/availabilities", replaceAvailabilityHandler(cfg.Service))
			r.Get("/blocked-intervals", listBlockedIntervalsHandler(cfg.Service))
			r.Post("/blocked-intervals", createBlockedIntervalHandler(cfg.Service))
			r.Delete("/blocked-intervals/{intervalID}", deleteBlockedIntervalHandler(cfg.Service))
		})
	})

	return r
}
