package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/clinic-appointment-api/internal/clinic"
	redisclient "github.com/clinicdesk/clinic-appointment-api/internal/redis"
)

type RouterConfig struct {
	Service   *clinic.Service
	Throttle  redisclient.Throttle // optional
	JWTSecret string
	RateLimit *RateLimiter // optional
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit.Middleware)
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Admin auth. Route names follow the existing clients.
	r.Post("/login", loginHandler(cfg.Service, cfg.Throttle, cfg.JWTSecret))
	r.With(SubjectAuth(cfg.JWTSecret, "id")).
		Get("/Getdatas/{id}", getAdminHandler(cfg.Service))

	// Payment + appointment flow
	r.Post("/booking", bookingHandler(cfg.Service))
	r.Post("/order/validate", validateOrderHandler(cfg.Service))
	r.Get("/getappointments", listAppointmentsHandler(cfg.Service))
	r.Post("/approve-appointment", approveAppointmentHandler(cfg.Service))
	r.Post("/cancel-appointment", cancelAppointmentHandler(cfg.Service))
	r.With(SubjectAuth(cfg.JWTSecret, "doctorId")).
		Get("/appointments/{doctorId}", doctorAppointmentsHandler(cfg.Service))

	return r
}
