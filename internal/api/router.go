package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medibook/booking-core/internal/account"
	"github.com/medibook/booking-core/internal/availability"
	"github.com/medibook/booking-core/internal/booking"
)

type RouterConfig struct {
	Accounts     *account.Service
	Availability *availability.Service
	Bookings     *booking.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Accounts and role approval
	r.Post("/accounts/signup", signUpHandler(cfg.Accounts))
	r.Get("/accounts/pending", listPendingHandler(cfg.Accounts))
	r.Get("/accounts/{id}", getAccountHandler(cfg.Accounts))
	r.Delete("/accounts/{id}", removeAccountHandler(cfg.Accounts))
	r.Post("/accounts/{id}/approve", approveRoleHandler(cfg.Accounts))
	r.Post("/accounts/{id}/reject", rejectRoleHandler(cfg.Accounts))
	r.Get("/accounts/{id}/notifications", listNotificationsHandler(cfg.Bookings))

	// Doctors, calendar, slots, unavailability
	r.Get("/doctors", listDoctorsHandler(cfg.Accounts))
	r.Get("/doctors/{doctorID}/calendar", calendarHandler(cfg.Availability))
	r.Get("/doctors/{doctorID}/slots", slotsHandler(cfg.Accounts, cfg.Availability, cfg.Bookings))
	r.Get("/doctors/{doctorID}/unavailability", listUnavailabilityHandler(cfg.Availability))
	r.Post("/doctors/{doctorID}/unavailability", addUnavailabilityHandler(cfg.Availability))
	r.Delete("/unavailability/{blockID}", deleteUnavailabilityHandler(cfg.Availability))

	// Appointments
	r.Post("/appointments", reserveSlotHandler(cfg.Bookings))
	r.Get("/appointments", listAppointmentsHandler(cfg.Bookings))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Bookings))

	// Emitted records
	r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Bookings))
	r.Get("/conversations", listMessagesHandler(cfg.Bookings))

	return r
}
