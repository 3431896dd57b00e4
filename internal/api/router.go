package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/report"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
	"github.com/hackgods/clinic-scheduling/internal/slots"
)

type RouterConfig struct {
	Schedules    *schedule.Service
	Slots        *slots.Service
	Appointments *appointment.Service
	Records      *medrecord.Service
	Reports      *report.Service
	Verifier     *session.TokenVerifier
	Health       *HealthHandler
	Log          *zap.Logger

	TimeZone          *time.Location
	CORSOrigins       []string
	BookingsPerMinute int
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	loc := cfg.TimeZone
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier, log))

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", listSchedulesHandler(cfg.Schedules, log))
			r.Post("/", createScheduleHandler(cfg.Schedules, log))
			r.Put("/", saveScheduleHandler(cfg.Schedules, log))
			r.Patch("/{id}", updateScheduleHandler(cfg.Schedules, log))
			r.Delete("/{id}", deleteScheduleHandler(cfg.Schedules, log))
		})

		r.Route("/specialists/{id}", func(r chi.Router) {
			r.Get("/slots", slotsHandler(cfg.Slots, log))
			r.Get("/days", availableDaysHandler(cfg.Slots, log))
			r.Get("/open-slots", openSlotsHandler(cfg.Appointments, log))
			r.Get("/patients", seenPatientsHandler(cfg.Records, cfg.Appointments, log))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", listAppointmentsHandler(cfg.Appointments, log))
			r.Get("/available", availableAppointmentsHandler(cfg.Appointments, loc, log))
			r.With(bookingLimiter(cfg.BookingsPerMinute)).Post("/", reserveHandler(cfg.Appointments, log))
			r.Delete("/", bulkDeleteHandler(cfg.Appointments, log))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getAppointmentHandler(cfg.Appointments, log))
				r.Patch("/", updateAppointmentHandler(cfg.Appointments, log))
				r.Post("/accept", acceptHandler(cfg.Appointments, log))
				r.Post("/reject", rejectHandler(cfg.Appointments, log))
				r.Post("/cancel", cancelHandler(cfg.Appointments, log))
				r.Post("/complete", completeHandler(cfg.Appointments, log))
				r.Post("/rate", rateHandler(cfg.Appointments, log))
				r.Get("/record", appointmentRecordHandler(cfg.Records, log))
				r.Post("/record", addRecordHandler(cfg.Appointments, log))
			})
		})

		r.Get("/medical-records", listRecordsHandler(cfg.Records, log))
		r.Get("/reports/appointments", appointmentReportHandler(cfg.Reports, loc, log))
	})

	return r
}

// bookingLimiter caps reservation attempts per client IP.
func bookingLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many booking attempts, please wait a minute")
		}),
	)
}
