package handlers

import (
	"net/http"

	"qgo-dispatch/internal/dispatch"
	"qgo-dispatch/internal/middleware"
	"qgo-dispatch/internal/session"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the collaborators the routes need. Tokens and WebSocket may be nil.
type Deps struct {
	Service   *dispatch.Service
	Sync      SyncSource
	Devices   middleware.Devices
	Tokens    TokenRegistry
	WebSocket http.HandlerFunc
	JWTSecret string
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.DeviceHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	if d.WebSocket != nil {
		// authentication handled in handler via query param
		r.Get("/ws", d.WebSocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(d.Devices, d.JWTSecret))

		r.Get("/sync/status", GetSyncStatus(d.Sync))
		r.Get("/sync/rules", GetRemediationRules())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireDevice)
			r.Post("/session/login", Login(d.Service, d.Devices, d.JWTSecret))
			r.Post("/session/logout", Logout(d.Devices))
		})
		r.Get("/session", GetSession())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)

			r.Get("/view", GetView(d.Sync))
			r.Patch("/jobs/{id}/status", UpdateJobStatus(d.Service, d.Sync))
			r.Post("/receipts", CreateReceipt(d.Service))
		})

		// Admin dashboard
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(session.RoleAdmin))

			r.Get("/drivers", GetDrivers(d.Sync))
			r.Post("/drivers", CreateDriver(d.Service))
			r.Patch("/drivers/{id}", UpdateDriver(d.Service))
			r.Delete("/drivers/{id}", DeleteDriver(d.Service))

			r.Get("/jobs", GetJobs(d.Sync))
			r.Post("/jobs", CreateJob(d.Service))

			r.Get("/receipts", GetReceipts(d.Sync))
			r.Patch("/receipts/{id}/review", ReviewReceipt(d.Service))
		})

		// Driver portal
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(session.RoleDriver))

			r.Post("/driver/location", UpdateLocation(d.Service))
			r.Post("/driver/fcm-token", RegisterFCMToken(d.Tokens))
		})
	})

	return r
}
