package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fixtrack/internal/handlers"
	"fixtrack/internal/middleware"
	"fixtrack/internal/models"
)

// APIPrefix is where the REST surface is mounted
const APIPrefix = "/api"

type Handlers struct {
	Auth     *handlers.AuthHandler
	Records  *handlers.RecordHandler
	Reports  *handlers.ReportHandler
	Users    *handlers.UserHandler
	Settings *handlers.SettingsHandler
	Health   *handlers.HealthHandler
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	api := r.PathPrefix(APIPrefix).Subrouter()
	authed := func(fn http.HandlerFunc) http.Handler { return authMiddleware.Authenticate(fn) }
	admin := func(fn http.HandlerFunc) http.Handler {
		return authMiddleware.RequireRole(models.RoleAdmin)(fn)
	}

	// Public API routes - Authentication
	api.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	api.HandleFunc("/auth/register", h.Auth.Register).Methods("POST")

	// Records. Export is registered before {id} so it is not taken for an ID.
	api.Handle("/records", authed(h.Records.ListRecords)).Methods("GET")
	api.Handle("/records", authed(h.Records.CreateRecord)).Methods("POST")
	api.Handle("/records/export/{type}", authed(h.Reports.Export)).Methods("GET")
	api.Handle("/records/{id}", authed(h.Records.GetRecord)).Methods("GET")
	api.Handle("/records/{id}", authed(h.Records.UpdateRecord)).Methods("PUT")
	api.Handle("/records/{id}", admin(h.Records.DeleteRecord)).Methods("DELETE")
	api.Handle("/records/{id}/invoice", authed(h.Reports.Invoice)).Methods("GET")

	// Reports
	api.Handle("/summary", authed(h.Reports.Summary)).Methods("GET")
	api.Handle("/analysis", authed(h.Reports.Analysis)).Methods("GET")

	// Admin - users and settings
	api.Handle("/users", admin(h.Users.ListUsers)).Methods("GET")
	api.Handle("/users/staff", admin(h.Users.AddStaff)).Methods("POST")
	api.Handle("/users/{id}", admin(h.Users.DeleteUser)).Methods("DELETE")
	api.Handle("/settings", authed(h.Settings.Get)).Methods("GET")
	api.Handle("/settings", admin(h.Settings.Update)).Methods("PUT")

	// Health endpoints (no auth required)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
