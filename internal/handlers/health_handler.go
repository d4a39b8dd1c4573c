package handlers

import (
	"net/http"

	"fixtrack/internal/health"
	"fixtrack/pkg/utils"
)

type HealthHandler struct {
	checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// BasicHealth pings the database
func (h *HealthHandler) BasicHealth(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckBasic(r.Context())
	if status.Status != "healthy" {
		utils.JSON(w, http.StatusServiceUnavailable, status)
		return
	}
	utils.JSON(w, http.StatusOK, status)
}

// DetailedHealth adds Redis and host resources for dashboards
func (h *HealthHandler) DetailedHealth(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckDetailed(r.Context())
	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	utils.JSON(w, code, status)
}
