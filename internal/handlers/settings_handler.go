package handlers

import (
	"net/http"

	"fixtrack/internal/models"
	"fixtrack/internal/services"
	"fixtrack/pkg/utils"
)

type SettingsHandler struct {
	Service *services.SettingsService
}

func NewSettingsHandler(s *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{Service: s}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, settings)
}

// Update handles PUT /settings (Admin)
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.Settings
	if err := utils.DecodeJSON(w, r, &req, maxJSONBody); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := h.Service.Update(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, settings)
}
