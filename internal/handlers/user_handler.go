package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fixtrack/internal/middleware"
	"fixtrack/internal/models"
	"fixtrack/internal/services"
	"fixtrack/pkg/utils"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(s *services.UserService) *UserHandler {
	return &UserHandler{Service: s}
}

// ListUsers returns all users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	utils.JSON(w, http.StatusOK, users)
}

// AddStaff handles POST /users/staff
func (h *UserHandler) AddStaff(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStaffRequest
	if err := utils.DecodeJSON(w, r, &req, maxJSONBody); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Service.CreateStaff(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, user)
}

// DeleteUser handles DELETE /users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.Service.DeleteUser(r.Context(), actorID, id); err != nil {
		writeError(w, r, err)
		return
	}
	utils.Message(w, http.StatusOK, "User deleted")
}
