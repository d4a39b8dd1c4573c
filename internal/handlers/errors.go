package handlers

import (
	"errors"
	"log"
	"net/http"

	"fixtrack/internal/models"
	"fixtrack/internal/objectstore"
	"fixtrack/internal/services"
	"fixtrack/pkg/utils"
)

// maxJSONBody caps JSON request bodies
const maxJSONBody = 1 << 20

var statusByError = []struct {
	err    error
	status int
}{
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrInvalidRegistrationCode, http.StatusForbidden},
	{services.ErrRegistrationClosed, http.StatusForbidden},
	{services.ErrCannotDeleteSelf, http.StatusForbidden},
	{services.ErrRecordNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrUsernameTaken, http.StatusConflict},
	{services.ErrShopHasAdmin, http.StatusConflict},
	{services.ErrMissingFields, http.StatusBadRequest},
	{services.ErrWeakPassword, http.StatusBadRequest},
	{services.ErrInvalidDate, http.StatusBadRequest},
	{services.ErrInvalidQuery, http.StatusBadRequest},
	{services.ErrPhotoKind, http.StatusBadRequest},
	{services.ErrNoPhotoStorage, http.StatusBadRequest},
	{services.ErrReferralCodeFormat, http.StatusBadRequest},
	{objectstore.ErrUnsupportedType, http.StatusBadRequest},
	{models.ErrModelRequired, http.StatusBadRequest},
	{models.ErrCustomerRequired, http.StatusBadRequest},
	{models.ErrComplaintMissing, http.StatusBadRequest},
	{models.ErrNegativeAmount, http.StatusBadRequest},
	{models.ErrInvalidStatus, http.StatusBadRequest},
	{models.ErrPartName, http.StatusBadRequest},
}

// writeError answers err as {"message": ...}. Known errors keep their text,
// anything else is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			utils.Error(w, e.status, err.Error())
			return
		}
	}
	log.Printf("[HTTP] %s %s failed: %v", r.Method, r.URL.Path, err)
	utils.Error(w, http.StatusInternalServerError, "Internal server error")
}
