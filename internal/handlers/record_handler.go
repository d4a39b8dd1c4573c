package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"fixtrack/internal/middleware"
	"fixtrack/internal/models"
	"fixtrack/internal/services"
	"fixtrack/pkg/utils"
)

// Multipart field names of the record form
const (
	beforePhotoField = "beforePhoto"
	afterPhotoField  = "afterPhoto"
)

type RecordHandler struct {
	Service *services.RecordService
	// MaxUpload caps multipart bodies, in bytes
	MaxUpload int64
}

func NewRecordHandler(s *services.RecordService, maxUploadMB int64) *RecordHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &RecordHandler{Service: s, MaxUpload: maxUploadMB << 20}
}

// photoUpload is a file part of the record form
type photoUpload struct {
	kind   string
	header *multipart.FileHeader
}

// readRecordRequest accepts either a JSON body or the multipart form the web
// client sends, where spareParts is a JSON string and photos are file parts
func (h *RecordHandler) readRecordRequest(w http.ResponseWriter, r *http.Request) (*models.RecordRequest, []photoUpload, error) {
	var req models.RecordRequest
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := utils.DecodeJSON(w, r, &req, maxJSONBody); err != nil {
			return nil, nil, errors.New("invalid request body")
		}
		return &req, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		return nil, nil, fmt.Errorf("invalid form data: %v", err)
	}

	req.Date = r.FormValue("date")
	req.MobileModel = r.FormValue("mobileModel")
	req.CustomerName = r.FormValue("customerName")
	req.CustomerPhone = r.FormValue("customerPhone")
	req.Complaint = r.FormValue("complaint")
	req.PaymentStatus = r.FormValue("paymentStatus")

	if v := strings.TrimSpace(r.FormValue("serviceCharge")); v != "" {
		charge, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, errors.New("serviceCharge must be a number")
		}
		req.ServiceCharge = charge
	}
	if v := strings.TrimSpace(r.FormValue("spareParts")); v != "" {
		if err := json.Unmarshal([]byte(v), &req.SpareParts); err != nil {
			return nil, nil, errors.New("spareParts must be a JSON array")
		}
	}

	var photos []photoUpload
	for field, kind := range map[string]string{beforePhotoField: services.PhotoBefore, afterPhotoField: services.PhotoAfter} {
		if files := r.MultipartForm.File[field]; len(files) > 0 {
			photos = append(photos, photoUpload{kind: kind, header: files[0]})
		}
	}
	return &req, photos, nil
}

func (h *RecordHandler) attachPhotos(r *http.Request, rec *models.RepairRecord, photos []photoUpload) (*models.RepairRecord, error) {
	for _, p := range photos {
		f, err := p.header.Open()
		if err != nil {
			return nil, err
		}
		updated, err := h.Service.AttachPhoto(r.Context(), rec.ID, p.kind, p.header.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			return nil, err
		}
		rec = updated
	}
	return rec, nil
}

// CreateRecord handles POST /records
func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	req, photos, err := h.readRecordRequest(w, r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(photos) > 0 && h.Service.Photos == nil {
		writeError(w, r, services.ErrNoPhotoStorage)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	rec, err := h.Service.Create(r.Context(), req, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err = h.attachPhotos(r, rec, photos)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, rec)
}

// GetRecord handles GET /records/{id}
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

// UpdateRecord handles PUT /records/{id}
func (h *RecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	req, photos, err := h.readRecordRequest(w, r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(photos) > 0 && h.Service.Photos == nil {
		writeError(w, r, services.ErrNoPhotoStorage)
		return
	}

	rec, err := h.Service.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err = h.attachPhotos(r, rec, photos)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

// DeleteRecord handles DELETE /records/{id} (Admin)
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	utils.Message(w, http.StatusOK, "Record deleted")
}

// ListRecords handles GET /records with search, status, date range, sort
// and paging query parameters
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := services.ParseFilter(r.URL.Query().Get)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.Service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if page.Items == nil {
		page.Items = []*models.RepairRecord{}
	}
	utils.JSON(w, http.StatusOK, page)
}
