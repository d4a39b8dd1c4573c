package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fixtrack/internal/services"
	"fixtrack/internal/timeutil"
	"fixtrack/pkg/utils"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// Summary handles GET /summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, summary)
}

// Analysis handles GET /analysis?startDate=&endDate=
func (h *ReportHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	var bounds [2]*time.Time
	for i, key := range []string{"startDate", "endDate"} {
		v := r.URL.Query().Get(key)
		if v == "" {
			continue
		}
		d, err := timeutil.ParseDate(v)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", key))
			return
		}
		bounds[i] = &d
	}

	analysis, err := h.Service.Analysis(r.Context(), bounds[0], bounds[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bounds[0] != nil {
		analysis.StartDate = timeutil.FormatDate(*bounds[0])
	}
	if bounds[1] != nil {
		analysis.EndDate = timeutil.FormatDate(*bounds[1])
	}
	utils.JSON(w, http.StatusOK, analysis)
}

// Invoice handles GET /records/{id}/invoice
func (h *ReportHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.Service.InvoicePDF(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.Attachment(w, contentTypePDF, filename, data)
}

// Export handles GET /records/export/{type}, type is excel or pdf. The
// listing filters apply; paging does not.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := services.ParseFilter(r.URL.Query().Get)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	stamp := timeutil.Now().Format("2006-01-02")
	switch kind := mux.Vars(r)["type"]; kind {
	case "excel":
		data, err := h.Service.RecordsExcel(ctx, filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		utils.Attachment(w, contentTypeXLSX, fmt.Sprintf("repair_records_%s.xlsx", stamp), data)
	case "pdf":
		data, err := h.Service.RecordsPDF(ctx, filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		utils.Attachment(w, contentTypePDF, fmt.Sprintf("repair_records_%s.pdf", stamp), data)
	default:
		utils.Error(w, http.StatusBadRequest, fmt.Sprintf("unknown export type %q", kind))
	}
}
