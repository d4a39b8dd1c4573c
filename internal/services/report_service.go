package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/xuri/excelize/v2"

	"fixtrack/internal/cache"
	"fixtrack/internal/metrics"
	"fixtrack/internal/models"
	"fixtrack/internal/repositories"
	"fixtrack/internal/timeutil"
)

const (
	earningsMonths = 12
	topN           = 5
)

// ShopInfo is printed on invoices and exports
type ShopInfo struct {
	Name    string
	Address string
	Phone   string
}

// ReportService builds the dashboard projections and the printable files
type ReportService struct {
	Repo       ReportStore
	Records    RecordStore
	Shop       ShopInfo
	SummaryTTL time.Duration
	now        func() time.Time
}

func NewReportService(repo ReportStore, records RecordStore, shop ShopInfo, summaryTTL time.Duration) *ReportService {
	return &ReportService{
		Repo:       repo,
		Records:    records,
		Shop:       shop,
		SummaryTTL: summaryTTL,
		now:        timeutil.Now,
	}
}

// cached serves key from Redis when possible, otherwise computes and stores
// it under the generation that was current before computing
func cached[T any](ctx context.Context, key string, ttl time.Duration, compute func() (*T, error)) (*T, error) {
	gen, ok := cache.Generation(ctx)
	if !ok {
		return compute()
	}
	scoped := cache.Scoped(key, gen)

	if data, ok := cache.GetCached(ctx, scoped); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			metrics.CacheLookups.WithLabelValues(cacheLabel(key), "hit").Inc()
			return &v, nil
		}
	}
	metrics.CacheLookups.WithLabelValues(cacheLabel(key), "miss").Inc()

	v, err := compute()
	if err != nil {
		return nil, err
	}
	if ttl > 0 {
		if data, err := json.Marshal(v); err == nil {
			cache.SetCached(ctx, scoped, data, ttl)
		}
	}
	return v, nil
}

func cacheLabel(key string) string {
	if strings.HasPrefix(key, cache.AnalysisPrefix) {
		return "analysis"
	}
	return "summary"
}

// Summary returns the financial dashboard, cached for SummaryTTL
func (s *ReportService) Summary(ctx context.Context) (*models.Summary, error) {
	return cached(ctx, cache.SummaryKey, s.SummaryTTL, func() (*models.Summary, error) {
		return s.Repo.Summary(ctx, s.now(), earningsMonths)
	})
}

// Analysis returns the service analysis for [start, end]; nil bounds are open
func (s *ReportService) Analysis(ctx context.Context, start, end *time.Time) (*models.Analysis, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, fmt.Errorf("%w: startDate is after endDate", ErrInvalidQuery)
	}
	key := cache.AnalysisPrefix + dateKey(start) + ":" + dateKey(end)
	return cached(ctx, key, s.SummaryTTL, func() (*models.Analysis, error) {
		return s.Repo.Analysis(ctx, start, end, topN)
	})
}

// WarmSummary recomputes the cached summary in the background
func (s *ReportService) WarmSummary() {
	cache.PreWarmKey(cache.SummaryKey, func(ctx context.Context) ([]byte, error) {
		summary, err := s.Repo.Summary(ctx, s.now(), earningsMonths)
		if err != nil {
			return nil, err
		}
		return json.Marshal(summary)
	}, s.SummaryTTL)
}

func dateKey(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return timeutil.FormatDate(*t)
}

func money(v float64) string {
	return fmt.Sprintf("Rs. %.2f", v)
}

// InvoicePDF renders the customer invoice of one record
func (s *ReportService) InvoicePDF(ctx context.Context, id string) ([]byte, string, error) {
	rec, err := s.Records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", ErrRecordNotFound
		}
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(128, 9, tr(s.Shop.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	if s.Shop.Address != "" {
		pdf.CellFormat(128, 5, tr(s.Shop.Address), "", 1, "C", false, 0, "")
	}
	if s.Shop.Phone != "" {
		pdf.CellFormat(128, 5, "Phone: "+s.Shop.Phone, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(128, 8, "Repair Invoice", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(64, 7, "Invoice: "+shortID(rec.ID), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(64, 7, "Date: "+rec.Date.Format("02-Jan-2006"), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(64, 7, tr("Customer: "+rec.CustomerName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(64, 7, "Phone: "+rec.CustomerPhone, "RB", 1, "L", false, 0, "")
	pdf.CellFormat(128, 7, tr("Model: "+rec.MobileModel), "LRB", 1, "L", false, 0, "")
	pdf.MultiCell(128, 6, tr("Complaint: "+rec.Complaint), "LRB", "L", false)
	pdf.Ln(4)

	// Line items
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(88, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, p := range rec.SpareParts {
		pdf.CellFormat(88, 6, tr(p.DisplayName()), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, money(p.Price), "1", 1, "R", false, 0, "")
	}
	pdf.CellFormat(88, 6, "Service charge", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, money(rec.ServiceCharge), "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(88, 8, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, money(rec.TotalPrice), "1", 1, "R", true, 0, "")
	pdf.Ln(3)

	if rec.PaymentStatus == models.StatusPaid {
		pdf.SetFillColor(200, 255, 200)
	} else {
		pdf.SetFillColor(255, 200, 200)
	}
	pdf.CellFormat(128, 8, "Payment: "+rec.PaymentStatus, "1", 1, "C", true, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(128, 5, "Thank you for your business.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("invoice_%s.pdf", shortID(rec.ID)), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

var exportColumns = []string{"Date", "Model", "Customer", "Phone", "Complaint", "Spare Parts", "Service Charge", "Total", "Status"}

func partsLabel(parts []models.SparePart) string {
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, fmt.Sprintf("%s (%.2f)", p.DisplayName(), p.Price))
	}
	return strings.Join(names, ", ")
}

// RecordsPDF renders a landscape table of every record matching f
func (s *ReportService) RecordsPDF(ctx context.Context, f models.RecordFilter) ([]byte, error) {
	records, err := s.Records.All(ctx, f)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "") // Landscape for more columns
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(277, 10, tr(s.Shop.Name+" - Repair Records"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(277, 6, fmt.Sprintf("Generated: %s", s.now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	widths := []float64{22, 35, 35, 25, 55, 45, 20, 20, 20}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	for i, col := range exportColumns {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	var total, pending float64
	pdf.SetFont("Arial", "", 8)
	for _, rec := range records {
		cells := []string{
			rec.Date.Format("02-Jan-2006"),
			rec.MobileModel,
			rec.CustomerName,
			rec.CustomerPhone,
			rec.Complaint,
			partsLabel(rec.SpareParts),
			fmt.Sprintf("%.2f", rec.ServiceCharge),
			fmt.Sprintf("%.2f", rec.TotalPrice),
			rec.PaymentStatus,
		}
		for i, c := range cells {
			align := "L"
			if i >= 6 && i <= 7 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, tr(truncate(c, int(widths[i]/1.6))), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)

		total += rec.TotalPrice
		if rec.PaymentStatus == models.StatusPending {
			pending += rec.TotalPrice
		}
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(92, 8, fmt.Sprintf("Records: %d", len(records)), "1", 0, "C", true, 0, "")
	pdf.CellFormat(92, 8, "Total: "+money(total), "1", 0, "C", true, 0, "")
	pdf.CellFormat(93, 8, "Pending: "+money(pending), "1", 1, "C", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	log.Printf("[Reports] Exported %d records as PDF", len(records))
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// RecordsExcel writes every record matching f into an .xlsx workbook
func (s *ReportService) RecordsExcel(ctx context.Context, f models.RecordFilter) ([]byte, error) {
	records, err := s.Records.All(ctx, f)
	if err != nil {
		return nil, err
	}

	x := excelize.NewFile()
	defer x.Close()

	const sheet = "Records"
	if err := x.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header, err := x.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := x.SetCellValue(sheet, cell, col); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
	if err := x.SetCellStyle(sheet, "A1", last, header); err != nil {
		return nil, err
	}

	for r, rec := range records {
		row := []any{
			rec.Date.Format(timeutil.DateLayout),
			rec.MobileModel,
			rec.CustomerName,
			rec.CustomerPhone,
			rec.Complaint,
			partsLabel(rec.SpareParts),
			rec.ServiceCharge,
			rec.TotalPrice,
			rec.PaymentStatus,
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	_ = x.SetColWidth(sheet, "A", "A", 12)
	_ = x.SetColWidth(sheet, "B", "D", 18)
	_ = x.SetColWidth(sheet, "E", "F", 40)
	_ = x.SetColWidth(sheet, "G", "I", 14)

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	log.Printf("[Reports] Exported %d records as Excel", len(records))
	return buf.Bytes(), nil
}
