package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Payment statuses
const (
	StatusPaid    = "Paid"
	StatusPending = "Pending"
)

// CustomPartName marks a spare part whose display name is typed by staff
const CustomPartName = "Custom"

// SparePartCatalogue lists the part names offered on the record form
var SparePartCatalogue = []string{
	"Combo", "Battery", "Switch", "Inner", "Outer", "Software", "Hardware", "IC", CustomPartName,
}

var (
	ErrModelRequired    = errors.New("mobile model is required")
	ErrCustomerRequired = errors.New("customer name is required")
	ErrComplaintMissing = errors.New("complaint is required")
	ErrNegativeAmount   = errors.New("amounts must not be negative")
	ErrInvalidStatus    = errors.New("payment status must be Paid or Pending")
	ErrPartName         = errors.New("spare part name is required")
)

type SparePart struct {
	Name       string  `json:"name"`
	CustomName string  `json:"customName,omitempty"` // only when Name is "Custom"
	Price      float64 `json:"price"`
}

// ValidStatus reports whether s is a known payment status
func ValidStatus(s string) bool {
	return s == StatusPaid || s == StatusPending
}

// DisplayName is the name printed on invoices
func (p SparePart) DisplayName() string {
	if p.Name == CustomPartName && strings.TrimSpace(p.CustomName) != "" {
		return strings.TrimSpace(p.CustomName)
	}
	return p.Name
}

type RepairRecord struct {
	ID             string      `json:"id"`
	Date           time.Time   `json:"date"`
	MobileModel    string      `json:"mobileModel"`
	CustomerName   string      `json:"customerName"`
	CustomerPhone  string      `json:"customerPhone,omitempty"` // optional
	Complaint      string      `json:"complaint"`
	SpareParts     []SparePart `json:"spareParts"`
	ServiceCharge  float64     `json:"serviceCharge"`
	TotalPrice     float64     `json:"totalPrice"`
	PaymentStatus  string      `json:"paymentStatus"`
	BeforePhotoURL string      `json:"beforePhotoUrl,omitempty"`
	AfterPhotoURL  string      `json:"afterPhotoUrl,omitempty"`
	CreatedByID    int         `json:"createdBy,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// PartsTotal sums the spare part prices
func (r *RepairRecord) PartsTotal() float64 {
	return PartsTotal(r.SpareParts)
}

// ComputeTotal sets TotalPrice to service charge plus parts and returns it
func (r *RepairRecord) ComputeTotal() float64 {
	r.TotalPrice = TotalPrice(r.ServiceCharge, r.SpareParts)
	return r.TotalPrice
}

// PartsTotal sums part prices rounded to paise
func PartsTotal(parts []SparePart) float64 {
	var sum float64
	for _, p := range parts {
		sum += p.Price
	}
	return roundMoney(sum)
}

// TotalPrice is serviceCharge + sum(parts[].price)
func TotalPrice(serviceCharge float64, parts []SparePart) float64 {
	return roundMoney(serviceCharge + PartsTotal(parts))
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// RecordRequest is the body for creating or updating a repair record.
// TotalPrice is accepted on the wire but always recomputed.
type RecordRequest struct {
	Date          string      `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	MobileModel   string      `json:"mobileModel"`
	CustomerName  string      `json:"customerName"`
	CustomerPhone string      `json:"customerPhone,omitempty"`
	Complaint     string      `json:"complaint"`
	SpareParts    []SparePart `json:"spareParts"`
	ServiceCharge float64     `json:"serviceCharge"`
	TotalPrice    float64     `json:"totalPrice"`
	PaymentStatus string      `json:"paymentStatus"`
}

// Normalize trims text, drops empty part rows and recomputes the total
func (req *RecordRequest) Normalize() {
	req.Date = strings.TrimSpace(req.Date)
	req.MobileModel = strings.TrimSpace(req.MobileModel)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.Complaint = strings.TrimSpace(req.Complaint)
	if req.PaymentStatus == "" {
		req.PaymentStatus = StatusPending
	}

	parts := req.SpareParts[:0]
	for _, p := range req.SpareParts {
		p.Name = strings.TrimSpace(p.Name)
		p.CustomName = strings.TrimSpace(p.CustomName)
		if p.Name == "" && p.Price == 0 {
			continue
		}
		parts = append(parts, p)
	}
	req.SpareParts = parts
	req.TotalPrice = TotalPrice(req.ServiceCharge, req.SpareParts)
}

// Validate checks a normalized request
func (req *RecordRequest) Validate() error {
	if req.MobileModel == "" {
		return ErrModelRequired
	}
	if req.CustomerName == "" {
		return ErrCustomerRequired
	}
	if req.Complaint == "" {
		return ErrComplaintMissing
	}
	if !ValidStatus(req.PaymentStatus) {
		return ErrInvalidStatus
	}
	if req.ServiceCharge < 0 {
		return ErrNegativeAmount
	}
	for i, p := range req.SpareParts {
		if p.Name == "" || (p.Name == CustomPartName && p.CustomName == "") {
			return fmt.Errorf("part %d: %w", i+1, ErrPartName)
		}
		if p.Price < 0 {
			return fmt.Errorf("part %d: %w", i+1, ErrNegativeAmount)
		}
	}
	return nil
}

// RecordPage is one page of the records listing
type RecordPage struct {
	Items       []*RepairRecord `json:"items"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
}

// RecordFilter is the server-side view of the listing query string
type RecordFilter struct {
	Search        string
	Status        string
	StartDate     *time.Time
	EndDate       *time.Time
	SortKey       string
	SortDirection string
	Page          int
	Limit         int
}
