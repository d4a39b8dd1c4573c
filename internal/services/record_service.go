package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"fixtrack/internal/cache"
	"fixtrack/internal/metrics"
	"fixtrack/internal/models"
	"fixtrack/internal/repositories"
	"fixtrack/internal/timeutil"
)

// Photo kinds
const (
	PhotoBefore = "before"
	PhotoAfter  = "after"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidDate    = errors.New("date must be YYYY-MM-DD")
	ErrInvalidQuery   = errors.New("invalid query")
	ErrPhotoKind      = errors.New("photo kind must be before or after")
	ErrNoPhotoStorage = errors.New("photo storage is not configured")
)

type RecordService struct {
	Repo RecordStore
	// Photos is nil when no bucket is configured
	Photos PhotoUploader
	// AfterWrite runs once a record change is committed
	AfterWrite func()
	now        func() time.Time
}

func NewRecordService(repo RecordStore, photos PhotoUploader) *RecordService {
	return &RecordService{Repo: repo, Photos: photos, now: timeutil.Now}
}

// fromRequest validates req and copies it onto rec. The total is always
// recomputed from the service charge and parts.
func (s *RecordService) fromRequest(req *models.RecordRequest, rec *models.RepairRecord) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	date := timeutil.StartOfDay(s.now())
	if req.Date != "" {
		d, err := timeutil.ParseDate(req.Date)
		if err != nil {
			return ErrInvalidDate
		}
		date = d
	}

	parts := req.SpareParts
	if parts == nil {
		parts = []models.SparePart{}
	}

	rec.Date = date
	rec.MobileModel = req.MobileModel
	rec.CustomerName = req.CustomerName
	rec.CustomerPhone = req.CustomerPhone
	rec.Complaint = req.Complaint
	rec.SpareParts = parts
	rec.ServiceCharge = req.ServiceCharge
	rec.PaymentStatus = req.PaymentStatus
	rec.ComputeTotal()
	return nil
}

func (s *RecordService) Create(ctx context.Context, req *models.RecordRequest, createdBy int) (*models.RepairRecord, error) {
	rec := &models.RepairRecord{ID: uuid.NewString(), CreatedByID: createdBy}
	if err := s.fromRequest(req, rec); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.changed(ctx)
	metrics.RecordsCreated.Inc()
	log.Printf("[Records] Created %s for %s (%s, total %.2f)", rec.ID, rec.CustomerName, rec.MobileModel, rec.TotalPrice)
	return rec, nil
}

func (s *RecordService) Get(ctx context.Context, id string) (*models.RepairRecord, error) {
	rec, err := s.Repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

func (s *RecordService) Update(ctx context.Context, id string, req *models.RecordRequest) (*models.RepairRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fromRequest(req, rec); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, rec); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	s.changed(ctx)
	return rec, nil
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRecordNotFound
		}
		return err
	}

	s.changed(ctx)
	metrics.RecordsDeleted.Inc()
	log.Printf("[Records] Deleted %s", id)
	return nil
}

func (s *RecordService) changed(ctx context.Context) {
	cache.InvalidateRecordCaches(ctx)
	if s.AfterWrite != nil {
		s.AfterWrite()
	}
}

// AttachPhoto uploads a before/after photo and stores its URL on the record
func (s *RecordService) AttachPhoto(ctx context.Context, id, kind, contentType string, body io.Reader) (*models.RepairRecord, error) {
	if s.Photos == nil {
		return nil, ErrNoPhotoStorage
	}
	if kind != PhotoBefore && kind != PhotoAfter {
		return nil, ErrPhotoKind
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.Photos.UploadPhoto(ctx, id, kind, contentType, body)
	if err != nil {
		return nil, err
	}
	if kind == PhotoBefore {
		rec.BeforePhotoURL = url
	} else {
		rec.AfterPhotoURL = url
	}
	if err := s.Repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns one page of records. TotalPages is 0 when nothing matches.
func (s *RecordService) List(ctx context.Context, f models.RecordFilter) (*models.RecordPage, error) {
	q := repositories.BuildListQuery(f)
	items, total, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	return &models.RecordPage{
		Items:       items,
		CurrentPage: page,
		TotalPages:  (total + q.Limit - 1) / q.Limit,
	}, nil
}

// All returns every record matching f, for exports
func (s *RecordService) All(ctx context.Context, f models.RecordFilter) ([]*models.RepairRecord, error) {
	return s.Repo.All(ctx, f)
}

// ParseFilter reads the listing query string
func ParseFilter(get func(string) string) (models.RecordFilter, error) {
	f := models.RecordFilter{
		Search:        get("search"),
		Status:        get("status"),
		SortKey:       get("sortKey"),
		SortDirection: get("sortDirection"),
		Page:          1,
	}
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return f, fmt.Errorf("%w: status %q", ErrInvalidQuery, f.Status)
	}

	for _, b := range []struct {
		key string
		dst **time.Time
	}{{"startDate", &f.StartDate}, {"endDate", &f.EndDate}} {
		v := get(b.key)
		if v == "" {
			continue
		}
		d, err := timeutil.ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("%w: %s %q", ErrInvalidQuery, b.key, v)
		}
		*b.dst = &d
	}

	if v := get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > repositories.MaxPage {
			return f, fmt.Errorf("%w: page %q", ErrInvalidQuery, v)
		}
		f.Page = n
	}
	if v := get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("%w: limit %q", ErrInvalidQuery, v)
		}
		f.Limit = n
	}
	return f, nil
}
