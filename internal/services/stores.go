package services

import (
	"context"
	"io"
	"time"

	"fixtrack/internal/models"
)

// The services depend on these narrow views of the repositories so tests
// can swap in fakes.

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	// CreateFirst creates u only when no account exists yet, atomically
	CreateFirst(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id int) error
}

type SettingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, s *models.Settings) error
}

type RecordStore interface {
	Create(ctx context.Context, rec *models.RepairRecord) error
	Get(ctx context.Context, id string) (*models.RepairRecord, error)
	Update(ctx context.Context, rec *models.RepairRecord) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f models.RecordFilter) ([]*models.RepairRecord, int, error)
	All(ctx context.Context, f models.RecordFilter) ([]*models.RepairRecord, error)
}

type ReportStore interface {
	Summary(ctx context.Context, today time.Time, months int) (*models.Summary, error)
	Analysis(ctx context.Context, start, end *time.Time, top int) (*models.Analysis, error)
}

// PhotoUploader stores a repair photo and returns its URL
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, recordID, kind, contentType string, body io.Reader) (string, error)
}
