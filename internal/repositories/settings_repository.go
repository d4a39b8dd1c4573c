package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"fixtrack/internal/models"
)

// SettingsRepository reads and writes the single shop settings row
type SettingsRepository struct {
	DB *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{DB: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	query := `
		SELECT staff_referral_code, updated_at
		FROM settings
		WHERE id = 1
	`

	settings := &models.Settings{}
	err := r.DB.QueryRow(ctx, query).Scan(
		&settings.StaffReferralCode,
		&settings.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return settings, nil
}

func (r *SettingsRepository) Update(ctx context.Context, s *models.Settings) error {
	query := `
		INSERT INTO settings (id, staff_referral_code, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET staff_referral_code = EXCLUDED.staff_referral_code, updated_at = NOW()
		RETURNING updated_at
	`

	return r.DB.QueryRow(ctx, query, s.StaffReferralCode).Scan(&s.UpdatedAt)
}
