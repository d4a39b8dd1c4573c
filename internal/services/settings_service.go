package services

import (
	"context"
	"errors"
	"strings"

	"fixtrack/internal/models"
)

var ErrReferralCodeFormat = errors.New("referral code must be 4 to 64 characters without spaces")

type SettingsService struct {
	Repo SettingsStore
}

func NewSettingsService(repo SettingsStore) *SettingsService {
	return &SettingsService{Repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	return s.Repo.Get(ctx)
}

// Update replaces the staff referral code. An empty code closes registration.
func (s *SettingsService) Update(ctx context.Context, in *models.Settings) (*models.Settings, error) {
	code := strings.TrimSpace(in.StaffReferralCode)
	if code != "" && (len(code) < 4 || len(code) > 64 || strings.ContainsAny(code, " \t\n")) {
		return nil, ErrReferralCodeFormat
	}
	out := &models.Settings{StaffReferralCode: code}
	if err := s.Repo.Update(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}
