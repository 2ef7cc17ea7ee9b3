package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/models"
	"github.com/Skotchmaster/deen_api/internal/transport"
)

const (
	DefaultLanguage = "en"
	maxPrayerMethod = 23
	maxCategoryLen  = 50
)

type PreferenceStore interface {
	GetPreference(ctx context.Context, userID string) (*models.Preference, error)
	UpsertPreference(ctx context.Context, p *models.Preference) error
}

type PreferenceService struct {
	Repo PreferenceStore
}

// Get returns stored preferences, or defaults when the user never saved any.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*models.Preference, error) {
	p, err := s.Repo.GetPreference(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &models.Preference{UserID: userID, Language: DefaultLanguage}, nil
	}
	return p, err
}

// Put merges the set fields of req over the current preferences.
func (s *PreferenceService) Put(ctx context.Context, userID string, req transport.PreferenceRequest) (*models.Preference, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Language != nil {
		lang := strings.ToLower(strings.TrimSpace(*req.Language))
		if !validLanguage(lang) {
			return nil, fmt.Errorf("%w: language must be a 2 or 3 letter code", apperr.ErrInvalidInput)
		}
		p.Language = lang
	}
	if req.PreferredCategory != nil {
		cat := normalizeCategory(*req.PreferredCategory)
		if len(cat) > maxCategoryLen {
			return nil, fmt.Errorf("%w: category is too long", apperr.ErrInvalidInput)
		}
		p.PreferredCategory = cat
	}
	if req.PrayerMethod != nil {
		if *req.PrayerMethod < 0 || *req.PrayerMethod > maxPrayerMethod {
			return nil, fmt.Errorf("%w: prayer_method must be between 0 and %d", apperr.ErrInvalidInput, maxPrayerMethod)
		}
		p.PrayerMethod = *req.PrayerMethod
	}

	if err := s.Repo.UpsertPreference(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func validLanguage(s string) bool {
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
