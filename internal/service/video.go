package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/auth"
	"github.com/Skotchmaster/deen_api/internal/models"
	"github.com/Skotchmaster/deen_api/internal/transport"
	"github.com/Skotchmaster/deen_api/internal/util"
	"github.com/Skotchmaster/deen_api/pkg/logging"
)

const maxTitleLen = 200

type VideoStore interface {
	ListVideos(ctx context.Context, category string, offset, limit int) (int64, []models.Video, error)
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	CreateVideo(ctx context.Context, v *models.Video) error
	UpdateVideoFields(ctx context.Context, id string, fields map[string]any) (*models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
}

type VideoSearcher interface {
	IndexVideo(ctx context.Context, v *models.Video) error
	DeleteVideo(ctx context.Context, id string) error
	SearchVideos(ctx context.Context, query string, from, size int) (int64, []models.Video, error)
}

// VideoService serves the shared video catalogue. Search is optional; when nil
// searches return nothing and mutations are not mirrored.
type VideoService struct {
	Repo   VideoStore
	Prefs  PreferenceStore
	Search VideoSearcher
}

// List pages through videos. A viewer with a preferred category only sees
// that category.
func (s *VideoService) List(ctx context.Context, viewer *auth.Identity, page, size int) (*transport.VideoList, error) {
	offset, limit, page := util.Calculate(page, size)

	category := ""
	if viewer != nil && s.Prefs != nil {
		p, err := s.Prefs.GetPreference(ctx, viewer.ID)
		switch {
		case err == nil:
			category = p.PreferredCategory
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	total, items, err := s.Repo.ListVideos(ctx, category, offset, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Video{}
	}
	return &transport.VideoList{
		Items:        items,
		Meta:         pageMeta(page, limit, offset, total),
		Personalized: category != "",
		Category:     category,
	}, nil
}

func (s *VideoService) Get(ctx context.Context, id string) (*models.Video, error) {
	return s.Repo.GetVideo(ctx, id)
}

func (s *VideoService) SearchVideos(ctx context.Context, query string, page, size int) (*transport.VideoList, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrInvalidInput)
	}
	offset, limit, page := util.Calculate(page, size)

	if s.Search == nil {
		return &transport.VideoList{Items: []models.Video{}, Meta: pageMeta(page, limit, offset, 0)}, nil
	}

	total, items, err := s.Search.SearchVideos(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrServiceUnavailable, err)
	}
	if items == nil {
		items = []models.Video{}
	}
	return &transport.VideoList{Items: items, Meta: pageMeta(page, limit, offset, total)}, nil
}

func (s *VideoService) Create(ctx context.Context, creator *auth.Identity, req transport.CreateVideoRequest) (*models.Video, error) {
	if creator == nil {
		return nil, apperr.ErrMissingToken
	}
	title, videoURL, category := strings.TrimSpace(req.Title), strings.TrimSpace(req.URL), normalizeCategory(req.Category)
	if err := validateVideo(title, videoURL, category); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	v := &models.Video{
		ID:        uuid.NewString(),
		Title:     title,
		URL:       videoURL,
		Category:  category,
		CreatedBy: creator.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.CreateVideo(ctx, v); err != nil {
		return nil, err
	}
	s.mirror(ctx, v)
	return v, nil
}

func (s *VideoService) Patch(ctx context.Context, id string, req transport.PatchVideoRequest) (*models.Video, error) {
	current, err := s.Repo.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	title, videoURL, category := current.Title, current.URL, current.Category
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		fields["title"] = title
	}
	if req.URL != nil {
		videoURL = strings.TrimSpace(*req.URL)
		fields["url"] = videoURL
	}
	if req.Category != nil {
		category = normalizeCategory(*req.Category)
		fields["category"] = category
	}
	if err := validateVideo(title, videoURL, category); err != nil {
		return nil, err
	}

	v, err := s.Repo.UpdateVideoFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, v)
	return v, nil
}

func (s *VideoService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteVideo(ctx, id); err != nil {
		return err
	}
	if s.Search != nil {
		if err := s.Search.DeleteVideo(ctx, id); err != nil {
			logging.FromContext(ctx).Error("search_unindex_failed", "video_id", id, "error", err)
		}
	}
	return nil
}

// mirror keeps the search index in step; the database stays authoritative so
// index failures are only logged.
func (s *VideoService) mirror(ctx context.Context, v *models.Video) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexVideo(ctx, v); err != nil {
		logging.FromContext(ctx).Error("search_index_failed", "video_id", v.ID, "error", err)
	}
}

func validateVideo(title, videoURL, category string) error {
	if title == "" || len(title) > maxTitleLen {
		return fmt.Errorf("%w: title must be 1-%d characters", apperr.ErrInvalidInput, maxTitleLen)
	}
	u, err := url.Parse(videoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) url", apperr.ErrInvalidInput)
	}
	if category == "" || len(category) > maxCategoryLen {
		return fmt.Errorf("%w: category must be 1-%d characters", apperr.ErrInvalidInput, maxCategoryLen)
	}
	return nil
}

func pageMeta(page, limit, offset int, total int64) transport.PageMeta {
	return transport.PageMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: util.TotalPages(total, limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}
