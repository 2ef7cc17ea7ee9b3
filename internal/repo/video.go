package repo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/models"
)

// ListVideos returns one page, newest first. An empty category lists everything.
func (r *GormRepo) ListVideos(ctx context.Context, category string, offset, limit int) (int64, []models.Video, error) {
	q := r.DB.WithContext(ctx).Model(&models.Video{})
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, storeErr("count videos", err)
	}

	var videos []models.Video
	if err := q.Order("created_at DESC").Order("id").Offset(offset).Limit(limit).Find(&videos).Error; err != nil {
		return 0, nil, storeErr("list videos", err)
	}
	return total, videos, nil
}

func (r *GormRepo) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var v models.Video
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, storeErr("get video", err)
	}
	return &v, nil
}

func (r *GormRepo) CreateVideo(ctx context.Context, v *models.Video) error {
	return storeErr("create video", r.DB.WithContext(ctx).Create(v).Error)
}

func (r *GormRepo) UpdateVideoFields(ctx context.Context, id string, fields map[string]any) (*models.Video, error) {
	if len(fields) == 0 {
		return r.GetVideo(ctx, id)
	}
	res := r.DB.WithContext(ctx).Model(&models.Video{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, storeErr("update video", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update video: %w", apperr.ErrNotFound)
	}
	return r.GetVideo(ctx, id)
}

func (r *GormRepo) DeleteVideo(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Video{})
	if res.Error != nil {
		return storeErr("delete video", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete video: %w", apperr.ErrNotFound)
	}
	return nil
}
