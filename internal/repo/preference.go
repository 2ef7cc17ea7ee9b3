package repo

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/deen_api/internal/models"
)

func (r *GormRepo) GetPreference(ctx context.Context, userID string) (*models.Preference, error) {
	var p models.Preference
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, storeErr("get preference", err)
	}
	return &p, nil
}

func (r *GormRepo) UpsertPreference(ctx context.Context, p *models.Preference) error {
	p.UpdatedAt = time.Now().UTC()
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"language", "preferred_category", "prayer_method", "updated_at"}),
	}).Create(p).Error
	return storeErr("upsert preference", err)
}
