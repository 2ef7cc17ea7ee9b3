package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/models"
)

func (r *GormRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, storeErr("get user", err)
	}
	return &user, nil
}

// GetUserByEmail matches case-insensitively; stored emails are already lowercased.
func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, storeErr("get user by email", err)
	}
	return &user, nil
}

// CreateUser inserts a single row. Email uniqueness is left to the unique
// index so concurrent registrations cannot both succeed.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create user: %w", apperr.ErrDuplicateIdentity)
		}
		return storeErr("create user", err)
	}
	return nil
}

// UpdateUserFields applies a column/value update to one user and returns the
// fresh row. Zero values are written as given.
func (r *GormRepo) UpdateUserFields(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	if len(fields) == 0 {
		return r.GetUserByID(ctx, id)
	}
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return nil, fmt.Errorf("update user: %w", apperr.ErrDuplicateIdentity)
		}
		return nil, storeErr("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update user: %w", apperr.ErrNotFound)
	}
	return r.GetUserByID(ctx, id)
}
