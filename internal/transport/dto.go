package transport

import (
	"time"

	"github.com/Skotchmaster/deen_api/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthData is the payload of register and login responses.
type AuthData struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ProfileData struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func Profile(u *models.User) ProfileData {
	return ProfileData{ID: u.ID, Email: u.Email, Name: u.Name, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt}
}

type SetAdminRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

type PreferenceRequest struct {
	Language          *string `json:"language"`
	PreferredCategory *string `json:"preferred_category"`
	PrayerMethod      *int    `json:"prayer_method"`
}

type CreateVideoRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

type PatchVideoRequest struct {
	Title    *string `json:"title"`
	URL      *string `json:"url"`
	Category *string `json:"category"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type VideoList struct {
	Items        []models.Video `json:"items"`
	Meta         PageMeta       `json:"meta"`
	Personalized bool           `json:"personalized"`
	Category     string         `json:"category,omitempty"`
}
