package models

import (
	"time"
)

// User is the stored identity. ID never changes once assigned and is the join
// key for everything that references a user.
type User struct {
	ID           string    `gorm:"primaryKey"           json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"not null;default:''"  json:"name"`
	PasswordHash string    `gorm:"not null;default:''"  json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `gorm:"not null"             json:"created_at"`
}

type Preference struct {
	UserID            string    `gorm:"primaryKey"            json:"user_id"`
	Language          string    `gorm:"not null;default:'en'" json:"language"`
	PreferredCategory string    `gorm:"not null;default:''"   json:"preferred_category"`
	PrayerMethod      int       `gorm:"not null;default:0"    json:"prayer_method"`
	UpdatedAt         time.Time `gorm:"not null"              json:"updated_at"`
}

type Video struct {
	ID        string    `gorm:"primaryKey"     json:"id"`
	Title     string    `gorm:"not null"       json:"title"`
	URL       string    `gorm:"column:url;not null" json:"url"`
	Category  string    `gorm:"index;not null" json:"category"`
	CreatedBy string    `gorm:"not null"       json:"created_by"`
	CreatedAt time.Time `gorm:"not null"       json:"created_at"`
	UpdatedAt time.Time `gorm:"not null"       json:"updated_at"`
}
