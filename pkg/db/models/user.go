package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a staff account. Salespersons submit queries; admins respond to them.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Username     string     `gorm:"column:username;not null;uniqueIndex"`
	Email        *string    `gorm:"column:email;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Market       *string    `gorm:"column:market"`
	IsAdmin      bool       `gorm:"column:is_admin;not null;default:false"`
	CanDelete    bool       `gorm:"column:can_delete;not null;default:false"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
