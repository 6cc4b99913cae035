package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a note in a query's thread.
type Comment struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	QueryID  uuid.UUID `gorm:"type:uuid;column:query_id;not null;index"`
	Content  string    `gorm:"column:content;not null"`
	Author   string    `gorm:"column:author;not null"`
	PostedAt time.Time `gorm:"column:date_posted;type:timestamp;not null"`
	IsRead   bool      `gorm:"column:is_read;not null;default:false"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
