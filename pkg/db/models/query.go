package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Query is one customer cable purchase inquiry.
//
// SubmittedAt holds the organization-local wall clock without zone information;
// read it through timeutil.ToLocal.
type Query struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OwnerID       *uuid.UUID     `gorm:"type:uuid;column:owner_id;index"`
	Name          string         `gorm:"column:name;not null;index"`
	Market        string         `gorm:"column:market;not null;index"`
	Client        string         `gorm:"column:client;not null"`
	Investment    *string        `gorm:"column:investment"`
	Packaging     *string        `gorm:"column:packaging"`
	PreferredDate datatypes.Date `gorm:"column:preferred_date;not null"`
	Notes         *string        `gorm:"column:query_comments"`
	SubmittedAt   time.Time      `gorm:"column:submitted_at;type:timestamp;not null;index"`
	IsWon         *bool          `gorm:"column:is_won"`

	Cables   []Cable   `gorm:"foreignKey:QueryID;constraint:OnDelete:CASCADE"`
	Comments []Comment `gorm:"foreignKey:QueryID;constraint:OnDelete:CASCADE"`
}

func (q *Query) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
