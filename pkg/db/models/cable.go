package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cable is one line item of a Query.
type Cable struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	QueryID         uuid.UUID      `gorm:"type:uuid;column:query_id;not null;index"`
	CableType       string         `gorm:"column:cable_type;not null"`
	Voltage         *string        `gorm:"column:voltage"`
	Length          int            `gorm:"column:length;not null"`
	Packaging       string         `gorm:"column:packaging;not null"`
	SpecificLengths datatypes.JSON `gorm:"column:specific_lengths"`
	Comments        *string        `gorm:"column:comments"`
	Position        int            `gorm:"column:position;not null;default:0"`

	Response *CableResponse `gorm:"foreignKey:CableID;constraint:OnDelete:CASCADE"`
}

func (c *Cable) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
