package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CableResponse is the priced answer to one Cable. Rows are never updated.
type CableResponse struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CableID             uuid.UUID       `gorm:"type:uuid;column:cable_id;not null;uniqueIndex"`
	PricePerMeterClient decimal.Decimal `gorm:"column:price_per_meter_client;type:numeric(12,2);not null"`
	PricePerMeterBuy    decimal.Decimal `gorm:"column:price_per_meter_purchase;type:numeric(12,2);not null"`
	Manufacturer        *string         `gorm:"column:manufacturer"`
	DeliveryStart       datatypes.Date  `gorm:"column:delivery_date_start;not null"`
	DeliveryEnd         datatypes.Date  `gorm:"column:delivery_date_end;not null"`
	ValidityDate        datatypes.Date  `gorm:"column:validity_date;not null"`
	Comments            *string         `gorm:"column:comments"`
	RespondedAt         time.Time       `gorm:"column:date_responded;type:timestamp;not null"`
}

func (r *CableResponse) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
