package responses

import (
	"context"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists cable responses.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// InsertBatch writes all rows in a single statement.
func (r *Repository) InsertBatch(ctx context.Context, rows []models.CableResponse) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}
