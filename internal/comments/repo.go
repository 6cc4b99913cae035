package comments

import (
	"context"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists query comments.
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

func (r *Repository) Create(ctx context.Context, c *models.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// ListForQuery returns the thread oldest first.
func (r *Repository) ListForQuery(ctx context.Context, queryID uuid.UUID) ([]models.Comment, error) {
	var out []models.Comment
	err := r.db.WithContext(ctx).
		Where("query_id = ?", queryID).
		Order("date_posted ASC").
		Find(&out).Error
	return out, err
}

// QueryExists reports whether the query row is present.
func (r *Repository) QueryExists(ctx context.Context, queryID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Query{}).Where("id = ?", queryID).Count(&n).Error
	return n > 0, err
}

// SetRead flips the read flag on every comment of a query and returns the rows touched.
func (r *Repository) SetRead(ctx context.Context, queryID uuid.UUID, read bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("query_id = ? AND is_read <> ?", queryID, read).
		Update("is_read", read)
	return res.RowsAffected, res.Error
}

// FindInQuery loads one comment, scoped to its query.
func (r *Repository) FindInQuery(ctx context.Context, queryID, commentID uuid.UUID) (*models.Comment, error) {
	var c models.Comment
	err := r.db.WithContext(ctx).
		Where("id = ? AND query_id = ?", commentID, queryID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetCommentRead updates the read flag of a single comment.
func (r *Repository) SetCommentRead(ctx context.Context, commentID uuid.UUID, read bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", commentID).
		Update("is_read", read).Error
}
