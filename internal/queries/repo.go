package queries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows query listings. Time bounds are organization-local instants.
type ListFilter struct {
	SubmittedFrom   *time.Time // inclusive
	SubmittedAfter  *time.Time // exclusive
	SubmittedBefore *time.Time // exclusive
	SubmittedUntil  *time.Time // inclusive

	Name      string
	Market    string
	Client    string
	CableType string
	Sale      *enums.SaleStatus
}

// DeleteResult reports the rows removed by a query delete.
type DeleteResult struct {
	Cables    int64
	Responses int64
	Comments  int64
}

// Repository persists queries and their cables.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to query operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the query together with its cables.
func (r *Repository) Create(ctx context.Context, q *models.Query) error {
	if q == nil {
		return fmt.Errorf("query is required")
	}
	return r.db.WithContext(ctx).Create(q).Error
}

// FindHeader loads the query row only.
func (r *Repository) FindHeader(ctx context.Context, id uuid.UUID) (*models.Query, error) {
	var q models.Query
	if err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// FindWithRelations loads the query with cables, responses and comments attached.
func (r *Repository) FindWithRelations(ctx context.Context, id uuid.UUID) (*models.Query, error) {
	var q models.Query
	if err := withRelations(r.db.WithContext(ctx)).First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// List returns queries matching the filter, newest first, with relations loaded.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Query, error) {
	tx := withRelations(r.db.WithContext(ctx).Model(&models.Query{}))
	tx = r.applyFilter(tx, filter)

	var out []models.Query
	if err := tx.Order("submitted_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateHeader saves the editable header columns.
func (r *Repository) UpdateHeader(ctx context.Context, q *models.Query) error {
	if q == nil {
		return fmt.Errorf("query is required")
	}
	return r.db.WithContext(ctx).Model(&models.Query{}).Where("id = ?", q.ID).Updates(map[string]any{
		"client":         q.Client,
		"investment":     q.Investment,
		"packaging":      q.Packaging,
		"preferred_date": q.PreferredDate,
		"query_comments": q.Notes,
	}).Error
}

// ReplaceCables deletes the query's cables (and their responses) and inserts the new set.
func (r *Repository) ReplaceCables(ctx context.Context, queryID uuid.UUID, cables []models.Cable) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cable_id IN (?)", cableIDs(db, queryID)).Delete(&models.CableResponse{}).Error; err != nil {
		return err
	}
	if err := db.Where("query_id = ?", queryID).Delete(&models.Cable{}).Error; err != nil {
		return err
	}
	if len(cables) == 0 {
		return nil
	}
	for i := range cables {
		cables[i].QueryID = queryID
	}
	return db.Create(&cables).Error
}

// SetSaleStatus stores the tri-state outcome flag.
func (r *Repository) SetSaleStatus(ctx context.Context, id uuid.UUID, isWon *bool) error {
	res := r.db.WithContext(ctx).Model(&models.Query{}).Where("id = ?", id).Update("is_won", isWon)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes responses, cables, comments and the query. Callers run it inside a
// transaction so a failure on any step leaves every row in place.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (DeleteResult, error) {
	db := r.db.WithContext(ctx)
	var result DeleteResult

	res := db.Where("cable_id IN (?)", cableIDs(db, id)).Delete(&models.CableResponse{})
	if res.Error != nil {
		return result, res.Error
	}
	result.Responses = res.RowsAffected

	res = db.Where("query_id = ?", id).Delete(&models.Cable{})
	if res.Error != nil {
		return result, res.Error
	}
	result.Cables = res.RowsAffected

	res = db.Where("query_id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return result, res.Error
	}
	result.Comments = res.RowsAffected

	res = db.Where("id = ?", id).Delete(&models.Query{})
	if res.Error != nil {
		return result, res.Error
	}
	if res.RowsAffected == 0 {
		return result, gorm.ErrRecordNotFound
	}
	return result, nil
}

// DistinctNames lists submitter names present on queries.
func (r *Repository) DistinctNames(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "name")
}

// DistinctMarkets lists markets present on queries.
func (r *Repository) DistinctMarkets(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "market")
}

func (r *Repository) distinct(ctx context.Context, column string) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).
		Model(&models.Query{}).
		Distinct(column).
		Where(column+" <> ''").
		Order(column).
		Pluck(column, &out).Error
	return out, err
}

func (r *Repository) applyFilter(tx *gorm.DB, f ListFilter) *gorm.DB {
	if f.SubmittedFrom != nil {
		tx = tx.Where("submitted_at >= ?", timeutil.Wall(*f.SubmittedFrom))
	}
	if f.SubmittedAfter != nil {
		tx = tx.Where("submitted_at > ?", timeutil.Wall(*f.SubmittedAfter))
	}
	if f.SubmittedBefore != nil {
		tx = tx.Where("submitted_at < ?", timeutil.Wall(*f.SubmittedBefore))
	}
	if f.SubmittedUntil != nil {
		tx = tx.Where("submitted_at <= ?", timeutil.Wall(*f.SubmittedUntil))
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		tx = tx.Where("name = ?", name)
	}
	if market := strings.TrimSpace(f.Market); market != "" {
		tx = tx.Where("market = ?", market)
	}
	if client := strings.TrimSpace(f.Client); client != "" {
		tx = tx.Where(r.like("client"), containsPattern(client))
	}
	if cable := strings.TrimSpace(f.CableType); cable != "" {
		tx = tx.Where(
			"EXISTS (SELECT 1 FROM cables WHERE cables.query_id = queries.id AND "+r.like("cables.cable_type")+")",
			containsPattern(cable),
		)
	}
	if f.Sale != nil {
		if flag := f.Sale.Flag(); flag != nil {
			tx = tx.Where("is_won = ?", *flag)
		} else {
			tx = tx.Where("is_won IS NULL")
		}
	}
	return tx
}

// like builds a case-insensitive substring predicate for the active dialect.
func (r *Repository) like(column string) string {
	if r.db.Dialector != nil && r.db.Dialector.Name() == "postgres" {
		return column + ` ILIKE ? ESCAPE '\'`
	}
	return "LOWER(" + column + `) LIKE ? ESCAPE '\'`
}

func containsPattern(value string) string {
	escaper := strings.NewReplacer(`%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(escaper.Replace(value)) + "%"
}

func cableIDs(db *gorm.DB, queryID uuid.UUID) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).Model(&models.Cable{}).Select("id").Where("query_id = ?", queryID)
}

func withRelations(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Cables", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Cables.Response").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("date_posted ASC") })
}
