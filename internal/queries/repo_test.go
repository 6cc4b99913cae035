package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedQuery(t *testing.T, db *gorm.DB, name, client string, submitted time.Time, cables ...models.Cable) *models.Query {
	t.Helper()
	q := &models.Query{
		Name:          name,
		Market:        "Mazowsze",
		Client:        client,
		PreferredDate: models.NewDate(submitted),
		SubmittedAt:   timeutil.Wall(submitted),
		Cables:        cables,
	}
	require.NoError(t, db.Create(q).Error)
	return q
}

func cableRow(kind string, answered bool, at time.Time) models.Cable {
	c := models.Cable{CableType: kind, Length: 100, Packaging: string(enums.PackagingFullReel)}
	if answered {
		c.Response = &models.CableResponse{
			PricePerMeterClient: decimal.RequireFromString("12.50"),
			PricePerMeterBuy:    decimal.RequireFromString("10.00"),
			DeliveryStart:       models.NewDate(at),
			DeliveryEnd:         models.NewDate(at),
			ValidityDate:        models.NewDate(at),
			RespondedAt:         timeutil.Wall(at),
		}
	}
	return c
}

func TestRepositoryCreateAndLoadRoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	submitted := timeutil.Now().Add(-time.Hour).Truncate(time.Second)
	q := &models.Query{
		Name:          "Jan Kowalski",
		Market:        "Mazowsze",
		Client:        "Elbud",
		PreferredDate: models.NewDate(submitted),
		SubmittedAt:   timeutil.Wall(submitted),
		Cables: buildCables([]CableInput{
			{CableType: "YKY 5x10", Length: 100, Packaging: string(enums.PackagingFullReel)},
			{CableType: "YAKXS 4x120", Length: 300, Packaging: string(enums.PackagingExactCuts), SpecificLengths: []int{100, 200}},
			{CableType: "N2XH 3x2.5", Length: 50, Packaging: string(enums.PackagingFullReel)},
		}),
	}
	require.NoError(t, repo.Create(ctx, q))

	loaded, err := repo.FindWithRelations(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Cables, 3)
	for _, c := range loaded.Cables {
		assert.Nil(t, c.Response)
	}
	assert.Equal(t, "YKY 5x10", loaded.Cables[0].CableType)

	lengths, err := DecodeSpecificLengths(loaded.Cables[1].SpecificLengths)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 200}, lengths)

	assert.True(t, timeutil.ToLocal(loaded.SubmittedAt).Equal(submitted), "submitted_at %s != %s", loaded.SubmittedAt, submitted)

	header, err := repo.FindHeader(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, header.Cables)
}

func TestRepositoryListFilters(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := timeutil.Now()

	seedQuery(t, db, "Jan", "Elbud Sp. z o.o.", now.Add(-2*time.Hour), cableRow("YKY 5x10", false, now))
	older := seedQuery(t, db, "Anna", "Energo", now.Add(-10*24*time.Hour), cableRow("YAKXS 4x120", true, now))
	won := true
	require.NoError(t, repo.SetSaleStatus(ctx, older.ID, &won))

	cutoff := now.Add(-FeedWindow)
	recent, err := repo.List(ctx, ListFilter{SubmittedFrom: &cutoff})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Jan", recent[0].Name)

	byClient, err := repo.List(ctx, ListFilter{Client: "ELBUD"})
	require.NoError(t, err)
	require.Len(t, byClient, 1)

	byCable, err := repo.List(ctx, ListFilter{CableType: "yakxs"})
	require.NoError(t, err)
	require.Len(t, byCable, 1)
	assert.Equal(t, "Anna", byCable[0].Name)
	require.Len(t, byCable[0].Cables, 1)
	assert.NotNil(t, byCable[0].Cables[0].Response)

	sale := enums.SaleStatusWon
	byStatus, err := repo.List(ctx, ListFilter{Sale: &sale})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	pending := enums.SaleStatusPending
	undecided, err := repo.List(ctx, ListFilter{Sale: &pending})
	require.NoError(t, err)
	require.Len(t, undecided, 1)
	assert.Equal(t, "Jan", undecided[0].Name)

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Jan", all[0].Name, "newest first")

	names, err := repo.DistinctNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anna", "Jan"}, names)
}

func TestRepositoryDeleteRemovesEverything(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := timeutil.Now()

	q := seedQuery(t, db, "Jan", "Elbud", now, cableRow("YKY", true, now), cableRow("YDY", false, now))
	require.NoError(t, db.Create(&models.Comment{QueryID: q.ID, Content: "pilne", Author: "Jan", PostedAt: timeutil.Wall(now)}).Error)
	keep := seedQuery(t, db, "Anna", "Energo", now, cableRow("YKY", false, now))

	var result DeleteResult
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = repo.WithTx(tx).Delete(ctx, q.ID)
		return err
	}))
	assert.Equal(t, DeleteResult{Cables: 2, Responses: 1, Comments: 1}, result)

	var cables, responses, comments, queries int64
	db.Model(&models.Cable{}).Count(&cables)
	db.Model(&models.CableResponse{}).Count(&responses)
	db.Model(&models.Comment{}).Count(&comments)
	db.Model(&models.Query{}).Count(&queries)
	assert.Equal(t, int64(1), cables)
	assert.Equal(t, int64(0), responses)
	assert.Equal(t, int64(0), comments)
	assert.Equal(t, int64(1), queries)

	_, err := repo.FindHeader(ctx, keep.ID)
	require.NoError(t, err)

	_, err = repo.Delete(ctx, q.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryDeleteRollsBackOnFailure(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := timeutil.Now()

	q := seedQuery(t, db, "Jan", "Elbud", now, cableRow("YKY", true, now), cableRow("YDY", false, now))

	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_query_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "queries" {
			_ = tx.AddError(errors.New("simulated failure"))
		}
	}))

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.WithTx(tx).Delete(ctx, q.ID)
		return err
	})
	require.Error(t, err)

	require.NoError(t, db.Callback().Delete().Remove("test:fail_query_delete"))

	loaded, err := repo.FindWithRelations(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Cables, 2)
	answered := 0
	for _, c := range loaded.Cables {
		if c.Response != nil {
			answered++
		}
	}
	assert.Equal(t, 1, answered)
}

func TestRepositoryReplaceCables(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := timeutil.Now()

	q := seedQuery(t, db, "Jan", "Elbud", now, cableRow("YKY", true, now), cableRow("YDY", false, now))
	require.NoError(t, repo.ReplaceCables(ctx, q.ID, buildCables([]CableInput{
		{CableType: "N2XH", Length: 10, Packaging: string(enums.PackagingFullReel)},
	})))

	loaded, err := repo.FindWithRelations(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Cables, 1)
	assert.Equal(t, "N2XH", loaded.Cables[0].CableType)

	var responses int64
	db.Model(&models.CableResponse{}).Count(&responses)
	assert.Zero(t, responses)
}
