package reports

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Monday
var fixedNow = time.Date(2026, 6, 15, 10, 0, 0, 0, timeutil.Location())

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc, err := NewService(queries.NewRepository(db), testLogger(), func() time.Time { return fixedNow })
	require.NoError(t, err)
	return svc, db
}

func insertQuery(t *testing.T, db *gorm.DB, client string, submitted time.Time, isWon *bool, respondedAfter time.Duration) {
	t.Helper()
	cable := models.Cable{CableType: "YKY 5x10", Length: 100, Packaging: string(enums.PackagingFullReel)}
	if respondedAfter > 0 {
		at := submitted.Add(respondedAfter)
		cable.Response = &models.CableResponse{
			PricePerMeterClient: decimal.RequireFromString("12.50"),
			PricePerMeterBuy:    decimal.RequireFromString("10.00"),
			DeliveryStart:       models.NewDate(at),
			DeliveryEnd:         models.NewDate(at),
			ValidityDate:        models.NewDate(at),
			RespondedAt:         timeutil.Wall(at),
		}
	}
	q := &models.Query{
		Name:          "Jan Kowalski",
		Market:        "Mazowsze",
		Client:        client,
		PreferredDate: models.NewDate(submitted),
		SubmittedAt:   timeutil.Wall(submitted),
		IsWon:         isWon,
		Cables:        []models.Cable{cable},
	}
	require.NoError(t, db.Create(q).Error)
}

func TestWeeklyStatsDefaultsToTrailingWeek(t *testing.T) {
	svc, db := newTestService(t)

	insertQuery(t, db, "inside", fixedNow.Add(-2*24*time.Hour), boolPtr(true), 2*time.Hour)
	insertQuery(t, db, "boundary", fixedNow.Add(-DefaultWindow), nil, 0)
	insertQuery(t, db, "too-old", fixedNow.Add(-DefaultWindow-time.Minute), boolPtr(false), time.Hour)

	stats, err := svc.WeeklyStats(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalQueries)
	assert.Equal(t, 1, stats.SoldQueries)
	assert.Equal(t, 1, stats.PendingQueries)
	assert.Equal(t, 0, stats.LostQueries)
	assert.Equal(t, 2.0, stats.AvgResponseTime)
	require.Len(t, stats.UnansweredQueries, 1)
	assert.Equal(t, "boundary", stats.UnansweredQueries[0].Client)
	assert.Equal(t, 168, stats.UnansweredQueries[0].HoursWaiting)
}

func TestWeeklyStatsExplicitBoundsAreInclusive(t *testing.T) {
	svc, db := newTestService(t)

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, timeutil.Location())
	end := time.Date(2026, 6, 7, 23, 59, 59, 0, timeutil.Location())
	insertQuery(t, db, "start", start, nil, 0)
	insertQuery(t, db, "end", end, nil, 0)
	insertQuery(t, db, "after", end.Add(time.Second), nil, 0)

	stats, err := svc.WeeklyStats(context.Background(), &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalQueries)
	assert.True(t, stats.StartDate.Equal(start))
	assert.True(t, stats.EndDate.Equal(end))
}

func TestWeeklyStatsEmptyRange(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.WeeklyStats(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalQueries)
	assert.Zero(t, stats.AvgResponseTime)
	assert.Empty(t, stats.UnansweredQueries)
}

func TestWeeklyStatsRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t)

	start := fixedNow
	end := fixedNow.Add(-time.Hour)
	_, err := svc.WeeklyStats(context.Background(), &start, &end)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestDailySummaryStartsOnMonday(t *testing.T) {
	db := dbtest.Open(t)
	wednesday := time.Date(2026, 6, 17, 15, 0, 0, 0, timeutil.Location())
	svc, err := NewService(queries.NewRepository(db), testLogger(), func() time.Time { return wednesday })
	require.NoError(t, err)

	insertQuery(t, db, "monday", time.Date(2026, 6, 15, 0, 30, 0, 0, timeutil.Location()), nil, 0)
	insertQuery(t, db, "sunday", time.Date(2026, 6, 14, 23, 30, 0, 0, timeutil.Location()), nil, 0)

	stats, err := svc.DailySummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalQueries)
	assert.Equal(t, time.Monday, stats.StartDate.Weekday())
}

func TestRemindersListOnlyWaitingQueries(t *testing.T) {
	svc, db := newTestService(t)

	insertQuery(t, db, "waiting", fixedNow.Add(-30*time.Hour), nil, 0)
	insertQuery(t, db, "fresh", fixedNow.Add(-2*time.Hour), nil, 0)
	insertQuery(t, db, "answered", fixedNow.Add(-40*time.Hour), nil, time.Hour)

	reminders, err := svc.Reminders(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "waiting", reminders[0].Query.Client)
	assert.Equal(t, 30, reminders[0].HoursWaiting)
}

type failingLister struct{}

func (failingLister) List(context.Context, queries.ListFilter) ([]models.Query, error) {
	return nil, errors.New("connection reset")
}

func TestWeeklyStatsWrapsRepositoryErrors(t *testing.T) {
	svc, err := NewService(failingLister{}, testLogger(), func() time.Time { return fixedNow })
	require.NoError(t, err)

	_, err = svc.WeeklyStats(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}
