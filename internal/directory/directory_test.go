package directory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/cablequotes-backend/internal/users"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubSource struct {
	entries []Entry
	err     error
}

func (s *stubSource) Load(context.Context) ([]Entry, error) { return s.entries, s.err }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func strPtr(v string) *string { return &v }

func TestGetBeforeRefreshIsEmpty(t *testing.T) {
	cache, err := NewCache(&stubSource{}, nil, testLogger())
	require.NoError(t, err)

	snap := cache.Get()
	assert.Empty(t, snap.Markets)
	assert.NotNil(t, snap.Markets)
	assert.Empty(t, snap.SalespersonsFor("Mazowsze"))
	_, ok := snap.Email("Jan Kowalski")
	assert.False(t, ok)
}

func TestRefreshMergesStoredUsers(t *testing.T) {
	ctx := context.Background()
	repo := users.NewRepository(dbtest.Open(t))
	require.NoError(t, repo.Create(ctx, &models.User{
		Username:     "Ewa Nowak",
		Email:        strPtr("ewa@example.com"),
		Market:       strPtr("Pomorze"),
		PasswordHash: "x",
	}))
	require.NoError(t, repo.Create(ctx, &models.User{
		Username:     "Jan Kowalski",
		Email:        strPtr("jan.nowy@example.com"),
		Market:       strPtr("Mazowsze"),
		PasswordHash: "x",
	}))

	source := &stubSource{entries: []Entry{
		{Name: "Jan Kowalski", Market: "Mazowsze", Email: "jan@example.com"},
		{Name: "Piotr Zieliński", Market: "Śląsk", Email: "piotr@example.com"},
		{Name: "Adam Wiśniewski", Market: "Mazowsze"},
	}}
	cache, err := NewCache(source, repo, testLogger())
	require.NoError(t, err)

	snap, err := cache.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mazowsze", "Pomorze", "Śląsk"}, snap.Markets)
	assert.Equal(t, []string{"Jan Kowalski", "Adam Wiśniewski"}, snap.SalespersonsFor("Mazowsze"))
	assert.Equal(t, []string{"Ewa Nowak"}, snap.SalespersonsFor("Pomorze"))

	addr, ok := snap.Email("Jan Kowalski")
	require.True(t, ok)
	assert.Equal(t, "jan.nowy@example.com", addr)
	_, ok = snap.Email("Adam Wiśniewski")
	assert.False(t, ok)
	assert.False(t, snap.RefreshedAt.IsZero())
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	source := &stubSource{entries: []Entry{{Name: "Jan Kowalski", Market: "Mazowsze", Email: "jan@example.com"}}}
	cache, err := NewCache(source, nil, testLogger())
	require.NoError(t, err)
	_, err = cache.Refresh(ctx)
	require.NoError(t, err)

	source.err = errors.New("file locked")
	source.entries = nil
	snap, err := cache.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"Mazowsze"}, snap.Markets)
	assert.Equal(t, []string{"Mazowsze"}, cache.Get().Markets)
}

func TestSnapshotIsReplacedNotMutated(t *testing.T) {
	ctx := context.Background()
	source := &stubSource{entries: []Entry{{Name: "Jan Kowalski", Market: "Mazowsze"}}}
	cache, err := NewCache(source, nil, testLogger())
	require.NoError(t, err)
	_, err = cache.Refresh(ctx)
	require.NoError(t, err)
	before := cache.Get()

	source.entries = []Entry{{Name: "Ewa Nowak", Market: "Pomorze"}}
	_, err = cache.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mazowsze"}, before.Markets)
	assert.Equal(t, []string{"Pomorze"}, cache.Get().Markets)
}

func TestEmailForFallsBackToStoredUser(t *testing.T) {
	ctx := context.Background()
	repo := users.NewRepository(dbtest.Open(t))
	require.NoError(t, repo.Create(ctx, &models.User{Username: "Ewa Nowak", Email: strPtr("ewa@example.com"), PasswordHash: "x"}))

	cache, err := NewCache(&stubSource{}, repo, testLogger())
	require.NoError(t, err)

	addr, ok := cache.EmailFor(ctx, "Ewa Nowak")
	require.True(t, ok)
	assert.Equal(t, "ewa@example.com", addr)

	_, ok = cache.EmailFor(ctx, "Nieznany Handlowiec")
	assert.False(t, ok)
}

func TestSpreadsheetLoadReadsRowsWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handlowcy.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Jan Kowalski", "Mazowsze", "jan@example.com"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{" Ewa Nowak ", "Pomorze"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"", "Śląsk", "pusty@example.com"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	entries, err := Spreadsheet{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "Jan Kowalski", Market: "Mazowsze", Email: "jan@example.com"},
		{Name: "Ewa Nowak", Market: "Pomorze"},
	}, entries)

	_, err = Spreadsheet{Path: path, Sheet: "Brak"}.Load(context.Background())
	assert.Error(t, err)
}

func TestReadWorkbookFromUpload(t *testing.T) {
	f := excelize.NewFile()
	idx, err := f.NewSheet("Handlowcy")
	require.NoError(t, err)
	f.SetActiveSheet(idx)
	require.NoError(t, f.SetSheetRow("Handlowcy", "A1", &[]any{"Anna Zielińska", "Podlasie", "anna@example.com"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := ReadWorkbook(bytes.NewReader(buf.Bytes()), "Handlowcy")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "Anna Zielińska", Market: "Podlasie", Email: "anna@example.com"}}, entries)

	_, err = ReadWorkbook(bytes.NewReader([]byte("not a workbook")), "")
	assert.Error(t, err)
}

func TestWatchStopsWithContext(t *testing.T) {
	cache, err := NewCache(&stubSource{}, nil, testLogger())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cache.Watch(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
