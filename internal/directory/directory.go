// Package directory keeps the process-wide lookup of markets, salespersons and their
// e-mail addresses.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"gorm.io/gorm"
)

// Entry is one salesperson as listed in the directory spreadsheet.
type Entry struct {
	Name   string
	Market string
	Email  string
}

// Snapshot is an immutable view of the directory.
type Snapshot struct {
	Markets      []string            `json:"markets"`
	Salespersons map[string][]string `json:"salespersons"`
	Emails       map[string]string   `json:"-"`
	RefreshedAt  time.Time           `json:"refreshed_at"`
}

// SalespersonsFor lists the salespersons of a market.
func (s Snapshot) SalespersonsFor(market string) []string {
	names := s.Salespersons[market]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Email returns the address recorded for a salesperson.
func (s Snapshot) Email(name string) (string, bool) {
	addr, ok := s.Emails[name]
	return addr, ok && addr != ""
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Markets:      []string{},
		Salespersons: map[string][]string{},
		Emails:       map[string]string{},
	}
}

// Source loads directory rows.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

type userSource interface {
	List(ctx context.Context) ([]models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Cache holds the current snapshot. Refresh swaps it wholesale; readers never observe a
// partially built snapshot.
type Cache struct {
	sheet   Source
	users   userSource
	logg    *logger.Logger
	now     func() time.Time
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

// NewCache builds an empty cache. Call Refresh to populate it.
func NewCache(sheet Source, users userSource, logg *logger.Logger) (*Cache, error) {
	if sheet == nil {
		return nil, fmt.Errorf("directory source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Cache{sheet: sheet, users: users, logg: logg, now: timeutil.Now}, nil
}

// Get returns the current snapshot, or an empty one before the first successful refresh.
func (c *Cache) Get() Snapshot {
	if snap := c.current.Load(); snap != nil {
		return *snap
	}
	return *emptySnapshot()
}

// Refresh reloads the spreadsheet and stored users. A spreadsheet failure keeps the
// previous snapshot; a user listing failure is logged and the sheet alone is used.
func (c *Cache) Refresh(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.sheet.Load(ctx)
	if err != nil {
		return c.Get(), fmt.Errorf("load directory: %w", err)
	}

	var stored []models.User
	if c.users != nil {
		if stored, err = c.users.List(ctx); err != nil {
			c.logg.Error(ctx, "list users for directory", err)
			stored = nil
		}
	}

	snap := build(entries, stored)
	snap.RefreshedAt = c.now()
	c.current.Store(snap)

	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"markets":      len(snap.Markets),
		"salespersons": len(snap.Emails),
	}), "directory refreshed")
	return *snap, nil
}

// EmailFor resolves a salesperson address from the snapshot, falling back to the stored
// user with that username.
func (c *Cache) EmailFor(ctx context.Context, name string) (string, bool) {
	if addr, ok := c.Get().Email(name); ok {
		return addr, true
	}
	if c.users == nil {
		return "", false
	}
	user, err := c.users.FindByUsername(ctx, name)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Error(ctx, "lookup salesperson e-mail", err)
		}
		return "", false
	}
	if user.Email == nil || *user.Email == "" {
		return "", false
	}
	return *user.Email, true
}

// Watch refreshes the cache every interval until ctx is done.
func (c *Cache) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Refresh(ctx); err != nil {
				c.logg.Error(ctx, "directory refresh failed", err)
			}
		}
	}
}

func build(entries []Entry, stored []models.User) *Snapshot {
	snap := emptySnapshot()
	markets := map[string]struct{}{}
	add := func(market, name string) {
		if market == "" || name == "" {
			return
		}
		markets[market] = struct{}{}
		for _, existing := range snap.Salespersons[market] {
			if existing == name {
				return
			}
		}
		snap.Salespersons[market] = append(snap.Salespersons[market], name)
	}

	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		market := strings.TrimSpace(e.Market)
		add(market, name)
		if name != "" {
			snap.Emails[name] = strings.TrimSpace(e.Email)
		}
	}
	for _, u := range stored {
		if u.Market != nil {
			add(strings.TrimSpace(*u.Market), u.Username)
		}
		if u.Email != nil && *u.Email != "" {
			snap.Emails[u.Username] = *u.Email
		}
	}

	for m := range markets {
		snap.Markets = append(snap.Markets, m)
	}
	sort.Strings(snap.Markets)
	return snap
}
