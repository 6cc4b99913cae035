package queries

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

// FeedWindow is how far back the live feed shows answered queries.
const FeedWindow = 7 * 24 * time.Hour

type feedSource interface {
	List(ctx context.Context, filter ListFilter) ([]models.Query, error)
}

// FeedBuilder assembles the live dashboard listing.
type FeedBuilder struct {
	source feedSource
	logg   *logger.Logger
	window time.Duration
}

// NewFeedBuilder wires a feed builder over a query source.
func NewFeedBuilder(source feedSource, logg *logger.Logger) (*FeedBuilder, error) {
	if source == nil {
		return nil, fmt.Errorf("query source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &FeedBuilder{source: source, logg: logg, window: FeedWindow}, nil
}

// Build returns the feed for status as of now. Unanswered queries are always shown
// whatever their age; answered ones only while inside the window.
func (b *FeedBuilder) Build(ctx context.Context, status enums.FeedStatus, now time.Time) ([]FeedItem, error) {
	cutoff := now.Add(-b.window)

	recent, err := b.source.List(ctx, ListFilter{SubmittedFrom: &cutoff})
	if err != nil {
		return nil, fmt.Errorf("list recent queries: %w", err)
	}

	var older []models.Query
	if status != enums.FeedStatusAnswered {
		older, err = b.source.List(ctx, ListFilter{SubmittedBefore: &cutoff})
		if err != nil {
			return nil, fmt.Errorf("list older queries: %w", err)
		}
	}

	selected := SelectFeed(recent, older, status)
	return b.items(ctx, selected, now), nil
}

// items derives listing rows, skipping and logging queries that cannot be rendered.
func (b *FeedBuilder) items(ctx context.Context, qs []models.Query, now time.Time) []FeedItem {
	out := make([]FeedItem, 0, len(qs))
	for i := range qs {
		item, err := BuildItem(&qs[i], now)
		if err != nil {
			b.logg.Error(b.logg.WithQueryID(ctx, qs[i].ID.String()), "skipping query in listing", err)
			continue
		}
		out = append(out, item)
	}
	return out
}

// SelectFeed applies the status rules to the recent and older partitions and orders the
// result newest first.
func SelectFeed(recent, older []models.Query, status enums.FeedStatus) []models.Query {
	out := make([]models.Query, 0, len(recent)+len(older))
	switch status {
	case enums.FeedStatusAnswered:
		for _, q := range recent {
			if IsFullyResponded(&q) {
				out = append(out, q)
			}
		}
	case enums.FeedStatusPending:
		for _, q := range recent {
			if !IsFullyResponded(&q) {
				out = append(out, q)
			}
		}
		out = appendPending(out, older)
	default:
		out = append(out, recent...)
		out = appendPending(out, older)
	}
	SortNewestFirst(out)
	return out
}

func appendPending(dst, src []models.Query) []models.Query {
	for _, q := range src {
		if !IsFullyResponded(&q) {
			dst = append(dst, q)
		}
	}
	return dst
}

// SortNewestFirst orders by submission time descending; ties keep their input order.
func SortNewestFirst(qs []models.Query) {
	sort.SliceStable(qs, func(i, j int) bool {
		return timeutil.ToLocal(qs[i].SubmittedAt).After(timeutil.ToLocal(qs[j].SubmittedAt))
	})
}
