// Package responses records priced answers to query cables.
package responses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/cablequotes-backend/internal/notifications"
	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/internal/schedule"
	"github.com/angelmondragon/cablequotes-backend/pkg/auth"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type responseNotifier interface {
	ResponsesRecorded(ctx context.Context, q *models.Query, pairs []notifications.ResponsePair) error
}

// Service records responses.
type Service interface {
	Pending(ctx context.Context, actor auth.Actor, queryID uuid.UUID) ([]queries.CableDTO, error)
	Record(ctx context.Context, actor auth.Actor, queryID uuid.UUID, input RecordInput) (*queries.FeedItem, error)
}

type ServiceParams struct {
	Repo     *Repository
	Queries  *queries.Repository
	Tx       txRunner
	Notifier responseNotifier
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	queries  *queries.Repository
	tx       txRunner
	notifier responseNotifier
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil || params.Queries == nil {
		return nil, fmt.Errorf("repositories required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = timeutil.Now
	}
	return &service{
		repo:     params.Repo,
		queries:  params.Queries,
		tx:       params.Tx,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Pending lists the cables of a query that still await a response.
func (s *service) Pending(ctx context.Context, actor auth.Actor, queryID uuid.UUID) ([]queries.CableDTO, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can respond to queries")
	}
	q, err := s.queries.FindWithRelations(ctx, queryID)
	if err != nil {
		return nil, mapReadErr(err)
	}
	view := *q
	view.Cables = unanswered(q.Cables)
	dto, err := queries.ToDTO(&view)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render cables")
	}
	return dto.Cables, nil
}

func (s *service) Record(ctx context.Context, actor auth.Actor, queryID uuid.UUID, input RecordInput) (*queries.FeedItem, error) {
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can respond to queries")
	}
	now := s.now()
	calc := schedule.NewCalculator(func() time.Time { return now })

	current, err := s.queries.FindWithRelations(ctx, queryID)
	if err != nil {
		return nil, mapReadErr(err)
	}
	pending := unanswered(current.Cables)
	if len(pending) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "query is already fully responded")
	}
	rows, err := build(pending, input.Answers, calc)
	if err != nil {
		return nil, err
	}
	respondedAt := timeutil.Wall(now)
	for i := range rows {
		rows[i].RespondedAt = respondedAt
	}

	var (
		q     *models.Query
		pairs []notifications.ResponsePair
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		q, err = s.queries.WithTx(tx).FindWithRelations(ctx, queryID)
		if err != nil {
			return mapReadErr(err)
		}
		if !samePending(unanswered(q.Cables), rows) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "query cables changed while recording responses")
		}
		if err := s.repo.WithTx(tx).InsertBatch(ctx, rows); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "a cable was answered concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert responses")
		}

		pairs = attach(q, rows)
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record responses")
	}

	ctx = s.logg.WithQueryID(ctx, q.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "responses", len(pairs)), "responses recorded")
	if err := s.notifier.ResponsesRecorded(ctx, q, pairs); err != nil {
		s.logg.Error(ctx, "response notification failed", err)
	}

	item, err := queries.BuildItem(q, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render query")
	}
	return &item, nil
}

// attach hangs the new rows on their cables and returns them paired in cable order.
func attach(q *models.Query, rows []models.CableResponse) []notifications.ResponsePair {
	byCable := make(map[uuid.UUID]models.CableResponse, len(rows))
	for _, r := range rows {
		byCable[r.CableID] = r
	}
	pairs := make([]notifications.ResponsePair, 0, len(rows))
	for i := range q.Cables {
		r, ok := byCable[q.Cables[i].ID]
		if !ok {
			continue
		}
		q.Cables[i].Response = &r
		pairs = append(pairs, notifications.ResponsePair{Cable: q.Cables[i], Response: r})
	}
	return pairs
}

// samePending reports whether rows answer exactly the pending cables.
func samePending(pending []models.Cable, rows []models.CableResponse) bool {
	if len(pending) != len(rows) {
		return false
	}
	ids := make(map[uuid.UUID]struct{}, len(pending))
	for _, c := range pending {
		ids[c.ID] = struct{}{}
	}
	for _, r := range rows {
		if _, ok := ids[r.CableID]; !ok {
			return false
		}
	}
	return true
}

func unanswered(cables []models.Cable) []models.Cable {
	out := make([]models.Cable, 0, len(cables))
	for _, c := range cables {
		if c.Response == nil {
			out = append(out, c)
		}
	}
	return out
}

func mapReadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "query not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load query")
}
