package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cablequotes-backend/pkg/auth"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	archiveRecentEdge = 7 * 24 * time.Hour
	archiveWeekSpan   = 14 * 24 * time.Hour
	archiveMonthSpan  = 31 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type submissionNotifier interface {
	QuerySubmitted(ctx context.Context, q *models.Query) error
}

// Service exposes query operations.
type Service interface {
	Feed(ctx context.Context, status enums.FeedStatus) ([]FeedItem, error)
	Archive(ctx context.Context, filter ArchiveFilter) ([]FeedItem, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
	Get(ctx context.Context, id uuid.UUID) (*FeedItem, error)
	Create(ctx context.Context, actor auth.Actor, input QueryInput) (*QueryDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input QueryInput) (*QueryDTO, error)
	SetSaleStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.SaleStatus) error
	Duplicate(ctx context.Context, actor auth.Actor, id uuid.UUID) (*QueryDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (DeleteResult, error)
}

// ArchiveFilter selects archived queries.
type ArchiveFilter struct {
	Timeframe enums.ArchiveTimeframe
	Name      string
	Market    string
	Client    string
	CableType string
	Sale      *enums.SaleStatus
}

// ServiceParams groups the service collaborators.
type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Users    userLookup
	Notifier submissionNotifier
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	tx       txRunner
	users    userLookup
	notifier submissionNotifier
	logg     *logger.Logger
	feed     *FeedBuilder
	now      func() time.Time
}

// NewService builds the query service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("query repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	feed, err := NewFeedBuilder(params.Repo, params.Logger)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now == nil {
		now = timeutil.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		users:    params.Users,
		notifier: params.Notifier,
		logg:     params.Logger,
		feed:     feed,
		now:      now,
	}, nil
}

func (s *service) Feed(ctx context.Context, status enums.FeedStatus) ([]FeedItem, error) {
	items, err := s.feed.Build(ctx, status, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load query feed")
	}
	return items, nil
}

func (s *service) Archive(ctx context.Context, filter ArchiveFilter) ([]FeedItem, error) {
	now := s.now()
	edge := now.Add(-archiveRecentEdge)
	lf := ListFilter{
		SubmittedUntil: &edge,
		Name:           filter.Name,
		Market:         filter.Market,
		Client:         filter.Client,
		CableType:      filter.CableType,
		Sale:           filter.Sale,
	}
	switch filter.Timeframe {
	case enums.ArchiveTimeframeWeek, "":
		after := now.Add(-archiveWeekSpan)
		lf.SubmittedAfter = &after
	case enums.ArchiveTimeframeMonth:
		after := now.Add(-archiveMonthSpan)
		lf.SubmittedAfter = &after
	}

	qs, err := s.repo.List(ctx, lf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load archive")
	}
	return s.feed.items(ctx, qs, now), nil
}

func (s *service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	names, err := s.repo.DistinctNames(ctx)
	if err != nil {
		return FilterOptions{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load names")
	}
	markets, err := s.repo.DistinctMarkets(ctx)
	if err != nil {
		return FilterOptions{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load markets")
	}
	return FilterOptions{Names: names, Markets: markets}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*FeedItem, error) {
	q, err := s.repo.FindWithRelations(ctx, id)
	if err != nil {
		return nil, mapReadErr(err, "load query")
	}
	item, err := BuildItem(q, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render query")
	}
	return &item, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input QueryInput) (*QueryDTO, error) {
	now := s.now()
	preferred, err := input.validate(timeutil.StartOfDay(now))
	if err != nil {
		return nil, err
	}
	name, market, err := s.submitter(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	owner := actor.UserID
	q := &models.Query{
		OwnerID:       &owner,
		Name:          name,
		Market:        market,
		Client:        strings.TrimSpace(input.Client),
		Investment:    trimmedOrNil(input.Investment),
		Packaging:     trimmedOrNil(input.Packaging),
		PreferredDate: models.NewDate(preferred),
		Notes:         trimmedOrNil(input.Comments),
		SubmittedAt:   timeutil.Wall(now),
		Cables:        buildCables(input.Cables),
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, q)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create query")
	}

	s.notifySubmitted(ctx, q)
	dto, err := ToDTO(q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render query")
	}
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input QueryInput) (*QueryDTO, error) {
	preferred, err := input.validate(timeutil.StartOfDay(s.now()))
	if err != nil {
		return nil, err
	}

	var updated *models.Query
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		q, err := repo.FindWithRelations(ctx, id)
		if err != nil {
			return mapReadErr(err, "load query")
		}
		if !canModify(actor, q) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the submitter can edit this query")
		}
		if IsFullyResponded(q) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "answered queries cannot be edited")
		}

		q.Client = strings.TrimSpace(input.Client)
		q.Investment = trimmedOrNil(input.Investment)
		q.Packaging = trimmedOrNil(input.Packaging)
		q.PreferredDate = models.NewDate(preferred)
		q.Notes = trimmedOrNil(input.Comments)
		if err := repo.UpdateHeader(ctx, q); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update query")
		}
		cables := buildCables(input.Cables)
		if err := repo.ReplaceCables(ctx, q.ID, cables); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "replace cables")
		}
		q.Cables = cables
		updated = q
		return nil
	})
	if err != nil {
		return nil, asDomainErr(err, "update query")
	}

	dto, err := ToDTO(updated)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render query")
	}
	return &dto, nil
}

func (s *service) SetSaleStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.SaleStatus) error {
	q, err := s.repo.FindHeader(ctx, id)
	if err != nil {
		return mapReadErr(err, "load query")
	}
	if !canModify(actor, q) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the submitter can change the sale status")
	}
	if err := s.repo.SetSaleStatus(ctx, id, status.Flag()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "query not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update sale status")
	}
	return nil
}

func (s *service) Duplicate(ctx context.Context, actor auth.Actor, id uuid.UUID) (*QueryDTO, error) {
	src, err := s.repo.FindWithRelations(ctx, id)
	if err != nil {
		return nil, mapReadErr(err, "load query")
	}

	owner := actor.UserID
	q := &models.Query{
		OwnerID:       &owner,
		Name:          actor.Username,
		Market:        src.Market,
		Client:        src.Client,
		Investment:    src.Investment,
		Packaging:     src.Packaging,
		PreferredDate: src.PreferredDate,
		Notes:         src.Notes,
		SubmittedAt:   timeutil.Wall(s.now()),
		Cables:        copyCables(src.Cables),
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, q)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "duplicate query")
	}

	s.notifySubmitted(ctx, q)
	dto, err := ToDTO(q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render query")
	}
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (DeleteResult, error) {
	if !actor.CanDelete {
		return DeleteResult{}, pkgerrors.New(pkgerrors.CodeForbidden, "missing delete permission")
	}
	var result DeleteResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.repo.WithTx(tx).Delete(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DeleteResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "query not found")
		}
		return DeleteResult{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete query")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"query_id":  id.String(),
		"cables":    result.Cables,
		"responses": result.Responses,
		"comments":  result.Comments,
	}), "query deleted")
	return result, nil
}

// submitter resolves the name and market a new query is filed under.
func (s *service) submitter(ctx context.Context, actor auth.Actor, input QueryInput) (string, string, error) {
	if actor.IsAdmin && strings.TrimSpace(input.Name) != "" {
		market := strings.TrimSpace(input.Market)
		if market == "" {
			return "", "", pkgerrors.FieldErrors{"market": "is required"}.Err("invalid query")
		}
		return strings.TrimSpace(input.Name), market, nil
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists")
		}
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	market := ""
	if user.Market != nil {
		market = strings.TrimSpace(*user.Market)
	}
	if market == "" {
		market = strings.TrimSpace(input.Market)
	}
	if market == "" {
		return "", "", pkgerrors.FieldErrors{"market": "is required"}.Err("invalid query")
	}
	return user.Username, market, nil
}

func (s *service) notifySubmitted(ctx context.Context, q *models.Query) {
	if err := s.notifier.QuerySubmitted(ctx, q); err != nil {
		s.logg.Error(s.logg.WithQueryID(ctx, q.ID.String()), "new query notification failed", err)
	}
}

func canModify(actor auth.Actor, q *models.Query) bool {
	return actor.IsAdmin || actor.Owns(q.OwnerID) || (q.Name != "" && q.Name == actor.Username)
}

func mapReadErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "query not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func asDomainErr(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, msg)
}
