// Package comments manages the discussion thread attached to each query.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/cablequotes-backend/pkg/auth"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const contentMaxLen = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CommentDTO is the transport shape of a comment.
type CommentDTO struct {
	ID       uuid.UUID `json:"id"`
	QueryID  uuid.UUID `json:"query_id"`
	Content  string    `json:"content"`
	Author   string    `json:"author"`
	PostedAt time.Time `json:"date_posted"`
	IsRead   bool      `json:"is_read"`
}

// AddInput is the body of a new comment.
type AddInput struct {
	Content string `json:"content" validate:"required"`
}

// Service exposes comment operations.
type Service interface {
	List(ctx context.Context, queryID uuid.UUID) ([]CommentDTO, error)
	Add(ctx context.Context, actor auth.Actor, queryID uuid.UUID, input AddInput) (*CommentDTO, error)
	MarkAllRead(ctx context.Context, queryID uuid.UUID) (int64, error)
	SetRead(ctx context.Context, queryID uuid.UUID, read bool) (int64, error)
	SetCommentRead(ctx context.Context, queryID, commentID uuid.UUID, read bool) (*CommentDTO, error)
}

type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("comment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = timeutil.Now
	}
	return &service{repo: params.Repo, tx: params.Tx, logg: params.Logger, now: now}, nil
}

func (s *service) List(ctx context.Context, queryID uuid.UUID) ([]CommentDTO, error) {
	if err := s.ensureQuery(ctx, s.repo, queryID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForQuery(ctx, queryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	out := make([]CommentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Add(ctx context.Context, actor auth.Actor, queryID uuid.UUID, input AddInput) (*CommentDTO, error) {
	content := strings.TrimSpace(input.Content)
	if n := utf8.RuneCountInString(content); n == 0 || n > contentMaxLen {
		return nil, pkgerrors.FieldErrors{
			"content": fmt.Sprintf("must be between 1 and %d characters", contentMaxLen),
		}.Err("invalid comment")
	}
	if strings.TrimSpace(actor.Username) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if err := s.ensureQuery(ctx, s.repo, queryID); err != nil {
		return nil, err
	}

	c := &models.Comment{
		QueryID:  queryID,
		Content:  content,
		Author:   actor.Username,
		PostedAt: timeutil.Wall(s.now()),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "add comment")
	}
	dto := toDTO(c)
	return &dto, nil
}

func (s *service) MarkAllRead(ctx context.Context, queryID uuid.UUID) (int64, error) {
	return s.SetRead(ctx, queryID, true)
}

// SetRead applies the read flag to the whole thread in one transaction.
func (s *service) SetRead(ctx context.Context, queryID uuid.UUID, read bool) (int64, error) {
	var changed int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.ensureQuery(ctx, repo, queryID); err != nil {
			return err
		}
		n, err := repo.SetRead(ctx, queryID, read)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update read state")
		}
		changed = n
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update read state")
	}
	if changed > 0 {
		ctx = s.logg.WithQueryID(ctx, queryID.String())
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"is_read": read, "comments": changed}), "comment read state updated")
	}
	return changed, nil
}

// SetCommentRead sets the read flag of one comment. A comment of another query is not found.
func (s *service) SetCommentRead(ctx context.Context, queryID, commentID uuid.UUID, read bool) (*CommentDTO, error) {
	var out CommentDTO
	changed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := repo.FindInQuery(ctx, queryID, commentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment")
		}
		if c.IsRead != read {
			if err := repo.SetCommentRead(ctx, c.ID, read); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update read state")
			}
			c.IsRead = read
			changed = true
		}
		out = toDTO(c)
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update read state")
	}
	if changed {
		ctx = s.logg.WithQueryID(ctx, queryID.String())
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"is_read": read, "comment_id": commentID.String()}), "comment read state updated")
	}
	return &out, nil
}

func (s *service) ensureQuery(ctx context.Context, repo *Repository, queryID uuid.UUID) error {
	ok, err := repo.QueryExists(ctx, queryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load query")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "query not found")
	}
	return nil
}

func toDTO(c *models.Comment) CommentDTO {
	return CommentDTO{
		ID:       c.ID,
		QueryID:  c.QueryID,
		Content:  c.Content,
		Author:   c.Author,
		PostedAt: timeutil.ToLocal(c.PostedAt),
		IsRead:   c.IsRead,
	}
}
