package users

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/angelmondragon/cablequotes-backend/pkg/auth"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const tempPasswordLength = 10

// Service manages staff accounts.
type Service interface {
	List(ctx context.Context) ([]UserDTO, error)
	Create(ctx context.Context, input CreateUserInput) (*CreateResult, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	Import(ctx context.Context, entries []ImportEntry) (*ImportResult, error)
	SeedAdmins(ctx context.Context, seed config.SeedConfig) ([]string, error)
}

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceParams wires the users service.
type ServiceParams struct {
	Repo      userStore
	Password  config.PasswordConfig
	Protected []string
	Logger    *logger.Logger
}

type service struct {
	repo      userStore
	password  config.PasswordConfig
	protected []string
	logg      *logger.Logger
}

// NewService builds the users service. Usernames in Protected cannot be deleted.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      p.Repo,
		password:  p.Password,
		protected: p.Protected,
		logg:      p.Logger,
	}, nil
}

func (s *service) List(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateUserInput) (*CreateResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.FieldErrors{"username": "required"}.Err("invalid user")
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup username")
	}

	password := input.Password
	generated := ""
	if password == "" {
		var err error
		if generated, err = security.GenerateTempPassword(tempPasswordLength); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		password = generated
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        normalizeEmail(input.Email),
		Market:       trimmed(input.Market),
		PasswordHash: hash,
		IsAdmin:      input.IsAdmin,
		CanDelete:    input.CanDelete,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username or email already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create user")
	}
	s.logg.Info(s.logg.WithUsername(ctx, user.Username), "user created")
	return &CreateResult{User: FromModel(user), TemporaryPassword: generated}, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		name := strings.TrimSpace(*input.Username)
		if name == "" {
			return nil, pkgerrors.FieldErrors{"username": "required"}.Err("invalid user")
		}
		user.Username = name
	}
	if input.Email != nil {
		user.Email = normalizeEmail(input.Email)
	}
	if input.Market != nil {
		user.Market = trimmed(input.Market)
	}
	if input.IsAdmin != nil {
		if actor.UserID == user.ID && !*input.IsAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot revoke your own admin rights")
		}
		user.IsAdmin = *input.IsAdmin
	}
	if input.CanDelete != nil {
		user.CanDelete = *input.CanDelete
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := security.HashPassword(*input.Password, s.password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username or email already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update user")
	}
	return FromModel(user), nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if user.ID == actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete your own account")
	}
	if slices.Contains(s.protected, user.Username) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "built-in administrator accounts cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete user")
	}
	s.logg.Info(s.logg.WithUsername(ctx, user.Username), "user deleted")
	return nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func normalizeEmail(email *string) *string {
	v := trimmed(email)
	if v == nil {
		return nil
	}
	lower := strings.ToLower(*v)
	return &lower
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
