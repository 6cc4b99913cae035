package users

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/security"
	"gorm.io/gorm"
)

// ImportEntry is one salesperson row from the directory spreadsheet.
type ImportEntry struct {
	Name   string
	Market string
	Email  string
}

// SkippedEntry explains why an import row produced no account.
type SkippedEntry struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Created []string       `json:"created"`
	Skipped []SkippedEntry `json:"skipped"`
}

// Import creates an account for every salesperson not yet registered. The username is the
// full name and the initial password is derived from it.
func (s *service) Import(ctx context.Context, entries []ImportEntry) (*ImportResult, error) {
	result := &ImportResult{Created: []string{}, Skipped: []SkippedEntry{}}
	seen := map[string]struct{}{}

	for _, e := range entries {
		name := strings.Join(strings.Fields(e.Name), " ")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			result.Skipped = append(result.Skipped, SkippedEntry{Name: name, Reason: "duplicate row"})
			continue
		}
		seen[name] = struct{}{}

		_, err := s.repo.FindByUsername(ctx, name)
		if err == nil {
			result.Skipped = append(result.Skipped, SkippedEntry{Name: name, Reason: "already exists"})
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}

		password, ok := security.InitialPassword(name)
		if !ok {
			result.Skipped = append(result.Skipped, SkippedEntry{Name: name, Reason: "name needs first and last name"})
			continue
		}
		hash, err := security.HashPassword(password, s.password)
		if err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}

		email := e.Email
		market := e.Market
		user := &models.User{
			Username:     name,
			Email:        normalizeEmail(&email),
			Market:       trimmed(&market),
			PasswordHash: hash,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				result.Skipped = append(result.Skipped, SkippedEntry{Name: name, Reason: "e-mail already used"})
				continue
			}
			return result, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create user")
		}
		result.Created = append(result.Created, name)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"created": len(result.Created),
		"skipped": len(result.Skipped),
	}), "user import complete")
	return result, nil
}

// SeedAdmins creates the configured administrator accounts that do not exist yet and
// returns the usernames it created.
func (s *service) SeedAdmins(ctx context.Context, seed config.SeedConfig) ([]string, error) {
	created := []string{}
	if len(seed.AdminUsernames) == 0 {
		return created, nil
	}
	if seed.AdminPassword == "" {
		return created, pkgerrors.New(pkgerrors.CodeValidation, "admin seed password is not configured")
	}
	for _, raw := range seed.AdminUsernames {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		_, err := s.repo.FindByUsername(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup admin")
		}
		hash, err := security.HashPassword(seed.AdminPassword, s.password)
		if err != nil {
			return created, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		if err := s.repo.Create(ctx, &models.User{
			Username:     name,
			PasswordHash: hash,
			IsAdmin:      true,
			CanDelete:    true,
		}); err != nil {
			return created, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create admin")
		}
		created = append(created, name)
	}
	return created, nil
}
