// Package accounts manages user records outside of the point ledger:
// bootstrap accounts, role and cleaner assignment, and API keys.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/access"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

type Service struct {
	uow repository.UnitOfWork
}

func NewService(uow repository.UnitOfWork) *Service {
	return &Service{uow: uow}
}

// RoleChange is an admin edit of a user's permissions. Nil fields are kept.
type RoleChange struct {
	Role      *string `json:"role"`
	IsCleaner *bool   `json:"is_cleaner"`
}

// Create registers an account with a hashed password. It is used by the
// bootstrap CLI and therefore takes no principal.
func (s *Service) Create(ctx context.Context, name, email, password, role string) (*models.User, error) {
	u, err := models.CreateUser(strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)), password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if role != "" {
		if !validRole(role) {
			return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidInput, role)
		}
		u.Role = role
	}

	err = s.uow.Do(ctx, func(repos *repository.Repositories) error {
		if _, err := repos.User.GetByEmail(u.Email); err == nil {
			return fmt.Errorf("%w: email %s already registered", apperr.ErrInvalidInput, u.Email)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return repos.User.Create(u)
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Accounts] Created %s account %d", u.Role, u.ID)
	return u, nil
}

// Profile returns the principal's own account.
func (s *Service) Profile(ctx context.Context, p access.Principal) (*models.User, error) {
	if p.IsAnonymous() {
		return nil, fmt.Errorf("%w: login required", apperr.ErrForbidden)
	}
	u, err := s.uow.Repos().User.GetByID(p.UserID)
	if err != nil {
		return nil, apperr.Lookup(err, "user", p.UserID)
	}
	return u, nil
}

// List pages through all accounts for administrators.
func (s *Service) List(ctx context.Context, p access.Principal, offset, limit int) ([]models.User, int64, error) {
	if err := access.Allow(p, access.ActionManageUsers); err != nil {
		return nil, 0, err
	}
	repo := s.uow.Repos().User
	users, err := repo.List(offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.Count()
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ChangeRole updates role and cleaner flag. Administrators cannot demote
// themselves so that at least the acting admin remains.
func (s *Service) ChangeRole(ctx context.Context, p access.Principal, userID uint, ch RoleChange) (*models.User, error) {
	if err := access.Allow(p, access.ActionManageUsers); err != nil {
		return nil, err
	}
	if ch.Role != nil && !validRole(*ch.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidInput, *ch.Role)
	}
	if ch.Role != nil && userID == p.UserID && *ch.Role != models.ROLE_ADMIN {
		return nil, fmt.Errorf("%w: administrators cannot demote themselves", apperr.ErrInvalidInput)
	}

	var out *models.User
	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		u, err := repos.User.GetForUpdate(userID)
		if err != nil {
			return apperr.Lookup(err, "user", userID)
		}
		if ch.Role != nil {
			u.Role = *ch.Role
		}
		if ch.IsCleaner != nil {
			u.IsCleaner = *ch.IsCleaner
		}
		if err := repos.User.Update(u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Accounts] User %d set role=%s cleaner=%t (by %d)", out.ID, out.Role, out.IsCleaner, p.UserID)
	return out, nil
}

// RotateAPIKey issues a new key for the principal and returns it once.
func (s *Service) RotateAPIKey(ctx context.Context, p access.Principal) (string, error) {
	if p.IsAnonymous() {
		return "", fmt.Errorf("%w: login required", apperr.ErrForbidden)
	}
	var raw string
	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		u, err := repos.User.GetForUpdate(p.UserID)
		if err != nil {
			return apperr.Lookup(err, "user", p.UserID)
		}
		if raw, err = u.IssueAPIKey(); err != nil {
			return err
		}
		return repos.User.Update(u)
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// IssueAPIKey sets a key on userID without a principal; bootstrap only.
func (s *Service) IssueAPIKey(ctx context.Context, userID uint) (string, error) {
	return s.RotateAPIKey(ctx, access.Principal{UserID: userID})
}

func validRole(role string) bool {
	switch role {
	case models.ROLE_CITIZEN, models.ROLE_MODERATOR, models.ROLE_ADMIN:
		return true
	}
	return false
}
