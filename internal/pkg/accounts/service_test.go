package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository/repositorytest"
	"github.com/ManuelReschke/TazaQala/internal/pkg/access"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool     { return &b }

func TestCreate(t *testing.T) {
	store := repositorytest.NewStore()
	svc := NewService(store)

	u, err := svc.Create(context.Background(), "Aigerim", " Admin@Example.com ", "secret123", models.ROLE_ADMIN)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)
	assert.Equal(t, models.ROLE_ADMIN, u.Role)
	assert.True(t, u.CheckPassword("secret123"))
	assert.Equal(t, 1, u.Level)

	_, err = svc.Create(context.Background(), "Other", "admin@example.com", "secret123", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Create(context.Background(), "Other", "other@example.com", "secret123", "janitor")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Create(context.Background(), "x", "bad", "1", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestChangeRole(t *testing.T) {
	store := repositorytest.NewStore()
	svc := NewService(store)
	adminID := store.AddUser(models.User{Name: "admin", Role: models.ROLE_ADMIN})
	admin := access.Principal{UserID: adminID, Role: models.ROLE_ADMIN}
	userID := store.AddUser(models.User{Name: "citizen", Role: models.ROLE_CITIZEN})

	u, err := svc.ChangeRole(context.Background(), admin, userID, RoleChange{IsCleaner: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, u.IsCleaner)
	assert.Equal(t, models.ROLE_CITIZEN, u.Role)

	_, err = svc.ChangeRole(context.Background(), admin, userID, RoleChange{Role: strPtr(models.ROLE_MODERATOR)})
	require.NoError(t, err)
	assert.Equal(t, models.ROLE_MODERATOR, store.User(userID).Role)
	assert.True(t, store.User(userID).IsCleaner)

	citizen := access.Principal{UserID: userID, Role: models.ROLE_MODERATOR}
	_, err = svc.ChangeRole(context.Background(), citizen, adminID, RoleChange{Role: strPtr(models.ROLE_CITIZEN)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.ChangeRole(context.Background(), admin, adminID, RoleChange{Role: strPtr(models.ROLE_CITIZEN)})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.ChangeRole(context.Background(), admin, 999, RoleChange{IsCleaner: boolPtr(false)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRotateAPIKey(t *testing.T) {
	store := repositorytest.NewStore()
	svc := NewService(store)
	id := store.AddUser(models.User{Name: "citizen", Role: models.ROLE_CITIZEN})

	_, err := svc.RotateAPIKey(context.Background(), access.Anonymous)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	raw, err := svc.RotateAPIKey(context.Background(), access.Principal{UserID: id})
	require.NoError(t, err)

	found, err := store.Repos().User.GetByAPIKeyHash(models.HashAPIKey(raw))
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)

	again, err := svc.IssueAPIKey(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, raw, again)
	_, err = store.Repos().User.GetByAPIKeyHash(models.HashAPIKey(raw))
	assert.Error(t, err, "old key no longer matches")
}

func TestListRequiresAdmin(t *testing.T) {
	store := repositorytest.NewStore()
	svc := NewService(store)
	adminID := store.AddUser(models.User{Name: "admin", Role: models.ROLE_ADMIN})
	store.AddUser(models.User{Name: "citizen", Role: models.ROLE_CITIZEN})

	users, total, err := svc.List(context.Background(), access.Principal{UserID: adminID, Role: models.ROLE_ADMIN}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.EqualValues(t, 2, total)

	_, _, err = svc.List(context.Background(), access.Anonymous, 0, 10)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
