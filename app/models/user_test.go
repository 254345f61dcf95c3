package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIssueAPIKey(t *testing.T) {
	u := &User{ID: 1}

	key, err := u.IssueAPIKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	assert.True(t, u.HasActiveAPIKey())
	assert.Equal(t, HashAPIKey(key), u.APIKeyHash)
	assert.Equal(t, key[:16], u.APIKeyPrefix)
	assert.NotNil(t, u.APIKeyCreatedAt)
	assert.Contains(t, key, apiKeyPrefix)
}

func TestUserRevokeAPIKey(t *testing.T) {
	u := &User{ID: 99}
	_, err := u.IssueAPIKey()
	require.NoError(t, err)

	u.RevokeAPIKey()

	assert.False(t, u.HasActiveAPIKey())
	assert.Equal(t, "", u.APIKeyPrefix)
	assert.Nil(t, u.APIKeyCreatedAt)
}

func TestHashAPIKeyTrimsWhitespace(t *testing.T) {
	assert.Equal(t, HashAPIKey("abc"), HashAPIKey("  abc \n"))
	assert.Len(t, HashAPIKey("abc"), 64)
}

func TestCreateUserDefaults(t *testing.T) {
	u, err := CreateUser("aliya", "aliya@example.kz", "secret123")
	require.NoError(t, err)

	assert.Equal(t, ROLE_CITIZEN, u.Role)
	assert.Equal(t, 1, u.Level)
	assert.False(t, u.IsCleaner)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("al", "not-an-email", "123")
	assert.Error(t, err)
}

func TestUserIsStaff(t *testing.T) {
	assert.True(t, (&User{Role: ROLE_ADMIN}).IsStaff())
	assert.True(t, (&User{Role: ROLE_MODERATOR}).IsStaff())
	assert.False(t, (&User{Role: ROLE_CITIZEN, IsCleaner: true}).IsStaff())
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points int
		tier   int
		name   string
	}{
		{0, 1, LevelNewcomer},
		{49, 1, LevelNewcomer},
		{50, 2, LevelActivist},
		{199, 2, LevelActivist},
		{200, 3, LevelEcoPatriot},
		{499, 3, LevelEcoPatriot},
		{500, 4, LevelCityHero},
		{10000, 4, LevelCityHero},
	}

	for _, tt := range tests {
		lvl := LevelFor(tt.points)
		assert.Equal(t, tt.tier, lvl.Tier, "points=%d", tt.points)
		assert.Equal(t, tt.name, lvl.Name, "points=%d", tt.points)
	}
}
