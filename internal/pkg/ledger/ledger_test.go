package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

func TestAddPointsRecomputesLevel(t *testing.T) {
	u := &models.User{TotalPoints: 45, PointsBalance: 45, Level: 1}

	AddPoints(u, 5)

	assert.Equal(t, 50, u.TotalPoints)
	assert.Equal(t, 50, u.PointsBalance)
	assert.Equal(t, 2, u.Level)
}

func TestAddPointsPenaltyFloorsAtZero(t *testing.T) {
	u := &models.User{TotalPoints: 4, PointsBalance: 2}

	AddPoints(u, -10)

	assert.Equal(t, 0, u.TotalPoints)
	assert.Equal(t, 0, u.PointsBalance)
	assert.Equal(t, 1, u.Level)
}

func TestAddPointsPenaltyAfterSpend(t *testing.T) {
	u := &models.User{TotalPoints: 200, PointsBalance: 5, PointsSpent: 195}

	AddPoints(u, -10)

	assert.Equal(t, 190, u.TotalPoints)
	assert.Equal(t, 0, u.PointsBalance)
	assert.Equal(t, 2, u.Level)
}

func TestSpendPoints(t *testing.T) {
	u := &models.User{TotalPoints: 120, PointsBalance: 120}

	require.NoError(t, SpendPoints(u, 100))

	assert.Equal(t, 20, u.PointsBalance)
	assert.Equal(t, 100, u.PointsSpent)
	assert.Equal(t, 120, u.TotalPoints)
	assert.Equal(t, 2, u.Level)
}

func TestSpendPointsExactBalance(t *testing.T) {
	u := &models.User{TotalPoints: 30, PointsBalance: 30}

	require.NoError(t, SpendPoints(u, 30))
	assert.Equal(t, 0, u.PointsBalance)
}

func TestSpendPointsInsufficient(t *testing.T) {
	u := &models.User{TotalPoints: 30, PointsBalance: 30}

	err := SpendPoints(u, 31)

	assert.ErrorIs(t, err, apperr.ErrInsufficientBalance)
	assert.Equal(t, 30, u.PointsBalance)
	assert.Equal(t, 0, u.PointsSpent)
}

func TestSpendPointsNegative(t *testing.T) {
	u := &models.User{PointsBalance: 30}
	assert.ErrorIs(t, SpendPoints(u, -1), apperr.ErrInvalidInput)
}

func TestRefundPoints(t *testing.T) {
	u := &models.User{TotalPoints: 100, PointsBalance: 0, PointsSpent: 100}

	RefundPoints(u, 60)

	assert.Equal(t, 60, u.PointsBalance)
	assert.Equal(t, 40, u.PointsSpent)
	assert.Equal(t, 100, u.TotalPoints)
}
