// Package ledger applies point mutations to a user record. It never
// persists anything itself; callers save the user inside the same
// transaction that locked it.
package ledger

import (
	"fmt"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

// AddPoints credits delta (a negative delta is a penalty). Both the
// cumulative total and the spendable balance are floored at zero.
func AddPoints(u *models.User, delta int) {
	u.TotalPoints = floor(u.TotalPoints + delta)
	u.PointsBalance = floor(u.PointsBalance + delta)
	u.Level = models.LevelFor(u.TotalPoints).Tier
}

// SpendPoints debits amount from the balance without touching the total.
func SpendPoints(u *models.User, amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative spend %d", apperr.ErrInvalidInput, amount)
	}
	if amount > u.PointsBalance {
		return fmt.Errorf("%w: balance %d, need %d", apperr.ErrInsufficientBalance, u.PointsBalance, amount)
	}
	u.PointsBalance -= amount
	u.PointsSpent += amount
	u.Level = models.LevelFor(u.TotalPoints).Tier
	return nil
}

// RefundPoints reverses a previous spend.
func RefundPoints(u *models.User, amount int) {
	if amount <= 0 {
		return
	}
	u.PointsBalance += amount
	u.PointsSpent = floor(u.PointsSpent - amount)
}

func floor(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
