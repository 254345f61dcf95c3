// Package access decides which principals may perform which actions.
// Every mutating entry point consults Allow before touching data.
package access

import (
	"fmt"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

type Action string

const (
	ActionSubmitReport      Action = "submit_report"
	ActionTakeInWork        Action = "take_in_work"
	ActionRejectReport      Action = "reject_report"
	ActionSoftDelete        Action = "soft_delete"
	ActionSubmitCleanup     Action = "submit_cleanup"
	ActionApproveCleanup    Action = "approve_cleanup"
	ActionRejectCleanup     Action = "reject_cleanup"
	ActionRedeemReward      Action = "redeem_reward"
	ActionUpvote            Action = "upvote"
	ActionManageRewards     Action = "manage_rewards"
	ActionProcessRedemption Action = "process_redemption"
	ActionManageUsers       Action = "manage_users"
)

// Principal is the acting party of a request.
type Principal struct {
	UserID    uint
	Role      string
	IsCleaner bool
}

// Anonymous is the principal of unauthenticated requests.
var Anonymous = Principal{}

// FromUser builds a principal from a stored user.
func FromUser(u *models.User) Principal {
	if u == nil {
		return Anonymous
	}
	return Principal{UserID: u.ID, Role: u.Role, IsCleaner: u.IsCleaner}
}

func (p Principal) IsAnonymous() bool { return p.UserID == 0 }

func (p Principal) IsAdmin() bool { return !p.IsAnonymous() && p.Role == models.ROLE_ADMIN }

// grant is one row predicate of the capability table.
type grant func(p Principal) bool

var (
	anyone    grant = func(Principal) bool { return true }
	loggedIn  grant = func(p Principal) bool { return !p.IsAnonymous() }
	admin     grant = func(p Principal) bool { return p.IsAdmin() }
	moderator grant = func(p Principal) bool { return !p.IsAnonymous() && p.Role == models.ROLE_MODERATOR }
	cleaner   grant = func(p Principal) bool { return !p.IsAnonymous() && p.IsCleaner }
)

var capabilities = map[Action][]grant{
	ActionSubmitReport:      {anyone},
	ActionTakeInWork:        {moderator, admin},
	ActionRejectReport:      {moderator, admin},
	ActionSoftDelete:        {moderator, admin},
	ActionSubmitCleanup:     {cleaner, admin},
	ActionApproveCleanup:    {admin},
	ActionRejectCleanup:     {admin},
	ActionRedeemReward:      {loggedIn},
	ActionUpvote:            {loggedIn},
	ActionManageRewards:     {admin},
	ActionProcessRedemption: {admin},
	ActionManageUsers:       {admin},
}

// Can reports whether p may perform action. Unknown actions are denied.
func Can(p Principal, action Action) bool {
	for _, g := range capabilities[action] {
		if g(p) {
			return true
		}
	}
	return false
}

// Allow returns apperr.ErrForbidden when p may not perform action.
func Allow(p Principal, action Action) error {
	if Can(p, action) {
		return nil
	}
	return fmt.Errorf("%w: %s not permitted for role %q", apperr.ErrForbidden, action, roleLabel(p))
}

func roleLabel(p Principal) string {
	if p.IsAnonymous() {
		return "anonymous"
	}
	if p.IsCleaner && p.Role == models.ROLE_CITIZEN {
		return "cleaner"
	}
	return p.Role
}
