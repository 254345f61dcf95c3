package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

var (
	citizen    = Principal{UserID: 1, Role: models.ROLE_CITIZEN}
	cleanerP   = Principal{UserID: 2, Role: models.ROLE_CITIZEN, IsCleaner: true}
	moderatorP = Principal{UserID: 3, Role: models.ROLE_MODERATOR}
	adminP     = Principal{UserID: 4, Role: models.ROLE_ADMIN}
)

func TestCapabilityTable(t *testing.T) {
	tests := []struct {
		action  Action
		allowed []Principal
		denied  []Principal
	}{
		{ActionSubmitReport, []Principal{Anonymous, citizen, cleanerP, moderatorP, adminP}, nil},
		{ActionTakeInWork, []Principal{moderatorP, adminP}, []Principal{Anonymous, citizen, cleanerP}},
		{ActionRejectReport, []Principal{moderatorP, adminP}, []Principal{Anonymous, citizen, cleanerP}},
		{ActionSoftDelete, []Principal{moderatorP, adminP}, []Principal{Anonymous, citizen, cleanerP}},
		{ActionSubmitCleanup, []Principal{cleanerP, adminP}, []Principal{Anonymous, citizen, moderatorP}},
		{ActionApproveCleanup, []Principal{adminP}, []Principal{Anonymous, citizen, cleanerP, moderatorP}},
		{ActionRejectCleanup, []Principal{adminP}, []Principal{Anonymous, citizen, cleanerP, moderatorP}},
		{ActionRedeemReward, []Principal{citizen, cleanerP, moderatorP, adminP}, []Principal{Anonymous}},
		{ActionManageRewards, []Principal{adminP}, []Principal{citizen, moderatorP}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			for _, p := range tt.allowed {
				assert.True(t, Can(p, tt.action), "expected %+v allowed", p)
				assert.NoError(t, Allow(p, tt.action))
			}
			for _, p := range tt.denied {
				assert.False(t, Can(p, tt.action), "expected %+v denied", p)
				assert.ErrorIs(t, Allow(p, tt.action), apperr.ErrForbidden)
			}
		})
	}
}

func TestCleanerFlagIndependentOfRole(t *testing.T) {
	moderatorCleaner := Principal{UserID: 9, Role: models.ROLE_MODERATOR, IsCleaner: true}

	assert.True(t, Can(moderatorCleaner, ActionSubmitCleanup))
	assert.True(t, Can(moderatorCleaner, ActionTakeInWork))
	assert.False(t, Can(moderatorCleaner, ActionApproveCleanup))
}

func TestRoleWithoutUserIsAnonymous(t *testing.T) {
	forged := Principal{Role: models.ROLE_ADMIN}
	assert.False(t, Can(forged, ActionApproveCleanup))
}

func TestUnknownActionDenied(t *testing.T) {
	assert.False(t, Can(adminP, Action("launch_rockets")))
}

func TestFromUser(t *testing.T) {
	assert.Equal(t, Anonymous, FromUser(nil))
	p := FromUser(&models.User{ID: 5, Role: models.ROLE_CITIZEN, IsCleaner: true})
	assert.Equal(t, Principal{UserID: 5, Role: models.ROLE_CITIZEN, IsCleaner: true}, p)
}
