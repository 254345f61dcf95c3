// Package rewards exchanges points for prizes. Redemption locks the reward
// and the user rows so that neither the stock nor the balance can be
// overdrawn by concurrent requests.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/access"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
	"github.com/ManuelReschke/TazaQala/internal/pkg/ledger"
	"github.com/ManuelReschke/TazaQala/internal/pkg/metrics"
)

type Service struct {
	uow     repository.UnitOfWork
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates the reward service. m may be nil.
func NewService(uow repository.UnitOfWork, m *metrics.Metrics) *Service {
	return &Service{uow: uow, metrics: m, now: time.Now}
}

// RewardInput holds the editable reward fields. Nil pointers keep the
// current value on update.
type RewardInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PointsCost  int    `json:"points_cost"`
	Quantity    *int   `json:"quantity"`
	IsActive    *bool  `json:"is_active"`
	// Unlimited clears the quantity on update.
	Unlimited bool `json:"unlimited"`
}

// Catalog lists rewards, optionally only the active ones.
func (s *Service) Catalog(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	return s.uow.Repos().Reward.List(activeOnly)
}

// Redeem debits the reward cost from the principal and opens a pending
// redemption.
func (s *Service) Redeem(ctx context.Context, p access.Principal, rewardID uint) (*models.RewardRedemption, error) {
	if err := access.Allow(p, access.ActionRedeemReward); err != nil {
		s.metrics.Redemption(err)
		return nil, err
	}

	var redemption *models.RewardRedemption
	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		reward, err := repos.Reward.GetForUpdate(rewardID)
		if err != nil {
			return apperr.Lookup(err, "reward", rewardID)
		}
		if !reward.IsAvailable() {
			return fmt.Errorf("%w: reward %d", apperr.ErrRewardUnavailable, rewardID)
		}

		user, err := repos.User.GetForUpdate(p.UserID)
		if err != nil {
			return apperr.Lookup(err, "user", p.UserID)
		}
		if err := ledger.SpendPoints(user, reward.PointsCost); err != nil {
			return err
		}
		if err := repos.User.Update(user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		reward.RedeemedCount++
		if err := repos.Reward.Update(reward); err != nil {
			return fmt.Errorf("update reward: %w", err)
		}

		redemption = &models.RewardRedemption{
			UserID:      user.ID,
			RewardID:    reward.ID,
			PointsSpent: reward.PointsCost,
			Status:      models.RedemptionStatusPending,
		}
		if err := repos.Reward.CreateRedemption(redemption); err != nil {
			return fmt.Errorf("create redemption: %w", err)
		}
		redemption.Reward = reward

		msg := fmt.Sprintf("Request for %q received, %d points reserved.", reward.Title, reward.PointsCost)
		return repos.Notification.Create(models.NewNotification(user.ID, models.NotificationRewardRequested, msg, nil))
	})
	s.metrics.Redemption(err)
	if err != nil {
		return nil, err
	}
	log.Infof("[Rewards] User %d redeemed reward %d (redemption %d)", p.UserID, rewardID, redemption.ID)
	return redemption, nil
}

var redemptionNotifications = map[string]string{
	models.RedemptionStatusApproved:  models.NotificationRewardApproved,
	models.RedemptionStatusDelivered: models.NotificationRewardDelivered,
	models.RedemptionStatusCancelled: models.NotificationRewardCancelled,
}

// ProcessRedemption moves a redemption along pending -> approved ->
// delivered. Cancelling refunds the points and returns the unit to stock.
func (s *Service) ProcessRedemption(ctx context.Context, p access.Principal, redemptionID uint, status, comment string) (*models.RewardRedemption, error) {
	if err := access.Allow(p, access.ActionProcessRedemption); err != nil {
		return nil, err
	}
	kind, ok := redemptionNotifications[status]
	if !ok {
		return nil, fmt.Errorf("%w: redemption status %q", apperr.ErrInvalidInput, status)
	}

	var out *models.RewardRedemption
	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		red, err := repos.Reward.GetRedemptionForUpdate(redemptionID)
		if err != nil {
			return apperr.Lookup(err, "redemption", redemptionID)
		}
		if !red.CanTransitionTo(status) {
			return apperr.InvalidTransition(red.Status, "redemption_"+status)
		}

		// A reward removed from the catalogue still lets the redemption settle.
		reward, err := repos.Reward.GetForUpdate(red.RewardID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			reward = nil
		}
		title := fmt.Sprintf("reward #%d", red.RewardID)
		if reward != nil {
			title = fmt.Sprintf("%q", reward.Title)
		}

		if status == models.RedemptionStatusCancelled {
			user, err := repos.User.GetForUpdate(red.UserID)
			if err != nil {
				return apperr.Lookup(err, "user", red.UserID)
			}
			ledger.RefundPoints(user, red.PointsSpent)
			if err := repos.User.Update(user); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			if reward != nil && reward.RedeemedCount > 0 {
				reward.RedeemedCount--
				if err := repos.Reward.Update(reward); err != nil {
					return fmt.Errorf("update reward: %w", err)
				}
			}
		}

		now := s.now()
		red.Status = status
		red.ProcessedAt = &now
		if c := strings.TrimSpace(comment); c != "" {
			red.Comment = c
		}
		if err := repos.Reward.UpdateRedemption(red); err != nil {
			return fmt.Errorf("update redemption: %w", err)
		}
		red.Reward = reward
		out = red

		return repos.Notification.Create(models.NewNotification(red.UserID, kind, redemptionMessage(status, title, red), nil))
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Rewards] Redemption %d -> %s by user %d", redemptionID, status, p.UserID)
	return out, nil
}

func redemptionMessage(status, title string, red *models.RewardRedemption) string {
	switch status {
	case models.RedemptionStatusApproved:
		return fmt.Sprintf("Your request for %s was approved.", title)
	case models.RedemptionStatusDelivered:
		return fmt.Sprintf("Your %s has been delivered.", title)
	default:
		msg := fmt.Sprintf("Your request for %s was cancelled, %d points returned.", title, red.PointsSpent)
		if red.Comment != "" {
			msg += " " + red.Comment
		}
		return msg
	}
}

// MyRedemptions lists the principal's own redemptions.
func (s *Service) MyRedemptions(ctx context.Context, p access.Principal) ([]models.RewardRedemption, error) {
	if p.IsAnonymous() {
		return nil, fmt.Errorf("%w: login required", apperr.ErrForbidden)
	}
	return s.uow.Repos().Reward.ListRedemptionsByUser(p.UserID)
}

// Redemptions lists redemptions for administrators, optionally by status.
func (s *Service) Redemptions(ctx context.Context, p access.Principal, status string, limit int) ([]models.RewardRedemption, error) {
	if err := access.Allow(p, access.ActionProcessRedemption); err != nil {
		return nil, err
	}
	return s.uow.Repos().Reward.ListRedemptions(status, limit)
}

// CreateReward adds a catalogue entry.
func (s *Service) CreateReward(ctx context.Context, p access.Principal, in RewardInput) (*models.Reward, error) {
	if err := access.Allow(p, access.ActionManageRewards); err != nil {
		return nil, err
	}
	reward := &models.Reward{IsActive: true}
	in.apply(reward)
	if err := reward.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}

	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		return repos.Reward.Create(reward)
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// UpdateReward edits a catalogue entry. Lowering the quantity below the
// redeemed count makes the reward unavailable without touching existing
// redemptions.
func (s *Service) UpdateReward(ctx context.Context, p access.Principal, rewardID uint, in RewardInput) (*models.Reward, error) {
	if err := access.Allow(p, access.ActionManageRewards); err != nil {
		return nil, err
	}

	var out *models.Reward
	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		reward, err := repos.Reward.GetForUpdate(rewardID)
		if err != nil {
			return apperr.Lookup(err, "reward", rewardID)
		}
		in.apply(reward)
		if err := reward.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		if err := repos.Reward.Update(reward); err != nil {
			return fmt.Errorf("update reward: %w", err)
		}
		out = reward
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (in RewardInput) apply(r *models.Reward) {
	if t := strings.TrimSpace(in.Title); t != "" {
		r.Title = t
	}
	if in.Description != "" {
		r.Description = strings.TrimSpace(in.Description)
	}
	if in.Category != "" {
		r.Category = strings.TrimSpace(in.Category)
	}
	if in.PointsCost != 0 {
		r.PointsCost = in.PointsCost
	}
	if in.Unlimited {
		r.Quantity = nil
	} else if in.Quantity != nil {
		q := *in.Quantity
		r.Quantity = &q
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
}
