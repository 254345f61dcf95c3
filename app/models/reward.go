package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	RedemptionStatusPending   = "pending"
	RedemptionStatusApproved  = "approved"
	RedemptionStatusDelivered = "delivered"
	RedemptionStatusCancelled = "cancelled"
)

type Reward struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Description   string         `gorm:"type:text" json:"description"`
	Category      string         `gorm:"type:varchar(50)" json:"category" validate:"max=50"`
	PointsCost    int            `gorm:"not null" json:"points_cost" validate:"gt=0"`
	Quantity      *int           `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	RedeemedCount int            `gorm:"default:0" json:"redeemed_count"`
	IsActive      bool           `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Reward) Validate() error {
	v := validator.New()

	return v.Struct(r)
}

// IsAvailable reports whether the reward is active and not exhausted.
// A nil quantity means unlimited.
func (r *Reward) IsAvailable() bool {
	if !r.IsActive {
		return false
	}
	return r.Quantity == nil || r.RedeemedCount < *r.Quantity
}

// Remaining returns the units left, or -1 when unlimited.
func (r *Reward) Remaining() int {
	if r.Quantity == nil {
		return -1
	}
	if left := *r.Quantity - r.RedeemedCount; left > 0 {
		return left
	}
	return 0
}

type RewardRedemption struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index" json:"user_id"`
	RewardID    uint       `gorm:"index" json:"reward_id"`
	Reward      *Reward    `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
	PointsSpent int        `json:"points_spent"`
	Status      string     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Comment     string     `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

var redemptionTransitions = map[string][]string{
	RedemptionStatusPending:  {RedemptionStatusApproved, RedemptionStatusCancelled},
	RedemptionStatusApproved: {RedemptionStatusDelivered, RedemptionStatusCancelled},
}

// CanTransitionTo reports whether the redemption may move to the given status.
func (r *RewardRedemption) CanTransitionTo(status string) bool {
	for _, s := range redemptionTransitions[r.Status] {
		if s == status {
			return true
		}
	}
	return false
}
