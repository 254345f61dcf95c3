package repository

import (
	"github.com/ManuelReschke/TazaQala/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository creates a new reward repository instance
func NewRewardRepository(db *gorm.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) Create(reward *models.Reward) error {
	return r.db.Create(reward).Error
}

func (r *rewardRepository) Update(reward *models.Reward) error {
	return r.db.Save(reward).Error
}

func (r *rewardRepository) GetByID(id uint) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.First(&reward, id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// GetForUpdate locks the reward row so concurrent redemptions serialise on it
func (r *rewardRepository) GetForUpdate(id uint) (*models.Reward, error) {
	var reward models.Reward
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reward, id).Error
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *rewardRepository) List(activeOnly bool) ([]models.Reward, error) {
	q := r.db.Model(&models.Reward{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rewards []models.Reward
	err := q.Order("points_cost ASC, id ASC").Find(&rewards).Error
	return rewards, err
}

func (r *rewardRepository) CreateRedemption(redemption *models.RewardRedemption) error {
	return r.db.Omit(clause.Associations).Create(redemption).Error
}

func (r *rewardRepository) UpdateRedemption(redemption *models.RewardRedemption) error {
	return r.db.Omit(clause.Associations).Save(redemption).Error
}

func (r *rewardRepository) GetRedemptionForUpdate(id uint) (*models.RewardRedemption, error) {
	var redemption models.RewardRedemption
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&redemption, id).Error
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *rewardRepository) ListRedemptionsByUser(userID uint) ([]models.RewardRedemption, error) {
	var out []models.RewardRedemption
	err := r.db.Preload("Reward").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *rewardRepository) ListRedemptions(status string, limit int) ([]models.RewardRedemption, error) {
	q := r.db.Preload("Reward")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 100
	}
	var out []models.RewardRedemption
	err := q.Order("created_at ASC").Limit(limit).Find(&out).Error
	return out, err
}
