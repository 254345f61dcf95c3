package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/TazaQala/app/models"
	"gorm.io/gorm"
)

// ErrStaleStatus is returned by conditional updates when the row no longer
// has the expected status.
var ErrStaleStatus = errors.New("row status changed concurrently")

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	// GetForUpdate loads the user with a row lock held until the transaction ends.
	GetForUpdate(id uint) (*models.User, error)
	Update(user *models.User) error
	ListStaff() ([]models.User, error)
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// ReportFilter narrows report listings. Zero values mean "no filter".
type ReportFilter struct {
	Status   string
	District string
	AuthorID uint
	// Bounding box; applied only when MinLat < MaxLat and MinLng < MaxLng.
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	Offset         int
	Limit          int
}

// ReportRepository defines the interface for report-related database operations
type ReportRepository interface {
	Create(report *models.Report) error
	GetByID(id uint) (*models.Report, error)
	GetByUUID(uuid string) (*models.Report, error)
	// GetForUpdate locks the row and also returns soft-deleted reports.
	GetForUpdate(id uint) (*models.Report, error)
	// UpdateTransition persists report only if its stored status still equals from.
	UpdateTransition(report *models.Report, from string) error
	List(filter ReportFilter) ([]models.Report, error)
	AddUpvote(reportID, userID uint) (bool, error)
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	Create(notification *models.Notification) error
	ListByUser(userID uint, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkRead(userID, id uint) error
	MarkAllRead(userID uint) (int64, error)
}

// RewardRepository defines the interface for rewards and their redemptions
type RewardRepository interface {
	Create(reward *models.Reward) error
	Update(reward *models.Reward) error
	GetByID(id uint) (*models.Reward, error)
	GetForUpdate(id uint) (*models.Reward, error)
	List(activeOnly bool) ([]models.Reward, error)

	CreateRedemption(redemption *models.RewardRedemption) error
	UpdateRedemption(redemption *models.RewardRedemption) error
	GetRedemptionForUpdate(id uint) (*models.RewardRedemption, error)
	ListRedemptionsByUser(userID uint) ([]models.RewardRedemption, error)
	ListRedemptions(status string, limit int) ([]models.RewardRedemption, error)
}

// AIStats summarises how automated triage compared with human decisions.
type AIStats struct {
	Analyzed              int64   `json:"analyzed"`
	AutoConfirmed         int64   `json:"auto_confirmed"`
	AutoConfirmedRejected int64   `json:"auto_confirmed_rejected"`
	Accuracy              float64 `json:"accuracy"`
}

// StatsRepository defines read-only aggregate queries
type StatsRepository interface {
	CountByStatus() ([]models.StatusCount, error)
	DistrictStats() ([]models.DistrictStats, error)
	AIStats() (*AIStats, error)
	TopUsers(limit int) ([]models.LeaderboardEntry, error)
	DistrictLeaders() ([]models.DistrictLeader, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Report       ReportRepository
	Notification NotificationRepository
	Reward       RewardRepository
	Stats        StatsRepository
}

// UnitOfWork runs fn against repositories bound to a single transaction.
// Any error returned by fn rolls the transaction back.
type UnitOfWork interface {
	Repos() *Repositories
	Do(ctx context.Context, fn func(repos *Repositories) error) error
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Report:       NewReportRepository(db),
		Notification: NewNotificationRepository(db),
		Reward:       NewRewardRepository(db),
		Stats:        NewStatsRepository(db),
	}
}
