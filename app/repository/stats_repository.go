package repository

import (
	"github.com/ManuelReschke/TazaQala/app/models"
	"gorm.io/gorm"
)

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new statistics repository instance
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// CountByStatus groups all reports, including soft-deleted ones, by status
func (r *statsRepository) CountByStatus() ([]models.StatusCount, error) {
	var rows []models.StatusCount
	err := r.db.Unscoped().Model(&models.Report{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}

// DistrictStats returns per-district totals and cleanup rate
func (r *statsRepository) DistrictStats() ([]models.DistrictStats, error) {
	var rows []models.DistrictStats
	err := r.db.Model(&models.Report{}).
		Select("district, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS cleaned", models.ReportStatusCleaned).
		Where("district IS NOT NULL AND district <> ''").
		Where("status NOT IN ?", []string{models.ReportStatusRejected, models.ReportStatusDeleted}).
		Group("district").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Total > 0 {
			rows[i].CleanupRate = float64(rows[i].Cleaned) / float64(rows[i].Total)
		}
	}
	return rows, nil
}

// AIStats compares automated confirmations with later human rejections
func (r *statsRepository) AIStats() (*AIStats, error) {
	var s AIStats
	base := r.db.Unscoped().Model(&models.Report{})
	if err := base.Count(&s.Analyzed).Error; err != nil {
		return nil, err
	}
	if err := r.db.Unscoped().Model(&models.Report{}).
		Where("ai_status = ?", models.AIStatusAutoConfirmed).
		Count(&s.AutoConfirmed).Error; err != nil {
		return nil, err
	}
	if err := r.db.Unscoped().Model(&models.Report{}).
		Where("ai_status = ? AND status = ?", models.AIStatusAutoConfirmed, models.ReportStatusRejected).
		Count(&s.AutoConfirmedRejected).Error; err != nil {
		return nil, err
	}
	s.Accuracy = accuracy(s.AutoConfirmed, s.AutoConfirmedRejected)
	return &s, nil
}

// TopUsers returns the leaderboard ordered by total points
func (r *statsRepository) TopUsers(limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.LeaderboardEntry
	err := r.db.Model(&models.User{}).
		Select("id AS user_id, name, total_points, level, reports_count").
		Where("total_points > 0").
		Order("total_points DESC, id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// DistrictLeaders returns the author with the most reports in each district
func (r *statsRepository) DistrictLeaders() ([]models.DistrictLeader, error) {
	var rows []models.DistrictLeader
	err := r.db.Table("reports").
		Select("reports.district, users.id AS user_id, users.name, COUNT(*) AS reports_count").
		Joins("JOIN users ON users.id = reports.author_id").
		Where("reports.deleted_at IS NULL AND reports.district IS NOT NULL AND reports.district <> ''").
		Group("reports.district, users.id, users.name").
		Order("reports.district ASC, reports_count DESC, users.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return pickDistrictLeaders(rows), nil
}

// pickDistrictLeaders keeps the first row per district; rows must be
// ordered by district and then by rank.
func pickDistrictLeaders(rows []models.DistrictLeader) []models.DistrictLeader {
	out := make([]models.DistrictLeader, 0)
	seen := make(map[string]bool)
	for _, row := range rows {
		if seen[row.District] {
			continue
		}
		seen[row.District] = true
		out = append(out, row)
	}
	return out
}

// accuracy is the share of automatic confirmations a moderator did not overturn.
func accuracy(autoConfirmed, overturned int64) float64 {
	if autoConfirmed == 0 {
		return 0
	}
	return float64(autoConfirmed-overturned) / float64(autoConfirmed)
}
