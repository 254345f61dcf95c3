package repository

import (
	"github.com/ManuelReschke/TazaQala/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxReportListLimit = 500

// reportRepository implements the ReportRepository interface
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository instance
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create inserts a new report
func (r *reportRepository) Create(report *models.Report) error {
	return r.db.Create(report).Error
}

// GetByID retrieves an active report by its ID
func (r *reportRepository) GetByID(id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// GetByUUID retrieves an active report by its public UUID
func (r *reportRepository) GetByUUID(uuid string) (*models.Report, error) {
	var report models.Report
	if err := r.db.Where("uuid = ?", uuid).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// GetForUpdate locks the report row. Soft-deleted rows are included so the
// caller can reject transitions on them explicitly.
func (r *reportRepository) GetForUpdate(id uint) (*models.Report, error) {
	var report models.Report
	err := r.db.Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&report, id).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateTransition writes every column of report guarded by the expected
// source status.
func (r *reportRepository) UpdateTransition(report *models.Report, from string) error {
	res := r.db.Unscoped().
		Model(report).
		Where("status = ?", from).
		Select("*").
		Omit("id", "uuid", "created_at", clause.Associations).
		Updates(report)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// List returns active reports matching filter, newest first
func (r *reportRepository) List(filter ReportFilter) ([]models.Report, error) {
	q := r.db.Model(&models.Report{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	} else {
		q = q.Where("status <> ?", models.ReportStatusDeleted)
	}
	if filter.District != "" {
		q = q.Where("district = ?", filter.District)
	}
	if filter.AuthorID != 0 {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.MinLat < filter.MaxLat && filter.MinLng < filter.MaxLng {
		q = q.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
			filter.MinLat, filter.MaxLat, filter.MinLng, filter.MaxLng)
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxReportListLimit {
		limit = maxReportListLimit
	}

	var reports []models.Report
	err := q.Order("created_at DESC").Offset(filter.Offset).Limit(limit).Find(&reports).Error
	return reports, err
}

// AddUpvote records an upvote once per user. Returns false if the user had
// already upvoted the report.
func (r *reportRepository) AddUpvote(reportID, userID uint) (bool, error) {
	added := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ReportUpvote{ReportID: reportID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		added = true
		return tx.Model(&models.Report{}).
			Where("id = ?", reportID).
			UpdateColumn("upvotes_count", gorm.Expr("upvotes_count + ?", 1)).Error
	})
	return added, err
}
