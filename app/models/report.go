package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReportStatusPending             = "pending"
	ReportStatusConfirmed           = "confirmed"
	ReportStatusInProgress          = "in_progress"
	ReportStatusPendingVerification = "pending_verification"
	ReportStatusCleaned             = "cleaned"
	ReportStatusRejected            = "rejected"
	ReportStatusDeleted             = "deleted"
)

const (
	AIStatusAutoConfirmed = "auto_confirmed"
	AIStatusNeedsReview   = "needs_review"
	AIStatusRejected      = "rejected"
)

const (
	CategoryPlastic      = "plastic"
	CategoryMetal        = "metal"
	CategoryOrganic      = "organic"
	CategoryMixed        = "mixed"
	CategoryConstruction = "construction"
	CategoryVandalism    = "vandalism"
	CategoryNone         = "none"
	CategoryUnknown      = "unknown"
)

// ReportCategories are the tags a reporter may choose.
var ReportCategories = []string{
	CategoryPlastic, CategoryMetal, CategoryOrganic, CategoryMixed, CategoryConstruction, CategoryVandalism,
}

// ReportStatuses lists every lifecycle status in display order.
var ReportStatuses = []string{
	ReportStatusPending,
	ReportStatusConfirmed,
	ReportStatusInProgress,
	ReportStatusPendingVerification,
	ReportStatusCleaned,
	ReportStatusRejected,
	ReportStatusDeleted,
}

type Report struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	UUID        string  `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	AuthorID    *uint   `gorm:"index" json:"author_id,omitempty"`
	Author      *User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Latitude    float64 `gorm:"not null" json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `gorm:"not null" json:"longitude" validate:"gte=-180,lte=180"`
	Address     string  `gorm:"type:varchar(255);default:null" json:"address,omitempty"`
	District    string  `gorm:"type:varchar(100);index;default:null" json:"district,omitempty"`
	PhotoPath   string  `gorm:"type:varchar(255);not null" json:"photo_path" validate:"required"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Category    string  `gorm:"type:varchar(50);default:'unknown'" json:"category"`

	AIConfidence float64 `gorm:"default:0" json:"ai_confidence"`
	AIStatus     string  `gorm:"type:varchar(20);default:'needs_review'" json:"ai_status"`
	AIRaw        string  `gorm:"type:text" json:"-"`

	Status string `gorm:"type:varchar(30);default:'pending';index" json:"status"`

	ModeratorID       *uint      `gorm:"index" json:"moderator_id,omitempty"`
	ModeratorComment  string     `gorm:"type:text" json:"moderator_comment,omitempty"`
	ModeratedAt       *time.Time `json:"moderated_at,omitempty"`
	CleanedAt         *time.Time `json:"cleaned_at,omitempty"`
	AfterPhotoPath    string     `gorm:"type:varchar(255);default:null" json:"after_photo_path,omitempty"`
	DisposalPhotoPath string     `gorm:"type:varchar(255);default:null" json:"disposal_photo_path,omitempty"`
	CleanedByID       *uint      `gorm:"index" json:"cleaned_by_id,omitempty"`

	ViewsCount   int            `gorm:"default:0" json:"views_count"`
	UpvotesCount int            `gorm:"default:0" json:"upvotes_count"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the public UUID.
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.New().String()
	}
	return nil
}

func (r *Report) Validate() error {
	v := validator.New()

	return v.Struct(r)
}

// HasCleanupArtifacts reports whether both cleanup photos are present.
func (r *Report) HasCleanupArtifacts() bool {
	return r.AfterPhotoPath != "" && r.DisposalPhotoPath != ""
}

// ClearCleanup resets every field written by a cleanup submission.
func (r *Report) ClearCleanup() {
	r.AfterPhotoPath = ""
	r.DisposalPhotoPath = ""
	r.CleanedAt = nil
	r.CleanedByID = nil
}

// IsDeleted reports whether the report was soft-deleted.
func (r *Report) IsDeleted() bool {
	return r.Status == ReportStatusDeleted || r.DeletedAt.Valid
}

// ReportUpvote records one upvote per user and report.
type ReportUpvote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReportID  uint      `gorm:"uniqueIndex:idx_report_upvote" json:"report_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_report_upvote" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
