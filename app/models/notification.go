package models

import (
	"time"
)

const (
	NotificationReportSubmitted     = "report_submitted"
	NotificationReportInProgress    = "report_in_progress"
	NotificationReportRejected      = "report_rejected"
	NotificationCleanupVerification = "cleanup_verification"
	NotificationCleanupApproved     = "cleanup_approved"
	NotificationReportCleaned       = "report_cleaned"
	NotificationCleanupRejected     = "cleanup_rejected"
	NotificationRewardRequested     = "reward_requested"
	NotificationRewardApproved      = "reward_approved"
	NotificationRewardDelivered     = "reward_delivered"
	NotificationRewardCancelled     = "reward_cancelled"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Type      string    `gorm:"type:varchar(50)" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	ReportID  *uint     `gorm:"index" json:"report_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// NewNotification builds an unread notification, optionally bound to a report.
func NewNotification(userID uint, notificationType, message string, reportID *uint) *Notification {
	return &Notification{
		UserID:   userID,
		Type:     notificationType,
		Message:  message,
		ReportID: reportID,
	}
}
