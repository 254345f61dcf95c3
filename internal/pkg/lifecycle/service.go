// Package lifecycle owns the report state machine. Every operation checks
// access first, then re-reads the report under a row lock inside one unit
// of work, applies the transition and its side effects, and persists the
// status with a compare-and-swap on the source status.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/access"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
	"github.com/ManuelReschke/TazaQala/internal/pkg/config"
	"github.com/ManuelReschke/TazaQala/internal/pkg/ledger"
	"github.com/ManuelReschke/TazaQala/internal/pkg/metrics"
	"github.com/ManuelReschke/TazaQala/internal/pkg/moderation"
)

// Service runs report transitions.
type Service struct {
	uow      repository.UnitOfWork
	gateway  *moderation.Guarded
	cfg      config.Config
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the lifecycle. m may be nil.
func NewService(uow repository.UnitOfWork, gateway *moderation.Guarded, cfg config.Config, m *metrics.Metrics) *Service {
	return &Service{
		uow:      uow,
		gateway:  gateway,
		cfg:      cfg,
		metrics:  m,
		validate: validator.New(),
		now:      time.Now,
	}
}

// SubmitInput is a new report as received from the upload layer.
type SubmitInput struct {
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Address     string  `json:"address" validate:"max=255"`
	District    string  `json:"district" validate:"max=100"`
	PhotoPath   string  `json:"photo_path" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=2000"`
	Category    string  `json:"category" validate:"max=50"`
}

// CleanupInput carries the two cleanup artifacts.
type CleanupInput struct {
	AfterPhotoPath    string `json:"after_photo_path"`
	DisposalPhotoPath string `json:"disposal_photo_path"`
}

// credit is a ledger change applied during a transition, reported to
// metrics after commit.
type credit struct {
	reason string
	delta  int
}

// Submit analyses the photo and stores a new report. The gateway runs
// before the transaction opens so that a slow backend never holds locks.
func (s *Service) Submit(ctx context.Context, p access.Principal, in SubmitInput) (*models.Report, error) {
	const event = string(access.ActionSubmitReport)
	if err := access.Allow(p, access.ActionSubmitReport); err != nil {
		s.metrics.Failure(event, err)
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		err = fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		s.metrics.Failure(event, err)
		return nil, err
	}
	if in.Category != "" && !slices.Contains(models.ReportCategories, in.Category) {
		err := fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidInput, in.Category)
		s.metrics.Failure(event, err)
		return nil, err
	}

	triage := s.gateway.Analyze(ctx, in.PhotoPath)

	report := &models.Report{
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Address:      strings.TrimSpace(in.Address),
		District:     strings.TrimSpace(in.District),
		PhotoPath:    in.PhotoPath,
		Description:  strings.TrimSpace(in.Description),
		Category:     in.Category,
		AIConfidence: triage.Confidence,
		AIStatus:     triage.Status,
		AIRaw:        triage.Raw,
		Status:       models.ReportStatusPending,
	}
	if report.Category == "" {
		report.Category = triage.Category
	}
	if report.Category == "" {
		report.Category = models.CategoryUnknown
	}
	autoConfirmed := triage.Status == models.AIStatusAutoConfirmed
	if autoConfirmed {
		report.Status = models.ReportStatusConfirmed
	}

	var credits []credit
	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		var author *models.User
		if !p.IsAnonymous() {
			u, err := repos.User.GetForUpdate(p.UserID)
			if err != nil {
				return apperr.Lookup(err, "user", p.UserID)
			}
			author = u
			report.AuthorID = &author.ID
		}

		if err := repos.Report.Create(report); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if author == nil {
			return nil
		}

		points := s.cfg.Points.ConfirmedReport
		if report.Description != "" {
			points += s.cfg.Points.WithGPSComment
		}
		ledger.AddPoints(author, points)
		author.ReportsCount++
		if autoConfirmed {
			author.ConfirmedReports++
		}
		if err := repos.User.Update(author); err != nil {
			return fmt.Errorf("update author: %w", err)
		}
		credits = append(credits, credit{"report_submitted", points})

		msg := fmt.Sprintf("Report #%d received, +%d points.", report.ID, points)
		if autoConfirmed {
			msg = fmt.Sprintf("Report #%d was confirmed automatically, +%d points.", report.ID, points)
		}
		return notify(repos, author.ID, models.NotificationReportSubmitted, msg, report.ID)
	})
	if err != nil {
		s.metrics.Failure(event, err)
		return nil, err
	}

	s.metrics.Transition("", report.Status)
	s.recordCredits(credits)
	log.Infof("[Lifecycle] Report %d submitted: status=%s ai=%s confidence=%.2f", report.ID, report.Status, triage.Status, triage.Confidence)
	return report, nil
}

// TakeInWork moves a pending report to in_progress on behalf of a moderator.
func (s *Service) TakeInWork(ctx context.Context, p access.Principal, reportID uint, comment string) (*models.Report, error) {
	return s.transition(ctx, p, access.ActionTakeInWork, reportID, func(repos *repository.Repositories, r *models.Report, fx *effects) error {
		if r.Status != models.ReportStatusPending {
			return apperr.InvalidTransition(r.Status, string(access.ActionTakeInWork))
		}
		now := s.now()
		r.Status = models.ReportStatusInProgress
		r.ModeratorID = principalID(p)
		r.ModeratedAt = &now
		r.ModeratorComment = strings.TrimSpace(comment)

		if r.AuthorID == nil {
			return nil
		}
		author, err := repos.User.GetForUpdate(*r.AuthorID)
		if err != nil {
			return apperr.Lookup(err, "user", *r.AuthorID)
		}
		author.ConfirmedReports++
		if err := repos.User.Update(author); err != nil {
			return fmt.Errorf("update author: %w", err)
		}
		return notify(repos, author.ID, models.NotificationReportInProgress,
			fmt.Sprintf("Report #%d was confirmed and taken into work.", r.ID), r.ID)
	})
}

// Reject closes a pending or in-progress report. A comment containing a
// fraud keyword also penalises the author.
func (s *Service) Reject(ctx context.Context, p access.Principal, reportID uint, comment string) (*models.Report, error) {
	return s.transition(ctx, p, access.ActionRejectReport, reportID, func(repos *repository.Repositories, r *models.Report, fx *effects) error {
		if r.Status != models.ReportStatusPending && r.Status != models.ReportStatusInProgress {
			return apperr.InvalidTransition(r.Status, string(access.ActionRejectReport))
		}
		from := r.Status
		now := s.now()
		comment = strings.TrimSpace(comment)
		r.Status = models.ReportStatusRejected
		r.ModeratorID = principalID(p)
		r.ModeratedAt = &now
		r.ModeratorComment = comment

		if r.AuthorID == nil {
			return nil
		}
		author, err := repos.User.GetForUpdate(*r.AuthorID)
		if err != nil {
			return apperr.Lookup(err, "user", *r.AuthorID)
		}
		author.RejectedReports++
		// Taking a report into work counted it as confirmed.
		if from == models.ReportStatusInProgress && author.ConfirmedReports > 0 {
			author.ConfirmedReports--
		}
		msg := fmt.Sprintf("Report #%d was rejected.", r.ID)
		if comment != "" {
			msg = fmt.Sprintf("Report #%d was rejected: %s", r.ID, comment)
		}
		if s.cfg.IsFraudComment(comment) && s.cfg.Points.FakePenalty != 0 {
			ledger.AddPoints(author, s.cfg.Points.FakePenalty)
			fx.credit("fake_penalty", s.cfg.Points.FakePenalty)
			msg += fmt.Sprintf(" %d points.", s.cfg.Points.FakePenalty)
		}
		if err := repos.User.Update(author); err != nil {
			return fmt.Errorf("update author: %w", err)
		}
		return notify(repos, author.ID, models.NotificationReportRejected, msg, r.ID)
	})
}

// SubmitCleanup records a cleaner's proof of cleanup and asks staff to
// verify it. Both artifacts are required before the report is even read.
func (s *Service) SubmitCleanup(ctx context.Context, p access.Principal, reportID uint, in CleanupInput) (*models.Report, error) {
	const event = string(access.ActionSubmitCleanup)
	if err := access.Allow(p, access.ActionSubmitCleanup); err != nil {
		s.metrics.Failure(event, err)
		return nil, err
	}
	in.AfterPhotoPath = strings.TrimSpace(in.AfterPhotoPath)
	in.DisposalPhotoPath = strings.TrimSpace(in.DisposalPhotoPath)
	if in.AfterPhotoPath == "" || in.DisposalPhotoPath == "" {
		err := fmt.Errorf("%w: after photo and disposal document are both required", apperr.ErrMissingArtifact)
		s.metrics.Failure(event, err)
		return nil, err
	}

	return s.transition(ctx, p, access.ActionSubmitCleanup, reportID, func(repos *repository.Repositories, r *models.Report, fx *effects) error {
		if r.Status != models.ReportStatusConfirmed && r.Status != models.ReportStatusInProgress {
			return apperr.InvalidTransition(r.Status, event)
		}
		now := s.now()
		r.Status = models.ReportStatusPendingVerification
		r.AfterPhotoPath = in.AfterPhotoPath
		r.DisposalPhotoPath = in.DisposalPhotoPath
		r.CleanedAt = &now
		r.CleanedByID = principalID(p)

		staff, err := repos.User.ListStaff()
		if err != nil {
			return fmt.Errorf("list staff: %w", err)
		}
		msg := fmt.Sprintf("Cleanup of report #%d is waiting for verification.", r.ID)
		for _, u := range staff {
			if err := notify(repos, u.ID, models.NotificationCleanupVerification, msg, r.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApproveCleanup closes a verified cleanup and pays the cleaner and the author.
func (s *Service) ApproveCleanup(ctx context.Context, p access.Principal, reportID uint) (*models.Report, error) {
	return s.transition(ctx, p, access.ActionApproveCleanup, reportID, func(repos *repository.Repositories, r *models.Report, fx *effects) error {
		if r.Status != models.ReportStatusPendingVerification {
			return apperr.InvalidTransition(r.Status, string(access.ActionApproveCleanup))
		}
		r.Status = models.ReportStatusCleaned

		if r.CleanedByID != nil {
			reward := s.cfg.Points.CleanupReward
			msg := fmt.Sprintf("Cleanup of report #%d was approved, +%d points.", r.ID, reward)
			if err := s.award(repos, *r.CleanedByID, reward, models.NotificationCleanupApproved, msg, r.ID); err != nil {
				return err
			}
			fx.credit("cleanup_approved", reward)
		}
		if r.AuthorID != nil {
			bonus := s.cfg.Points.CleanedReportBonus
			msg := fmt.Sprintf("The place from report #%d has been cleaned, +%d points.", r.ID, bonus)
			if err := s.award(repos, *r.AuthorID, bonus, models.NotificationReportCleaned, msg, r.ID); err != nil {
				return err
			}
			fx.credit("report_cleaned", bonus)
		}
		return nil
	})
}

// RejectCleanup sends a report back to in_progress and clears the
// submitted cleanup. The former cleaner is notified; no points change.
func (s *Service) RejectCleanup(ctx context.Context, p access.Principal, reportID uint, comment string) (*models.Report, error) {
	return s.transition(ctx, p, access.ActionRejectCleanup, reportID, func(repos *repository.Repositories, r *models.Report, fx *effects) error {
		if r.Status != models.ReportStatusPendingVerification {
			return apperr.InvalidTransition(r.Status, string(access.ActionRejectCleanup))
		}
		// ClearCleanup drops the cleaner reference, so keep it for the notification.
		cleanerID := r.CleanedByID
		r.ClearCleanup()
		r.Status = models.ReportStatusInProgress

		if cleanerID == nil {
			return nil
		}
		msg := fmt.Sprintf("Cleanup of report #%d was rejected.", r.ID)
		if c := strings.TrimSpace(comment); c != "" {
			msg = fmt.Sprintf("Cleanup of report #%d was rejected: %s", r.ID, c)
		}
		return notify(repos, *cleanerID, models.NotificationCleanupRejected, msg, r.ID)
	})
}

// SoftDelete hides a report from every active query. It cannot be undone.
func (s *Service) SoftDelete(ctx context.Context, p access.Principal, reportID uint) (*models.Report, error) {
	return s.transition(ctx, p, access.ActionSoftDelete, reportID, func(repos *repository.Repositories, r *models.Report, fx *effects) error {
		r.Status = models.ReportStatusDeleted
		r.DeletedAt.Time = s.now()
		r.DeletedAt.Valid = true
		return nil
	})
}

// Upvote adds the principal's vote once; repeated votes are ignored.
func (s *Service) Upvote(ctx context.Context, p access.Principal, reportID uint) (bool, error) {
	if err := access.Allow(p, access.ActionUpvote); err != nil {
		return false, err
	}
	var added bool
	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		r, err := repos.Report.GetByID(reportID)
		if err != nil {
			return apperr.Lookup(err, "report", reportID)
		}
		if r.IsDeleted() {
			return fmt.Errorf("%w: report %d", apperr.ErrNotFound, reportID)
		}
		added, err = repos.Report.AddUpvote(reportID, p.UserID)
		return err
	})
	return added, err
}

// Get returns an active report.
func (s *Service) Get(ctx context.Context, reportID uint) (*models.Report, error) {
	r, err := s.uow.Repos().Report.GetByID(reportID)
	if err != nil {
		return nil, apperr.Lookup(err, "report", reportID)
	}
	if r.IsDeleted() {
		return nil, fmt.Errorf("%w: report %d", apperr.ErrNotFound, reportID)
	}
	return r, nil
}

// GetByUUID returns an active report by its public UUID.
func (s *Service) GetByUUID(ctx context.Context, id string) (*models.Report, error) {
	r, err := s.uow.Repos().Report.GetByUUID(id)
	if err != nil {
		return nil, apperr.Lookup(err, "report", id)
	}
	if r.IsDeleted() {
		return nil, fmt.Errorf("%w: report %s", apperr.ErrNotFound, id)
	}
	return r, nil
}

// Mine lists the principal's own active reports.
func (s *Service) Mine(ctx context.Context, p access.Principal, offset, limit int) ([]models.Report, error) {
	if p.IsAnonymous() {
		return nil, fmt.Errorf("%w: login required", apperr.ErrForbidden)
	}
	return s.List(ctx, repository.ReportFilter{AuthorID: p.UserID, Offset: offset, Limit: limit})
}

// List returns active reports matching filter.
func (s *Service) List(ctx context.Context, filter repository.ReportFilter) ([]models.Report, error) {
	if filter.Status == models.ReportStatusDeleted {
		return []models.Report{}, nil
	}
	if filter.Status != "" && !isStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, filter.Status)
	}
	return s.uow.Repos().Report.List(filter)
}

type effects struct {
	credits []credit
}

func (fx *effects) credit(reason string, delta int) {
	fx.credits = append(fx.credits, credit{reason, delta})
}

type mutation func(repos *repository.Repositories, r *models.Report, fx *effects) error

// transition is the shared skeleton of every report edge.
func (s *Service) transition(ctx context.Context, p access.Principal, action access.Action, reportID uint, apply mutation) (*models.Report, error) {
	event := string(action)
	if err := access.Allow(p, action); err != nil {
		s.metrics.Failure(event, err)
		return nil, err
	}

	var (
		out  *models.Report
		from string
		fx   effects
	)
	err := s.uow.Do(ctx, func(repos *repository.Repositories) error {
		r, err := repos.Report.GetForUpdate(reportID)
		if err != nil {
			return apperr.Lookup(err, "report", reportID)
		}
		from = r.Status
		if r.IsDeleted() {
			return apperr.InvalidTransition(from, event)
		}
		if err := apply(repos, r, &fx); err != nil {
			return err
		}
		if err := repos.Report.UpdateTransition(r, from); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return apperr.InvalidTransition(from, event)
			}
			return fmt.Errorf("update report: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		s.metrics.Failure(event, err)
		return nil, err
	}

	s.metrics.Transition(from, out.Status)
	s.recordCredits(fx.credits)
	log.Infof("[Lifecycle] Report %d: %s -> %s (%s by user %d)", out.ID, from, out.Status, event, p.UserID)
	return out, nil
}

// award locks the user, credits delta and writes one notification.
func (s *Service) award(repos *repository.Repositories, userID uint, delta int, kind, msg string, reportID uint) error {
	u, err := repos.User.GetForUpdate(userID)
	if err != nil {
		return apperr.Lookup(err, "user", userID)
	}
	ledger.AddPoints(u, delta)
	if err := repos.User.Update(u); err != nil {
		return fmt.Errorf("update user %d: %w", userID, err)
	}
	return notify(repos, userID, kind, msg, reportID)
}

func (s *Service) recordCredits(credits []credit) {
	for _, c := range credits {
		s.metrics.Points(c.reason, c.delta)
	}
}

func notify(repos *repository.Repositories, userID uint, kind, msg string, reportID uint) error {
	rid := reportID
	if err := repos.Notification.Create(models.NewNotification(userID, kind, msg, &rid)); err != nil {
		return fmt.Errorf("create %s notification: %w", kind, err)
	}
	return nil
}

func principalID(p access.Principal) *uint {
	if p.IsAnonymous() {
		return nil
	}
	id := p.UserID
	return &id
}

func isStatus(s string) bool {
	for _, st := range models.ReportStatuses {
		if st == s {
			return true
		}
	}
	return false
}
