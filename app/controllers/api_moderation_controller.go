package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/lifecycle"
	"github.com/ManuelReschke/TazaQala/internal/pkg/upload"
	"github.com/ManuelReschke/TazaQala/internal/pkg/usercontext"
)

type commentRequest struct {
	Comment string `json:"comment" form:"comment"`
}

type transitionFunc func(c *fiber.Ctx, id uint, comment string) (*models.Report, error)

// commentTransition parses the report id and optional comment and runs fn.
func commentTransition(fn transitionFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return badRequest(c, "invalid report id")
		}
		var req commentRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		report, err := fn(c, id, req.Comment)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(report)
	}
}

// HandleTakeInWork POST /reports/:id/take
func (a *API) HandleTakeInWork(c *fiber.Ctx) error {
	return commentTransition(func(c *fiber.Ctx, id uint, comment string) (*models.Report, error) {
		return a.Reports.TakeInWork(c.UserContext(), usercontext.Principal(c), id, comment)
	})(c)
}

// HandleRejectReport POST /reports/:id/reject
func (a *API) HandleRejectReport(c *fiber.Ctx) error {
	return commentTransition(func(c *fiber.Ctx, id uint, comment string) (*models.Report, error) {
		return a.Reports.Reject(c.UserContext(), usercontext.Principal(c), id, comment)
	})(c)
}

// HandleDeleteReport DELETE /reports/:id
func (a *API) HandleDeleteReport(c *fiber.Ctx) error {
	return commentTransition(func(c *fiber.Ctx, id uint, _ string) (*models.Report, error) {
		return a.Reports.SoftDelete(c.UserContext(), usercontext.Principal(c), id)
	})(c)
}

// HandleApproveCleanup POST /reports/:id/cleanup/approve
func (a *API) HandleApproveCleanup(c *fiber.Ctx) error {
	return commentTransition(func(c *fiber.Ctx, id uint, _ string) (*models.Report, error) {
		return a.Reports.ApproveCleanup(c.UserContext(), usercontext.Principal(c), id)
	})(c)
}

// HandleRejectCleanup POST /reports/:id/cleanup/reject
func (a *API) HandleRejectCleanup(c *fiber.Ctx) error {
	return commentTransition(func(c *fiber.Ctx, id uint, comment string) (*models.Report, error) {
		return a.Reports.RejectCleanup(c.UserContext(), usercontext.Principal(c), id, comment)
	})(c)
}

// HandleSubmitCleanup POST /reports/:id/cleanup (multipart: after_photo, disposal_photo)
func (a *API) HandleSubmitCleanup(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid report id")
	}

	var in lifecycle.CleanupInput
	if fh, err := c.FormFile("after_photo"); err == nil {
		ref, err := a.Uploads.SaveFile(fh, upload.KindCleanup)
		if err != nil {
			return writeError(c, err)
		}
		in.AfterPhotoPath = ref
	}
	if fh, err := c.FormFile("disposal_photo"); err == nil {
		ref, err := a.Uploads.SaveFile(fh, upload.KindDisposal)
		if err != nil {
			a.discard(in.AfterPhotoPath)
			return writeError(c, err)
		}
		in.DisposalPhotoPath = ref
	}

	report, err := a.Reports.SubmitCleanup(c.UserContext(), usercontext.Principal(c), id, in)
	if err != nil {
		a.discard(in.AfterPhotoPath, in.DisposalPhotoPath)
		return writeError(c, err)
	}
	return c.JSON(report)
}
