package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/lifecycle"
	"github.com/ManuelReschke/TazaQala/internal/pkg/upload"
	"github.com/ManuelReschke/TazaQala/internal/pkg/usercontext"
)

// HandleListReports GET /reports
func (a *API) HandleListReports(c *fiber.Ctx) error {
	filter := repository.ReportFilter{
		Status:   c.Query("status"),
		District: c.Query("district"),
		Offset:   c.QueryInt("offset", 0),
		Limit:    queryLimit(c),
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if bbox := c.Query("bbox"); bbox != "" {
		parts := strings.Split(bbox, ",")
		if len(parts) != 4 {
			return badRequest(c, "bbox must be min_lat,min_lng,max_lat,max_lng")
		}
		vals := make([]float64, 4)
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return badRequest(c, "bbox must contain numbers")
			}
			vals[i] = f
		}
		filter.MinLat, filter.MinLng, filter.MaxLat, filter.MaxLng = vals[0], vals[1], vals[2], vals[3]
	}

	reports, err := a.Reports.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"reports": reports, "count": len(reports)})
}

// HandleGetReport GET /reports/:id (numeric id or public UUID)
func (a *API) HandleGetReport(c *fiber.Ctx) error {
	var (
		report *models.Report
		err    error
	)
	if id, ok := paramID(c); ok {
		report, err = a.Reports.Get(c.UserContext(), id)
	} else if ref, perr := uuid.Parse(c.Params("id")); perr == nil {
		report, err = a.Reports.GetByUUID(c.UserContext(), ref.String())
	} else {
		return badRequest(c, "invalid report id")
	}
	if err != nil {
		return writeError(c, err)
	}
	a.countView(c.UserContext(), report.ID)
	return c.JSON(report)
}

// HandleMyReports GET /me/reports
func (a *API) HandleMyReports(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	reports, err := a.Reports.Mine(c.UserContext(), usercontext.Principal(c), offset, queryLimit(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"reports": reports, "count": len(reports)})
}

// HandleSubmitReport POST /reports (multipart: photo, latitude, longitude, ...)
func (a *API) HandleSubmitReport(c *fiber.Ctx) error {
	lat, err := strconv.ParseFloat(c.FormValue("latitude"), 64)
	if err != nil {
		return badRequest(c, "latitude is required")
	}
	lng, err := strconv.ParseFloat(c.FormValue("longitude"), 64)
	if err != nil {
		return badRequest(c, "longitude is required")
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "photo is required")
	}

	ref, err := a.Uploads.SaveFile(fh, upload.KindReport)
	if err != nil {
		return writeError(c, err)
	}

	report, err := a.Reports.Submit(c.UserContext(), usercontext.Principal(c), lifecycle.SubmitInput{
		Latitude:    lat,
		Longitude:   lng,
		Address:     strings.TrimSpace(c.FormValue("address")),
		District:    strings.TrimSpace(c.FormValue("district")),
		PhotoPath:   ref,
		Description: strings.TrimSpace(c.FormValue("description")),
		Category:    strings.TrimSpace(c.FormValue("category")),
	})
	if err != nil {
		a.discard(ref)
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// HandleUpvoteReport POST /reports/:id/upvote
func (a *API) HandleUpvoteReport(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid report id")
	}
	added, err := a.Reports.Upvote(c.UserContext(), usercontext.Principal(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"upvoted": added})
}

func (a *API) discard(refs ...string) {
	for _, ref := range refs {
		if err := a.Uploads.Remove(ref); err != nil {
			log.Warnf("[API] failed to remove upload %s: %v", ref, err)
		}
	}
}
