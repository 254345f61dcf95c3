package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TazaQala/internal/pkg/rewards"
	"github.com/ManuelReschke/TazaQala/internal/pkg/usercontext"
)

// HandleListRewards GET /rewards
func (a *API) HandleListRewards(c *fiber.Ctx) error {
	list, err := a.Rewards.Catalog(c.UserContext(), true)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"rewards": list})
}

// HandleRedeemReward POST /rewards/:id/redeem
func (a *API) HandleRedeemReward(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid reward id")
	}
	red, err := a.Rewards.Redeem(c.UserContext(), usercontext.Principal(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(red)
}

// HandleMyRedemptions GET /me/redemptions
func (a *API) HandleMyRedemptions(c *fiber.Ctx) error {
	list, err := a.Rewards.MyRedemptions(c.UserContext(), usercontext.Principal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"redemptions": list})
}

// HandleAdminListRewards GET /admin/rewards
func (a *API) HandleAdminListRewards(c *fiber.Ctx) error {
	list, err := a.Rewards.Catalog(c.UserContext(), false)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"rewards": list})
}

// HandleCreateReward POST /admin/rewards
func (a *API) HandleCreateReward(c *fiber.Ctx) error {
	var in rewards.RewardInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	reward, err := a.Rewards.CreateReward(c.UserContext(), usercontext.Principal(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reward)
}

// HandleUpdateReward PATCH /admin/rewards/:id
func (a *API) HandleUpdateReward(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid reward id")
	}
	var in rewards.RewardInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	reward, err := a.Rewards.UpdateReward(c.UserContext(), usercontext.Principal(c), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(reward)
}

// HandleListRedemptions GET /admin/redemptions?status=pending
func (a *API) HandleListRedemptions(c *fiber.Ctx) error {
	list, err := a.Rewards.Redemptions(c.UserContext(), usercontext.Principal(c), c.Query("status"), queryLimit(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"redemptions": list})
}

type processRedemptionRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// HandleProcessRedemption POST /admin/redemptions/:id
func (a *API) HandleProcessRedemption(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid redemption id")
	}
	var req processRedemptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	red, err := a.Rewards.ProcessRedemption(c.UserContext(), usercontext.Principal(c), id, req.Status, req.Comment)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(red)
}
