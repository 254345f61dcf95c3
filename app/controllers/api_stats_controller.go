package controllers

import "github.com/gofiber/fiber/v2"

// HandleStatistics GET /stats
func (a *API) HandleStatistics(c *fiber.Ctx) error {
	overview, err := a.Stats.Overview(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(overview)
}

// HandleLeaderboard GET /leaderboard
func (a *API) HandleLeaderboard(c *fiber.Ctx) error {
	board, err := a.Stats.Leaderboard(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(board)
}
