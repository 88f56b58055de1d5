package handlers

import (
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/utils"
	"github.com/gofiber/fiber/v2"
)

type CreditHandler struct {
	credits *credit.Service
}

func NewCreditHandler(credits *credit.Service) *CreditHandler {
	return &CreditHandler{credits: credits}
}

// Balance godoc
// @Summary Get my credit balance
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /credits/balance [get]
func (h *CreditHandler) Balance(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx := c.UserContext()

	balance, err := h.credits.GetRemainingCredits(ctx, caller.ID)
	if err != nil {
		return respondError(c, err)
	}
	today, err := h.credits.GetTodayConsumedCredits(ctx, caller.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"balance":        balance,
		"today_consumed": today,
	})
}

// History godoc
// @Summary List my credit transactions
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(30)
// @Param type query string false "grant or consume"
// @Success 200 {object} map[string]interface{}
// @Router /credits [get]
func (h *CreditHandler) History(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	page, limit := utils.Pagination(c, 30, 100)

	rows, total, err := h.credits.ListCredits(c.UserContext(), credit.ListFilter{
		UserID:          caller.ID,
		TransactionType: c.Query("type"),
		Page:            page,
		Limit:           limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"credits": rows,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}
