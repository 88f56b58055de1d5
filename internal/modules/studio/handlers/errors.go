package handlers

import (
	"errors"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/auth"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/repositories"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// respondError maps service errors to HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	var insufficient *credit.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":     "insufficient credits",
			"balance":   insufficient.Balance,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, credit.ErrInsufficientCredits):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "insufficient credits"})
	case errors.Is(err, services.ErrDailyLimitExceeded):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": services.ErrDailyLimitExceeded.Error()})
	case errors.Is(err, repositories.ErrTaskNotFound),
		errors.Is(err, repositories.ErrOrderNotFound),
		errors.Is(err, repositories.ErrSubscriptionNotFound),
		errors.Is(err, credit.ErrCreditNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidParams),
		errors.Is(err, services.ErrPromptRequired),
		errors.Is(err, services.ErrInvalidMediaType),
		errors.Is(err, services.ErrInvalidScene),
		errors.Is(err, services.ErrUnknownProduct),
		errors.Is(err, services.ErrInvalidUserID),
		errors.Is(err, imagegen.ErrUnknownProvider),
		errors.Is(err, imagegen.ErrUnsupportedMedia),
		errors.Is(err, imagegen.ErrUnsupportedScene),
		errors.Is(err, credit.ErrInvalidAmount),
		errors.Is(err, credit.ErrNotGrant):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrOrderNotPayable),
		errors.Is(err, credit.ErrTooManyBatches):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("❌ request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func currentCaller(c *fiber.Ctx) (services.Caller, bool) {
	id, ok := auth.CurrentUserID(c)
	if !ok {
		return services.Caller{}, false
	}
	return services.Caller{ID: id, Email: auth.CurrentEmail(c)}, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "no auth, please sign in"})
}
