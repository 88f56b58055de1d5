package handlers

import (
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AIHandler struct {
	generation *services.GenerationService
}

func NewAIHandler(generation *services.GenerationService) *AIHandler {
	return &AIHandler{generation: generation}
}

// Generate godoc
// @Summary Start a generation
// @Description Charges the generation cost and queues the task. Users without a subscription are capped per day.
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.GenerateRequest true "Generation request"
// @Success 201 {object} models.AITask
// @Failure 400 {object} map[string]interface{}
// @Failure 402 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /ai/generate [post]
func (h *AIHandler) Generate(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	var req services.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid params"})
	}

	task, err := h.generation.Generate(c.UserContext(), caller, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// GetTask godoc
// @Summary Get a generation task
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} models.AITask
// @Failure 404 {object} map[string]interface{}
// @Router /ai/tasks/{id} [get]
func (h *AIHandler) GetTask(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task id"})
	}

	task, err := h.generation.GetTask(c.UserContext(), caller.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}
