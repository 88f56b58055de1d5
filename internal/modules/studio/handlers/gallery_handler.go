package handlers

import (
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/services"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type GalleryHandler struct {
	gallery *services.GalleryService
}

func NewGalleryHandler(gallery *services.GalleryService) *GalleryHandler {
	return &GalleryHandler{gallery: gallery}
}

// ListImages godoc
// @Summary List my images
// @Description Images from the caller's successful image tasks, newest first
// @Tags Gallery
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Tasks per page" default(20)
// @Success 200 {object} services.GalleryPage
// @Router /user/images [get]
func (h *GalleryHandler) ListImages(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	page, limit := utils.Pagination(c, 20, 100)

	result, err := h.gallery.ListImages(c.UserContext(), caller.ID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// DeleteImage godoc
// @Summary Delete an image task
// @Tags Gallery
// @Produce json
// @Security BearerAuth
// @Param taskId path string true "Task ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /user/images/{taskId} [delete]
func (h *GalleryHandler) DeleteImage(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	taskID, err := uuid.Parse(c.Params("taskId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Task ID is required"})
	}

	if err := h.gallery.DeleteImage(c.UserContext(), caller.ID, taskID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}
