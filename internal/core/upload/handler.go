package upload

import (
	"errors"
	"path"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler accepts reference images for image-to-image generation.
type Handler struct {
	uploadService *Service
	currentUser   func(c *fiber.Ctx) (uuid.UUID, bool)
}

func NewHandler(uploadService *Service, currentUser func(c *fiber.Ctx) (uuid.UUID, bool)) *Handler {
	return &Handler{uploadService: uploadService, currentUser: currentUser}
}

// UploadImage godoc
// @Summary Upload a reference image
// @Description Store an image that can be passed as options.image_url to generation
// @Tags Storage
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image (jpeg, png, gif, webp)"
// @Success 201 {object} Object
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /storage/images [post]
func (h *Handler) UploadImage(c *fiber.Ctx) error {
	userID, ok := h.currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}

	obj, err := h.uploadService.UploadImage(c.UserContext(), path.Join("references", userID.String()), fh)
	if errors.Is(err, ErrFileTypeNotAllowed) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("❌ Upload failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}
