package handlers

import (
	"bytes"
	"strings"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/audit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/export"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/services"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminHandler struct {
	admin   *services.AdminService
	billing *services.BillingService
	gallery *services.GalleryService
}

func NewAdminHandler(admin *services.AdminService, billing *services.BillingService, gallery *services.GalleryService) *AdminHandler {
	return &AdminHandler{admin: admin, billing: billing, gallery: gallery}
}

func actor(c *fiber.Ctx) services.Actor {
	caller, _ := currentCaller(c)
	return services.Actor{ID: caller.ID, IP: utils.ClientIP(c)}
}

// GrantCredits godoc
// @Summary Grant credits to a user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.AdminGrantRequest true "Grant"
// @Success 201 {object} credit.Credit
// @Router /admin/credits/grant [post]
func (h *AdminHandler) GrantCredits(c *fiber.Ctx) error {
	var req services.AdminGrantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	granted, err := h.admin.GrantCredits(c.UserContext(), actor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(granted)
}

// ListCredits godoc
// @Summary List ledger rows
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "User ID"
// @Param status query string false "active, expired or deleted"
// @Param type query string false "grant or consume"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(30)
// @Success 200 {object} map[string]interface{}
// @Router /admin/credits [get]
func (h *AdminHandler) ListCredits(c *fiber.Ctx) error {
	page, limit := utils.Pagination(c, 30, 100)
	filter, ok := creditFilter(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}
	filter.Page, filter.Limit = page, limit

	rows, total, err := h.admin.ListCredits(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"credits": rows, "total": total, "page": page, "limit": limit})
}

// DeleteCredit godoc
// @Summary Delete a grant
// @Description Marks the grant deleted so it no longer counts toward the balance
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Credit ID"
// @Success 200 {object} credit.Credit
// @Router /admin/credits/{id} [delete]
func (h *AdminHandler) DeleteCredit(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid credit id"})
	}
	deleted, err := h.admin.DeleteCredit(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deleted)
}

// Balances godoc
// @Summary Balances for several users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param ids query string true "Comma separated user IDs"
// @Success 200 {object} map[string]int
// @Router /admin/users/balances [get]
func (h *AdminHandler) Balances(c *fiber.Ctx) error {
	var ids []uuid.UUID
	for _, raw := range strings.Split(c.Query("ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id: " + raw})
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ids is required"})
	}

	balances, err := h.admin.Balances(c.UserContext(), ids)
	if err != nil {
		return respondError(c, err)
	}
	out := make(map[string]int, len(balances))
	for id, b := range balances {
		out[id.String()] = b
	}
	return c.JSON(out)
}

// UserCreations godoc
// @Summary List a user's generation tasks
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /admin/users/{id}/creations [get]
func (h *AdminHandler) UserCreations(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	page, limit := utils.Pagination(c, 20, 100)

	tasks, total, err := h.gallery.ListCreations(c.UserContext(), userID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tasks, "total": total, "page": page, "limit": limit})
}

// ConfirmOrder godoc
// @Summary Confirm a manual payment
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param order_no path string true "Order number"
// @Success 200 {object} map[string]interface{}
// @Router /admin/orders/{order_no}/confirm [post]
func (h *AdminHandler) ConfirmOrder(c *fiber.Ctx) error {
	order, granted, err := h.billing.ConfirmOrder(c.UserContext(), c.Params("order_no"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"order": order, "granted": granted})
}

// Configs godoc
// @Summary List runtime settings
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /admin/configs [get]
func (h *AdminHandler) Configs(c *fiber.Ctx) error {
	values, err := h.admin.Configs(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(values)
}

// UpdateConfigs godoc
// @Summary Update runtime settings
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]string true "Settings"
// @Success 200 {object} map[string]string
// @Router /admin/configs [put]
func (h *AdminHandler) UpdateConfigs(c *fiber.Ctx) error {
	var values map[string]string
	if err := c.BodyParser(&values); err != nil || len(values) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	updated, err := h.admin.UpdateConfigs(c.UserContext(), actor(c), values)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// AuditLogs godoc
// @Summary List audit logs
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param entity query string false "credit, config or order"
// @Param action query string false "grant, delete, update"
// @Param page query int false "Page" default(1)
// @Success 200 {object} audit.Page
// @Router /admin/audit-logs [get]
func (h *AdminHandler) AuditLogs(c *fiber.Ctx) error {
	page, limit := utils.Pagination(c, 50, 200)
	result, err := h.admin.AuditLogs(c.UserContext(), audit.Filter{
		Entity:   c.Query("entity"),
		Action:   c.Query("action"),
		EntityID: c.Query("entity_id"),
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func creditFilter(c *fiber.Ctx) (credit.ListFilter, bool) {
	filter := credit.ListFilter{
		Status:          c.Query("status"),
		TransactionType: c.Query("type"),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, false
		}
		filter.UserID = id
	}
	return filter, true
}

// ExportCredits godoc
// @Summary Export the credit ledger
// @Description Downloads ledger rows as xlsx, pdf or csv, newest first, capped at 10000 rows
// @Tags Admin
// @Produce application/octet-stream
// @Security BearerAuth
// @Param format query string false "xlsx, pdf or csv" default(xlsx)
// @Param user_id query string false "User ID"
// @Param status query string false "active, expired or deleted"
// @Param type query string false "grant or consume"
// @Success 200 {file} file
// @Failure 400 {object} map[string]interface{}
// @Router /admin/credits/export [get]
func (h *AdminHandler) ExportCredits(c *fiber.Ctx) error {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	filter, ok := creditFilter(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
	}

	var buf bytes.Buffer
	if err := h.admin.ExportCredits(c.UserContext(), filter, format, &buf); err != nil {
		return respondError(c, err)
	}
	name := "credits-" + time.Now().UTC().Format("20060102-150405") + format.Extension()
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(buf.Bytes())
}
