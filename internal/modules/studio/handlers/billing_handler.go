package handlers

import (
	"errors"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/payment"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type BillingHandler struct {
	billing  *services.BillingService
	verifier *payment.Verifier
}

func NewBillingHandler(billing *services.BillingService, verifier *payment.Verifier) *BillingHandler {
	return &BillingHandler{billing: billing, verifier: verifier}
}

type CreateOrderRequest struct {
	ProductID string `json:"product_id"`
}

// Products godoc
// @Summary List credit packs and subscription plans
// @Tags Billing
// @Produce json
// @Success 200 {array} services.Product
// @Router /billing/products [get]
func (h *BillingHandler) Products(c *fiber.Ctx) error {
	return c.JSON(services.Catalog())
}

// CreateOrder godoc
// @Summary Buy a product
// @Description Creates a pending order and returns payment instructions or a checkout link
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateOrderRequest true "Product"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /orders [post]
func (h *BillingHandler) CreateOrder(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product_id is required"})
	}

	order, checkout, err := h.billing.CreateOrder(c.UserContext(), caller, req.ProductID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order":   order,
		"payment": checkout,
	})
}

// ListOrders godoc
// @Summary List my orders
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Order
// @Router /orders [get]
func (h *BillingHandler) ListOrders(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	orders, err := h.billing.ListOrders(c.UserContext(), caller.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// CurrentSubscription godoc
// @Summary Get my active subscription
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /subscriptions/current [get]
func (h *BillingHandler) CurrentSubscription(c *fiber.Ctx) error {
	caller, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	sub, err := h.billing.CurrentSubscription(c.UserContext(), caller.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"subscription": sub})
}

// PaymentWebhook godoc
// @Summary Payment provider webhook
// @Description Signed with hex HMAC-SHA256 of the raw body in X-Signature
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Signature header string true "HMAC-SHA256 signature"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /webhooks/payment [post]
func (h *BillingHandler) PaymentWebhook(c *fiber.Ctx) error {
	ev, err := h.verifier.ParseEvent(c.Body(), c.Get(payment.SignatureHeader))
	if errors.Is(err, payment.ErrInvalidSignature) {
		log.Warn().Str("ip", c.IP()).Msg("⚠️ payment webhook with bad signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	log.Info().Str("event", ev.Type).Str("order_no", ev.OrderNo).Msg("📥 payment webhook received")
	if err := h.billing.HandleEvent(c.UserContext(), ev); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
