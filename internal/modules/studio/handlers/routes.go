package handlers

import (
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/auth"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	AI      *AIHandler
	Gallery *GalleryHandler
	Credit  *CreditHandler
	Billing *BillingHandler
	Admin   *AdminHandler
}

// RegisterRoutes mounts the studio API. protected must authenticate the caller.
func RegisterRoutes(router fiber.Router, h Handlers, protected fiber.Handler) {
	router.Get("/billing/products", h.Billing.Products)
	router.Post("/webhooks/payment", h.Billing.PaymentWebhook)

	ai := router.Group("/ai", protected)
	ai.Post("/generate", h.AI.Generate)
	ai.Get("/tasks/:id", h.AI.GetTask)

	user := router.Group("/user", protected)
	user.Get("/images", h.Gallery.ListImages)
	user.Delete("/images/:taskId", h.Gallery.DeleteImage)

	credits := router.Group("/credits", protected)
	credits.Get("/balance", h.Credit.Balance)
	credits.Get("/", h.Credit.History)

	router.Post("/orders", protected, h.Billing.CreateOrder)
	router.Get("/orders", protected, h.Billing.ListOrders)
	router.Get("/subscriptions/current", protected, h.Billing.CurrentSubscription)

	admin := router.Group("/admin", protected, auth.RequireRole(auth.RoleAdmin))
	admin.Post("/credits/grant", h.Admin.GrantCredits)
	admin.Get("/credits", h.Admin.ListCredits)
	admin.Get("/credits/export", h.Admin.ExportCredits)
	admin.Delete("/credits/:id", h.Admin.DeleteCredit)
	admin.Get("/users/balances", h.Admin.Balances)
	admin.Get("/users/:id/creations", h.Admin.UserCreations)
	admin.Post("/orders/:order_no/confirm", h.Admin.ConfirmOrder)
	admin.Get("/configs", h.Admin.Configs)
	admin.Put("/configs", h.Admin.UpdateConfigs)
	admin.Get("/audit-logs", h.Admin.AuditLogs)
}
