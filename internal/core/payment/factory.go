package payment

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

type GatewayConfig struct {
	Mode          string
	CheckoutURL   string
	AccountInfo   string
	WebhookSecret string
}

// NewGateway picks the gateway for PAYMENT_MODE.
func NewGateway(cfg GatewayConfig) (Gateway, error) {
	switch cfg.Mode {
	case "", "manual":
		log.Info().Msg("💳 Using manual payment gateway")
		return NewManualGateway(cfg.AccountInfo), nil
	case "hosted":
		if cfg.CheckoutURL == "" {
			return nil, fmt.Errorf("PAYMENT_CHECKOUT_URL is required for hosted payment mode")
		}
		if cfg.WebhookSecret == "" {
			return nil, fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required for hosted payment mode")
		}
		log.Info().Str("url", cfg.CheckoutURL).Msg("💳 Using hosted checkout gateway")
		return NewHostedGateway(cfg.CheckoutURL, NewVerifier(cfg.WebhookSecret)), nil
	default:
		log.Warn().Str("mode", cfg.Mode).Msg("⚠️ unknown payment mode, defaulting to manual")
		return NewManualGateway(cfg.AccountInfo), nil
	}
}
