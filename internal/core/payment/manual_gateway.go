package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ManualGateway hands the order to an admin, who confirms it once the
// transfer has been received.
type ManualGateway struct {
	accountInfo string
}

func NewManualGateway(accountInfo string) *ManualGateway {
	return &ManualGateway{accountInfo: accountInfo}
}

func (g *ManualGateway) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.OrderNo == "" {
		return nil, fmt.Errorf("order number is required")
	}
	log.Info().Str("order_no", req.OrderNo).Int64("amount", req.Amount).Msg("💳 manual payment requested")
	return &CheckoutResult{
		Method:       MethodManual,
		Instructions: g.instructions(req),
	}, nil
}

func (g *ManualGateway) Name() string {
	return "manual"
}

func (g *ManualGateway) instructions(req CheckoutRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order: %s\n", req.OrderNo)
	if req.Description != "" {
		fmt.Fprintf(&b, "Item: %s\n", req.Description)
	}
	fmt.Fprintf(&b, "Total: %s\n", FormatAmount(req.Amount, req.Currency))
	if g.accountInfo != "" {
		fmt.Fprintf(&b, "Transfer to: %s\n", g.accountInfo)
	}
	b.WriteString("Credits are added as soon as an admin confirms the payment.")
	return b.String()
}

// FormatAmount renders minor units, e.g. 1999 USD as "USD 19.99".
func FormatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %d.%02d", strings.ToUpper(currency), amount/100, amount%100)
}
