package payment

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// HostedGateway redirects to a provider checkout page. The provider reports
// the result to POST /webhooks/payment.
type HostedGateway struct {
	checkoutURL string
	verifier    *Verifier
	ttl         time.Duration
	now         func() time.Time
}

func NewHostedGateway(checkoutURL string, verifier *Verifier) *HostedGateway {
	return &HostedGateway{
		checkoutURL: checkoutURL,
		verifier:    verifier,
		ttl:         time.Hour,
		now:         time.Now,
	}
}

func (g *HostedGateway) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	u, err := url.Parse(g.checkoutURL)
	if err != nil {
		return nil, fmt.Errorf("invalid checkout url: %w", err)
	}
	expires := g.now().UTC().Add(g.ttl)

	q := u.Query()
	q.Set("order_no", req.OrderNo)
	q.Set("amount", fmt.Sprintf("%d", req.Amount))
	q.Set("currency", req.Currency)
	q.Set("email", req.UserEmail)
	q.Set("expires", fmt.Sprintf("%d", expires.Unix()))
	q.Set("sig", g.verifier.Sign([]byte(q.Encode())))
	u.RawQuery = q.Encode()

	return &CheckoutResult{
		Method:      MethodHosted,
		PaymentLink: u.String(),
		ExpiresAt:   &expires,
	}, nil
}

func (g *HostedGateway) Name() string {
	return "hosted"
}
