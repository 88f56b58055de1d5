package payment

import (
	"context"
	"time"

	"go.jetify.com/typeid/v2"
)

// Gateway starts payment for an order. Completion always arrives through the
// signed webhook or an admin confirmation.
type Gateway interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	Name() string
}

type CheckoutRequest struct {
	OrderNo     string
	UserEmail   string
	Amount      int64
	Currency    string
	Description string
}

type CheckoutResult struct {
	Method       string     `json:"method"`
	PaymentLink  string     `json:"payment_link,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Order status values.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

const (
	MethodManual = "manual"
	MethodHosted = "hosted"
)

// NewOrderNo returns a sortable order number such as ord_01h2xcejqtf2nbrexx3vqjhp41.
func NewOrderNo() (string, error) {
	return newNo("ord")
}

func NewSubscriptionNo() (string, error) {
	return newNo("sub")
}

func newNo(prefix string) (string, error) {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		return "", err
	}
	return tid.String(), nil
}
