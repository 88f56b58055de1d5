package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const SignatureHeader = "X-Signature"

const (
	EventOrderPaid        = "order.paid"
	EventSubscriptionPaid = "subscription.paid"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownEvent     = errors.New("unknown webhook event")
)

// Event is the webhook body sent by the payment provider.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	OrderNo string `json:"order_no"`

	// subscription.paid only
	SubscriptionNo     string     `json:"subscription_no,omitempty"`
	Plan               string     `json:"plan,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`

	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// Verifier checks hex HMAC-SHA256 signatures over raw request bodies.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *Verifier) Verify(body []byte, signature string) error {
	if len(v.secret) == 0 || signature == "" {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseEvent verifies the signature and decodes the body.
func (v *Verifier) ParseEvent(body []byte, signature string) (*Event, error) {
	if err := v.Verify(body, signature); err != nil {
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}
	switch ev.Type {
	case EventOrderPaid:
	case EventSubscriptionPaid:
		if ev.CurrentPeriodEnd == nil {
			return nil, fmt.Errorf("subscription.paid requires current_period_end")
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Type)
	}
	if ev.OrderNo == "" {
		return nil, fmt.Errorf("order_no is required")
	}
	return &ev, nil
}
