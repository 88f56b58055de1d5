package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order kinds
const (
	OrderKindOneTime      = "one_time"
	OrderKindSubscription = "subscription"
)

// Subscription status
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Order is a purchase of a credit pack or a subscription period.
type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNo   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	UserEmail string    `gorm:"type:varchar(255)" json:"user_email"`

	Kind      string `gorm:"type:varchar(20);not null" json:"kind"`
	ProductID string `gorm:"type:varchar(50);not null" json:"product_id"`
	Credits   int    `gorm:"not null" json:"credits"`
	ValidDays int    `gorm:"not null;default:0" json:"valid_days"`

	// Amount is in minor units.
	Amount   int64  `gorm:"not null" json:"amount"`
	Currency string `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod  string     `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	PaymentLink    string     `gorm:"type:text" json:"payment_link,omitempty"`
	SubscriptionNo string     `gorm:"type:varchar(64);index" json:"subscription_no,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type Subscription struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"subscription_no"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Plan               string    `gorm:"type:varchar(50);not null" json:"plan"`
	Status             string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreditsPerPeriod   int       `gorm:"not null" json:"credits_per_period"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `gorm:"index" json:"current_period_end"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the subscription covers t.
func (s *Subscription) IsActive(t time.Time) bool {
	return s.Status == SubscriptionActive && s.CurrentPeriodEnd.After(t)
}
