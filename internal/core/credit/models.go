package credit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction types
const (
	TypeGrant   = "grant"
	TypeConsume = "consume"
)

// Statuses. Rows are never removed; deleted and expired grants only change status.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
	StatusDeleted = "deleted"
)

// Scenes recorded on grants. Consumption rows carry the caller's scene
// (for example "text-to-image").
const (
	ScenePayment      = "payment"
	SceneSubscription = "subscription"
	SceneRenewal      = "renewal"
	SceneGift         = "gift"
	SceneReward       = "reward"
	SceneRefund       = "refund"
)

// Credit is one row of the ledger. A grant starts with RemainingCredits equal
// to Credits and is drawn down by consumption; a consume row stores the
// negative amount and leaves RemainingCredits at zero.
type Credit struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionNo    string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	UserEmail        string         `gorm:"type:varchar(255)" json:"user_email,omitempty"`
	OrderNo          string         `gorm:"type:varchar(64);index" json:"order_no,omitempty"`
	SubscriptionNo   string         `gorm:"type:varchar(64)" json:"subscription_no,omitempty"`
	TransactionType  string         `gorm:"type:varchar(20);not null" json:"transaction_type"`
	TransactionScene string         `gorm:"type:varchar(50)" json:"transaction_scene"`
	Credits          int            `gorm:"not null" json:"credits"`
	RemainingCredits int            `gorm:"not null;default:0" json:"remaining_credits"`
	Description      string         `gorm:"type:text" json:"description,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at"`
	Status           string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	ConsumedDetail   datatypes.JSON `json:"consumed_detail,omitempty"`
	Metadata         datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (Credit) TableName() string {
	return "credits"
}

func (c *Credit) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.TransactionNo == "" {
		no, err := NewTransactionNo()
		if err != nil {
			return err
		}
		c.TransactionNo = no
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	return nil
}

// IsAvailable reports whether the grant can still be drawn at t.
func (c *Credit) IsAvailable(t time.Time) bool {
	if c.TransactionType != TypeGrant || c.Status != StatusActive || c.RemainingCredits <= 0 {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(t)
}

// ConsumedItem records how much one consumption took from one grant. The
// JSON keys are part of the stored consumed_detail format.
type ConsumedItem struct {
	CreditID         uuid.UUID  `json:"creditId"`
	TransactionNo    string     `json:"transactionNo"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	CreditsToConsume int        `json:"creditsToConsume"`
	CreditsConsumed  int        `json:"creditsConsumed"`
	CreditsBefore    int        `json:"creditsBefore"`
	CreditsAfter     int        `json:"creditsAfter"`
	BatchNo          int        `json:"batchNo"`
	BatchSize        int        `json:"batchSize"`
}

// ConsumeRequest describes a debit against a user's balance.
type ConsumeRequest struct {
	UserID      uuid.UUID
	UserEmail   string
	Credits     int
	Scene       string
	Description string
	Metadata    map[string]interface{}
}

// GrantRequest describes a new grant.
//
// ValidDays <= 0 means the grant never expires. When ValidDays is positive
// and PeriodEnd is set, the grant expires with the subscription period
// instead of ValidDays from now.
type GrantRequest struct {
	UserID         uuid.UUID
	UserEmail      string
	Credits        int
	ValidDays      int
	PeriodEnd      *time.Time
	Scene          string
	Description    string
	OrderNo        string
	SubscriptionNo string
	Metadata       map[string]interface{}
}

// ListFilter narrows ListCredits/CountCredits. Zero values match everything.
type ListFilter struct {
	UserID          uuid.UUID
	Status          string
	TransactionType string
	Page            int
	Limit           int
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 30
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}
