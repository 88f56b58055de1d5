package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionGrant  = "grant"
	ActionDelete = "delete"
	ActionUpdate = "update"
	ActionExpire = "expire"
)

const (
	EntityCredit = "credit"
	EntityConfig = "config"
	EntityOrder  = "order"
)

// AuditLog records an administrative change.
type AuditLog struct {
	ID      uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ActorID *uuid.UUID `json:"actor_id,omitempty" gorm:"type:uuid;index"`

	Action   string `json:"action" gorm:"type:varchar(50);not null;index"`
	Entity   string `json:"entity" gorm:"type:varchar(50);not null;index"`
	EntityID string `json:"entity_id" gorm:"type:varchar(100);index"`

	OldValue datatypes.JSON `json:"old_value,omitempty"`
	NewValue datatypes.JSON `json:"new_value,omitempty"`

	IPAddress   string `json:"ip_address,omitempty" gorm:"type:varchar(64)"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Entry is what callers hand to Record.
type Entry struct {
	ActorID     uuid.UUID
	Action      string
	Entity      string
	EntityID    string
	Old         interface{}
	New         interface{}
	IP          string
	Description string
}

type Filter struct {
	ActorID  *uuid.UUID
	Action   string
	Entity   string
	EntityID string
	Since    *time.Time
	Page     int
	PageSize int
}

type Page struct {
	Logs       []AuditLog `json:"logs"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
