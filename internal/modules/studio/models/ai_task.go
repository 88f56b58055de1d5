package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AI task status
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusSuccess    = "success"
	TaskStatusFailed     = "failed"
)

// AITask is one paid generation request.
type AITask struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	MediaType string    `gorm:"type:varchar(20);not null;index" json:"media_type"`
	Provider  string    `gorm:"type:varchar(50);not null" json:"provider"`
	Model     string    `gorm:"type:varchar(100);not null" json:"model"`
	Scene     string    `gorm:"type:varchar(50);not null" json:"scene"`
	Prompt    string    `gorm:"type:text" json:"prompt"`

	Options datatypes.JSON `json:"options,omitempty"`
	Status  string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	CostCredits         int    `gorm:"not null;default:0" json:"cost_credits"`
	CreditTransactionNo string `gorm:"type:varchar(64)" json:"credit_transaction_no,omitempty"`
	RefundTransactionNo string `gorm:"type:varchar(64)" json:"refund_transaction_no,omitempty"`

	TaskInfo datatypes.JSON `json:"task_info,omitempty"`
	Error    string         `gorm:"type:text" json:"error,omitempty"`

	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (AITask) TableName() string {
	return "ai_tasks"
}

func (t *AITask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TaskInfo is the JSON stored in ai_tasks.task_info once a task succeeds.
type TaskInfo struct {
	Images []TaskImage `json:"images"`
}

type TaskImage struct {
	ImageURL      string `json:"imageUrl"`
	Key           string `json:"key,omitempty"`
	RevisedPrompt string `json:"revisedPrompt,omitempty"`
}

// Info decodes TaskInfo. Malformed JSON yields an empty value.
func (t *AITask) Info() TaskInfo {
	var info TaskInfo
	if len(t.TaskInfo) == 0 {
		return info
	}
	if err := json.Unmarshal(t.TaskInfo, &info); err != nil {
		log.Warn().Err(err).Str("task_id", t.ID.String()).Msg("⚠️ malformed task_info")
		return TaskInfo{}
	}
	return info
}
