package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusRetrying   JobStatus = "retrying"
)

type JobPriority int

const (
	PriorityLow    JobPriority = 0
	PriorityNormal JobPriority = 5
	PriorityHigh   JobPriority = 10
)

// Job is a unit of background work persisted in the jobs table.
type Job struct {
	ID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Queue   string         `gorm:"type:varchar(100);not null;index" json:"queue"`
	Type    string         `gorm:"type:varchar(100);not null" json:"type"`
	Payload datatypes.JSON `json:"payload"`

	Status   JobStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority JobPriority `gorm:"not null;default:5" json:"priority"`

	Attempts   int `gorm:"not null;default:0" json:"attempts"`
	MaxRetries int `gorm:"not null;default:3" json:"max_retries"`

	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	Error  string         `gorm:"type:text" json:"error,omitempty"`
	Result datatypes.JSON `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// Handler runs one job type.
type Handler interface {
	Type() string
	Handle(ctx context.Context, job *Job) error
}

// FailureHandler is implemented by handlers that must compensate when a job
// exhausts its retries.
type FailureHandler interface {
	OnPermanentFailure(ctx context.Context, job *Job, err error) error
}

type EnqueueOptions struct {
	Queue      string
	Priority   JobPriority
	MaxRetries int
	ScheduleAt *time.Time
}

type WorkerConfig struct {
	Queue        string
	Concurrency  int
	PollInterval time.Duration
	Timeout      time.Duration
}

func DefaultWorkerConfig(queue string) WorkerConfig {
	return WorkerConfig{
		Queue:        queue,
		Concurrency:  3,
		PollInterval: time.Second,
		Timeout:      5 * time.Minute,
	}
}
