package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultQueue = "default"

// Queue is a Postgres-backed job queue.
type Queue struct {
	db  *gorm.DB
	now func() time.Time
}

func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (q *Queue) Enqueue(ctx context.Context, userID uuid.UUID, jobType string, payload interface{}, opts EnqueueOptions) (*Job, error) {
	return q.EnqueueTx(ctx, q.db, userID, jobType, payload, opts)
}

// EnqueueTx inserts the job with the caller's transaction so it only becomes
// visible to workers once that transaction commits.
func (q *Queue) EnqueueTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, jobType string, payload interface{}, opts EnqueueOptions) (*Job, error) {
	if opts.Queue == "" {
		opts.Queue = DefaultQueue
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Priority == 0 {
		opts.Priority = PriorityNormal
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	job := &Job{
		UserID:      userID,
		Queue:       opts.Queue,
		Type:        jobType,
		Payload:     payloadJSON,
		Status:      StatusPending,
		Priority:    opts.Priority,
		MaxRetries:  opts.MaxRetries,
		ScheduledAt: opts.ScheduleAt,
	}
	if err := tx.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// Dequeue claims the next runnable job, or returns (nil, nil) when none is ready.
// SKIP LOCKED lets several workers poll the same queue without blocking.
func (q *Queue) Dequeue(ctx context.Context, queueName string) (*Job, error) {
	var job Job
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := q.now()
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("queue = ? AND status IN ?", queueName, []JobStatus{StatusPending, StatusRetrying}).
			Where("(scheduled_at IS NULL OR scheduled_at <= ?)", now).
			Order("priority DESC").
			Order("created_at ASC").
			First(&job).Error
		if err != nil {
			return err
		}

		job.Status = StatusProcessing
		job.StartedAt = &now
		job.Attempts++
		return tx.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"status":     job.Status,
			"started_at": now,
			"attempts":   job.Attempts,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return &job, nil
}

func (q *Queue) MarkCompleted(ctx context.Context, jobID uuid.UUID, result interface{}) error {
	updates := map[string]interface{}{
		"status":       StatusCompleted,
		"completed_at": q.now(),
		"error":        "",
	}
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to serialize result: %w", err)
		}
		updates["result"] = b
	}
	return q.db.WithContext(ctx).Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error
}

// MarkFailed schedules a retry with exponential backoff, or marks the job
// failed for good. It reports whether the failure is final.
func (q *Queue) MarkFailed(ctx context.Context, jobID uuid.UUID, cause error) (bool, error) {
	var job Job
	if err := q.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return false, fmt.Errorf("failed to find job: %w", err)
	}

	now := q.now()
	updates := map[string]interface{}{
		"error":     cause.Error(),
		"failed_at": now,
	}
	final := job.Attempts >= job.MaxRetries
	if final {
		updates["status"] = StatusFailed
		updates["completed_at"] = now
	} else {
		updates["status"] = StatusRetrying
		updates["scheduled_at"] = now.Add(backoff(job.Attempts))
	}

	if err := q.db.WithContext(ctx).Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		return false, err
	}
	return final, nil
}

func (q *Queue) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	var job Job
	if err := q.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ReclaimStale releases jobs stuck in processing since before olderThan, as
// left behind by a worker that died mid-job. Each counts as a failed attempt:
// jobs with retries left go back to retrying, the rest fail for good and are
// returned so the caller can run their failure hooks.
func (q *Queue) ReclaimStale(ctx context.Context, queueName string, olderThan time.Duration) (int, []Job, error) {
	now := q.now()
	cutoff := now.Add(-olderThan)

	var (
		reclaimed int
		finals    []Job
	)
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []Job
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("queue = ? AND status = ? AND started_at < ?", queueName, StatusProcessing, cutoff).
			Find(&stale).Error
		if err != nil {
			return err
		}

		for _, job := range stale {
			updates := map[string]interface{}{
				"error":     ErrJobAbandoned.Error(),
				"failed_at": now,
			}
			final := job.Attempts >= job.MaxRetries
			if final {
				updates["status"] = StatusFailed
				updates["completed_at"] = now
			} else {
				updates["status"] = StatusRetrying
				updates["scheduled_at"] = now
			}
			res := tx.Model(&Job{}).Where("id = ? AND status = ?", job.ID, StatusProcessing).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				continue
			}
			reclaimed++
			if final {
				job.Status = StatusFailed
				job.Error = ErrJobAbandoned.Error()
				finals = append(finals, job)
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}
	return reclaimed, finals, nil
}

// DeleteOldJobs removes finished jobs older than olderThan.
func (q *Queue) DeleteOldJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := q.now().Add(-olderThan)
	res := q.db.WithContext(ctx).
		Where("status IN ? AND completed_at < ?", []JobStatus{StatusCompleted, StatusFailed}, cutoff).
		Delete(&Job{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// backoff is 2^attempt seconds, capped at one hour.
func backoff(attempt int) time.Duration {
	if attempt > 12 {
		return time.Hour
	}
	d := time.Duration(1<<attempt) * time.Second
	if d > time.Hour {
		return time.Hour
	}
	return d
}
