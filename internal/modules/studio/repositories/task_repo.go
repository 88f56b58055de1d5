package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrTaskNotFound = errors.New("task not found")

type TaskFilter struct {
	UserID    uuid.UUID
	MediaType string
	Status    string
	Page      int
	Limit     int
}

type TaskRepo interface {
	Create(ctx context.Context, task *models.AITask) error
	// Get includes soft-deleted tasks.
	Get(ctx context.Context, id uuid.UUID) (*models.AITask, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.AITask, error)
	List(ctx context.Context, f TaskFilter) ([]models.AITask, int64, error)
	SoftDelete(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSuccess(ctx context.Context, id uuid.UUID, info datatypes.JSON, at time.Time) error
	// MarkFailed moves an unfinished task to failed and reports whether this
	// call made the transition.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
	SetRefund(ctx context.Context, id uuid.UUID, transactionNo string) error
	WithTx(tx *gorm.DB) TaskRepo
}

type taskRepo struct {
	db *gorm.DB
}

func NewTaskRepo(db *gorm.DB) TaskRepo {
	return &taskRepo{db: db}
}

func (r *taskRepo) WithTx(tx *gorm.DB) TaskRepo {
	return &taskRepo{db: tx}
}

func (r *taskRepo) Create(ctx context.Context, task *models.AITask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepo) Get(ctx context.Context, id uuid.UUID) (*models.AITask, error) {
	var task models.AITask
	err := r.db.WithContext(ctx).Unscoped().First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	return &task, err
}

func (r *taskRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.AITask, error) {
	var task models.AITask
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	return &task, err
}

func (r *taskRepo) List(ctx context.Context, f TaskFilter) ([]models.AITask, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AITask{})
	if f.UserID != uuid.Nil {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.MediaType != "" {
		query = query.Where("media_type = ?", f.MediaType)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}

	var tasks []models.AITask
	err := query.Order("created_at DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&tasks).Error
	return tasks, total, err
}

func (r *taskRepo) SoftDelete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.AITask{})
	return res.RowsAffected > 0, res.Error
}

func (r *taskRepo) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AITask{}).
		Where("id = ? AND status IN ?", id, []string{models.TaskStatusPending, models.TaskStatusProcessing}).
		Update("status", models.TaskStatusProcessing)
	return res.RowsAffected > 0, res.Error
}

func (r *taskRepo) MarkSuccess(ctx context.Context, id uuid.UUID, info datatypes.JSON, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AITask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.TaskStatusSuccess,
			"task_info":    info,
			"error":        "",
			"completed_at": at,
		}).Error
}

func (r *taskRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Unscoped().Model(&models.AITask{}).
		Where("id = ? AND status IN ?", id, []string{models.TaskStatusPending, models.TaskStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       models.TaskStatusFailed,
			"error":        reason,
			"completed_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *taskRepo) SetRefund(ctx context.Context, id uuid.UUID, transactionNo string) error {
	return r.db.WithContext(ctx).Unscoped().Model(&models.AITask{}).
		Where("id = ?", id).
		Update("refund_transaction_no", transactionNo).Error
}
