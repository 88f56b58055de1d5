package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type SubscriptionRepo interface {
	// GetCurrent returns the user's active subscription covering now, or nil.
	GetCurrent(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error)
	GetByNo(ctx context.Context, subscriptionNo string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	UpdatePeriod(ctx context.Context, id uuid.UUID, start, end time.Time) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	WithTx(tx *gorm.DB) SubscriptionRepo
}

type subscriptionRepo struct {
	db *gorm.DB
}

func NewSubscriptionRepo(db *gorm.DB) SubscriptionRepo {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) WithTx(tx *gorm.DB) SubscriptionRepo {
	return &subscriptionRepo{db: tx}
}

func (r *subscriptionRepo) GetCurrent(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND current_period_end > ?", userID, models.SubscriptionActive, now).
		Order("current_period_end DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepo) GetByNo(ctx context.Context, subscriptionNo string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("subscription_no = ?", subscriptionNo).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, err
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepo) UpdatePeriod(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":               models.SubscriptionActive,
			"current_period_start": start,
			"current_period_end":   end,
		}).Error
}

func (r *subscriptionRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND current_period_end <= ?", models.SubscriptionActive, now).
		Update("status", models.SubscriptionExpired)
	return res.RowsAffected, res.Error
}
