package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	// MarkPaid moves a pending order to paid and reports whether this call
	// made the transition.
	MarkPaid(ctx context.Context, orderNo, method string, paidAt time.Time) (bool, error)
	SetSubscriptionNo(ctx context.Context, orderNo, subscriptionNo string) error
	Cancel(ctx context.Context, orderNo string) (bool, error)
	WithTx(tx *gorm.DB) OrderRepo
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepo {
	return &orderRepo{db: db}
}

func (r *orderRepo) WithTx(tx *gorm.DB) OrderRepo {
	return &orderRepo{db: tx}
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	return &order, err
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&orders).Error
	return orders, err
}

func (r *orderRepo) MarkPaid(ctx context.Context, orderNo, method string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_no = ? AND status = ?", orderNo, "pending").
		Updates(map[string]interface{}{
			"status":         "paid",
			"payment_method": method,
			"paid_at":        paidAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *orderRepo) SetSubscriptionNo(ctx context.Context, orderNo, subscriptionNo string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_no = ?", orderNo).
		Update("subscription_no", subscriptionNo).Error
}

func (r *orderRepo) Cancel(ctx context.Context, orderNo string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_no = ? AND status = ?", orderNo, "pending").
		Update("status", "cancelled")
	return res.RowsAffected == 1, res.Error
}
