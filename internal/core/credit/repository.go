package credit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence boundary of the ledger.
type Repository interface {
	Create(ctx context.Context, c *Credit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Credit, error)
	SumAvailable(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	SumAvailableByUsers(ctx context.Context, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int, error)
	LockAvailable(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]Credit, error)
	UpdateRemaining(ctx context.Context, id uuid.UUID, remaining int) error
	SumConsumedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	List(ctx context.Context, f ListFilter) ([]Credit, error)
	Count(ctx context.Context, f ListFilter) (int64, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// Transaction runs fn against a repository bound to a single DB transaction.
	Transaction(ctx context.Context, fn func(r Repository) error) error
	// WithTx binds the repository to a transaction opened by the caller.
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

// available scopes a query to grants that still count toward the balance.
func available(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("transaction_type = ? AND status = ? AND remaining_credits > 0", TypeGrant, StatusActive).
			Where("(expires_at IS NULL OR expires_at > ?)", now)
	}
}

func (r *repository) Create(ctx context.Context, c *Credit) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Credit, error) {
	var c Credit
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCreditNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) SumAvailable(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&Credit{}).
		Scopes(available(now)).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(remaining_credits), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) SumAvailableByUsers(ctx context.Context, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int, error) {
	result := make(map[uuid.UUID]int, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	for _, id := range userIDs {
		result[id] = 0
	}

	var rows []struct {
		UserID uuid.UUID
		Total  int
	}
	err := r.db.WithContext(ctx).Model(&Credit{}).
		Scopes(available(now)).
		Where("user_id IN ?", userIDs).
		Select("user_id, COALESCE(SUM(remaining_credits), 0) AS total").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.UserID] = row.Total
	}
	return result, nil
}

// LockAvailable returns the next page of drawable grants, soonest expiry first
// and never-expiring grants last, locked FOR UPDATE. Drained rows fall out of
// the predicate, so callers always read from the start.
func (r *repository) LockAvailable(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]Credit, error) {
	var rows []Credit
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(available(now)).
		Where("user_id = ?", userID).
		Order("CASE WHEN expires_at IS NULL THEN 1 ELSE 0 END").
		Order("expires_at ASC").
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateRemaining(ctx context.Context, id uuid.UUID, remaining int) error {
	return r.db.WithContext(ctx).Model(&Credit{}).
		Where("id = ?", id).
		Update("remaining_credits", remaining).Error
}

func (r *repository) SumConsumedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&Credit{}).
		Where("user_id = ? AND transaction_type = ? AND status = ? AND created_at >= ?",
			userID, TypeConsume, StatusActive, since).
		Select("COALESCE(SUM(-credits), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) filtered(ctx context.Context, f ListFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Credit{})
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TransactionType != "" {
		q = q.Where("transaction_type = ?", f.TransactionType)
	}
	return q
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Credit, error) {
	f = f.normalized()
	var rows []Credit
	err := r.filtered(ctx, f).
		Order("created_at DESC").
		Order("id DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Count(ctx context.Context, f ListFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, f).Count(&n).Error
	return n, err
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&Credit{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCreditNotFound
	}
	return nil
}

func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Credit{}).
		Where("transaction_type = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			TypeGrant, StatusActive, now).
		Update("status", StatusExpired)
	return res.RowsAffected, res.Error
}
