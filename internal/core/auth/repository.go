package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	GetUserByRefreshToken(ctx context.Context, token string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	LinkGoogle(ctx context.Context, id uuid.UUID, googleID, avatarURL string) error
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateUser(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *repository) first(ctx context.Context, query string, args ...interface{}) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where(query, args...).Where("is_active = ?", true).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *repository) GetUserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	return r.first(ctx, "google_id = ?", googleID)
}

func (r *repository) GetUserByRefreshToken(ctx context.Context, token string) (*User, error) {
	u, err := r.first(ctx, "refresh_token = ?", token)
	if err != nil {
		return nil, err
	}
	if u.RefreshTokenExpiresAt != nil && u.RefreshTokenExpiresAt.Before(time.Now()) {
		return nil, ErrInvalidRefreshToken
	}
	return u, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

func (r *repository) LinkGoogle(ctx context.Context, id uuid.UUID, googleID, avatarURL string) error {
	updates := map[string]interface{}{"google_id": googleID, "email_verified": true}
	if avatarURL != "" {
		updates["avatar_url"] = avatarURL
	}
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"refresh_token":            token,
			"refresh_token_expires_at": expiresAt,
		}).Error
}

func (r *repository) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"refresh_token":            nil,
			"refresh_token_expires_at": nil,
		}).Error
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now().UTC()).Error
}
