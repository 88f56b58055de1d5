package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an end-user account of the studio.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name  string    `gorm:"type:varchar(255)" json:"name"`
	Role  string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`

	PasswordHash string `gorm:"type:text" json:"-"`

	// OAuth
	GoogleID      *string `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	OAuthProvider string  `gorm:"column:oauth_provider;type:varchar(20);default:'email'" json:"oauth_provider"`
	AvatarURL     string  `gorm:"type:text" json:"avatar_url,omitempty"`

	// Signup fingerprint, read by the signup bonus abuse check
	IP       string `gorm:"type:varchar(64);index" json:"-"`
	DeviceID string `gorm:"type:varchar(128);index" json:"-"`

	IsActive      bool `gorm:"default:true" json:"is_active"`
	EmailVerified bool `gorm:"default:false" json:"email_verified"`

	RefreshToken          *string    `gorm:"type:text" json:"-"`
	RefreshTokenExpiresAt *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type GoogleLoginRequest struct {
	GoogleIDToken string `json:"google_id_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ClientInfo is where a signup came from. Handlers fill it from the request.
type ClientInfo struct {
	IP       string
	DeviceID string
}

type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *UserInfo `json:"user"`
}

type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	OAuthProvider string `json:"oauth_provider,omitempty"`
}

// TokenClaims is what the access token carries.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func newUserInfo(u *User) *UserInfo {
	return &UserInfo{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		AvatarURL:     u.AvatarURL,
		OAuthProvider: u.OAuthProvider,
	}
}
