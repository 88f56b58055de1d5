package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
)

// SignupGranter hands out the welcome bonus for a freshly created account.
type SignupGranter interface {
	Grant(ctx context.Context, u credit.Registrant) (*credit.Credit, error)
}

type Service struct {
	repo   Repository
	jwt    *JWTService
	signup SignupGranter
}

func NewService(repo Repository, jwt *JWTService, signup SignupGranter) *Service {
	return &Service{repo: repo, jwt: jwt, signup: signup}
}

// Register creates an email/password account and grants the signup bonus.
func (s *Service) Register(ctx context.Context, req *RegisterRequest, client ClientInfo) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:         email,
		Name:          strings.TrimSpace(req.Name),
		Role:          RoleUser,
		PasswordHash:  hash,
		OAuthProvider: "email",
		IP:            client.IP,
		DeviceID:      client.DeviceID,
		IsActive:      true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("✅ User registered")

	s.afterSignup(ctx, user)
	return s.issueTokens(ctx, user)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.PasswordHash == "" || VerifyPassword(user.PasswordHash, req.Password) != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to update last login")
	}
	return s.issueTokens(ctx, user)
}

// LoginWithGoogle signs in a verified Google identity, linking it to an
// existing email account or creating a new one.
func (s *Service) LoginWithGoogle(ctx context.Context, g *GoogleUserInfo, client ClientInfo) (*AuthResponse, error) {
	user, err := s.repo.GetUserByGoogleID(ctx, g.GoogleID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		user, err = s.repo.GetUserByEmail(ctx, normalizeEmail(g.Email))
		switch {
		case err == nil:
			if err := s.repo.LinkGoogle(ctx, user.ID, g.GoogleID, g.AvatarURL); err != nil {
				return nil, fmt.Errorf("failed to link google account: %w", err)
			}
		case errors.Is(err, ErrUserNotFound):
			googleID := g.GoogleID
			user = &User{
				Email:         normalizeEmail(g.Email),
				Name:          g.Name,
				Role:          RoleUser,
				GoogleID:      &googleID,
				OAuthProvider: "google",
				AvatarURL:     g.AvatarURL,
				IP:            client.IP,
				DeviceID:      client.DeviceID,
				IsActive:      true,
				EmailVerified: true,
			}
			if err := s.repo.CreateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to create user: %w", err)
			}
			log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("✅ New Google user registered")
			s.afterSignup(ctx, user)
		default:
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to update last login")
	}
	return s.issueTokens(ctx, user)
}

func (s *Service) RefreshToken(ctx context.Context, token string) (*AuthResponse, error) {
	userID, err := s.jwt.ValidateRefreshToken(token)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.repo.GetUserByRefreshToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if user.ID.String() != userID {
		return nil, ErrInvalidRefreshToken
	}
	return s.issueTokens(ctx, user)
}

func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.RevokeRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) ValidateToken(token string) (*TokenClaims, error) {
	return s.jwt.ValidateAccessToken(token)
}

// afterSignup never fails the registration; a missed bonus is logged.
func (s *Service) afterSignup(ctx context.Context, u *User) {
	if s.signup == nil {
		return
	}
	c, err := s.signup.Grant(ctx, credit.Registrant{
		ID:        u.ID,
		Email:     u.Email,
		IP:        u.IP,
		DeviceID:  u.DeviceID,
		CreatedAt: u.CreatedAt,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to grant signup credits")
		return
	}
	if c != nil {
		log.Info().Str("user_id", u.ID.String()).Int("credits", c.Credits).Msg("signup credits granted")
	}
}

func (s *Service) issueTokens(ctx context.Context, u *User) (*AuthResponse, error) {
	access, expiresIn, err := s.jwt.GenerateAccessToken(&TokenClaims{
		UserID: u.ID.String(),
		Email:  u.Email,
		Role:   u.Role,
	})
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.jwt.GenerateRefreshToken(u.ID.String())
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRefreshToken(ctx, u.ID, refresh, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
		User:         newUserInfo(u),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
