package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

var ErrGoogleNotConfigured = errors.New("google sign-in is not configured")

// GoogleVerifier turns a Google ID token into a verified identity.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*GoogleUserInfo, error)
}

type GoogleUserInfo struct {
	GoogleID  string
	Email     string
	Name      string
	AvatarURL string
}

// GoogleOAuthService validates ID tokens issued to any of the configured
// OAuth client IDs (web and mobile apps have separate ones).
type GoogleOAuthService struct {
	audiences []string
	validate  func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleOAuthService takes a comma separated list of client IDs.
func NewGoogleOAuthService(clientIDs string) *GoogleOAuthService {
	var audiences []string
	for _, id := range strings.Split(clientIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			audiences = append(audiences, id)
		}
	}
	return &GoogleOAuthService{audiences: audiences, validate: idtoken.Validate}
}

func (s *GoogleOAuthService) VerifyIDToken(ctx context.Context, idToken string) (*GoogleUserInfo, error) {
	if len(s.audiences) == 0 {
		return nil, ErrGoogleNotConfigured
	}

	var payload *idtoken.Payload
	var err error
	for _, aud := range s.audiences {
		payload, err = s.validate(ctx, idToken, aud)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify Google ID token: %w", err)
	}
	return userInfoFromClaims(payload.Subject, payload.Claims)
}

func userInfoFromClaims(subject string, claims map[string]interface{}) (*GoogleUserInfo, error) {
	if subject == "" {
		subject, _ = claims["sub"].(string)
	}
	if subject == "" {
		return nil, fmt.Errorf("missing sub claim in token")
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("missing email claim in token")
	}
	// email_verified arrives as a bool or as the string "true"
	switch v := claims["email_verified"].(type) {
	case bool:
		if !v {
			return nil, fmt.Errorf("email not verified by Google")
		}
	case string:
		if v != "true" {
			return nil, fmt.Errorf("email not verified by Google")
		}
	default:
		return nil, fmt.Errorf("email not verified by Google")
	}

	name, _ := claims["name"].(string)
	avatarURL, _ := claims["picture"].(string)
	return &GoogleUserInfo{
		GoogleID:  subject,
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
	}, nil
}
