package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	BcryptCost = bcrypt.MinCost
}

type recordingGranter struct {
	got []credit.Registrant
	err error
}

func (g *recordingGranter) Grant(_ context.Context, u credit.Registrant) (*credit.Credit, error) {
	g.got = append(g.got, u)
	if g.err != nil {
		return nil, g.err
	}
	return &credit.Credit{UserID: u.ID, Credits: 10}, nil
}

func newTestService(t *testing.T) (*Service, *recordingGranter) {
	t.Helper()
	db := testutil.NewDB(t, &User{})
	granter := &recordingGranter{}
	return NewService(NewRepository(db), NewJWTService("test-secret"), granter), granter
}

func TestRegister_GrantsSignupBonusWithFingerprint(t *testing.T) {
	svc, granter := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &RegisterRequest{Email: " Alice@Example.com ", Password: "password1", Name: "Alice"},
		ClientInfo{IP: "203.0.113.7", DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	require.Len(t, granter.got, 1)
	assert.Equal(t, "203.0.113.7", granter.got[0].IP)
	assert.Equal(t, "dev-1", granter.got[0].DeviceID)
	assert.Equal(t, resp.User.ID, granter.got[0].ID.String())
}

func TestRegister_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Email: "a@b.c", Password: "short"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(ctx, &RegisterRequest{Email: "a@b.c", Password: "password1"}, ClientInfo{})
	require.NoError(t, err)
	_, err = svc.Register(ctx, &RegisterRequest{Email: "A@B.C", Password: "password1"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_BonusFailureDoesNotFailSignup(t *testing.T) {
	svc, granter := newTestService(t)
	granter.err = errors.New("db down")

	resp, err := svc.Register(context.Background(), &RegisterRequest{Email: "b@b.c", Password: "password1"}, ClientInfo{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginAndRefresh(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Email: "c@b.c", Password: "password1"}, ClientInfo{})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &LoginRequest{Email: "c@b.c", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@b.c", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := svc.Login(ctx, &LoginRequest{Email: "C@b.c", Password: "password1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	refreshed, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	// the old refresh token was replaced
	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.RefreshToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLoginWithGoogle_CreatesThenReuses(t *testing.T) {
	svc, granter := newTestService(t)
	ctx := context.Background()
	g := &GoogleUserInfo{GoogleID: "g-123", Email: "d@b.c", Name: "D"}

	first, err := svc.LoginWithGoogle(ctx, g, ClientInfo{IP: "198.51.100.1"})
	require.NoError(t, err)
	second, err := svc.LoginWithGoogle(ctx, g, ClientInfo{IP: "198.51.100.1"})
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "google", first.User.OAuthProvider)
	assert.Len(t, granter.got, 1)
}

func TestLoginWithGoogle_LinksExistingEmailAccount(t *testing.T) {
	svc, granter := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, &RegisterRequest{Email: "e@b.c", Password: "password1"}, ClientInfo{})
	require.NoError(t, err)

	resp, err := svc.LoginWithGoogle(ctx, &GoogleUserInfo{GoogleID: "g-9", Email: "E@b.c"}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, resp.User.ID)
	assert.Len(t, granter.got, 1, "linking is not a new signup")
}

func TestJWT_RejectsOtherSecret(t *testing.T) {
	token, _, err := NewJWTService("one").GenerateAccessToken(&TokenClaims{UserID: "u", Role: RoleUser})
	require.NoError(t, err)

	_, err = NewJWTService("two").ValidateAccessToken(token)
	assert.Error(t, err)

	claims, err := NewJWTService("one").ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u", claims.UserID)
}
