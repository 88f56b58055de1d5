package credit

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testUser struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string
	IP        string
	DeviceID  string
	CreatedAt time.Time
}

func (testUser) TableName() string { return "users" }

type mapSettings map[string]string

func (m mapSettings) Get(_ context.Context, name string) (string, error) { return m[name], nil }

func (m mapSettings) Bool(_ context.Context, name string) (bool, error) { return m[name] == "true", nil }

func (m mapSettings) Int(_ context.Context, name string, fallback int) (int, error) {
	n, err := strconv.Atoi(m[name])
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

// brokenSettings fails reads of one key.
type brokenSettings struct {
	mapSettings
	key string
}

var errSettingsDown = errors.New("settings unavailable")

func (b brokenSettings) Get(ctx context.Context, name string) (string, error) {
	if name == b.key {
		return "", errSettingsDown
	}
	return b.mapSettings.Get(ctx, name)
}

func (b brokenSettings) Int(ctx context.Context, name string, fallback int) (int, error) {
	if name == b.key {
		return fallback, errSettingsDown
	}
	return b.mapSettings.Int(ctx, name, fallback)
}

func newUser(t *testing.T, db *gorm.DB, ip, device string, createdAt time.Time) Registrant {
	t.Helper()
	u := testUser{ID: uuid.New(), Email: uuid.NewString() + "@example.com", IP: ip, DeviceID: device, CreatedAt: createdAt}
	require.NoError(t, db.Create(&u).Error)
	return Registrant{ID: u.ID, Email: u.Email, IP: ip, DeviceID: device, CreatedAt: createdAt}
}

func TestAbuseChecker_IPWindow(t *testing.T) {
	db := testutil.NewDB(t, &testUser{}, &Credit{})
	checker := NewAbuseChecker(db)
	ctx := context.Background()
	now := time.Now().UTC()

	newUser(t, db, "10.0.0.1", "", now.Add(-48*time.Hour))
	newUser(t, db, "10.0.0.1", "", now.Add(-time.Hour))
	newUser(t, db, "10.0.0.1", "", now.Add(-time.Minute))

	third := newUser(t, db, "10.0.0.1", "", now)
	assert.False(t, checker.IsAbusive(ctx, third), "two recent others is under the threshold")

	fourth := newUser(t, db, "10.0.0.1", "", now)
	assert.True(t, checker.IsAbusive(ctx, fourth))

	elsewhere := newUser(t, db, "10.0.0.2", "", now)
	assert.False(t, checker.IsAbusive(ctx, elsewhere))
}

func TestAbuseChecker_DeviceAlreadyRewarded(t *testing.T) {
	db := testutil.NewDB(t, &testUser{}, &Credit{})
	checker := NewAbuseChecker(db)
	svc := NewService(NewRepository(db), Options{})
	ctx := context.Background()
	now := time.Now().UTC()

	first := newUser(t, db, "", "device-1", now)
	second := newUser(t, db, "", "device-1", now)
	assert.False(t, checker.IsAbusive(ctx, second), "no grant on the device yet")

	_, err := svc.GrantCreditsForUser(ctx, first.ID, first.Email, 5, 0, "")
	require.NoError(t, err)
	assert.True(t, checker.IsAbusive(ctx, second))
	assert.False(t, checker.IsAbusive(ctx, first), "own grants do not count")
}

func TestAbuseChecker_FailsOpen(t *testing.T) {
	db := testutil.NewDB(t)
	checker := NewAbuseChecker(db)
	assert.False(t, checker.IsAbusive(context.Background(), Registrant{ID: uuid.New(), IP: "1.2.3.4", DeviceID: "d"}))
}

func TestSignupBonus(t *testing.T) {
	db := testutil.NewDB(t, &testUser{}, &Credit{})
	svc := NewService(NewRepository(db), Options{})
	ctx := context.Background()
	now := time.Now().UTC()

	settings := mapSettings{
		settingEnabled:   "true",
		settingAmount:    "10",
		settingValidDays: "30",
	}
	bonus := NewSignupBonus(svc, settings, NewAbuseChecker(db))

	u := newUser(t, db, "10.1.1.1", "dev-a", now)
	c, err := bonus.Grant(ctx, u)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 10, c.Credits)
	assert.Equal(t, "initial credits", c.Description)
	require.NotNil(t, c.ExpiresAt)
	assert.WithinDuration(t, now.AddDate(0, 0, 30), *c.ExpiresAt, time.Minute)

	// same device, second account
	dup := newUser(t, db, "10.9.9.9", "dev-a", now)
	c, err = bonus.Grant(ctx, dup)
	require.NoError(t, err)
	assert.Nil(t, c)

	settings[settingEnabled] = "false"
	c, err = bonus.Grant(ctx, newUser(t, db, "", "", now))
	require.NoError(t, err)
	assert.Nil(t, c)

	settings[settingEnabled] = "true"
	settings[settingAmount] = "0"
	c, err = bonus.Grant(ctx, newUser(t, db, "", "", now))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSignupBonus_SettingsErrorsAbortGrant(t *testing.T) {
	db := testutil.NewDB(t, &testUser{}, &Credit{})
	svc := NewService(NewRepository(db), Options{})
	ctx := context.Background()
	now := time.Now().UTC()

	base := mapSettings{
		settingEnabled:   "true",
		settingAmount:    "10",
		settingValidDays: "30",
	}
	for _, key := range []string{settingValidDays, settingDescription} {
		bonus := NewSignupBonus(svc, brokenSettings{mapSettings: base, key: key}, nil)
		u := newUser(t, db, "", "", now)

		c, err := bonus.Grant(ctx, u)
		require.ErrorIs(t, err, errSettingsDown, key)
		assert.Nil(t, c)

		balance, err := svc.GetRemainingCredits(ctx, u.ID)
		require.NoError(t, err)
		assert.Zero(t, balance, key)
	}
}
