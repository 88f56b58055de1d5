package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	ipAbuseWindow    = 24 * time.Hour
	ipAbuseThreshold = 3
)

// Registrant is the slice of a new account the abuse heuristic looks at.
type Registrant struct {
	ID        uuid.UUID
	Email     string
	IP        string
	DeviceID  string
	CreatedAt time.Time
}

// AbuseChecker flags signups that should not receive a signup bonus.
type AbuseChecker interface {
	IsAbusive(ctx context.Context, u Registrant) bool
}

type dbAbuseChecker struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAbuseChecker checks the users and credits tables. A signup is flagged
// when its IP registered ipAbuseThreshold other accounts in the last 24h, or
// another account on the same device already received a grant.
func NewAbuseChecker(db *gorm.DB) AbuseChecker {
	return &dbAbuseChecker{db: db, now: time.Now}
}

// IsAbusive fails open: lookup errors never block a legitimate signup.
func (c *dbAbuseChecker) IsAbusive(ctx context.Context, u Registrant) bool {
	db := c.db.WithContext(ctx)

	if u.IP != "" {
		var n int64
		since := c.now().UTC().Add(-ipAbuseWindow)
		err := db.Table("users").
			Where("ip = ? AND id <> ? AND created_at >= ?", u.IP, u.ID, since).
			Count(&n).Error
		if err != nil {
			log.Error().Err(err).Str("user_id", u.ID.String()).Msg("anti-abuse ip check failed, allowing credits")
			return false
		}
		if n >= ipAbuseThreshold {
			return true
		}
	}

	if u.DeviceID != "" {
		var n int64
		err := db.Table("users").
			Joins("JOIN credits ON credits.user_id = users.id").
			Where("users.device_id = ? AND users.id <> ? AND credits.transaction_type = ?", u.DeviceID, u.ID, TypeGrant).
			Count(&n).Error
		if err != nil {
			log.Error().Err(err).Str("user_id", u.ID.String()).Msg("anti-abuse device check failed, allowing credits")
			return false
		}
		if n > 0 {
			return true
		}
	}

	return false
}
