package credit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Settings is the part of the runtime configuration store the signup bonus reads.
type Settings interface {
	Bool(ctx context.Context, name string) (bool, error)
	Int(ctx context.Context, name string, fallback int) (int, error)
	Get(ctx context.Context, name string) (string, error)
}

const (
	settingEnabled     = "initial_credits_enabled"
	settingAmount      = "initial_credits_amount"
	settingValidDays   = "initial_credits_valid_days"
	settingDescription = "initial_credits_description"
)

// SignupBonus grants the configured welcome credits to new accounts.
type SignupBonus struct {
	credits  *Service
	settings Settings
	abuse    AbuseChecker
}

func NewSignupBonus(credits *Service, settings Settings, abuse AbuseChecker) *SignupBonus {
	return &SignupBonus{credits: credits, settings: settings, abuse: abuse}
}

// Grant returns (nil, nil) when the bonus is disabled, misconfigured, or the
// registration looks abusive.
func (b *SignupBonus) Grant(ctx context.Context, u Registrant) (*Credit, error) {
	enabled, err := b.settings.Bool(ctx, settingEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to read signup bonus settings: %w", err)
	}
	if !enabled {
		return nil, nil
	}

	amount, err := b.settings.Int(ctx, settingAmount, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read signup bonus settings: %w", err)
	}
	if amount <= 0 {
		return nil, nil
	}

	if b.abuse != nil && b.abuse.IsAbusive(ctx, u) {
		log.Warn().
			Str("user_id", u.ID.String()).
			Str("ip", u.IP).
			Str("device_id", u.DeviceID).
			Msg("anti-abuse: skipping signup credits")
		return nil, nil
	}

	validDays, err := b.settings.Int(ctx, settingValidDays, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read signup bonus settings: %w", err)
	}
	description, err := b.settings.Get(ctx, settingDescription)
	if err != nil {
		return nil, fmt.Errorf("failed to read signup bonus settings: %w", err)
	}
	if description == "" {
		description = "initial credits"
	}

	return b.credits.GrantCreditsForUser(ctx, u.ID, u.Email, amount, validDays, description)
}
