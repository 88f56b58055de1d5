// Package appconfig keeps runtime business settings in the configs table.
// Reads go through a short-lived in-process cache.
package appconfig

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Known keys
const (
	KeyInitialCreditsEnabled     = "initial_credits_enabled"
	KeyInitialCreditsAmount      = "initial_credits_amount"
	KeyInitialCreditsValidDays   = "initial_credits_valid_days"
	KeyInitialCreditsDescription = "initial_credits_description"
)

const allKey = "__all__"

type Config struct {
	Name      string    `gorm:"type:varchar(100);primaryKey" json:"name"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Config) TableName() string {
	return "configs"
}

// Store reads and writes settings.
type Store struct {
	db    *gorm.DB
	cache *gocache.Cache
}

func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{db: db, cache: gocache.New(ttl, 2*ttl)}
}

// All returns every setting as a name/value map.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	if v, ok := s.cache.Get(allKey); ok {
		return copyMap(v.(map[string]string)), nil
	}

	var rows []Config
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load configs: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	s.cache.SetDefault(allKey, out)
	return copyMap(out), nil
}

func (s *Store) Get(ctx context.Context, name string) (string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	return all[name], nil
}

// Bool treats "true" (any case) and "1" as enabled.
func (s *Store) Bool(ctx context.Context, name string) (bool, error) {
	v, err := s.Get(ctx, name)
	if err != nil {
		return false, err
	}
	v = strings.TrimSpace(strings.ToLower(v))
	return v == "true" || v == "1", nil
}

// Int returns fallback when the value is missing or not a number.
func (s *Store) Int(ctx context.Context, name string, fallback int) (int, error) {
	v, err := s.Get(ctx, name)
	if err != nil {
		return fallback, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(v))
	if convErr != nil {
		return fallback, nil
	}
	return n, nil
}

// Set upserts the given settings and drops the cached snapshot.
func (s *Store) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]Config, 0, len(values))
	for k, v := range values {
		rows = append(rows, Config{Name: k, Value: v, UpdatedAt: time.Now().UTC()})
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to save configs: %w", err)
	}
	s.cache.Delete(allKey)
	return nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
