package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record writes an entry. Serialization failures drop the value, not the entry.
func (s *Service) Record(ctx context.Context, e Entry) error {
	return s.RecordTx(ctx, s.db, e)
}

// RecordTx writes the entry inside the caller's transaction.
func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, e Entry) error {
	row := &AuditLog{
		Action:      e.Action,
		Entity:      e.Entity,
		EntityID:    e.EntityID,
		OldValue:    toJSON(e.Old),
		NewValue:    toJSON(e.New),
		IPAddress:   e.IP,
		Description: e.Description,
	}
	if e.ActorID != uuid.Nil {
		actor := e.ActorID
		row.ActorID = &actor
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter Filter) (*Page, error) {
	query := s.db.WithContext(ctx).Model(&AuditLog{})
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Entity != "" {
		query = query.Where("entity = ?", filter.Entity)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count audit logs: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}

	var logs []AuditLog
	if err := query.
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}

	pages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		pages++
	}
	return &Page{
		Logs:       logs,
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: pages,
	}, nil
}

// Prune deletes entries older than keep.
func (s *Service) Prune(ctx context.Context, keep time.Duration) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}
	cutoff := time.Now().UTC().Add(-keep)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&AuditLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Info().Int64("deleted", res.RowsAffected).Dur("keep", keep).Msg("🧹 pruned audit logs")
	}
	return res.RowsAffected, nil
}

func toJSON(value interface{}) datatypes.JSON {
	if value == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize audit value")
		return nil
	}
	return datatypes.JSON(b)
}
