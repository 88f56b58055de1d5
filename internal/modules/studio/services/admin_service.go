package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/appconfig"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/audit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/export"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidUserID = errors.New("invalid user id")

type AdminGrantRequest struct {
	UserID      string `json:"user_id"`
	UserEmail   string `json:"user_email"`
	Credits     int    `json:"credits"`
	ValidDays   int    `json:"valid_days"`
	Scene       string `json:"scene"`
	Description string `json:"description"`
}

// Actor identifies the admin behind a change.
type Actor struct {
	ID uuid.UUID
	IP string
}

// AdminService performs audited ledger and settings changes.
type AdminService struct {
	db       *gorm.DB
	credits  *credit.Service
	audit    *audit.Service
	settings *appconfig.Store
}

func NewAdminService(db *gorm.DB, credits *credit.Service, auditSvc *audit.Service, settings *appconfig.Store) *AdminService {
	return &AdminService{db: db, credits: credits, audit: auditSvc, settings: settings}
}

func (s *AdminService) GrantCredits(ctx context.Context, actor Actor, req AdminGrantRequest) (*credit.Credit, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if req.Scene == "" {
		req.Scene = credit.SceneGift
	}

	var granted *credit.Credit
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.credits.GrantCreditsTx(ctx, tx, credit.GrantRequest{
			UserID:      userID,
			UserEmail:   req.UserEmail,
			Credits:     req.Credits,
			ValidDays:   req.ValidDays,
			Scene:       req.Scene,
			Description: req.Description,
			Metadata:    map[string]interface{}{"granted_by": actor.ID.String()},
		})
		if err != nil {
			return err
		}
		granted = c
		return s.audit.RecordTx(ctx, tx, audit.Entry{
			ActorID:     actor.ID,
			Action:      audit.ActionGrant,
			Entity:      audit.EntityCredit,
			EntityID:    granted.TransactionNo,
			New:         granted,
			IP:          actor.IP,
			Description: fmt.Sprintf("granted %d credits to %s", req.Credits, userID),
		})
	})
	if err != nil {
		return nil, err
	}
	return granted, nil
}

func (s *AdminService) DeleteCredit(ctx context.Context, actor Actor, id uuid.UUID) (*credit.Credit, error) {
	before, err := s.credits.GetCredit(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.credits.DeleteCredit(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.ID,
		Action:   audit.ActionDelete,
		Entity:   audit.EntityCredit,
		EntityID: after.TransactionNo,
		Old:      before,
		New:      after,
		IP:       actor.IP,
	}); err != nil {
		return nil, err
	}
	return after, nil
}

func (s *AdminService) ListCredits(ctx context.Context, f credit.ListFilter) ([]credit.Credit, int64, error) {
	return s.credits.ListCredits(ctx, f)
}

func (s *AdminService) Balances(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	return s.credits.GetRemainingCreditsBatch(ctx, userIDs)
}

func (s *AdminService) Configs(ctx context.Context) (map[string]string, error) {
	return s.settings.All(ctx)
}

// UpdateConfigs upserts settings and audits each value that changed.
func (s *AdminService) UpdateConfigs(ctx context.Context, actor Actor, values map[string]string) (map[string]string, error) {
	old, err := s.settings.All(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.settings.Set(ctx, values); err != nil {
		return nil, err
	}
	for name, v := range values {
		prev, existed := old[name]
		if existed && prev == v {
			continue
		}
		entry := audit.Entry{
			ActorID:  actor.ID,
			Action:   audit.ActionUpdate,
			Entity:   audit.EntityConfig,
			EntityID: name,
			New:      v,
			IP:       actor.IP,
		}
		if existed {
			entry.Old = prev
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			return nil, err
		}
	}
	return s.settings.All(ctx)
}

func (s *AdminService) AuditLogs(ctx context.Context, f audit.Filter) (*audit.Page, error) {
	return s.audit.List(ctx, f)
}

// maxExportRows caps one ledger export.
const maxExportRows = 10000

// ExportCredits renders the ledger rows matching f, newest first.
func (s *AdminService) ExportCredits(ctx context.Context, f credit.ListFilter, format export.Format, w io.Writer) error {
	f.Limit = 100
	table := &export.Table{
		Title:       "Credit ledger",
		Subtitle:    exportSubtitle(f),
		Headers:     []string{"Transaction", "User", "Email", "Type", "Scene", "Credits", "Remaining", "Status", "Expires", "Created"},
		GeneratedAt: time.Now().UTC(),
	}
	for page := 1; len(table.Rows) < maxExportRows; page++ {
		f.Page = page
		rows, _, err := s.credits.ListCredits(ctx, f)
		if err != nil {
			return err
		}
		for _, r := range rows {
			table.Rows = append(table.Rows, []interface{}{
				r.TransactionNo, r.UserID.String(), r.UserEmail, r.TransactionType, r.TransactionScene,
				r.Credits, r.RemainingCredits, r.Status, r.ExpiresAt, r.CreatedAt,
			})
		}
		if len(rows) < f.Limit {
			break
		}
	}
	return export.Write(w, format, table)
}

func exportSubtitle(f credit.ListFilter) string {
	var parts []string
	if f.UserID != uuid.Nil {
		parts = append(parts, "user "+f.UserID.String())
	}
	if f.TransactionType != "" {
		parts = append(parts, "type "+f.TransactionType)
	}
	if f.Status != "" {
		parts = append(parts, "status "+f.Status)
	}
	if len(parts) == 0 {
		return "All rows"
	}
	return strings.Join(parts, ", ")
}
