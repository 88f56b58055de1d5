package credit

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

const (
	DefaultBatchSize  = 1000
	DefaultMaxBatches = 10
)

type Options struct {
	// BatchSize is the number of grants locked per page during consumption.
	BatchSize int
	// MaxBatches bounds how many pages one consumption may scan.
	MaxBatches int
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Service implements balance queries, FIFO-by-expiry consumption and grants.
type Service struct {
	repo       Repository
	batchSize  int
	maxBatches int
	now        func() time.Time
}

func NewService(repo Repository, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxBatches <= 0 {
		opts.MaxBatches = DefaultMaxBatches
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:       repo,
		batchSize:  opts.BatchSize,
		maxBatches: opts.MaxBatches,
		now:        opts.Now,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// GetRemainingCredits returns the sum of drawable grant balances. It takes no locks.
func (s *Service) GetRemainingCredits(ctx context.Context, userID uuid.UUID) (int, error) {
	total, err := s.repo.SumAvailable(ctx, userID, s.clock())
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining credits: %w", err)
	}
	return total, nil
}

// GetRemainingCreditsBatch returns balances for several users in one query.
// Users without drawable grants map to 0.
func (s *Service) GetRemainingCreditsBatch(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	totals, err := s.repo.SumAvailableByUsers(ctx, userIDs, s.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to get remaining credits batch: %w", err)
	}
	return totals, nil
}

// GetTodayConsumedCredits returns the credits the user spent since midnight UTC.
func (s *Service) GetTodayConsumedCredits(ctx context.Context, userID uuid.UUID) (int, error) {
	total, err := s.repo.SumConsumedSince(ctx, userID, startOfDay(s.clock()))
	if err != nil {
		return 0, fmt.Errorf("failed to get today consumed credits: %w", err)
	}
	return total, nil
}

// GetTodayConsumedCreditsTx is GetTodayConsumedCredits inside the caller's transaction.
func (s *Service) GetTodayConsumedCreditsTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
	total, err := s.repo.WithTx(tx).SumConsumedSince(ctx, userID, startOfDay(s.clock()))
	if err != nil {
		return 0, fmt.Errorf("failed to get today consumed credits: %w", err)
	}
	return total, nil
}

// ConsumeCredits debits req.Credits in its own transaction and returns the
// consume row.
func (s *Service) ConsumeCredits(ctx context.Context, req ConsumeRequest) (*Credit, error) {
	var out *Credit
	err := s.repo.Transaction(ctx, func(r Repository) error {
		c, err := s.consume(ctx, r, req)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConsumeCreditsTx debits inside a transaction owned by the caller, so the
// charge commits or rolls back together with the caller's own writes.
func (s *Service) ConsumeCreditsTx(ctx context.Context, tx *gorm.DB, req ConsumeRequest) (*Credit, error) {
	return s.consume(ctx, s.repo.WithTx(tx), req)
}

func (s *Service) consume(ctx context.Context, r Repository, req ConsumeRequest) (out *Credit, err error) {
	started := time.Now()
	defer func() {
		ConsumeDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			ConsumeFailures.WithLabelValues(failureReason(err)).Inc()
			log.Warn().Err(err).
				Str("user_id", req.UserID.String()).
				Int("credits", req.Credits).
				Str("scene", req.Scene).
				Msg("credit consumption rejected")
		}
	}()

	if req.Credits <= 0 {
		return nil, ErrInvalidAmount
	}
	now := s.clock()

	balance, err := r.SumAvailable(ctx, req.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if balance < req.Credits {
		return nil, &InsufficientCreditsError{Balance: balance, Requested: req.Credits}
	}

	remaining := req.Credits
	items := make([]ConsumedItem, 0, 4)

	for batchNo := 1; remaining > 0; batchNo++ {
		if batchNo > s.maxBatches {
			return nil, fmt.Errorf("%w: more than %d batches of %d", ErrTooManyBatches, s.maxBatches, s.batchSize)
		}

		rows, err := r.LockAvailable(ctx, req.UserID, now, s.batchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to lock credits: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		for i := range rows {
			if remaining == 0 {
				break
			}
			row := &rows[i]
			take := min(remaining, row.RemainingCredits)
			after := row.RemainingCredits - take
			if err := r.UpdateRemaining(ctx, row.ID, after); err != nil {
				return nil, fmt.Errorf("failed to update credit %s: %w", row.ID, err)
			}
			items = append(items, ConsumedItem{
				CreditID:         row.ID,
				TransactionNo:    row.TransactionNo,
				ExpiresAt:        row.ExpiresAt,
				CreditsToConsume: remaining,
				CreditsConsumed:  take,
				CreditsBefore:    row.RemainingCredits,
				CreditsAfter:     after,
				BatchNo:          batchNo,
				BatchSize:        s.batchSize,
			})
			remaining -= take
		}
	}

	// Another transaction may have drained rows between the pre-check and the locks.
	if remaining > 0 {
		return nil, &InsufficientCreditsError{Balance: req.Credits - remaining, Requested: req.Credits}
	}

	detail, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode consumed detail: %w", err)
	}
	meta, err := marshalMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}

	row := &Credit{
		UserID:           req.UserID,
		UserEmail:        req.UserEmail,
		TransactionType:  TypeConsume,
		TransactionScene: req.Scene,
		Credits:          -req.Credits,
		RemainingCredits: 0,
		Description:      req.Description,
		Status:           StatusActive,
		ConsumedDetail:   datatypes.JSON(detail),
		Metadata:         meta,
	}
	if err := r.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to create consume record: %w", err)
	}

	ConsumedTotal.WithLabelValues(req.Scene).Add(float64(req.Credits))
	log.Info().
		Str("user_id", req.UserID.String()).
		Int("credits", req.Credits).
		Str("scene", req.Scene).
		Int("grants_touched", len(items)).
		Dur("elapsed", time.Since(started)).
		Msg("credits consumed")
	return row, nil
}

// GrantCredits inserts an active grant in its own transaction.
func (s *Service) GrantCredits(ctx context.Context, req GrantRequest) (*Credit, error) {
	return s.grant(ctx, s.repo, req)
}

// GrantCreditsTx inserts a grant inside a transaction owned by the caller.
func (s *Service) GrantCreditsTx(ctx context.Context, tx *gorm.DB, req GrantRequest) (*Credit, error) {
	return s.grant(ctx, s.repo.WithTx(tx), req)
}

// GrantCreditsForUser gifts credits to a user. validDays <= 0 never expires.
func (s *Service) GrantCreditsForUser(ctx context.Context, userID uuid.UUID, email string, credits, validDays int, description string) (*Credit, error) {
	return s.GrantCredits(ctx, GrantRequest{
		UserID:      userID,
		UserEmail:   email,
		Credits:     credits,
		ValidDays:   validDays,
		Scene:       SceneGift,
		Description: description,
	})
}

func (s *Service) grant(ctx context.Context, r Repository, req GrantRequest) (*Credit, error) {
	if req.Credits <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Scene == "" {
		req.Scene = SceneGift
	}
	if req.Description == "" {
		req.Description = "grant credits"
	}
	meta, err := marshalMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}

	row := &Credit{
		UserID:           req.UserID,
		UserEmail:        req.UserEmail,
		OrderNo:          req.OrderNo,
		SubscriptionNo:   req.SubscriptionNo,
		TransactionType:  TypeGrant,
		TransactionScene: req.Scene,
		Credits:          req.Credits,
		RemainingCredits: req.Credits,
		Description:      req.Description,
		ExpiresAt:        ExpirationTime(s.clock(), req.ValidDays, req.PeriodEnd),
		Status:           StatusActive,
		Metadata:         meta,
	}
	if err := r.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to create grant: %w", err)
	}

	GrantedTotal.WithLabelValues(req.Scene).Add(float64(req.Credits))
	log.Info().
		Str("user_id", req.UserID.String()).
		Int("credits", req.Credits).
		Str("scene", req.Scene).
		Msg("credits granted")
	return row, nil
}

func (s *Service) GetCredit(ctx context.Context, id uuid.UUID) (*Credit, error) {
	return s.repo.GetByID(ctx, id)
}

// ListCredits returns a page of ledger rows, newest first, and the total count.
func (s *Service) ListCredits(ctx context.Context, f ListFilter) ([]Credit, int64, error) {
	rows, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list credits: %w", err)
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count credits: %w", err)
	}
	return rows, total, nil
}

// DeleteCredit marks a grant deleted. The row stays for audit and stops
// counting toward the balance.
func (s *Service) DeleteCredit(ctx context.Context, id uuid.UUID) (*Credit, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.TransactionType != TypeGrant {
		return nil, ErrNotGrant
	}
	if err := s.repo.SetStatus(ctx, id, StatusDeleted); err != nil {
		return nil, err
	}
	c.Status = StatusDeleted
	return c, nil
}

// ExpireCredits flags active grants whose expiry has passed. Balances never
// depend on this sweep; it keeps statuses honest for reporting.
func (s *Service) ExpireCredits(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireDue(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("failed to expire credits: %w", err)
	}
	if n > 0 {
		ExpiredTotal.Add(float64(n))
		log.Info().Int64("count", n).Msg("expired credit grants")
	}
	return n, nil
}

func marshalMetadata(m map[string]interface{}) (datatypes.JSON, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return datatypes.JSON(b), nil
}
