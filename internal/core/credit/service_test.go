package credit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type ServiceSuite struct {
	suite.Suite
	db   *gorm.DB
	repo Repository
	svc  *Service
	now  time.Time
	ctx  context.Context
	user uuid.UUID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.db = testutil.NewDB(s.T(), &Credit{})
	s.repo = NewRepository(s.db)
	s.now = time.Now().UTC()
	s.svc = s.newService(Options{})
	s.ctx = context.Background()
	s.user = uuid.New()
}

func (s *ServiceSuite) newService(opts Options) *Service {
	opts.Now = func() time.Time { return s.now }
	return NewService(s.repo, opts)
}

func (s *ServiceSuite) grant(credits, validDays int) *Credit {
	c, err := s.svc.GrantCredits(s.ctx, GrantRequest{
		UserID:    s.user,
		Credits:   credits,
		ValidDays: validDays,
	})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) reload(id uuid.UUID) *Credit {
	c, err := s.repo.GetByID(s.ctx, id)
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) balance() int {
	b, err := s.svc.GetRemainingCredits(s.ctx, s.user)
	s.Require().NoError(err)
	return b
}

func (s *ServiceSuite) consume(credits int) (*Credit, error) {
	return s.svc.ConsumeCredits(s.ctx, ConsumeRequest{
		UserID:      s.user,
		Credits:     credits,
		Scene:       "text-to-image",
		Description: "generate image",
	})
}

func (s *ServiceSuite) TestBalanceEmptyUser() {
	s.Equal(0, s.balance())
}

func (s *ServiceSuite) TestConsumeDrawsSoonestExpiryFirst() {
	a := s.grant(5, 1)
	b := s.grant(10, 0)

	row, err := s.consume(7)
	s.Require().NoError(err)

	s.Equal(0, s.reload(a.ID).RemainingCredits)
	s.Equal(8, s.reload(b.ID).RemainingCredits)
	s.Equal(8, s.balance())

	s.Equal(TypeConsume, row.TransactionType)
	s.Equal(-7, row.Credits)
	s.Equal(0, row.RemainingCredits)
	s.Nil(row.ExpiresAt)

	var items []ConsumedItem
	s.Require().NoError(json.Unmarshal(row.ConsumedDetail, &items))
	s.Require().Len(items, 2)
	s.Equal(a.ID, items[0].CreditID)
	s.Equal(5, items[0].CreditsConsumed)
	s.Equal(5, items[0].CreditsBefore)
	s.Equal(0, items[0].CreditsAfter)
	s.Equal(7, items[0].CreditsToConsume)
	s.Equal(b.ID, items[1].CreditID)
	s.Equal(2, items[1].CreditsConsumed)
	s.Equal(10, items[1].CreditsBefore)
	s.Equal(8, items[1].CreditsAfter)
}

func (s *ServiceSuite) TestConsumedDetailKeys() {
	s.grant(3, 0)
	row, err := s.consume(1)
	s.Require().NoError(err)

	var raw []map[string]interface{}
	s.Require().NoError(json.Unmarshal(row.ConsumedDetail, &raw))
	s.Require().Len(raw, 1)
	for _, key := range []string{"creditId", "transactionNo", "expiresAt", "creditsToConsume",
		"creditsConsumed", "creditsBefore", "creditsAfter", "batchNo", "batchSize"} {
		s.Contains(raw[0], key)
	}
}

func (s *ServiceSuite) TestNeverExpiringGrantsDrawnLast() {
	never := s.grant(4, 0)
	later := s.grant(4, 10)
	sooner := s.grant(4, 2)

	_, err := s.consume(6)
	s.Require().NoError(err)

	s.Equal(0, s.reload(sooner.ID).RemainingCredits)
	s.Equal(2, s.reload(later.ID).RemainingCredits)
	s.Equal(4, s.reload(never.ID).RemainingCredits)
}

func (s *ServiceSuite) TestInsufficientLeavesLedgerUntouched() {
	a := s.grant(5, 1)
	b := s.grant(3, 0)

	_, err := s.consume(9)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrInsufficientCredits))

	var insufficient *InsufficientCreditsError
	s.Require().True(errors.As(err, &insufficient))
	s.Equal(8, insufficient.Balance)
	s.Equal(9, insufficient.Requested)
	s.False(IsRetryable(err))

	s.Equal(5, s.reload(a.ID).RemainingCredits)
	s.Equal(3, s.reload(b.ID).RemainingCredits)

	n, err := s.repo.Count(s.ctx, ListFilter{UserID: s.user, TransactionType: TypeConsume})
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ServiceSuite) TestInvalidAmount() {
	s.grant(5, 0)
	for _, amount := range []int{0, -3} {
		_, err := s.consume(amount)
		s.ErrorIs(err, ErrInvalidAmount)
	}
	_, err := s.svc.GrantCredits(s.ctx, GrantRequest{UserID: s.user, Credits: 0})
	s.ErrorIs(err, ErrInvalidAmount)
}

func (s *ServiceSuite) TestExpiredGrantsNeverDrawn() {
	past := s.now.Add(-time.Hour)
	expired := &Credit{
		UserID:           s.user,
		TransactionType:  TypeGrant,
		TransactionScene: SceneGift,
		Credits:          100,
		RemainingCredits: 100,
		ExpiresAt:        &past,
		Status:           StatusActive,
	}
	s.Require().NoError(s.repo.Create(s.ctx, expired))
	live := s.grant(3, 0)

	s.Equal(3, s.balance())

	_, err := s.consume(4)
	s.ErrorIs(err, ErrInsufficientCredits)

	_, err = s.consume(3)
	s.Require().NoError(err)
	s.Equal(100, s.reload(expired.ID).RemainingCredits)
	s.Equal(0, s.reload(live.ID).RemainingCredits)
}

func (s *ServiceSuite) TestGrantExpiresWhenClockPasses() {
	s.grant(5, 1)
	s.grant(2, 0)
	s.Equal(7, s.balance())

	s.now = s.now.Add(25 * time.Hour)
	s.Equal(2, s.balance())
}

func (s *ServiceSuite) TestBatchSafetyValve() {
	svc := s.newService(Options{BatchSize: 2, MaxBatches: 2})
	ids := make([]uuid.UUID, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, s.grant(1, 0).ID)
	}

	_, err := svc.ConsumeCredits(s.ctx, ConsumeRequest{UserID: s.user, Credits: 5, Scene: "text-to-image"})
	s.Require().Error(err)
	s.ErrorIs(err, ErrTooManyBatches)
	s.False(IsRetryable(err))
	for _, id := range ids {
		s.Equal(1, s.reload(id).RemainingCredits)
	}

	row, err := svc.ConsumeCredits(s.ctx, ConsumeRequest{UserID: s.user, Credits: 4, Scene: "text-to-image"})
	s.Require().NoError(err)
	s.Equal(1, s.balance())

	var items []ConsumedItem
	s.Require().NoError(json.Unmarshal(row.ConsumedDetail, &items))
	s.Require().Len(items, 4)
	s.Equal(1, items[0].BatchNo)
	s.Equal(1, items[1].BatchNo)
	s.Equal(2, items[2].BatchNo)
	s.Equal(2, items[3].BatchNo)
	s.Equal(2, items[0].BatchSize)
}

func (s *ServiceSuite) TestConsumeTxRollsBackWithCaller() {
	a := s.grant(5, 0)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.svc.ConsumeCreditsTx(s.ctx, tx, ConsumeRequest{UserID: s.user, Credits: 2, Scene: "text-to-image"}); err != nil {
			return err
		}
		return errors.New("task insert failed")
	})
	s.Require().Error(err)
	s.Equal(5, s.reload(a.ID).RemainingCredits)
	s.Equal(5, s.balance())
}

func (s *ServiceSuite) TestConcurrentConsumersNeverDoubleSpend() {
	for i := 0; i < 10; i++ {
		s.grant(1, 0)
	}

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.consume(1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrInsufficientCredits) {
				rejected++
			}
		}()
	}
	wg.Wait()

	s.Equal(10, succeeded)
	s.Equal(10, rejected)
	s.Equal(0, s.balance())

	rows, _, err := s.svc.ListCredits(s.ctx, ListFilter{UserID: s.user, TransactionType: TypeGrant, Limit: 100})
	s.Require().NoError(err)
	for _, r := range rows {
		s.GreaterOrEqual(r.RemainingCredits, 0)
	}
}

func (s *ServiceSuite) TestBalanceMatchesGrantsMinusConsumption() {
	s.grant(10, 0)
	s.grant(4, 3)
	_, err := s.consume(3)
	s.Require().NoError(err)
	_, err = s.consume(6)
	s.Require().NoError(err)
	s.Equal(14-9, s.balance())

	today, err := s.svc.GetTodayConsumedCredits(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(9, today)
}

func (s *ServiceSuite) TestBatchBalances() {
	other := uuid.New()
	missing := uuid.New()
	s.grant(6, 0)
	_, err := s.svc.GrantCredits(s.ctx, GrantRequest{UserID: other, Credits: 2})
	s.Require().NoError(err)

	got, err := s.svc.GetRemainingCreditsBatch(s.ctx, []uuid.UUID{s.user, other, missing})
	s.Require().NoError(err)
	s.Equal(map[uuid.UUID]int{s.user: 6, other: 2, missing: 0}, got)

	empty, err := s.svc.GetRemainingCreditsBatch(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *ServiceSuite) TestGrantAlignsToPeriodEnd() {
	periodEnd := s.now.AddDate(0, 1, 0)
	c, err := s.svc.GrantCredits(s.ctx, GrantRequest{
		UserID:         s.user,
		Credits:        100,
		ValidDays:      30,
		PeriodEnd:      &periodEnd,
		Scene:          SceneSubscription,
		SubscriptionNo: "sub_1",
	})
	s.Require().NoError(err)
	s.Require().NotNil(c.ExpiresAt)
	s.WithinDuration(periodEnd, *c.ExpiresAt, time.Second)
	s.Equal(SceneSubscription, c.TransactionScene)
	s.Equal(100, c.RemainingCredits)
	s.Equal(StatusActive, c.Status)
	s.NotEmpty(c.TransactionNo)
}

func (s *ServiceSuite) TestGrantCreditsForUserDefaults() {
	c, err := s.svc.GrantCreditsForUser(s.ctx, s.user, "a@b.c", 5, 0, "")
	s.Require().NoError(err)
	s.Nil(c.ExpiresAt)
	s.Equal(SceneGift, c.TransactionScene)
	s.Equal("grant credits", c.Description)
	s.Equal("a@b.c", c.UserEmail)
}

func (s *ServiceSuite) TestExpireCreditsSweep() {
	soon := s.grant(5, 1)
	never := s.grant(5, 0)

	n, err := s.svc.ExpireCredits(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.now = s.now.Add(48 * time.Hour)
	n, err = s.svc.ExpireCredits(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	s.Equal(StatusExpired, s.reload(soon.ID).Status)
	s.Equal(StatusActive, s.reload(never.ID).Status)
	s.Equal(5, s.balance())
}

func (s *ServiceSuite) TestDeleteCredit() {
	a := s.grant(5, 0)
	s.grant(2, 0)
	consumed, err := s.consume(1)
	s.Require().NoError(err)

	deleted, err := s.svc.DeleteCredit(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(StatusDeleted, deleted.Status)
	s.Equal(2, s.balance())

	_, err = s.svc.DeleteCredit(s.ctx, consumed.ID)
	s.ErrorIs(err, ErrNotGrant)

	_, err = s.svc.DeleteCredit(s.ctx, uuid.New())
	s.ErrorIs(err, ErrCreditNotFound)
}

func (s *ServiceSuite) TestListCreditsPagination() {
	for i := 0; i < 5; i++ {
		s.grant(1, 0)
	}
	_, err := s.consume(2)
	s.Require().NoError(err)

	rows, total, err := s.svc.ListCredits(s.ctx, ListFilter{UserID: s.user, Page: 1, Limit: 4})
	s.Require().NoError(err)
	s.EqualValues(6, total)
	s.Len(rows, 4)

	rows, _, err = s.svc.ListCredits(s.ctx, ListFilter{UserID: s.user, Page: 2, Limit: 4})
	s.Require().NoError(err)
	s.Len(rows, 2)

	rows, total, err = s.svc.ListCredits(s.ctx, ListFilter{UserID: s.user, TransactionType: TypeConsume})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Require().Len(rows, 1)
	s.Equal(-2, rows[0].Credits)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(&InsufficientCreditsError{Balance: 1, Requested: 2}))
	assert.True(t, IsRetryable(errors.New("connection reset")))
}

func TestExpirationTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, ExpirationTime(now, 0, nil))
	assert.Nil(t, ExpirationTime(now, -1, &periodEnd))
	assert.Nil(t, ExpirationTime(now, 0, &periodEnd), "zero days never expires even with a period end")

	got := ExpirationTime(now, 7, nil)
	require.NotNil(t, got)
	assert.Equal(t, now.AddDate(0, 0, 7), *got)

	got = ExpirationTime(now, 30, &periodEnd)
	require.NotNil(t, got)
	assert.Equal(t, periodEnd, *got)
}
