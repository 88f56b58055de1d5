package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/appconfig"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/audit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/payment"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/upload"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/repositories"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02")

type fakeProvider struct {
	err   error
	calls int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Supports(mediaType, scene string) bool {
	return mediaType == imagegen.MediaImage
}

func (p *fakeProvider) Generate(_ context.Context, req imagegen.Request) (*imagegen.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &imagegen.Result{
		Provider: "fake",
		Model:    req.Model,
		Outputs:  []imagegen.Output{{Data: pngBytes, ContentType: "image/png", RevisedPrompt: "a red fox"}},
	}, nil
}

type StudioSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	credits  *credit.Service
	tasks    repositories.TaskRepo
	orders   repositories.OrderRepo
	subs     repositories.SubscriptionRepo
	queue    *jobs.Queue
	provider *fakeProvider
	gen      *GenerationService
	job      *GenerationJob
	gallery  *GalleryService
	billing  *BillingService
	admin    *AdminService
	caller   Caller
}

func TestStudioSuite(t *testing.T) {
	suite.Run(t, new(StudioSuite))
}

func (s *StudioSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T(),
		&credit.Credit{}, &models.AITask{}, &models.Order{}, &models.Subscription{},
		&jobs.Job{}, &audit.AuditLog{}, &appconfig.Config{},
	)
	s.credits = credit.NewService(credit.NewRepository(s.db), credit.Options{})
	s.tasks = repositories.NewTaskRepo(s.db)
	s.orders = repositories.NewOrderRepo(s.db)
	s.subs = repositories.NewSubscriptionRepo(s.db)
	s.queue = jobs.NewQueue(s.db)
	s.provider = &fakeProvider{}
	registry := imagegen.NewRegistry(s.provider)

	local, err := upload.NewLocalProvider(s.T().TempDir(), "http://localhost:8080")
	s.Require().NoError(err)

	s.gen = NewGenerationService(s.db, s.credits, s.tasks, s.subs, registry, s.queue, 2)
	s.job = NewGenerationJob(s.tasks, registry, upload.NewService(local), s.gen)
	s.gallery = NewGalleryService(s.tasks)
	s.billing = NewBillingService(s.db, s.credits, s.orders, s.subs, payment.NewManualGateway("BANK 1"))
	s.admin = NewAdminService(s.db, s.credits, audit.NewService(s.db), appconfig.NewStore(s.db, time.Minute))
	s.caller = Caller{ID: uuid.New(), Email: "u@example.com"}
}

func (s *StudioSuite) grant(credits int) {
	_, err := s.credits.GrantCreditsForUser(s.ctx, s.caller.ID, s.caller.Email, credits, 0, "")
	s.Require().NoError(err)
}

func (s *StudioSuite) balance() int {
	b, err := s.credits.GetRemainingCredits(s.ctx, s.caller.ID)
	s.Require().NoError(err)
	return b
}

func (s *StudioSuite) generate() *models.AITask {
	task, err := s.gen.Generate(s.ctx, s.caller, GenerateRequest{
		Provider:  "fake",
		MediaType: imagegen.MediaImage,
		Model:     "dall-e-3",
		Prompt:    "a fox",
		Scene:     imagegen.SceneTextToImage,
	})
	s.Require().NoError(err)
	return task
}

func (s *StudioSuite) nextJob() *jobs.Job {
	job, err := s.queue.Dequeue(s.ctx, QueueGeneration)
	s.Require().NoError(err)
	s.Require().NotNil(job)
	return job
}

func (s *StudioSuite) TestGenerationCostTable() {
	cases := []struct {
		media, scene string
		cost         int
		billedAs     string
	}{
		{imagegen.MediaImage, imagegen.SceneTextToImage, 1, imagegen.SceneTextToImage},
		{imagegen.MediaImage, imagegen.SceneImageToImage, 1, imagegen.SceneImageToImage},
		{imagegen.MediaVideo, imagegen.SceneTextToVideo, 6, imagegen.SceneTextToVideo},
		{imagegen.MediaVideo, imagegen.SceneImageToVideo, 8, imagegen.SceneImageToVideo},
		{imagegen.MediaVideo, imagegen.SceneVideoToVideo, 10, imagegen.SceneVideoToVideo},
		{imagegen.MediaMusic, "", 10, imagegen.SceneTextToMusic},
	}
	for _, tc := range cases {
		cost, scene, err := GenerationCost(tc.media, tc.scene)
		s.NoError(err)
		s.Equal(tc.cost, cost, tc.media+"/"+tc.scene)
		s.Equal(tc.billedAs, scene)
	}

	_, _, err := GenerationCost(imagegen.MediaImage, imagegen.SceneTextToVideo)
	s.ErrorIs(err, ErrInvalidScene)
	_, _, err = GenerationCost("hologram", "")
	s.ErrorIs(err, ErrInvalidMediaType)
}

func (s *StudioSuite) TestGenerateChargesAndQueues() {
	s.grant(5)

	task := s.generate()
	s.Equal(models.TaskStatusPending, task.Status)
	s.Equal(1, task.CostCredits)
	s.True(strings.HasPrefix(task.CreditTransactionNo, "ctx_"))
	s.Equal(4, s.balance())

	job := s.nextJob()
	s.Equal(JobTypeGenerate, job.Type)
	var payload GeneratePayload
	s.Require().NoError(json.Unmarshal(job.Payload, &payload))
	s.Equal(task.ID, payload.TaskID)

	got, err := s.gen.GetTask(s.ctx, s.caller.ID, task.ID)
	s.Require().NoError(err)
	s.Equal(task.ID, got.ID)

	_, err = s.gen.GetTask(s.ctx, uuid.New(), task.ID)
	s.ErrorIs(err, repositories.ErrTaskNotFound)
}

func (s *StudioSuite) TestGenerateValidation() {
	s.grant(5)
	base := GenerateRequest{Provider: "fake", MediaType: imagegen.MediaImage, Model: "m", Prompt: "p", Scene: imagegen.SceneTextToImage}

	req := base
	req.Provider = ""
	_, err := s.gen.Generate(s.ctx, s.caller, req)
	s.ErrorIs(err, ErrInvalidParams)

	req = base
	req.Prompt = " "
	_, err = s.gen.Generate(s.ctx, s.caller, req)
	s.ErrorIs(err, ErrPromptRequired)

	req = base
	req.Scene = "sketch"
	_, err = s.gen.Generate(s.ctx, s.caller, req)
	s.ErrorIs(err, ErrInvalidScene)

	req = base
	req.Provider = "nope"
	_, err = s.gen.Generate(s.ctx, s.caller, req)
	s.ErrorIs(err, imagegen.ErrUnknownProvider)

	req = base
	req.MediaType = imagegen.MediaVideo
	req.Scene = imagegen.SceneTextToVideo
	_, err = s.gen.Generate(s.ctx, s.caller, req)
	s.ErrorIs(err, imagegen.ErrUnsupportedMedia)

	req = base
	req.Prompt = ""
	req.Options = map[string]interface{}{"image_url": "https://example.com/a.png"}
	_, err = s.gen.Generate(s.ctx, s.caller, req)
	s.NoError(err)

	s.Equal(4, s.balance())
}

func (s *StudioSuite) TestGenerateInsufficientCredits() {
	_, err := s.gen.Generate(s.ctx, s.caller, GenerateRequest{
		Provider: "fake", MediaType: imagegen.MediaImage, Model: "m", Prompt: "p", Scene: imagegen.SceneTextToImage,
	})
	s.ErrorIs(err, credit.ErrInsufficientCredits)

	var ins *credit.InsufficientCreditsError
	s.True(errors.As(err, &ins))
	s.Equal(0, ins.Balance)

	_, total, err := s.tasks.List(s.ctx, repositories.TaskFilter{UserID: s.caller.ID})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *StudioSuite) TestDailyLimitForFreeUsers() {
	s.grant(10)
	s.generate()
	s.generate()

	_, err := s.gen.Generate(s.ctx, s.caller, GenerateRequest{
		Provider: "fake", MediaType: imagegen.MediaImage, Model: "m", Prompt: "p", Scene: imagegen.SceneTextToImage,
	})
	s.ErrorIs(err, ErrDailyLimitExceeded)
	s.Equal(8, s.balance())

	now := time.Now().UTC()
	s.Require().NoError(s.subs.Create(s.ctx, &models.Subscription{
		SubscriptionNo:     "sub_test",
		UserID:             s.caller.ID,
		Plan:               "plan_basic_monthly",
		Status:             models.SubscriptionActive,
		CreditsPerPeriod:   100,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
	}))
	s.generate()
	s.Equal(7, s.balance())
}

func (s *StudioSuite) TestDailyLimitHoldsUnderConcurrentRequests() {
	s.grant(10)

	const requests = 6
	var wg sync.WaitGroup
	errs := make(chan error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.gen.Generate(s.ctx, s.caller, GenerateRequest{
				Provider: "fake", MediaType: imagegen.MediaImage, Model: "m", Prompt: "p", Scene: imagegen.SceneTextToImage,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		s.ErrorIs(err, ErrDailyLimitExceeded)
	}
	s.Equal(2, ok)
	s.Equal(8, s.balance())

	_, total, err := s.tasks.List(s.ctx, repositories.TaskFilter{UserID: s.caller.ID})
	s.Require().NoError(err)
	s.EqualValues(2, total)
}

func (s *StudioSuite) TestJobStoresImagesInGallery() {
	s.grant(5)
	task := s.generate()

	s.Require().NoError(s.job.Handle(s.ctx, s.nextJob()))

	done, err := s.tasks.Get(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusSuccess, done.Status)
	s.NotNil(done.CompletedAt)
	info := done.Info()
	s.Require().Len(info.Images, 1)
	s.True(strings.HasPrefix(info.Images[0].ImageURL, "http://localhost:8080/uploads/generations/"+s.caller.ID.String()))
	s.Equal("a red fox", info.Images[0].RevisedPrompt)

	page, err := s.gallery.ListImages(s.ctx, s.caller.ID, 1, 20)
	s.Require().NoError(err)
	s.EqualValues(1, page.Total)
	s.Equal(1, page.TotalPages)
	s.Require().Len(page.Images, 1)
	s.Equal(task.ID.String()+"-0", page.Images[0].ID)
	s.Equal("a fox", page.Images[0].Prompt)

	s.Require().NoError(s.gallery.DeleteImage(s.ctx, s.caller.ID, task.ID))
	s.ErrorIs(s.gallery.DeleteImage(s.ctx, s.caller.ID, task.ID), repositories.ErrTaskNotFound)

	page, err = s.gallery.ListImages(s.ctx, s.caller.ID, 1, 20)
	s.Require().NoError(err)
	s.Empty(page.Images)
}

func (s *StudioSuite) TestPermanentFailureRefundsOnce() {
	s.grant(5)
	task := s.generate()
	s.Equal(4, s.balance())

	s.provider.err = errors.New("provider unavailable")
	job := s.nextJob()
	s.Error(s.job.Handle(s.ctx, job))

	s.Require().NoError(s.job.OnPermanentFailure(s.ctx, job, errors.New("provider unavailable")))
	s.Require().NoError(s.job.OnPermanentFailure(s.ctx, job, errors.New("provider unavailable")))
	s.Equal(5, s.balance())

	failed, err := s.tasks.Get(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusFailed, failed.Status)
	s.Equal("provider unavailable", failed.Error)
	s.NotEmpty(failed.RefundTransactionNo)

	rows, _, err := s.credits.ListCredits(s.ctx, credit.ListFilter{UserID: s.caller.ID, TransactionType: credit.TypeGrant})
	s.Require().NoError(err)
	refunds := 0
	for _, r := range rows {
		if r.TransactionScene == credit.SceneRefund {
			refunds++
			s.Nil(r.ExpiresAt)
			s.Equal(1, r.Credits)
		}
	}
	s.Equal(1, refunds)

	calls := s.provider.calls
	s.NoError(s.job.Handle(s.ctx, job))
	s.Equal(calls, s.provider.calls)
}

func (s *StudioSuite) TestOrderPaidGrantsOnce() {
	order, checkout, err := s.billing.CreateOrder(s.ctx, s.caller, "pack_starter")
	s.Require().NoError(err)
	s.Equal(payment.StatusPending, order.Status)
	s.Equal(payment.MethodManual, checkout.Method)
	s.Contains(checkout.Instructions, order.OrderNo)

	ev := &payment.Event{Type: payment.EventOrderPaid, OrderNo: order.OrderNo}
	s.Require().NoError(s.billing.HandleEvent(s.ctx, ev))
	s.Require().NoError(s.billing.HandleEvent(s.ctx, ev))
	s.Equal(50, s.balance())

	rows, total, err := s.credits.ListCredits(s.ctx, credit.ListFilter{UserID: s.caller.ID})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(credit.ScenePayment, rows[0].TransactionScene)
	s.Equal(order.OrderNo, rows[0].OrderNo)
	s.Require().NotNil(rows[0].ExpiresAt)
	s.WithinDuration(time.Now().UTC().AddDate(0, 0, 90), *rows[0].ExpiresAt, time.Minute)

	paid, err := s.orders.GetByOrderNo(s.ctx, order.OrderNo)
	s.Require().NoError(err)
	s.Equal(payment.StatusPaid, paid.Status)
	s.NotNil(paid.PaidAt)

	_, _, err = s.billing.CreateOrder(s.ctx, s.caller, "pack_unknown")
	s.ErrorIs(err, ErrUnknownProduct)
	s.ErrorIs(s.billing.HandleEvent(s.ctx, &payment.Event{Type: payment.EventOrderPaid, OrderNo: "ord_missing"}), repositories.ErrOrderNotFound)
}

func (s *StudioSuite) TestSubscriptionFirstPeriodThenRenewal() {
	now := time.Now().UTC().Truncate(time.Second)
	first, _, err := s.billing.CreateOrder(s.ctx, s.caller, "plan_basic_monthly")
	s.Require().NoError(err)

	end1 := now.AddDate(0, 1, 0)
	s.Require().NoError(s.billing.HandleEvent(s.ctx, &payment.Event{
		Type: payment.EventSubscriptionPaid, OrderNo: first.OrderNo, SubscriptionNo: "sub_abc",
		CurrentPeriodStart: &now, CurrentPeriodEnd: &end1,
	}))

	sub, err := s.billing.CurrentSubscription(s.ctx, s.caller.ID)
	s.Require().NoError(err)
	s.Require().NotNil(sub)
	s.Equal("sub_abc", sub.SubscriptionNo)
	s.WithinDuration(end1, sub.CurrentPeriodEnd, time.Second)

	second, _, err := s.billing.CreateOrder(s.ctx, s.caller, "plan_basic_monthly")
	s.Require().NoError(err)
	end2 := end1.AddDate(0, 1, 0)
	s.Require().NoError(s.billing.HandleEvent(s.ctx, &payment.Event{
		Type: payment.EventSubscriptionPaid, OrderNo: second.OrderNo, SubscriptionNo: "sub_abc",
		CurrentPeriodStart: &end1, CurrentPeriodEnd: &end2,
	}))

	rows, _, err := s.credits.ListCredits(s.ctx, credit.ListFilter{UserID: s.caller.ID, TransactionType: credit.TypeGrant})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	scenes := map[string]time.Time{}
	for _, r := range rows {
		s.Require().NotNil(r.ExpiresAt)
		s.Equal("sub_abc", r.SubscriptionNo)
		scenes[r.TransactionScene] = *r.ExpiresAt
	}
	s.WithinDuration(end1, scenes[credit.SceneSubscription], time.Second)
	s.WithinDuration(end2, scenes[credit.SceneRenewal], time.Second)
	s.Equal(200, s.balance())

	sub, err = s.subs.GetByNo(s.ctx, "sub_abc")
	s.Require().NoError(err)
	s.WithinDuration(end2, sub.CurrentPeriodEnd, time.Second)
}

func (s *StudioSuite) TestManualConfirmation() {
	order, _, err := s.billing.CreateOrder(s.ctx, s.caller, "plan_pro_monthly")
	s.Require().NoError(err)

	confirmed, granted, err := s.billing.ConfirmOrder(s.ctx, order.OrderNo)
	s.Require().NoError(err)
	s.True(granted)
	s.NotEmpty(confirmed.SubscriptionNo)
	s.Equal(400, s.balance())

	_, granted, err = s.billing.ConfirmOrder(s.ctx, order.OrderNo)
	s.Require().NoError(err)
	s.False(granted)
	s.Equal(400, s.balance())

	cancelled, _, err := s.billing.CreateOrder(s.ctx, s.caller, "pack_pro")
	s.Require().NoError(err)
	ok, err := s.orders.Cancel(s.ctx, cancelled.OrderNo)
	s.Require().NoError(err)
	s.True(ok)
	_, _, err = s.billing.ConfirmOrder(s.ctx, cancelled.OrderNo)
	s.ErrorIs(err, ErrOrderNotPayable)
}

func (s *StudioSuite) TestManualRenewalExtends() {
	now := time.Now().UTC()
	first, _, err := s.billing.CreateOrder(s.ctx, s.caller, "plan_basic_monthly")
	s.Require().NoError(err)
	first, _, err = s.billing.ConfirmOrder(s.ctx, first.OrderNo)
	s.Require().NoError(err)

	second, _, err := s.billing.CreateOrder(s.ctx, s.caller, "plan_basic_monthly")
	s.Require().NoError(err)
	s.Empty(second.SubscriptionNo)
	second, granted, err := s.billing.ConfirmOrder(s.ctx, second.OrderNo)
	s.Require().NoError(err)
	s.True(granted)
	s.Equal(first.SubscriptionNo, second.SubscriptionNo)

	var count int64
	s.Require().NoError(s.db.Model(&models.Subscription{}).Count(&count).Error)
	s.Equal(int64(1), count)

	end := now.AddDate(0, 2, 0)
	sub, err := s.subs.GetByNo(s.ctx, first.SubscriptionNo)
	s.Require().NoError(err)
	s.WithinDuration(end, sub.CurrentPeriodEnd, time.Minute)

	rows, _, err := s.credits.ListCredits(s.ctx, credit.ListFilter{UserID: s.caller.ID, TransactionType: credit.TypeGrant})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	scenes := map[string]time.Time{}
	for _, r := range rows {
		s.Require().NotNil(r.ExpiresAt)
		scenes[r.TransactionScene] = *r.ExpiresAt
	}
	s.WithinDuration(now.AddDate(0, 1, 0), scenes[credit.SceneSubscription], time.Minute)
	s.WithinDuration(end, scenes[credit.SceneRenewal], time.Minute)
	s.Equal(200, s.balance())
}

func (s *StudioSuite) TestAdminChangesAreAudited() {
	admin := Actor{ID: uuid.New(), IP: "10.0.0.1"}

	granted, err := s.admin.GrantCredits(s.ctx, admin, AdminGrantRequest{
		UserID: s.caller.ID.String(), Credits: 30, ValidDays: 7, Description: "support",
	})
	s.Require().NoError(err)
	s.Equal(credit.SceneGift, granted.TransactionScene)
	s.Equal(30, s.balance())

	_, err = s.admin.GrantCredits(s.ctx, admin, AdminGrantRequest{UserID: "nope", Credits: 1})
	s.ErrorIs(err, ErrInvalidUserID)

	_, err = s.admin.DeleteCredit(s.ctx, admin, granted.ID)
	s.Require().NoError(err)
	s.Equal(0, s.balance())

	_, err = s.admin.UpdateConfigs(s.ctx, admin, map[string]string{appconfig.KeyInitialCreditsAmount: "10"})
	s.Require().NoError(err)
	values, err := s.admin.UpdateConfigs(s.ctx, admin, map[string]string{appconfig.KeyInitialCreditsAmount: "10"})
	s.Require().NoError(err)
	s.Equal("10", values[appconfig.KeyInitialCreditsAmount])

	page, err := s.admin.AuditLogs(s.ctx, audit.Filter{})
	s.Require().NoError(err)
	s.EqualValues(3, page.TotalCount)

	page, err = s.admin.AuditLogs(s.ctx, audit.Filter{Entity: audit.EntityCredit, Action: audit.ActionDelete})
	s.Require().NoError(err)
	s.Require().Len(page.Logs, 1)
	s.Equal(granted.TransactionNo, page.Logs[0].EntityID)

	balances, err := s.admin.Balances(s.ctx, []uuid.UUID{s.caller.ID, uuid.New()})
	s.Require().NoError(err)
	s.Len(balances, 2)
}

func (s *StudioSuite) TestExpireSubscriptions() {
	past := time.Now().UTC().Add(-time.Hour)
	s.Require().NoError(s.subs.Create(s.ctx, &models.Subscription{
		SubscriptionNo: "sub_old", UserID: s.caller.ID, Plan: "plan_basic_monthly",
		Status: models.SubscriptionActive, CreditsPerPeriod: 100,
		CurrentPeriodStart: past.AddDate(0, -1, 0), CurrentPeriodEnd: past,
	}))

	n, err := s.billing.ExpireSubscriptions(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	sub, err := s.billing.CurrentSubscription(s.ctx, s.caller.ID)
	s.Require().NoError(err)
	s.Nil(sub)
}
