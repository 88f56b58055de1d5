package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/payment"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/repositories"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrUnknownProduct  = errors.New("unknown product")
	ErrOrderNotPayable = errors.New("order is not payable")
)

// period is a subscription billing window reported by the payment provider.
type period struct {
	subscriptionNo string
	start          time.Time
	end            time.Time
}

type BillingService struct {
	db      *gorm.DB
	credits *credit.Service
	orders  repositories.OrderRepo
	subs    repositories.SubscriptionRepo
	gateway payment.Gateway
	now     func() time.Time
}

func NewBillingService(db *gorm.DB, credits *credit.Service, orders repositories.OrderRepo, subs repositories.SubscriptionRepo, gateway payment.Gateway) *BillingService {
	return &BillingService{
		db:      db,
		credits: credits,
		orders:  orders,
		subs:    subs,
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder opens a pending order for a catalog product and starts checkout.
func (s *BillingService) CreateOrder(ctx context.Context, caller Caller, productID string) (*models.Order, *payment.CheckoutResult, error) {
	product, ok := FindProduct(productID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	orderNo, err := payment.NewOrderNo()
	if err != nil {
		return nil, nil, err
	}

	checkout, err := s.gateway.Checkout(ctx, payment.CheckoutRequest{
		OrderNo:     orderNo,
		UserEmail:   caller.Email,
		Amount:      product.Amount,
		Currency:    product.Currency,
		Description: product.Name,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start checkout: %w", err)
	}

	order := &models.Order{
		OrderNo:       orderNo,
		UserID:        caller.ID,
		UserEmail:     caller.Email,
		Kind:          product.Kind,
		ProductID:     product.ID,
		Credits:       product.Credits,
		ValidDays:     product.ValidDays,
		Amount:        product.Amount,
		Currency:      product.Currency,
		Status:        payment.StatusPending,
		PaymentMethod: checkout.Method,
		PaymentLink:   checkout.PaymentLink,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	log.Info().Str("order_no", orderNo).Str("product", product.ID).Str("user_id", caller.ID.String()).Msg("🧾 order created")
	return order, checkout, nil
}

func (s *BillingService) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID, 50)
}

func (s *BillingService) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.subs.GetCurrent(ctx, userID, s.now())
}

// HandleEvent applies a verified webhook event. Replays are no-ops.
func (s *BillingService) HandleEvent(ctx context.Context, ev *payment.Event) error {
	switch ev.Type {
	case payment.EventOrderPaid:
		_, _, err := s.confirm(ctx, ev.OrderNo, payment.MethodHosted, nil)
		return err
	case payment.EventSubscriptionPaid:
		p := &period{subscriptionNo: ev.SubscriptionNo, end: ev.CurrentPeriodEnd.UTC()}
		if ev.CurrentPeriodStart != nil {
			p.start = ev.CurrentPeriodStart.UTC()
		} else {
			p.start = s.now()
		}
		_, _, err := s.confirm(ctx, ev.OrderNo, payment.MethodHosted, p)
		return err
	default:
		return fmt.Errorf("%w: %s", payment.ErrUnknownEvent, ev.Type)
	}
}

// ConfirmOrder marks an order paid by hand. It reports whether credits were
// granted by this call.
func (s *BillingService) ConfirmOrder(ctx context.Context, orderNo string) (*models.Order, bool, error) {
	return s.confirm(ctx, orderNo, payment.MethodManual, nil)
}

// confirm grants in the same transaction as the pending to paid transition,
// so a second delivery of the same payment finds nothing to do.
func (s *BillingService) confirm(ctx context.Context, orderNo, method string, p *period) (*models.Order, bool, error) {
	var (
		order   *models.Order
		granted bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		var err error
		order, err = orders.GetByOrderNo(ctx, orderNo)
		if err != nil {
			return err
		}
		if order.Status == payment.StatusCancelled {
			return fmt.Errorf("%w: %s is %s", ErrOrderNotPayable, orderNo, order.Status)
		}

		now := s.now()
		changed, err := orders.MarkPaid(ctx, orderNo, method, now)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		order.Status = payment.StatusPaid
		order.PaidAt = &now

		switch order.Kind {
		case models.OrderKindSubscription:
			err = s.grantSubscription(ctx, tx, order, p)
		default:
			_, err = s.credits.GrantCreditsTx(ctx, tx, credit.GrantRequest{
				UserID:      order.UserID,
				UserEmail:   order.UserEmail,
				Credits:     order.Credits,
				ValidDays:   order.ValidDays,
				Scene:       credit.ScenePayment,
				Description: fmt.Sprintf("purchase %s", order.ProductID),
				OrderNo:     order.OrderNo,
			})
		}
		if err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if granted {
		log.Info().Str("order_no", orderNo).Int("credits", order.Credits).Msg("💰 order paid, credits granted")
	} else {
		log.Info().Str("order_no", orderNo).Msg("order already paid, skipping")
	}
	return order, granted, nil
}

func (s *BillingService) grantSubscription(ctx context.Context, tx *gorm.DB, order *models.Order, p *period) error {
	product, ok := FindProduct(order.ProductID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, order.ProductID)
	}
	subs := s.subs.WithTx(tx)
	now := s.now()

	subNo := order.SubscriptionNo
	if p != nil && p.subscriptionNo != "" {
		subNo = p.subscriptionNo
	}

	var existing *models.Subscription
	if subNo != "" {
		sub, err := subs.GetByNo(ctx, subNo)
		switch {
		case err == nil:
			existing = sub
		case !errors.Is(err, repositories.ErrSubscriptionNotFound):
			return err
		}
	} else {
		// Manual orders carry no subscription number; extend the active
		// subscription on the same plan instead of opening a second one.
		cur, err := subs.GetCurrent(ctx, order.UserID, now)
		if err != nil {
			return err
		}
		if cur != nil && cur.Plan == product.ID {
			existing = cur
			subNo = cur.SubscriptionNo
		}
	}

	if p == nil {
		p = &period{start: now}
		if existing != nil && existing.CurrentPeriodEnd.After(now) {
			p.start = existing.CurrentPeriodEnd
		}
		p.end = p.start.AddDate(0, product.PeriodMonths, 0)
	}

	scene := credit.SceneSubscription
	if existing == nil {
		if subNo == "" {
			no, err := payment.NewSubscriptionNo()
			if err != nil {
				return err
			}
			subNo = no
		}
		if err := subs.Create(ctx, &models.Subscription{
			SubscriptionNo:     subNo,
			UserID:             order.UserID,
			Plan:               product.ID,
			Status:             models.SubscriptionActive,
			CreditsPerPeriod:   order.Credits,
			CurrentPeriodStart: p.start,
			CurrentPeriodEnd:   p.end,
		}); err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
	} else {
		scene = credit.SceneRenewal
		if err := subs.UpdatePeriod(ctx, existing.ID, p.start, p.end); err != nil {
			return fmt.Errorf("failed to renew subscription: %w", err)
		}
	}

	if err := s.orders.WithTx(tx).SetSubscriptionNo(ctx, order.OrderNo, subNo); err != nil {
		return err
	}
	order.SubscriptionNo = subNo

	_, err := s.credits.GrantCreditsTx(ctx, tx, credit.GrantRequest{
		UserID:         order.UserID,
		UserEmail:      order.UserEmail,
		Credits:        order.Credits,
		ValidDays:      daysUntil(now, p.end),
		PeriodEnd:      &p.end,
		Scene:          scene,
		Description:    fmt.Sprintf("%s %s", scene, product.ID),
		OrderNo:        order.OrderNo,
		SubscriptionNo: subNo,
	})
	return err
}

// ExpireSubscriptions marks lapsed subscriptions expired.
func (s *BillingService) ExpireSubscriptions(ctx context.Context) (int64, error) {
	return s.subs.ExpireDue(ctx, s.now())
}

// daysUntil is at least 1 so period-aligned grants always expire.
func daysUntil(now, end time.Time) int {
	d := int(math.Ceil(end.Sub(now).Hours() / 24))
	if d < 1 {
		return 1
	}
	return d
}
