package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/repositories"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	JobTypeGenerate = "generate_image"
	QueueGeneration = "generation"
)

var (
	ErrInvalidParams      = errors.New("invalid params")
	ErrPromptRequired     = errors.New("prompt or options is required")
	ErrDailyLimitExceeded = errors.New("daily_limit_exceeded")
)

// Caller is the authenticated user a request runs for.
type Caller struct {
	ID    uuid.UUID
	Email string
}

type GenerateRequest struct {
	Provider  string                 `json:"provider"`
	MediaType string                 `json:"media_type"`
	Model     string                 `json:"model"`
	Prompt    string                 `json:"prompt"`
	Options   map[string]interface{} `json:"options,omitempty"`
	Scene     string                 `json:"scene"`
}

// GeneratePayload is the job payload for JobTypeGenerate.
type GeneratePayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

type GenerationService struct {
	db         *gorm.DB
	credits    *credit.Service
	tasks      repositories.TaskRepo
	subs       repositories.SubscriptionRepo
	providers  *imagegen.Registry
	queue      *jobs.Queue
	dailyLimit int
	now        func() time.Time
}

// NewGenerationService wires the paid generation flow. dailyLimit <= 0
// disables the free-tier daily cap.
func NewGenerationService(
	db *gorm.DB,
	credits *credit.Service,
	tasks repositories.TaskRepo,
	subs repositories.SubscriptionRepo,
	providers *imagegen.Registry,
	queue *jobs.Queue,
	dailyLimit int,
) *GenerationService {
	return &GenerationService{
		db:         db,
		credits:    credits,
		tasks:      tasks,
		subs:       subs,
		providers:  providers,
		queue:      queue,
		dailyLimit: dailyLimit,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate charges the caller and queues the work. The task row, the CONSUME
// ledger row and the job are committed together.
func (s *GenerationService) Generate(ctx context.Context, caller Caller, req GenerateRequest) (*models.AITask, error) {
	req.Provider = strings.TrimSpace(req.Provider)
	req.MediaType = strings.TrimSpace(req.MediaType)
	req.Model = strings.TrimSpace(req.Model)
	if req.Provider == "" || req.MediaType == "" || req.Model == "" {
		return nil, ErrInvalidParams
	}
	if strings.TrimSpace(req.Prompt) == "" && len(req.Options) == 0 {
		return nil, ErrPromptRequired
	}

	cost, scene, err := GenerationCost(req.MediaType, req.Scene)
	if err != nil {
		return nil, err
	}

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	if !provider.Supports(req.MediaType, scene) {
		return nil, fmt.Errorf("%w: %s %s", imagegen.ErrUnsupportedMedia, req.MediaType, scene)
	}

	balance, err := s.credits.GetRemainingCredits(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, &credit.InsufficientCreditsError{Balance: balance, Requested: cost}
	}

	limited, err := s.checkDailyLimit(ctx, caller.ID, cost)
	if err != nil {
		return nil, err
	}

	var options []byte
	if len(req.Options) > 0 {
		if options, err = json.Marshal(req.Options); err != nil {
			return nil, fmt.Errorf("invalid options: %w", err)
		}
	}

	task := &models.AITask{
		ID:          uuid.New(),
		UserID:      caller.ID,
		MediaType:   req.MediaType,
		Provider:    req.Provider,
		Model:       req.Model,
		Scene:       scene,
		Prompt:      req.Prompt,
		Options:     options,
		Status:      models.TaskStatusPending,
		CostCredits: cost,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		consumed, err := s.credits.ConsumeCreditsTx(ctx, tx, credit.ConsumeRequest{
			UserID:      caller.ID,
			UserEmail:   caller.Email,
			Credits:     cost,
			Scene:       scene,
			Description: fmt.Sprintf("generate %s", req.MediaType),
			Metadata: map[string]interface{}{
				"task_id":  task.ID.String(),
				"provider": req.Provider,
				"model":    req.Model,
			},
		})
		if err != nil {
			return err
		}
		task.CreditTransactionNo = consumed.TransactionNo

		// The consume above holds the user's grant rows, so concurrent
		// charges are serialized and this sum sees every committed one.
		if limited {
			today, err := s.credits.GetTodayConsumedCreditsTx(ctx, tx, caller.ID)
			if err != nil {
				return err
			}
			if today > s.dailyLimit {
				return ErrDailyLimitExceeded
			}
		}

		if err := s.tasks.WithTx(tx).Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		_, err = s.queue.EnqueueTx(ctx, tx, caller.ID, JobTypeGenerate, GeneratePayload{TaskID: task.ID}, jobs.EnqueueOptions{
			Queue:      QueueGeneration,
			Priority:   jobs.PriorityNormal,
			MaxRetries: 3,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("task_id", task.ID.String()).
		Str("user_id", caller.ID.String()).
		Str("scene", scene).
		Int("cost", cost).
		Msg("🎨 generation queued")
	return task, nil
}

// checkDailyLimit caps users without an active subscription. It reports
// whether the cap applies so the charge can check it again under lock.
func (s *GenerationService) checkDailyLimit(ctx context.Context, userID uuid.UUID, cost int) (bool, error) {
	if s.dailyLimit <= 0 {
		return false, nil
	}
	sub, err := s.subs.GetCurrent(ctx, userID, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub != nil {
		return false, nil
	}
	today, err := s.credits.GetTodayConsumedCredits(ctx, userID)
	if err != nil {
		return true, err
	}
	if today+cost > s.dailyLimit {
		return true, ErrDailyLimitExceeded
	}
	return true, nil
}

func (s *GenerationService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*models.AITask, error) {
	return s.tasks.GetForUser(ctx, taskID, userID)
}

// Refund fails the task and returns its cost as a never-expiring grant. Only
// the call that moves the task to failed issues the grant.
func (s *GenerationService) Refund(ctx context.Context, taskID uuid.UUID, reason string) error {
	var refunded *credit.Credit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		task, err := tasks.Get(ctx, taskID)
		if err != nil {
			return err
		}
		changed, err := tasks.MarkFailed(ctx, taskID, reason, s.now())
		if err != nil {
			return err
		}
		if !changed || task.CostCredits <= 0 {
			return nil
		}

		refunded, err = s.credits.GrantCreditsTx(ctx, tx, credit.GrantRequest{
			UserID:      task.UserID,
			Credits:     task.CostCredits,
			Scene:       credit.SceneRefund,
			Description: "refund for failed generation",
			Metadata: map[string]interface{}{
				"task_id":        task.ID.String(),
				"transaction_no": task.CreditTransactionNo,
			},
		})
		if err != nil {
			return err
		}
		return tasks.SetRefund(ctx, taskID, refunded.TransactionNo)
	})
	if err != nil {
		return fmt.Errorf("failed to refund task %s: %w", taskID, err)
	}
	if refunded != nil {
		log.Info().Str("task_id", taskID.String()).Int("credits", refunded.Credits).Msg("↩️ generation refunded")
	}
	return nil
}
