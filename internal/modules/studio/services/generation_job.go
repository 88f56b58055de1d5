package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/upload"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/repositories"
	"github.com/rs/zerolog/log"
)

// GenerationJob runs queued generations and stores their output.
type GenerationJob struct {
	tasks      repositories.TaskRepo
	providers  *imagegen.Registry
	storage    *upload.Service
	generation *GenerationService
	now        func() time.Time
}

func NewGenerationJob(tasks repositories.TaskRepo, providers *imagegen.Registry, storage *upload.Service, generation *GenerationService) *GenerationJob {
	return &GenerationJob{
		tasks:      tasks,
		providers:  providers,
		storage:    storage,
		generation: generation,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (j *GenerationJob) Type() string {
	return JobTypeGenerate
}

func (j *GenerationJob) Handle(ctx context.Context, job *jobs.Job) error {
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}

	task, err := j.tasks.Get(ctx, payload.TaskID)
	if err != nil {
		return err
	}
	if task.Status == models.TaskStatusSuccess || task.Status == models.TaskStatusFailed {
		log.Info().Str("task_id", task.ID.String()).Str("status", task.Status).Msg("task already finished, skipping")
		return nil
	}
	if _, err := j.tasks.MarkProcessing(ctx, task.ID); err != nil {
		return err
	}

	provider, err := j.providers.Get(task.Provider)
	if err != nil {
		return err
	}
	var opts map[string]interface{}
	if len(task.Options) > 0 {
		if err := json.Unmarshal(task.Options, &opts); err != nil {
			return fmt.Errorf("invalid task options: %w", err)
		}
	}

	result, err := provider.Generate(ctx, imagegen.Request{
		MediaType: task.MediaType,
		Scene:     task.Scene,
		Model:     task.Model,
		Prompt:    task.Prompt,
		Options:   opts,
		UserRef:   task.UserID.String(),
	})
	if err != nil {
		return err
	}

	folder := path.Join("generations", task.UserID.String())
	var info models.TaskInfo
	for i, out := range result.Outputs {
		name := fmt.Sprintf("%s-%d", task.ID, i)
		var obj *upload.Object
		if len(out.Data) > 0 {
			obj, err = j.storage.SaveBytes(ctx, folder, name, out.Data, out.ContentType)
		} else {
			obj, err = j.storage.Mirror(ctx, folder, name, out.URL)
		}
		if err != nil {
			return fmt.Errorf("failed to store output %d: %w", i, err)
		}
		info.Images = append(info.Images, models.TaskImage{
			ImageURL:      obj.URL,
			Key:           obj.Key,
			RevisedPrompt: out.RevisedPrompt,
		})
	}

	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return j.tasks.MarkSuccess(ctx, task.ID, raw, j.now())
}

// OnPermanentFailure refunds the task once its retries are exhausted.
func (j *GenerationJob) OnPermanentFailure(ctx context.Context, job *jobs.Job, cause error) error {
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	return j.generation.Refund(ctx, payload.TaskID, cause.Error())
}

func decodePayload(job *jobs.Job) (GeneratePayload, error) {
	var p GeneratePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return p, fmt.Errorf("invalid job payload: %w", err)
	}
	return p, nil
}
