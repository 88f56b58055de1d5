package services

import (
	"context"
	"fmt"
	"time"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/repositories"
	"github.com/google/uuid"
)

type GalleryImage struct {
	ID        string    `json:"id"`
	TaskID    uuid.UUID `json:"taskId"`
	ImageURL  string    `json:"imageUrl"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

type GalleryPage struct {
	Images     []GalleryImage `json:"images"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

type GalleryService struct {
	tasks repositories.TaskRepo
}

func NewGalleryService(tasks repositories.TaskRepo) *GalleryService {
	return &GalleryService{tasks: tasks}
}

// ListImages pages over the user's successful image tasks. Total counts
// tasks, and each task may contribute several images.
func (s *GalleryService) ListImages(ctx context.Context, userID uuid.UUID, page, limit int) (*GalleryPage, error) {
	tasks, total, err := s.tasks.List(ctx, repositories.TaskFilter{
		UserID:    userID,
		MediaType: imagegen.MediaImage,
		Status:    models.TaskStatusSuccess,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	images := make([]GalleryImage, 0, len(tasks))
	for _, t := range tasks {
		for i, img := range t.Info().Images {
			if img.ImageURL == "" {
				continue
			}
			images = append(images, GalleryImage{
				ID:        fmt.Sprintf("%s-%d", t.ID, i),
				TaskID:    t.ID,
				ImageURL:  img.ImageURL,
				Prompt:    t.Prompt,
				Model:     t.Model,
				Provider:  t.Provider,
				CreatedAt: t.CreatedAt,
			})
		}
	}

	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &GalleryPage{
		Images:     images,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pages,
	}, nil
}

func (s *GalleryService) DeleteImage(ctx context.Context, userID, taskID uuid.UUID) error {
	ok, err := s.tasks.SoftDelete(ctx, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if !ok {
		return repositories.ErrTaskNotFound
	}
	return nil
}

// ListCreations returns every task of a user, newest first.
func (s *GalleryService) ListCreations(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.AITask, int64, error) {
	return s.tasks.List(ctx, repositories.TaskFilter{UserID: userID, Page: page, Limit: limit})
}
