package services

import (
	"errors"
	"fmt"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/models"
)

var (
	ErrInvalidMediaType = errors.New("invalid mediaType")
	ErrInvalidScene     = errors.New("invalid scene")
)

// GenerationCost returns the credit price of one generation and the scene it
// is billed under. Music is always billed as text-to-music.
func GenerationCost(mediaType, scene string) (int, string, error) {
	switch mediaType {
	case imagegen.MediaImage:
		switch scene {
		case imagegen.SceneTextToImage, imagegen.SceneImageToImage:
			return 1, scene, nil
		}
	case imagegen.MediaVideo:
		switch scene {
		case imagegen.SceneTextToVideo:
			return 6, scene, nil
		case imagegen.SceneImageToVideo:
			return 8, scene, nil
		case imagegen.SceneVideoToVideo:
			return 10, scene, nil
		}
	case imagegen.MediaMusic:
		return 10, imagegen.SceneTextToMusic, nil
	default:
		return 0, "", fmt.Errorf("%w: %s", ErrInvalidMediaType, mediaType)
	}
	return 0, "", fmt.Errorf("%w: %s", ErrInvalidScene, scene)
}

// Product is something a user can buy: a one-off credit pack or a
// subscription plan that refills every period.
type Product struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Credits   int    `json:"credits"`
	ValidDays int    `json:"valid_days,omitempty"`
	// PeriodMonths is set for subscription plans.
	PeriodMonths int    `json:"period_months,omitempty"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

var catalog = []Product{
	{ID: "pack_starter", Kind: models.OrderKindOneTime, Name: "Starter pack", Credits: 50, ValidDays: 90, Amount: 499, Currency: "USD"},
	{ID: "pack_pro", Kind: models.OrderKindOneTime, Name: "Pro pack", Credits: 200, ValidDays: 180, Amount: 1499, Currency: "USD"},
	{ID: "pack_forever", Kind: models.OrderKindOneTime, Name: "Lifetime pack", Credits: 500, Amount: 2999, Currency: "USD"},
	{ID: "plan_basic_monthly", Kind: models.OrderKindSubscription, Name: "Basic monthly", Credits: 100, PeriodMonths: 1, Amount: 799, Currency: "USD"},
	{ID: "plan_pro_monthly", Kind: models.OrderKindSubscription, Name: "Pro monthly", Credits: 400, PeriodMonths: 1, Amount: 1999, Currency: "USD"},
	{ID: "plan_pro_yearly", Kind: models.OrderKindSubscription, Name: "Pro yearly", Credits: 5000, PeriodMonths: 12, Amount: 19900, Currency: "USD"},
}

func Catalog() []Product {
	out := make([]Product, len(catalog))
	copy(out, catalog)
	return out
}

func FindProduct(id string) (Product, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
