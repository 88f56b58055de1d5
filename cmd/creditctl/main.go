package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/config"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/database"
)

func main() {
	open := func() (*credit.Service, func(), error) {
		cfg := config.LoadConfig()
		db, err := database.Open(context.Background(), cfg.DatabaseURL, database.DefaultOptions())
		if err != nil {
			return nil, nil, err
		}
		svc := credit.NewService(credit.NewRepository(db.GORM), credit.Options{
			BatchSize:  cfg.CreditBatchSize,
			MaxBatches: cfg.CreditMaxBatches,
		})
		return svc, func() { _ = db.Close() }, nil
	}

	if err := newRootCmd(open, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
