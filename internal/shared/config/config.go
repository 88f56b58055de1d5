package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	Env         string

	JWTSecret      string
	GoogleClientID string

	OpenAIKey  string
	ImageModel string

	StorageProvider string
	UploadDir       string
	PublicBaseURL   string

	PaymentMode          string
	PaymentCheckoutURL   string
	PaymentAccountInfo   string
	PaymentWebhookSecret string

	CreditBatchSize      int
	CreditMaxBatches     int
	CreditExpireSchedule string
	DailyFreeLimit       int

	WorkerConcurrency int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		Port:                 os.Getenv("PORT"),
		Env:                  os.Getenv("ENV"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		OpenAIKey:            os.Getenv("OPENAI_API_KEY"),
		ImageModel:           os.Getenv("IMAGE_MODEL"),
		StorageProvider:      os.Getenv("STORAGE_PROVIDER"),
		UploadDir:            os.Getenv("UPLOAD_DIR"),
		PublicBaseURL:        os.Getenv("PUBLIC_BASE_URL"),
		PaymentMode:          os.Getenv("PAYMENT_MODE"),
		PaymentCheckoutURL:   os.Getenv("PAYMENT_CHECKOUT_URL"),
		PaymentAccountInfo:   os.Getenv("PAYMENT_ACCOUNT_INFO"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		CreditExpireSchedule: os.Getenv("CREDIT_EXPIRE_SCHEDULE"),
		CreditBatchSize:      getEnvInt("CREDIT_BATCH_SIZE", 1000),
		CreditMaxBatches:     getEnvInt("CREDIT_MAX_BATCHES", 10),
		DailyFreeLimit:       getEnvInt("DAILY_FREE_LIMIT", 2),
		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 3),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "dall-e-3"
	}
	if cfg.StorageProvider == "" {
		cfg.StorageProvider = "local"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.CreditExpireSchedule == "" {
		// every 10 minutes, seconds-resolution cron
		cfg.CreditExpireSchedule = "0 */10 * * * *"
	}

	return cfg
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("⚠️ invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}
