package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/appconfig"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/audit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/auth"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/payment"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/scheduler"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/upload"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/handlers"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/repositories"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/modules/studio/services"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/config"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/database"
	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/utils"

	_ "github.com/MuhamadAgungGumelar/ai-image-studio-be/cmd/saas-api/docs"
)

// @title AI Image Studio API
// @version 1.0
// @description Credit-metered AI image generation: accounts, credit ledger, generation tasks, gallery and billing.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.IsProduction())
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("🚀 Starting saas-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbOpts := database.DefaultOptions()
	dbOpts.Debug = !cfg.IsProduction()
	db, err := database.Open(ctx, cfg.DatabaseURL, dbOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Database unavailable")
	}
	defer db.Close()

	if err := credit.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	// Ledger
	settings := appconfig.NewStore(db.GORM, time.Minute)
	creditService := credit.NewService(credit.NewRepository(db.GORM), credit.Options{
		BatchSize:  cfg.CreditBatchSize,
		MaxBatches: cfg.CreditMaxBatches,
	})
	signupBonus := credit.NewSignupBonus(creditService, settings, credit.NewAbuseChecker(db.GORM))

	// Auth
	authService := auth.NewService(auth.NewRepository(db.GORM), auth.NewJWTService(cfg.JWTSecret), signupBonus)
	authHandler := auth.NewHandler(authService, auth.NewGoogleOAuthService(cfg.GoogleClientID))
	protected := auth.AuthMiddleware(authService)

	// Storage
	storageProvider, err := upload.NewProvider(ctx, upload.LoadProviderConfigFromEnv(cfg.StorageProvider, cfg.UploadDir, cfg.PublicBaseURL))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage provider")
	}
	storage := upload.NewService(storageProvider)
	log.Info().Str("provider", storage.ProviderName()).Msg("🗂️ Storage ready")

	// Generation
	providers := imagegen.NewRegistry()
	if cfg.OpenAIKey != "" {
		providers.Register(imagegen.NewOpenAIProvider(cfg.OpenAIKey, cfg.ImageModel))
	} else {
		log.Warn().Msg("⚠️ OPENAI_API_KEY not set, no image provider registered")
	}
	log.Info().Strs("providers", providers.Names()).Msg("🎨 Image providers")

	queue := jobs.NewQueue(db.GORM)
	taskRepo := repositories.NewTaskRepo(db.GORM)
	subRepo := repositories.NewSubscriptionRepo(db.GORM)
	orderRepo := repositories.NewOrderRepo(db.GORM)

	generationService := services.NewGenerationService(db.GORM, creditService, taskRepo, subRepo, providers, queue, cfg.DailyFreeLimit)
	galleryService := services.NewGalleryService(taskRepo)

	// Billing
	gateway, err := payment.NewGateway(payment.GatewayConfig{
		Mode:          cfg.PaymentMode,
		CheckoutURL:   cfg.PaymentCheckoutURL,
		AccountInfo:   cfg.PaymentAccountInfo,
		WebhookSecret: cfg.PaymentWebhookSecret,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize payment gateway")
	}
	if cfg.PaymentWebhookSecret == "" {
		log.Warn().Msg("⚠️ PAYMENT_WEBHOOK_SECRET not set, payment webhooks will be rejected")
	}
	billingService := services.NewBillingService(db.GORM, creditService, orderRepo, subRepo, gateway)
	auditService := audit.NewService(db.GORM)
	adminService := services.NewAdminService(db.GORM, creditService, auditService, settings)

	// Workers
	workerConfig := jobs.DefaultWorkerConfig(services.QueueGeneration)
	workerConfig.Concurrency = cfg.WorkerConcurrency
	worker := jobs.NewWorker(queue, workerConfig)
	worker.RegisterHandler(services.NewGenerationJob(taskRepo, providers, storage, generationService))
	worker.Start(ctx)

	// Maintenance
	sched := scheduler.New(5 * time.Minute)
	mustAdd(sched, "credit-expiry", cfg.CreditExpireSchedule, func(ctx context.Context) error {
		_, err := creditService.ExpireCredits(ctx)
		return err
	})
	mustAdd(sched, "subscription-expiry", cfg.CreditExpireSchedule, func(ctx context.Context) error {
		n, err := billingService.ExpireSubscriptions(ctx)
		if n > 0 {
			log.Info().Int64("expired", n).Msg("subscriptions expired")
		}
		return err
	})
	mustAdd(sched, "job-cleanup", "0 30 3 * * *", func(ctx context.Context) error {
		n, err := queue.DeleteOldJobs(ctx, 7*24*time.Hour)
		if n > 0 {
			log.Info().Int64("deleted", n).Msg("🧹 old jobs deleted")
		}
		return err
	})
	mustAdd(sched, "job-reclaim", "0 */5 * * * *", func(ctx context.Context) error {
		_, err := worker.ReclaimStale(ctx)
		return err
	})
	mustAdd(sched, "audit-prune", "0 0 4 * * 0", func(ctx context.Context) error {
		_, err := auditService.Prune(ctx, 180*24*time.Hour)
		return err
	})
	sched.Start()

	// HTTP
	app := fiber.New(fiber.Config{
		AppName:   "AI Image Studio API",
		BodyLimit: 25 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(utils.RequestLogger())
	app.Use(cors.New())

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if local, ok := storageProvider.(*upload.LocalProvider); ok {
		app.Static(upload.PublicPath, local.Dir())
	}

	authHandler.RegisterRoutes(app, protected)
	app.Post("/storage/images", protected, upload.NewHandler(storage, auth.CurrentUserID).UploadImage)
	handlers.RegisterRoutes(app, handlers.Handlers{
		AI:      handlers.NewAIHandler(generationService),
		Gallery: handlers.NewGalleryHandler(galleryService),
		Credit:  handlers.NewCreditHandler(creditService),
		Billing: handlers.NewBillingHandler(billingService, payment.NewVerifier(cfg.PaymentWebhookSecret)),
		Admin:   handlers.NewAdminHandler(adminService, billingService, galleryService),
	}, protected)

	go func() {
		log.Info().Msgf("✅ saas-api running at :%s", cfg.Port)
		log.Info().Msgf("📄 Swagger UI: http://localhost:%s/swagger/", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("🛑 Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("failed to shut down http server")
	}
	sched.Stop()
	worker.Stop()
}

func mustAdd(s *scheduler.Scheduler, name, spec string, task scheduler.Task) {
	if err := s.Add(name, spec, task); err != nil {
		log.Fatal().Err(err).Str("task", name).Msg("failed to schedule task")
	}
}
