package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adviserops/chaser/internal/api/handlers"
	"github.com/adviserops/chaser/internal/config"
	"github.com/adviserops/chaser/internal/dispatch"
	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/jobs"
	"github.com/adviserops/chaser/internal/llm"
	"github.com/adviserops/chaser/internal/repository"
	"github.com/adviserops/chaser/internal/server"
	"github.com/adviserops/chaser/internal/service"
	"github.com/adviserops/chaser/internal/storage"
	"github.com/adviserops/chaser/internal/telemetry"
	"github.com/adviserops/chaser/internal/tools"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the chaser API server and the autonomous cycle worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Skip starting the autonomous cycle worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chaseRepo := repository.NewChaseRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	commRepo := repository.NewCommunicationRepository(pool)
	firmRepo := repository.NewFirmRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(firmRepo, apiKeyRepo, uuidGen)

	if cfg.InitFirmName != "" {
		if err := bootstrapInitialFirm(ctx, cfg, firmRepo, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial firm: %w", err)
		}
	}

	scorer := service.NewScoringEngine(service.DefaultScoringConfig())
	builder := service.NewRecommendationBuilder()

	catalog := tools.NewCatalog()
	chaseToolset := tools.NewChaseToolset(chaseRepo, scorer.ScoreAll, builder.Build, func() time.Time { return time.Now().UTC() })
	if err := chaseToolset.RegisterAll(catalog); err != nil {
		return fmt.Errorf("failed to register chase tools: %w", err)
	}
	insightToolset := tools.NewInsightToolset(clientRepo, chaseRepo, func() time.Time { return time.Now().UTC() })
	if err := insightToolset.RegisterAll(catalog); err != nil {
		return fmt.Errorf("failed to register insight tools: %w", err)
	}
	catalog.Seal()
	log.Printf("tool catalog sealed with %d tools", catalog.Len())

	var orchestrator *service.Orchestrator
	var answerer service.QueryAnswerer
	if cfg.HasOpenAI() {
		reasoner := llm.NewReasonerWithConfig(llm.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})
		orchestrator = service.NewOrchestrator(catalog, reasoner, service.OrchestratorConfig{
			MaxRounds:   cfg.MaxReasoningRounds,
			ToolTimeout: cfg.ToolTimeout,
		})
		answerer = orchestrator
		log.Println("reasoning loop enabled")
	} else {
		orchestrator = service.NewOrchestrator(catalog, nil, service.OrchestratorConfig{
			MaxRounds:   cfg.MaxReasoningRounds,
			ToolTimeout: cfg.ToolTimeout,
		})
		log.Println("no OpenAI key configured: queries and llm-assisted cycles unavailable")
	}

	var dispatcher service.Dispatcher
	taskLog := dispatch.NewTaskLogDispatcher()
	if cfg.HasSMTP() {
		dispatcher = dispatch.NewEmailDispatcher(dispatch.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, clientRepo, taskLog)
		log.Println("email dispatch enabled")
	} else {
		dispatcher = taskLog
		log.Println("no SMTP configured: all dispatches go to the task log")
	}

	var archiver service.CommunicationArchiver
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("communication archive bucket '%s' ready", cfg.S3Bucket)
		archiver = s3Client
	}

	snapshots := service.NewSnapshotCache(5 * time.Minute)
	chaseSvc := service.NewChaseService(chaseRepo, scorer, builder)
	cycleSvc := service.NewCycleService(chaseRepo, commRepo, scorer, builder, dispatcher, archiver, answerer, snapshots, service.DefaultCycleConfig())

	routerCfg := server.RouterConfig{
		AuthValidator: authSvc,
		ChaseHandler:  handlers.NewChaseHandler(chaseSvc),
		QueryHandler:  handlers.NewQueryHandler(orchestrator),
		CycleHandler:  handlers.NewCycleHandler(cycleSvc, commRepo),
		AuthHandler:   handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(routerCfg)

	var cycleWorker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		mode, err := domain.ParseCycleMode(cfg.CycleMode)
		if err != nil {
			return fmt.Errorf("invalid cycle mode %q: %w", cfg.CycleMode, err)
		}
		if mode == domain.CycleModeLLMAssisted && answerer == nil {
			log.Println("cycle worker: llm_assisted requested without an OpenAI key, runs will degrade to rule_based")
		}
		processor := jobs.NewCycleWorker(firmRepo, cycleSvc, mode)
		cycleWorker = jobs.NewWorker(processor, cfg.CycleInterval)
		go cycleWorker.Start(ctx)
		log.Printf("cycle worker started (mode=%s, interval=%v)", mode, cfg.CycleInterval)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if cycleWorker != nil {
		cycleWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func bootstrapInitialFirm(ctx context.Context, cfg *config.Config, firmRepo *repository.FirmRepository, authSvc *service.AuthService) error {
	firm, err := firmRepo.GetByName(ctx, cfg.InitFirmName)
	if err != nil && err != domain.ErrFirmNotFound {
		return fmt.Errorf("failed to check existing firm: %w", err)
	}

	if firm == nil {
		firm, err = authSvc.CreateFirm(ctx, cfg.InitFirmName)
		if err != nil {
			return fmt.Errorf("failed to create firm: %w", err)
		}
		log.Printf("bootstrap: created firm '%s' (id: %s)", firm.Name, firm.ID)
	} else {
		log.Printf("bootstrap: firm '%s' already exists (id: %s)", firm.Name, firm.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid CHASER_INIT_API_KEY format (expected 'chs_<64 hex chars>')")
		}

		existingKey, err := authSvc.GetAPIKeyByHash(ctx, cfg.InitAPIKey)
		if err == nil && existingKey != nil {
			log.Printf("bootstrap: API key already exists (id: %s)", existingKey.ID)
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, firm.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
