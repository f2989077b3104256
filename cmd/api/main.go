package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"viagens/internal/api"
	"viagens/internal/audit"
	"viagens/internal/auth"
	"viagens/internal/config"
	"viagens/internal/database"
	"viagens/internal/docs"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/export"
	"viagens/internal/google"
	"viagens/internal/logging"
	"viagens/internal/metrics"
	"viagens/internal/models"
	"viagens/internal/notify"
	"viagens/internal/repository"
	"viagens/internal/service"
	"viagens/internal/storage"
	"viagens/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(&logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	kv := initKVStore(cfg, redisClient, &logger)

	eventBus := events.NewEventBus()
	eventBus.OnError(func(event *events.Event, err error) {
		logger.Warn().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})
	recorder := audit.NewRecorder(kv, cfg.Audit.MaxEntries, logging.Component(&logger, "audit"))
	recorder.Subscribe(eventBus)

	outbox := worker.NewOutboxWorker(db, redisClient, worker.PolicyFromConfig(cfg.Outbox), worker.Options{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		KeyPrefix:    cfg.Redis.KeyPrefix,
	}, logging.Component(&logger, "outbox"))

	render := notify.NewRenderer("pt-BR")
	generator := docs.NewGenerator(render, cfg.Billing.ReceiptSecret)
	tokens := auth.NewTokenIssuer(cfg.API.Auth.JWTSecret, cfg.API.Auth.TokenTTL, cfg.API.Auth.Issuer)

	svc, err := buildServices(cfg, db, kv, eventBus, outbox, recorder, tokens, render, generator, &logger)
	if err != nil {
		return err
	}

	handlers := service.NewNotificationHandlers(db, svc.Billing, render, generator,
		initMailer(cfg, &logger), initStaffNotifier(cfg, &logger), initRoster(ctx, cfg, &logger), logging.Component(&logger, "notifications"))
	handlers.Register(outbox)

	users, err := loadUsers(&logger)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		n, err := svc.Users.SeedUsers(ctx, users)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		logger.Info().Int("users", n).Msg("users seeded")
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := api.NewHTTPServer(cfg.API, svc, tokens, logging.Component(&logger, "http"))

	startMetrics(ctx, cfg, &logger)

	var wg sync.WaitGroup
	startBackground(ctx, &wg, func(ctx context.Context) { outbox.Start(ctx) })
	startBackground(ctx, &wg, func(ctx context.Context) {
		worker.NewOverdueSweeper(svc.Billing, cfg.Billing.OverdueSweepInterval, logging.Component(&logger, "overdue")).Start(ctx)
	})
	startBackground(ctx, &wg, svc.Backup.Start)
	startBackground(ctx, &wg, func(ctx context.Context) { pruneAudit(ctx, recorder, cfg.Audit, &logger) })

	err = serve(ctx, httpServer, cfg, &logger)
	stop()
	wg.Wait()
	logger.Info().Msg("background workers stopped")
	return err
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadUsers reads the seed accounts. A missing file means no seeding.
func loadUsers(logger *zerolog.Logger) ([]models.User, error) {
	usersPath := os.Getenv("USERS_PATH")
	if usersPath == "" {
		usersPath = "configs/users.yaml"
	}
	data, err := os.ReadFile(usersPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info().Str("users_path", usersPath).Msg("no users file, skipping seed")
		return nil, nil
	}
	if err != nil {
		logger.Error().Err(err).Str("users_path", usersPath).Msg("read users")
		return nil, err
	}

	var usersConfig struct {
		Users []models.User `yaml:"users"`
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &usersConfig); err != nil {
		logger.Error().Err(err).Str("users_path", usersPath).Msg("parse users")
		return nil, err
	}
	return usersConfig.Users, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	for _, dir := range []string{cfg.Backup.StoragePath, cfg.Exports.Path, cfg.Uploads.Path} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("create directory")
			return err
		}
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initKVStore backs the audit log and backup marks with Redis when it is
// reachable, falling back to memory.
func initKVStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.KVStore {
	memory := repository.NewMemoryKVStore()
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisKVStore(redisClient, cfg.Redis.KeyPrefix)
	return repository.NewFailoverKVStore(primary, memory, logging.Component(logger, "kv"))
}

func buildServices(
	cfg *config.Config,
	db *database.DB,
	kv domain.KVStore,
	bus *events.EventBus,
	outbox *worker.OutboxWorker,
	recorder *audit.Recorder,
	tokens *auth.TokenIssuer,
	render *notify.Renderer,
	generator *docs.Generator,
	logger *zerolog.Logger,
) (api.Services, error) {
	files, err := storage.NewFileStore(cfg.Uploads)
	if err != nil {
		return api.Services{}, fmt.Errorf("init uploads: %w", err)
	}

	prices := service.PricingTable(cfg.Pricing)
	svcLogger := logging.Component(logger, "service")

	company := service.NewCompanyService(db, cfg.Company, bus, svcLogger)
	clients := service.NewClientService(db, prices, bus, outbox, svcLogger)
	billing := service.NewBillingService(db, cfg.Billing, company, render, generator, bus, outbox, svcLogger)

	svc := api.Services{
		Users:         service.NewUserService(db, tokens, bus, svcLogger),
		Trips:         service.NewTripService(db, cfg.Layout, prices, bus, outbox, svcLogger),
		Clients:       clients,
		Billing:       billing,
		Company:       company,
		Intake:        service.NewIntakeService(db, clients, render, bus, outbox, svcLogger),
		Documents:     service.NewDocumentService(db, files, bus, svcLogger),
		Exports:       service.NewExportService(db, company, export.NewExporter(cfg.Exports.Path, logging.Component(logger, "export"))),
		Suppliers:     service.NewRecordService[models.Supplier](db, service.ValidateSupplier, bus, svcLogger),
		Staff:         service.NewRecordService[models.StaffMember](db, service.ValidateStaffMember, bus, svcLogger),
		Expenses:      service.NewRecordService[models.CompanyExpense](db, service.ValidateExpense, bus, svcLogger),
		Contacts:      service.NewRecordService[models.Contact](db, service.ValidateContact, bus, svcLogger),
		ContractForms: service.NewRecordService[models.ContractForm](db, service.ValidateContractForm, bus, svcLogger),
		Backup:        database.NewBackupService(db, cfg.Backup, kv, logging.Component(logger, "backup")),
		Audit:         recorder,
	}
	return svc, nil
}

func initMailer(cfg *config.Config, logger *zerolog.Logger) domain.Mailer {
	mailLogger := logging.Component(logger, "mail")
	if !cfg.Mail.Enabled {
		logger.Warn().Msg("mail disabled, emails are only logged")
		return notify.NewLogMailer(mailLogger)
	}
	return notify.NewSMTPMailer(cfg.Mail, mailLogger)
}

func initStaffNotifier(cfg *config.Config, logger *zerolog.Logger) domain.StaffNotifier {
	tgLogger := logging.Component(logger, "telegram")
	if cfg.Telegram.BotToken == "" || cfg.Telegram.StaffChatID == 0 {
		return notify.NewLogNotifier(tgLogger)
	}
	bot, err := notify.NewTelegramBot(cfg.Telegram.BotToken, "", cfg.Telegram.Debug)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, staff alerts are only logged")
		return notify.NewLogNotifier(tgLogger)
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram connected")
	return notify.NewTelegramNotifier(bot, cfg.Telegram.StaffChatID, tgLogger)
}

// initRoster returns nil when the spreadsheet mirror is not configured.
func initRoster(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.RosterWriter {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.RosterSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.RosterSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without roster mirror")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		email, _ := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile)
		logger.Warn().Err(err).Str("service_account", email).Msg("google sheets unreachable, share the spreadsheet with the service account")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func startBackground(ctx context.Context, wg *sync.WaitGroup, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn(ctx)
	}()
}

// pruneAudit drops audit entries past the retention window once a day.
func pruneAudit(ctx context.Context, recorder *audit.Recorder, cfg config.AuditConfig, logger *zerolog.Logger) {
	maxAge := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if n, err := recorder.Prune(ctx, maxAge); err != nil {
			logger.Warn().Err(err).Msg("audit prune failed")
		} else if n > 0 {
			logger.Info().Int("removed", n).Msg("audit entries pruned")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
