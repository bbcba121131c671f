package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"cryptoshop-bot/internal/catalog"
	"cryptoshop-bot/internal/config"
	"cryptoshop-bot/internal/conversation"
	"cryptoshop-bot/internal/cryptopay"
	"cryptoshop-bot/internal/db"
	"cryptoshop-bot/internal/health"
	"cryptoshop-bot/internal/i18n"
	"cryptoshop-bot/internal/metrics"
	"cryptoshop-bot/internal/paytest"
	"cryptoshop-bot/internal/scheduler"
	"cryptoshop-bot/internal/telegram"
)

func main() {
	// Настраиваем структурированное логирование
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting bot-service", "version", "1.0.0", "pid", os.Getpid())

	// Загружаем конфигурацию
	cfg := config.Load()
	level.Set(cfg.LogLevel)
	slog.Info("Configuration loaded",
		"db_dsn", cfg.DBDsn,
		"crypto_pay_url", cfg.CryptoPayURL,
		"health_addr", cfg.HealthAddr,
		"plans_file", cfg.PlansFile,
		"languages", cfg.SupportedLanguages,
		"has_admin", cfg.AdminID != "",
		"has_bot_token", cfg.BotToken != "",
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Каталог тарифов
	plans := catalog.Default()
	if cfg.PlansFile != "" {
		loaded, err := catalog.Load(cfg.PlansFile)
		if err != nil {
			slog.Error("Failed to load plans", "error", err, "file", cfg.PlansFile)
			os.Exit(1)
		}
		plans = loaded
	}
	slog.Info("Plans loaded", "count", len(plans.Plans()))

	translator, err := i18n.New(cfg.DefaultLanguage, cfg.SupportedLanguages)
	if err != nil {
		slog.Error("Failed to load translations", "error", err)
		os.Exit(1)
	}

	// Инициализируем репозиторий
	repo, err := db.NewRepository(cfg.DBDsn)
	if err != nil {
		slog.Error("Failed to initialize database repository", "error", err, "dsn", cfg.DBDsn)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("Database repository initialized successfully")

	// Выполняем миграции
	if err := repo.AutoMigrate(); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed successfully")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	store := db.NewSubscriptionStore(repo, plans, cfg.DefaultLanguage, m)
	gateway := cryptopay.NewClient(cryptopay.Config{
		BaseURL: cfg.CryptoPayURL,
		Token:   cfg.CryptoPayToken,
		Timeout: cfg.GatewayTimeout,
	}, m)

	// Создаем Telegram бота
	bot, err := telegram.NewBotAPI(cfg.BotToken)
	if err != nil {
		slog.Error("Failed to create Telegram bot", "error", err)
		os.Exit(1)
	}

	notifier := telegram.NewAdminNotifier(bot, cfg.AdminChatID())
	defer notifier.Wait()

	machine := conversation.NewMachine(conversation.Deps{
		Sessions:         conversation.NewMemorySessions(),
		Store:            store,
		Gateway:          gateway,
		Catalog:          plans,
		Loc:              translator,
		Notifier:         notifier,
		Metrics:          m,
		DefaultLanguage:  cfg.DefaultLanguage,
		MaxPaymentChecks: cfg.MaxPaymentChecks,
	})

	telegramService := telegram.New(bot, machine, telegram.NewKeyboards(translator, plans), cfg.DefaultLanguage)
	slog.Info("Telegram service created successfully")

	// Настраиваем graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Проверяем Crypto Pay. Без него не работают покупки, но остальное меню доступно.
	probe := paytest.NewIntegrationTest(gateway, cfg.CryptoPayURL, notifier.NotifyAdmin)
	if err := probe.RunStartupTest(ctx); err != nil {
		slog.Warn("Continuing with unavailable payment gateway", "error", err)
	}

	// Создаем health сервер
	healthServer := health.NewServer(cfg.HealthAddr, registry, map[string]health.CheckFunc{
		"db": repo.Ping,
		"cryptopay": func(ctx context.Context) error {
			_, err := gateway.GetMe(ctx)
			return err
		},
	})
	slog.Info("Health server created", "addr", cfg.HealthAddr)

	// Запускаем health сервер в горутине
	go func() {
		slog.Info("Starting health server")
		if err := healthServer.Start(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Health server failed", "error", err)
			} else {
				slog.Info("Health server stopped")
			}
		}
	}()
	defer func() {
		slog.Info("Stopping health server")
		if err := healthServer.Stop(); err != nil {
			slog.Error("Failed to stop health server", "error", err)
		}
	}()

	// Создаем и запускаем планировщик
	cronScheduler := scheduler.NewScheduler(scheduler.Config{
		ReconcileSchedule: cfg.ReconcileSchedule,
		ReminderSchedule:  cfg.ReminderSchedule,
	}, scheduler.Deps{
		Store:   store,
		Gateway: gateway,
		Catalog: plans,
		Loc:     translator,
		Users:   telegramService,
		Admin:   notifier,
		Metrics: m,
	})
	if err := cronScheduler.Start(ctx); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		slog.Warn("Continuing without scheduler")
	} else {
		slog.Info("Scheduler started successfully")
		defer func() {
			slog.Info("Stopping scheduler")
			cronScheduler.Stop()
		}()
	}

	// Запускаем Telegram бота
	slog.Info("Starting Telegram bot...")
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	err = telegramService.Start(ctx, updates)
	bot.StopReceivingUpdates()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("Telegram bot stopped by signal")
		} else {
			slog.Error("Telegram bot failed", "error", err)
		}
	}

	slog.Info("Bot service shutdown completed")
}
