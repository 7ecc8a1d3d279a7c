// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики
// и собирает бота, вебхук-сервер и планировщик в один объект.
package app

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/bot"
	"clickfix.ru/clickfix-bot/internal/bot/filters"
	"clickfix.ru/clickfix-bot/internal/common"
	"clickfix.ru/clickfix-bot/internal/config"
	"clickfix.ru/clickfix-bot/internal/db/postgres"
	"clickfix.ru/clickfix-bot/internal/delivery"
	"clickfix.ru/clickfix-bot/internal/features/catalog"
	"clickfix.ru/clickfix-bot/internal/features/creator"
	"clickfix.ru/clickfix-bot/internal/features/sales"
	"clickfix.ru/clickfix-bot/internal/jobs"
	"clickfix.ru/clickfix-bot/internal/payments/razorpay"
	"clickfix.ru/clickfix-bot/internal/webhook"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Webhook   *webhook.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	// Таймаут HTTP-клиента ограничивает и доставку контента: tgbotapi
	// не принимает context в Send, поэтому граница живёт здесь.
	botAPI, err := tgbotapi.NewBotAPIWithClient(
		cfg.TelegramBotToken, tgbotapi.APIEndpoint,
		&http.Client{Timeout: cfg.DeliveryTimeout},
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Платёжный шлюз ===
	gateway := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.DeliveryTimeout)

	// === 4. Репозитории ===
	catalogRepo := catalog.NewRepository(pool)
	salesRepo := sales.NewRepository(pool)
	creatorRepo := creator.NewRepository(pool)

	// === 5. Сервисы ===
	catalogService := catalog.NewService(catalogRepo)
	salesService := sales.NewService(salesRepo, gateway, cfg.BasePublicURL+"/payment_callback")
	creatorService := creator.NewService(creatorRepo, cfg)
	notifier := delivery.NewNotifier(botAPI)

	// === 6. Обработчики ===
	loc := common.AppLocation(cfg.AppTimezone)
	catalogHandler := catalog.NewHandler(catalogService, botAPI, loc)
	salesHandler := sales.NewHandler(salesService, catalogService, notifier, botAPI)
	creatorHandler := creator.NewHandler(creatorService, botAPI)

	// === 7. Фильтры ===
	chatFilter := filters.NewChatFilter()

	// === 8. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		catalogHandler,
		salesHandler,
		creatorHandler,
		creatorService,
		chatFilter,
	)

	// === 9. Вебхук Razorpay ===
	reconciler := webhook.NewReconciler(salesRepo, catalogRepo, notifier, cfg.DeliveryTimeout)
	webhookServer := webhook.NewServer(cfg.WebhookListenAddr, cfg.RazorpayWebhookSecret, reconciler, pool, cfg.AppEnv)

	// === 10. Планировщик задач ===
	scheduler := jobs.NewScheduler(salesService, cfg, b.SendMessageToUser)

	return &App{
		Bot:       b,
		Webhook:   webhookServer,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Matches},
		{2, migration002Sales},
		{3, migration003Creator},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Matches = `
CREATE TABLE IF NOT EXISTS matches (
    id BIGSERIAL PRIMARY KEY,
    match_name VARCHAR(64) UNIQUE NOT NULL,
    creator_id BIGINT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    content_ref TEXT NOT NULL,
    price BIGINT NOT NULL CHECK (price > 0),
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_matches_creator_id ON matches(creator_id);
CREATE INDEX IF NOT EXISTS idx_matches_expires_at ON matches(expires_at);
`

var migration002Sales = `
CREATE TABLE IF NOT EXISTS sales (
    id BIGSERIAL PRIMARY KEY,
    buyer_id BIGINT NOT NULL,
    match_name VARCHAR(64) NOT NULL REFERENCES matches(match_name),
    gateway_reference VARCHAR(255) NOT NULL DEFAULT '',
    payment_link_url TEXT NOT NULL DEFAULT '',
    paid BOOLEAN NOT NULL DEFAULT FALSE,
    paid_at TIMESTAMP,
    reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (buyer_id, match_name)
);
CREATE INDEX IF NOT EXISTS idx_sales_match_name ON sales(match_name);
CREATE INDEX IF NOT EXISTS idx_sales_unpaid ON sales(paid, reminder_sent) WHERE paid = FALSE;
`

var migration003Creator = `
CREATE TABLE IF NOT EXISTS creator_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP,
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_creator_sessions_user_id ON creator_sessions(user_id);
CREATE TABLE IF NOT EXISTS creator_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    attempt_time TIMESTAMP DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
`
