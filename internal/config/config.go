// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
// Никаких глобальных переменных — структура передаётся в конструкторы явно.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Создатели контента (им доступны /newmatch и /sales)
	CreatorIDsRaw string  `envconfig:"CREATOR_IDS" required:"true"`
	CreatorIDs    []int64 `envconfig:"-"` // заполним вручную

	// --- Razorpay ---
	RazorpayKeyID         string `envconfig:"RAZORPAY_KEY_ID" required:"true"`
	RazorpayKeySecret     string `envconfig:"RAZORPAY_KEY_SECRET" required:"true"`
	RazorpayWebhookSecret string `envconfig:"RAZORPAY_WEBHOOK_SECRET" required:"true"`
	// Базовый публичный URL для callback после оплаты
	BasePublicURL string `envconfig:"BASE_PUBLIC_URL" required:"true"`

	// --- Webhook server ---
	WebhookListenAddr string `envconfig:"WEBHOOK_LISTEN_ADDR" default:":8080"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"clickfix_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Razorpay живёт по IST, поэтому дефолтный пояс — Индия
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Asia/Kolkata"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Creator auth ---
	CreatorPasswordHash string `envconfig:"CREATOR_PASSWORD_HASH" required:"true"`

	// --- Delivery ---
	// Таймаут исходящих вызовов Telegram API (отправка контента может блокировать)
	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"30s"`

	// --- Jobs ---
	// Через сколько после создания неоплаченной продажи напоминать о ссылке
	ReminderAfter time.Duration `envconfig:"REMINDER_AFTER" default:"1h"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if len(c.CreatorIDs) == 0 {
		return fmt.Errorf("CREATOR_IDS не задан")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT должен быть > 0")
	}
	if !strings.HasPrefix(c.BasePublicURL, "http://") && !strings.HasPrefix(c.BasePublicURL, "https://") {
		return fmt.Errorf("BASE_PUBLIC_URL должен начинаться с http:// или https://")
	}
	return nil
}

// IsCreator проверяет, входит ли пользователь в список создателей.
func (c *Config) IsCreator(userID int64) bool {
	for _, id := range c.CreatorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.CreatorIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("CREATOR_IDS parse: %w", err)
	}
	cfg.CreatorIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
