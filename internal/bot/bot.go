// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go подключает обработчики и запускает polling.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/bot/filters"
	"clickfix.ru/clickfix-bot/internal/bot/middleware"
	"clickfix.ru/clickfix-bot/internal/config"
	"clickfix.ru/clickfix-bot/internal/features/catalog"
	"clickfix.ru/clickfix-bot/internal/features/creator"
	"clickfix.ru/clickfix-bot/internal/features/sales"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	catalogHandler *catalog.Handler
	salesHandler   *sales.Handler
	creatorHandler *creator.Handler

	creatorService *creator.Service

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	catalogHandler *catalog.Handler,
	salesHandler *sales.Handler,
	creatorHandler *creator.Handler,
	creatorService *creator.Service,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:            api,
		cfg:            cfg,
		chatFilter:     chatFilter,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		catalogHandler: catalogHandler,
		salesHandler:   salesHandler,
		creatorHandler: creatorHandler,
		creatorService: creatorService,
		parser:         NewCommandParser(),
		inflight:       make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.Message == nil || update.Message.Text == "" {
		return
	}

	message := update.Message

	// Логируем входящее
	middleware.LogMessage(message)

	// Бот работает только в личке
	if !b.chatFilter.CheckAccess(message) {
		return
	}

	// Rate limiting
	if message.From != nil && !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// Парсим команду
	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	log.WithFields(log.Fields{
		"isCommand": isCommand,
		"cmd":       cmd,
		"args":      args,
	}).Debug("parsed command")

	if isCommand {
		b.routeCommand(ctx, chatID, userID, cmd, args)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	switch cmd {
	case "start", "help":
		b.sendMessage(chatID, helpText)

	case "matches":
		b.catalogHandler.HandleMatches(ctx, chatID)

	case "pay":
		b.salesHandler.HandlePay(ctx, chatID, userID, args)

	case "login":
		b.creatorHandler.HandleLogin(ctx, chatID, userID, args)

	// Команды создателя — требуют allowlist и активную сессию
	case "newmatch":
		if !b.requireCreator(ctx, chatID, userID) {
			return
		}
		b.catalogHandler.HandleNewMatch(ctx, chatID, userID, args)

	case "sales":
		if !b.requireCreator(ctx, chatID, userID) {
			return
		}
		b.salesHandler.HandleSales(ctx, chatID, userID)
	}
}

const helpText = "Привет! Это ClickFix — бот продажи записей матчей.\n\n" +
	"/matches — список доступных матчей\n" +
	"/pay имя_матча — купить (придёт платёжная ссылка)\n\n" +
	"Для создателей: /login пароль, затем /newmatch и /sales"

// requireCreator проверяет права создателя и активную сессию.
func (b *Bot) requireCreator(ctx context.Context, chatID, userID int64) bool {
	if !b.cfg.IsCreator(userID) {
		b.sendMessage(chatID, "❌ Команда доступна только создателям")
		return false
	}
	if !b.creatorService.Authorized(ctx, userID) {
		b.sendMessage(chatID, "❌ Сессия не найдена или истекла. Выполните /login пароль")
		return false
	}
	return true
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToUser отправляет сообщение пользователю (для напоминаний и дайджестов).
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	} else {
		log.WithField("user_id", userID).Debug("message sent")
	}
}

// CommandParser парсит команды с префиксами /, ! и .
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	text = strings.TrimSpace(text)
	parts := strings.Fields(text)

	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	// Telegram дописывает @botname к командам в инлайн-подсказках
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
