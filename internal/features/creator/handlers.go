// Package creator — handlers.go обрабатывает команду /login.
package creator

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/common"
)

// Handler обрабатывает команды авторизации создателей.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleLogin обрабатывает /login <пароль>. Только в личке:
// маршрутизация не пускает эту команду из групповых чатов.
func (h *Handler) HandleLogin(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: /login пароль")
		return
	}

	err := h.service.Login(ctx, userID, args[0])
	switch err {
	case nil:
		h.sendMessage(chatID, "✅ Вы авторизованы на 24 часа\nКоманды: /newmatch, /sales")
	case common.ErrNotCreator:
		h.sendMessage(chatID, "❌ У вас нет прав создателя")
	case common.ErrWrongPassword:
		h.sendMessage(chatID, "❌ Неверный пароль")
	case common.ErrTooManyAttempts:
		h.sendMessage(chatID, "❌ Слишком много попыток, подождите 1 час")
	default:
		log.WithError(err).Error("Ошибка входа создателя")
		h.sendMessage(chatID, "❌ Ошибка входа, попробуйте позже")
	}
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
