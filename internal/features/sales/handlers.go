// Package sales — handlers.go обрабатывает команды:
// /pay (покупка матча), /sales (дашборд создателя).
package sales

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/common"
	"clickfix.ru/clickfix-bot/internal/features/catalog"
)

// Deliverer отправляет купленный контент покупателю. Реализуется delivery.Notifier.
type Deliverer interface {
	Deliver(ctx context.Context, buyerID int64, contentRef, description string) error
}

// Handler обрабатывает команды продаж.
type Handler struct {
	service        *Service
	catalogService *catalog.Service
	notifier       Deliverer
	bot            *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик команд продаж.
func NewHandler(service *Service, catalogService *catalog.Service, notifier Deliverer, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		service:        service,
		catalogService: catalogService,
		notifier:       notifier,
		bot:            bot,
	}
}

// HandlePay обрабатывает команду /pay <имя_матча>.
//
// Покупатель получает платёжную ссылку Razorpay. Если матч уже куплен —
// контент отправляется повторно (покупатель сам попросил, это не дубль вебхука).
func (h *Handler) HandlePay(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: /pay имя_матча\nСписок матчей: /matches")
		return
	}
	matchName := args[0]

	m, err := h.catalogService.GetActiveMatch(ctx, matchName)
	if err != nil {
		switch err {
		case common.ErrMatchNotFound:
			h.sendMessage(chatID, "❌ Матч не найден. Список: /matches")
		case common.ErrMatchExpired:
			h.sendMessage(chatID, "❌ Срок продажи этого матча истёк")
		default:
			log.WithError(err).Error("Ошибка получения матча")
			h.sendMessage(chatID, "❌ Ошибка, попробуйте позже")
		}
		return
	}

	sale, err := h.service.RequestLink(ctx, userID, m)
	if err == common.ErrAlreadyPaid {
		h.sendMessage(chatID, "✅ Этот матч уже куплен, отправляю контент ещё раз")
		if derr := h.notifier.Deliver(ctx, userID, m.ContentRef, m.Description); derr != nil {
			log.WithError(derr).WithFields(log.Fields{
				"buyer_id":   userID,
				"match_name": m.MatchName,
			}).Warn("Повторная доставка не удалась")
			h.sendMessage(chatID, "⚠️ Не удалось отправить контент, напишите создателю")
		}
		return
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"buyer_id":   userID,
			"match_name": matchName,
		}).Error("Ошибка выпуска платёжной ссылки")
		h.sendMessage(chatID, "❌ Не удалось создать платёжную ссылку, попробуйте позже")
		return
	}

	text := fmt.Sprintf("💳 Матч «%s» — %s\n\nОплатите по ссылке:\n%s\n\nПосле оплаты контент придёт автоматически.",
		m.MatchName, common.FormatPrice(m.Price), sale.PaymentLinkURL)
	h.sendMessage(chatID, text)
}

// HandleSales обрабатывает команду /sales — дашборд продаж создателя.
// Доступ проверяется в маршрутизации (allowlist + активная сессия).
func (h *Handler) HandleSales(ctx context.Context, chatID, userID int64) {
	// С начала эпохи = за всё время
	text, err := h.service.CreatorDashboard(ctx, userID, time.Unix(0, 0))
	if err != nil {
		log.WithError(err).Error("Ошибка получения дашборда продаж")
		h.sendMessage(chatID, "❌ Ошибка получения статистики")
		return
	}
	h.sendMessage(chatID, text)
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
