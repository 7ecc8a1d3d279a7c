// Package catalog — handlers.go обрабатывает команды:
// /newmatch (регистрация матча, только создатели), /matches (список для покупателей).
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/common"
)

// Handler обрабатывает команды каталога.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
	loc     *time.Location // Часовой пояс для ввода/вывода дат
}

// NewHandler создаёт новый обработчик команд каталога.
func NewHandler(service *Service, bot *tgbotapi.BotAPI, loc *time.Location) *Handler {
	return &Handler{service: service, bot: bot, loc: loc}
}

// HandleNewMatch обрабатывает команду /newmatch.
//
// Формат (поля разделяются «|»):
//
//	/newmatch finals | 50000 | 72h | Финал турнира, полная запись | https://cdn.clickfix.ru/finals.mp4
//
// Цена — в пайсах. Срок — либо длительность от текущего момента (72h),
// либо дата "02.01.2006 15:04".
func (h *Handler) HandleNewMatch(ctx context.Context, chatID, userID int64, args []string) {
	fields := splitPipe(strings.Join(args, " "))
	if len(fields) != 5 {
		h.sendMessage(chatID, "❌ Формат: /newmatch имя | цена_в_пайсах | срок | описание | контент")
		return
	}

	price, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Цена должна быть целым числом пайс (₹500 = 50000)")
		return
	}

	expiresAt, err := h.parseExpiry(fields[2])
	if err != nil {
		h.sendMessage(chatID, "❌ Срок: длительность (72h) или дата \"02.01.2006 15:04\"")
		return
	}

	m := &Match{
		MatchName:   fields[0],
		CreatorID:   userID,
		Price:       price,
		ExpiresAt:   expiresAt,
		Description: fields[3],
		ContentRef:  fields[4],
	}

	if err := h.service.Register(ctx, m); err != nil {
		switch err {
		case common.ErrMatchExists:
			h.sendMessage(chatID, "❌ Матч с таким именем уже существует")
		case common.ErrInvalidPrice:
			h.sendMessage(chatID, "❌ Цена должна быть положительной")
		default:
			log.WithError(err).Error("Ошибка регистрации матча")
			h.sendMessage(chatID, "❌ "+err.Error())
		}
		return
	}

	text := fmt.Sprintf("✅ Матч «%s» зарегистрирован\nЦена: %s\nПродажа до: %s",
		m.MatchName, common.FormatPrice(m.Price), common.FormatDateTime(m.ExpiresAt, h.loc))
	h.sendMessage(chatID, text)
}

// HandleMatches обрабатывает команду /matches — список доступных матчей.
func (h *Handler) HandleMatches(ctx context.Context, chatID int64) {
	matches, err := h.service.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения списка матчей")
		h.sendMessage(chatID, "❌ Ошибка получения списка матчей")
		return
	}

	if len(matches) == 0 {
		h.sendMessage(chatID, "📭 Сейчас нет доступных матчей")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 Доступно %d %s:\n\n",
		len(matches), common.PluralizeMatches(int64(len(matches)))))
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("• %s — %s\n  %s\n  до %s\n",
			m.MatchName, common.FormatPrice(m.Price),
			m.Description, common.FormatDateTime(m.ExpiresAt, h.loc)))
	}
	sb.WriteString("\nКупить: /pay имя_матча")
	h.sendMessage(chatID, sb.String())
}

// parseExpiry разбирает срок продажи: длительность или дата в поясе приложения.
func (h *Handler) parseExpiry(s string) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("длительность должна быть положительной")
		}
		return time.Now().Add(d), nil
	}
	return time.ParseInLocation("02.01.2006 15:04", s, h.loc)
}

// splitPipe режет строку по «|» и обрезает пробелы у каждого поля.
func splitPipe(s string) []string {
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// sendMessage — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
