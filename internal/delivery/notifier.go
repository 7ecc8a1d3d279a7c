// Package delivery отправляет оплаченный контент покупателю.
// Доставка best-effort: её ошибка никогда не откатывает отметку оплаты,
// решение об этом принимает вызывающий (вебхук или /pay).
package delivery

import (
	"context"
	"fmt"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Notifier отправляет контент через Telegram.
// Таймаут исходящих вызовов задаётся HTTP-клиентом tgbotapi при сборке
// приложения (tgbotapi не принимает context в Send).
type Notifier struct {
	bot *tgbotapi.BotAPI
}

// NewNotifier создаёт нотификатор.
func NewNotifier(bot *tgbotapi.BotAPI) *Notifier {
	return &Notifier{bot: bot}
}

// Deliver отправляет контент покупателю.
//
// Если contentRef — это http(s)-адрес, уходит сообщение со ссылкой.
// Иначе contentRef считается путём к локальному файлу и уходит документом
// с описанием в подписи.
//
// Ошибка (сеть, нет файла, Telegram отклонил) возвращается вызывающему
// как некритичное предупреждение.
func (n *Notifier) Deliver(ctx context.Context, buyerID int64, contentRef, description string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if IsRemoteReference(contentRef) {
		text := fmt.Sprintf("🎉 Оплата получена!\n\n%s\n\nВаш контент: %s", description, contentRef)
		msg := tgbotapi.NewMessage(buyerID, text)
		if _, err := n.bot.Send(msg); err != nil {
			return fmt.Errorf("ошибка отправки ссылки: %w", err)
		}
		log.WithField("buyer_id", buyerID).Info("Контент доставлен (ссылка)")
		return nil
	}

	if _, err := os.Stat(contentRef); err != nil {
		return fmt.Errorf("файл контента недоступен: %w", err)
	}

	doc := tgbotapi.NewDocument(buyerID, tgbotapi.FilePath(contentRef))
	doc.Caption = "🎉 Оплата получена!\n" + description
	if _, err := n.bot.Send(doc); err != nil {
		return fmt.Errorf("ошибка отправки файла: %w", err)
	}
	log.WithField("buyer_id", buyerID).Info("Контент доставлен (файл)")
	return nil
}

// NotifyFailure сообщает покупателю, что контент не доехал.
// Best-effort: ошибка отправки глотается, оплата уже зафиксирована.
func (n *Notifier) NotifyFailure(buyerID int64) {
	msg := tgbotapi.NewMessage(buyerID,
		"⚠️ Оплата получена, но контент отправить не удалось. Напишите создателю или повторите /pay позже.")
	if _, err := n.bot.Send(msg); err != nil {
		log.WithError(err).WithField("buyer_id", buyerID).Debug("Не удалось отправить уведомление о сбое доставки")
	}
}

// IsRemoteReference сообщает, является ли ссылка на контент удалённым адресом.
func IsRemoteReference(contentRef string) bool {
	return strings.HasPrefix(contentRef, "http://") || strings.HasPrefix(contentRef, "https://")
}
