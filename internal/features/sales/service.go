// Package sales — service.go содержит бизнес-логику покупательского потока:
// выпуск платёжной ссылки и создание неоплаченной продажи.
// Отметку оплаты выполняет не этот сервис, а вебхук-реконсилятор
// через Repository.MarkPaid.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/common"
	"clickfix.ru/clickfix-bot/internal/features/catalog"
	"clickfix.ru/clickfix-bot/internal/payments/razorpay"
)

// LinkCreator выпускает платёжные ссылки. Реализуется razorpay.Client.
type LinkCreator interface {
	CreatePaymentLink(ctx context.Context, req razorpay.PaymentLinkRequest) (*razorpay.PaymentLink, error)
}

// Service управляет продажами.
type Service struct {
	repo        *Repository
	gateway     LinkCreator
	callbackURL string // Куда Razorpay вернёт покупателя после оплаты
}

// NewService создаёт новый сервис продаж.
func NewService(repo *Repository, gateway LinkCreator, callbackURL string) *Service {
	return &Service{repo: repo, gateway: gateway, callbackURL: callbackURL}
}

// RequestLink возвращает продажу с платёжной ссылкой для пары (покупатель, матч).
//
// Поведение:
//   - продажа уже оплачена → возвращается она же вместе с common.ErrAlreadyPaid
//     (вызывающий решает, доставлять ли контент повторно);
//   - существует неоплаченная продажа → возвращается она, новая ссылка
//     не выпускается (один платёжный цикл на пару);
//   - продажи нет → выпускается ссылка Razorpay с notes-корреляцией
//     {user_id, match_name} и записывается новая неоплаченная продажа.
func (s *Service) RequestLink(ctx context.Context, buyerID int64, m *catalog.Match) (*Sale, error) {
	existing, err := s.repo.GetSale(ctx, buyerID, m.MatchName)
	switch {
	case err == nil:
		if existing.Paid {
			return existing, common.ErrAlreadyPaid
		}
		log.WithFields(log.Fields{
			"buyer_id":   buyerID,
			"match_name": m.MatchName,
		}).Debug("Повторный /pay: отдаём существующую ссылку")
		return existing, nil
	case errors.Is(err, common.ErrSaleNotFound):
		// Продажи нет — выпускаем ссылку ниже
	default:
		return nil, err
	}

	link, err := s.gateway.CreatePaymentLink(ctx, razorpay.PaymentLinkRequest{
		Amount:      m.Price,
		Currency:    "INR",
		Description: m.Description,
		ReferenceID: uuid.NewString(),
		ExpireBy:    m.ExpiresAt.Unix(),
		CallbackURL: s.callbackURL,
		Notes: razorpay.Notes{
			UserID:    strconv.FormatInt(buyerID, 10),
			MatchName: m.MatchName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка выпуска платёжной ссылки: %w", err)
	}

	sale := &Sale{
		BuyerID:          buyerID,
		MatchName:        m.MatchName,
		GatewayReference: link.ID,
		PaymentLinkURL:   link.ShortURL,
	}
	if err := s.repo.CreateSale(ctx, sale); err != nil {
		return nil, err
	}

	// Перечитываем: при гонке двух /pay вставилась только одна запись,
	// и отдать надо именно её (с её ссылкой).
	sale, err = s.repo.GetSale(ctx, buyerID, m.MatchName)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"buyer_id":   buyerID,
		"match_name": m.MatchName,
		"gateway_ref": sale.GatewayReference,
	}).Info("Платёжная ссылка выпущена")
	return sale, nil
}

// GetSale возвращает продажу по естественному ключу.
func (s *Service) GetSale(ctx context.Context, buyerID int64, matchName string) (*Sale, error) {
	return s.repo.GetSale(ctx, buyerID, matchName)
}

// SendReminders рассылает напоминания по неоплаченным продажам старше olderThan.
// Каждая продажа напоминается один раз (reminder_sent). Ошибка отправки
// не помечает продажу — попробуем в следующий час.
func (s *Service) SendReminders(ctx context.Context, olderThan time.Duration, sendFunc func(userID int64, text string)) error {
	pending, err := s.repo.ListPendingReminders(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return err
	}

	for _, sale := range pending {
		text := fmt.Sprintf("⏳ Матч «%s» ждёт оплаты.\nСсылка ещё действует:\n%s",
			sale.MatchName, sale.PaymentLinkURL)
		sendFunc(sale.BuyerID, text)

		if err := s.repo.MarkReminderSent(ctx, sale.ID); err != nil {
			log.WithError(err).WithField("sale_id", sale.ID).Warn("Не удалось пометить напоминание")
		}
	}

	if len(pending) > 0 {
		log.WithField("count", len(pending)).Info("Напоминания об оплате отправлены")
	}
	return nil
}

// CreatorDashboard формирует текст дашборда продаж для создателя.
func (s *Service) CreatorDashboard(ctx context.Context, creatorID int64, since time.Time) (string, error) {
	stats, err := s.repo.StatsByCreator(ctx, creatorID, since)
	if err != nil {
		return "", err
	}
	if len(stats) == 0 {
		return "📋 Оплаченных продаж пока нет", nil
	}

	text := "📊 Продажи по матчам:\n\n"
	var total int64
	for _, st := range stats {
		text += fmt.Sprintf("• %s — %d %s, %s\n",
			st.MatchName, st.PaidCount, common.PluralizeSales(st.PaidCount),
			common.FormatPrice(st.Revenue))
		total += st.Revenue
	}
	text += fmt.Sprintf("\nИтого: %s", common.FormatPrice(total))
	return text, nil
}
