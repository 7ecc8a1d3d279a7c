// Package webhook — reconciler.go сверяет подтверждение оплаты
// с локальной книгой продаж.
//
// Вебхук приходит «как минимум один раз»: Razorpay повторяет доставку
// по таймауту и может слать параллельно. Вся идемпотентность держится
// на одной точке мутации — MarkPaid (compare-and-set по паре
// покупатель × матч): из любых повторов ровно один получает true,
// и только он запускает доставку контента.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/common"
	"clickfix.ru/clickfix-bot/internal/features/catalog"
	"clickfix.ru/clickfix-bot/internal/features/sales"
)

// SaleLedger — операции книги продаж, нужные реконсиляции.
// Реализуется sales.Repository.
type SaleLedger interface {
	GetSale(ctx context.Context, buyerID int64, matchName string) (*sales.Sale, error)
	MarkPaid(ctx context.Context, buyerID int64, matchName string, paidAt time.Time) (bool, error)
}

// MatchCatalog — чтение матчей. Реализуется catalog.Repository.
type MatchCatalog interface {
	GetMatch(ctx context.Context, matchName string) (*catalog.Match, error)
}

// Deliverer — доставка контента. Реализуется delivery.Notifier.
type Deliverer interface {
	Deliver(ctx context.Context, buyerID int64, contentRef, description string) error
	NotifyFailure(buyerID int64)
}

// Outcome — итог обработки подтверждённого вебхука.
type Outcome string

const (
	// OutcomePaid — свежий переход unpaid→paid (доставка запущена)
	OutcomePaid Outcome = "paid"
	// OutcomeDuplicate — продажа уже была оплачена, no-op
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeUnknownSale — продажа не найдена; подтверждаем, чтобы шлюз не ретраил
	OutcomeUnknownSale Outcome = "unknown_sale"
)

// Reconciler применяет аутентифицированный вебхук к книге продаж.
type Reconciler struct {
	ledger          SaleLedger
	catalog         MatchCatalog
	notifier        Deliverer
	deliveryTimeout time.Duration
	now             func() time.Time // Подменяется в тестах
}

// NewReconciler создаёт реконсилятор.
func NewReconciler(ledger SaleLedger, catalog MatchCatalog, notifier Deliverer, deliveryTimeout time.Duration) *Reconciler {
	return &Reconciler{
		ledger:          ledger,
		catalog:         catalog,
		notifier:        notifier,
		deliveryTimeout: deliveryTimeout,
		now:             time.Now,
	}
}

// Process обрабатывает тело вебхука, уже прошедшее проверку подписи.
//
// Ошибки:
//   - common.ErrMissingEntity / common.ErrMissingIdentity — дефект payload,
//     запрос отвергается (HTTP 400), состояние не менялось;
//   - прочие ошибки — сбой хранилища (HTTP 500), шлюзу безопасно повторить.
//
// Неизвестная продажа и повторная доставка — НЕ ошибки: они подтверждаются
// как успех, иначе шлюз будет ретраить вечно, а недостающее состояние
// он прислать не может.
func (r *Reconciler) Process(ctx context.Context, body []byte) (Outcome, error) {
	entity, shape, err := decodeEntity(body)
	if err != nil {
		log.WithField("body_len", len(body)).Warn("Вебхук без платёжной сущности")
		return "", err
	}

	buyerID, matchName, err := entity.identity()
	if err != nil {
		log.WithFields(log.Fields{
			"shape":      shape,
			"entity_id":  entity.ID,
			"user_id":    entity.Notes.UserID,
			"match_name": entity.Notes.MatchName,
		}).Warn("Вебхук без идентификации покупателя/матча")
		return "", err
	}

	logger := log.WithFields(log.Fields{
		"buyer_id":   buyerID,
		"match_name": matchName,
		"shape":      shape,
		"entity_id":  entity.ID,
	})

	transitioned, err := r.ledger.MarkPaid(ctx, buyerID, matchName, r.now())
	if err != nil {
		return "", fmt.Errorf("отметка оплаты: %w", err)
	}

	if !transitioned {
		// Либо продажи нет, либо она уже оплачена. Флаг paid монотонный,
		// поэтому чтение после CAS даёт однозначный ответ.
		sale, err := r.ledger.GetSale(ctx, buyerID, matchName)
		if errors.Is(err, common.ErrSaleNotFound) {
			logger.Warn("Вебхук по неизвестной продаже — подтверждаем без изменений")
			return OutcomeUnknownSale, nil
		}
		if err != nil {
			return "", fmt.Errorf("чтение продажи: %w", err)
		}
		logger.WithField("paid_at", sale.PaidAt).Info("Повторный вебхук по оплаченной продаже — доставку не повторяем")
		return OutcomeDuplicate, nil
	}

	logger.Info("Оплата зафиксирована")

	// С этого момента платёж записан и ничто ниже его не откатывает.
	match, err := r.catalog.GetMatch(ctx, matchName)
	if err != nil {
		logger.WithError(err).Warn("Матч не найден — оплата записана, доставка пропущена")
		return OutcomePaid, nil
	}

	dctx, cancel := context.WithTimeout(ctx, r.deliveryTimeout)
	defer cancel()
	if err := r.notifier.Deliver(dctx, buyerID, match.ContentRef, match.Description); err != nil {
		logger.WithError(err).Warn("Доставка контента не удалась")
		r.notifier.NotifyFailure(buyerID)
	}

	return OutcomePaid, nil
}
