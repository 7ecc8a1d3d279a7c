// Package webhook принимает и сверяет уведомления Razorpay об оплате.
// payload.go разбирает вложенный payload вебхука.
//
// Razorpay присылает сущность платежа в одной из двух форм:
// событие платёжной ссылки (payload.payment_link.entity) или прямое
// платёжное событие (payload.payment.entity). Обе декодируются в явные
// опциональные поля, и дальше работает дискриминант — никакого блуждания
// по map[string]interface{}.
package webhook

import (
	"encoding/json"
	"strconv"

	"clickfix.ru/clickfix-bot/internal/common"
)

// envelope — внешний конверт вебхука.
type envelope struct {
	Event   string         `json:"event"`
	Payload entityVariants `json:"payload"`
}

// entityVariants — размеченное объединение известных форм payload.
type entityVariants struct {
	PaymentLink *entityWrapper `json:"payment_link"`
	Payment     *entityWrapper `json:"payment"`
}

type entityWrapper struct {
	Entity *paymentEntity `json:"entity"`
}

// paymentEntity — платёжная сущность с notes-корреляцией.
type paymentEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Notes  notes  `json:"notes"`
}

// notes — метаданные, которые мы сами положили при выпуске ссылки.
type notes struct {
	UserID    string `json:"user_id"`
	MatchName string `json:"match_name"`
}

// decodeEntity извлекает платёжную сущность из сырого тела вебхука.
//
// Возвращает common.ErrMissingEntity, если не распознана ни одна форма
// (или тело вообще не JSON). Если присутствуют обе — Razorpay вкладывает
// платёж внутрь события платёжной ссылки — берём payment_link: именно его
// notes заполнялись при выпуске ссылки.
func decodeEntity(body []byte) (*paymentEntity, string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", common.ErrMissingEntity
	}

	switch {
	case env.Payload.PaymentLink != nil && env.Payload.PaymentLink.Entity != nil:
		return env.Payload.PaymentLink.Entity, "payment_link", nil
	case env.Payload.Payment != nil && env.Payload.Payment.Entity != nil:
		return env.Payload.Payment.Entity, "payment", nil
	default:
		return nil, "", common.ErrMissingEntity
	}
}

// identity извлекает пару (покупатель, матч) из notes сущности.
//
// user_id обязан быть десятичным int64 (Telegram user ID), match_name —
// непустой строкой; иначе common.ErrMissingIdentity.
func (e *paymentEntity) identity() (int64, string, error) {
	if e.Notes.UserID == "" || e.Notes.MatchName == "" {
		return 0, "", common.ErrMissingIdentity
	}
	buyerID, err := strconv.ParseInt(e.Notes.UserID, 10, 64)
	if err != nil {
		return 0, "", common.ErrMissingIdentity
	}
	return buyerID, e.Notes.MatchName, nil
}
