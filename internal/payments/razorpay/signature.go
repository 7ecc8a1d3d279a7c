// Package razorpay — клиент платёжного шлюза Razorpay.
// signature.go аутентифицирует вебхуки: HMAC-SHA256 от сырого тела запроса.
package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"clickfix.ru/clickfix-bot/internal/common"
)

// VerifyWebhookSignature проверяет подпись вебхука Razorpay.
//
// body — тело запроса РОВНО в том виде, в каком оно пришло по сети.
// Любая пересериализация (распарсить JSON и собрать обратно) меняет байты
// и ломает подпись, поэтому проверка всегда идёт до разбора payload.
//
// signature — hex-значение заголовка X-Razorpay-Signature.
// Сравнение — в постоянном времени (hmac.Equal).
func VerifyWebhookSignature(body []byte, signature, secret string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return common.ErrSignatureMismatch
	}
	return nil
}

// SignWebhookBody вычисляет подпись тела — для тестов и локальной отладки.
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
