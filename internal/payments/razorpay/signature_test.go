package razorpay

import (
	"errors"
	"testing"

	"clickfix.ru/clickfix-bot/internal/common"
)

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	body := []byte(`{"payload":{"payment":{"entity":{"notes":{"user_id":"42","match_name":"finals"}}}}}`)
	secret := "whsec_test"

	sig := SignWebhookBody(body, secret)

	if err := VerifyWebhookSignature(body, sig, secret); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyWebhookSignature_Invalid(t *testing.T) {
	body := []byte(`{"payload":{}}`)
	secret := "whsec_test"
	sig := SignWebhookBody(body, secret)

	t.Run("wrong secret", func(t *testing.T) {
		err := VerifyWebhookSignature(body, sig, "another_secret")
		if !errors.Is(err, common.ErrSignatureMismatch) {
			t.Fatalf("expected ErrSignatureMismatch, got %v", err)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-1] = '!'
		err := VerifyWebhookSignature(tampered, sig, secret)
		if !errors.Is(err, common.ErrSignatureMismatch) {
			t.Fatalf("expected ErrSignatureMismatch, got %v", err)
		}
	})

	t.Run("empty signature", func(t *testing.T) {
		err := VerifyWebhookSignature(body, "", secret)
		if !errors.Is(err, common.ErrSignatureMismatch) {
			t.Fatalf("expected ErrSignatureMismatch, got %v", err)
		}
	})

	t.Run("reserialized body breaks signature", func(t *testing.T) {
		// Тот же JSON, но другие байты (пробел) — подпись обязана не сойтись
		reserialized := []byte(`{"payload": {}}`)
		err := VerifyWebhookSignature(reserialized, sig, secret)
		if !errors.Is(err, common.ErrSignatureMismatch) {
			t.Fatalf("expected ErrSignatureMismatch, got %v", err)
		}
	})
}
