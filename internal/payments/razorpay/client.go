// Package razorpay — client.go выпускает платёжные ссылки
// через Payment Links API (POST /v1/payment_links, basic auth).
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Notes — свободные метаданные, которые Razorpay вернёт в вебхуке как есть.
// Здесь живёт корреляция покупатель × матч.
type Notes struct {
	UserID    string `json:"user_id"`
	MatchName string `json:"match_name"`
}

// PaymentLinkRequest — запрос на выпуск платёжной ссылки.
type PaymentLinkRequest struct {
	Amount      int64  `json:"amount"`   // В пайсах
	Currency    string `json:"currency"` // "INR"
	Description string `json:"description"`
	ReferenceID string `json:"reference_id"`
	ExpireBy    int64  `json:"expire_by,omitempty"` // Unix-время, ссылка живёт до срока матча
	CallbackURL string `json:"callback_url,omitempty"`
	Notes       Notes  `json:"notes"`
}

// PaymentLink — ответ Razorpay (поля, которые нам нужны).
type PaymentLink struct {
	ID       string `json:"id"`        // plink_…
	ShortURL string `json:"short_url"` // https://rzp.io/…
	Status   string `json:"status"`
}

// Client — HTTP-клиент Razorpay API.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewClient создаёт клиент с таймаутом на исходящие запросы.
func NewClient(keyID, keySecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: timeout},
	}
}

// CreatePaymentLink выпускает hosted-ссылку на оплату.
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/payment_links", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка вызова Razorpay: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.WithFields(log.Fields{
			"status":       resp.StatusCode,
			"reference_id": req.ReferenceID,
		}).Error("Razorpay отклонил выпуск ссылки")
		return nil, fmt.Errorf("razorpay вернул статус %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var link PaymentLink
	if err := json.Unmarshal(respBody, &link); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа: %w", err)
	}
	if link.ID == "" || link.ShortURL == "" {
		return nil, fmt.Errorf("ответ Razorpay без id/short_url")
	}
	return &link, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
