// Package webhook — server.go поднимает HTTP-сервер для уведомлений Razorpay.
//
// Маршруты:
//
//	POST /webhook          — подписанные server-to-server уведомления
//	GET  /payment_callback — redirect покупателя после оплаты (информационный)
//	GET  /healthz          — проверка живости (пинг БД)
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/common"
	"clickfix.ru/clickfix-bot/internal/payments/razorpay"
)

// Тело вебхука ограничено мегабайтом: платёжное событие на порядки меньше.
const maxBodyBytes = 1 << 20

// signatureHeader — заголовок, в котором Razorpay передаёт HMAC тела.
const signatureHeader = "X-Razorpay-Signature"

// Server — HTTP-сервер вебхука.
type Server struct {
	reconciler *Reconciler
	secret     string // Webhook secret для проверки подписи
	db         *pgxpool.Pool
	srv        *http.Server
}

// NewServer собирает сервер. db может быть nil (в тестах) — тогда
// /healthz отвечает без пинга.
func NewServer(addr, secret string, reconciler *Reconciler, db *pgxpool.Pool, appEnv string) *Server {
	if appEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		reconciler: reconciler,
		secret:     secret,
		db:         db,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.POST("/webhook", s.handleWebhook)
	engine.GET("/payment_callback", s.handleCallback)
	engine.GET("/healthz", s.handleHealthz)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start блокирует до остановки сервера.
// После Shutdown возвращает http.ErrServerClosed — это штатное завершение.
func (s *Server) Start() error {
	log.WithField("addr", s.srv.Addr).Info("Вебхук-сервер запущен")
	return s.srv.ListenAndServe()
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler отдаёт http.Handler — для httptest.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// handleWebhook принимает уведомление Razorpay.
//
// Порядок жёсткий: сначала читаем СЫРОЕ тело и проверяем подпись по нему,
// и только потом разбираем JSON — пересериализация до проверки ломает HMAC.
//
// Маппинг исходов на HTTP:
//
//	подпись не сошлась        → 400 invalid signature
//	нет платёжной сущности    → 400 missing entity
//	нет user_id/match_name    → 400 missing identity
//	неизвестная продажа       → 200 success (no-op, ретраи не нужны)
//	повторная доставка        → 200 success (идемпотентный no-op)
//	свежий переход            → 200 success (даже если доставка упала)
//	сбой хранилища            → 500 server error (шлюз повторит)
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failure", "reason": "invalid signature"})
		return
	}

	signature := c.GetHeader(signatureHeader)
	if err := razorpay.VerifyWebhookSignature(body, signature, s.secret); err != nil {
		log.WithField("remote", c.ClientIP()).Warn("Вебхук с неверной подписью")
		c.JSON(http.StatusBadRequest, gin.H{"status": "failure", "reason": "invalid signature"})
		return
	}

	outcome, err := s.reconciler.Process(c.Request.Context(), body)
	if err != nil {
		reason := reasonFor(err)
		if reason != "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "failure", "reason": reason})
			return
		}
		log.WithError(err).Error("Внутренняя ошибка обработки вебхука")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "failure", "reason": "server error"})
		return
	}

	log.WithField("outcome", outcome).Debug("Вебхук подтверждён")
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// reasonFor переводит клиентские ошибки payload в reason для ответа.
// Пустая строка = ошибка внутренняя.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, common.ErrMissingEntity):
		return "missing entity"
	case errors.Is(err, common.ErrMissingIdentity):
		return "missing identity"
	default:
		return ""
	}
}

// handleCallback — информационная страница после redirect'а Razorpay.
// Состояние меняет только подписанный вебхук, здесь лишь логируем параметры.
func (s *Server) handleCallback(c *gin.Context) {
	log.WithFields(log.Fields{
		"payment_id":  c.Query("razorpay_payment_id"),
		"link_id":     c.Query("razorpay_payment_link_id"),
		"link_status": c.Query("razorpay_payment_link_status"),
	}).Info("Покупатель вернулся с оплаты")

	c.String(http.StatusOK, "✅ Payment received. Thank you! Content will arrive in Telegram.")
}

// handleHealthz пингует БД.
func (s *Server) handleHealthz(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "failure", "reason": "db unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger — access-лог через logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("HTTP запрос")
	}
}
