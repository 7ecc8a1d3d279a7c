// Package catalog — service.go содержит бизнес-логику каталога:
// валидация новых матчей, получение и листинг.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/common"
)

// Service управляет каталогом матчей.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис каталога.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// maxNameLen — ограничение на имя матча: оно попадает в notes Razorpay
// и в команды бота, длинные имена там не нужны.
const maxNameLen = 64

// Register валидирует и регистрирует новый матч.
//
// Проверки:
//   - имя непустое, без пробелов (имя вводится как аргумент команды), не длиннее 64 символов
//   - цена положительная (в пайсах)
//   - срок продажи в будущем
func (s *Service) Register(ctx context.Context, m *Match) error {
	m.MatchName = strings.TrimSpace(m.MatchName)
	if m.MatchName == "" || strings.ContainsAny(m.MatchName, " \t\n") {
		return fmt.Errorf("имя матча должно быть одним словом")
	}
	if len([]rune(m.MatchName)) > maxNameLen {
		return fmt.Errorf("имя матча слишком длинное (максимум %d символов)", maxNameLen)
	}
	if m.Price <= 0 {
		return common.ErrInvalidPrice
	}
	if !m.ExpiresAt.After(time.Now()) {
		return fmt.Errorf("срок продажи должен быть в будущем")
	}
	if strings.TrimSpace(m.ContentRef) == "" {
		return fmt.Errorf("не указан контент (путь к файлу или URL)")
	}

	if err := s.repo.CreateMatch(ctx, m); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"match_name": m.MatchName,
		"creator_id": m.CreatorID,
		"price":      m.Price,
	}).Info("Матч зарегистрирован")
	return nil
}

// GetMatch возвращает матч по имени.
func (s *Service) GetMatch(ctx context.Context, matchName string) (*Match, error) {
	return s.repo.GetMatch(ctx, matchName)
}

// GetActiveMatch возвращает матч, доступный к покупке прямо сейчас.
// Истёкший матч считается недоступным (common.ErrMatchExpired).
func (s *Service) GetActiveMatch(ctx context.Context, matchName string) (*Match, error) {
	m, err := s.repo.GetMatch(ctx, matchName)
	if err != nil {
		return nil, err
	}
	if m.Expired(time.Now()) {
		return nil, common.ErrMatchExpired
	}
	return m, nil
}

// ListActive возвращает матчи, доступные к покупке.
func (s *Service) ListActive(ctx context.Context) ([]*Match, error) {
	return s.repo.ListActive(ctx)
}

// ListByCreator возвращает матчи создателя.
func (s *Service) ListByCreator(ctx context.Context, creatorID int64) ([]*Match, error) {
	return s.repo.ListByCreator(ctx, creatorID)
}
