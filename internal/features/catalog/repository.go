// Package catalog — repository.go выполняет все операции с таблицей matches.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clickfix.ru/clickfix-bot/internal/common"
)

// Repository предоставляет методы для работы с матчами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий каталога.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateMatch регистрирует новый матч.
// Имя матча уникально: повторная регистрация возвращает common.ErrMatchExists.
func (r *Repository) CreateMatch(ctx context.Context, m *Match) error {
	query := `
		INSERT INTO matches (match_name, creator_id, description, content_ref, price, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		m.MatchName, m.CreatorID, m.Description, m.ContentRef, m.Price, m.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrMatchExists
		}
		return fmt.Errorf("ошибка регистрации матча: %w", err)
	}
	return nil
}

// GetMatch возвращает матч по имени.
// Если матча нет — common.ErrMatchNotFound.
func (r *Repository) GetMatch(ctx context.Context, matchName string) (*Match, error) {
	query := `
		SELECT id, match_name, creator_id, description, content_ref, price, expires_at, created_at
		FROM matches
		WHERE match_name = $1
	`
	var m Match
	err := r.db.QueryRow(ctx, query, matchName).Scan(
		&m.ID, &m.MatchName, &m.CreatorID, &m.Description,
		&m.ContentRef, &m.Price, &m.ExpiresAt, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения матча: %w", err)
	}
	return &m, nil
}

// ListActive возвращает матчи, у которых ещё не истёк срок продажи.
func (r *Repository) ListActive(ctx context.Context) ([]*Match, error) {
	query := `
		SELECT id, match_name, creator_id, description, content_ref, price, expires_at, created_at
		FROM matches
		WHERE expires_at > NOW()
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка матчей: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.ID, &m.MatchName, &m.CreatorID, &m.Description,
			&m.ContentRef, &m.Price, &m.ExpiresAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования матча: %w", err)
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

// ListByCreator возвращает все матчи одного создателя (для /sales).
func (r *Repository) ListByCreator(ctx context.Context, creatorID int64) ([]*Match, error) {
	query := `
		SELECT id, match_name, creator_id, description, content_ref, price, expires_at, created_at
		FROM matches
		WHERE creator_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения матчей создателя: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.ID, &m.MatchName, &m.CreatorID, &m.Description,
			&m.ContentRef, &m.Price, &m.ExpiresAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования матча: %w", err)
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
