// Package sales — repository.go выполняет все операции с таблицей sales.
// MarkPaid — единственная точка мутации флага paid: одиночный условный
// UPDATE с защитой paid = FALSE, поэтому из двух конкурирующих доставок
// вебхука ровно одна получает true.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clickfix.ru/clickfix-bot/internal/common"
)

// Repository предоставляет методы для работы с продажами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий продаж.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateSale записывает новую неоплаченную продажу.
// Пара (buyer_id, match_name) уникальна; конфликт означает гонку двух /pay
// от одного покупателя — тогда запись не меняем и отдаём существующую.
func (r *Repository) CreateSale(ctx context.Context, s *Sale) error {
	query := `
		INSERT INTO sales (buyer_id, match_name, gateway_reference, payment_link_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (buyer_id, match_name) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, s.BuyerID, s.MatchName, s.GatewayReference, s.PaymentLinkURL)
	if err != nil {
		return fmt.Errorf("ошибка записи продажи: %w", err)
	}
	return nil
}

// GetSale возвращает продажу по естественному ключу (buyer_id, match_name).
// Если продажи нет — common.ErrSaleNotFound.
func (r *Repository) GetSale(ctx context.Context, buyerID int64, matchName string) (*Sale, error) {
	query := `
		SELECT id, buyer_id, match_name, gateway_reference, payment_link_url,
		       paid, paid_at, reminder_sent, created_at, updated_at
		FROM sales
		WHERE buyer_id = $1 AND match_name = $2
	`
	var s Sale
	err := r.db.QueryRow(ctx, query, buyerID, matchName).Scan(
		&s.ID, &s.BuyerID, &s.MatchName, &s.GatewayReference, &s.PaymentLinkURL,
		&s.Paid, &s.PaidAt, &s.ReminderSent, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения продажи: %w", err)
	}
	return &s, nil
}

// MarkPaid атомарно переводит продажу в состояние «оплачено».
//
// Возвращает true, если переход выполнил именно этот вызов.
// False — продажа отсутствует или уже была оплачена; в обоих случаях
// paid_at не трогается. Условие paid = FALSE в WHERE и есть compare-and-set:
// при параллельных повторных доставках вебхука строку обновит ровно один запрос.
func (r *Repository) MarkPaid(ctx context.Context, buyerID int64, matchName string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE sales
		SET paid = TRUE, paid_at = $3, updated_at = NOW()
		WHERE buyer_id = $1 AND match_name = $2 AND paid = FALSE
	`
	tag, err := r.db.Exec(ctx, query, buyerID, matchName, paidAt)
	if err != nil {
		return false, fmt.Errorf("ошибка отметки оплаты: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListPendingReminders возвращает неоплаченные продажи старше cutoff,
// по которым ещё не отправляли напоминание и чей матч ещё продаётся.
func (r *Repository) ListPendingReminders(ctx context.Context, cutoff time.Time) ([]*Sale, error) {
	query := `
		SELECT s.id, s.buyer_id, s.match_name, s.gateway_reference, s.payment_link_url,
		       s.paid, s.paid_at, s.reminder_sent, s.created_at, s.updated_at
		FROM sales s
		JOIN matches m ON m.match_name = s.match_name
		WHERE s.paid = FALSE AND s.reminder_sent = FALSE
		  AND s.created_at < $1 AND m.expires_at > NOW()
		ORDER BY s.created_at
	`
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки напоминаний: %w", err)
	}
	defer rows.Close()

	var out []*Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(
			&s.ID, &s.BuyerID, &s.MatchName, &s.GatewayReference, &s.PaymentLinkURL,
			&s.Paid, &s.PaidAt, &s.ReminderSent, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования продажи: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// MarkReminderSent помечает, что напоминание по продаже отправлено.
func (r *Repository) MarkReminderSent(ctx context.Context, saleID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sales SET reminder_sent = TRUE, updated_at = NOW() WHERE id = $1`, saleID)
	if err != nil {
		return fmt.Errorf("ошибка отметки напоминания: %w", err)
	}
	return nil
}

// StatsByCreator возвращает агрегаты оплаченных продаж создателя с момента since.
func (r *Repository) StatsByCreator(ctx context.Context, creatorID int64, since time.Time) ([]*DailyStats, error) {
	query := `
		SELECT s.match_name, COUNT(*) AS paid_count, COALESCE(SUM(m.price), 0) AS revenue
		FROM sales s
		JOIN matches m ON m.match_name = s.match_name
		WHERE m.creator_id = $1 AND s.paid = TRUE AND s.paid_at >= $2
		GROUP BY s.match_name
		ORDER BY revenue DESC
	`
	rows, err := r.db.Query(ctx, query, creatorID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	defer rows.Close()

	var out []*DailyStats
	for rows.Next() {
		var st DailyStats
		if err := rows.Scan(&st.MatchName, &st.PaidCount, &st.Revenue); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}
