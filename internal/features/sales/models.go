// Package sales управляет продажами — жизненным циклом оплаты
// одного покупателя по одному матчу.
// models.go описывает структуру продажи.
package sales

import "time"

// Sale представляет одну продажу.
// Естественный ключ — пара (buyer_id, match_name), в БД она уникальна:
// на одного покупателя по одному матчу существует не больше одного
// платёжного цикла.
//
// Флаг Paid монотонный: false→true ровно один раз (через Repository.MarkPaid),
// обратного перехода нет. PaidAt устанавливается тем же переходом.
// Записи никогда не удаляются.
type Sale struct {
	ID               int64      `db:"id"`
	BuyerID          int64      `db:"buyer_id"`          // Telegram user ID покупателя
	MatchName        string     `db:"match_name"`        // Имя купленного матча
	GatewayReference string     `db:"gateway_reference"` // ID платёжной ссылки Razorpay (plink_…)
	PaymentLinkURL   string     `db:"payment_link_url"`  // Короткая ссылка для оплаты
	Paid             bool       `db:"paid"`
	PaidAt           *time.Time `db:"paid_at"` // nil, пока не оплачено
	ReminderSent     bool       `db:"reminder_sent"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// DailyStats — агрегат продаж по матчу за период (для дайджеста создателя).
type DailyStats struct {
	MatchName string `db:"match_name"`
	PaidCount int64  `db:"paid_count"`
	Revenue   int64  `db:"revenue"` // Сумма в пайсах
}
