// Package catalog управляет матчами — продаваемыми наборами контента.
// models.go описывает структуру матча.
package catalog

import "time"

// Match представляет один продаваемый матч.
// Запись создаётся создателем и после этого не изменяется:
// вебхук и покупательский поток читают её только на чтение.
type Match struct {
	ID          int64     `db:"id"`          // ID записи
	MatchName   string    `db:"match_name"`  // Уникальное имя матча (ключ)
	CreatorID   int64     `db:"creator_id"`  // Telegram user ID создателя
	Description string    `db:"description"` // Описание для покупателя (и подпись к файлу)
	ContentRef  string    `db:"content_ref"` // Путь к файлу или URL контента
	Price       int64     `db:"price"`       // Цена в пайсах (всегда > 0)
	ExpiresAt   time.Time `db:"expires_at"`  // После этого момента матч не продаётся
	CreatedAt   time.Time `db:"created_at"`
}

// Expired сообщает, истёк ли срок продажи матча.
func (m *Match) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}
