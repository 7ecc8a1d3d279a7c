// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: форматирование цен в пайсах, русская плюрализация,
// работа с временем в часовом поясе приложения.
package common

import (
	"fmt"
	"math"
	"time"
)

// Razorpay принимает суммы в пайсах (1 рупия = 100 пайс).
// Все цены в БД и конфиге хранятся в пайсах, форматирование — только для людей.

// FormatPrice форматирует цену в пайсах в читабельную строку в рупиях.
//
// Примеры:
//
//	FormatPrice(50000) → "₹500.00"
//	FormatPrice(50)    → "₹0.50"
func FormatPrice(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}

// PluralizeSales возвращает правильную форму слова «продажа» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "продажа" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "продажи" (2, 3, 4, 22, ...)
//   - Остальные случаи → "продаж" (0, 5-20, 25-30, 100, ...)
func PluralizeSales(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "продажа"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "продажи"
	}
	return "продаж"
}

// PluralizeMatches возвращает правильную форму слова «матч».
func PluralizeMatches(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "матч"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "матча"
	}
	return "матчей"
}

// AppLocation возвращает часовой пояс приложения.
// Razorpay работает по IST, поэтому дефолт — Asia/Kolkata.
// Если зона не загрузилась — фиксированный сдвиг UTC+5:30.
func AppLocation(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат продаж и сроков матчей.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
