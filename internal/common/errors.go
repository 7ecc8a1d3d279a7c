// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам и вебхуку различать типы проблем:
// что отвергнуть, что молча подтвердить, что показать пользователю.
package common

import "errors"

// Ошибки вебхука (приём уведомлений от Razorpay)
var (
	// ErrSignatureMismatch — подпись X-Razorpay-Signature не совпала с HMAC тела
	ErrSignatureMismatch = errors.New("подпись вебхука не совпадает")
	// ErrMissingEntity — в payload нет ни payment_link, ни payment сущности
	ErrMissingEntity = errors.New("в payload не найдена сущность платежа")
	// ErrMissingIdentity — в notes нет user_id/match_name или user_id не число
	ErrMissingIdentity = errors.New("в notes нет идентификации покупателя или матча")
)

// Ошибки каталога (матчи)
var (
	// ErrMatchNotFound — матч с таким именем не зарегистрирован
	ErrMatchNotFound = errors.New("матч не найден")
	// ErrMatchExists — матч с таким именем уже есть
	ErrMatchExists = errors.New("матч с таким именем уже существует")
	// ErrMatchExpired — срок продажи матча истёк
	ErrMatchExpired = errors.New("срок продажи матча истёк")
	// ErrInvalidPrice — цена не положительная
	ErrInvalidPrice = errors.New("цена должна быть положительной (в пайсах)")
)

// Ошибки продаж
var (
	// ErrSaleNotFound — продажа (покупатель, матч) не найдена
	ErrSaleNotFound = errors.New("продажа не найдена")
	// ErrAlreadyPaid — продажа уже оплачена
	ErrAlreadyPaid = errors.New("продажа уже оплачена")
)

// Ошибки авторизации создателей
var (
	// ErrNotCreator — пользователь не входит в список создателей
	ErrNotCreator = errors.New("у вас нет прав создателя")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, выполните /login заново")
)
