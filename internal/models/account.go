// Package models содержит доменные структуры сервиса контроля доступа:
// учётные записи, окна подписки, заявки на ручное подтверждение и итог входа.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

// Роли учётной записи.
const (
	RoleUser      = "user"
	RoleSuperuser = "superuser"
)

// Статусы учётной записи.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusRejected  = "rejected"
	StatusSuspended = "suspended"
)

// Account представляет учётную запись клиента торгового терминала.
//
// DeviceFingerprint равен nil до первого успешного входа: при первом входе
// отпечаток устройства привязывается атомарно и дальше меняется только
// внеполосной операцией перепривязки.
type Account struct {
	UID               string  // Уникальный идентификатор учётной записи
	Username          string  // Имя пользователя (уникальное)
	PasswordHash      string  // bcrypt-хэш пароля
	Role              string  // Роль: user или superuser
	Status            string  // Статус: pending, active, rejected, suspended
	DeviceFingerprint *string // Привязанный отпечаток устройства, nil до привязки
	Approved          bool    // Признак ручного одобрения оператором
}
