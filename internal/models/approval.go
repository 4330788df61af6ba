package models

import "time"

// ApprovalKind — тип заявки, требующей решения оператора.
type ApprovalKind string

// Виды заявок.
const (
	KindNewAccount     ApprovalKind = "new_account"
	KindSuperuserLogin ApprovalKind = "superuser_login"
	KindRenewal        ApprovalKind = "renewal"
)

// DecisionStatus — терминальное состояние заявки.
type DecisionStatus string

// Возможные решения.
const (
	DecisionApproved DecisionStatus = "approved"
	DecisionRejected DecisionStatus = "rejected"
	DecisionTimedOut DecisionStatus = "timed_out"
)

// Decision — решение оператора по заявке.
//
// GrantedDays заполняется при одобрении новой учётной записи или продления:
// столько дней доступа выдаёт оператор.
type Decision struct {
	Status      DecisionStatus
	GrantedDays int
}

// Registration — данные отложенной регистрации, которые нужны,
// чтобы создать учётную запись после одобрения оператором.
type Registration struct {
	PasswordHash      string
	DeviceFingerprint string
}

// PendingApprovalRequest — заявка, ожидающая решения оператора.
//
// Для пары (Kind, Subject) одновременно существует не более одной
// неразрешённой заявки; повторная попытка переиспользует существующую.
type PendingApprovalRequest struct {
	RequestID    string        // Корреляционный токен (uuid)
	Kind         ApprovalKind  // Тип заявки
	Subject      string        // Имя пользователя или идентификатор учётной записи
	TxID         string        // Ссылка на транзакцию, только для Kind == renewal
	Registration *Registration // Данные регистрации, только для Kind == new_account
	CreatedAt    time.Time
}
