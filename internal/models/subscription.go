package models

import "time"

// Subscription описывает оплаченное окно доступа учётной записи.
//
// Окно действительно включительно с обеих сторон: start_date <= now <= end_date.
// Истёкшая подписка (end_date в прошлом) не удаляется, а остаётся в истории.
type Subscription struct {
	ID         int       // Суррогатный ключ
	AccountUID string    // Владелец окна
	StartDate  time.Time // Начало действия
	EndDate    time.Time // Конец действия (включительно)
	IsActive   bool      // Признак актуального окна
}

// RenewalNotice — сообщение о приближающемся окончании подписки,
// публикуемое планировщиком в канал уведомлений.
type RenewalNotice struct {
	Username        string    `json:"username"`
	DaysRemaining   int       `json:"days_remaining"`
	EndDate         time.Time `json:"end_date"`
	DiscountPercent int       `json:"discount_percent"` // Скидка за раннее продление, чисто информационно
}
