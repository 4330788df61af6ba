package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basimtrading/auth-gate/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateAccount создает тестовую учётную запись и возвращает её uid
func (f *TestDataFactory) CreateAccount(t *testing.T, username, passwordHash, role, status string,
	fingerprint *string, approved bool) string {
	var uid string
	err := f.storage.DB.QueryRow(`INSERT INTO accounts
		(username, password_hash, role, status, device_fingerprint, approved)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING uid`,
		username, passwordHash, role, status, fingerprint, approved).Scan(&uid)
	require.NoError(t, err)
	return uid
}

// CreateSubscriptionWindow создает тестовое окно подписки и возвращает его id
func (f *TestDataFactory) CreateSubscriptionWindow(t *testing.T, accountUID string,
	start, end time.Time, isActive bool) int {
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(account_uid, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		accountUID, start, end, isActive).Scan(&id)
	require.NoError(t, err)
	return id
}

// GetTestAccountData возвращает стандартные тестовые данные учётной записи
func GetTestAccountData() models.Account {
	return models.Account{
		Username:     "testuser",
		PasswordHash: "hashedpassword",
		Role:         models.RoleUser,
		Status:       models.StatusActive,
		Approved:     true,
	}
}
