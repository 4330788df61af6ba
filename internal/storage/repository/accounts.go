package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/basimtrading/auth-gate/internal/models"
)

// GetAccountByUsername возвращает учётную запись по имени пользователя.
func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	const op = "storage.GetAccountByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, password_hash, role, status, device_fingerprint, approved
			  FROM accounts
			  WHERE username = $1`
	a := &models.Account{}
	row := s.DB.QueryRowContext(ctx, query, username)

	var fingerprint sql.NullString
	if err := row.Scan(&a.UID, &a.Username, &a.PasswordHash,
		&a.Role, &a.Status, &fingerprint, &a.Approved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if fingerprint.Valid {
		a.DeviceFingerprint = &fingerprint.String
	}
	return a, nil
}

// CreateAccountWithSubscription создаёт одобренную учётную запись и открывает
// ей окно подписки на days дней одной транзакцией.
//
// Вызывается только после решения оператора: до решения никакие строки
// не создаются, при отказе — не остаётся ничего.
func (s *Storage) CreateAccountWithSubscription(ctx context.Context, account models.Account, days int) (string, error) {
	const op = "storage.CreateAccountWithSubscription"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newUID string
	query := `INSERT INTO accounts (username, password_hash, role, status, device_fingerprint, approved)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING uid;`
	if err := tx.QueryRowContext(ctx, query,
		account.Username, account.PasswordHash, account.Role, account.Status,
		account.DeviceFingerprint, account.Approved).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query = `INSERT INTO subscriptions (account_uid, start_date, end_date, is_active)
			 VALUES ($1, NOW(), NOW() + ($2 * INTERVAL '1 day'), TRUE);`
	if _, err := tx.ExecContext(ctx, query, newUID, days); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// BindDeviceIfUnbound атомарно привязывает отпечаток устройства к ещё
// не привязанной учётной записи.
//
// Сравнение и запись выполняются одним UPDATE: из двух одновременных первых
// входов привязку получает ровно один, второй увидит false и чужой отпечаток
// при повторном чтении.
func (s *Storage) BindDeviceIfUnbound(ctx context.Context, username, fingerprint string) (bool, error) {
	const op = "storage.BindDeviceIfUnbound"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET device_fingerprint = $2
			  WHERE username = $1 AND device_fingerprint IS NULL`
	res, err := s.DB.ExecContext(ctx, query, username, fingerprint)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected == 1, nil
}

// GetDeviceFingerprint возвращает привязанный отпечаток устройства, nil если привязки нет.
func (s *Storage) GetDeviceFingerprint(ctx context.Context, username string) (*string, error) {
	const op = "storage.GetDeviceFingerprint"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var fingerprint sql.NullString
	query := `SELECT device_fingerprint FROM accounts WHERE username = $1`
	if err := s.DB.QueryRowContext(ctx, query, username).Scan(&fingerprint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !fingerprint.Valid {
		return nil, nil
	}
	return &fingerprint.String, nil
}

// UpdateAccountStatus обновляет статус учётной записи.
func (s *Storage) UpdateAccountStatus(ctx context.Context, username, status string) error {
	const op = "storage.UpdateAccountStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET status = $1 WHERE username = $2`
	_, err := s.DB.ExecContext(ctx, query, status, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertSuperuser создаёт или обновляет учётную запись суперпользователя.
//
// Используется CLI первоначальной настройки: суперпользователь всегда активен
// и одобрен, его вход всё равно требует свежего решения оператора каждый раз.
func (s *Storage) UpsertSuperuser(ctx context.Context, username, passwordHash string) (string, error) {
	const op = "storage.UpsertSuperuser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var uid string
	query := `INSERT INTO accounts (username, password_hash, role, status, approved)
			  VALUES ($1, $2, $3, $4, TRUE)
			  ON CONFLICT (username)
			  DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role,
			      status = EXCLUDED.status, approved = TRUE
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		username, passwordHash, models.RoleSuperuser, models.StatusActive).Scan(&uid); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}
