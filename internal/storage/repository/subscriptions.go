package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/basimtrading/auth-gate/internal/models"
)

// GetActiveSubscription возвращает актуальное окно подписки учётной записи.
//
// Историю истёкших окон метод не трогает: берётся последняя строка
// с is_active = TRUE.
func (s *Storage) GetActiveSubscription(ctx context.Context, accountUID string) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_uid, start_date, end_date, is_active
			  FROM subscriptions
			  WHERE account_uid = $1 AND is_active = TRUE
			  ORDER BY id DESC
			  LIMIT 1`
	sub := &models.Subscription{}
	row := s.DB.QueryRowContext(ctx, query, accountUID)
	if err := row.Scan(&sub.ID, &sub.AccountUID, &sub.StartDate, &sub.EndDate, &sub.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// OpenSubscription открывает новое окно [start, end] и деактивирует прежние.
func (s *Storage) OpenSubscription(ctx context.Context, accountUID string, start, end time.Time) error {
	const op = "storage.OpenSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE subscriptions SET is_active = FALSE WHERE account_uid = $1 AND is_active = TRUE`
	if _, err := tx.ExecContext(ctx, query, accountUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query = `INSERT INTO subscriptions (account_uid, start_date, end_date, is_active)
			 VALUES ($1, $2, $3, TRUE)`
	if _, err := tx.ExecContext(ctx, query, accountUID, start, end); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ExtendSubscription продлевает окно на extraDays от его текущего end_date.
//
// Продление до истечения не сжигает оставшиеся дни: точка отсчёта — прежний
// конец окна, а не текущий момент.
func (s *Storage) ExtendSubscription(ctx context.Context, subscriptionID, extraDays int) error {
	const op = "storage.ExtendSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET end_date = end_date + ($2 * INTERVAL '1 day')
			  WHERE id = $1 AND is_active = TRUE`
	res, err := s.DB.ExecContext(ctx, query, subscriptionID, extraDays)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	return nil
}

// FindSubscriptionsExpiringWithin находит учётные записи, чьё окно подписки
// заканчивается в ближайшие days дней, но ещё действительно.
func (s *Storage) FindSubscriptionsExpiringWithin(ctx context.Context, days int) ([]*models.RenewalNotice, error) {
	const op = "storage.FindSubscriptionsExpiringWithin"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT a.username, s.end_date
			  FROM subscriptions s
			  JOIN accounts a ON a.uid = s.account_uid
			  WHERE s.is_active = TRUE
			    AND s.end_date >= NOW()
			    AND s.end_date <= NOW() + ($1 * INTERVAL '1 day')
			    AND a.status = $2;`
	rows, err := s.DB.QueryContext(ctx, query, days, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.RenewalNotice
	for rows.Next() {
		var n models.RenewalNotice
		if err = rows.Scan(&n.Username, &n.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
