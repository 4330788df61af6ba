// Package device реализует политику привязки учётной записи к устройству.
package device

import (
	"context"
	"fmt"
	"log/slog"
)

// BindResult — исход проверки отпечатка устройства.
type BindResult int

// Исходы проверки.
const (
	// BindOK — отпечаток совпал с привязанным.
	BindOK BindResult = iota
	// BindFirst — привязки не было, отпечаток привязан этим входом.
	BindFirst
	// BindMismatch — учётная запись привязана к другому устройству.
	BindMismatch
)

// Repository описывает контракт хранилища для привязки устройств.
type Repository interface {
	// BindDeviceIfUnbound атомарно привязывает отпечаток, если привязки ещё нет.
	BindDeviceIfUnbound(ctx context.Context, username, fingerprint string) (bool, error)

	// GetDeviceFingerprint возвращает привязанный отпечаток, nil если его нет.
	GetDeviceFingerprint(ctx context.Context, username string) (*string, error)
}

// Guard проверяет и при первом входе привязывает отпечаток устройства.
type Guard struct {
	repo Repository
	log  *slog.Logger
}

// New создаёт Guard.
func New(repo Repository, log *slog.Logger) *Guard {
	return &Guard{repo: repo, log: log}
}

// CheckAndBind сверяет отпечаток с привязанным и привязывает его при первом входе.
//
// Привязка выполняется атомарным compare-and-set в хранилище: из двух
// одновременных первых входов с разных устройств привязку получает ровно
// один, второй наблюдает BindMismatch. Привязанный отпечаток входом
// не меняется.
func (g *Guard) CheckAndBind(ctx context.Context, username, fingerprint string) (BindResult, error) {
	const op = "device.CheckAndBind"

	bound, err := g.repo.BindDeviceIfUnbound(ctx, username, fingerprint)
	if err != nil {
		return BindMismatch, fmt.Errorf("%s: %w", op, err)
	}
	if bound {
		g.log.Info("device fingerprint bound on first login",
			slog.String("username", username))
		return BindFirst, nil
	}

	current, err := g.repo.GetDeviceFingerprint(ctx, username)
	if err != nil {
		return BindMismatch, fmt.Errorf("%s: %w", op, err)
	}
	if current != nil && *current == fingerprint {
		return BindOK, nil
	}
	return BindMismatch, nil
}
