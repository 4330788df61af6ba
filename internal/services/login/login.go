// Package login реализует автомат попытки входа.
//
// Порядок проверок фиксирован и является частью наблюдаемого контракта:
// существование учётной записи -> пароль -> устройство -> ручное одобрение
// (для суперпользователя — при каждом входе) -> действительность подписки.
// Попытка, упёршаяся одновременно в чужое устройство и истёкшую подписку,
// сообщает о несовпадении устройства: оно проверяется раньше.
package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/basimtrading/auth-gate/internal/lib/password"
	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/notify"
	"github.com/basimtrading/auth-gate/internal/services/approval"
	"github.com/basimtrading/auth-gate/internal/services/device"
	"github.com/basimtrading/auth-gate/internal/storage/repository"
)

// ErrInvalidApproval — оператор одобрил новую учётную запись, не указав
// число дней; такая заявка трактуется как отклонённая.
var ErrInvalidApproval = errors.New("approval without granted days")

// AccountRepository описывает контракт хранилища учётных записей.
type AccountRepository interface {
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)

	// CreateAccountWithSubscription создаёт одобренную учётную запись
	// вместе с окном подписки; вызывается только после решения оператора.
	CreateAccountWithSubscription(ctx context.Context, account models.Account, days int) (string, error)
}

// DeviceGuard описывает проверку и привязку отпечатка устройства.
type DeviceGuard interface {
	CheckAndBind(ctx context.Context, username, fingerprint string) (device.BindResult, error)
}

// Ledger описывает нужную автомату часть бухгалтерии подписок.
type Ledger interface {
	IsValid(ctx context.Context, accountUID string) (bool, error)
	Renew(ctx context.Context, accountUID string, extraDays int) error
}

// Coordinator описывает контракт координатора заявок.
type Coordinator interface {
	Open(req *models.PendingApprovalRequest) (string, error)
	Await(ctx context.Context, requestID string) (approval.Resolution, error)
	Resolve(requestID string, d models.Decision, apply approval.ApplyFunc) bool
	Abort(requestID string)
}

// Service — автомат попытки входа и применение решений оператора.
type Service struct {
	accounts AccountRepository
	guard    DeviceGuard
	ledger   Ledger
	coord    Coordinator
	channel  notify.Channel
	log      *slog.Logger

	defaultRenewalDays int
}

// New создаёт Service.
func New(accounts AccountRepository, guard DeviceGuard, ledger Ledger,
	coord Coordinator, channel notify.Channel, log *slog.Logger, defaultRenewalDays int) *Service {
	return &Service{
		accounts:           accounts,
		guard:              guard,
		ledger:             ledger,
		coord:              coord,
		channel:            channel,
		log:                log,
		defaultRenewalDays: defaultRenewalDays,
	}
}

// Attempt выполняет попытку входа и возвращает размеченный итог.
//
// Метод не блокируется в ожидании оператора: если решение требуется,
// возвращается OutcomeAwaitingApproval с идентификатором заявки, по которому
// вызывающая сторона блокируется в AwaitDecision или опрашивает результат.
func (s *Service) Attempt(ctx context.Context, username, rawPassword, fingerprint string) models.Outcome {
	const op = "login.Attempt"
	log := s.log.With(slog.String("op", op), slog.String("username", username))

	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return s.requestRegistration(ctx, log, username, rawPassword, fingerprint)
		}
		log.Error("failed to load account", sl.Err(err))
		return models.Failure(models.ReasonStorageFailure)
	}

	// Существующая учётная запись: неверный пароль даёт один и тот же отказ
	// независимо от статуса и прочих полей, чтобы не раскрывать их.
	if err := password.Compare(account.PasswordHash, rawPassword); err != nil {
		log.Info("credential verification failed")
		return models.Failure(models.ReasonBadCredential)
	}

	bind, err := s.guard.CheckAndBind(ctx, username, fingerprint)
	if err != nil {
		log.Error("device binding check failed", sl.Err(err))
		return models.Failure(models.ReasonStorageFailure)
	}
	if bind == device.BindMismatch {
		log.Info("login from unbound device rejected")
		return models.Failure(models.ReasonDeviceMismatch)
	}

	if account.Role == models.RoleSuperuser {
		return s.requestSuperuserApproval(ctx, log, username)
	}

	if account.Status != models.StatusActive {
		log.Info("login of non-active account rejected", slog.String("account_status", account.Status))
		return models.Failure(models.ReasonApprovalRejected)
	}

	valid, err := s.ledger.IsValid(ctx, account.UID)
	if err != nil {
		log.Error("subscription check failed", sl.Err(err))
		return models.Failure(models.ReasonStorageFailure)
	}
	if !valid {
		log.Info("subscription window expired or missing")
		return models.Failure(models.ReasonSubscriptionExpired)
	}

	log.Info("login succeeded", slog.String("role", account.Role))
	return models.Success(account.Role)
}

// requestRegistration открывает заявку на создание учётной записи.
//
// До решения оператора в хранилище ничего не пишется: хэш пароля и отпечаток
// устройства едут в самой заявке и материализуются только при одобрении.
func (s *Service) requestRegistration(ctx context.Context, log *slog.Logger, username, rawPassword, fingerprint string) models.Outcome {
	hash, err := password.Hash(rawPassword)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return models.Failure(models.ReasonStorageFailure)
	}

	req := &models.PendingApprovalRequest{
		Kind:    models.KindNewAccount,
		Subject: username,
		Registration: &models.Registration{
			PasswordHash:      hash,
			DeviceFingerprint: fingerprint,
		},
	}
	return s.dispatch(ctx, log, req)
}

// requestSuperuserApproval открывает заявку на вход суперпользователя.
// Свежая заявка нужна при каждом входе, прежние одобрения не учитываются.
func (s *Service) requestSuperuserApproval(ctx context.Context, log *slog.Logger, username string) models.Outcome {
	req := &models.PendingApprovalRequest{
		Kind:    models.KindSuperuserLogin,
		Subject: username,
	}
	return s.dispatch(ctx, log, req)
}

func (s *Service) dispatch(ctx context.Context, log *slog.Logger, req *models.PendingApprovalRequest) models.Outcome {
	requestID, err := s.coord.Open(req)
	if err != nil {
		if errors.Is(err, approval.ErrDuplicateRequest) {
			// Заявка уже в пути: вторая попытка делит её итог,
			// оператора не беспокоим повторно.
			log.Info("reusing outstanding approval request", slog.String("request_id", requestID))
			return models.Awaiting(requestID, req.Kind)
		}
		log.Error("failed to open approval request", sl.Err(err))
		return models.Failure(models.ReasonStorageFailure)
	}

	if err := s.channel.Notify(ctx, req); err != nil {
		s.coord.Abort(requestID)
		log.Error("failed to notify operator", sl.Err(err))
		return models.Failure(models.ReasonChannelUnavailable)
	}

	log.Info("approval requested",
		slog.String("request_id", requestID), slog.String("kind", string(req.Kind)))
	return models.Awaiting(requestID, req.Kind)
}

// AwaitDecision блокирует вызывающего до решения по заявке и переводит его
// в итог входа. Вторым значением возвращается субъект заявки.
func (s *Service) AwaitDecision(ctx context.Context, requestID string) (models.Outcome, string, error) {
	res, err := s.coord.Await(ctx, requestID)
	if err != nil {
		return models.Outcome{}, "", err
	}
	return resolutionOutcome(res), res.Req.Subject, nil
}

func resolutionOutcome(res approval.Resolution) models.Outcome {
	switch res.Decision.Status {
	case models.DecisionTimedOut:
		return models.Failure(models.ReasonApprovalTimeout)
	case models.DecisionRejected:
		return models.Failure(models.ReasonApprovalRejected)
	}
	if errors.Is(res.ApplyErr, ErrInvalidApproval) {
		return models.Failure(models.ReasonApprovalRejected)
	}
	if res.ApplyErr != nil {
		return models.Failure(models.ReasonStorageFailure)
	}
	switch res.Req.Kind {
	case models.KindSuperuserLogin:
		return models.Success(models.RoleSuperuser)
	default:
		return models.Success(models.RoleUser)
	}
}

// HandleDecision применяет решение оператора к заявке.
//
// Вызывается слушателями канала уведомлений; идемпотентна. Побочные эффекты
// (создание учётной записи, продление подписки) выполняются ровно один раз
// и до освобождения ожидающих; решение по неизвестной или уже разрешённой
// заявке логируется и отбрасывается.
func (s *Service) HandleDecision(ctx context.Context, requestID string, d models.Decision) {
	const op = "login.HandleDecision"
	log := s.log.With(slog.String("op", op), slog.String("request_id", requestID))

	applied := s.coord.Resolve(requestID, d, func(req *models.PendingApprovalRequest, d models.Decision) error {
		if d.Status != models.DecisionApproved {
			return nil
		}
		return s.applyApproval(ctx, req, d)
	})
	if !applied {
		log.Info("stale or duplicate decision dropped")
		return
	}
	log.Info("decision applied", slog.String("decision", string(d.Status)))
}

func (s *Service) applyApproval(ctx context.Context, req *models.PendingApprovalRequest, d models.Decision) error {
	const op = "login.applyApproval"

	switch req.Kind {
	case models.KindNewAccount:
		if req.Registration == nil || d.GrantedDays <= 0 {
			return fmt.Errorf("%s: %w", op, ErrInvalidApproval)
		}
		fingerprint := req.Registration.DeviceFingerprint
		account := models.Account{
			Username:          req.Subject,
			PasswordHash:      req.Registration.PasswordHash,
			Role:              models.RoleUser,
			Status:            models.StatusActive,
			DeviceFingerprint: &fingerprint,
			Approved:          true,
		}
		_, err := s.accounts.CreateAccountWithSubscription(ctx, account, d.GrantedDays)
		return err

	case models.KindRenewal:
		account, err := s.accounts.GetAccountByUsername(ctx, req.Subject)
		if err != nil {
			return err
		}
		days := d.GrantedDays
		if days <= 0 {
			days = s.defaultRenewalDays
		}
		return s.ledger.Renew(ctx, account.UID, days)

	default:
		// Вход суперпользователя не меняет состояние хранилища.
		return nil
	}
}
