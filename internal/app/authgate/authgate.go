// Package authgate собирает и запускает основной сервис контроля доступа:
// хранилище, кэш, координатор согласований, канал уведомлений оператора
// и HTTP-сервер.
package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/basimtrading/auth-gate/internal/cache"
	"github.com/basimtrading/auth-gate/internal/config"
	"github.com/basimtrading/auth-gate/internal/lib/jwt"
	"github.com/basimtrading/auth-gate/internal/metrics"
	"github.com/basimtrading/auth-gate/internal/migrations"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/notify"
	"github.com/basimtrading/auth-gate/internal/notify/amqpchannel"
	"github.com/basimtrading/auth-gate/internal/notify/telegramchannel"
	"github.com/basimtrading/auth-gate/internal/rabbitmq"
	"github.com/basimtrading/auth-gate/internal/services/approval"
	deviceservice "github.com/basimtrading/auth-gate/internal/services/device"
	loginservice "github.com/basimtrading/auth-gate/internal/services/login"
	renewalservice "github.com/basimtrading/auth-gate/internal/services/renewal"
	subscriptionservice "github.com/basimtrading/auth-gate/internal/services/subscription"
	"github.com/basimtrading/auth-gate/internal/storage/repository"
)

// App — собранный сервис контроля доступа.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel

	cfg          *config.Config
	loginService *loginservice.Service
	tgListener   *telegramchannel.Listener
	amqpListener *amqpchannel.Listener
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New собирает приложение из конфигурации.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		return nil, err
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	coord := approval.New(approval.Timeouts{
		models.KindNewAccount:     cfg.Approval.NewAccountTimeout,
		models.KindSuperuserLogin: cfg.Approval.SuperuserTimeout,
		models.KindRenewal:        cfg.Approval.RenewalTimeout,
	}, cfg.Approval.NewAccountTimeout)
	metrics.RegisterPendingApprovals(coord.Pending)

	app := &App{logger: logger, db: db, cfg: cfg}

	var channel notify.Channel
	switch cfg.NotifyChannel {
	case "amqp":
		conn, err := rabbitmq.Connect(cfg.RabbitConnection.AddressRabbit,
			cfg.RabbitConnection.ConnectRetries, cfg.RabbitConnection.ConnectDelay)
		if err != nil {
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitConnection.ApprovalsExName, []rabbitmq.QueueConfig{
			{QueueName: cfg.RabbitConnection.RequestsQueue, RoutingKey: rabbitmq.RequestRoutingKey},
			{QueueName: cfg.RabbitConnection.DecisionsQueue, RoutingKey: rabbitmq.DecisionRoutingKey},
		})
		if err != nil {
			closeResources(nil, conn, logger)
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		app.conn, app.ch = conn, ch
		channel = amqpchannel.New(ch, cfg.RabbitConnection.ApprovalsExName, rabbitmq.RequestRoutingKey)
	case "telegram":
		channel = telegramchannel.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	default:
		return nil, fmt.Errorf("unknown notify channel: %s", cfg.NotifyChannel)
	}

	guard := deviceservice.New(db, logger)
	ledger := subscriptionservice.NewLedgerService(db, cacheRedis, logger,
		cfg.Renewal.PromptThresholdDays, cfg.Renewal.DiscountPercent)
	loginService := loginservice.New(db, guard, ledger, coord, channel, logger,
		cfg.Renewal.DefaultRenewalDays)
	renewalService := renewalservice.New(coord, channel, logger)
	app.loginService = loginService

	switch cfg.NotifyChannel {
	case "amqp":
		app.amqpListener = amqpchannel.NewListener(loginService, logger)
	case "telegram":
		tgClient := channel.(*telegramchannel.Client)
		app.tgListener = telegramchannel.NewListener(tgClient, loginService, cacheRedis,
			cfg.Telegram.PollInterval, cfg.Telegram.PollTimeout, logger)
	}

	maker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	limiter := rate.NewLimiter(5, 10)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, loginService, renewalService, db, ledger,
		maker, limiter, cfg.HTTPServer.WebhookSecret)

	// Ожидание решения оператора держит соединение открытым вплоть до
	// тайм-аута заявки, поэтому WriteTimeout должен его перекрывать.
	writeTimeout := cfg.HTTPServer.TimeoutHTTP
	for _, t := range []time.Duration{
		cfg.Approval.NewAccountTimeout, cfg.Approval.SuperuserTimeout, cfg.Approval.RenewalTimeout,
	} {
		if t+15*time.Second > writeTimeout {
			writeTimeout = t + 15*time.Second
		}
	}
	app.server = &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: writeTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает слушателей решений и HTTP-сервер; блокируется до отмены
// контекста или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	if a.tgListener != nil {
		go a.tgListener.Run(ctx)
	}
	if a.amqpListener != nil {
		go func() {
			if err := a.amqpListener.Run(ctx, a.ch, a.cfg.RabbitConnection.DecisionsQueue); err != nil {
				a.logger.Error("decisions consumer stopped", slog.Any("err", err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		closeResources(a.ch, a.conn, a.logger)
		a.db.DB.Close()
		return err
	}
}
