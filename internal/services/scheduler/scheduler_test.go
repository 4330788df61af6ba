package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/rabbitmq"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) FindSubscriptionsExpiringWithin(ctx context.Context, days int) ([]*models.RenewalNotice, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RenewalNotice), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func setupReminderChannel(t *testing.T) *amqp.Channel {
	ctx := context.Background()

	amqpURI := os.Getenv("TEST_RABBITMQ_URL")
	if amqpURI == "" {
		req := testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-management",
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "guest",
				"RABBITMQ_DEFAULT_PASS": "guest",
			},
			WaitingFor: wait.ForListeningPort("5672/tcp").
				WithStartupTimeout(2 * time.Minute),
		}
		rmqContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := rmqContainer.Terminate(ctx); err != nil {
				t.Logf("failed to terminate rabbitmq container: %v", err)
			}
		})

		host, err := rmqContainer.Host(ctx)
		require.NoError(t, err)
		port, err := rmqContainer.MappedPort(ctx, "5672/tcp")
		require.NoError(t, err)
		amqpURI = fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
	}

	conn, err := rabbitmq.Connect(amqpURI, 5, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Logf("failed to close connection: %v", err)
		}
	})

	ch, err := rabbitmq.SetupChannel(conn, "approvals", []rabbitmq.QueueConfig{
		{QueueName: "approvals.reminders", RoutingKey: rabbitmq.ReminderRoutingKey},
	})
	require.NoError(t, err)
	return ch
}

func TestRunOnce_PublishesReminders(t *testing.T) {
	ctx := context.Background()
	ch := setupReminderChannel(t)

	repo := new(RepoMock)
	repo.On("FindSubscriptionsExpiringWithin", mock.Anything, 5).
		Return([]*models.RenewalNotice{
			{Username: "soon", EndDate: time.Now().Add(72 * time.Hour)},
		}, nil).Once()

	svc := New(repo, newNoopLogger(), "approvals", rabbitmq.ReminderRoutingKey, 5, 10)
	svc.runOnce(ctx, ch)

	deliveries, err := ch.Consume("approvals.reminders", "sender", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got models.RenewalNotice
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, "soon", got.Username)
		assert.Equal(t, 3, got.DaysRemaining)
		assert.Equal(t, 10, got.DiscountPercent)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for reminder")
	}
	repo.AssertExpectations(t)
}

func TestRunOnce_SkipsAlreadyExpired(t *testing.T) {
	ctx := context.Background()
	ch := setupReminderChannel(t)

	repo := new(RepoMock)
	repo.On("FindSubscriptionsExpiringWithin", mock.Anything, 5).
		Return([]*models.RenewalNotice{
			{Username: "late", EndDate: time.Now().Add(-24 * time.Hour)},
		}, nil).Once()

	svc := New(repo, newNoopLogger(), "approvals", rabbitmq.ReminderRoutingKey, 5, 10)
	svc.runOnce(ctx, ch)

	time.Sleep(time.Second)
	queue, err := ch.QueueInspect("approvals.reminders")
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Messages)
	repo.AssertExpectations(t)
}

func TestRunOnce_RepositoryErrorDoesNotPublish(t *testing.T) {
	ctx := context.Background()

	repo := new(RepoMock)
	repo.On("FindSubscriptionsExpiringWithin", mock.Anything, 5).
		Return(nil, errors.New("connection refused")).Once()

	svc := New(repo, newNoopLogger(), "approvals", rabbitmq.ReminderRoutingKey, 5, 10)
	// Канал не трогается: до публикации дело не доходит
	svc.runOnce(ctx, nil)
	repo.AssertExpectations(t)
}
