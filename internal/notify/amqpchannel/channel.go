// Package amqpchannel реализует канал уведомлений оператора поверх RabbitMQ.
//
// Заявки публикуются в обменник согласований; консоль оператора потребляет
// их и публикует решения в очередь решений, которую слушает Listener.
package amqpchannel

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/basimtrading/auth-gate/internal/lib/rabbitmq"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/notify"
)

// Channel публикует заявки на решение в RabbitMQ.
type Channel struct {
	ch         *amqp.Channel
	exchange   string
	routingKey string
}

// New создаёт Channel поверх открытого канала RabbitMQ.
func New(ch *amqp.Channel, exchange, routingKey string) *Channel {
	return &Channel{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
	}
}

// Notify публикует заявку оператору.
//
// Ошибка публикации означает недоступность канала: попытка входа должна
// завершиться сразу, не выжидая тайм-аут решения.
func (c *Channel) Notify(_ context.Context, req *models.PendingApprovalRequest) error {
	const op = "amqpchannel.Notify"
	if err := rabbitmq.PublishMessage(c.ch, c.exchange, c.routingKey, notify.NewRequestMessage(req)); err != nil {
		return fmt.Errorf("%s: %w: %v", op, notify.ErrChannelUnavailable, err)
	}
	return nil
}
