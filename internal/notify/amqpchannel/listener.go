package amqpchannel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/notify"
	"github.com/basimtrading/auth-gate/internal/rabbitmq"
)

// Listener потребляет решения оператора из очереди и передаёт их ядру.
type Listener struct {
	resolver notify.Resolver
	log      *slog.Logger
}

// NewListener создаёт Listener.
func NewListener(resolver notify.Resolver, log *slog.Logger) *Listener {
	return &Listener{resolver: resolver, log: log}
}

// Run запускает потребителя очереди решений.
//
// Доставка at-least-once: повтор решения по уже разрешённой заявке
// отбрасывается идемпотентным HandleDecision.
func (l *Listener) Run(ctx context.Context, ch *amqp.Channel, queueName string) error {
	const op = "amqpchannel.Listener.Run"
	err := rabbitmq.ConsumeMessages(ctx, ch, queueName, func(body []byte) error {
		var msg notify.DecisionMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			l.log.Error("failed to unmarshal decision message", sl.Err(err))
			// Неразборчивое сообщение возвращать в очередь бессмысленно.
			return nil
		}
		if msg.RequestID == "" {
			l.log.Error("decision message without request_id dropped")
			return nil
		}
		l.resolver.HandleDecision(ctx, msg.RequestID, msg.ToDecision())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
