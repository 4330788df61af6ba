package telegramchannel

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/basimtrading/auth-gate/internal/lib/sl"
	"github.com/basimtrading/auth-gate/internal/models"
	"github.com/basimtrading/auth-gate/internal/notify"
)

// seenTTL — срок хранения отметки об обработанном обновлении. Дольше
// Telegram своё обновление не переотправляет.
const seenTTL = 24 * time.Hour

// SeenMarker отмечает обновление обработанным. Возвращает false, если
// отметка уже стояла.
type SeenMarker interface {
	MarkSeen(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// Listener длинным опросом принимает решения оператора из Telegram.
type Listener struct {
	client   *Client
	resolver notify.Resolver
	seen     SeenMarker
	log      *slog.Logger

	pollInterval time.Duration
	pollTimeout  time.Duration
	offset       int64
}

// NewListener создаёт Listener.
func NewListener(client *Client, resolver notify.Resolver, seen SeenMarker,
	pollInterval, pollTimeout time.Duration, log *slog.Logger) *Listener {
	return &Listener{
		client:       client,
		resolver:     resolver,
		seen:         seen,
		log:          log,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// Run опрашивает getUpdates до отмены контекста.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := l.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Error("telegram poll failed", sl.Err(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *Listener) poll(ctx context.Context) error {
	req := getUpdatesRequest{
		Offset:  l.offset,
		Timeout: int(l.pollTimeout.Seconds()),
	}

	var resp getUpdatesResponse
	if err := l.client.call(ctx, "getUpdates", req, &resp); err != nil {
		return err
	}

	for _, upd := range resp.Result {
		if upd.UpdateID >= l.offset {
			l.offset = upd.UpdateID + 1
		}
		l.handleUpdate(ctx, upd)
	}
	return nil
}

func (l *Listener) handleUpdate(ctx context.Context, upd update) {
	fresh, err := l.seen.MarkSeen(ctx, strconv.FormatInt(upd.UpdateID, 10), seenTTL)
	if err != nil {
		l.log.Error("failed to mark update seen", sl.Err(err))
		// Повтор отбросит идемпотентный HandleDecision.
	} else if !fresh {
		return
	}

	switch {
	case upd.CallbackQuery != nil:
		l.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		l.handleMessage(ctx, upd.Message)
	}
}

func (l *Listener) handleCallback(ctx context.Context, cb *callbackQuery) {
	if cb.Message != nil && cb.Message.Chat.ID != l.client.chatID {
		return
	}

	requestID, d, ok := ParseCallbackData(cb.Data)
	if !ok {
		l.log.Warn("unrecognized callback data", slog.String("data", cb.Data))
		return
	}
	l.resolver.HandleDecision(ctx, requestID, d)

	ack := answerCallbackQueryRequest{CallbackQueryID: cb.ID, Text: "Принято"}
	if err := l.client.call(ctx, "answerCallbackQuery", ack, nil); err != nil {
		l.log.Warn("failed to answer callback query", sl.Err(err))
	}
}

func (l *Listener) handleMessage(ctx context.Context, msg *message) {
	if msg.Chat.ID != l.client.chatID {
		return
	}

	requestID, d, ok := ParseCommand(msg.Text)
	if !ok {
		return
	}
	l.resolver.HandleDecision(ctx, requestID, d)
}

// ParseCallbackData разбирает данные inline-кнопки: approve_<id> или reject_<id>.
func ParseCallbackData(data string) (string, models.Decision, bool) {
	if id, found := strings.CutPrefix(data, "approve_"); found && id != "" {
		return id, models.Decision{Status: models.DecisionApproved}, true
	}
	if id, found := strings.CutPrefix(data, "reject_"); found && id != "" {
		return id, models.Decision{Status: models.DecisionRejected}, true
	}
	return "", models.Decision{}, false
}

// ParseCommand разбирает текстовую команду оператора:
//
//	approve <id> <дней>
//	approve <id>
//	reject <id>
func ParseCommand(text string) (string, models.Decision, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 2 {
		return "", models.Decision{}, false
	}

	switch strings.ToLower(fields[0]) {
	case "approve":
		d := models.Decision{Status: models.DecisionApproved}
		if len(fields) >= 3 {
			days, err := strconv.Atoi(fields[2])
			if err != nil || days <= 0 {
				return "", models.Decision{}, false
			}
			d.GrantedDays = days
		}
		return fields[1], d, true
	case "reject":
		return fields[1], models.Decision{Status: models.DecisionRejected}, true
	default:
		return "", models.Decision{}, false
	}
}
