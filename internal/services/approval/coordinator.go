// Package approval реализует координатор заявок на решение оператора.
//
// Координатор — таблица соответствия между выданным идентификатором заявки
// и её итоговым решением. Вход, ожидающий одобрения, регистрирует заявку
// через Open и блокируется в Await; слушатель канала уведомлений доставляет
// решение через Resolve. Для каждой заявки существует ровно одно терминальное
// решение: повторные Resolve и опоздавшие тайм-ауты отбрасываются.
package approval

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/basimtrading/auth-gate/internal/models"
)

// Ошибки координатора.
var (
	// ErrDuplicateRequest — для пары (вид, субъект) уже есть неразрешённая
	// заявка; Open возвращает её идентификатор, и вызывающая сторона
	// переиспользует его вместо создания дубликата.
	ErrDuplicateRequest = errors.New("unresolved request already exists")
	// ErrUnknownRequest — заявки с таким идентификатором нет: она уже
	// разрешена и удалена из таблицы либо никогда не существовала.
	ErrUnknownRequest = errors.New("unknown or already resolved request")
)

// Timeouts задаёт время ожидания решения по видам заявок.
type Timeouts map[models.ApprovalKind]time.Duration

// Resolution — итог заявки, который наблюдают все ожидающие.
type Resolution struct {
	Req      *models.PendingApprovalRequest
	Decision models.Decision
	ApplyErr error // Ошибка применения побочных эффектов решения
}

// ApplyFunc применяет побочные эффекты решения (создание учётной записи,
// продление подписки). Выполняется ровно один раз, до освобождения
// ожидающих, чтобы наблюдавший одобрение вызов сразу видел записанное
// состояние.
type ApplyFunc func(req *models.PendingApprovalRequest, d models.Decision) error

type entry struct {
	req      *models.PendingApprovalRequest
	done     chan struct{}
	res      Resolution
	resolved bool
	timer    *time.Timer
}

// Coordinator — потокобезопасная таблица заявок.
//
// Исходная реализация держала заявки в общем изменяемом словаре без
// блокировок; здесь таблица принадлежит координатору и доступна только
// через Open/Await/Resolve под мьютексом.
type Coordinator struct {
	mu       sync.Mutex
	byID     map[string]*entry
	byKey    map[string]string // (вид|субъект) -> идентификатор неразрешённой заявки
	timeouts Timeouts
	fallback time.Duration
}

// New создаёт координатор с тайм-аутами ожидания по видам заявок.
func New(timeouts Timeouts, fallback time.Duration) *Coordinator {
	return &Coordinator{
		byID:     make(map[string]*entry),
		byKey:    make(map[string]string),
		timeouts: timeouts,
		fallback: fallback,
	}
}

func requestKey(kind models.ApprovalKind, subject string) string {
	return string(kind) + "|" + subject
}

// Open регистрирует новую заявку и возвращает её идентификатор.
//
// Если для пары (req.Kind, req.Subject) уже есть неразрешённая заявка,
// возвращает её идентификатор вместе с ErrDuplicateRequest: две
// одновременные попытки входа одного пользователя делят одну заявку.
// После истечения тайм-аута заявка разрешается как TimedOut.
func (c *Coordinator) Open(req *models.PendingApprovalRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := requestKey(req.Kind, req.Subject)
	if existing, ok := c.byKey[key]; ok {
		return existing, ErrDuplicateRequest
	}

	req.RequestID = uuid.NewString()
	req.CreatedAt = time.Now()

	e := &entry{
		req:  req,
		done: make(chan struct{}),
	}
	id := req.RequestID
	e.timer = time.AfterFunc(c.timeoutFor(req.Kind), func() {
		c.resolve(id, models.Decision{Status: models.DecisionTimedOut}, nil)
	})

	c.byID[id] = e
	c.byKey[key] = id
	return id, nil
}

// Await блокирует вызывающего до разрешения заявки или отмены контекста.
//
// Тайм-аут ожидания встроен в саму заявку: по его истечении все ожидающие
// получают Resolution с решением TimedOut. Несколько вызовов Await по
// одному идентификатору наблюдают один и тот же итог.
func (c *Coordinator) Await(ctx context.Context, requestID string) (Resolution, error) {
	c.mu.Lock()
	e, ok := c.byID[requestID]
	c.mu.Unlock()
	if !ok {
		return Resolution{}, ErrUnknownRequest
	}

	select {
	case <-e.done:
		return e.res, nil
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	}
}

// Resolve доставляет решение оператора по заявке.
//
// Идемпотентен: решение по неизвестной или уже разрешённой заявке
// отбрасывается без ошибки (транспорт доставляет at-least-once). Возвращает
// true, если именно этот вызов стал терминальным. apply, если задан,
// выполняется до освобождения ожидающих; его ошибка попадает в Resolution.
func (c *Coordinator) Resolve(requestID string, d models.Decision, apply ApplyFunc) bool {
	return c.resolve(requestID, d, apply)
}

func (c *Coordinator) resolve(requestID string, d models.Decision, apply ApplyFunc) bool {
	c.mu.Lock()
	e, ok := c.byID[requestID]
	if !ok || e.resolved {
		c.mu.Unlock()
		return false
	}
	e.resolved = true
	e.timer.Stop()
	delete(c.byKey, requestKey(e.req.Kind, e.req.Subject))
	c.mu.Unlock()

	res := Resolution{Req: e.req, Decision: d}
	if apply != nil {
		res.ApplyErr = apply(e.req, d)
	}
	e.res = res
	close(e.done)

	// Заявка уничтожается сразу после разрешения; новые Await по этому
	// идентификатору получат ErrUnknownRequest.
	c.mu.Lock()
	delete(c.byID, requestID)
	c.mu.Unlock()
	return true
}

// Abort снимает ещё не разрешённую заявку без решения.
//
// Используется, когда уведомление оператору отправить не удалось: ждать
// весь тайм-аут бессмысленно, а заявка не должна блокировать повторную
// попытку.
func (c *Coordinator) Abort(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[requestID]
	if !ok || e.resolved {
		return
	}
	e.resolved = true
	e.timer.Stop()
	e.res = Resolution{Req: e.req, Decision: models.Decision{Status: models.DecisionTimedOut}}
	close(e.done)
	delete(c.byKey, requestKey(e.req.Kind, e.req.Subject))
	delete(c.byID, requestID)
}

// Pending возвращает число неразрешённых заявок.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

func (c *Coordinator) timeoutFor(kind models.ApprovalKind) time.Duration {
	if t, ok := c.timeouts[kind]; ok {
		return t
	}
	return c.fallback
}
