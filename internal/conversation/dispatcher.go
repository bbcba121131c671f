package conversation

import (
	"context"
	"log/slog"
	"sync"
)

// HandlerFunc обрабатывает одно событие пользователя
type HandlerFunc func(ctx context.Context, ev Event)

// Dispatcher раздает события по пользователям: события одного пользователя
// обрабатываются строго в порядке поступления, разные пользователи
// обслуживаются параллельно. Горутина пользователя живет, пока у него
// есть необработанные события.
type Dispatcher struct {
	handle HandlerFunc

	mu     sync.Mutex
	queues map[int64][]Event
	wg     sync.WaitGroup
}

func NewDispatcher(handle HandlerFunc) *Dispatcher {
	return &Dispatcher{
		handle: handle,
		queues: make(map[int64][]Event),
	}
}

// Dispatch ставит событие в очередь пользователя и сразу возвращается
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	d.mu.Lock()
	queue, running := d.queues[ev.UserID]
	d.queues[ev.UserID] = append(queue, ev)
	if !running {
		d.wg.Add(1)
	}
	d.mu.Unlock()

	if !running {
		go d.drain(ctx, ev.UserID)
	}
}

func (d *Dispatcher) drain(ctx context.Context, userID int64) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		queue := d.queues[userID]
		if len(queue) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		ev := queue[0]
		d.queues[userID] = queue[1:]
		d.mu.Unlock()

		d.run(ctx, ev)
	}
}

func (d *Dispatcher) run(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while handling update", "user_id", ev.UserID, "panic", r)
		}
	}()
	d.handle(ctx, ev)
}

// Wait дожидается обработки всех принятых событий
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Active - число пользователей с необработанными событиями
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
