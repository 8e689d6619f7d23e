package telegram

import (
	"context"
	"sync"

	"github.com/go-telegram/bot/models"

	"poliglotbot/internal/platform/metrics"
)

type ctxUpdate struct {
	ctx context.Context
	upd *models.Update
}

// HandlerFunc processes a single update.
type HandlerFunc func(ctx context.Context, upd *models.Update) error

// Dispatcher routes updates to worker goroutines keeping chat order.
type Dispatcher struct {
	handler HandlerFunc
	workers int
	chans   []chan ctxUpdate

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates dispatcher with given worker count.
func NewDispatcher(workers int, h HandlerFunc) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{handler: h, workers: workers, chans: make([]chan ctxUpdate, workers)}
	for i := 0; i < workers; i++ {
		d.chans[i] = make(chan ctxUpdate, 100)
		d.wg.Add(1)
		go d.worker(d.chans[i])
	}
	return d
}

// Dispatch sends update to appropriate worker based on chat ID.
// It gives up when ctx is done or the dispatcher is closed.
func (d *Dispatcher) Dispatch(ctx context.Context, upd *models.Update) {
	if upd == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.chans[d.shard(ChatID(upd))] <- ctxUpdate{ctx: ctx, upd: upd}:
		metrics.IncDispatched()
	case <-ctx.Done():
	}
}

// Close stops accepting updates and waits until queued ones are handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.chans {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(in <-chan ctxUpdate) {
	defer d.wg.Done()
	for item := range in {
		// ошибки логирует middleware
		_ = d.handler(item.ctx, item.upd)
	}
}

// shard picks the worker for a chat. Negative ids (groups) are taken modulo as uint64.
func (d *Dispatcher) shard(chatID int64) int {
	return int(uint64(chatID) % uint64(d.workers))
}

// ChatID returns the chat an update belongs to, or 0.
func ChatID(u *models.Update) int64 {
	if u.Message != nil {
		return u.Message.Chat.ID
	}
	if u.CallbackQuery != nil && u.CallbackQuery.Message.Message != nil {
		return u.CallbackQuery.Message.Message.Chat.ID
	}
	return 0
}

// UserID returns the sender of an update, or 0.
func UserID(u *models.Update) int64 {
	if u.Message != nil && u.Message.From != nil {
		return u.Message.From.ID
	}
	if u.CallbackQuery != nil {
		return u.CallbackQuery.From.ID
	}
	return 0
}
