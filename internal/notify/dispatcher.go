// Package notify fans PostgreSQL notifications out to in-process callbacks.
// One pooled connection LISTENs on a channel; each payload is an owner id and
// wakes every callback registered for that owner.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	defaultRetryDelay = time.Second
	closeTimeout      = 2 * time.Second
)

type Dispatcher struct {
	pool    *pgxpool.Pool
	logger  *zap.Logger
	channel string
	retry   time.Duration

	mu       sync.Mutex
	handlers map[string]map[*handler]struct{}

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
}

type handler struct {
	wake func()
}

func NewDispatcher(pool *pgxpool.Pool, logger *zap.Logger, channel string) *Dispatcher {
	return &Dispatcher{
		pool:     pool,
		logger:   logger,
		channel:  channel,
		retry:    defaultRetryDelay,
		handlers: make(map[string]map[*handler]struct{}),
		stop:     make(chan struct{}),
	}
}

// Register adds wake to the callbacks for ownerID. wake must not block.
func (d *Dispatcher) Register(ownerID string, wake func()) func() {
	h := &handler{wake: wake}

	d.mu.Lock()
	set, ok := d.handlers[ownerID]
	if !ok {
		set = make(map[*handler]struct{})
		d.handlers[ownerID] = set
	}
	set[h] = struct{}{}
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.handlers[ownerID], h)
			if len(d.handlers[ownerID]) == 0 {
				delete(d.handlers, ownerID)
			}
		})
	}
}

// Handlers reports how many callbacks are registered.
func (d *Dispatcher) Handlers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, set := range d.handlers {
		n += len(set)
	}
	return n
}

func (d *Dispatcher) dispatch(ownerID string) {
	d.mu.Lock()
	wakes := make([]func(), 0, len(d.handlers[ownerID]))
	for h := range d.handlers[ownerID] {
		wakes = append(wakes, h.wake)
	}
	d.mu.Unlock()

	for _, wake := range wakes {
		wake()
	}
}

// dispatchAll wakes every callback. Used after a reconnect, when
// notifications may have been lost.
func (d *Dispatcher) dispatchAll() {
	d.mu.Lock()
	var wakes []func()
	for _, set := range d.handlers {
		for h := range set {
			wakes = append(wakes, h.wake)
		}
	}
	d.mu.Unlock()

	for _, wake := range wakes {
		wake()
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting notification dispatcher", zap.String("channel", d.channel))

	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.run(ctx)
}

func (d *Dispatcher) Stop() {
	d.logger.Info("Stopping notification dispatcher...")
	d.stopOnce.Do(func() {
		close(d.stop)
		if d.cancel != nil {
			d.cancel()
		}
	})
	d.wg.Wait()
	d.logger.Info("Notification dispatcher stopped")
}

// Run blocks until ctx is done or Stop is called.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start(ctx)
	select {
	case <-ctx.Done():
	case <-d.stop:
	}
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	first := true
	for {
		err := d.listen(ctx, !first)
		first = false

		select {
		case <-d.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		d.logger.Error("listen connection lost", zap.String("channel", d.channel), zap.Error(err))

		select {
		case <-d.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(d.retry):
		}
	}
}

// listen holds one connection until it fails. After a reconnect every
// callback is woken once so listeners re-read their snapshot.
func (d *Dispatcher) listen(ctx context.Context, reconnect bool) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	// Соединение с LISTEN в пул не возвращаем: забираем и закрываем
	defer func() {
		c := conn.Hijack()
		cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := c.Close(cctx); err != nil {
			d.logger.Debug("close listen connection", zap.Error(err))
		}
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{d.channel}.Sanitize()); err != nil {
		return err
	}
	if reconnect {
		d.dispatchAll()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		d.dispatch(n.Payload)
	}
}
