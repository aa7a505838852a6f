package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/repo"
)

// Notifier wakes registered callbacks when a task of ownerID changes.
type Notifier interface {
	Register(ownerID string, wake func()) (unregister func())
}

type TaskStore struct { // Хранилище задач поверх Postgres
	pool     *pgxpool.Pool
	notifier Notifier
	logger   *zap.Logger
}

var _ repo.TaskStore = (*TaskStore)(nil)

func NewTaskStore(pool *pgxpool.Pool, notifier Notifier, logger *zap.Logger) *TaskStore {
	return &TaskStore{
		pool:     pool,
		notifier: notifier,
		logger:   logger,
	}
}

const taskColumns = `id, title, description, completed, owner_id, created_at`

// Listen starts a goroutine that re-reads the owner's tasks on every
// notification and hands the snapshot to fn. The first snapshot is read
// right away. Query failures are passed to fn and end the listener.
func (s *TaskStore) Listen(ctx context.Context, ownerID string, fn repo.SnapshotFunc) (repo.Listener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lctx, cancel := context.WithCancel(context.Background())
	l := &listener{
		store:   s,
		ownerID: ownerID,
		fn:      fn,
		ctx:     lctx,
		cancel:  cancel,
		wakeC:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	// Регистрация до первого чтения, чтобы не потерять изменения
	l.unregister = s.notifier.Register(ownerID, l.wake)
	l.wake()

	go l.run()
	return l, nil
}

type listener struct {
	store      *TaskStore
	ownerID    string
	fn         repo.SnapshotFunc
	ctx        context.Context
	cancel     context.CancelFunc
	unregister func()
	wakeC      chan struct{}
	done       chan struct{}

	mu      sync.Mutex
	removed bool
	once    sync.Once
}

func (l *listener) wake() {
	select {
	case l.wakeC <- struct{}{}:
	default:
	}
}

func (l *listener) run() {
	defer close(l.done)

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.wakeC:
		}

		tasks, err := l.store.listByOwner(l.ctx, l.ownerID)
		if l.ctx.Err() != nil {
			return
		}

		l.mu.Lock()
		if !l.removed {
			l.fn(tasks, err)
		}
		l.mu.Unlock()

		if err != nil {
			l.store.logger.Error("task listener stopped", zap.String("owner_id", l.ownerID), zap.Error(err))
			return
		}
	}
}

// Remove stops the listener and waits for its goroutine. It must not be
// called from inside the listener's own callback.
func (l *listener) Remove() {
	l.once.Do(func() {
		l.unregister()
		l.cancel()
		l.mu.Lock()
		l.removed = true
		l.mu.Unlock()
		<-l.done
	})
}

func (s *TaskStore) listByOwner(ctx context.Context, ownerID string) ([]model.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner_id = $1
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (model.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, repo.ErrorNotFound
	}
	if err != nil {
		return t, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// Create writes the full document, replacing any row with the same id.
func (s *TaskStore) Create(ctx context.Context, t model.Task) error {
	var createdAt *time.Time
	if !t.CreatedAt.IsZero() {
		createdAt = &t.CreatedAt
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (id, title, description, completed, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    completed = EXCLUDED.completed,
		    owner_id = EXCLUDED.owner_id,
		    created_at = EXCLUDED.created_at
	`, t.ID, t.Title, t.Description, t.Completed, t.OwnerID, createdAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update touches title, description and completed of a row owned by
// f.OwnerID. owner_id is the match condition, never a target.
func (s *TaskStore) Update(ctx context.Context, id string, f model.TaskFields) error {
	cmd, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, completed = $4
		WHERE id = $1 AND owner_id = $5
	`, id, f.Title, f.Description, f.Completed, f.OwnerID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrorNotFound
	}
	return nil
}

// Delete is idempotent: a missing id or a row of another owner succeeds
// without touching anything.
func (s *TaskStore) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND owner_id = $2", id, ownerID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.OwnerID, &t.CreatedAt)
	return t, err
}
