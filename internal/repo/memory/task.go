// Package memory implements the remote collaborators in process. Snapshots
// are delivered synchronously to listeners, in write order.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/repo"
)

type TaskStore struct {
	mu        sync.Mutex
	deliverMu sync.Mutex
	docs      map[string]model.Task
	listeners map[*listener]struct{}
	now       func() time.Time

	// Error injection
	ListenErr error
	GetErr    error
	CreateErr error
	UpdateErr error
	DeleteErr error
}

var _ repo.TaskStore = (*TaskStore)(nil)

func NewTaskStore() *TaskStore {
	return &TaskStore{
		docs:      make(map[string]model.Task),
		listeners: make(map[*listener]struct{}),
		now:       time.Now,
	}
}

type listener struct {
	store   *TaskStore
	ownerID string
	fn      repo.SnapshotFunc

	mu      sync.Mutex
	removed bool
}

func (l *listener) deliver(tasks []model.Task, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.removed {
		return
	}
	l.fn(tasks, err)
}

// Remove must not be called from inside the listener's own callback.
func (l *listener) Remove() {
	l.store.mu.Lock()
	delete(l.store.listeners, l)
	l.store.mu.Unlock()

	l.mu.Lock()
	l.removed = true
	l.mu.Unlock()
}

type delivery struct {
	l     *listener
	tasks []model.Task
	err   error
}

func (s *TaskStore) Listen(ctx context.Context, ownerID string, fn repo.SnapshotFunc) (repo.Listener, error) {
	s.mu.Lock()
	if s.ListenErr != nil {
		err := s.ListenErr
		s.mu.Unlock()
		return nil, err
	}
	l := &listener{store: s, ownerID: ownerID, fn: fn}
	s.listeners[l] = struct{}{}
	pending := []delivery{{l: l, tasks: s.snapshotLocked(ownerID)}}
	s.deliverLocked(pending)
	return l, nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return model.Task{}, s.GetErr
	}
	t, ok := s.docs[id]
	if !ok {
		return model.Task{}, repo.ErrorNotFound
	}
	return t, nil
}

func (s *TaskStore) Create(ctx context.Context, t model.Task) error {
	s.mu.Lock()
	if s.CreateErr != nil {
		err := s.CreateErr
		s.mu.Unlock()
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	prev, existed := s.docs[t.ID]
	s.docs[t.ID] = t

	owners := []string{t.OwnerID}
	if existed && prev.OwnerID != t.OwnerID {
		owners = append(owners, prev.OwnerID)
	}
	s.deliverLocked(s.changedLocked(owners...))
	return nil
}

func (s *TaskStore) Update(ctx context.Context, id string, f model.TaskFields) error {
	s.mu.Lock()
	if s.UpdateErr != nil {
		err := s.UpdateErr
		s.mu.Unlock()
		return err
	}
	prev, ok := s.docs[id]
	if !ok || prev.OwnerID != f.OwnerID {
		s.mu.Unlock()
		return repo.ErrorNotFound
	}
	s.docs[id] = prev.Apply(f)

	s.deliverLocked(s.changedLocked(prev.OwnerID))
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	if s.DeleteErr != nil {
		err := s.DeleteErr
		s.mu.Unlock()
		return err
	}
	prev, ok := s.docs[id]
	if !ok || prev.OwnerID != ownerID {
		s.mu.Unlock()
		return nil
	}
	delete(s.docs, id)
	s.deliverLocked(s.changedLocked(prev.OwnerID))
	return nil
}

// EmitError pushes err to every listener of ownerID, the way a backend
// reports a broken live query.
func (s *TaskStore) EmitError(ownerID string, err error) {
	s.mu.Lock()
	var pending []delivery
	for l := range s.listeners {
		if l.ownerID == ownerID {
			pending = append(pending, delivery{l: l, err: err})
		}
	}
	s.deliverLocked(pending)
}

// ListenerCount reports how many listeners are attached.
func (s *TaskStore) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Document returns the stored document without going through error injection.
func (s *TaskStore) Document(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.docs[id]
	return t, ok
}

func (s *TaskStore) changedLocked(owners ...string) []delivery {
	var pending []delivery
	for l := range s.listeners {
		for _, owner := range owners {
			if l.ownerID == owner {
				pending = append(pending, delivery{l: l, tasks: s.snapshotLocked(owner)})
				break
			}
		}
	}
	return pending
}

// deliverLocked releases s.mu and runs the callbacks. deliverMu is taken
// before s.mu is released so snapshots reach listeners in write order.
func (s *TaskStore) deliverLocked(pending []delivery) {
	s.deliverMu.Lock()
	s.mu.Unlock()
	defer s.deliverMu.Unlock()

	for _, d := range pending {
		d.l.deliver(d.tasks, d.err)
	}
}

func (s *TaskStore) snapshotLocked(ownerID string) []model.Task {
	tasks := make([]model.Task, 0)
	for _, t := range s.docs {
		if t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}
