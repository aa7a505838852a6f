package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/repo"
	"github.com/BuzzLyutic/todo-sync/internal/result"
	"github.com/BuzzLyutic/todo-sync/internal/state"
)

// TaskSync turns a live store subscription for the signed-in user into the
// latest Result over that user's tasks. Writes go straight to the store and
// show up in the list only when the subscription echoes them back.
type TaskSync struct {
	store  repo.TaskStore
	auth   repo.AuthProvider
	logger *zap.Logger
	newID  func() string

	tasks     *state.Cell[result.Result[[]model.Task]]
	addResult *state.Cell[result.Result[bool]]

	mu  sync.Mutex
	sub *subscription
}

type TaskSyncOption func(*TaskSync)

// WithIDGenerator replaces the uuid generator used for new task ids.
func WithIDGenerator(fn func() string) TaskSyncOption {
	return func(s *TaskSync) { s.newID = fn }
}

func NewTaskSync(store repo.TaskStore, auth repo.AuthProvider, logger *zap.Logger, opts ...TaskSyncOption) *TaskSync {
	s := &TaskSync{
		store:     store,
		auth:      auth,
		logger:    logger,
		newID:     uuid.NewString,
		tasks:     state.NewCellWith(result.Loading[[]model.Task]()),
		addResult: state.NewCell[result.Result[bool]](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// subscription is the cancellation token for one store listener. Callbacks
// only touch engine state while active is true, checked under mu.
type subscription struct {
	ownerID  string
	listener repo.Listener

	mu     sync.Mutex
	active bool
	failed bool
}

func (sub *subscription) stop() {
	sub.mu.Lock()
	sub.active = false
	sub.mu.Unlock()
	if sub.listener != nil {
		sub.listener.Remove()
	}
}

func (sub *subscription) usable(ownerID string) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.active && !sub.failed && sub.ownerID == ownerID
}

// Subscribe starts the live query for the current user. Calling it while a
// healthy subscription for the same user exists does nothing; a failed one,
// or one for a different user, is torn down and replaced.
func (s *TaskSync) Subscribe(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.auth.CurrentUser()
	if s.sub != nil {
		if ok && s.sub.usable(user.ID) {
			return
		}
		s.sub.stop()
		s.sub = nil
	}

	if !ok {
		s.logger.Warn("subscribe without session")
		s.tasks.Store(notAuthenticated[[]model.Task]())
		return
	}

	sub := &subscription{ownerID: user.ID, active: true}
	listener, err := s.store.Listen(ctx, user.ID, func(tasks []model.Task, err error) {
		s.onSnapshot(sub, tasks, err)
	})
	if err != nil {
		sub.stop()
		s.logger.Error("failed to attach task listener", zap.String("owner_id", user.ID), zap.Error(err))
		s.tasks.Store(taskFailure[[]model.Task](err, msgLoadTasks))
		return
	}
	sub.listener = listener
	s.sub = sub
	s.logger.Info("task subscription started", zap.String("owner_id", user.ID))
}

// Unsubscribe detaches the live query. Once it returns the task state no
// longer changes until the next Subscribe.
func (s *TaskSync) Unsubscribe() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return
	}
	sub.stop()
	s.logger.Info("task subscription stopped", zap.String("owner_id", sub.ownerID))
}

// Subscribed reports whether a listener is attached.
func (s *TaskSync) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

func (s *TaskSync) onSnapshot(sub *subscription, tasks []model.Task, err error) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.active {
		return
	}

	if err != nil {
		sub.failed = true
		s.logger.Error("task listener failed", zap.String("owner_id", sub.ownerID), zap.Error(err))
		s.tasks.Store(taskFailure[[]model.Task](err, msgLoadTasks))
		return
	}
	s.tasks.Store(result.Success(ownedSorted(tasks, sub.ownerID)))
}

// ownedSorted copies the tasks that belong to ownerID, ordered by id.
func ownedSorted(tasks []model.Task, ownerID string) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tasks returns the latest task list state.
func (s *TaskSync) Tasks() result.Result[[]model.Task] {
	r, _ := s.tasks.Load()
	return r
}

// Watch signals after every change of the task list state.
func (s *TaskSync) Watch() (<-chan struct{}, func()) {
	return s.tasks.Watch()
}

// AddResult returns the outcome of the last AddTask. ok is false before the
// first call and after ResetAddResult.
func (s *TaskSync) AddResult() (r result.Result[bool], ok bool) {
	return s.addResult.Load()
}

func (s *TaskSync) ResetAddResult() {
	s.addResult.Reset()
}

// AddTask writes a new, uncompleted task owned by the current user. Blank
// titles are accepted here; callers are expected to reject them earlier.
func (s *TaskSync) AddTask(ctx context.Context, title, description string) result.Result[bool] {
	s.addResult.Store(result.Loading[bool]())
	res := s.addTask(ctx, title, description)
	s.addResult.Store(res)
	return res
}

func (s *TaskSync) addTask(ctx context.Context, title, description string) result.Result[bool] {
	user, ok := s.auth.CurrentUser()
	if !ok {
		return notAuthenticated[bool]()
	}

	task := model.Task{
		ID:          s.newID(), // id известен до записи
		Title:       title,
		Description: description,
		Completed:   false,
		OwnerID:     user.ID,
	}
	if err := s.store.Create(ctx, task); err != nil {
		s.logger.Error("failed to add task", zap.String("task_id", task.ID), zap.Error(err))
		return taskFailure[bool](err, msgAddTask)
	}
	s.logger.Debug("task added", zap.String("task_id", task.ID), zap.String("owner_id", user.ID))
	return result.Success(true)
}

// UpdateTask writes title, description and completion of an existing task
// of the current user. The write is scoped to that owner in the store, so a
// task of another user is not found whatever OwnerID the caller passes.
func (s *TaskSync) UpdateTask(ctx context.Context, task model.Task) result.Result[bool] {
	user, ok := s.auth.CurrentUser()
	if !ok {
		return notAuthenticated[bool]()
	}
	if task.ID == "" {
		return result.Error[bool](result.CodeNotFound, msgTaskNotFound)
	}
	if task.OwnerID == "" {
		task.OwnerID = user.ID
	}
	if task.OwnerID != user.ID {
		return result.Error[bool](result.CodeNotFound, msgTaskNotFound)
	}

	if err := s.store.Update(ctx, task.ID, task.Fields()); err != nil {
		s.logger.Error("failed to update task", zap.String("task_id", task.ID), zap.Error(err))
		return taskFailure[bool](err, msgUpdateTask)
	}
	return result.Success(true)
}

// ToggleTask sets only the completion flag as seen on task.
func (s *TaskSync) ToggleTask(ctx context.Context, task model.Task, completed bool) result.Result[bool] {
	task.Completed = completed
	return s.UpdateTask(ctx, task)
}

// DeleteTask removes a task of the current user by id. A missing id or a
// task of another user succeeds without touching anything.
func (s *TaskSync) DeleteTask(ctx context.Context, id string) result.Result[bool] {
	user, ok := s.auth.CurrentUser()
	if !ok {
		return notAuthenticated[bool]()
	}
	if err := s.store.Delete(ctx, id, user.ID); err != nil {
		s.logger.Error("failed to delete task", zap.String("task_id", id), zap.Error(err))
		return taskFailure[bool](err, msgDeleteTask)
	}
	return result.Success(true)
}

// GetTask reads one task. Tasks of other users are reported as not found.
func (s *TaskSync) GetTask(ctx context.Context, id string) result.Result[model.Task] {
	user, ok := s.auth.CurrentUser()
	if !ok {
		return notAuthenticated[model.Task]()
	}
	task, err := s.store.Get(ctx, id)
	if err != nil {
		return taskFailure[model.Task](err, msgGetTask)
	}
	if task.OwnerID != user.ID {
		return result.Error[model.Task](result.CodeNotFound, msgTaskNotFound)
	}
	return result.Success(task)
}
