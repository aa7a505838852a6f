package repo

import (
	"context"

	"github.com/BuzzLyutic/todo-sync/internal/model"
)

// SnapshotFunc receives the full list of tasks matching a listener's filter
// after every change, or the error that stopped the store from producing it.
type SnapshotFunc func(tasks []model.Task, err error)

// Listener is a live query attached to a TaskStore.
type Listener interface {
	// Remove detaches the listener. No callback starts after Remove returns.
	Remove()
}

// TaskStore определяет контракт удаленного хранилища задач
type TaskStore interface {
	// Listen delivers a snapshot of the owner's tasks now and after every
	// change to any of them.
	Listen(ctx context.Context, ownerID string, fn SnapshotFunc) (Listener, error)
	Get(ctx context.Context, id string) (model.Task, error)
	// Create writes a full document under t.ID.
	Create(ctx context.Context, t model.Task) error
	// Update writes only the given fields of the document id owned by
	// f.OwnerID. The owner never changes: a missing id or a document of
	// another owner is ErrorNotFound.
	Update(ctx context.Context, id string, f model.TaskFields) error
	// Delete removes the document id if ownerID owns it. A missing id or a
	// document of another owner is not an error and is left untouched.
	Delete(ctx context.Context, id, ownerID string) error
}

// AuthProvider определяет контракт удаленного сервиса аутентификации
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (model.User, error)
	SignUp(ctx context.Context, email, password string) (model.User, error)
	SignOut(ctx context.Context) error
	// CurrentUser returns the cached identity without a round trip.
	CurrentUser() (model.User, bool)
}
