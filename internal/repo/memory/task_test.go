package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	"github.com/BuzzLyutic/todo-sync/internal/repo"
)

type recorder struct {
	mu        sync.Mutex
	snapshots [][]model.Task
	errs      []error
}

func (r *recorder) fn(tasks []model.Task, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.snapshots = append(r.snapshots, tasks)
}

func (r *recorder) last() []model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestTaskStore_ListenDeliversInitialSnapshot(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, model.Task{ID: "b", Title: "B", OwnerID: "u1"}))
	require.NoError(t, store.Create(ctx, model.Task{ID: "a", Title: "A", OwnerID: "u1"}))
	require.NoError(t, store.Create(ctx, model.Task{ID: "c", Title: "C", OwnerID: "u2"}))

	rec := &recorder{}
	l, err := store.Listen(ctx, "u1", rec.fn)
	require.NoError(t, err)
	defer l.Remove()

	require.Equal(t, 1, rec.count())
	snap := rec.last()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].ID, "snapshot is ordered by id")
	assert.Equal(t, "b", snap[1].ID)
}

func TestTaskStore_ListenFiltersByOwner(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	rec := &recorder{}
	l, err := store.Listen(ctx, "u1", rec.fn)
	require.NoError(t, err)
	defer l.Remove()

	require.NoError(t, store.Create(ctx, model.Task{ID: "x", OwnerID: "u2"}))
	assert.Equal(t, 1, rec.count(), "other owner's write should not notify")

	require.NoError(t, store.Create(ctx, model.Task{ID: "y", Title: "mine", OwnerID: "u1"}))
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, "mine", rec.last()[0].Title)
}

func TestTaskStore_UpdateIsPartial(t *testing.T) {
	store := NewTaskStore()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, model.Task{ID: "t1", Title: "old", OwnerID: "u1", CreatedAt: created}))

	err := store.Update(ctx, "t1", model.TaskFields{Title: "new", Description: "d", Completed: true, OwnerID: "u1"})
	require.NoError(t, err)

	doc, ok := store.Document("t1")
	require.True(t, ok)
	assert.Equal(t, "t1", doc.ID)
	assert.Equal(t, "new", doc.Title)
	assert.True(t, doc.Completed)
	assert.Equal(t, created, doc.CreatedAt, "fields outside the update are untouched")
}

func TestTaskStore_UpdateMissing(t *testing.T) {
	store := NewTaskStore()
	err := store.Update(context.Background(), "nope", model.TaskFields{})
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}

func TestTaskStore_UpdateOfAnotherOwner(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, model.Task{ID: "t1", Title: "secret", OwnerID: "victim"}))

	rv, ri := &recorder{}, &recorder{}
	lv, _ := store.Listen(ctx, "victim", rv.fn)
	li, _ := store.Listen(ctx, "intruder", ri.fn)
	defer lv.Remove()
	defer li.Remove()

	err := store.Update(ctx, "t1", model.TaskFields{Title: "mine now", OwnerID: "intruder"})
	assert.ErrorIs(t, err, repo.ErrorNotFound)

	doc, _ := store.Document("t1")
	assert.Equal(t, "victim", doc.OwnerID)
	assert.Equal(t, "secret", doc.Title)
	assert.Equal(t, 1, rv.count(), "no snapshot after a rejected update")
	assert.Equal(t, 1, ri.count())
}

func TestTaskStore_DeleteIsIdempotent(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, model.Task{ID: "t1", OwnerID: "u1"}))

	require.NoError(t, store.Delete(ctx, "t1", "u1"))
	require.NoError(t, store.Delete(ctx, "t1", "u1"), "deleting a missing id succeeds")

	_, err := store.Get(ctx, "t1")
	assert.ErrorIs(t, err, repo.ErrorNotFound)
}

func TestTaskStore_DeleteOfAnotherOwner(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, model.Task{ID: "t1", OwnerID: "victim"}))

	require.NoError(t, store.Delete(ctx, "t1", "intruder"), "foreign ids look like missing ones")

	_, ok := store.Document("t1")
	assert.True(t, ok, "the document of another owner survives")
}

func TestTaskStore_RemoveStopsCallbacks(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	rec := &recorder{}
	l, err := store.Listen(ctx, "u1", rec.fn)
	require.NoError(t, err)
	assert.Equal(t, 1, store.ListenerCount())

	l.Remove()
	l.Remove()
	assert.Equal(t, 0, store.ListenerCount())

	require.NoError(t, store.Create(ctx, model.Task{ID: "t1", OwnerID: "u1"}))
	store.EmitError("u1", errors.New("late"))
	assert.Equal(t, 1, rec.count())
	assert.Empty(t, rec.errs)
}

func TestTaskStore_ErrorInjection(t *testing.T) {
	boom := errors.New("unavailable")
	ctx := context.Background()

	store := NewTaskStore()
	store.ListenErr = boom
	_, err := store.Listen(ctx, "u1", func([]model.Task, error) {})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.ListenerCount())

	store = NewTaskStore()
	store.CreateErr = boom
	store.UpdateErr = boom
	store.DeleteErr = boom
	store.GetErr = boom
	assert.ErrorIs(t, store.Create(ctx, model.Task{ID: "t1"}), boom)
	assert.ErrorIs(t, store.Update(ctx, "t1", model.TaskFields{}), boom)
	assert.ErrorIs(t, store.Delete(ctx, "t1", "u1"), boom)
	_, err = store.Get(ctx, "t1")
	assert.ErrorIs(t, err, boom)
}

func TestTaskStore_ConcurrentWritesKeepOrder(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	rec := &recorder{}
	l, err := store.Listen(ctx, "u1", rec.fn)
	require.NoError(t, err)
	defer l.Remove()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Create(ctx, model.Task{ID: string(rune('a' + i)), OwnerID: "u1"})
		}(i)
	}
	wg.Wait()

	// Snapshot sizes only grow when writes are delivered in order.
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := 1; i < len(rec.snapshots); i++ {
		assert.GreaterOrEqual(t, len(rec.snapshots[i]), len(rec.snapshots[i-1]))
	}
	assert.Len(t, rec.snapshots[len(rec.snapshots)-1], 20)
}
