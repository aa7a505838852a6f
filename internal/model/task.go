package model

import "time"

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskFields is the set of fields a partial update is allowed to write.
// It never carries the identifier or store-managed columns.
type TaskFields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	OwnerID     string `json:"owner_id"`
}

// Fields returns the mutable part of t.
func (t Task) Fields() TaskFields {
	return TaskFields{
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		OwnerID:     t.OwnerID,
	}
}

// Apply returns a copy of t with the mutable fields replaced by f.
func (t Task) Apply(f TaskFields) Task {
	t.Title = f.Title
	t.Description = f.Description
	t.Completed = f.Completed
	t.OwnerID = f.OwnerID
	return t
}
