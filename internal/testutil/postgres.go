// Package testutil holds helpers shared by the database-backed tests.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BuzzLyutic/todo-sync/internal/model"
	pgstore "github.com/BuzzLyutic/todo-sync/internal/repo/postgres"
)

// testcontainers паникует без Docker, поэтому проверяем заранее
func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// SetupTestDB поднимает контейнер PostgreSQL и применяет схему.
// Без Docker тест пропускается.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if !dockerAvailable() {
		t.Skip("Docker not available, skipping PostgreSQL integration tests")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
	if err := pgstore.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return pool
}

// TruncateTables очищает все таблицы
func TruncateTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "TRUNCATE tasks, users"); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// SeedTasks создает count задач владельца ownerID с id вида "<ownerID>-NN"
func SeedTasks(t *testing.T, pool *pgxpool.Pool, ownerID string, count int) []model.Task {
	t.Helper()
	ctx := context.Background()

	tasks := make([]model.Task, 0, count)
	for i := 0; i < count; i++ {
		task := model.Task{
			ID:      fmt.Sprintf("%s-%02d", ownerID, i+1),
			Title:   fmt.Sprintf("Task %d", i+1),
			OwnerID: ownerID,
		}
		err := pool.QueryRow(ctx, `
			INSERT INTO tasks (id, title, description, completed, owner_id)
			VALUES ($1, $2, '', false, $3)
			RETURNING created_at
		`, task.ID, task.Title, task.OwnerID).Scan(&task.CreatedAt)
		if err != nil {
			t.Fatalf("Failed to seed task: %v", err)
		}
		tasks = append(tasks, task)
	}

	return tasks
}

// WaitForCondition ждет выполнения условия с таймаутом
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return condition()
}
