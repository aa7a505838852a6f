// Package postgres implements the remote collaborators on PostgreSQL. Live
// queries are driven by LISTEN/NOTIFY: a trigger announces the owner id of
// every changed task on NotifyChannel.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the channel the tasks trigger publishes on.
const NotifyChannel = "task_changes"

//go:embed migrations/*.up.sql
var migrations embed.FS

// EnsureSchema applies every migration in order. Migrations are idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
