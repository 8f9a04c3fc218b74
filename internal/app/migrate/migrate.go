// Package migrate runs the goose SQL migrations under db/migrations.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Runner owns a database handle for the duration of one migration
// command. goose drives database/sql, so the runner opens its own
// connection through the pgx stdlib driver instead of sharing the
// application pool.
type Runner struct {
	db  *sql.DB
	dir string
	log *slog.Logger
}

// New validates the migrations directory, opens the database handle,
// and configures goose for Postgres. The connection is not dialed
// until the first command; call Ping to verify reachability up front.
func New(dsn, dir string, log *slog.Logger) (*Runner, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}
	if dir == "" {
		return nil, errors.New("empty migrations directory")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("locate migrations dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure goose: %w", err)
	}
	return &Runner{db: db, dir: dir, log: log}, nil
}

// Ping verifies the database is reachable before any command runs.
func (r *Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Up applies all pending migrations.
func (r *Runner) Up(ctx context.Context) error {
	r.log.Info("applying migrations", "dir", r.dir)
	if err := goose.UpContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	r.log.Info("migrations applied")
	return nil
}

// Status prints the applied and pending migration versions.
func (r *Runner) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// Down rolls back to the target version, or by one migration when no
// target is given.
func (r *Runner) Down(ctx context.Context, target int64) error {
	if target > 0 {
		r.log.Info("rolling back migrations", "target", target)
		if err := goose.DownToContext(ctx, r.db, r.dir, target); err != nil {
			return fmt.Errorf("rollback to version %d: %w", target, err)
		}
	} else {
		r.log.Info("rolling back latest migration")
		if err := goose.DownContext(ctx, r.db, r.dir); err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
	}
	r.log.Info("rollback complete")
	return nil
}

// Close releases the database handle.
func (r *Runner) Close() error {
	return r.db.Close()
}
