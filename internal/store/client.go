// Package store is the Project Store: Postgres-backed persistence and the
// CAS/locking primitives the migrator and HTTP API build on. Grounded on the
// connection-pooling and embedded-migration shape of certenIO's
// pkg/database, adapted to this repository's schema and config package.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"launchctl/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Client wraps a pooled *sql.DB and exposes the migration and query helpers
// every repository in this package builds on.
type Client struct {
	db     *sql.DB
	logger *logrus.Entry
}

// NewClient opens a connection pool against cfg.Database and verifies it
// with a ping before returning.
func NewClient(cfg *config.Config, logger *logrus.Entry) (*Client, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("store: database DSN is empty")
	}
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{db: db, logger: logger.WithField("component", "store")}, nil
}

// DB returns the underlying *sql.DB for callers that need direct access
// (cmd/apiserver and cmd/keypairctl build their keypairpool.Pool on it).
func (c *Client) DB() *sql.DB { return c.db }

// Close closes the connection pool.
func (c *Client) Close() error { return c.db.Close() }

type migration struct {
	version string
	sql     string
}

// MigrateUp applies every embedded migration not already recorded in
// schema_migrations, in filename order.
func (c *Client) MigrateUp(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("store: load migrations: %w", err)
	}
	applied, err := c.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("store: applied migrations: %w", err)
	}
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		c.logger.Infof("applying migration %s", m.version)
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin migration tx: %w", err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: apply migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %s: %w", m.version, err)
		}
	}
	return nil
}

func loadMigrations() ([]migration, error) {
	var out []migration
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		content, err := migrationsFS.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, migration{
			version: strings.TrimSuffix(d.Name(), ".sql"),
			sql:     string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func (c *Client) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)
	rows, err := c.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return applied, nil
		}
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
