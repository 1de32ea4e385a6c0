package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/uptrace/bun/driver/pgdriver"
)

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1_create_conversations",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS conversations (
					session_id TEXT PRIMARY KEY,
					payload JSONB NOT NULL,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS conversations_updated_at_idx
					ON conversations (updated_at DESC)`,
			},
			Down: []string{
				`DROP TABLE conversations`,
			},
		},
	},
}

// NewPostgres opens the database via the pgdriver connector and applies
// pending migrations.
func NewPostgres(url string) (*sql.DB, error) {
	db := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging db: %w", err)
	}

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	if n > 0 {
		slog.Info("applied migrations", "count", n)
	}
	return db, nil
}
