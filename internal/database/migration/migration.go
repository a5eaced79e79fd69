package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_readers",
		SQL: `CREATE TABLE IF NOT EXISTS readers (
  email       TEXT        PRIMARY KEY,
  signup_date TIMESTAMPTZ NOT NULL DEFAULT now(),
  is_premium  BOOLEAN     NOT NULL DEFAULT FALSE
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           UUID        PRIMARY KEY,
  title        TEXT        NOT NULL,
  upload_date  TIMESTAMPTZ NOT NULL DEFAULT now(),
  content      TEXT        NOT NULL,
  storage_path TEXT        NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_index_documents_upload_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_upload_date ON documents (upload_date);`,
	},
	{
		Name: "create_table_subscriptions",
		SQL: `CREATE TABLE IF NOT EXISTS subscriptions (
  id              UUID        PRIMARY KEY,
  reader_email    TEXT        NOT NULL REFERENCES readers (email),
  document_id     UUID        NOT NULL REFERENCES documents (id),
  cursor_position INTEGER     NOT NULL DEFAULT 1 CHECK (cursor_position >= 1),
  page_length     INTEGER     NOT NULL CHECK (page_length > 0),
  access_date     TIMESTAMPTZ NOT NULL DEFAULT now(),
  is_active       BOOLEAN     NOT NULL DEFAULT TRUE,
  UNIQUE (reader_email, document_id)
);`,
	},
	{
		Name: "create_index_subscriptions_active",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_subscriptions_active ON subscriptions (reader_email) WHERE is_active;`,
	},
	{
		Name: "create_table_deliveries",
		SQL: `CREATE TABLE IF NOT EXISTS deliveries (
  id              UUID        PRIMARY KEY,
  subscription_id UUID        NOT NULL REFERENCES subscriptions (id),
  status          TEXT        NOT NULL CHECK (status IN ('sent', 'failed')),
  attempts        INTEGER     NOT NULL CHECK (attempts >= 0),
  page_start      INTEGER     NOT NULL,
  page_end        INTEGER     NOT NULL,
  error           TEXT        NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_deliveries_subscription",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_deliveries_subscription ON deliveries (subscription_id, created_at);`,
	},
}

// EnsureMigrated checks if the 'subscriptions' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass('public.subscriptions') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("msg", "schema already exists, skipping migration"),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)),
				zap.Duration("step_duration", time.Since(stepStart)),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration", time.Since(stepStart)),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
