package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name:     "postgres",
	numbered: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS punchout_tests (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			customer_name TEXT,
			environment TEXT NOT NULL,
			session_key TEXT NOT NULL,
			correlation_key TEXT,
			template_source TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			status INTEGER NOT NULL,
			request_xml TEXT NOT NULL,
			response_xml TEXT NOT NULL,
			network_requests TEXT NOT NULL DEFAULT '[]',
			network_request_count INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			error_kind TEXT,
			duration_ms BIGINT NOT NULL,
			executed_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_punchout_tests_customer ON punchout_tests(customer_id, executed_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_punchout_tests_executed ON punchout_tests(executed_at DESC);`,
	},
}

func NewPostgresDatabase(dsn string) (*SQLDatabase, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLDatabase(db, postgresDialect)
}
