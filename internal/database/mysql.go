package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		"CREATE TABLE IF NOT EXISTS punchout_tests (" +
			"id VARCHAR(64) PRIMARY KEY," +
			"customer_id VARCHAR(128) NOT NULL," +
			"customer_name VARCHAR(255)," +
			"environment VARCHAR(64) NOT NULL," +
			"session_key VARCHAR(255) NOT NULL," +
			"correlation_key VARCHAR(255)," +
			"template_source VARCHAR(32) NOT NULL," +
			"success BOOLEAN NOT NULL," +
			"status INT NOT NULL," +
			"request_xml MEDIUMTEXT NOT NULL," +
			"response_xml MEDIUMTEXT NOT NULL," +
			"network_requests MEDIUMTEXT NOT NULL," +
			"network_request_count INT NOT NULL DEFAULT 0," +
			"error_message TEXT," +
			"error_kind VARCHAR(32)," +
			"duration_ms BIGINT NOT NULL," +
			"executed_at DATETIME(3) NOT NULL," +
			"INDEX idx_punchout_tests_customer (customer_id, executed_at)," +
			"INDEX idx_punchout_tests_executed (executed_at)" +
			")",
	},
}

// NewMySQLDatabase opens a MySQL store. Time parsing and found-rows reporting
// are forced on regardless of the DSN.
func NewMySQLDatabase(dsn string) (*SQLDatabase, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLDatabase(db, mysqlDialect)
}
