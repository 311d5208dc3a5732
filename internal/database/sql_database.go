package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/punchout/dashboard/internal/app"
)

type dialect struct {
	name     string
	numbered bool // $1 placeholders instead of ?
	schema   []string
}

// SQLDatabase stores test runs through database/sql. Queries are written with
// ? placeholders and rebound for drivers that use numbered parameters.
type SQLDatabase struct {
	db      *sql.DB
	dialect dialect
}

func newSQLDatabase(db *sql.DB, d dialect) (*SQLDatabase, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLDatabase{db: db, dialect: d}
	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	log.Printf("Connected to %s test history database", d.name)
	return s, nil
}

func (s *SQLDatabase) InitSchema() error {
	for _, query := range s.dialect.schema {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

func (s *SQLDatabase) rebind(query string) string {
	return rebind(query, s.dialect.numbered)
}

func rebind(query string, numbered bool) string {
	if !numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const selectColumns = `id, customer_id, customer_name, environment, session_key, correlation_key,
	template_source, success, status, request_xml, response_xml, network_requests,
	error_message, error_kind, duration_ms, executed_at`

func (s *SQLDatabase) InsertTestRun(ctx context.Context, r *app.TestExecutionResult) error {
	records, err := encodeRecords(r.NetworkRequests)
	if err != nil {
		return err
	}

	var correlationKey sql.NullString
	if r.CorrelationKey != nil {
		correlationKey = sql.NullString{String: *r.CorrelationKey, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO punchout_tests (id, customer_id, customer_name, environment, session_key, correlation_key,
			template_source, success, status, request_xml, response_xml, network_requests, network_request_count,
			error_message, error_kind, duration_ms, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), r.ID, r.CustomerID, r.CustomerName, r.Environment, r.SessionKey, correlationKey,
		string(r.TemplateSource), r.Success, r.Status, r.RequestXML, r.ResponseXML, records, len(r.NetworkRequests),
		r.Error, string(r.ErrorKind), r.DurationMs, r.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert test run %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLDatabase) GetTestRun(ctx context.Context, id string) (*app.TestExecutionResult, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+selectColumns+` FROM punchout_tests WHERE id = ?`), id)
	r, err := scanTestRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLDatabase) ListTestRuns(ctx context.Context, opts ListOptions) ([]*app.TestExecutionResult, error) {
	query := `SELECT ` + selectColumns + ` FROM punchout_tests WHERE 1=1`
	var args []interface{}
	if opts.CustomerID != "" {
		query += ` AND customer_id = ?`
		args = append(args, opts.CustomerID)
	}
	if opts.Environment != "" {
		query += ` AND environment = ?`
		args = append(args, opts.Environment)
	}
	query += ` ORDER BY executed_at DESC LIMIT ?`
	args = append(args, effectiveLimit(opts.Limit))

	return s.queryTestRuns(ctx, query, args...)
}

func (s *SQLDatabase) UpdateNetworkRequests(ctx context.Context, id string, records []app.NetworkRequestRecord) error {
	encoded, err := encodeRecords(records)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE punchout_tests SET network_requests = ?, network_request_count = ? WHERE id = ?
	`), encoded, len(records), id)
	if err != nil {
		return fmt.Errorf("failed to update test run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLDatabase) ListPendingCorrelation(ctx context.Context, since time.Time, limit int) ([]*app.TestExecutionResult, error) {
	return s.queryTestRuns(ctx, `
		SELECT `+selectColumns+`
		FROM punchout_tests
		WHERE correlation_key IS NOT NULL AND correlation_key <> ''
			AND network_request_count = 0 AND executed_at >= ?
		ORDER BY executed_at DESC
		LIMIT ?
	`, since.UTC(), effectiveLimit(limit))
}

func (s *SQLDatabase) GetOutcomeTrend(ctx context.Context, days int) ([]DataPoint, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT
			DATE(executed_at) AS day,
			COUNT(*) AS total,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) AS succeeded,
			AVG(duration_ms) AS avg_duration
		FROM punchout_tests
		WHERE executed_at >= ?
		GROUP BY DATE(executed_at)
		ORDER BY day ASC
	`), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []DataPoint
	for rows.Next() {
		var day time.Time
		var total, succeeded int
		var avgDuration sql.NullFloat64

		if err := rows.Scan(&day, &total, &succeeded, &avgDuration); err != nil {
			return nil, err
		}
		points = append(points, newDataPoint(day, total, succeeded, avgDuration.Float64))
	}
	return points, rows.Err()
}

func newDataPoint(day time.Time, total, succeeded int, avgDuration float64) DataPoint {
	rate := 0.0
	if total > 0 {
		rate = float64(succeeded) / float64(total) * 100
	}
	return DataPoint{
		Date:          day,
		Total:         total,
		Succeeded:     succeeded,
		SuccessRate:   rate,
		AvgDurationMs: avgDuration,
	}
}

func (s *SQLDatabase) queryTestRuns(ctx context.Context, query string, args ...interface{}) ([]*app.TestExecutionResult, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*app.TestExecutionResult{}
	for rows.Next() {
		r, err := scanTestRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTestRun(row scanner) (*app.TestExecutionResult, error) {
	var r app.TestExecutionResult
	var correlationKey, errorMessage, errorKind sql.NullString
	var templateSource, records string

	err := row.Scan(&r.ID, &r.CustomerID, &r.CustomerName, &r.Environment, &r.SessionKey, &correlationKey,
		&templateSource, &r.Success, &r.Status, &r.RequestXML, &r.ResponseXML, &records,
		&errorMessage, &errorKind, &r.DurationMs, &r.Timestamp)
	if err != nil {
		return nil, err
	}

	if correlationKey.Valid {
		key := correlationKey.String
		r.CorrelationKey = &key
	}
	r.TemplateSource = app.TemplateSource(templateSource)
	r.Error = errorMessage.String
	r.ErrorKind = app.ErrorKind(errorKind.String)
	r.Timestamp = r.Timestamp.UTC()

	r.NetworkRequests, err = decodeRecords(records)
	if err != nil {
		return nil, fmt.Errorf("test run %s: %w", r.ID, err)
	}
	return &r, nil
}

func encodeRecords(records []app.NetworkRequestRecord) (string, error) {
	if records == nil {
		records = []app.NetworkRequestRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode network requests: %w", err)
	}
	return string(data), nil
}

func decodeRecords(data string) ([]app.NetworkRequestRecord, error) {
	records := []app.NetworkRequestRecord{}
	if data == "" {
		return records, nil
	}
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("failed to decode network requests: %w", err)
	}
	return records, nil
}
