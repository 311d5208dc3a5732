package database

import (
	"context"
	"errors"
	"time"

	"github.com/punchout/dashboard/internal/app"
)

var ErrNotFound = errors.New("test run not found")

// DataPoint aggregates one day of test runs
type DataPoint struct {
	Date          time.Time `json:"date"`
	Total         int       `json:"total"`
	Succeeded     int       `json:"succeeded"`
	SuccessRate   float64   `json:"successRate"` // percent
	AvgDurationMs float64   `json:"avgDurationMs"`
}

type ListOptions struct {
	CustomerID  string
	Environment string
	Limit       int
}

const DefaultListLimit = 50

type Database interface {
	InsertTestRun(ctx context.Context, result *app.TestExecutionResult) error
	GetTestRun(ctx context.Context, id string) (*app.TestExecutionResult, error)
	ListTestRuns(ctx context.Context, opts ListOptions) ([]*app.TestExecutionResult, error)

	// UpdateNetworkRequests replaces the correlated records of a stored run
	UpdateNetworkRequests(ctx context.Context, id string, records []app.NetworkRequestRecord) error
	// ListPendingCorrelation returns runs since the given time that have a
	// correlation key but no network requests yet, newest first
	ListPendingCorrelation(ctx context.Context, since time.Time, limit int) ([]*app.TestExecutionResult, error)

	GetOutcomeTrend(ctx context.Context, days int) ([]DataPoint, error)
	Close() error
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
