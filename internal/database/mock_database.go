package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/punchout/dashboard/internal/app"
)

// MockDatabase keeps test runs in memory
type MockDatabase struct {
	mu   sync.RWMutex
	runs map[string]*app.TestExecutionResult
}

func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		runs: make(map[string]*app.TestExecutionResult),
	}
}

func (db *MockDatabase) InsertTestRun(ctx context.Context, result *app.TestExecutionResult) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.runs[result.ID]; exists {
		return fmt.Errorf("test run %s already exists", result.ID)
	}
	db.runs[result.ID] = clone(result)
	return nil
}

func (db *MockDatabase) GetTestRun(ctx context.Context, id string) (*app.TestExecutionResult, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	r, ok := db.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(r), nil
}

func (db *MockDatabase) ListTestRuns(ctx context.Context, opts ListOptions) ([]*app.TestExecutionResult, error) {
	return db.filter(effectiveLimit(opts.Limit), func(r *app.TestExecutionResult) bool {
		if opts.CustomerID != "" && r.CustomerID != opts.CustomerID {
			return false
		}
		return opts.Environment == "" || r.Environment == opts.Environment
	}), nil
}

func (db *MockDatabase) UpdateNetworkRequests(ctx context.Context, id string, records []app.NetworkRequestRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.NetworkRequests = append([]app.NetworkRequestRecord{}, records...)
	return nil
}

func (db *MockDatabase) ListPendingCorrelation(ctx context.Context, since time.Time, limit int) ([]*app.TestExecutionResult, error) {
	return db.filter(effectiveLimit(limit), func(r *app.TestExecutionResult) bool {
		return r.HasCorrelationKey() && len(r.NetworkRequests) == 0 && !r.Timestamp.Before(since)
	}), nil
}

func (db *MockDatabase) GetOutcomeTrend(ctx context.Context, days int) ([]DataPoint, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	since := time.Now().UTC().AddDate(0, 0, -days)
	type bucket struct {
		total, succeeded int
		duration         int64
	}
	buckets := make(map[time.Time]*bucket)
	for _, r := range db.runs {
		if r.Timestamp.Before(since) {
			continue
		}
		t := r.Timestamp.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
		}
		b.total++
		if r.Success {
			b.succeeded++
		}
		b.duration += r.DurationMs
	}

	points := make([]DataPoint, 0, len(buckets))
	for day, b := range buckets {
		points = append(points, newDataPoint(day, b.total, b.succeeded, float64(b.duration)/float64(b.total)))
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

func (db *MockDatabase) Close() error {
	return nil
}

func (db *MockDatabase) filter(limit int, keep func(*app.TestExecutionResult) bool) []*app.TestExecutionResult {
	db.mu.RLock()
	defer db.mu.RUnlock()

	runs := []*app.TestExecutionResult{}
	for _, r := range db.runs {
		if keep(r) {
			runs = append(runs, clone(r))
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

func clone(r *app.TestExecutionResult) *app.TestExecutionResult {
	c := *r
	c.NetworkRequests = append([]app.NetworkRequestRecord{}, r.NetworkRequests...)
	if r.CorrelationKey != nil {
		key := *r.CorrelationKey
		c.CorrelationKey = &key
	}
	return &c
}
