package punchout

import (
	"context"
	"log"
	"time"

	"github.com/punchout/dashboard/internal/app"
)

const DefaultCorrelationDelay = time.Second

// Correlator fetches the records the backend logged for a correlation key
type Correlator struct {
	source   app.NetworkRequestSource
	delay    time.Duration
	attempts int
}

// NewCorrelator waits delay before the first fetch. With attempts > 1 an empty
// answer is retried, doubling the wait each time.
func NewCorrelator(source app.NetworkRequestSource, delay time.Duration, attempts int) *Correlator {
	if attempts < 1 {
		attempts = 1
	}
	return &Correlator{source: source, delay: delay, attempts: attempts}
}

// Correlate never fails: a missing key, a fetch error or a cancelled context all yield an empty list
func (c *Correlator) Correlate(ctx context.Context, key *string) []app.NetworkRequestRecord {
	records := []app.NetworkRequestRecord{}
	if key == nil || *key == "" || c.source == nil {
		return records
	}

	wait := c.delay
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := sleep(ctx, wait); err != nil {
			log.Printf("Correlation for %s interrupted: %v", *key, err)
			return records
		}

		fetched, err := c.source.NetworkRequests(ctx, *key)
		if err != nil {
			log.Printf("Failed to fetch network requests for %s: %v", *key, err)
			return records
		}
		if len(fetched) > 0 {
			return fetched
		}
		wait *= 2
	}
	return records
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
