package worker

import (
	"context"
	"log"
	"time"

	"github.com/punchout/dashboard/internal/app"
	"github.com/punchout/dashboard/internal/database"
)

// Worker re-queries network requests for stored runs whose correlation came
// back empty, since the backend may log them after the test finished.
type Worker struct {
	source   app.NetworkRequestSource
	db       database.Database
	interval time.Duration
	window   time.Duration
	batch    int
}

type Options struct {
	Interval time.Duration
	Window   time.Duration
	Batch    int
}

func NewWorker(source app.NetworkRequestSource, db database.Database, opts Options) *Worker {
	w := &Worker{
		source:   source,
		db:       db,
		interval: 1 * time.Minute,
		window:   15 * time.Minute,
		batch:    20,
	}
	if opts.Interval > 0 {
		w.interval = opts.Interval
	}
	if opts.Window > 0 {
		w.window = opts.Window
	}
	if opts.Batch > 0 {
		w.batch = opts.Batch
	}
	return w
}

func (w *Worker) Start(ctx context.Context) {
	log.Println("Starting correlation refresh worker...")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping worker...")
			return
		case <-ticker.C:
			w.RefreshPending(ctx)
		}
	}
}

// RefreshPending returns the number of runs that gained network requests
func (w *Worker) RefreshPending(ctx context.Context) int {
	runs, err := w.db.ListPendingCorrelation(ctx, time.Now().Add(-w.window), w.batch)
	if err != nil {
		log.Printf("Worker: failed to list pending runs: %v", err)
		return 0
	}

	updated := 0
	for _, run := range runs {
		if ctx.Err() != nil {
			break
		}

		records, err := w.source.NetworkRequests(ctx, *run.CorrelationKey)
		if err != nil {
			log.Printf("Worker: failed to fetch network requests for %s: %v", *run.CorrelationKey, err)
			continue
		}
		if len(records) == 0 {
			continue
		}

		if err := w.db.UpdateNetworkRequests(ctx, run.ID, records); err != nil {
			log.Printf("Worker: failed to update run %s: %v", run.ID, err)
			continue
		}
		log.Printf("Worker: correlated %d network requests for run %s", len(records), run.ID)
		updated++
	}
	return updated
}
