// Package queue drives submitted files through the analyzer strictly one at
// a time and merges the streamed records into the result store.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/jerome00253/RIB-Factory/internal/domain"
	"github.com/jerome00253/RIB-Factory/internal/metrics"
	"github.com/jerome00253/RIB-Factory/internal/storage"
	"github.com/jerome00253/RIB-Factory/pkg/logger"
)

// Analyzer submits one file and forwards every decoded record to the sink
// before returning. Satisfied by analysis.Client.
type Analyzer interface {
	Analyze(ctx context.Context, file domain.SourceFile, sink func(domain.ExtractionResult)) error
}

// Queue owns the processing order. Files are analyzed in submission order by
// a single loop goroutine, so no two files are ever in flight concurrently
// and every store mutation for one file happens before the next file starts.
type Queue struct {
	analyzer Analyzer
	store    *storage.ResultStore
	logger   *logger.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	backlog []string
	running bool
	wg      sync.WaitGroup
}

func New(analyzer Analyzer, store *storage.ResultStore, log *logger.Logger, m *metrics.Metrics) *Queue {
	return &Queue{
		analyzer: analyzer,
		store:    store,
		logger:   log,
		metrics:  m,
	}
}

// Submit creates one pending row per file, appends the new items to the end
// of the processing order and starts the loop if it is not already running.
// Items submitted while the loop is busy are reached in turn.
func (q *Queue) Submit(ctx context.Context, files []domain.SourceFile) []string {
	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, q.store.Append(file))
	}

	q.mu.Lock()
	q.backlog = append(q.backlog, ids...)
	q.metrics.SetQueueDepth(len(q.backlog))
	start := !q.running
	if start {
		q.running = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	q.logger.Info(ctx, "Scans queued",
		"count", len(ids),
		"loop_started", start,
	)

	if start {
		go q.run()
	}

	return ids
}

// Busy reports whether a processing loop is active. True from the moment a
// loop starts until the backlog is fully drained.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.running
}

// Pending returns the number of items waiting behind the one in flight.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.backlog)
}

// Shutdown waits for the backlog to drain. In-flight work is never
// interrupted; the context only bounds how long we wait for it.
func (q *Queue) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.backlog) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		id := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.metrics.SetQueueDepth(len(q.backlog))
		q.mu.Unlock()

		q.process(id)
	}
}

// process runs one item to completion: success, empty success or error. The
// loop moves on only after the streamed response is fully consumed.
func (q *Queue) process(id string) {
	ctx := logger.WithScanID(context.Background(), id)

	item, err := q.store.Claim(id)
	if err != nil {
		// Removed while still pending; a user delete is not a failure.
		q.logger.Debug(ctx, "Skipping removed scan",
			"error", err,
		)
		return
	}

	q.metrics.StartScan()
	started := time.Now()
	q.logger.Info(ctx, "Analyzing file",
		"file", item.File.Name,
		"size", item.File.Size,
	)

	first := true
	err = q.analyzer.Analyze(ctx, item.File, func(res domain.ExtractionResult) {
		if first {
			first = false
			// First record completes the original row in place; the row
			// keeps its identity and position.
			if cerr := q.store.Complete(id, res); cerr == nil {
				return
			}
			// Row was removed mid-flight; fall through and keep the
			// record as a derived row, matching later-page handling.
		}
		q.store.AppendDerived(item.File, res)
	})

	switch {
	case err != nil && first:
		q.metrics.FinishScan(string(domain.ItemStatusError), time.Since(started))
		q.logger.Warn(ctx, "Analysis failed",
			"file", item.File.Name,
			"error", err,
		)
		if ferr := q.store.Fail(id, err.Error()); ferr != nil && ferr != domain.ErrScanNotFound {
			q.logger.Error(ctx, "Failed to mark scan errored",
				"error", ferr,
			)
		}
	case err != nil:
		// The stream broke after at least one record. Delivered rows
		// stand and the completed row stays done.
		q.metrics.FinishScan(string(domain.ItemStatusDone), time.Since(started))
		q.logger.Warn(ctx, "Stream failed after partial results, keeping delivered rows",
			"file", item.File.Name,
			"error", err,
		)
	case first:
		// Zero records: a valid, empty outcome.
		q.metrics.FinishScan(string(domain.ItemStatusDone), time.Since(started))
		q.logger.Info(ctx, "Analysis returned no records",
			"file", item.File.Name,
		)
		if cerr := q.store.CompleteEmpty(id); cerr != nil && cerr != domain.ErrScanNotFound {
			q.logger.Error(ctx, "Failed to mark scan done",
				"error", cerr,
			)
		}
	default:
		q.metrics.FinishScan(string(domain.ItemStatusDone), time.Since(started))
		q.logger.Info(ctx, "Analysis completed",
			"file", item.File.Name,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}
