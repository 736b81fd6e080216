package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/srares76/figmaFeeder/internal/model"
)

// BatchProcessor handles concurrent feeding of multiple Figma files.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-file execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each file key.
	// We use a factory to ensure each feed gets a fresh pipeline instance.
	pipelineFactory func(fileKey string) *Pipeline

	// concurrency is the maximum number of concurrent feeds.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed feed reports.
	// Access is synchronized via mutex.
	results []*model.FeedReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithBatchConcurrency sets the maximum number of concurrent feeds.
// Default is 2: feeds of separate files already crawl concurrently
// internally, and all of them share one API rate budget.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each file key to create a
// fresh pipeline instance. This ensures that pipeline state doesn't leak
// between feeds and allows per-file customization (e.g., per-file roots
// from the config file).
func NewBatchProcessor(pipelineFactory func(fileKey string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     2,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch feeds multiple Figma files concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each file gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected, even for files that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, fileKeys []string) ([]*model.FeedReport, error) {
	bp.logger.Info("starting batch processing",
		"total_files", len(fileKeys),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.FeedReport, len(fileKeys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, fileKey := range fileKeys {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("feeding file",
				"file_key", fileKey,
				"index", i+1,
				"total", len(fileKeys),
			)

			report := model.NewFeedReport(fileKey)

			pipeline := bp.pipelineFactory(fileKey)
			err := pipeline.Execute(ctx, report)

			// Store result regardless of error
			// The report contains error information if the feed failed
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("feed failed",
					"file_key", fileKey,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue other feeds
				// The error is recorded in the report
				return nil
			}

			bp.logger.Info("feed completed",
				"file_key", fileKey,
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_files", len(fileKeys),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback feeds multiple files and calls a callback
// for each completed feed. This is useful for streaming results.
//
// The callback receives the report and the index of the file key in the
// original slice. The callback is called from the goroutine that completed
// the feed, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	fileKeys []string,
	callback func(report *model.FeedReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_files", len(fileKeys),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, fileKey := range fileKeys {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewFeedReport(fileKey)
			pipeline := bp.pipelineFactory(fileKey)
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report

			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
