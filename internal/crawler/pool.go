package crawler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/srares76/figmaFeeder/internal/model"
)

// batchResult is the outcome of fetching one batch: either the documents
// keyed by identifier, or the failure. Every dispatched batch produces
// exactly one result.
//
// Design decision: Workers record outcomes instead of propagating errors
// through the group because one failed batch must not stop batches that
// are already running, and the crawler decides what a failure means after
// inspecting the whole round.
type batchResult struct {
	// ids is the batch that was dispatched, in dispatch order.
	ids []model.NodeID

	// docs maps each resolved identifier to its document. Identifiers
	// the API could not resolve are simply absent.
	docs map[model.NodeID]model.RawNode

	// err is the batch's failure, nil on success.
	err error
}

// fetchFunc is one unit of pool work: fetch the documents for a batch.
type fetchFunc func(ctx context.Context, ids []model.NodeID) (map[model.NodeID]model.RawNode, error)

// runBatches executes fetch against every batch, running at most limit
// batches concurrently. Dispatch follows input order on a first-available
// basis; completion order is not guaranteed. It returns once every batch
// has settled, with one result per batch in input order.
func runBatches(ctx context.Context, batches [][]model.NodeID, limit int, fetch fetchFunc) []batchResult {
	if limit < 1 {
		limit = 1
	}
	if limit > len(batches) {
		limit = len(batches)
	}

	results := make([]batchResult, len(batches))

	// A plain errgroup (no WithContext) so one failure never cancels
	// the siblings; failures live in the result slots.
	var g errgroup.Group
	g.SetLimit(limit)

	for i, batch := range batches {
		g.Go(func() error {
			docs, err := fetch(ctx, batch)
			results[i] = batchResult{ids: batch, docs: docs, err: err}
			return nil
		})
	}

	// Workers return nil, so Wait only synchronizes.
	_ = g.Wait() //nolint:errcheck // Outcomes are in results

	return results
}

// firstError returns the first failure in dispatch order, or nil when
// every batch succeeded.
func firstError(results []batchResult) error {
	for _, r := range results {
		if r.err != nil {
			return r.err
		}
	}
	return nil
}
