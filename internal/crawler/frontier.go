package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/srares76/figmaFeeder/internal/model"
)

// ErrNoRoot is returned when Crawl is called with an empty root identifier.
var ErrNoRoot = errors.New("crawler: root node id is required")

// Default traversal limits.
const (
	// DefaultBatchSize is the number of identifiers per API batch.
	// The nodes endpoint comfortably handles 50 ids per request while
	// keeping individual responses at a manageable size.
	DefaultBatchSize = 50

	// DefaultConcurrency is the number of batches fetched in parallel
	// per dispatch round. Four keeps a crawl fast without tripping the
	// API's rate limiting on typical token budgets.
	DefaultConcurrency = 4
)

// Fetcher fetches the documents for a batch of node identifiers at a given
// traversal depth. figma.Client satisfies this; tests substitute stubs.
type Fetcher interface {
	FetchNodes(ctx context.Context, fileKey string, ids []model.NodeID, depth int) (map[model.NodeID]model.RawNode, error)
}

// Crawler expands a file's node tree breadth-first through batched fetches.
//
// One Crawl call runs as a single logical flow: the calling goroutine owns
// the frontier (seen set, pending queue, result map) and fans out into at
// most concurrency parallel fetches per dispatch round. Workers never touch
// frontier state; they only return documents. A Crawler may be reused for
// sequential crawls; concurrent Crawl calls on one Crawler are not
// supported (use one Crawler per crawl instead).
type Crawler struct {
	// fetcher performs the batched node fetches.
	fetcher Fetcher

	// batchSize is the maximum identifiers per fetch.
	batchSize int

	// concurrency is the maximum batches in flight per round.
	concurrency int

	// logger records round-level progress.
	logger *slog.Logger

	// stats holds counters for the most recent crawl.
	stats CrawlStats

	// mutex protects stats for Stats() readers.
	mutex sync.Mutex
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithBatchSize sets the maximum identifiers per fetch batch.
// Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(c *Crawler) {
		if n >= 1 {
			c.batchSize = n
		}
	}
}

// WithConcurrency sets the maximum batches fetched in parallel.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n >= 1 {
			c.concurrency = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler using the given fetcher.
func New(fetcher Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:     fetcher,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// CrawlStats contains counters from the most recent crawl.
type CrawlStats struct {
	// NodesStored is the number of visible nodes normalized and kept.
	NodesStored int

	// BatchesDispatched is the number of fetch batches issued.
	BatchesDispatched int

	// IdentifiersSeen is the number of unique identifiers discovered,
	// whether or not their documents were ultimately kept.
	IdentifiersSeen int
}

// Stats returns the counters of the most recent crawl.
func (c *Crawler) Stats() CrawlStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// Crawl expands the tree rooted at rootID and returns every visible node
// reachable from it. Invisible nodes are neither stored nor expanded, so
// whole invisible subtrees are pruned before any descendant is fetched.
//
// On failure the partially built map is discarded and only the error is
// returned: a partial map must never be mistaken for a successful crawl.
// The error is the fetch failure unmodified (typically *figma.RemoteError).
func (c *Crawler) Crawl(ctx context.Context, fileKey string, rootID model.NodeID) (model.NodeMap, error) {
	if rootID == "" {
		return nil, ErrNoRoot
	}

	// Frontier state, created fresh per crawl. seen is the superset of
	// result keys: it also holds identifiers in flight and identifiers
	// whose documents turned out invisible.
	seen := map[model.NodeID]bool{rootID: true}
	pending := []model.NodeID{rootID}
	result := make(model.NodeMap)
	dispatched := 0

	defer func() {
		c.mutex.Lock()
		c.stats = CrawlStats{
			NodesStored:       len(result),
			BatchesDispatched: dispatched,
			IdentifiersSeen:   len(seen),
		}
		c.mutex.Unlock()
	}()

	for len(pending) > 0 {
		// Cancellation is checked between rounds; in-flight fetches
		// observe ctx themselves.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		round, rest := c.formRound(pending)
		pending = rest
		dispatched += len(round)

		c.logger.Debug("dispatching round",
			"batches", len(round),
			"queued", len(pending),
			"stored", len(result),
		)

		results := runBatches(ctx, round, c.concurrency, func(ctx context.Context, ids []model.NodeID) (map[model.NodeID]model.RawNode, error) {
			// Depth is always one level: deeper nodes are
			// discovered through children so invisible subtrees
			// are pruned before their descendants are fetched.
			return c.fetcher.FetchNodes(ctx, fileKey, ids, 1)
		})

		// Fold successful batches into the frontier before deciding
		// the round's fate; their nodes stay stored even when a
		// sibling batch failed.
		for _, r := range results {
			if r.err != nil {
				continue
			}
			pending = c.applyBatch(r, result, seen, pending)
		}

		if err := firstError(results); err != nil {
			c.logger.Error("crawl aborted",
				"fileKey", fileKey,
				"stored", len(result),
				"error", err,
			)
			return nil, err
		}
	}

	return result, nil
}

// formRound pops up to concurrency batches of up to batchSize identifiers
// from the queue, returning the batches and the remaining queue.
func (c *Crawler) formRound(pending []model.NodeID) ([][]model.NodeID, []model.NodeID) {
	var round [][]model.NodeID
	for len(pending) > 0 && len(round) < c.concurrency {
		n := min(c.batchSize, len(pending))
		batch := make([]model.NodeID, n)
		copy(batch, pending[:n])
		round = append(round, batch)
		pending = pending[n:]
	}
	return round, pending
}

// applyBatch folds one successful batch into the frontier: normalizes and
// stores visible documents, and enqueues children not seen before. Runs on
// the crawl goroutine only.
func (c *Crawler) applyBatch(r batchResult, result model.NodeMap, seen map[model.NodeID]bool, pending []model.NodeID) []model.NodeID {
	for _, id := range r.ids {
		doc, ok := r.docs[id]
		if !ok {
			// The API resolved the batch but had no document for
			// this identifier. Treated as absent, not an error.
			continue
		}
		if !doc.Visible() {
			// Pruned: not stored, children never enqueued.
			continue
		}

		node := Normalize(doc)
		if node.ID == "" {
			node.ID = id
		}
		result[id] = node

		// Check-then-add is atomic with respect to enqueue because
		// only this goroutine mutates the frontier.
		for _, childID := range node.ChildIDs {
			if seen[childID] {
				continue
			}
			seen[childID] = true
			pending = append(pending, childID)
		}
	}
	return pending
}

// String describes the crawler's configuration, mostly for debug logs.
func (c *Crawler) String() string {
	return fmt.Sprintf("crawler(batchSize=%d, concurrency=%d)", c.batchSize, c.concurrency)
}
