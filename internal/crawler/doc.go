// Package crawler expands a Figma file's node tree through the batched
// nodes API and reconstructs it as a model.NodeMap.
//
// # Architecture
//
// The package is designed around the Crawler type, which owns the crawl
// frontier: the set of identifiers ever discovered, the queue of
// identifiers not yet fetched, and the accumulated result map. Each
// iteration drains the queue into fixed-size batches, dispatches up to
// the concurrency limit of them in parallel, and folds the fetched
// documents back into the frontier.
//
// Design decision: We implement our own traversal rather than using a
// third-party crawling library because:
//  1. The graph is discovered incrementally through an API, not hyperlinks
//  2. Visibility pruning must happen before descendants are ever fetched
//  3. The dedup and single-writer invariants are the whole point of the
//     component and need to be explicit
//
// # Components
//
//   - Crawler: owns the frontier and drives dispatch rounds
//   - runBatches: the bounded worker pool executing fetch batches
//   - Normalize: the pure per-document normalizer
//
// # Concurrency
//
// Workers only fetch; they report documents back through per-batch result
// slots. All frontier mutation (seen-set checks, queue appends, result-map
// writes) happens on the goroutine running Crawl, between dispatch rounds.
// Round N+1 is never dispatched before round N has fully settled.
package crawler
