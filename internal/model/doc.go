// Package model defines the core data structures used throughout figmaFeeder.
//
// This package contains the following main types:
//   - RawNode: One node document exactly as the Figma API returned it
//   - NormalizedNode: The derived, immutable per-node record stored by the crawler
//   - NodeMap: The result of a completed crawl, keyed by node ID
//   - Inventory: Color and typography usage aggregated from a NodeMap
//   - FeedReport: The full outcome of feeding one file, handed to writers
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, report, database, pipeline) need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
