// Package database provides SQLite-based persistence for feed snapshots.
//
// Each completed feed is stored as a full JSON report plus one digest row
// per crawled node. The digest rows make comparing two snapshots of the
// same Figma file a pair of indexed queries instead of a full report
// decode, which keeps the compare command fast even for large files.
//
// The package uses modernc.org/sqlite, a pure-Go SQLite implementation,
// so no CGO is required.
package database
