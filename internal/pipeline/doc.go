// Package pipeline orchestrates the steps of a feed run.
//
// A Pipeline executes Steps in order against a shared FeedReport: the
// crawl step fetches metadata and walks the node tree, the inventory step
// derives color and typography summaries, and the snapshot step persists
// the result for later comparison. BatchProcessor runs one pipeline per
// Figma file with bounded concurrency.
package pipeline
