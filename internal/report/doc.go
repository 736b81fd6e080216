// Package report renders feed results in multiple output formats.
//
// The Writer interface abstracts over the formats: SimpleWriter for
// terminal text, MarkdownWriter for documentation with tables and mermaid
// charts, JSONWriter for tool integration, and TreeWriter for a directory
// of per-canvas Markdown files. MultiWriter fans a report out to several
// destinations at once.
package report
