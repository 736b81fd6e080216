// Package main provides the entry point for the figmafeeder CLI.
//
// figmafeeder crawls the node tree of a Figma file through the REST API
// and renders it as Markdown, JSON, or plain text, with snapshot storage
// for change tracking between runs.
//
// Usage:
//
//	figmafeeder feed <file-key>
//	figmafeeder compare <file-key>
//
// See --help for all available options.
package main

// main is the entry point for figmafeeder.
func main() {
	Execute()
}
