package report

import (
	"io"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/srares76/figmaFeeder/internal/model"
)

// Writer defines the interface for report output.
// Implementations write feed results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.FeedReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.FeedReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// titleCaser converts API kind tokens to display casing.
var titleCaser = cases.Title(language.English)

// KindLabel converts an API node kind such as "COMPONENT_SET" into a
// display label such as "Component Set". Unknown kinds get the same
// treatment, so new API types render reasonably without a code change.
func KindLabel(kind model.NodeKind) string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(string(kind)), "_", " "))
}

// sortedKindCounts returns the node kind distribution ordered by count
// descending, then label ascending, ready for tables and charts.
func sortedKindCounts(nodes model.NodeMap) []kindCount {
	counts := nodes.KindCounts()
	result := make([]kindCount, 0, len(counts))
	for kind, count := range counts {
		result = append(result, kindCount{Label: KindLabel(kind), Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	return result
}

// kindCount is one row of the kind distribution.
type kindCount struct {
	Label string
	Count int
}

// truncateString truncates a string to maxLen runes with ellipsis.
// Counting runes keeps multibyte layer and font names valid UTF-8.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
