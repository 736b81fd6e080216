package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/srares76/figmaFeeder/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no content are shown.
	showEmpty bool

	// verbose enables per-node hints in the tree output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with per-node presentation hints.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.FeedReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeKinds(&sb, report)
	w.writeTree(&sb, report)
	w.writeInventory(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with feed information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.FeedReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         FIGMAFEEDER REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("File Key:   %s\n", report.FileKey))
	if report.FileName != "" {
		sb.WriteString(fmt.Sprintf("File Name:  %s\n", report.FileName))
	}
	if report.FileVersion != "" {
		sb.WriteString(fmt.Sprintf("Version:    %s\n", report.FileVersion))
	}
	sb.WriteString(fmt.Sprintf("Fetched:    %s\n", report.DateFetched.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", report.Duration.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Nodes:      %d\n", report.NodeCount()))
	sb.WriteString(fmt.Sprintf("Batches:    %d\n", report.BatchesDispatched))

	if report.Succeeded() {
		sb.WriteString("Status:     Complete\n")
	} else {
		sb.WriteString(fmt.Sprintf("Status:     ERROR - %s\n", report.ErrorMessage))
	}

	sb.WriteString("\n")
}

// writeKinds writes the node kind distribution section.
func (w *SimpleWriter) writeKinds(sb *strings.Builder, report *model.FeedReport) {
	counts := sortedKindCounts(report.Nodes)
	if len(counts) == 0 && !w.showEmpty {
		return
	}

	writeSectionHeader(sb, "NODE KINDS")

	for _, kc := range counts {
		sb.WriteString(fmt.Sprintf("  %-16s %d\n", kc.Label, kc.Count))
	}
	sb.WriteString("\n")
}

// writeTree writes the document structure as an indented tree.
func (w *SimpleWriter) writeTree(sb *strings.Builder, report *model.FeedReport) {
	if report.Nodes == nil {
		return
	}

	writeSectionHeader(sb, "STRUCTURE")

	report.Nodes.Walk(report.RootID, func(n *model.NormalizedNode, depth int) {
		indent := strings.Repeat("  ", depth)
		sb.WriteString(fmt.Sprintf("%s%s [%s]\n", indent, n.Name, KindLabel(n.Kind)))
		if w.verbose {
			for _, hint := range n.Hints {
				sb.WriteString(fmt.Sprintf("%s  > %s\n", indent, hint))
			}
		}
	})
	sb.WriteString("\n")
}

// writeInventory writes the color and typography inventory sections.
func (w *SimpleWriter) writeInventory(sb *strings.Builder, report *model.FeedReport) {
	inv := report.Inventory
	if inv == nil && report.Nodes != nil {
		inv = model.BuildInventory(report.Nodes)
	}
	if inv == nil {
		return
	}

	if len(inv.Colors) > 0 || w.showEmpty {
		writeSectionHeader(sb, "COLORS")
		if len(inv.Colors) == 0 {
			sb.WriteString("  No solid colors found\n")
		}
		for _, c := range inv.Colors {
			sb.WriteString(fmt.Sprintf("  %s  used %d time(s)\n", c.Hex, c.Count))
		}
		sb.WriteString("\n")
	}

	if len(inv.TextStyles) > 0 || w.showEmpty {
		writeSectionHeader(sb, "TEXT STYLES")
		if len(inv.TextStyles) == 0 {
			sb.WriteString("  No text styles found\n")
		}
		for _, ts := range inv.TextStyles {
			sb.WriteString(fmt.Sprintf("  %s  used %d time(s)\n", ts.Label(), ts.Count))
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by figmafeeder\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// writeSectionHeader writes a dashed section divider with a title.
func writeSectionHeader(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
