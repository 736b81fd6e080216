package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/srares76/figmaFeeder/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.FeedReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeKinds(md, report)
	w.writeTree(md, report)
	w.writeInventory(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with feed information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.FeedReport) {
	title := report.FileName
	if title == "" {
		title = report.FileKey
	}
	md.H1(title)
	md.PlainText("")

	rows := [][]string{
		{"File Key", "`" + report.FileKey + "`"},
	}
	if report.FileVersion != "" {
		rows = append(rows, []string{"Version", report.FileVersion})
	}
	rows = append(rows,
		[]string{"Fetched", report.DateFetched.Format("2006-01-02 15:04:05 MST")},
		[]string{"Duration", report.Duration.Round(time.Millisecond).String()},
		[]string{"Nodes", strconv.Itoa(report.NodeCount())},
		[]string{"Batches", strconv.Itoa(report.BatchesDispatched)},
		[]string{"Status", w.getStatusText(report)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if !report.Succeeded() {
		md.Cautionf("The feed did not complete: %s", report.ErrorMessage)
		md.PlainText("")
	}
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.FeedReport) string {
	if !report.Succeeded() {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeKinds writes the node kind distribution with a mermaid pie chart.
func (w *MarkdownWriter) writeKinds(md *markdown.Markdown, report *model.FeedReport) {
	counts := sortedKindCounts(report.Nodes)
	if len(counts) == 0 {
		return
	}

	md.H2("Node Kinds")
	md.PlainText("")

	rows := make([][]string, len(counts))
	for i, kc := range counts {
		rows[i] = []string{kc.Label, strconv.Itoa(kc.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Node Kind Distribution"),
		piechart.WithShowData(true),
	)
	for _, kc := range counts {
		chart.LabelAndIntValue(kc.Label, uint64(kc.Count)) //nolint:gosec // Counts are non-negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeTree writes the document structure as a nested bullet tree.
// A child id referenced by a parent but absent from the map belongs to a
// subtree the crawl pruned; it renders as a placeholder instead of a node.
func (w *MarkdownWriter) writeTree(md *markdown.Markdown, report *model.FeedReport) {
	if report.Nodes == nil {
		return
	}

	md.H2("Structure")
	md.PlainText("")

	var sb strings.Builder
	writeTreeNode(&sb, report.Nodes, report.RootID, 0)
	md.PlainText(strings.TrimRight(sb.String(), "\n"))
	md.PlainText("")
}

// maxTreeDepth caps tree rendering so a pathological file cannot produce
// an unreadable report.
const maxTreeDepth = 12

func writeTreeNode(sb *strings.Builder, nodes model.NodeMap, id model.NodeID, depth int) {
	if depth > maxTreeDepth {
		return
	}

	indent := strings.Repeat("  ", depth)
	node, ok := nodes[id]
	if !ok {
		sb.WriteString(indent + "- _(pruned)_\n")
		return
	}

	name := node.Name
	if name == "" {
		name = string(node.ID)
	}
	sb.WriteString(indent + "- **" + name + "** (" + KindLabel(node.Kind) + ")")
	if len(node.Hints) > 0 {
		sb.WriteString(" `" + strings.Join(node.Hints, "`, `") + "`")
	}
	sb.WriteString("\n")

	for _, child := range node.ChildIDs {
		writeTreeNode(sb, nodes, child, depth+1)
	}
}

// writeInventory writes the color and typography inventory tables.
func (w *MarkdownWriter) writeInventory(md *markdown.Markdown, report *model.FeedReport) {
	inv := report.Inventory
	if inv == nil && report.Nodes != nil {
		inv = model.BuildInventory(report.Nodes)
	}
	if inv == nil {
		return
	}

	md.H2("Inventory")
	md.PlainText("")

	if len(inv.Colors) > 0 {
		md.H3("Colors")
		md.PlainText("")
		rows := make([][]string, len(inv.Colors))
		for i, c := range inv.Colors {
			rows[i] = []string{"`" + c.Hex + "`", strconv.Itoa(c.Count)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Color", "Used"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(inv.TextStyles) > 0 {
		md.H3("Text Styles")
		md.PlainText("")
		rows := make([][]string, len(inv.TextStyles))
		for i, ts := range inv.TextStyles {
			rows[i] = []string{truncateString(ts.Label(), 50), strconv.Itoa(ts.Count)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Style", "Used"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(inv.Colors) == 0 && len(inv.TextStyles) == 0 {
		md.PlainText("No solid colors or text styles found.")
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by figmafeeder*")
}
