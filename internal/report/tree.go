package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/srares76/figmaFeeder/internal/model"
)

// TreeWriter writes one Markdown file per top-level section of the crawled
// document into a directory, plus an index file carrying the feed metadata
// and inventory. For a crawl rooted at the document node the sections are
// the file's canvases.
//
// Design decision: One file per canvas rather than one large file because
// design files routinely hold dozens of pages; per-page files diff cleanly
// in version control and open fast in editors.
type TreeWriter struct {
	// dir is the output directory. Created on first Write.
	dir string
}

// NewTreeWriter creates a TreeWriter targeting the given directory.
func NewTreeWriter(dir string) *TreeWriter {
	return &TreeWriter{dir: dir}
}

// Write renders the report into the directory. Returns the total bytes
// written across all files.
func (w *TreeWriter) Write(report *model.FeedReport) (int, error) {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	var total int

	// Index file: metadata, kind distribution, inventory.
	n, err := w.writeFile("index.md", func(f *os.File) (int, error) {
		mw := NewMarkdownWriter(f)
		md := reportWithoutTree(report)
		return mw.Write(md)
	})
	total += n
	if err != nil {
		return total, err
	}

	// One file per top-level section.
	used := make(map[string]int)
	for _, section := range report.TopLevelSections() {
		name := sectionFilename(section, used)
		n, err := w.writeFile(name, func(f *os.File) (int, error) {
			return writeSection(f, report, section)
		})
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// writeFile creates a file in the output directory and runs fn on it.
func (w *TreeWriter) writeFile(name string, fn func(*os.File) (int, error)) (int, error) {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path) //nolint:gosec // Path is derived from a sanitized name
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := fn(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// reportWithoutTree returns a shallow copy whose node map contains only the
// root, so the index renders metadata and inventory but not the full tree.
func reportWithoutTree(report *model.FeedReport) *model.FeedReport {
	clone := *report
	if clone.Inventory == nil && report.Nodes != nil {
		clone.Inventory = model.BuildInventory(report.Nodes)
	}
	if root, ok := report.Nodes[report.RootID]; ok {
		clone.Nodes = model.NodeMap{report.RootID: root}
	}
	return &clone
}

// writeSection renders one top-level section as its own Markdown document.
func writeSection(f *os.File, report *model.FeedReport, section *model.NormalizedNode) (int, error) {
	var total int
	n, err := fmt.Fprintf(f, "# %s\n\nSection of [%s](index.md).\n\n## Structure\n\n", section.Name, report.FileKey)
	total += n
	if err != nil {
		return total, err
	}

	var sb strings.Builder
	writeTreeNode(&sb, report.Nodes, section.ID, 0)
	n, err = f.WriteString(sb.String())
	total += n
	return total, err
}

// sectionFilename derives a unique, filesystem-safe file name for a
// section. Collisions get a numeric suffix.
func sectionFilename(section *model.NormalizedNode, used map[string]int) string {
	base := SanitizeFilename(section.Name)
	if base == "" {
		base = SanitizeFilename(string(section.ID))
	}
	if base == "" {
		base = "section"
	}

	used[base]++
	if used[base] > 1 {
		base = fmt.Sprintf("%s-%d", base, used[base])
	}
	return base + ".md"
}

// maxFilenameLen bounds generated file names well under common
// filesystem limits.
const maxFilenameLen = 80

// SanitizeFilename converts an arbitrary layer name into a safe file name:
// lowercased, spaces and path separators replaced with hyphens, anything
// outside [a-z0-9._-] dropped, and runs of hyphens collapsed.
func SanitizeFilename(name string) string {
	var sb strings.Builder
	lastHyphen := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			sb.WriteRune(r)
			lastHyphen = false
		case r == ' ', r == '-', r == '/', r == '\\':
			if !lastHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	result := strings.Trim(sb.String(), "-.")
	if len(result) > maxFilenameLen {
		result = result[:maxFilenameLen]
		result = strings.Trim(result, "-.")
	}
	return result
}
