package model

import "time"

// FeedReport is the full outcome of feeding one Figma file: the crawled
// node map plus metadata and derived summaries. Report writers and the
// snapshot database consume this structure.
type FeedReport struct {
	// FileKey is the Figma file key that was fed.
	FileKey string `json:"file_key"`

	// FileName is the file's display name, when metadata was fetched.
	FileName string `json:"file_name,omitempty"`

	// FileVersion is the file's version identifier at fetch time.
	FileVersion string `json:"file_version,omitempty"`

	// RootID is the node the crawl was rooted at.
	RootID NodeID `json:"root_id"`

	// DateFetched is when the feed ran.
	DateFetched time.Time `json:"date_fetched"`

	// Duration is how long the crawl took.
	Duration time.Duration `json:"duration"`

	// Nodes is the crawl result. Nil when the feed failed.
	Nodes NodeMap `json:"nodes,omitempty"`

	// Inventory is the color/typography summary, when computed.
	Inventory *Inventory `json:"inventory,omitempty"`

	// BatchesDispatched is the number of API batches the crawl issued.
	BatchesDispatched int `json:"batches_dispatched"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// ErrorMessage is set when the feed failed.
	ErrorMessage string `json:"error,omitempty"`

	// Error holds the failure for programmatic access. Excluded from
	// JSON because error values don't serialize usefully.
	Error error `json:"-"`
}

// NewFeedReport creates a report for the given file key with the fetch
// timestamp set to now.
func NewFeedReport(fileKey string) *FeedReport {
	return &FeedReport{
		FileKey:     fileKey,
		DateFetched: time.Now().UTC(),
	}
}

// NodeCount returns the number of nodes stored by the crawl.
func (r *FeedReport) NodeCount() int {
	return len(r.Nodes)
}

// Succeeded reports whether the feed completed without a fatal error.
func (r *FeedReport) Succeeded() bool {
	return r.Error == nil && r.ErrorMessage == ""
}

// TopLevelSections returns the root's direct children present in the map,
// in document order. For a document root these are the file's canvases.
func (r *FeedReport) TopLevelSections() []*NormalizedNode {
	root, ok := r.Nodes[r.RootID]
	if !ok {
		return nil
	}
	sections := make([]*NormalizedNode, 0, len(root.ChildIDs))
	for _, id := range root.ChildIDs {
		if n, ok := r.Nodes[id]; ok {
			sections = append(sections, n)
		}
	}
	return sections
}
