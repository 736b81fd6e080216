package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/srares76/figmaFeeder/internal/crawler"
	"github.com/srares76/figmaFeeder/internal/database"
	"github.com/srares76/figmaFeeder/internal/figma"
	"github.com/srares76/figmaFeeder/internal/model"
)

// CrawlStep fetches the file's metadata and crawls its node tree.
// This step is the foundation of every feed: later steps consume the
// node map it produces.
type CrawlStep struct {
	// client is the Figma API client.
	client *figma.Client

	// rootID roots the crawl at a specific node. Empty means the file's
	// document root, taken from the file metadata.
	rootID model.NodeID

	// batchSize is the maximum identifiers per fetch batch.
	batchSize int

	// concurrency is the maximum batches in flight per round.
	concurrency int

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlRoot roots the crawl at a specific node id instead of the
// file's document root.
func WithCrawlRoot(rootID model.NodeID) CrawlStepOption {
	return func(s *CrawlStep) {
		s.rootID = rootID
	}
}

// WithCrawlBatchSize sets the maximum identifiers per fetch batch.
func WithCrawlBatchSize(n int) CrawlStepOption {
	return func(s *CrawlStep) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithCrawlConcurrency sets the maximum batches in flight per round.
func WithCrawlConcurrency(n int) CrawlStepOption {
	return func(s *CrawlStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step backed by the given API client.
func NewCrawlStep(client *figma.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:      client,
		batchSize:   crawler.DefaultBatchSize,
		concurrency: crawler.DefaultConcurrency,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do fetches file metadata, then crawls the tree from the root.
func (s *CrawlStep) Do(ctx context.Context, report *model.FeedReport) error {
	start := time.Now()

	meta, err := s.client.File(ctx, report.FileKey)
	if err != nil {
		return fmt.Errorf("failed to fetch file metadata: %w", err)
	}
	report.FileName = meta.Name
	report.FileVersion = meta.Version

	root := s.rootID
	if root == "" {
		root = meta.Document.ID()
	}
	if root == "" {
		return fmt.Errorf("file %s has no document root", report.FileKey)
	}
	report.RootID = root

	c := crawler.New(s.client,
		crawler.WithBatchSize(s.batchSize),
		crawler.WithConcurrency(s.concurrency),
		crawler.WithLogger(s.logger),
	)

	nodes, err := c.Crawl(ctx, report.FileKey, root)
	report.Duration = time.Since(start)
	report.BatchesDispatched = c.Stats().BatchesDispatched
	if err != nil {
		return fmt.Errorf("crawl of %s failed: %w", report.FileKey, err)
	}

	report.Nodes = nodes
	s.logger.Info("crawl complete",
		"file_key", report.FileKey,
		"nodes", len(nodes),
		"batches", report.BatchesDispatched,
		"duration", report.Duration,
	)

	return nil
}

// InventoryStep derives the color and typography inventory from the
// crawled node map.
type InventoryStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// NewInventoryStep creates an inventory step.
func NewInventoryStep(logger *slog.Logger) *InventoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryStep{logger: logger}
}

// Name returns the step name.
func (s *InventoryStep) Name() string {
	return "inventory"
}

// Do builds the inventory. A feed with no nodes yields an empty inventory
// rather than an error; the crawl step already reported the real problem.
func (s *InventoryStep) Do(_ context.Context, report *model.FeedReport) error {
	report.Inventory = model.BuildInventory(report.Nodes)
	s.logger.Debug("inventory built",
		"file_key", report.FileKey,
		"colors", len(report.Inventory.Colors),
		"text_styles", len(report.Inventory.TextStyles),
	)
	return nil
}

// SnapshotStep persists the completed feed to the snapshot database so
// later runs can be compared against it.
type SnapshotStep struct {
	// db is the snapshot store.
	db *database.FeedDB

	// logger for structured logging.
	logger *slog.Logger
}

// NewSnapshotStep creates a snapshot step backed by the given database.
func NewSnapshotStep(db *database.FeedDB, logger *slog.Logger) *SnapshotStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStep{db: db, logger: logger}
}

// Name returns the step name.
func (s *SnapshotStep) Name() string {
	return "snapshot"
}

// Do saves the feed. Feeds without a node map are not saved; a snapshot
// of a failed crawl would only pollute later comparisons.
func (s *SnapshotStep) Do(ctx context.Context, report *model.FeedReport) error {
	if report.Nodes == nil {
		s.logger.Debug("skipping snapshot of failed feed", "file_key", report.FileKey)
		return nil
	}

	id, err := s.db.SaveFeedReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Info("snapshot saved",
		"file_key", report.FileKey,
		"snapshot_id", id,
	)
	return nil
}
