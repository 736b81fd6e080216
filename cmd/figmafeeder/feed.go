package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/srares76/figmaFeeder/internal/config"
	"github.com/srares76/figmaFeeder/internal/database"
	"github.com/srares76/figmaFeeder/internal/figma"
	"github.com/srares76/figmaFeeder/internal/log"
	"github.com/srares76/figmaFeeder/internal/model"
	"github.com/srares76/figmaFeeder/internal/pipeline"
	"github.com/srares76/figmaFeeder/internal/report"
)

// NewFeedCmd creates the feed command.
func NewFeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed [file-key...]",
		Short: "Crawl Figma files and render their node trees",
		Long: `Feed crawls the node tree of one or more Figma files through the REST API.

Nodes are fetched in parallel batches with retry and rate limiting,
normalized into a compact representation, and rendered as a report.
Completed feeds are stored as snapshots for later comparison.

The access token is resolved from --token, the FIGMA_TOKEN environment
variable, or the config file, in that order.

Examples:
  # Feed a single file
  figmafeeder feed aBcD1234

  # Feed several files concurrently
  figmafeeder feed key1 key2 key3

  # Crawl only a subtree
  figmafeeder feed --root "1:2" aBcD1234

  # Output a Markdown report to a file
  figmafeeder feed --markdown -o report.md aBcD1234

  # Write one Markdown file per canvas into a directory
  figmafeeder feed --output-dir docs/design aBcD1234

Configuration file (.figmafeeder) example:
  files:
    aBcD1234:
      root: "1:2"
      batchSize: 25`,
		Args: cobra.ArbitraryArgs,
		RunE: runFeedCmd,
	}

	// API flags
	cmd.Flags().StringP("token", "k", "",
		"Figma personal access token (default: FIGMA_TOKEN environment variable)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each API request")
	cmd.Flags().Float64P("rate", "r", config.DefaultRequestsPerSecond,
		"Maximum API requests per second (0 disables throttling)")

	// Crawl behavior flags
	cmd.Flags().StringP("root", "R", "",
		"Root node id to crawl from (default: the file's document root)")
	cmd.Flags().IntP("batch-size", "b", config.DefaultBatchSize,
		"Maximum node identifiers per API batch")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Maximum batches fetched in parallel per round")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .figmafeeder in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().StringP("output-dir", "d", "",
		"Write one Markdown file per top-level canvas into this directory")

	// Persistence flags
	cmd.Flags().Bool("no-save", false,
		"Skip saving the feed snapshot to the local database")

	return cmd
}

// runFeedCmd executes the feed command.
func runFeedCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Structured logging with token masking
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runFeed(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Token, err = cmd.Flags().GetString("token")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.RequestsPerSecond, err = cmd.Flags().GetFloat64("rate")
	if err != nil {
		return nil, err
	}

	rootID, err := cmd.Flags().GetString("root")
	if err != nil {
		return nil, err
	}
	cfg.RootID = rootID

	cfg.BatchSize, err = cmd.Flags().GetInt("batch-size")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-file configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.FileConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.FileConfigs = &config.File{
			Files: make(map[string]config.FileConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the file keys
	cfg.FileKeys = args

	// Token falls back to the environment, then the config file defaults
	cfg.ResolveToken()
	if cfg.Token == "" && cfg.FileConfigs != nil {
		cfg.Token = cfg.FileConfigs.Defaults.Token
	}

	return cfg, nil
}

// runFeed executes the feed across all file keys.
func runFeed(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting feed",
		"fileKeys", cfg.FileKeys,
		"batchSize", cfg.BatchSize,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.FeedDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	client, err := newAPIClient(cfg, cfg.Token, logger)
	if err != nil {
		return err
	}

	factory := func(fileKey string) *pipeline.Pipeline {
		return createPipelineForFile(client, db, logger, cfg, fileKey)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithBatchConcurrency(2),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()

	var mu sync.Mutex
	var failures int
	err = bp.ProcessBatchWithCallback(ctx, cfg.FileKeys, func(r *model.FeedReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		if !r.Succeeded() {
			failures++
			fmt.Fprintf(os.Stderr, "[%d/%d] Feed failed: %s: %s\n",
				index+1, len(cfg.FileKeys), r.FileKey, r.ErrorMessage)
			return
		}

		fmt.Printf("[%d/%d] Feed completed: %s (%d nodes in %s)\n",
			index+1, len(cfg.FileKeys), r.FileKey, r.NodeCount(),
			r.Duration.Round(time.Millisecond))

		if err := outputReport(cfg, r); err != nil {
			logger.Error("report failed", "fileKey", r.FileKey, "error", err)
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nFeed completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if failures > 0 {
		return fmt.Errorf("%d of %d feeds failed", failures, len(cfg.FileKeys))
	}
	return nil
}

// newAPIClient builds a Figma client from the configuration.
func newAPIClient(cfg *config.Config, token string, logger *slog.Logger) (*figma.Client, error) {
	opts := []figma.Option{
		figma.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		figma.WithLogger(logger),
		figma.WithMaxAttempts(cfg.RetryMaxAttempts),
		figma.WithBackoffBase(cfg.RetryBase),
		figma.WithRateLimit(cfg.RequestsPerSecond),
	}
	if cfg.APIBaseURL != "" {
		opts = append(opts, figma.WithBaseURL(cfg.APIBaseURL))
	}

	client, err := figma.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

// createPipelineForFile creates a pipeline for one file key, applying
// per-file configuration overrides.
func createPipelineForFile(client *figma.Client, db *database.FeedDB, logger *slog.Logger, cfg *config.Config, fileKey string) *pipeline.Pipeline {
	fc := cfg.FileConfigs.GetFileConfig(fileKey)

	// A per-file token gets its own client; everything else shares one.
	fileClient := client
	if fc.Token != "" && fc.Token != cfg.Token {
		if c, err := newAPIClient(cfg, fc.Token, logger); err == nil {
			fileClient = c
		} else {
			logger.Warn("per-file token rejected, using the global client",
				"fileKey", fileKey, "error", err)
		}
	}

	rootID := cfg.RootID
	if fc.Root != "" {
		rootID = fc.Root
	}
	batchSize := cfg.BatchSize
	if fc.BatchSize > 0 {
		batchSize = fc.BatchSize
	}
	concurrency := cfg.Concurrency
	if fc.Concurrency > 0 {
		concurrency = fc.Concurrency
	}

	crawlOpts := []pipeline.CrawlStepOption{
		pipeline.WithCrawlBatchSize(batchSize),
		pipeline.WithCrawlConcurrency(concurrency),
		pipeline.WithCrawlLogger(logger),
	}
	if rootID != "" {
		crawlOpts = append(crawlOpts, pipeline.WithCrawlRoot(model.NodeID(rootID)))
	}

	p := pipeline.New(
		pipeline.WithLogger(logger),
	)
	p.AddStep(pipeline.NewCrawlStep(fileClient, crawlOpts...))
	p.AddStep(pipeline.NewInventoryStep(logger))
	if db != nil {
		p.AddStep(pipeline.NewSnapshotStep(db, logger))
	}

	return p
}

// outputReport outputs the feed report in the requested format.
func outputReport(cfg *config.Config, feedReport *model.FeedReport) error {
	// Directory tree output is independent of the main report format.
	// A per-file outputDir wins over the global flag, like the other
	// per-file overrides.
	outputDir := cfg.OutputDir
	if cfg.FileConfigs != nil {
		if fc := cfg.FileConfigs.GetFileConfig(feedReport.FileKey); fc.OutputDir != "" {
			outputDir = fc.OutputDir
		}
	}
	if outputDir != "" {
		tw := report.NewTreeWriter(outputDir)
		if _, err := tw.Write(feedReport); err != nil {
			return fmt.Errorf("failed to write report tree: %w", err)
		}
	}

	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may embed layer names and text content; keep them
		// readable by the owner only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if _, err := w.Write(feedReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
