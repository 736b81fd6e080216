package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/srares76/figmaFeeder/internal/config"
	"github.com/srares76/figmaFeeder/internal/database"
)

// NewCompareCmd creates the compare command.
// This command compares feed snapshots stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [file-key]",
		Short: "Compare feed snapshots of a Figma file",
		Long: `Compare displays structural differences between two feed snapshots.

This command retrieves stored snapshots from the database and shows:
- Nodes added since the earlier snapshot
- Nodes removed since the earlier snapshot
- Nodes whose content changed (name, attributes, children, hints)

The comparison requires at least two snapshots of the specified file.
Use 'figmafeeder feed' to create snapshots.

Examples:
  # Compare the latest two snapshots of a file
  figmafeeder compare aBcD1234

  # List all snapshots of a file
  figmafeeder compare --list aBcD1234

  # Compare the latest snapshot with a specific one by ID
  figmafeeder compare --with-feed-id 5 aBcD1234

  # Compare with how the file looked on a given date
  figmafeeder compare --since 2026-08-01 aBcD1234

  # Output comparison in JSON format
  figmafeeder compare --json aBcD1234

  # List all files with stored snapshots
  figmafeeder compare --list-files`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List snapshot history for the specified file key")
	cmd.Flags().BoolP("list-files", "L", false,
		"List all files with stored snapshots")

	// Comparison target flags
	cmd.Flags().Int64P("with-feed-id", "i", 0,
		"Compare with a specific snapshot by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the last snapshot taken at or before this date (YYYY-MM-DD or RFC 3339)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listFiles, err := cmd.Flags().GetBool("list-files")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so bad invocations
	// never take the write lock.
	var fileKey string
	if !listFiles {
		if len(args) == 0 {
			return errors.New("file key is required (use --list-files to see stored files)")
		}
		fileKey = args[0]
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if listFiles {
		return listFeedFiles(ctx, cmd, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listFeedHistory(ctx, cmd, db, fileKey)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("cannot use both --json and --markdown")
	}

	withFeedID, err := cmd.Flags().GetInt64("with-feed-id")
	if err != nil {
		return err
	}
	sinceArg, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}
	if withFeedID > 0 && sinceArg != "" {
		return errors.New("cannot use both --with-feed-id and --since")
	}

	var since time.Time
	if sinceArg != "" {
		since, err = parseSince(sinceArg)
		if err != nil {
			return err
		}
	}

	format := diffFormatText
	switch {
	case jsonOutput:
		format = diffFormatJSON
	case markdownOutput:
		format = diffFormatMarkdown
	}

	return runComparison(ctx, db, fileKey, withFeedID, since, format)
}

// parseSince accepts a plain date or a full RFC 3339 timestamp. A plain
// date means end of that day, so --since 2026-08-01 picks the last
// snapshot taken on or before August 1st.
func parseSince(arg string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, arg); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", arg, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value %q (use YYYY-MM-DD or RFC 3339)", arg)
	}
	return t.Add(24*time.Hour - time.Nanosecond), nil
}

// listFeedFiles lists all files that have snapshots in the database.
func listFeedFiles(ctx context.Context, cmd *cobra.Command, db *database.FeedDB) error {
	keys, err := db.ListFeedFiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		fmt.Fprintln(out, "No stored snapshots found in the database.")
		fmt.Fprintln(out, "\nUse 'figmafeeder feed <file-key>' to create one.")
		return nil
	}

	fmt.Fprintf(out, "Files with snapshots (%d):\n\n", len(keys))
	for _, key := range keys {
		fmt.Fprintf(out, "  - %s\n", key)
	}
	fmt.Fprintln(out, "\nUse 'figmafeeder compare --list <file-key>' to see snapshot history.")

	return nil
}

// listFeedHistory lists all snapshots of a specific file.
func listFeedHistory(ctx context.Context, cmd *cobra.Command, db *database.FeedDB, fileKey string) error {
	history, err := db.GetFeedHistory(ctx, fileKey)
	if err != nil {
		return fmt.Errorf("failed to get feed history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(history) == 0 {
		fmt.Fprintf(out, "No snapshots found for %s\n", fileKey)
		fmt.Fprintln(out, "\nUse 'figmafeeder feed' to create one.")
		return nil
	}

	fmt.Fprintf(out, "Snapshot history for %s (%d snapshots):\n\n", fileKey, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %-12s  %-8s  %s\n", "ID", "Date", "Version", "Nodes", "Name")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 64))

	for _, meta := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %-12s  %-8d  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.FileVersion,
			meta.NodeCount,
			meta.FileName,
		)
	}

	fmt.Fprintln(out, "\nUse 'figmafeeder compare <file-key>' to compare the latest two snapshots.")
	fmt.Fprintln(out, "Use 'figmafeeder compare --with-feed-id <id> <file-key>' to pick a baseline.")

	return nil
}

// diffFormat selects how a snapshot diff is rendered.
type diffFormat int

const (
	diffFormatText diffFormat = iota
	diffFormatJSON
	diffFormatMarkdown
)

// runComparison diffs two snapshots and prints the result.
func runComparison(ctx context.Context, db *database.FeedDB, fileKey string, withFeedID int64, since time.Time, format diffFormat) error {
	var diff *database.SnapshotDiff
	var err error

	switch {
	case withFeedID > 0:
		diff, err = compareWithID(ctx, db, fileKey, withFeedID)
	case !since.IsZero():
		diff, err = compareSince(ctx, db, fileKey, since)
	default:
		diff, err = db.CompareLatest(ctx, fileKey)
	}
	if err != nil {
		return err
	}

	switch format {
	case diffFormatJSON:
		return outputDiffJSON(diff)
	case diffFormatMarkdown:
		return outputDiffMarkdown(fileKey, diff)
	default:
		return outputDiffText(fileKey, diff)
	}
}

// compareWithID compares the latest snapshot against a specific baseline.
func compareWithID(ctx context.Context, db *database.FeedDB, fileKey string, baselineID int64) (*database.SnapshotDiff, error) {
	history, err := db.GetFeedHistory(ctx, fileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no snapshots found for %s", fileKey)
	}

	var baseline *database.FeedMetadata
	for i := range history {
		if history[i].ID == baselineID {
			baseline = &history[i]
			break
		}
	}
	if baseline == nil {
		return nil, fmt.Errorf("snapshot with ID %d not found for %s (use --list to see available IDs)", baselineID, fileKey)
	}

	latest := history[0]
	if latest.ID == baselineID {
		return nil, fmt.Errorf("snapshot %d is already the latest; pick an earlier baseline", baselineID)
	}

	return db.CompareFeeds(ctx, *baseline, latest)
}

// compareSince compares the latest snapshot against the last snapshot
// taken at or before the given time.
func compareSince(ctx context.Context, db *database.FeedDB, fileKey string, since time.Time) (*database.SnapshotDiff, error) {
	history, err := db.GetFeedHistory(ctx, fileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no snapshots found for %s", fileKey)
	}

	// History is newest first; the first entry at or before the cutoff
	// is the most recent qualifying baseline.
	var baseline *database.FeedMetadata
	for i := range history {
		if !history[i].Timestamp.After(since) {
			baseline = &history[i]
			break
		}
	}
	if baseline == nil {
		return nil, fmt.Errorf("no snapshot of %s exists at or before %s", fileKey, since.Format("2006-01-02 15:04:05"))
	}

	latest := history[0]
	if latest.ID == baseline.ID {
		return nil, fmt.Errorf("the latest snapshot of %s predates %s; nothing newer to compare against", fileKey, since.Format("2006-01-02 15:04:05"))
	}

	return db.CompareFeeds(ctx, *baseline, latest)
}

// outputDiffMarkdown outputs the diff in Markdown format.
func outputDiffMarkdown(fileKey string, diff *database.SnapshotDiff) error {
	md := markdown.NewMarkdown(os.Stdout)

	md.H1("Snapshot Comparison: " + fileKey)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Snapshot", "ID", "Date", "Nodes"},
		Rows: [][]string{
			{"Baseline", strconv.FormatInt(diff.Older.ID, 10),
				diff.Older.Timestamp.Format("2006-01-02 15:04:05"),
				strconv.Itoa(diff.Older.NodeCount)},
			{"Latest", strconv.FormatInt(diff.Newer.ID, 10),
				diff.Newer.Timestamp.Format("2006-01-02 15:04:05"),
				strconv.Itoa(diff.Newer.NodeCount)},
		},
	})
	md.PlainText("")

	if diff.InSync() {
		md.PlainText("No structural changes between the snapshots.")
		return md.Build()
	}

	writeChanges := func(header string, changes []database.NodeChange) {
		if len(changes) == 0 {
			return
		}
		sort.Slice(changes, func(i, j int) bool { return changes[i].ID < changes[j].ID })
		md.H2(fmt.Sprintf("%s (%d)", header, len(changes)))
		md.PlainText("")
		rows := make([][]string, len(changes))
		for i, c := range changes {
			name := c.Name
			if name == "" {
				name = "(unnamed)"
			}
			rows[i] = []string{"`" + string(c.ID) + "`", name, string(c.Kind)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"ID", "Name", "Kind"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	writeChanges("Added Nodes", diff.Added)
	writeChanges("Removed Nodes", diff.Removed)
	writeChanges("Changed Nodes", diff.Changed)

	return md.Build()
}

// outputDiffJSON outputs the diff in JSON format.
func outputDiffJSON(diff *database.SnapshotDiff) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(diff)
}

// outputDiffText outputs the diff in human-readable text format.
func outputDiffText(fileKey string, diff *database.SnapshotDiff) error {
	fmt.Printf("Snapshot Comparison: %s\n", fileKey)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nBaseline: #%d  %s  (%d nodes)\n",
		diff.Older.ID, diff.Older.Timestamp.Format("2006-01-02 15:04:05"), diff.Older.NodeCount)
	fmt.Printf("Latest:   #%d  %s  (%d nodes)\n",
		diff.Newer.ID, diff.Newer.Timestamp.Format("2006-01-02 15:04:05"), diff.Newer.NodeCount)

	if diff.InSync() {
		fmt.Println("\nNo structural changes between the snapshots.")
		return nil
	}

	fmt.Println("\nSummary:")
	fmt.Printf("  %-10s %s\n", "Added:", formatDelta(len(diff.Added)))
	fmt.Printf("  %-10s %s\n", "Removed:", formatDelta(-len(diff.Removed)))
	fmt.Printf("  %-10s %d\n", "Changed:", len(diff.Changed))

	printChanges := func(header, marker string, changes []database.NodeChange) {
		if len(changes) == 0 {
			return
		}
		sort.Slice(changes, func(i, j int) bool { return changes[i].ID < changes[j].ID })
		fmt.Printf("\n%s (%d):\n", header, len(changes))
		for _, c := range changes {
			name := c.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("  [%s] %s  %s (%s)\n", marker, c.ID, name, c.Kind)
		}
	}

	printChanges("Added Nodes", "+", diff.Added)
	printChanges("Removed Nodes", "-", diff.Removed)
	printChanges("Changed Nodes", "~", diff.Changed)

	return nil
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
