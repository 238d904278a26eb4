package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tokenforge/provhash/internal/artifact"
	"github.com/tokenforge/provhash/internal/batch"
	"github.com/tokenforge/provhash/internal/ledger"
	"github.com/tokenforge/provhash/internal/manifest"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	Alias     string
	Extension string
	Count     int
	OutDir    string
	Atomic    bool
	Ledger    string
	Manifest  string
}

// HashSummary is the success payload for the hash command.
type HashSummary struct {
	Alias          string   `json:"alias"`
	Extension      string   `json:"extension"`
	Count          int      `json:"count"`
	ProvenanceHash string   `json:"provenance_hash"`
	Artifacts      []string `json:"artifacts"`
	RunID          string   `json:"run_id,omitempty"`
	ManifestPath   string   `json:"manifest_path,omitempty"`
}

// String renders the human-readable summary.
func (s HashSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✓ Hashed %d item(s) for %s\n", s.Count, s.Alias)
	fmt.Fprintf(&sb, "Provenance hash: %s\n", s.ProvenanceHash)
	for _, p := range s.Artifacts {
		fmt.Fprintf(&sb, "  wrote %s\n", p)
	}
	if s.RunID != "" {
		fmt.Fprintf(&sb, "Ledger run id: %s\n", s.RunID)
	}
	if s.ManifestPath != "" {
		fmt.Fprintf(&sb, "Manifest: %s", s.ManifestPath)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash <folder-prefix>",
		Short: "Hash one numbered file collection",
		Long: `Hash a contiguous range of numbered files and persist the results.

Items are expected at <folder-prefix><i>.<ext> (or <folder-prefix><i> when
--ext is empty) for i in 0..count-1. The run fails fast on the first missing
or unreadable file; in that case no artifacts are written.

Example:
  provhash hash ./media/ --alias tokenMedia --ext png --count 10000 --out ./hashes
  provhash hash ./metadata/ --alias tokenMetadata --ext "" --count 10000 --out ./hashes --ledger ./hashes/runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Alias, "alias", "", "collection alias used in artifact names (required)")
	cmd.Flags().StringVar(&opts.Extension, "ext", "", "item file extension without the dot, empty for none")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "number of items, indices 0..count-1")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "destination folder for artifacts (required)")
	cmd.Flags().BoolVar(&opts.Atomic, "atomic", false, "write each artifact via temp-file-then-rename")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "optional SQLite ledger to record the run in")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "optional path to write a verification manifest to")
	_ = cmd.MarkFlagRequired("alias")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runHash(opts *HashOptions, prefix string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	summary, err := executeBatch(opts, prefix, formatter)
	if err != nil {
		return err
	}
	return formatter.Success(summary)
}

// executeBatch runs one collection end to end: hash, persist, and the
// optional ledger record and manifest. Hashing completes before any output
// file is opened, so a failed batch writes nothing.
func executeBatch(opts *HashOptions, prefix string, formatter *OutputFormatter) (HashSummary, error) {
	slog.Info("hashing collection", "alias", opts.Alias, "prefix", prefix, "ext", opts.Extension, "count", opts.Count)

	res, err := batch.Run(prefix, opts.Extension, opts.Count)
	if err != nil {
		_ = formatter.Error(ErrCodeBatch, err.Error(), nil)
		return HashSummary{}, WrapExitError(ExitCommandError, "batch failed", err)
	}
	slog.Info("batch hashed", "alias", opts.Alias, "items", res.Items.Len(), "provenance_hash", res.ProvenanceHash)

	w := &artifact.Writer{Atomic: opts.Atomic}
	paths, err := w.Persist(opts.Alias, opts.Extension, res, opts.OutDir)
	if err != nil {
		_ = formatter.Error(ErrCodePersist, err.Error(), nil)
		return HashSummary{}, WrapExitError(ExitCommandError, "persist failed", err)
	}
	for _, p := range paths.All() {
		formatter.VerboseLog("wrote %s", p)
	}

	summary := HashSummary{
		Alias:          opts.Alias,
		Extension:      opts.Extension,
		Count:          res.Items.Len(),
		ProvenanceHash: res.ProvenanceHash,
		Artifacts:      paths.All(),
	}

	if opts.Ledger != "" {
		runID, err := recordRun(opts.Ledger, opts.Alias, opts.Extension, res)
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return HashSummary{}, WrapExitError(ExitCommandError, "ledger record failed", err)
		}
		summary.RunID = runID
	}

	if opts.Manifest != "" {
		m := &manifest.Manifest{
			Alias:          opts.Alias,
			Folder:         prefix,
			Extension:      opts.Extension,
			Count:          res.Items.Len(),
			ProvenanceHash: res.ProvenanceHash,
		}
		if err := manifest.Write(opts.Manifest, m); err != nil {
			_ = formatter.Error(ErrCodeManifest, err.Error(), nil)
			return HashSummary{}, WrapExitError(ExitCommandError, "manifest write failed", err)
		}
		summary.ManifestPath = opts.Manifest
	}

	return summary, nil
}

// recordRun appends the batch outcome to the SQLite ledger.
func recordRun(path, alias, extension string, res *batch.Result) (string, error) {
	l, err := ledger.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			slog.Error("error closing ledger", "error", closeErr)
		}
	}()

	return l.Record(context.Background(), ledger.Run{
		Alias:          alias,
		Extension:      extension,
		ItemCount:      res.Items.Len(),
		ConcatLength:   len(res.Concatenated),
		ProvenanceHash: res.ProvenanceHash,
	})
}

// configureLogging sets the process-wide slog handler for CLI runs.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
