package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tokenforge/provhash/internal/artifact"
	"github.com/tokenforge/provhash/internal/config"
	"github.com/tokenforge/provhash/internal/digest"
)

// Collection aliases used by the full run. The metadata files carry no
// extension; the media extension comes from configuration.
const (
	metadataAlias = "tokenMetadata"
	mediaAlias    = "tokenMedia"
)

// provenanceFileName is the final combined fingerprint artifact.
const provenanceFileName = "PROVENANCE.txt"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	Count      int
	Atomic     bool
}

// RunSummary is the success payload for the run command.
type RunSummary struct {
	Metadata       HashSummary `json:"metadata"`
	Media          HashSummary `json:"media"`
	ProvenanceHash string      `json:"provenance_hash"`
	ProvenancePath string      `json:"provenance_path"`
}

// String renders the human-readable summary.
func (s RunSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hash of [concatenated metadata file hashes]: %s\n", s.Metadata.ProvenanceHash)
	fmt.Fprintf(&sb, "Hash of [concatenated media file hashes]: %s\n", s.Media.ProvenanceHash)
	fmt.Fprintf(&sb, "FINAL PROVENANCE HASH: %s\n", s.ProvenanceHash)
	fmt.Fprintf(&sb, "  wrote %s", s.ProvenancePath)
	return sb.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Hash both token collections and emit the final provenance hash",
		Long: `Run the full provenance batch from configuration.

Hashes the token metadata collection (extensionless files) and the token
media collection, persists both artifact sets under the configured hash
folder, then writes PROVENANCE.txt containing
SHA256(metadata hash-of-hashes + media hash-of-hashes).

Configuration is read from the --config YAML file; PROVHASH_* environment
variables override file values.

Example:
  provhash run --config ./provhash.yaml
  provhash run --config ./provhash.yaml --count 100 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (optional when PROVHASH_* env vars are set)")
	cmd.Flags().IntVar(&opts.Count, "count", -1, "item count override, -1 uses the configured count")
	cmd.Flags().BoolVar(&opts.Atomic, "atomic", false, "write each artifact via temp-file-then-rename")

	return cmd
}

func runAll(opts *RunOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "configuration error", err)
	}

	count := cfg.Count
	if opts.Count >= 0 {
		count = opts.Count
	}
	slog.Info("starting provenance run", "count", count, "hash_dir", cfg.HashDir)

	metaOpts := &HashOptions{
		RootOptions: opts.RootOptions,
		Alias:       metadataAlias,
		Extension:   "",
		Count:       count,
		OutDir:      cfg.HashDir,
		Atomic:      opts.Atomic,
		Ledger:      cfg.LedgerPath,
	}
	metaSummary, err := executeBatch(metaOpts, cfg.MetadataDir, formatter)
	if err != nil {
		return err
	}

	mediaOpts := &HashOptions{
		RootOptions: opts.RootOptions,
		Alias:       mediaAlias,
		Extension:   cfg.MediaExtension,
		Count:       count,
		OutDir:      cfg.HashDir,
		Atomic:      opts.Atomic,
		Ledger:      cfg.LedgerPath,
	}
	mediaSummary, err := executeBatch(mediaOpts, cfg.MediaDir, formatter)
	if err != nil {
		return err
	}

	// The final fingerprint covers both collections: the hash of the two
	// hash-of-hashes values concatenated metadata-first.
	provHash := digest.String(metaSummary.ProvenanceHash + mediaSummary.ProvenanceHash)
	provPath := filepath.Join(cfg.HashDir, provenanceFileName)
	if err := artifact.WriteFile(provPath, []byte(provHash), opts.Atomic); err != nil {
		_ = formatter.Error(ErrCodePersist, err.Error(), nil)
		return WrapExitError(ExitCommandError, "provenance write failed", err)
	}
	slog.Info("provenance run complete", "provenance_hash", provHash)

	return formatter.Success(RunSummary{
		Metadata:       metaSummary,
		Media:          mediaSummary,
		ProvenanceHash: provHash,
		ProvenancePath: provPath,
	})
}
