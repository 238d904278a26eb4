package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tokenforge/provhash/internal/ledger"
	"github.com/tokenforge/provhash/internal/manifest"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Ledger string
}

// VerifySummary is the success payload for the verify command.
type VerifySummary struct {
	Alias          string `json:"alias"`
	Count          int    `json:"count"`
	ProvenanceHash string `json:"provenance_hash"`
	LedgerMatch    *bool  `json:"ledger_match,omitempty"`
}

// String renders the human-readable summary.
func (s VerifySummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✓ %s verified: %d item(s), provenance hash %s", s.Alias, s.Count, s.ProvenanceHash)
	if s.LedgerMatch != nil {
		fmt.Fprintf(&sb, "\n✓ matches last recorded ledger run")
	}
	return sb.String()
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <manifest.yaml>",
		Short: "Re-hash a collection and compare against its attestation",
		Long: `Verify a hashed collection against a previously written manifest.

Re-hashes every item the manifest describes and compares the resulting
provenance hash with the attested one. A mismatch exits with code 1; a
missing or unreadable item exits with code 2.

With --ledger, the recomputed hash is also compared against the most
recent run recorded for the collection.

Example:
  provhash verify ./hashes/tokenMedia.manifest.yaml
  provhash verify ./hashes/tokenMedia.manifest.yaml --ledger ./hashes/runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "also compare against the last run in this SQLite ledger")

	return cmd
}

func runVerify(opts *VerifyOptions, manifestPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := manifest.Load(manifestPath)
	if err != nil {
		_ = formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "manifest error", err)
	}
	slog.Info("verifying collection", "alias", m.Alias, "folder", m.Folder, "count", m.Count)

	res, err := manifest.Verify(m)
	if err != nil {
		_ = formatter.Error(ErrCodeBatch, err.Error(), nil)
		return WrapExitError(ExitCommandError, "verification batch failed", err)
	}

	if !res.OK() {
		_ = formatter.Error(ErrCodeMismatch, fmt.Sprintf("%s provenance hash mismatch", m.Alias), map[string]string{
			"expected": res.Expected,
			"actual":   res.Actual,
		})
		return NewExitError(ExitFailure, "provenance hash mismatch")
	}

	summary := VerifySummary{
		Alias:          m.Alias,
		Count:          m.Count,
		ProvenanceHash: res.Actual,
	}

	if opts.Ledger != "" {
		match, err := verifyAgainstLedger(opts.Ledger, m, res.Actual)
		if err != nil {
			_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
			return WrapExitError(ExitCommandError, "ledger check failed", err)
		}
		if !match {
			_ = formatter.Error(ErrCodeMismatch, fmt.Sprintf("%s does not match last ledger run", m.Alias), nil)
			return NewExitError(ExitFailure, "ledger provenance mismatch")
		}
		summary.LedgerMatch = &match
	}

	return formatter.Success(summary)
}

// verifyAgainstLedger compares the recomputed provenance hash with the most
// recent ledger run for the manifest's collection.
func verifyAgainstLedger(path string, m *manifest.Manifest, actual string) (bool, error) {
	l, err := ledger.Open(path)
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			slog.Error("error closing ledger", "error", closeErr)
		}
	}()

	last, err := l.LastRun(context.Background(), m.Alias, m.Extension)
	if errors.Is(err, ledger.ErrNoRuns) {
		return false, fmt.Errorf("no recorded run for %s in %s", m.Alias, path)
	}
	if err != nil {
		return false, err
	}

	return last.ProvenanceHash == actual, nil
}
