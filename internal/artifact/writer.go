// Package artifact persists batch hash results as auditable files.
//
// Each batch produces four redundant artifacts under one destination folder:
// a delimited table of (index, digest) pairs, a one-digest-per-line text
// file, the raw digest concatenation, and the provenance hash. All four are
// derived from the same batch result; the redundancy is deliberate so the
// set can be cross-checked by hand.
package artifact

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tokenforge/provhash/internal/batch"
)

// Artifacts lists the paths written for one batch.
type Artifacts struct {
	CSV          string // <alias>_<ext>_hash.csv
	Text         string // <alias>_<ext>_hash.txt
	Concatenated string // <alias>_<ext>_hash_all_concat.txt
	HashOfHashes string // <alias>_<ext>_hash_of_hashes.txt
}

// All returns the four artifact paths in write order.
func (a Artifacts) All() []string {
	return []string{a.CSV, a.Text, a.Concatenated, a.HashOfHashes}
}

// Writer persists batch results to a destination folder.
//
// Existing files of the same name are silently overwritten; that is the
// documented behavior, not an accident. There is no transactional guarantee
// across the four artifacts: a failure while writing the third leaves the
// first two on disk.
type Writer struct {
	// Atomic switches each individual file to write-to-temp-then-rename.
	// This protects single files from torn writes; it does not add any
	// cross-file atomicity.
	Atomic bool
}

// Prefix returns the shared artifact file-name prefix for an alias and
// extension, e.g. "tokenMedia_png_hash". An empty extension keeps both
// underscores, matching the established output naming.
func Prefix(alias, extension string) string {
	return alias + "_" + extension + "_hash"
}

// Paths resolves the four artifact paths for a batch without writing them.
func Paths(alias, extension, destDir string) Artifacts {
	prefix := filepath.Join(destDir, Prefix(alias, extension))
	return Artifacts{
		CSV:          prefix + ".csv",
		Text:         prefix + ".txt",
		Concatenated: prefix + "_all_concat.txt",
		HashOfHashes: prefix + "_of_hashes.txt",
	}
}

// Persist writes the four artifacts for a batch result.
//
// The destination folder is created if absent (idempotent). Files are
// written in a fixed order: CSV, per-line text, concatenation, hash of
// hashes. Any I/O failure is fatal for the run but already-written
// artifacts are not removed.
func (w *Writer) Persist(alias, extension string, res *batch.Result, destDir string) (Artifacts, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return Artifacts{}, fmt.Errorf("create destination folder: %w", err)
	}

	paths := Paths(alias, extension, destDir)

	if err := w.writeFile(paths.CSV, csvBytes(alias, res)); err != nil {
		return paths, err
	}
	if err := w.writeFile(paths.Text, []byte(textBody(res))); err != nil {
		return paths, err
	}
	if err := w.writeFile(paths.Concatenated, []byte(res.Concatenated)); err != nil {
		return paths, err
	}
	if err := w.writeFile(paths.HashOfHashes, []byte(res.ProvenanceHash)); err != nil {
		return paths, err
	}
	return paths, nil
}

// csvBytes renders the delimited table: a header row, then one row per
// index. Semicolon delimiter, double-quote quoting, "\n" line terminator.
func csvBytes(alias string, res *batch.Result) []byte {
	var sb strings.Builder
	cw := csv.NewWriter(&sb)
	cw.Comma = ';'

	// strings.Builder never fails, so the csv writer cannot either.
	_ = cw.Write([]string{"token id", alias + " hash (sha256)"})
	for i := 0; i < res.Items.Len(); i++ {
		_ = cw.Write([]string{strconv.Itoa(i), res.Items.Digest(i)})
	}
	cw.Flush()

	return []byte(sb.String())
}

// textBody renders one digest per line in index order. A separator goes
// before every digest after the first, so N items produce exactly N lines
// with no leading or trailing blank line.
func textBody(res *batch.Result) string {
	return strings.Join(res.Items.Digests(), "\n")
}

func (w *Writer) writeFile(path string, data []byte) error {
	return WriteFile(path, data, w.Atomic)
}

// WriteFile writes a single output file, optionally atomically. Exposed for
// callers that emit extra files next to the four batch artifacts.
func WriteFile(path string, data []byte, atomic bool) error {
	if atomic {
		return writeFileAtomic(path, data)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the same directory and renames
// it over the destination, so readers never observe a half-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}
