// Package manifest defines the YAML attestation record for a hashed batch.
//
// A manifest names a batch (alias, folder prefix, extension, count) together
// with its expected provenance hash. It is written after a successful run
// and consumed later to re-verify that the files on disk still produce the
// same fingerprint.
package manifest

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tokenforge/provhash/internal/batch"
)

// Manifest describes one attested batch.
type Manifest struct {
	// Alias labels the collection (e.g. "tokenMedia").
	Alias string `yaml:"alias"`

	// Folder is the input folder prefix the items were hashed from.
	Folder string `yaml:"folder"`

	// Extension is the item file extension, empty for none.
	Extension string `yaml:"extension"`

	// Count is the number of items in the batch.
	Count int `yaml:"count"`

	// ProvenanceHash is the expected hash of the concatenated item digests.
	ProvenanceHash string `yaml:"provenance_hash"`
}

// Validate checks required fields.
func (m *Manifest) Validate() error {
	if m.Alias == "" {
		return fmt.Errorf("invalid manifest: alias is required")
	}
	if m.Folder == "" {
		return fmt.Errorf("invalid manifest: folder is required")
	}
	if m.Count < 0 {
		return fmt.Errorf("invalid manifest: count must be >= 0, got %d", m.Count)
	}
	if m.ProvenanceHash == "" {
		return fmt.Errorf("invalid manifest: provenance_hash is required")
	}
	return nil
}

// Load reads and parses a manifest YAML file. Unknown fields are rejected
// to catch typos.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Write persists the manifest as YAML.
func Write(path string, m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// VerifyResult reports the outcome of re-hashing a manifest's batch.
type VerifyResult struct {
	// Expected is the provenance hash recorded in the manifest.
	Expected string

	// Actual is the provenance hash recomputed from the files on disk.
	Actual string
}

// OK reports whether the recomputed hash matches the attestation.
func (r VerifyResult) OK() bool {
	return r.Expected == r.Actual
}

// Verify re-hashes the batch the manifest describes and compares the
// provenance hash. A hashing failure (missing file, read error) is returned
// as an error; a clean mismatch is reported in the result, not as an error.
func Verify(m *Manifest) (VerifyResult, error) {
	res, err := batch.Run(m.Folder, m.Extension, m.Count)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("verify %s: %w", m.Alias, err)
	}
	return VerifyResult{Expected: m.ProvenanceHash, Actual: res.ProvenanceHash}, nil
}
