// Package digest computes SHA-256 content digests for provenance attestation.
//
// All digests are lowercase hexadecimal strings. File hashing is streamed in
// fixed-size chunks so memory use is independent of file size.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Size is the length in characters of a hex-encoded SHA-256 digest.
const Size = sha256.Size * 2

// chunkSize is the read buffer size for streamed file hashing.
const chunkSize = 4096

// File computes the SHA-256 digest of the file at path.
//
// The file is read incrementally in chunkSize blocks; it is never loaded
// into memory whole. Returns the lowercase hex digest of the full byte
// contents, or an error if the file is missing or unreadable.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// String computes the SHA-256 digest of the UTF-8 bytes of s.
//
// No normalization is applied: if the input changed at all, the digest
// changes. This is the primitive used for hash-of-hashes aggregation.
func String(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
