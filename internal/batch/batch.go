// Package batch hashes a numbered sequence of files and aggregates the
// per-item digests into a single provenance fingerprint.
//
// The input layout is fixed by convention: item i lives at
// <prefix><i>.<extension>, or <prefix><i> when the extension is empty. A
// batch is all indices in [0, count). A missing file at any index is a
// failure, never a skipped entry, and aborts the run before later indices
// are touched.
package batch

import (
	"fmt"
	"strings"

	"github.com/tokenforge/provhash/internal/digest"
)

// Collection is an ordered mapping from item index to content digest.
//
// Iteration order is always ascending index order; index i holds exactly the
// digest of item i. Downstream aggregation and persistence depend on this
// ordering, so Collection is a slice, not a map.
type Collection struct {
	digests []string
}

// Len returns the number of items in the collection.
func (c *Collection) Len() int {
	return len(c.digests)
}

// Digest returns the digest for index i.
// Panics if i is out of range, matching slice semantics.
func (c *Collection) Digest(i int) string {
	return c.digests[i]
}

// Digests returns the digests in ascending index order.
// The returned slice is a copy; mutating it does not affect the collection.
func (c *Collection) Digests() []string {
	out := make([]string, len(c.digests))
	copy(out, c.digests)
	return out
}

// Result holds the aggregate outputs for one batch.
type Result struct {
	// Items is the per-index digest collection.
	Items *Collection

	// Concatenated is every digest joined in ascending index order with no
	// separator.
	Concatenated string

	// ProvenanceHash is SHA256 of the UTF-8 bytes of Concatenated. Any
	// change to any single item's content changes this value.
	ProvenanceHash string
}

// ItemPath builds the conventional path for item i.
//
// The extension is appended with a separating dot; an empty extension means
// no suffix and no dot. The prefix is used verbatim, it may be a directory
// path ending in a separator or carry a file-name stem.
func ItemPath(prefix, extension string, i int) string {
	if extension == "" {
		return fmt.Sprintf("%s%d", prefix, i)
	}
	return fmt.Sprintf("%s%d.%s", prefix, i, extension)
}

// HashRange hashes items 0..count-1 in ascending order.
//
// Fail-fast: the first missing or unreadable file aborts the batch and no
// partial collection is returned; indices past the failure are never read.
// A negative count is rejected with INVALID_COUNT before any I/O.
// count == 0 yields an empty collection.
func HashRange(prefix, extension string, count int) (*Collection, error) {
	if count < 0 {
		return nil, newCountError(count)
	}

	c := &Collection{digests: make([]string, 0, count)}
	for i := 0; i < count; i++ {
		path := ItemPath(prefix, extension, i)
		d, err := digest.File(path)
		if err != nil {
			return nil, newHashError(i, path, err)
		}
		c.digests = append(c.digests, d)
	}
	return c, nil
}

// Aggregate concatenates all digests in ascending index order and hashes the
// concatenation.
//
// The provenance hash is computed over the UTF-8 encoding of the joined hex
// string, not over the raw bytes of the original files. Deterministic for a
// given collection; order-sensitive. An empty collection yields the empty
// concatenation and SHA256("").
func Aggregate(c *Collection) *Result {
	concat := strings.Join(c.digests, "")
	return &Result{
		Items:          c,
		Concatenated:   concat,
		ProvenanceHash: digest.String(concat),
	}
}

// Run hashes the full range and aggregates it in one step.
func Run(prefix, extension string, count int) (*Result, error) {
	c, err := HashRange(prefix, extension, count)
	if err != nil {
		return nil, err
	}
	return Aggregate(c), nil
}
