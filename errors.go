package smtcore

import (
	"fmt"
	"math/big"
)

// Sentinel errors for conditions that carry no useful payload beyond their
// message (spec.md §7 taxonomy).
var (
	// ErrNilDatabase is returned when a nil Database is supplied to
	// BuildTree or ImportState.
	ErrNilDatabase = fmt.Errorf("database cannot be nil")

	// ErrDuplicatePath is returned when two distinct keys hash to the same
	// 256-bit path. Under SHA-256 this is assumed never to happen
	// (spec.md §4.B "Edge cases"); surfacing it as an error rather than
	// panicking lets callers decide how to treat a cryptographically
	// invalid input set.
	ErrDuplicatePath = fmt.Errorf("two distinct keys collided on the same leaf path")
)

// InvalidTreeDepthError is returned when a persisted TreeState declares a
// depth other than Depth — this module builds and imports depth-256 trees
// only (spec.md §3).
type InvalidTreeDepthError struct {
	Depth uint16
}

func (e InvalidTreeDepthError) Error() string {
	return fmt.Sprintf("invalid tree depth: expected %d, got %d", Depth, e.Depth)
}

// OutOfRangeError is returned when an index does not fit within the tree's
// depth.
type OutOfRangeError struct {
	Index *big.Int
	Depth uint16
}

func (e *OutOfRangeError) Error() string {
	maxIndex := new(big.Int).Lsh(big.NewInt(1), uint(e.Depth))
	return fmt.Sprintf("index %s out of range for depth %d (max: %s)", e.Index.String(), e.Depth, maxIndex.String())
}

// KeyNotFoundError is returned when a leaf is queried and not materialized
// (during operations that treat "missing" as an error rather than as a
// valid non-membership result — proof generation never returns this, per
// spec.md §7 "Missing-key during proof generation: not an error").
type KeyNotFoundError struct {
	Index *big.Int
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found at index: %s", e.Index.String())
}

// MalformedProofError is returned when a CompactProof's bitmap and
// PresentSiblings disagree (popcount mismatch), or an uncompressed Proof
// does not carry exactly Depth siblings (spec.md §4.D step 1, §7).
type MalformedProofError struct {
	Reason string
}

func (e *MalformedProofError) Error() string {
	return fmt.Sprintf("malformed proof: %s", e.Reason)
}

// IsMalformedProofError reports whether err is a *MalformedProofError.
func IsMalformedProofError(err error) bool {
	_, ok := err.(*MalformedProofError)
	return ok
}

// RootMismatchError is returned when a proof's reconstructed root disagrees
// with the expected root — a cryptographic failure per spec.md §7: "no
// retry, no recovery — the prover is either buggy or adversarial."
type RootMismatchError struct {
	Computed Bytes32
	Expected Bytes32
}

func (e *RootMismatchError) Error() string {
	return fmt.Sprintf("root mismatch: computed %s, expected %s", e.Computed, e.Expected)
}

// IsRootMismatchError reports whether err is a *RootMismatchError.
func IsRootMismatchError(err error) bool {
	_, ok := err.(*RootMismatchError)
	return ok
}

// TreeInconsistencyError is returned when GenerateProof or ExportState
// reaches a hash that is not the expected default for its depth yet has no
// materialized node — indicating corrupt persistence (spec.md §7). Stored
// nodes are not re-hashed to check them against their key.
type TreeInconsistencyError struct {
	Hash Bytes32
}

func (e *TreeInconsistencyError) Error() string {
	return fmt.Sprintf("tree inconsistency at node %s: not materialized and not a default hash", e.Hash)
}

// IsTreeInconsistencyError reports whether err is a *TreeInconsistencyError.
func IsTreeInconsistencyError(err error) bool {
	_, ok := err.(*TreeInconsistencyError)
	return ok
}
