// Package verify implements Component D of the pipeline on the host: the
// canonical, side-effect-free algorithm that reconstructs a root from a
// CompactProof and decides non-membership compliance against a banned list
// (spec.md §4.D). Package guest re-implements the same algorithm
// independently, so the two can be cross-checked against each other rather
// than trusting one shared code path (spec.md §1 "identical in semantics to
// a guest program").
package verify

import (
	"context"
	"crypto/sha256"
	"math/big"
	"sort"
	"strings"

	smt "github.com/depshield/smtcore"
)

// VerifyProof reconstructs the root implied by a CompactProof and reports
// whether it equals expectedRoot (spec.md §4.D steps 1-4). A malformed
// proof (bitmap/PresentSiblings popcount mismatch) is returned as an error
// before any hashing happens — per spec.md §7, a structural error is fatal
// for that proof, not a verification failure.
//
// bitmapOnes, usedProvided and usedDefaults are the diagnostic counts
// spec.md §6's "Verifier response" exposes.
func VerifyProof(expectedRoot smt.Bytes32, cp *smt.CompactProof) (computedRoot smt.Bytes32, matches bool, bitmapOnes, usedProvided, usedDefaults int, err error) {
	full, err := smt.Expand(cp)
	if err != nil {
		return smt.Bytes32{}, false, 0, 0, 0, err
	}

	bitmapOnes = popcount(cp.Bitmap[:])
	usedProvided = len(cp.PresentSiblings)
	usedDefaults = smt.Depth - usedProvided

	value := cp.Value
	if value == nil {
		value = big.NewInt(0)
	}
	current := smt.LeafHash(value)

	leafIndex := smt.Bytes32ToBigInt(full.LeafIndex)
	for d := 0; d < smt.Depth; d++ {
		sibling := full.Siblings[d]
		if smt.GetBit(leafIndex, uint(d)) == 0 {
			current = smt.InternalHash(current, sibling)
		} else {
			current = smt.InternalHash(sibling, current)
		}
	}

	return current, current == expectedRoot, bitmapOnes, usedProvided, usedDefaults, nil
}

func popcount(bitmap []byte) int {
	count := 0
	for _, b := range bitmap {
		for b != 0 {
			count += int(b & 1)
			b >>= 1
		}
	}
	return count
}

// KeyedProof pairs a queried key with the proof produced against it, the
// unit BatchVerify operates on.
type KeyedProof struct {
	Key   string
	Proof *smt.CompactProof
}

// Result is the aggregate outcome of a banned-list compliance check
// (spec.md §4.D "Aggregate decision").
type Result struct {
	ExpectedRoot      smt.Bytes32
	Verified          int
	Attempted         int
	Compliant         bool
	BannedListHash    smt.Bytes32
	BannedHashClaim   smt.Bytes32
	BannedHashOK      bool
	Violations        []string
	BitmapOnesTotal   int
	UsedProvidedTotal int
	UsedDefaultsTotal int
}

// BatchVerify verifies every proof in proofs against expectedRoot and
// computes the aggregate compliance bit: true iff every proof is
// structurally valid, every proof's reconstructed root matches
// expectedRoot, and every proof's value is zero (spec.md §4.D "Aggregate
// decision"). ctx is checked for cancellation between proofs, not within
// one (spec.md §5 "Suspension points").
//
// A single malformed or root-mismatched proof is fatal for the whole batch:
// BatchVerify returns immediately with the triggering error and no
// compliance decision (spec.md §7 "a single structural or cryptographic
// failure invalidates the batch result").
func BatchVerify(ctx context.Context, expectedRoot smt.Bytes32, proofs []KeyedProof, bannedList []string, claimedBannedHash smt.Bytes32) (*Result, error) {
	result := &Result{
		ExpectedRoot:    expectedRoot,
		Attempted:       len(proofs),
		Compliant:       true,
		BannedHashClaim: claimedBannedHash,
	}

	for _, kp := range proofs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		computed, matches, ones, provided, defaults, err := VerifyProof(expectedRoot, kp.Proof)
		if err != nil {
			return nil, err
		}
		if !matches {
			return nil, &smt.RootMismatchError{Computed: computed, Expected: expectedRoot}
		}

		result.Verified++
		result.BitmapOnesTotal += ones
		result.UsedProvidedTotal += provided
		result.UsedDefaultsTotal += defaults

		value := kp.Proof.Value
		if value != nil && value.Sign() != 0 {
			result.Compliant = false
			result.Violations = append(result.Violations, kp.Key)
		}
	}

	result.BannedListHash = BannedListHash(bannedList)
	result.BannedHashOK = result.BannedListHash == claimedBannedHash

	return result, nil
}

// BannedListHash computes spec.md §6's banned-list commitment. The source
// material leaves the canonical encoding ambiguous between a newline-joined
// string and a JSON-array serialization (spec.md §9 open question 1); this
// module pins: sort the list, drop duplicates, join with "\n", and hash
// with a trailing "\n" after the final element. A trailing delimiter means
// a single-entry list can never collide with a truncation of a longer one.
func BannedListHash(list []string) smt.Bytes32 {
	unique := make(map[string]struct{}, len(list))
	sorted := make([]string, 0, len(list))
	for _, k := range list {
		if _, seen := unique[k]; seen {
			continue
		}
		unique[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, k := range sorted {
		b.WriteString(k)
		b.WriteByte('\n')
	}
	return sha256.Sum256([]byte(b.String()))
}
