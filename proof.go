package smtcore

import (
	"math/big"
)

// Proof is an uncompressed membership/non-membership proof: every one of
// the Depth siblings along the root-to-leaf path, whether or not each one
// is a default hash. Siblings is in leaf-to-root order: Siblings[0] is
// adjacent to the leaf, Siblings[Depth-1] is a child of the root (spec.md
// §3 "Proof(key)").
type Proof struct {
	LeafIndex Bytes32
	Value     *big.Int
	Siblings  [Depth]Bytes32
}

// CompactProof is a Proof with default-hash siblings elided: Bitmap has bit
// d set when Siblings[d] is not DefaultHashes()[d], in which case it is
// carried in PresentSiblings in ascending d order (spec.md §3
// "CompactProof(key)"). This is the wire-efficient form spec.md §4.C calls
// for.
type CompactProof struct {
	LeafIndex       Bytes32
	Value           *big.Int
	PresentSiblings []Bytes32
	Bitmap          [32]byte
}

// GenerateProof walks tree root-to-leaf for key, returning every sibling
// along the way. A key with no materialized leaf yields a valid
// non-membership proof (Value is nil) rather than an error — this is the
// ordinary "prove absence" case, not a failure (spec.md §7).
//
// The walk descends root-to-leaf (depthFromRoot 0..Depth-1, MSB-first,
// matching BuildTree's split), but the emitted Siblings array is indexed
// leaf-to-root per spec.md §4.C step 5 and §9's pinned convention: a
// sibling found while descending from depthFromRoot to depthFromRoot+1 is
// arrIdx = Depth-1-depthFromRoot levels above the leaf, so it is recorded
// at Siblings[arrIdx], not Siblings[depthFromRoot]. This is what makes the
// array line up bit-for-bit with package verify's leaf-to-root walk, which
// uses bit(d) of leaf_index (LSB first) directly against Siblings[d].
//
// The walk compares each child against DefaultHashes()[levelsRemaining]
// instead of the zero Bytes32 teacher's GenerateProofPath used, since an
// empty subtree's hash here depends on its depth. Once a step lands on a
// default hash, every remaining sibling down to the leaf is filled directly
// from the default table with no further Database reads — teacher's walk
// already treated current.IsZero() as "stop descending", this just widens
// that into "start filling from defaults." A non-default hash that the
// Database has no node for is not a sparse gap — BuildTree materializes
// every node whose children aren't both defaults — so that case returns
// TreeInconsistencyError instead of walking on with a zero-valued node
// (spec.md §7 "Tree-inconsistency error during proof generation").
func GenerateProof(tree *Tree, key string) (*Proof, error) {
	index := LeafIndex(key)
	proof := &Proof{LeafIndex: BigIntToBytes32(index)}

	defaults := DefaultHashes()
	current := tree.root
	hitDefault := false

	for d := uint(0); d < Depth; d++ {
		levelsRemaining := Depth - d
		arrIdx := levelsRemaining - 1 // = Depth-1-d

		if hitDefault || current == defaults[levelsRemaining] {
			hitDefault = true
			proof.Siblings[arrIdx] = defaults[arrIdx]
			continue
		}

		node, found, err := tree.getNode(current)
		if err != nil { // coverage-ignore
			return nil, err
		}
		if !found {
			// current isn't a default hash for this depth (checked above)
			// yet was never materialized — BuildTree only skips SetNode
			// when both children equal childDefault (build.go), so a
			// non-default hash with no stored node is corrupt persistence,
			// not a valid sparse gap.
			return nil, &TreeInconsistencyError{Hash: current}
		}

		bitPos := int(arrIdx)
		if GetBit(index, uint(bitPos)) == 0 {
			proof.Siblings[arrIdx] = node.Right
			current = node.Left
		} else {
			proof.Siblings[arrIdx] = node.Left
			current = node.Right
		}
	}

	if value, ok, err := tree.getLeafValue(index); err != nil { // coverage-ignore
		return nil, err
	} else if ok {
		proof.Value = Bytes32ToBigInt(value)
	}

	return proof, nil
}

// Compress elides every sibling in p that equals the default hash for its
// depth, recording which depths survive in the bitmap (spec.md §4.C).
func Compress(p *Proof) *CompactProof {
	defaults := DefaultHashes()
	cp := &CompactProof{
		LeafIndex: p.LeafIndex,
		Value:     p.Value,
	}
	for d := 0; d < Depth; d++ {
		if p.Siblings[d] == defaults[d] {
			continue
		}
		cp.PresentSiblings = append(cp.PresentSiblings, p.Siblings[d])
		cp.Bitmap[d/8] |= 1 << uint(d%8)
	}
	return cp
}

// Expand reconstructs a full Proof from a CompactProof, filling elided
// depths back in from DefaultHashes. It rejects a CompactProof whose
// PresentSiblings count disagrees with the bitmap's popcount before
// touching a hash function — the same posture other_examples' zorjak-smt
// sanityCheck takes against a malformed sidenode count, so a corrupt proof
// is rejected cheaply instead of walked (spec.md §7).
func Expand(cp *CompactProof) (*Proof, error) {
	want := popcount(cp.Bitmap[:])
	if want != len(cp.PresentSiblings) {
		return nil, &MalformedProofError{Reason: "bitmap popcount does not match PresentSiblings length"}
	}

	defaults := DefaultHashes()
	p := &Proof{LeafIndex: cp.LeafIndex, Value: cp.Value}

	next := 0
	for d := 0; d < Depth; d++ {
		if bitSet(cp.Bitmap[:], d) {
			p.Siblings[d] = cp.PresentSiblings[next]
			next++
		} else {
			p.Siblings[d] = defaults[d]
		}
	}

	return p, nil
}

func bitSet(bitmap []byte, d int) bool {
	return bitmap[d/8]&(1<<uint(d%8)) != 0
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
