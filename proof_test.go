package smtcore

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// bigIntComparer lets cmp.Diff treat *big.Int fields by numeric value
// instead of by pointer identity or unexported-field reflection, which
// reflect.DeepEqual would otherwise stumble on for differently-constructed
// big.Ints holding the same value.
var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

func buildTestTree(t *testing.T, n int) (*Tree, []string) {
	t.Helper()
	keys := make([]string, n)
	items := make(map[string]*big.Int, n)
	for i := 0; i < n; i++ {
		keys[i] = randomKey(t, i)
		items[keys[i]] = big.NewInt(1)
	}
	tree, err := BuildTree(NewInMemoryDatabase(), items)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	return tree, keys
}

// Law 2: round trip — Expand(Compress(p)) == p and Compress(Expand(cp)) == cp.
func TestCompressExpand_RoundTrip(t *testing.T) {
	tree, keys := buildTestTree(t, 20)

	for _, key := range keys {
		proof, err := GenerateProof(tree, key)
		if err != nil {
			t.Fatalf("GenerateProof: %v", err)
		}

		cp := Compress(proof)
		expanded, err := Expand(cp)
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		if !sameProof(expanded, proof) {
			t.Fatalf("Expand(Compress(p)) != p for key %q", key)
		}

		recompressed := Compress(expanded)
		if !sameCompactProof(cp, recompressed) {
			t.Fatalf("Compress(Expand(cp)) != cp for key %q", key)
		}
	}
}

// S4 / Law 7: bitmap consistency — popcount(bitmap) == len(present_siblings)
// and every present sibling differs from its depth's default.
func TestCompress_BitmapConsistency(t *testing.T) {
	tree, _ := buildTestTree(t, 1)

	proof, err := GenerateProof(tree, "pkg:cargo/y@1-absent")
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	cp := Compress(proof)

	if popcount(cp.Bitmap[:]) != len(cp.PresentSiblings) {
		t.Fatalf("popcount(bitmap)=%d, len(present)=%d", popcount(cp.Bitmap[:]), len(cp.PresentSiblings))
	}

	defaults := DefaultHashes()
	next := 0
	for d := 0; d < Depth; d++ {
		if bitSet(cp.Bitmap[:], d) {
			if cp.PresentSiblings[next] == defaults[d] {
				t.Fatalf("present sibling at bitmap index %d equals its default", d)
			}
			next++
		}
	}

	// S4: with one key present, almost every sibling of a queried absent
	// key is default; only the bits on the path shared with the one
	// present leaf (bounded by log2(#keys)+1 in expectation) should be 1.
	if len(cp.PresentSiblings) > 8 {
		t.Fatalf("expected very few non-default siblings with a single-key tree, got %d", len(cp.PresentSiblings))
	}
}

// S8: bitmap packing — low byte set decodes to bits {0..7}=1 and re-encodes
// identically.
func TestBitmapPacking(t *testing.T) {
	var bitmap [32]byte
	bitmap[0] = 0xff

	for d := 0; d < 8; d++ {
		if !bitSet(bitmap[:], d) {
			t.Fatalf("bit %d should be set", d)
		}
	}
	for d := 8; d < Depth; d++ {
		if bitSet(bitmap[:], d) {
			t.Fatalf("bit %d should not be set", d)
		}
	}
	if popcount(bitmap[:]) != 8 {
		t.Fatalf("popcount = %d, want 8", popcount(bitmap[:]))
	}

	// Re-encode: a proof whose siblings 0..7 are non-default compresses to
	// the same bitmap.
	defaults := DefaultHashes()
	p := &Proof{}
	copy(p.Siblings[:], defaults[:Depth])
	for d := 0; d < 8; d++ {
		p.Siblings[d] = defaults[d+1]
	}
	if got := Compress(p).Bitmap; got != bitmap {
		t.Fatalf("re-encoded bitmap = %x, want %x", got, bitmap)
	}
}

// S7: tamper detection — flipping one sibling byte must change the
// reconstructed root.
func TestGenerateProof_TamperDetection(t *testing.T) {
	tree, keys := buildTestTree(t, 20)
	proof, err := GenerateProof(tree, keys[0])
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}

	original := reconstructRoot(t, proof)
	if original != tree.Root() {
		t.Fatalf("sanity: proof does not reconstruct to tree root before tampering")
	}

	tampered := *proof
	tampered.Siblings[0][0] ^= 0xff
	tamperedRoot := reconstructRoot(t, &tampered)
	if tamperedRoot == tree.Root() {
		t.Fatalf("tampered proof still reconstructs to the correct root")
	}
}

// TestCompressExpand_DeepEqual re-runs the round trip via go-cmp instead of
// the hand-rolled sameProof helper, as a second, independent equality check.
func TestCompressExpand_DeepEqual(t *testing.T) {
	tree, keys := buildTestTree(t, 5)

	for _, key := range keys {
		proof, err := GenerateProof(tree, key)
		if err != nil {
			t.Fatalf("GenerateProof: %v", err)
		}
		expanded, err := Expand(Compress(proof))
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		if diff := cmp.Diff(proof, expanded, bigIntComparer); diff != "" {
			t.Fatalf("Expand(Compress(p)) differs from p for key %q (-want +got):\n%s", key, diff)
		}
	}
}

// spec.md §7 "Tree-inconsistency error during proof generation": a
// materialized path whose node has been dropped out from under the walk
// (corrupt persistence) must fail loudly rather than silently continue
// with a zero-valued node.
func TestGenerateProof_TreeInconsistency(t *testing.T) {
	tree, keys := buildTestTree(t, 20)

	root := tree.Root()
	nodeKey := []byte(NodePrefix + hex.EncodeToString(root[:]))
	if err := tree.db.Delete(nodeKey); err != nil {
		t.Fatalf("delete root node: %v", err)
	}

	_, err := GenerateProof(tree, keys[0])
	if !IsTreeInconsistencyError(err) {
		t.Fatalf("err = %v, want TreeInconsistencyError", err)
	}
}

func TestExpand_MalformedPopcountMismatch(t *testing.T) {
	cp := &CompactProof{}
	cp.Bitmap[0] = 0x01 // one bit set
	// but PresentSiblings left empty
	_, err := Expand(cp)
	if !IsMalformedProofError(err) {
		t.Fatalf("err = %v, want MalformedProofError", err)
	}
}

func sameProof(a, b *Proof) bool {
	if a.LeafIndex != b.LeafIndex {
		return false
	}
	if (a.Value == nil) != (b.Value == nil) {
		return false
	}
	if a.Value != nil && a.Value.Cmp(b.Value) != 0 {
		return false
	}
	return a.Siblings == b.Siblings
}

func sameCompactProof(a, b *CompactProof) bool {
	if a.LeafIndex != b.LeafIndex {
		return false
	}
	if (a.Value == nil) != (b.Value == nil) {
		return false
	}
	if a.Value != nil && a.Value.Cmp(b.Value) != 0 {
		return false
	}
	if a.Bitmap != b.Bitmap {
		return false
	}
	if len(a.PresentSiblings) != len(b.PresentSiblings) {
		return false
	}
	for i := range a.PresentSiblings {
		if a.PresentSiblings[i] != b.PresentSiblings[i] {
			return false
		}
	}
	return true
}
