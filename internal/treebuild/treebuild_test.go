package treebuild

import (
	"context"
	"crypto/sha256"
	"math/big"
	"sort"
	"testing"
)

func sha256Combine(left, right Bytes32) Bytes32 {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var out Bytes32
	copy(out[:], h.Sum(nil))
	return out
}

func testDefaults() []Bytes32 {
	defaults := make([]Bytes32, Depth+1)
	leafZero := sha256.Sum256(make([]byte, 32))
	defaults[0] = Bytes32(leafZero)
	for i := 1; i <= Depth; i++ {
		defaults[i] = sha256Combine(defaults[i-1], defaults[i-1])
	}
	return defaults
}

type recordingSink struct {
	nodes map[Bytes32][2]Bytes32
}

func newRecordingSink() *recordingSink {
	return &recordingSink{nodes: make(map[Bytes32][2]Bytes32)}
}

func (s *recordingSink) SetNode(hash, left, right Bytes32) error {
	s.nodes[hash] = [2]Bytes32{left, right}
	return nil
}

func leafIndex(seed int64) *big.Int {
	h := sha256.Sum256(big.NewInt(seed).Bytes())
	return new(big.Int).SetBytes(h[:])
}

func TestBuild_EmptyYieldsRootDefault(t *testing.T) {
	defaults := testDefaults()
	sink := newRecordingSink()
	root, err := Build(context.Background(), sink, sha256Combine, defaults, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root != defaults[Depth] {
		t.Fatalf("root = %x, want defaults[Depth] = %x", root, defaults[Depth])
	}
	if len(sink.nodes) != 0 {
		t.Fatalf("expected no materialized nodes for an empty tree, got %d", len(sink.nodes))
	}
}

// Serial (small input, below parallelThreshold) and parallel (large input,
// above it) builds of the same leaf set must agree on the root — the
// threshold is a performance knob, not a semantic one.
func TestBuild_SerialAndParallelAgree(t *testing.T) {
	defaults := testDefaults()

	const n = parallelThreshold * 3
	leaves := make([]Leaf, n)
	for i := 0; i < n; i++ {
		idx := leafIndex(int64(i))
		leaves[i] = Leaf{Index: idx, Hash: sha256.Sum256(idx.Bytes())}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Index.Cmp(leaves[j].Index) < 0 })

	sinkBig := newRecordingSink()
	rootBig, err := Build(context.Background(), sinkBig, sha256Combine, defaults, leaves)
	if err != nil {
		t.Fatalf("Build (parallel-sized): %v", err)
	}

	small := leaves[:parallelThreshold/2]
	sinkSmall := newRecordingSink()
	rootSmall, err := Build(context.Background(), sinkSmall, sha256Combine, defaults, small)
	if err != nil {
		t.Fatalf("Build (serial-sized): %v", err)
	}

	// Rebuild the same small subset again to confirm determinism across
	// repeated serial-path runs (a weaker but reproducible proxy for
	// "parallel and serial code paths agree" since both the big and small
	// cases exercise the same recursive function, one above and one below
	// parallelThreshold).
	sinkSmallAgain := newRecordingSink()
	rootSmallAgain, err := Build(context.Background(), sinkSmallAgain, sha256Combine, defaults, small)
	if err != nil {
		t.Fatalf("Build (serial-sized, rerun): %v", err)
	}
	if rootSmall != rootSmallAgain {
		t.Fatalf("serial-path root not deterministic: %x != %x", rootSmall, rootSmallAgain)
	}
	if rootBig == (Bytes32{}) {
		t.Fatalf("parallel-path root unexpectedly zero")
	}
	if want := serialRoot(defaults, leaves, 0); rootBig != want {
		t.Fatalf("parallel-path root %x != serial reference root %x", rootBig, want)
	}
}

// serialRoot recomputes a root with the same MSB-first split as build, but
// strictly sequentially, as the reference the parallel path is checked
// against.
func serialRoot(defaults []Bytes32, leaves []Leaf, depthFromRoot uint) Bytes32 {
	levelsRemaining := Depth - depthFromRoot
	if len(leaves) == 0 {
		return defaults[levelsRemaining]
	}
	if levelsRemaining == 0 {
		return leaves[0].Hash
	}
	bitPos := int(Depth - 1 - depthFromRoot)
	splitAt := sort.Search(len(leaves), func(i int) bool { return leaves[i].Index.Bit(bitPos) == 1 })
	return sha256Combine(serialRoot(defaults, leaves[:splitAt], depthFromRoot+1), serialRoot(defaults, leaves[splitAt:], depthFromRoot+1))
}

func TestBuild_DuplicateLeafIndex(t *testing.T) {
	defaults := testDefaults()
	idx := leafIndex(7)
	leaves := []Leaf{
		{Index: idx, Hash: sha256.Sum256([]byte("a"))},
		{Index: idx, Hash: sha256.Sum256([]byte("b"))},
	}
	_, err := Build(context.Background(), newRecordingSink(), sha256Combine, defaults, leaves)
	if err == nil {
		t.Fatalf("expected ErrDuplicateLeaf")
	}
}

func TestBuild_SingleLeafReachesRoot(t *testing.T) {
	defaults := testDefaults()
	idx := leafIndex(42)
	leafHash := sha256.Sum256([]byte("value"))
	leaves := []Leaf{{Index: idx, Hash: leafHash}}

	sink := newRecordingSink()
	root, err := Build(context.Background(), sink, sha256Combine, defaults, leaves)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root == defaults[Depth] {
		t.Fatalf("single-leaf tree should not have the empty-tree root")
	}
	if len(sink.nodes) == 0 {
		t.Fatalf("expected at least one materialized node on the path to the leaf")
	}
}
