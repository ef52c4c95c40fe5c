// Package treebuild implements the recursive left/right split that turns a
// sorted slice of leaves into a Sparse Merkle Tree root. It is kept free of
// any dependency on the root smtcore package — the same arm's-length
// relationship teacher's internal/batch keeps from the root package — so it
// takes its hash function and default-hash table as parameters instead of
// importing them.
package treebuild

import (
	"context"
	"errors"
	"math/big"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Depth is the fixed tree depth this builder targets.
const Depth = 256

// Bytes32 mirrors smtcore.Bytes32 structurally; the two are converted at the
// package boundary in build.go.
type Bytes32 [32]byte

// Leaf is one path/value pair to place in the tree. Hash is the already
// computed LeafHash for the leaf's value; Build never hashes leaf values
// itself, only internal nodes.
type Leaf struct {
	Index *big.Int
	Hash  Bytes32
}

// Sink receives every internal node the build materializes, keyed by its
// own hash. Nodes whose children are both the default hash for that depth
// are never passed to Sink — they're reconstructible from the default table
// alone.
type Sink interface {
	SetNode(hash, left, right Bytes32) error
}

// HashFunc combines a left and right child hash into their parent's hash.
type HashFunc func(left, right Bytes32) Bytes32

// ErrDuplicateLeaf is returned when two leaves in the input carry the same
// Index — a genuine path collision, which SHA-256 input is assumed never to
// produce (spec.md §4.B "Edge cases") but which the builder still detects
// rather than silently dropping one leaf.
var ErrDuplicateLeaf = errors.New("treebuild: duplicate leaf index")

// parallelThreshold is the minimum leaf-slice length at which Build forks
// its two recursive calls into goroutines instead of walking serially.
// Below it, goroutine setup costs more than the hashing it would overlap —
// the same size-gated fan-out internal/batch uses for its chunking.
const parallelThreshold = 64

// Build partitions leaves (which must already be sorted ascending by Index)
// bit by bit from the most significant bit down, combining subtree hashes
// with combine and writing every materialized node to sink. defaults[d] is
// the known hash of an empty subtree with d levels remaining above the
// leaves (defaults[0] is a leaf-level default, defaults[Depth] is the empty
// tree's root).
func Build(ctx context.Context, sink Sink, combine HashFunc, defaults []Bytes32, leaves []Leaf) (Bytes32, error) {
	return build(ctx, sink, combine, defaults, leaves, 0)
}

func build(ctx context.Context, sink Sink, combine HashFunc, defaults []Bytes32, leaves []Leaf, depthFromRoot uint) (Bytes32, error) {
	levelsRemaining := Depth - depthFromRoot

	if len(leaves) == 0 {
		return defaults[levelsRemaining], nil
	}

	if levelsRemaining == 0 {
		if len(leaves) > 1 {
			return Bytes32{}, ErrDuplicateLeaf
		}
		return leaves[0].Hash, nil
	}

	bitPos := int(Depth - 1 - depthFromRoot)
	splitAt := sort.Search(len(leaves), func(i int) bool {
		return leaves[i].Index.Bit(bitPos) == 1
	})
	left, right := leaves[:splitAt], leaves[splitAt:]

	var leftHash, rightHash Bytes32
	var err error

	if len(leaves) >= parallelThreshold && len(left) > 0 && len(right) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			h, e := build(gctx, sink, combine, defaults, left, depthFromRoot+1)
			leftHash = h
			return e
		})
		g.Go(func() error {
			h, e := build(gctx, sink, combine, defaults, right, depthFromRoot+1)
			rightHash = h
			return e
		})
		if err = g.Wait(); err != nil {
			return Bytes32{}, err
		}
	} else {
		if leftHash, err = build(ctx, sink, combine, defaults, left, depthFromRoot+1); err != nil {
			return Bytes32{}, err
		}
		if rightHash, err = build(ctx, sink, combine, defaults, right, depthFromRoot+1); err != nil {
			return Bytes32{}, err
		}
	}

	parent := combine(leftHash, rightHash)

	childDefault := defaults[levelsRemaining-1]
	if leftHash != childDefault || rightHash != childDefault {
		if err := sink.SetNode(parent, leftHash, rightHash); err != nil {
			return Bytes32{}, err
		}
	}

	return parent, nil
}
