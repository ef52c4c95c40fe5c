package smtcore

import (
	"context"
	"errors"
	"math/big"
	"sort"

	"github.com/depshield/smtcore/internal/treebuild"
)

// Tree is the materialized result of BuildTree: a root hash plus the
// Database it and its internal nodes live in. It has no exported mutation
// methods — this core builds a tree once from a complete item set rather
// than maintaining one through incremental inserts (spec.md §1 Non-goals).
type Tree struct {
	db     Database
	root   Bytes32
	leaves map[string]*big.Int // leaf index (decimal string) -> value, for ExportState
}

// Root returns the tree's root hash.
func (t *Tree) Root() Bytes32 {
	return t.root
}

// treeSink adapts Tree's node storage to treebuild.Sink without the
// treebuild package importing this one.
type treeSink struct {
	tree *Tree
}

func (s treeSink) SetNode(hash, left, right treebuild.Bytes32) error {
	return s.tree.setNode(Bytes32(hash), &Node{Left: Bytes32(left), Right: Bytes32(right)})
}

// BuildTree builds a complete Sparse Merkle Tree from items (key -> leaf
// value) in a single pass: every key's 256-bit path is SHA256(key), sorted
// ascending, then recursively split most-significant-bit first
// (spec.md §4.B step 4). Only nodes whose children are not both the default
// hash for their depth are written to db; everything else is reconstructed
// on demand from DefaultHashes.
func BuildTree(db Database, items map[string]*big.Int) (*Tree, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	leaves := make([]treebuild.Leaf, 0, len(items))
	for key, value := range items {
		index := LeafIndex(key)
		leaves = append(leaves, treebuild.Leaf{
			Index: index,
			Hash:  treebuild.Bytes32(LeafHash(value)),
		})
	}

	sort.Slice(leaves, func(i, j int) bool {
		return leaves[i].Index.Cmp(leaves[j].Index) < 0
	})
	for i := 1; i < len(leaves); i++ {
		if leaves[i].Index.Cmp(leaves[i-1].Index) == 0 {
			return nil, ErrDuplicatePath
		}
	}

	defaultsArr := DefaultHashes()
	defaults := make([]treebuild.Bytes32, len(defaultsArr))
	for i, d := range defaultsArr {
		defaults[i] = treebuild.Bytes32(d)
	}

	tree := &Tree{db: db, leaves: make(map[string]*big.Int, len(items))}

	rootRaw, err := treebuild.Build(context.Background(), treeSink{tree: tree}, combineHash, defaults, leaves)
	if err != nil {
		if errors.Is(err, treebuild.ErrDuplicateLeaf) {
			return nil, ErrDuplicatePath
		}
		return nil, err
	}
	tree.root = Bytes32(rootRaw)

	for key, value := range items {
		index := LeafIndex(key)
		if err := tree.setLeafValue(index, BigIntToBytes32(value)); err != nil {
			return nil, err
		}
		tree.leaves[index.String()] = value
	}

	return tree, nil
}

func combineHash(left, right treebuild.Bytes32) treebuild.Bytes32 {
	return treebuild.Bytes32(InternalHash(Bytes32(left), Bytes32(right)))
}
