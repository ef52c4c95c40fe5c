package smtcore

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// TreeState is the JSON-serializable form of a built tree: its materialized
// node map and leaf map, plus enough context (depth, default hashes) for a
// reader to reconstruct proofs without recomputing DefaultHashes itself.
// This mirrors spec.md §6's persistence layout exactly; where the bytes end
// up (file, object store, KV registry) is a caller decision, same as
// teacher's serialization.go left storage out of its (de)serialization
// helpers.
type TreeState struct {
	Depth          int               `json:"depth"`
	DefaultHashes  []string          `json:"defaultHashes"`
	Root           string            `json:"root"`
	Nodes          map[string]stateNode `json:"nodes"`
	Leaves         map[string]string `json:"leaves"`
}

type stateNode struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// ExportState walks every node reachable from tree's root and every
// materialized leaf, producing a JSON-ready TreeState. It does not touch
// tree's Database beyond reading it.
func ExportState(tree *Tree) (*TreeState, error) {
	defaults := DefaultHashes()
	state := &TreeState{
		Depth:         Depth,
		DefaultHashes: make([]string, len(defaults)),
		Root:          tree.root.Hex(),
		Nodes:         make(map[string]stateNode),
		Leaves:        make(map[string]string),
	}
	for i, d := range defaults {
		state.DefaultHashes[i] = d.Hex()
	}

	if err := collectNodes(tree, tree.root, Depth, state); err != nil {
		return nil, err
	}
	for indexDec, value := range tree.leaves {
		state.Leaves[indexDec] = value.String()
	}
	return state, nil
}

// collectNodes recursively walks materialized internal nodes starting at
// hash, levelsRemaining being the subtree height at hash, recording every
// node it finds. A hash equal to its depth's default is left alone —
// nothing was ever materialized there. Leaf values are exported separately
// from tree.leaves, since recovering a leaf's 256-bit index from this walk
// alone would require re-deriving it bit by bit; BuildTree and ImportState
// already keep the index->value map at hand.
func collectNodes(tree *Tree, hash Bytes32, levelsRemaining uint, state *TreeState) error {
	defaults := DefaultHashes()
	if hash == defaults[levelsRemaining] {
		return nil
	}
	if levelsRemaining == 0 {
		return nil
	}

	node, found, err := tree.getNode(hash)
	if err != nil { // coverage-ignore
		return err
	}
	if !found {
		return &TreeInconsistencyError{Hash: hash}
	}

	state.Nodes[hash.Hex()] = stateNode{Left: node.Left.Hex(), Right: node.Right.Hex()}

	if err := collectNodes(tree, node.Left, levelsRemaining-1, state); err != nil {
		return err
	}
	return collectNodes(tree, node.Right, levelsRemaining-1, state)
}

// ImportState rebuilds a Tree's Database from a TreeState previously
// produced by ExportState. The caller supplies the Database the tree should
// live in, same division as BuildTree.
func ImportState(db Database, state *TreeState) (*Tree, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	if state.Depth != Depth {
		return nil, &InvalidTreeDepthError{Depth: uint16(state.Depth)}
	}

	root, err := HexToBytes32(state.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root hex: %w", err)
	}

	tree := &Tree{db: db, root: root, leaves: make(map[string]*big.Int, len(state.Leaves))}

	for hashHex, n := range state.Nodes {
		hash, err := HexToBytes32(hashHex)
		if err != nil {
			return nil, fmt.Errorf("invalid node hash hex %q: %w", hashHex, err)
		}
		left, err := HexToBytes32(n.Left)
		if err != nil {
			return nil, fmt.Errorf("invalid node left hex %q: %w", n.Left, err)
		}
		right, err := HexToBytes32(n.Right)
		if err != nil {
			return nil, fmt.Errorf("invalid node right hex %q: %w", n.Right, err)
		}
		if err := tree.setNode(hash, &Node{Left: left, Right: right}); err != nil { // coverage-ignore
			return nil, err
		}
	}

	for indexDec, valueDec := range state.Leaves {
		index, ok := new(big.Int).SetString(indexDec, 10)
		if !ok {
			return nil, fmt.Errorf("invalid leaf index decimal %q", indexDec)
		}
		value, ok := new(big.Int).SetString(valueDec, 10)
		if !ok {
			return nil, fmt.Errorf("invalid leaf value decimal %q", valueDec)
		}
		if err := tree.setLeafValue(index, BigIntToBytes32(value)); err != nil { // coverage-ignore
			return nil, err
		}
		tree.leaves[indexDec] = value
	}

	return tree, nil
}

// MarshalTreeState is a convenience wrapper around ExportState + json.Marshal.
func MarshalTreeState(tree *Tree) ([]byte, error) {
	state, err := ExportState(tree)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(state, "", "  ")
}

// UnmarshalTreeState is a convenience wrapper around json.Unmarshal +
// ImportState.
func UnmarshalTreeState(db Database, data []byte) (*Tree, error) {
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return ImportState(db, &state)
}
