package smtcore

import (
	"math/big"
	"sync"
)

// defaultHashes holds D[0..Depth]: D[i] is the root hash of an all-empty
// subtree of height i. D[0] is the hash of an absent leaf (value 0);
// D[Depth] is the root of the fully empty tree (spec.md §3, §8 law 6).
//
// Grounded on CatsMeow492-nochat.io's transparency.initDefaultHashes, which
// precomputes the same table for its own 256-depth SHA-256 SMT; here D[0] is
// LeafHash(0), the hash of 32 zero bytes.
var (
	defaultHashesOnce sync.Once
	defaultHashes     [Depth + 1]Bytes32
)

// DefaultHashes returns the process-wide D[0..Depth] table, computing it
// once on first use. The table is immutable after initialization and safe
// for concurrent read (spec.md §5).
func DefaultHashes() [Depth + 1]Bytes32 {
	defaultHashesOnce.Do(initDefaultHashes)
	return defaultHashes
}

func initDefaultHashes() {
	defaultHashes[0] = LeafHash(big.NewInt(0))
	for i := 1; i <= Depth; i++ {
		defaultHashes[i] = InternalHash(defaultHashes[i-1], defaultHashes[i-1])
	}
}
