// Package onchain renders commitments in the one on-chain-surface format
// spec.md §6's canonicalization rules carve out an exception for: hex
// strings prefixed with "0x" (every other wire surface is unprefixed
// lowercase hex). It is the sole surviving use of go-ethereum in this
// module — retained from the teacher's go.mod, but no longer for hashing
// (spec.md §1 restricts this core to SHA-256; go-ethereum's Keccak256 is
// dropped entirely, see DESIGN.md).
package onchain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	smt "github.com/depshield/smtcore"
)

// RootHash converts a core Bytes32 root into a go-ethereum common.Hash, the
// type an on-chain registry contract binding (out of scope for this core,
// spec.md §1) would expect for a bytes32 argument.
func RootHash(root smt.Bytes32) common.Hash {
	return common.Hash(root)
}

// EncodeRoot renders root as the 0x-prefixed hex string an on-chain
// registry call or event log uses, via hexutil rather than manual string
// concatenation.
func EncodeRoot(root smt.Bytes32) string {
	return hexutil.Encode(root[:])
}

// DecodeRoot parses a 0x-prefixed on-chain root hex string back into a
// core Bytes32, rejecting anything that isn't exactly 32 bytes.
func DecodeRoot(s string) (smt.Bytes32, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return smt.Bytes32{}, fmt.Errorf("onchain: invalid root hex %q: %w", s, err)
	}
	if len(raw) != 32 {
		return smt.Bytes32{}, fmt.Errorf("onchain: root must be 32 bytes, got %d", len(raw))
	}
	var b32 smt.Bytes32
	copy(b32[:], raw)
	return b32, nil
}
