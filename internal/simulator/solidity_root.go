// Package simulator provides a third, independent computation of a
// CompactProof's root, modeled the way an on-chain verifier contract would
// walk the same proof in Solidity assembly: byte-slice hashing instead of
// this module's Bytes32/*big.Int types, and no shared code with package
// verify or package guest. Its only job is to give the cross-platform
// compatibility tests a third leg to stand on (spec.md §5, §8).
//
// This used to simulate a Keccak256-based Solidity contract (teacher's
// original role); retargeted to SHA-256 since spec.md §1 restricts this
// core to a single cryptographic primitive, so a Keccak-based third path
// would no longer agree with the other two by construction.
package simulator

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/depshield/smtcore/internal/testutils"
)

// OnChainRootSimulator simulates an on-chain SHA-256 Merkle verifier
// contract's computeRoot entry point.
type OnChainRootSimulator struct{}

// NewOnChainRootSimulator creates a new instance of the simulator.
func NewOnChainRootSimulator() *OnChainRootSimulator {
	return &OnChainRootSimulator{}
}

// ComputeRoot walks a compact proof's leaf-to-root path the way an on-chain
// verifier contract would: leaf, index, and bitmap given as hex strings,
// siblings as a bitmap-selected hex array in leaf-to-root order
// (spec.md §4.D). depth must be exactly 256 — this core builds no other
// depth.
func (s *OnChainRootSimulator) ComputeRoot(depth uint16, leaf, index, bitmap string, siblings []string) (string, error) {
	if depth != 256 {
		return "", fmt.Errorf("invalid tree depth: %d, this core only builds depth 256", depth)
	}

	leafBytes, err := testutils.HexToBytes(leaf)
	if err != nil {
		return "", fmt.Errorf("invalid leaf hex: %w", err)
	}
	if len(leafBytes) != 32 {
		return "", fmt.Errorf("leaf must be 32 bytes, got %d", len(leafBytes))
	}

	indexBig, err := testutils.HexToBigInt(index)
	if err != nil {
		return "", fmt.Errorf("invalid index hex: %w", err)
	}

	bitmapBig, err := testutils.HexToBigInt(bitmap)
	if err != nil {
		return "", fmt.Errorf("invalid bitmap hex: %w", err)
	}

	siblingBytes := make([][]byte, len(siblings))
	for i, sib := range siblings {
		siblingBytes[i], err = testutils.HexToBytes(sib)
		if err != nil {
			return "", fmt.Errorf("invalid sibling hex at index %d: %w", i, err)
		}
		if len(siblingBytes[i]) != 32 {
			return "", fmt.Errorf("sibling %d must be 32 bytes, got %d", i, len(siblingBytes[i]))
		}
	}

	current := make([]byte, 32)
	copy(current, leafBytes)

	nextProvided := 0
	for d := uint16(0); d < depth; d++ {
		var sibling []byte
		if bitmapBig.Bit(int(d)) == 1 {
			if nextProvided >= len(siblingBytes) {
				return "", fmt.Errorf("insufficient siblings: bitmap expects more than %d", len(siblingBytes))
			}
			sibling = siblingBytes[nextProvided]
			nextProvided++
		} else {
			sibling = s.defaultHash(d)[:]
		}

		if indexBig.Bit(int(d)) == 0 {
			current = s.combine(current, sibling)
		} else {
			current = s.combine(sibling, current)
		}
	}

	if nextProvided != len(siblingBytes) {
		return "", fmt.Errorf("bitmap popcount %d does not match %d provided siblings", nextProvided, len(siblingBytes))
	}

	return testutils.BytesToHex(current), nil
}

// combine hashes two 32-byte children with SHA-256, the only primitive this
// core's Component D uses (spec.md §1).
func (s *OnChainRootSimulator) combine(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// defaultHash recomputes D[0] and the recurrence up to the requested depth
// independently of smtcore.DefaultHashes, so this simulator shares no
// default-hash code path with the rest of the module either.
func (s *OnChainRootSimulator) defaultHash(depth uint16) [32]byte {
	d := sha256.Sum256(make([]byte, 32))
	for i := uint16(0); i < depth; i++ {
		buf := make([]byte, 64)
		copy(buf[0:32], d[:])
		copy(buf[32:64], d[:])
		d = sha256.Sum256(buf)
	}
	return d
}

// ValidateInputs validates the inputs for ComputeRoot without performing
// any hashing.
func (s *OnChainRootSimulator) ValidateInputs(depth uint16, leaf, index, bitmap string, siblings []string) error {
	if depth != 256 {
		return fmt.Errorf("invalid tree depth: %d, this core only builds depth 256", depth)
	}
	if _, err := testutils.HexToBytes(leaf); err != nil {
		return fmt.Errorf("invalid leaf hex format: %w", err)
	}

	indexBig, err := testutils.HexToBigInt(index)
	if err != nil {
		return fmt.Errorf("invalid index hex format: %w", err)
	}
	maxIndex := new(big.Int).Lsh(big.NewInt(1), uint(depth))
	if indexBig.Cmp(maxIndex) >= 0 {
		return fmt.Errorf("index %s exceeds maximum for tree depth %d", index, depth)
	}

	if _, err := testutils.HexToBigInt(bitmap); err != nil {
		return fmt.Errorf("invalid bitmap hex format: %w", err)
	}

	for i, sibling := range siblings {
		if _, err := testutils.HexToBytes(sibling); err != nil {
			return fmt.Errorf("invalid sibling hex format at index %d: %w", i, err)
		}
	}

	return nil
}
