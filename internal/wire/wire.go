// Package wire defines the JSON request/response shapes spec.md §6 names as
// this core's only hard interface contract, plus the boundary translation
// between the compact and non-compact proof forms (spec.md §9 open
// question 2: only the compact form is verified internally).
package wire

import (
	"encoding/hex"
	"fmt"
	"math/big"

	smt "github.com/depshield/smtcore"
)

// BuildOutput is spec.md §6's "Build output": { "root": "<64-hex>", "depth": 256 }.
type BuildOutput struct {
	Root  string `json:"root"`
	Depth int    `json:"depth"`
}

// ProofRequest is spec.md §6's "Proof request".
type ProofRequest struct {
	Root     string   `json:"root"`
	Purls    []string `json:"purls"`
	Compress bool     `json:"compress"`
}

// MerkleProof is one entry of spec.md §6's "Proof output (compact)" /
// "Verifier request" merkle_proofs array. Bitmap is empty when the proof
// travels uncompressed, in which case Siblings must carry exactly
// smt.Depth entries.
type MerkleProof struct {
	Purl      string   `json:"purl"`
	Value     string   `json:"value"`
	LeafIndex string   `json:"leaf_index"`
	Siblings  []string `json:"siblings"`
	Bitmap    string   `json:"bitmap,omitempty"`
}

// ProofOutput is spec.md §6's "Proof output (compact)".
type ProofOutput struct {
	Depth        int           `json:"depth"`
	Root         string        `json:"root"`
	MerkleProofs []MerkleProof `json:"merkle_proofs"`
}

// VerifierRequest is spec.md §6's "Verifier request".
type VerifierRequest struct {
	Root         string        `json:"root"`
	MerkleProofs []MerkleProof `json:"merkle_proofs"`
}

// VerifierResponse is spec.md §6's "Verifier response". The last three
// fields are optional per-batch diagnostics, not required for the
// compliance decision itself.
type VerifierResponse struct {
	ComputedRoot         string `json:"computed_root"`
	ExpectedRoot         string `json:"expected_root"`
	Matches              bool   `json:"matches"`
	BitmapOnes           int    `json:"bitmap_ones,omitempty"`
	UsedProvidedSiblings int    `json:"used_provided_siblings,omitempty"`
	UsedDefaults         int    `json:"used_defaults,omitempty"`
}

// ToMerkleProof renders a key and its CompactProof into the wire shape. When
// compress is false, the proof is expanded back to its full Depth-length
// sibling array and the bitmap is left empty (spec.md §6 "When compress=false").
func ToMerkleProof(purl string, cp *smt.CompactProof, compress bool) (MerkleProof, error) {
	value := big.NewInt(0)
	if cp.Value != nil {
		value = cp.Value
	}

	mp := MerkleProof{
		Purl:      purl,
		Value:     value.String(),
		LeafIndex: cp.LeafIndex.Hex(),
	}

	if compress {
		mp.Siblings = make([]string, len(cp.PresentSiblings))
		for i, s := range cp.PresentSiblings {
			mp.Siblings[i] = s.Hex()
		}
		mp.Bitmap = hex.EncodeToString(cp.Bitmap[:])
		return mp, nil
	}

	full, err := smt.Expand(cp)
	if err != nil {
		return MerkleProof{}, err
	}
	mp.Siblings = make([]string, smt.Depth)
	for i, s := range full.Siblings {
		mp.Siblings[i] = s.Hex()
	}
	return mp, nil
}

// FromMerkleProof parses a wire MerkleProof back into a smt.CompactProof,
// re-compressing it first if it arrived uncompressed (spec.md §9 open
// question 2: only the compact form is verified internally). It never
// touches cp.Value beyond parsing it — missing-key-as-zero is a proof-
// generation concern, not a wire-decoding one.
func FromMerkleProof(mp MerkleProof) (*smt.CompactProof, error) {
	leafIndex, err := smt.HexToBytes32(mp.LeafIndex)
	if err != nil {
		return nil, fmt.Errorf("wire: invalid leaf_index: %w", err)
	}

	value, ok := new(big.Int).SetString(mp.Value, 10)
	if !ok {
		return nil, fmt.Errorf("wire: invalid decimal value %q", mp.Value)
	}

	if mp.Bitmap == "" {
		if len(mp.Siblings) != smt.Depth {
			return nil, &smt.MalformedProofError{
				Reason: fmt.Sprintf("uncompressed proof must carry exactly %d siblings, got %d", smt.Depth, len(mp.Siblings)),
			}
		}
		full := &smt.Proof{LeafIndex: leafIndex, Value: value}
		for i, s := range mp.Siblings {
			sib, err := smt.HexToBytes32(s)
			if err != nil {
				return nil, fmt.Errorf("wire: invalid sibling[%d]: %w", i, err)
			}
			full.Siblings[i] = sib
		}
		return smt.Compress(full), nil
	}

	bitmapRaw, err := hex.DecodeString(mp.Bitmap)
	if err != nil {
		return nil, fmt.Errorf("wire: invalid bitmap hex: %w", err)
	}
	if len(bitmapRaw) != 32 {
		return nil, &smt.MalformedProofError{Reason: fmt.Sprintf("bitmap must be 32 bytes, got %d", len(bitmapRaw))}
	}

	cp := &smt.CompactProof{LeafIndex: leafIndex, Value: value}
	copy(cp.Bitmap[:], bitmapRaw)
	cp.PresentSiblings = make([]smt.Bytes32, len(mp.Siblings))
	for i, s := range mp.Siblings {
		sib, err := smt.HexToBytes32(s)
		if err != nil {
			return nil, fmt.Errorf("wire: invalid sibling[%d]: %w", i, err)
		}
		cp.PresentSiblings[i] = sib
	}
	return cp, nil
}
