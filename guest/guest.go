// Package guest is the deterministic program whose execution a
// zero-knowledge virtual machine would certify: it implements Component D
// (spec.md §4.D) a second time, independently of package verify, so the
// two serve as a correctness cross-check on each other rather than sharing
// one verification code path (spec.md §1: "identical in semantics to a
// guest program that runs inside a zero-knowledge virtual machine").
//
// Only three values are ever committed as this program's public outputs:
// the expected root, the banned-list hash, and the compliance bit
// (spec.md §4.D "Public outputs"). Everything else — leaf indices, sibling
// hashes, individual values — is private witness and never leaves Execute's
// return value in a form a caller could mistake for a public commitment.
package guest

import (
	"crypto/sha256"
	"math/big"
	"sort"
	"strings"

	smt "github.com/depshield/smtcore"
)

// Witness is everything the guest needs privately: the root it's asked to
// confirm, one membership/non-membership claim per banned identifier, and
// the banned list itself (to recompute its commitment).
type Witness struct {
	ExpectedRoot smt.Bytes32
	BannedList   []string
	Claims       []Claim
}

// Claim is one banned identifier's private witness: its leaf index, its
// claimed value, and the sibling path from leaf to root.
type Claim struct {
	Identifier string
	LeafIndex  smt.Bytes32
	Value      *big.Int
	Siblings   []smt.Bytes32 // always exactly smt.Depth entries, already expanded
	Bitmap     [32]byte
}

// PublicOutputs is exactly what spec.md §4.D says the guest commits: the
// root, the banned-list hash, and the compliance bit. Nothing else.
type PublicOutputs struct {
	Root           smt.Bytes32
	BannedListHash smt.Bytes32
	Compliant      bool
}

// haltReason names why Execute could not produce a public output at all —
// a malformed or cryptographically inconsistent witness halts the guest
// program rather than letting it commit to a false compliance bit
// (spec.md §7: "no retry, no recovery").
type haltReason struct {
	msg string
}

func (h *haltReason) Error() string { return h.msg }

// Execute runs the guest program over a private Witness and returns the
// three values it would commit publicly, or an error if the witness does
// not let the program reach a well-defined state.
func Execute(w *Witness) (PublicOutputs, error) {
	for _, claim := range w.Claims {
		root, err := walkToRoot(claim)
		if err != nil {
			return PublicOutputs{}, err
		}
		if root != w.ExpectedRoot {
			return PublicOutputs{}, &haltReason{msg: "guest: claim does not chain to expected root"}
		}
	}

	compliant := true
	for _, claim := range w.Claims {
		if claim.Value != nil && claim.Value.Sign() != 0 {
			compliant = false
			break
		}
	}

	return PublicOutputs{
		Root:           w.ExpectedRoot,
		BannedListHash: commitBannedList(w.BannedList),
		Compliant:      compliant,
	}, nil
}

// walkToRoot is this package's independent re-derivation of spec.md §4.D
// steps 2-3: start from the leaf hash of the claimed value, fold in each
// sibling according to the corresponding bit of the leaf index, bit 0
// (least significant) first.
func walkToRoot(c Claim) (smt.Bytes32, error) {
	if len(c.Siblings) != smt.Depth {
		return smt.Bytes32{}, &haltReason{msg: "guest: witness does not carry a full sibling path"}
	}

	value := c.Value
	if value == nil {
		value = big.NewInt(0)
	}

	node := smt.LeafHash(value)
	path := smt.Bytes32ToBigInt(c.LeafIndex)

	for depth := 0; depth < smt.Depth; depth++ {
		sib := c.Siblings[depth]
		if path.Bit(depth) == 0 {
			node = smt.InternalHash(node, sib)
		} else {
			node = smt.InternalHash(sib, node)
		}
	}
	return node, nil
}

// commitBannedList re-derives the same canonical encoding package verify
// pins (spec.md §9 open question 1), independently, rather than importing
// verify.BannedListHash — the whole point of a second implementation is
// that it shares no code path with the first.
func commitBannedList(list []string) smt.Bytes32 {
	seen := make(map[string]bool, len(list))
	unique := make([]string, 0, len(list))
	for _, id := range list {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	sort.Strings(unique)

	var sb strings.Builder
	for _, id := range unique {
		sb.WriteString(id)
		sb.WriteByte('\n')
	}
	return sha256.Sum256([]byte(sb.String()))
}

// ExpandClaim builds a Claim from a smt.CompactProof, the form the host
// side actually hands the guest across the zkVM boundary — expanding the
// bitmap-compressed siblings is part of the guest's own witness
// preparation, not something it trusts the host to have done correctly.
func ExpandClaim(identifier string, cp *smt.CompactProof) (Claim, error) {
	full, err := smt.Expand(cp)
	if err != nil {
		return Claim{}, err
	}
	siblings := make([]smt.Bytes32, smt.Depth)
	copy(siblings, full.Siblings[:])
	return Claim{
		Identifier: identifier,
		LeafIndex:  cp.LeafIndex,
		Value:      cp.Value,
		Siblings:   siblings,
		Bitmap:     cp.Bitmap,
	}, nil
}
