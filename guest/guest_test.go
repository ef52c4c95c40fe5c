package guest

import (
	"context"
	"math/big"
	"testing"

	smt "github.com/depshield/smtcore"
	"github.com/depshield/smtcore/verify"
)

func buildTree(t *testing.T, items map[string]*big.Int) *smt.Tree {
	t.Helper()
	tree, err := smt.BuildTree(smt.NewInMemoryDatabase(), items)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	return tree
}

// TestExecute_AgreesWithHostVerifier cross-checks the guest program against
// package verify's independent implementation across a clean and a dirty
// banned-list scenario, the cross-check spec.md §1 calls for between a host
// verifier and its zkVM-guest equivalent.
func TestExecute_AgreesWithHostVerifier(t *testing.T) {
	cases := []struct {
		name       string
		items      map[string]*big.Int
		bannedList []string
	}{
		{
			name: "clean",
			items: map[string]*big.Int{
				"pkg:cargo/a@1": big.NewInt(1),
				"pkg:cargo/b@1": big.NewInt(1),
			},
			bannedList: []string{"pkg:npm/evil@1", "pkg:pypi/evil@1"},
		},
		{
			name: "one-hit",
			items: map[string]*big.Int{
				"pkg:npm/bad@1": big.NewInt(1),
				"pkg:cargo/a@1": big.NewInt(1),
			},
			bannedList: []string{"pkg:npm/bad@1", "pkg:go/fine@1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree := buildTree(t, tc.items)

			var keyed []verify.KeyedProof
			var claims []Claim
			for _, key := range tc.bannedList {
				proof, err := smt.GenerateProof(tree, key)
				if err != nil {
					t.Fatalf("GenerateProof: %v", err)
				}
				cp := smt.Compress(proof)
				keyed = append(keyed, verify.KeyedProof{Key: key, Proof: cp})

				claim, err := ExpandClaim(key, cp)
				if err != nil {
					t.Fatalf("ExpandClaim: %v", err)
				}
				claims = append(claims, claim)
			}

			bannedHash := verify.BannedListHash(tc.bannedList)

			hostResult, err := verify.BatchVerify(context.Background(), tree.Root(), keyed, tc.bannedList, bannedHash)
			if err != nil {
				t.Fatalf("host BatchVerify: %v", err)
			}

			guestOut, err := Execute(&Witness{
				ExpectedRoot: tree.Root(),
				BannedList:   tc.bannedList,
				Claims:       claims,
			})
			if err != nil {
				t.Fatalf("guest Execute: %v", err)
			}

			if guestOut.Compliant != hostResult.Compliant {
				t.Fatalf("compliance disagreement: guest=%v host=%v", guestOut.Compliant, hostResult.Compliant)
			}
			if guestOut.Root != tree.Root() {
				t.Fatalf("guest root = %s, want %s", guestOut.Root, tree.Root())
			}
			if guestOut.BannedListHash != bannedHash {
				t.Fatalf("guest banned-list hash = %s, want %s", guestOut.BannedListHash, bannedHash)
			}
		})
	}
}

func TestExecute_HaltsOnRootMismatch(t *testing.T) {
	tree := buildTree(t, map[string]*big.Int{"pkg:cargo/a@1": big.NewInt(1)})
	proof, err := smt.GenerateProof(tree, "pkg:cargo/a@1")
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	claim, err := ExpandClaim("pkg:cargo/a@1", smt.Compress(proof))
	if err != nil {
		t.Fatalf("ExpandClaim: %v", err)
	}

	wrongRoot := tree.Root()
	wrongRoot[0] ^= 0xff

	_, err = Execute(&Witness{ExpectedRoot: wrongRoot, Claims: []Claim{claim}})
	if err == nil {
		t.Fatalf("expected the guest to halt on a root mismatch")
	}
}

func TestExecute_HaltsOnIncompleteSiblingPath(t *testing.T) {
	claim := Claim{
		Identifier: "pkg:cargo/a@1",
		Value:      big.NewInt(0),
		Siblings:   make([]smt.Bytes32, 3), // short of smt.Depth
	}
	_, err := Execute(&Witness{Claims: []Claim{claim}})
	if err == nil {
		t.Fatalf("expected the guest to halt on an incomplete sibling path")
	}
}
