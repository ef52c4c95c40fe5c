package batch

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	smt "github.com/depshield/smtcore"
)

func buildTree(t *testing.T, n int) (*smt.Tree, []string) {
	t.Helper()
	items := make(map[string]*big.Int, n)
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = keyFor(i)
		items[keys[i]] = big.NewInt(1)
	}
	tree, err := smt.BuildTree(smt.NewInMemoryDatabase(), items)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	return tree, keys
}

func keyFor(i int) string {
	return fmt.Sprintf("pkg:cargo/component-%d@1.0.0", i)
}

func TestProveBatch_AllKeysResolve(t *testing.T) {
	tree, keys := buildTree(t, 250)

	p := NewProcessor(tree, 32)
	results, err := p.ProveBatch(context.Background(), keys)
	if err != nil {
		t.Fatalf("ProveBatch: %v", err)
	}
	if len(results) != len(keys) {
		t.Fatalf("got %d results, want %d", len(results), len(keys))
	}

	byKey := make(map[string]ProofResult, len(results))
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("ProveBatch result for %q: %v", r.Key, r.Err)
		}
		byKey[r.Key] = r
	}
	for _, key := range keys {
		r, ok := byKey[key]
		if !ok {
			t.Fatalf("missing result for key %q", key)
		}
		if r.Proof.Value == nil || r.Proof.Value.Sign() == 0 {
			t.Fatalf("key %q expected a nonzero (present) value, got %v", key, r.Proof.Value)
		}
	}
}

// TestProveBatch_DeterministicOrder exercises the pool-backed leaf-index
// sort in proveChunk: feeding the same keys through in two different input
// orders must come back in the same (leaf-index) order both times.
func TestProveBatch_DeterministicOrder(t *testing.T) {
	tree, keys := buildTree(t, 64)

	reversed := make([]string, len(keys))
	for i, k := range keys {
		reversed[len(keys)-1-i] = k
	}

	// One chunk only: ProveBatch chunks by input-slice position before
	// proveChunk's leaf-index sort runs, so comparing two different input
	// orderings is only meaningful when both land in a single chunk —
	// otherwise the two runs partition keys into different chunks entirely
	// and sorting each chunk internally says nothing about global order.
	p := NewProcessor(tree, len(keys))
	forward, err := p.ProveBatch(context.Background(), keys)
	if err != nil {
		t.Fatalf("ProveBatch: %v", err)
	}
	backward, err := p.ProveBatch(context.Background(), reversed)
	if err != nil {
		t.Fatalf("ProveBatch: %v", err)
	}

	if len(forward) != len(backward) {
		t.Fatalf("got %d and %d results", len(forward), len(backward))
	}
	for i := range forward {
		if forward[i].Key != backward[i].Key {
			t.Fatalf("result %d: order diverged: %q vs %q", i, forward[i].Key, backward[i].Key)
		}
	}

	for i := 1; i < len(forward); i++ {
		prev := smt.LeafIndex(forward[i-1].Key)
		cur := smt.LeafIndex(forward[i].Key)
		if prev.Cmp(cur) >= 0 {
			t.Fatalf("results not strictly increasing by leaf index at %d", i)
		}
	}
}

func TestProveBatch_EmptyKeyList(t *testing.T) {
	tree, _ := buildTree(t, 5)
	p := NewProcessor(tree, 10)
	results, err := p.ProveBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("ProveBatch: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results for an empty key list, got %v", results)
	}
}

func TestProveBatch_DefaultsBatchSize(t *testing.T) {
	tree, keys := buildTree(t, 10)
	p := NewProcessor(tree, 0)
	if p.batchSize != 100 {
		t.Fatalf("batchSize = %d, want default 100", p.batchSize)
	}
	if _, err := p.ProveBatch(context.Background(), keys); err != nil {
		t.Fatalf("ProveBatch: %v", err)
	}
}

func TestProveBatch_CancelledContext(t *testing.T) {
	tree, keys := buildTree(t, 500)
	p := NewProcessor(tree, 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProveBatch(ctx, keys)
	if err == nil {
		t.Fatalf("expected an error from an already-cancelled context")
	}
}

func TestParallelProcessor_ProveAll(t *testing.T) {
	treeA, keysA := buildTree(t, 50)
	itemsB := make(map[string]*big.Int, 50)
	for i := 0; i < 50; i++ {
		itemsB[keyFor(1000+i)] = big.NewInt(1)
	}
	treeB, err := smt.BuildTree(smt.NewInMemoryDatabase(), itemsB)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	pp := NewParallelProcessor([]*smt.Tree{treeA, treeB}, 16)
	results, err := pp.ProveAll(context.Background(), keysA)
	if err != nil {
		t.Fatalf("ProveAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d result sets, want 2", len(results))
	}
	for i, rs := range results {
		if len(rs) != len(keysA) {
			t.Fatalf("tree %d: got %d results, want %d", i, len(rs), len(keysA))
		}
	}

	// treeA was built from exactly keysA, so every key is present there.
	for _, r := range results[0] {
		if r.Err != nil {
			t.Fatalf("treeA proof error: %v", r.Err)
		}
		if r.Proof.Value == nil || r.Proof.Value.Sign() == 0 {
			t.Fatalf("treeA: key %q should be present", r.Key)
		}
	}
	// treeB was built from a disjoint key set, so every queried key is
	// absent there (value == 0) rather than erroring.
	for _, r := range results[1] {
		if r.Err != nil {
			t.Fatalf("treeB proof error: %v", r.Err)
		}
		if r.Proof.Value != nil && r.Proof.Value.Sign() != 0 {
			t.Fatalf("treeB: key %q unexpectedly present", r.Key)
		}
	}
}
