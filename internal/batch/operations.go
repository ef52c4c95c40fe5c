// Package batch fans a list of queried keys out to concurrent proof
// generation against one built tree. Teacher's BatchProcessor chunked
// mutable insert/update/delete calls against a CRUD tree; this core builds
// a tree once and only ever reads from it afterward (spec.md §1 Non-goals),
// so the batch unit here is GenerateProof, which spec.md §5 calls
// "embarrassingly parallel... independent" across keys.
package batch

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	smt "github.com/depshield/smtcore"
	"github.com/depshield/smtcore/internal/pool"
)

// ProofResult is one key's proof-generation outcome.
type ProofResult struct {
	Key   string
	Proof *smt.Proof
	Err   error
}

// Processor chunks a key list into bounded-size batches and generates a
// proof for every key concurrently within a batch, same chunk-then-fan-out
// shape as teacher's BatchProcessor, just reading instead of mutating.
type Processor struct {
	tree      *smt.Tree
	pool      *pool.BigIntPool
	batchSize int
}

// NewProcessor creates a Processor over an already-built tree.
func NewProcessor(tree *smt.Tree, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Processor{tree: tree, pool: pool.NewBigIntPool(), batchSize: batchSize}
}

// ProveBatch generates a non-membership/membership proof for every key in
// keys, chunking into batches of p.batchSize and generating each chunk's
// proofs concurrently. ctx is checked once per chunk boundary — a single
// proof's 256 hashes is too small a unit to interrupt mid-flight
// (spec.md §5 "Suspension points").
func (p *Processor) ProveBatch(ctx context.Context, keys []string) ([]ProofResult, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	results := make([]ProofResult, 0, len(keys))
	for start := 0; start < len(keys); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		end := start + p.batchSize
		if end > len(keys) {
			end = len(keys)
		}
		results = append(results, p.proveChunk(keys[start:end])...)
	}
	return results, nil
}

// proveChunk generates proofs for one chunk concurrently, one goroutine per
// key, bounded by the chunk size itself (chunks are already size-capped by
// p.batchSize). Results come back in leaf-index order rather than input
// order, mirroring BuildTree's own sort-by-path determinism (build.go) so
// that two calls over the same key set — regardless of how the caller
// ordered keys — agree byte-for-byte. The leaf-index scratch values used for
// that sort are borrowed from p.pool instead of allocated fresh per key,
// since a chunk can be thousands of keys and every one of them needs its
// own *big.Int just to be compared once.
func (p *Processor) proveChunk(keys []string) []ProofResult {
	results := make([]ProofResult, len(keys))
	indices := make([]*big.Int, len(keys))

	var wg sync.WaitGroup
	wg.Add(len(keys))
	for i, key := range keys {
		go func(i int, key string) {
			defer wg.Done()
			proof, err := smt.GenerateProof(p.tree, key)
			results[i] = ProofResult{Key: key, Proof: proof, Err: err}
			indices[i] = p.pool.GetCopy(smt.LeafIndex(key))
		}(i, key)
	}
	wg.Wait()

	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return indices[order[a]].Cmp(indices[order[b]]) < 0
	})

	ordered := make([]ProofResult, len(keys))
	for i, idx := range order {
		ordered[i] = results[idx]
	}
	for _, x := range indices {
		p.pool.Put(x)
	}

	return ordered
}

// ParallelProcessor fans ProveBatch out across several trees at once — the
// multi-tenant shape teacher's ParallelBatchProcessor used for several
// mutable CRUD trees, retargeted to several already-built, read-only ones
// (e.g. proving against multiple SBOM commitments in one request).
type ParallelProcessor struct {
	processors []*Processor
}

// NewParallelProcessor wraps one Processor per tree.
func NewParallelProcessor(trees []*smt.Tree, batchSize int) *ParallelProcessor {
	processors := make([]*Processor, len(trees))
	for i, tree := range trees {
		processors[i] = NewProcessor(tree, batchSize)
	}
	return &ParallelProcessor{processors: processors}
}

// ProveAll runs ProveBatch against every tree concurrently, keys shared
// across all of them, returning one result slice per tree in tree order.
func (pp *ParallelProcessor) ProveAll(ctx context.Context, keys []string) ([][]ProofResult, error) {
	results := make([][]ProofResult, len(pp.processors))
	errs := make([]error, len(pp.processors))

	var wg sync.WaitGroup
	wg.Add(len(pp.processors))
	for i, proc := range pp.processors {
		go func(i int, proc *Processor) {
			defer wg.Done()
			r, err := proc.ProveBatch(ctx, keys)
			results[i] = r
			errs[i] = err
		}(i, proc)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return results, nil
}
