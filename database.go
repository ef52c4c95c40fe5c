package smtcore

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
)

// Database key prefixes. Nodes are addressed by their hash (content-addressed,
// so a node materialized once is never rewritten); leaves are addressed by
// their 256-bit path since GenerateProof needs direct lookup by index.
const (
	NodePrefix = "n:"
	LeafPrefix = "l:"
)

// getNode retrieves a materialized internal node by its hash. The bool
// return reports whether anything was stored under hash at all — a hash
// that was never stored because its subtree is entirely default is *not*
// itself an error, but callers walking a non-default hash that still
// misses here have found genuine corruption (spec.md §7,
// TreeInconsistencyError): distinguish "default" from "corrupt" by
// comparing hash against DefaultHashes() before trusting a miss here.
func (t *Tree) getNode(hash Bytes32) (*Node, bool, error) {
	key := []byte(NodePrefix + hex.EncodeToString(hash[:]))
	data, err := t.db.Get(key)
	if err != nil { // coverage-ignore
		return nil, false, err
	}

	if len(data) == 0 {
		return &Node{}, false, nil
	}

	if len(data) != 64 { // coverage-ignore
		return nil, false, fmt.Errorf("invalid node data length: expected 64, got %d", len(data))
	}

	node := &Node{}
	copy(node.Left[:], data[0:32])
	copy(node.Right[:], data[32:64])

	return node, true, nil
}

// setNode stores a materialized internal node keyed by its own hash.
func (t *Tree) setNode(hash Bytes32, node *Node) error {
	key := []byte(NodePrefix + hex.EncodeToString(hash[:]))
	data := append(append([]byte{}, node.Left[:]...), node.Right[:]...)
	return t.db.Set(key, data)
}

// getLeafValue retrieves the value materialized at a 256-bit leaf path. The
// second return reports whether anything was stored there; a false return is
// the ordinary non-membership case, not an error.
func (t *Tree) getLeafValue(index *big.Int) (Bytes32, bool, error) {
	key := []byte(LeafPrefix + hex.EncodeToString(BigIntToBytes32(index)[:]))
	data, err := t.db.Get(key)
	if err != nil { // coverage-ignore
		return Bytes32{}, false, err
	}
	if len(data) == 0 {
		return Bytes32{}, false, nil
	}
	if len(data) != 32 { // coverage-ignore
		return Bytes32{}, false, fmt.Errorf("invalid leaf data length: expected 32, got %d", len(data))
	}
	var value Bytes32
	copy(value[:], data)
	return value, true, nil
}

// setLeafValue materializes a value at a 256-bit leaf path.
func (t *Tree) setLeafValue(index *big.Int, value Bytes32) error {
	key := []byte(LeafPrefix + hex.EncodeToString(BigIntToBytes32(index)[:]))
	return t.db.Set(key, value[:])
}

// InMemoryDatabase is a map-backed Database, the only storage backend this
// module ships. Production deployments (Redis, Postgres, a KV store)
// implement Database themselves; this one exists for tests, examples, and
// single-process callers.
type InMemoryDatabase struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewInMemoryDatabase creates an empty in-memory database.
func NewInMemoryDatabase() *InMemoryDatabase {
	return &InMemoryDatabase{
		data: make(map[string][]byte),
	}
}

// Get retrieves a value by key. A missing key returns (nil, nil), not an
// error.
func (db *InMemoryDatabase) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	value, exists := db.data[string(key)]
	if !exists {
		return nil, nil
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Set stores a key-value pair, copying value so later caller mutation can't
// corrupt stored state.
func (db *InMemoryDatabase) Set(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	storedValue := make([]byte, len(value))
	copy(storedValue, value)
	db.data[string(key)] = storedValue
	return nil
}

// Delete removes a key-value pair. Deleting an absent key is a no-op.
func (db *InMemoryDatabase) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.data, string(key))
	return nil
}

// Has reports whether a key is present.
func (db *InMemoryDatabase) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.data[string(key)]
	return exists, nil
}
