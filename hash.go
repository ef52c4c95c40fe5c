package smtcore

import (
	"crypto/sha256"
	"math/big"
)

// sha256Sum hashes data with SHA-256 and returns it as a Bytes32.
//
// SHA-256 is the only cryptographic primitive in scope for this core (per
// spec.md §1): every leaf, internal-node and leaf-index hash in this package
// goes through this function. The banned-list hash (verify, guest) and the
// on-chain simulator call crypto/sha256 directly.
func sha256Sum(data []byte) Bytes32 {
	return sha256.Sum256(data)
}

// InternalHash computes the hash of an internal node: SHA256(left || right).
func InternalHash(left, right Bytes32) Bytes32 {
	buf := make([]byte, 64)
	copy(buf[0:32], left[:])
	copy(buf[32:64], right[:])
	return sha256Sum(buf)
}

// LeafHash computes the hash of a leaf holding value: SHA256(pad32(value)).
// value must be left-padded to 32 bytes before hashing so that value=0
// hashes identically to DefaultHashes()[0] (spec.md §3, §9).
func LeafHash(value *big.Int) Bytes32 {
	return sha256Sum(BigIntToBytes32(value)[:])
}
