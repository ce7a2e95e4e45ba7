package whiteflag

import (
	"crypto"
	"math/bits"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

// Domain separation prefixes
const (
	LeafHashPrefix = 0
	NodeHashPrefix = 1
)

// Hasher implements the merkle tree hashing algorithm with domain separated leafs and nodes.
type Hasher struct {
	hash crypto.Hash
}

// NewHasher creates a new Hasher using the provided hash function.
func NewHasher(h crypto.Hash) *Hasher {
	return &Hasher{hash: h}
}

// Size returns the length, in bytes, of a digest resulting from the given hash function.
func (t *Hasher) Size() int {
	return t.hash.Size()
}

// EmptyRoot returns a special case for an empty tree.
// This is equivalent to Hash(nil).
func (t *Hasher) EmptyRoot() []byte {
	return t.hash.New().Sum(nil)
}

// Hash computes the merkle tree root hash of the given block IDs.
func (t *Hasher) Hash(blockIDs block.BlockIDs) []byte {
	if len(blockIDs) == 0 {
		return t.EmptyRoot()
	}
	if len(blockIDs) == 1 {
		return t.hashLeaf(blockIDs[0])
	}

	k := largestPowerOfTwo(len(blockIDs))
	return t.hashNode(t.Hash(blockIDs[:k]), t.Hash(blockIDs[k:]))
}

// hashLeaf returns the merkle tree leaf hash of the given block ID.
func (t *Hasher) hashLeaf(blockID block.BlockID) []byte {
	h := t.hash.New()
	h.Write([]byte{LeafHashPrefix})
	h.Write(blockID[:])
	return h.Sum(nil)
}

// hashNode returns the inner merkle tree node hash of the two child nodes l and r.
func (t *Hasher) hashNode(l, r []byte) []byte {
	h := t.hash.New()
	h.Write([]byte{NodeHashPrefix})
	h.Write(l)
	h.Write(r)
	return h.Sum(nil)
}

// largestPowerOfTwo returns the largest power of two less than n.
func largestPowerOfTwo(x int) int {
	if x < 2 {
		panic("invalid value")
	}
	return 1 << (bits.Len(uint(x-1)) - 1)
}
