package whiteflag_test

import (
	"crypto"
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/whiteflag"
)

func randBlockID() block.BlockID {
	var blockID block.BlockID
	for i := range blockID {
		blockID[i] = byte(rand.Intn(256))
	}
	return blockID
}

func leafHash(blockID block.BlockID) []byte {
	sum := blake2b.Sum256(append([]byte{whiteflag.LeafHashPrefix}, blockID[:]...))
	return sum[:]
}

func nodeHash(l, r []byte) []byte {
	data := append([]byte{whiteflag.NodeHashPrefix}, l...)
	sum := blake2b.Sum256(append(data, r...))
	return sum[:]
}

func TestHasherEmptyRoot(t *testing.T) {
	hasher := whiteflag.NewHasher(crypto.BLAKE2b_256)

	// the empty root is the hash of the empty string
	expected, err := hex.DecodeString("0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8")
	require.NoError(t, err)

	require.Equal(t, expected, hasher.EmptyRoot())
	require.Equal(t, hasher.EmptyRoot(), hasher.Hash(block.BlockIDs{}))
	require.Len(t, hasher.EmptyRoot(), hasher.Size())
}

func TestHasherSingleLeaf(t *testing.T) {
	hasher := whiteflag.NewHasher(crypto.BLAKE2b_256)

	blockID := randBlockID()
	require.Equal(t, leafHash(blockID), hasher.Hash(block.BlockIDs{blockID}))
}

func TestHasherRoot(t *testing.T) {
	hasher := whiteflag.NewHasher(crypto.BLAKE2b_256)

	a, b, c := randBlockID(), randBlockID(), randBlockID()

	// two leaves from a single node
	require.Equal(t,
		nodeHash(leafHash(a), leafHash(b)),
		hasher.Hash(block.BlockIDs{a, b}))

	// three leaves split at the largest power of two
	require.Equal(t,
		nodeHash(nodeHash(leafHash(a), leafHash(b)), leafHash(c)),
		hasher.Hash(block.BlockIDs{a, b, c}))
}

func TestHasherOrderMatters(t *testing.T) {
	hasher := whiteflag.NewHasher(crypto.BLAKE2b_256)

	a, b := randBlockID(), randBlockID()
	require.NotEqual(t, hasher.Hash(block.BlockIDs{a, b}), hasher.Hash(block.BlockIDs{b, a}))
}

func TestHasherDeterministic(t *testing.T) {
	hasher := whiteflag.NewHasher(crypto.BLAKE2b_256)

	blockIDs := make(block.BlockIDs, 0, 7)
	for i := 0; i < 7; i++ {
		blockIDs = append(blockIDs, randBlockID())
	}

	require.Equal(t, hasher.Hash(blockIDs), hasher.Hash(blockIDs))
	require.Len(t, hasher.Hash(blockIDs), hasher.Size())
}
