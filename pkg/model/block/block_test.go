package block_test

import (
	"crypto/ed25519"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

func randBytes(length int) []byte {
	b := make([]byte, length)
	for i := 0; i < length; i++ {
		b[i] = byte(rand.Intn(256))
	}
	return b
}

func randBlockID() block.BlockID {
	var blockID block.BlockID
	copy(blockID[:], randBytes(block.BlockIDLength))
	return blockID
}

func randParents(count int) block.BlockIDs {
	parents := make(block.BlockIDs, 0, count)
	for i := 0; i < count; i++ {
		parents = append(parents, randBlockID())
	}
	return parents.RemoveDupsAndSort()
}

func TestBlockIDStability(t *testing.T) {

	blk := &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         randParents(2),
		Payload:         &block.TaggedData{Tag: []byte("test")},
		Nonce:           42,
	}

	// the ID is the hash of the serialized block
	require.Equal(t, blk.ID(), blk.ID())

	// changing the nonce changes the ID
	modified := &block.Block{
		ProtocolVersion: blk.ProtocolVersion,
		Parents:         blk.Parents,
		Payload:         blk.Payload,
		Nonce:           blk.Nonce + 1,
	}
	require.NotEqual(t, blk.ID(), modified.ID())
}

func TestBlockSerialization(t *testing.T) {

	blk := &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         randParents(4),
		Payload:         &block.TaggedData{Tag: []byte("hello"), Data: []byte("world")},
		Nonce:           1337,
	}

	deserialized, err := block.BlockFromBytes(blk.Bytes())
	require.NoError(t, err)

	require.Equal(t, blk.ID(), deserialized.ID())
	require.Equal(t, blk.Parents, deserialized.Parents)
	require.Equal(t, blk.Nonce, deserialized.Nonce)
}

func TestBlockSyntacticValidation(t *testing.T) {

	// no parents
	blk := &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         block.BlockIDs{},
	}
	require.ErrorIs(t, blk.SyntacticallyValidate(), block.ErrInvalidParentsCount)

	// too many parents
	blk = &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         randParents(block.MaxParentsCount + 1),
	}
	require.ErrorIs(t, blk.SyntacticallyValidate(), block.ErrInvalidParentsCount)

	// duplicate parents
	parent := randBlockID()
	blk = &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         block.BlockIDs{parent, parent},
	}
	require.ErrorIs(t, blk.SyntacticallyValidate(), block.ErrParentsNotUnique)

	// unsorted parents
	sorted := randParents(4)
	unsorted := block.BlockIDs{sorted[1], sorted[0], sorted[2], sorted[3]}
	blk = &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         unsorted,
	}
	require.ErrorIs(t, blk.SyntacticallyValidate(), block.ErrParentsNotSorted)

	// valid block
	blk = &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         sorted,
		Payload:         &block.TaggedData{Tag: []byte("valid")},
	}
	require.NoError(t, blk.SyntacticallyValidate())
}

func TestMilestonePayloadSignatures(t *testing.T) {

	pubKey1, privKey1, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	pubKey2, privKey2, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var msPubKey1, msPubKey2 block.MilestonePublicKey
	copy(msPubKey1[:], pubKey1)
	copy(msPubKey2[:], pubKey2)

	keyMapping := block.MilestonePublicKeyMapping{
		msPubKey1: privKey1,
		msPubKey2: privKey2,
	}

	msPayload := &block.MilestonePayload{
		Index:     42,
		Timestamp: 4200,
		Parents:   randParents(2),
	}
	msPayload.Sign(keyMapping)
	require.Len(t, msPayload.Signatures, 2)

	applicablePubKeys := map[block.MilestonePublicKey]struct{}{
		msPubKey1: {},
		msPubKey2: {},
	}

	require.NoError(t, msPayload.VerifySignatures(2, applicablePubKeys))

	// verification against a threshold that is too high must fail
	err = msPayload.VerifySignatures(3, applicablePubKeys)
	require.ErrorIs(t, err, block.ErrMilestoneInvalidSignatureCount)

	// verification against non applicable keys must fail
	err = msPayload.VerifySignatures(2, map[block.MilestonePublicKey]struct{}{msPubKey1: {}})
	require.ErrorIs(t, err, block.ErrMilestoneNonApplicablePublicKey)

	// a tampered essence invalidates the signatures
	msPayload.Index++
	err = msPayload.VerifySignatures(2, applicablePubKeys)
	require.ErrorIs(t, err, block.ErrMilestoneSignatureInvalid)
}

func TestMilestonePayloadID(t *testing.T) {

	msPayload := &block.MilestonePayload{
		Index:     7,
		Timestamp: 700,
		Parents:   randParents(3),
	}

	// the milestone ID only depends on the essence, not on the signatures
	idBefore := msPayload.ID()

	pubKey, privKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var msPubKey block.MilestonePublicKey
	copy(msPubKey[:], pubKey)

	msPayload.Sign(block.MilestonePublicKeyMapping{msPubKey: privKey})
	require.Equal(t, idBefore, msPayload.ID())
}
