package testsuite

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/bee-sub000/pkg/dag"
	"github.com/iotaledger/bee-sub000/pkg/keymanager"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/whiteflag"
)

// MockCoo issues signed milestones on top of the current tangle state.
type MockCoo struct {
	te *TestEnvironment

	cooPrivateKeys []ed25519.PrivateKey
	keyManager     *keymanager.KeyManager

	lastMilestonePayload *block.MilestonePayload
	lastMilestoneBlockID block.BlockID
}

func (coo *MockCoo) LastMilestonePayload() *block.MilestonePayload {
	return coo.lastMilestonePayload
}

func (coo *MockCoo) LastMilestoneIndex() milestone.Index {
	lastMilestonePayload := coo.LastMilestonePayload()
	if lastMilestonePayload == nil {
		return 0
	}

	return lastMilestonePayload.Index
}

// LastMilestoneID calculates the milestone ID of the last issued milestone.
func (coo *MockCoo) LastMilestoneID() block.MilestoneID {
	lastMilestonePayload := coo.LastMilestonePayload()
	if lastMilestonePayload == nil {
		// return null milestone ID
		return block.MilestoneID{}
	}

	return lastMilestonePayload.ID()
}

// LastPreviousMilestoneID returns the PreviousMilestoneID of the last issued milestone.
func (coo *MockCoo) LastPreviousMilestoneID() block.MilestoneID {
	lastMilestonePayload := coo.LastMilestonePayload()
	if lastMilestonePayload == nil {
		// return null milestone ID
		return block.MilestoneID{}
	}

	return lastMilestonePayload.PreviousMilestoneID
}

func (coo *MockCoo) LastMilestoneBlockID() block.BlockID {
	return coo.lastMilestoneBlockID
}

func (coo *MockCoo) LastMilestoneParents() block.BlockIDs {
	lastMilestonePayload := coo.LastMilestonePayload()
	if lastMilestonePayload == nil {
		// return genesis block ID
		return block.BlockIDs{block.EmptyBlockID}
	}

	return lastMilestonePayload.Parents
}

func (coo *MockCoo) storeBlock(blk *block.Block) block.BlockID {
	storableBlock, err := storage.NewBlock(blk) // no need to validate the bytes, they come pre-validated from the coo
	require.NoError(coo.te.TestInterface, err)
	cachedBlock := coo.te.StoreBlock(storableBlock) // block +1, no need to release, since we remember all the blocks for later cleanup

	milestonePayload := cachedBlock.Block().Milestone()
	if milestonePayload != nil {
		// block is a milestone
		coo.te.syncManager.SetLatestMilestoneIndex(milestonePayload.Index)
	}

	return storableBlock.BlockID()
}

func (coo *MockCoo) bootstrap() {
	coo.lastMilestonePayload = nil
	coo.lastMilestoneBlockID = block.EmptyBlockID
	_, _, err := coo.issueMilestoneOnTips(block.BlockIDs{}, true)
	require.NoError(coo.te.TestInterface, err)
}

func (coo *MockCoo) computeWhiteflag(index milestone.Index, timestamp uint32, parents block.BlockIDs) (*whiteflag.WhiteFlagMutations, error) {
	blocksMemcache := storage.NewBlocksMemcache(coo.te.storage.CachedBlock)
	metadataMemcache := storage.NewMetadataMemcache(coo.te.storage.CachedBlockMetadata)
	memcachedTraverserStorage := dag.NewMemcachedTraverserStorage(coo.te.storage, metadataMemcache)

	defer func() {
		// all releases are forced since the cone is referenced and not needed anymore
		memcachedTraverserStorage.Cleanup(true)

		// release all blocks at the end
		blocksMemcache.Cleanup(true)

		// release all block metadata at the end
		metadataMemcache.Cleanup(true)
	}()

	// compute the merkle tree roots
	return whiteflag.ComputeWhiteFlagMutations(context.Background(),
		coo.te.UTXOManager(),
		memcachedTraverserStorage,
		blocksMemcache.CachedBlock,
		coo.te.networkID,
		index,
		timestamp,
		parents)
}

func (coo *MockCoo) milestonePayload(parents block.BlockIDs) (*block.MilestonePayload, error) {

	sortedParents := parents.RemoveDupsAndSort()

	milestoneIndex := coo.LastMilestoneIndex() + 1
	milestoneTimestamp := uint32(milestoneIndex * 100)

	mutations, err := coo.computeWhiteflag(milestoneIndex, milestoneTimestamp, sortedParents)
	if err != nil {
		return nil, err
	}

	milestonePayload := &block.MilestonePayload{
		Index:               milestoneIndex,
		Timestamp:           milestoneTimestamp,
		PreviousMilestoneID: coo.LastMilestoneID(),
		Parents:             sortedParents,
		InclusionMerkleRoot: mutations.InclusionMerkleRoot,
		AppliedMerkleRoot:   mutations.AppliedMerkleRoot,
	}

	keyMapping := coo.keyManager.GetMilestonePublicKeyMappingForMilestoneIndex(milestoneIndex, coo.cooPrivateKeys, len(coo.cooPrivateKeys))
	milestonePayload.Sign(keyMapping)

	if err := milestonePayload.VerifySignatures(len(coo.cooPrivateKeys), coo.keyManager.GetPublicKeysSetForMilestoneIndex(milestoneIndex)); err != nil {
		return nil, err
	}

	return milestonePayload, nil
}

// issueMilestoneOnTips creates a milestone on top of the given tips.
func (coo *MockCoo) issueMilestoneOnTips(tips block.BlockIDs, addLastMilestoneAsParent bool) (*storage.Milestone, block.BlockID, error) {

	currentIndex := coo.LastMilestoneIndex()
	coo.te.VerifyLMI(currentIndex)
	milestoneIndex := currentIndex + 1

	fmt.Printf("Issue milestone %v\n", milestoneIndex)

	if addLastMilestoneAsParent {
		tips = append(tips, coo.LastMilestoneBlockID())
	}
	tips = tips.RemoveDupsAndSort()

	milestonePayload, err := coo.milestonePayload(tips)
	if err != nil {
		return nil, block.EmptyBlockID, err
	}

	milestoneBlock := &block.Block{
		ProtocolVersion: block.ProtocolVersion,
		Parents:         tips,
		Payload:         milestonePayload,
	}

	milestoneBlockID := coo.storeBlock(milestoneBlock)
	coo.lastMilestoneBlockID = milestoneBlockID

	coo.te.VerifyLMI(milestoneIndex)

	cachedMilestone := coo.te.storage.CachedMilestoneOrNil(milestoneIndex) // milestone +1
	require.NotNil(coo.te.TestInterface, cachedMilestone)

	coo.te.Milestones = append(coo.te.Milestones, cachedMilestone)
	coo.lastMilestonePayload = milestonePayload

	return cachedMilestone.Milestone(), milestoneBlockID, nil
}
