package testsuite

import (
	"crypto/ed25519"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/bee-sub000/pkg/dag"
	"github.com/iotaledger/bee-sub000/pkg/keymanager"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
	"github.com/iotaledger/bee-sub000/pkg/whiteflag"
)

// configureCoordinator configures a new coordinator mock with clean state for the tests.
// the network is bootstrapped and the first milestone is confirmed.
func (te *TestEnvironment) configureCoordinator(cooPrivateKeys []ed25519.PrivateKey, keyManager *keymanager.KeyManager) {

	te.coo = &MockCoo{
		te:             te,
		cooPrivateKeys: cooPrivateKeys,
		keyManager:     keyManager,
	}

	te.coo.bootstrap()

	blocksMemcache := storage.NewBlocksMemcache(te.storage.CachedBlock)
	metadataMemcache := storage.NewMetadataMemcache(te.storage.CachedBlockMetadata)
	memcachedTraverserStorage := dag.NewMemcachedTraverserStorage(te.storage, metadataMemcache)

	defer func() {
		// all releases are forced since the cone is referenced and not needed anymore
		memcachedTraverserStorage.Cleanup(true)

		// release all blocks at the end
		blocksMemcache.Cleanup(true)

		// release all block metadata at the end
		metadataMemcache.Cleanup(true)
	}()

	confirmedMilestoneStats, _, err := whiteflag.ConfirmMilestone(
		te.UTXOManager(),
		memcachedTraverserStorage,
		blocksMemcache.CachedBlock,
		te.networkID,
		te.coo.LastMilestoneBlockID(),
		te.coo.LastMilestonePayload(),
		te.serverMetrics,
		// Hint: Ledger is write locked
		nil,
		// Hint: Ledger is write locked
		func(confirmation *whiteflag.Confirmation) {
			err := te.syncManager.SetConfirmedMilestoneIndex(confirmation.MilestoneIndex, true)
			require.NoError(te.TestInterface, err)
		},
		// Hint: Ledger is not locked
		nil,
		// Hint: Ledger is not locked
		nil,
	)
	require.NoError(te.TestInterface, err)
	require.Equal(te.TestInterface, 1, confirmedMilestoneStats.BlocksReferenced) // 1 for the milestone itself
}

func (te *TestEnvironment) milestoneIDForIndex(msIndex milestone.Index) block.MilestoneID {
	cachedMilestone := te.storage.CachedMilestoneOrNil(msIndex) // milestone +1
	require.NotNil(te.TestInterface, cachedMilestone)
	defer cachedMilestone.Release(true) // milestone -1
	return cachedMilestone.Milestone().MilestoneID
}

func (te *TestEnvironment) milestoneForIndex(msIndex milestone.Index) *storage.Milestone {
	cachedMilestone := te.storage.CachedMilestoneOrNil(msIndex) // milestone +1
	require.NotNil(te.TestInterface, cachedMilestone)
	defer cachedMilestone.Release(true) // milestone -1
	return cachedMilestone.Milestone()
}

// ReattachBlock stores the block under a new block ID by changing its parents.
func (te *TestEnvironment) ReattachBlock(blockID block.BlockID, parents ...block.BlockID) block.BlockID {
	cachedBlock := te.storage.CachedBlockOrNil(blockID) // block +1
	require.NotNil(te.TestInterface, cachedBlock)
	defer cachedBlock.Release(true) // block -1

	blk := cachedBlock.Block().Block()

	newParents := blk.Parents
	if len(parents) > 0 {
		newParents = block.BlockIDs(parents).RemoveDupsAndSort()
	}

	newBlock := &block.Block{
		ProtocolVersion: blk.ProtocolVersion,
		Parents:         newParents,
		Payload:         blk.Payload,
		Nonce:           blk.Nonce + 1,
	}

	storedBlock, err := storage.NewBlock(newBlock)
	require.NoError(te.TestInterface, err)
	require.NotEqual(te.TestInterface, blockID, storedBlock.BlockID())

	storedCachedBlock := te.StoreBlock(storedBlock)
	require.NotNil(te.TestInterface, storedCachedBlock)

	return storedBlock.BlockID()
}

// PerformWhiteFlagConfirmation confirms the milestone payload by applying
// the white-flag mutations of its cone to the ledger.
func (te *TestEnvironment) PerformWhiteFlagConfirmation(milestoneBlockID block.BlockID, milestonePayload *block.MilestonePayload) (*whiteflag.Confirmation, *whiteflag.ConfirmedMilestoneStats, error) {

	blocksMemcache := storage.NewBlocksMemcache(te.storage.CachedBlock)
	metadataMemcache := storage.NewMetadataMemcache(te.storage.CachedBlockMetadata)
	memcachedTraverserStorage := dag.NewMemcachedTraverserStorage(te.storage, metadataMemcache)

	defer func() {
		// all releases are forced since the cone is referenced and not needed anymore
		memcachedTraverserStorage.Cleanup(true)

		// release all blocks at the end
		blocksMemcache.Cleanup(true)

		// release all block metadata at the end
		metadataMemcache.Cleanup(true)
	}()

	var wfConf *whiteflag.Confirmation
	var newOutputs utxo.Outputs
	var newSpents utxo.Spents

	confirmedMilestoneStats, _, err := whiteflag.ConfirmMilestone(
		te.UTXOManager(),
		memcachedTraverserStorage,
		blocksMemcache.CachedBlock,
		te.networkID,
		milestoneBlockID,
		milestonePayload,
		te.serverMetrics,
		// Hint: Ledger is write locked
		nil,
		// Hint: Ledger is write locked
		func(confirmation *whiteflag.Confirmation) {
			wfConf = confirmation
			err := te.syncManager.SetConfirmedMilestoneIndex(confirmation.MilestoneIndex, true)
			require.NoError(te.TestInterface, err)
		},
		// Hint: Ledger is not locked
		func(index milestone.Index, output *utxo.Output) {
			newOutputs = append(newOutputs, output)
		},
		// Hint: Ledger is not locked
		func(index milestone.Index, spent *utxo.Spent) {
			newSpents = append(newSpents, spent)
		},
	)
	if err != nil {
		return nil, nil, err
	}

	if te.OnLedgerUpdatedFunc != nil {
		te.OnLedgerUpdatedFunc(wfConf.MilestoneIndex, newOutputs, newSpents)
	}

	return wfConf, confirmedMilestoneStats, nil
}

// ConfirmMilestone confirms the milestone for the given index.
func (te *TestEnvironment) ConfirmMilestone(ms *storage.Milestone) (*whiteflag.Confirmation, *whiteflag.ConfirmedMilestoneStats) {

	// verify that we are properly synced and confirming the next milestone
	currentIndex := te.syncManager.LatestMilestoneIndex()
	require.GreaterOrEqual(te.TestInterface, ms.Index, currentIndex)
	confirmedIndex := te.syncManager.ConfirmedMilestoneIndex()
	require.Equal(te.TestInterface, ms.Index, confirmedIndex+1)

	cachedBlock := te.storage.CachedBlockOrNil(ms.BlockID) // block +1
	require.NotNil(te.TestInterface, cachedBlock)
	defer cachedBlock.Release(true) // block -1

	milestonePayload := cachedBlock.Block().Milestone()
	require.NotNil(te.TestInterface, milestonePayload)

	wfConf, confirmedMilestoneStats, err := te.PerformWhiteFlagConfirmation(ms.BlockID, milestonePayload)
	require.NoError(te.TestInterface, err)

	require.Equal(te.TestInterface, confirmedIndex+1, confirmedMilestoneStats.Index)
	te.VerifyCMI(confirmedMilestoneStats.Index)

	te.AssertTotalSupplyStillValid()

	return wfConf, confirmedMilestoneStats
}

// IssueMilestoneOnTips creates a milestone on top of the given tips.
func (te *TestEnvironment) IssueMilestoneOnTips(tips block.BlockIDs, addLastMilestoneAsParent bool) (*storage.Milestone, block.BlockID, error) {
	return te.coo.issueMilestoneOnTips(tips, addLastMilestoneAsParent)
}

// IssueAndConfirmMilestoneOnTips creates a milestone on top of the given tips and confirms it.
func (te *TestEnvironment) IssueAndConfirmMilestoneOnTips(tips block.BlockIDs) (*whiteflag.Confirmation, *whiteflag.ConfirmedMilestoneStats) {

	currentIndex := te.syncManager.ConfirmedMilestoneIndex()
	te.VerifyLMI(currentIndex)

	ms, _, err := te.coo.issueMilestoneOnTips(tips, true)
	require.NoError(te.TestInterface, err)
	return te.ConfirmMilestone(ms)
}

// UnspentAliasOutputsInLedger returns all unspent alias outputs in the ledger.
func (te *TestEnvironment) UnspentAliasOutputsInLedger() utxo.Outputs {
	outputs, err := te.UTXOManager().UnspentOutputs(utxo.FilterOutputType(block.OutputAlias))
	require.NoError(te.TestInterface, err)
	return outputs
}
