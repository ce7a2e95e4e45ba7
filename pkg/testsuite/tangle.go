package testsuite

import (
	"fmt"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
	"github.com/iotaledger/bee-sub000/pkg/testsuite/utils"
)

// StoreBlock adds the block to the storage layer and solidifies it.
// block +1.
func (te *TestEnvironment) StoreBlock(blk *storage.Block) *storage.CachedBlock {

	// store block in the database
	cachedBlock, alreadyAdded := te.storage.AddBlockToStorage(blk) // block +1
	require.NotNil(te.TestInterface, cachedBlock)
	require.False(te.TestInterface, alreadyAdded)

	// solidify block
	cachedBlock.Metadata().SetSolid(true)
	require.True(te.TestInterface, cachedBlock.Metadata().IsSolid())

	// store the milestone if the block contains a valid milestone payload
	if msPayload := te.milestoneManager.VerifyMilestoneBlock(cachedBlock.Block().Block()); msPayload != nil {
		te.milestoneManager.StoreMilestone(cachedBlock.Retain(), msPayload, false) // block pass +1
	}

	te.cachedBlocks = append(te.cachedBlocks, cachedBlock)

	return cachedBlock
}

// BlockMetadataByBlockID returns the block metadata for the given block ID.
func (te *TestEnvironment) BlockMetadataByBlockID(blockID block.BlockID) *storage.BlockMetadata {
	cachedBlockMeta := te.storage.CachedBlockMetadataOrNil(blockID) // meta +1
	require.NotNil(te.TestInterface, cachedBlockMeta)
	defer cachedBlockMeta.Release(true) // meta -1
	return cachedBlockMeta.Metadata()
}

// VerifyCMI checks if the confirmed milestone index is equal to the given milestone index.
func (te *TestEnvironment) VerifyCMI(index milestone.Index) {
	cmi := te.syncManager.ConfirmedMilestoneIndex()
	require.Equal(te.TestInterface, index, cmi)
}

// VerifyLMI checks if the latest milestone index is equal to the given milestone index.
func (te *TestEnvironment) VerifyLMI(index milestone.Index) {
	lmi := te.syncManager.LatestMilestoneIndex()
	require.Equal(te.TestInterface, index, lmi)
}

// ComputeAddressBalanceWithoutConstraints sums up the deposits of all unspent outputs
// which can be unlocked by the given address without further constraints.
func (te *TestEnvironment) ComputeAddressBalanceWithoutConstraints(address block.Address) (uint64, int, error) {

	balance := uint64(0)
	outputCount := 0

	consumerFunc := func(output *utxo.Output) bool {
		conditions := output.Output().UnlockConditionSet()
		if len(conditions) != 1 {
			return true
		}

		addressCondition := conditions.Address()
		if addressCondition == nil {
			return true
		}

		if addressCondition.Address.Equal(address) {
			outputCount++
			balance += output.Deposit()
		}

		return true
	}

	err := te.UTXOManager().ForEachUnspentOutput(consumerFunc, utxo.ReadLockLedger(true))

	return balance, outputCount, err
}

// AssertLedgerBalance checks the balance in the ledger for the address of the given wallet.
func (te *TestEnvironment) AssertLedgerBalance(wallet *utils.HDWallet, expectedBalance uint64) {
	computedAddrBalance, outputCount, err := te.ComputeAddressBalanceWithoutConstraints(wallet.Address())
	require.NoError(te.TestInterface, err)

	var balanceStatus string
	balanceStatus += fmt.Sprintf("Balance for %s:\n", wallet.Name())
	balanceStatus += fmt.Sprintf("\tComputed:\t%d\n", computedAddrBalance)
	balanceStatus += fmt.Sprintf("\tExpected:\t%d\n", expectedBalance)
	balanceStatus += fmt.Sprintf("\tOutputCount:\t%d\n", outputCount)
	fmt.Print(balanceStatus)

	require.Exactly(te.TestInterface, expectedBalance, computedAddrBalance)
}

// AssertWalletBalance checks the balance in the ledger and the balance tracked by the given wallet.
func (te *TestEnvironment) AssertWalletBalance(wallet *utils.HDWallet, expectedBalance uint64) {
	computedAddrBalance, _, err := te.ComputeAddressBalanceWithoutConstraints(wallet.Address())
	require.NoError(te.TestInterface, err)

	var balanceStatus string
	balanceStatus += fmt.Sprintf("Balance for %s:\n", wallet.Name())
	balanceStatus += fmt.Sprintf("\tComputed:\t%d\n", computedAddrBalance)
	balanceStatus += fmt.Sprintf("\tWallet:\t\t%d\n", wallet.Balance())
	balanceStatus += fmt.Sprintf("\tExpected:\t%d\n", expectedBalance)
	fmt.Print(balanceStatus)

	require.Exactly(te.TestInterface, expectedBalance, computedAddrBalance)
	require.Exactly(te.TestInterface, expectedBalance, wallet.Balance())
}

// AssertTotalSupplyStillValid checks if the total supply in the database is still correct.
func (te *TestEnvironment) AssertTotalSupplyStillValid() {
	err := te.storage.CheckLedgerState()
	require.NoError(te.TestInterface, err)
}

// AssertBlockConflictReason checks the conflict reason of a block.
func (te *TestEnvironment) AssertBlockConflictReason(blockID block.BlockID, conflict storage.Conflict) {
	cachedBlockMeta := te.storage.CachedBlockMetadataOrNil(blockID) // meta +1
	require.NotNil(te.TestInterface, cachedBlockMeta)
	defer cachedBlockMeta.Release(true) // meta -1
	require.Equal(te.TestInterface, conflict, cachedBlockMeta.Metadata().Conflict())
}
