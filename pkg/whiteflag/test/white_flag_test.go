package test

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/bee-sub000/pkg/common"
	"github.com/iotaledger/bee-sub000/pkg/dag"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/testsuite"
	"github.com/iotaledger/bee-sub000/pkg/testsuite/utils"
	"github.com/iotaledger/bee-sub000/pkg/whiteflag"
)

var (
	seed1, _ = hex.DecodeString("9e84c06b86b05ecb12d2e108450b4211266d9079afcceaa361fdd64e0573dbf1b2a0ed9178c8ba919d4dffce2ff8c331780f4bc2a1a3daefd979f5b8b67b6cb4")
	seed2, _ = hex.DecodeString("39d87e2c7a49db05c229dab8c3e9f71fc9b28ed74501c00c7eb34fbc3ac1f02a373b6177e3a86a7f22e5802d29e2447c5f3a8cd411e4c9e7a7a91a1a03c57a72")
	seed3, _ = hex.DecodeString("5bf0736aa8c5d23ffa0b02dc1f77c6e6902cbe0e50e88f122fb59e6f1e76dc2e86a0a5f0956e3ba71b6ba717b8eec1e363af3cb2b06ba269ab32ae9b30fc3b25")
	seed4, _ = hex.DecodeString("d22c00b0c1bbfe5b08338074c18a6d6f64e1b21f10c5cf01073a5532c7d8b096238e267eae12929ce7d0a17ba36c61e7b6da80cdbf61f5a8bea2fd2e2e21ac8e")

	belowMaxDepth = 15
)

func TestWhiteFlagSendAllTokens(t *testing.T) {

	seed1Wallet := utils.NewHDWallet("Seed1", seed1, 0)
	seed2Wallet := utils.NewHDWallet("Seed2", seed2, 0)

	genesisAddress := seed1Wallet.Address()

	te := testsuite.SetupTestEnvironment(t, genesisAddress, 2, belowMaxDepth)
	defer te.CleanupTestEnvironment(true)

	// add the genesis output to our local HDWallet
	seed1Wallet.BookOutput(te.GenesisOutput)
	te.AssertWalletBalance(seed1Wallet, block.TokenSupply)

	seed1Wallet.PrintStatus()
	seed2Wallet.PrintStatus()

	// issue a transaction moving the whole supply from seed1 to seed2
	blockA := te.NewBlockBuilder("A").
		Parents(block.BlockIDs{te.Milestones[0].Milestone().BlockID, te.Milestones[1].Milestone().BlockID}).
		FromWallet(seed1Wallet).
		ToWallet(seed2Wallet).
		Amount(block.TokenSupply).
		Build().
		Store().
		BookOnWallets()

	seed1Wallet.PrintStatus()
	seed2Wallet.PrintStatus()

	// move the whole supply back from seed2 to seed1
	blockB := te.NewBlockBuilder("B").
		Parents(block.BlockIDs{blockA.StoredBlockID(), te.Milestones[1].Milestone().BlockID}).
		FromWallet(seed2Wallet).
		ToWallet(seed1Wallet).
		Amount(block.TokenSupply).
		Build().
		Store().
		BookOnWallets()

	// confirming milestone at block B
	_, confStats := te.IssueAndConfirmMilestoneOnTips(block.BlockIDs{blockB.StoredBlockID()})
	require.Equal(t, 2+1, confStats.BlocksReferenced) // 2 + milestone itself
	require.Equal(t, 2, confStats.BlocksIncludedWithTransactions)
	require.Equal(t, 0, confStats.BlocksExcludedWithConflictingTransactions)
	require.Equal(t, 0, confStats.BlocksExcludedWithoutTransactions)

	// verify balances
	te.AssertWalletBalance(seed1Wallet, block.TokenSupply)
	te.AssertWalletBalance(seed2Wallet, 0)
}

func TestWhiteFlagWithMultipleConflicting(t *testing.T) {

	seed1Wallet := utils.NewHDWallet("Seed1", seed1, 0)
	seed2Wallet := utils.NewHDWallet("Seed2", seed2, 0)
	seed3Wallet := utils.NewHDWallet("Seed3", seed3, 0)
	seed4Wallet := utils.NewHDWallet("Seed4", seed4, 0)

	genesisAddress := seed1Wallet.Address()

	te := testsuite.SetupTestEnvironment(t, genesisAddress, 2, belowMaxDepth)
	defer te.CleanupTestEnvironment(true)

	// add the genesis output to our local HDWallet
	seed1Wallet.BookOutput(te.GenesisOutput)
	te.AssertWalletBalance(seed1Wallet, block.TokenSupply)

	// valid transfer from seed1 with remainder seed1 to seed2 (1_000_000)
	blockA := te.NewBlockBuilder("A").
		Parents(block.BlockIDs{te.Milestones[0].Milestone().BlockID, te.Milestones[1].Milestone().BlockID}).
		FromWallet(seed1Wallet).
		ToWallet(seed2Wallet).
		Amount(1_000_000).
		Build().
		Store().
		BookOnWallets()

	// valid transfer from seed1 with remainder seed1 to seed2 (2_000_000)
	blockB := te.NewBlockBuilder("B").
		Parents(block.BlockIDs{blockA.StoredBlockID(), te.Milestones[0].Milestone().BlockID}).
		FromWallet(seed1Wallet).
		ToWallet(seed2Wallet).
		Amount(2_000_000).
		Build().
		Store().
		BookOnWallets()

	// invalid transfer from seed3 to seed2 (100_000) (invalid input)
	blockC := te.NewBlockBuilder("C").
		Parents(block.BlockIDs{te.Milestones[2].Milestone().BlockID, blockB.StoredBlockID()}).
		FromWallet(seed3Wallet).
		ToWallet(seed2Wallet).
		Amount(100_000).
		FakeInputs().
		Build().
		Store()

	// confirming milestone at block C
	_, confStats := te.IssueAndConfirmMilestoneOnTips(block.BlockIDs{blockC.StoredBlockID()})
	require.Equal(t, 3+1, confStats.BlocksReferenced) // 3 + milestone itself
	require.Equal(t, 2, confStats.BlocksIncludedWithTransactions)
	require.Equal(t, 1, confStats.BlocksExcludedWithConflictingTransactions)
	require.Equal(t, 0, confStats.BlocksExcludedWithoutTransactions)

	// verify the blocks have the expected conflict reason
	te.AssertBlockConflictReason(blockC.StoredBlockID(), storage.ConflictInputUTXONotFound)

	// verify balances
	te.AssertWalletBalance(seed1Wallet, block.TokenSupply-3_000_000)
	te.AssertWalletBalance(seed2Wallet, 3_000_000)
	te.AssertWalletBalance(seed3Wallet, 0)
	te.AssertWalletBalance(seed4Wallet, 0)

	// invalid transfer from seed4 to seed2 (1_500_000) (invalid input)
	blockD := te.NewBlockBuilder("D").
		Parents(block.BlockIDs{blockA.StoredBlockID(), blockC.StoredBlockID()}).
		FromWallet(seed4Wallet).
		ToWallet(seed2Wallet).
		Amount(1_500_000).
		FakeInputs().
		Build().
		Store()

	// valid transfer from seed2 with remainder seed2 to seed4 (1_500_000)
	blockE := te.NewBlockBuilder("E").
		Parents(block.BlockIDs{blockB.StoredBlockID(), blockD.StoredBlockID()}).
		FromWallet(seed2Wallet).
		ToWallet(seed4Wallet).
		Amount(1_500_000).
		Build().
		Store().
		BookOnWallets()

	seed4WalletOutput := blockE.GeneratedUTXO()

	// confirming milestone at block E
	_, confStats = te.IssueAndConfirmMilestoneOnTips(block.BlockIDs{blockE.StoredBlockID()})
	require.Equal(t, 2+1, confStats.BlocksReferenced) // 2 + milestone itself
	require.Equal(t, 1, confStats.BlocksIncludedWithTransactions)
	require.Equal(t, 1, confStats.BlocksExcludedWithConflictingTransactions)
	require.Equal(t, 0, confStats.BlocksExcludedWithoutTransactions)

	// verify the blocks have the expected conflict reason
	te.AssertBlockConflictReason(blockD.StoredBlockID(), storage.ConflictInputUTXONotFound)

	// verify balances
	te.AssertWalletBalance(seed1Wallet, block.TokenSupply-3_000_000)
	te.AssertWalletBalance(seed2Wallet, 1_500_000)
	te.AssertWalletBalance(seed3Wallet, 0)
	te.AssertWalletBalance(seed4Wallet, 1_500_000)

	// invalid transfer from seed3 to seed2 (100_000) (already spent (genesis))
	blockF := te.NewBlockBuilder("F").
		Parents(block.BlockIDs{te.Milestones[3].Milestone().BlockID, blockE.StoredBlockID()}).
		FromWallet(seed3Wallet).
		ToWallet(seed2Wallet).
		Amount(100_000).
		UsingOutput(te.GenesisOutput).
		Build().
		Store()

	// confirming milestone at block F
	_, confStats = te.IssueAndConfirmMilestoneOnTips(block.BlockIDs{blockF.StoredBlockID()})
	require.Equal(t, 1+1, confStats.BlocksReferenced) // 1 + milestone itself
	require.Equal(t, 0, confStats.BlocksIncludedWithTransactions)
	require.Equal(t, 1, confStats.BlocksExcludedWithConflictingTransactions)
	require.Equal(t, 0, confStats.BlocksExcludedWithoutTransactions)

	// verify the blocks have the expected conflict reason
	te.AssertBlockConflictReason(blockF.StoredBlockID(), storage.ConflictInputUTXOAlreadySpent)

	// verify balances
	te.AssertWalletBalance(seed1Wallet, block.TokenSupply-3_000_000)
	te.AssertWalletBalance(seed2Wallet, 1_500_000)
	te.AssertWalletBalance(seed3Wallet, 0)
	te.AssertWalletBalance(seed4Wallet, 1_500_000)

	// valid transfer from seed4 to seed3 (1_500_000)
	blockG := te.NewBlockBuilder("G").
		Parents(block.BlockIDs{te.Milestones[4].Milestone().BlockID, blockF.StoredBlockID()}).
		FromWallet(seed4Wallet).
		ToWallet(seed3Wallet).
		Amount(1_500_000).
		UsingOutput(seed4WalletOutput).
		Build().
		Store().
		BookOnWallets()

	// invalid transfer from seed4 to seed2 (1_500_000) (double spend -> already spent in this milestone)
	blockH := te.NewBlockBuilder("H").
		Parents(block.BlockIDs{blockG.StoredBlockID()}).
		FromWallet(seed4Wallet).
		ToWallet(seed2Wallet).
		Amount(1_500_000).
		UsingOutput(seed4WalletOutput).
		Build().
		Store()

	// confirming milestone at block H
	_, confStats = te.IssueAndConfirmMilestoneOnTips(block.BlockIDs{blockH.StoredBlockID()})
	require.Equal(t, 2+1, confStats.BlocksReferenced) // 2 + milestone itself
	require.Equal(t, 1, confStats.BlocksIncludedWithTransactions)
	require.Equal(t, 1, confStats.BlocksExcludedWithConflictingTransactions)
	require.Equal(t, 0, confStats.BlocksExcludedWithoutTransactions)

	// verify the blocks have the expected conflict reason
	te.AssertBlockConflictReason(blockH.StoredBlockID(), storage.ConflictInputUTXOAlreadySpentInThisMilestone)

	// verify balances
	te.AssertWalletBalance(seed1Wallet, block.TokenSupply-3_000_000)
	te.AssertWalletBalance(seed2Wallet, 1_500_000)
	te.AssertWalletBalance(seed3Wallet, 1_500_000)
	te.AssertWalletBalance(seed4Wallet, 0)
}

func TestWhiteFlagWithOnlyZeroTx(t *testing.T) {

	seed1Wallet := utils.NewHDWallet("Seed1", seed1, 0)

	genesisAddress := seed1Wallet.Address()

	te := testsuite.SetupTestEnvironment(t, genesisAddress, 3, belowMaxDepth)
	defer te.CleanupTestEnvironment(true)

	// issue some blocks with tagged data payloads
	blockA := te.NewBlockBuilder("A").
		Parents(block.BlockIDs{te.Milestones[0].Milestone().BlockID, te.Milestones[1].Milestone().BlockID}).
		BuildTaggedData().
		Store()

	blockB := te.NewBlockBuilder("B").
		Parents(block.BlockIDs{blockA.StoredBlockID()}).
		BuildTaggedData().
		Store()

	blockC := te.NewBlockBuilder("C").
		Parents(block.BlockIDs{te.Milestones[2].Milestone().BlockID, blockA.StoredBlockID()}).
		BuildTaggedData().
		Store()

	// confirming milestone at blocks B and C
	_, confStats := te.IssueAndConfirmMilestoneOnTips(block.BlockIDs{blockB.StoredBlockID(), blockC.StoredBlockID()})
	require.Equal(t, 3+1, confStats.BlocksReferenced) // 3 + milestone itself
	require.Equal(t, 0, confStats.BlocksIncludedWithTransactions)
	require.Equal(t, 0, confStats.BlocksExcludedWithConflictingTransactions)
	require.Equal(t, 3, confStats.BlocksExcludedWithoutTransactions)
}

func TestWhiteFlagDeterminism(t *testing.T) {

	seed1Wallet := utils.NewHDWallet("Seed1", seed1, 0)
	seed2Wallet := utils.NewHDWallet("Seed2", seed2, 0)

	genesisAddress := seed1Wallet.Address()

	te := testsuite.SetupTestEnvironment(t, genesisAddress, 2, belowMaxDepth)
	defer te.CleanupTestEnvironment(true)

	seed1Wallet.BookOutput(te.GenesisOutput)

	blockA := te.NewBlockBuilder("A").
		Parents(block.BlockIDs{te.Milestones[0].Milestone().BlockID, te.Milestones[1].Milestone().BlockID}).
		FromWallet(seed1Wallet).
		ToWallet(seed2Wallet).
		Amount(10_000_000).
		Build().
		Store().
		BookOnWallets()

	blockB := te.NewBlockBuilder("B").
		Parents(block.BlockIDs{blockA.StoredBlockID()}).
		BuildTaggedData().
		Store()

	msIndex := te.SyncManager().ConfirmedMilestoneIndex() + 1
	msTimestamp := uint32(msIndex * 100)
	parents := append(block.BlockIDs{blockB.StoredBlockID()}, te.LastMilestoneBlockID()).RemoveDupsAndSort()

	computeMutations := func() *whiteflag.WhiteFlagMutations {
		blocksMemcache := storage.NewBlocksMemcache(te.Storage().CachedBlock)
		metadataMemcache := storage.NewMetadataMemcache(te.Storage().CachedBlockMetadata)
		memcachedTraverserStorage := dag.NewMemcachedTraverserStorage(te.Storage(), metadataMemcache)

		defer func() {
			memcachedTraverserStorage.Cleanup(true)
			blocksMemcache.Cleanup(true)
			metadataMemcache.Cleanup(true)
		}()

		mutations, err := whiteflag.ComputeWhiteFlagMutations(context.Background(),
			te.UTXOManager(),
			memcachedTraverserStorage,
			blocksMemcache.CachedBlock,
			te.NetworkID(),
			msIndex,
			msTimestamp,
			parents)
		require.NoError(t, err)

		return mutations
	}

	// the mutations must be identical, no matter how often they are computed
	mutationsFirst := computeMutations()
	mutationsSecond := computeMutations()

	require.Equal(t, mutationsFirst, mutationsSecond)

	// parents are applied before their children
	require.Equal(t, block.BlockIDs{blockA.StoredBlockID(), blockB.StoredBlockID()}, mutationsFirst.BlocksReferenced)
}

func TestWhiteFlagOutOfSequenceMilestone(t *testing.T) {

	seed1Wallet := utils.NewHDWallet("Seed1", seed1, 0)

	genesisAddress := seed1Wallet.Address()

	te := testsuite.SetupTestEnvironment(t, genesisAddress, 2, belowMaxDepth)
	defer te.CleanupTestEnvironment(true)

	// issue two milestones without confirming them
	msFirst, _, err := te.IssueMilestoneOnTips(block.BlockIDs{}, true)
	require.NoError(t, err)

	msSecond, msSecondBlockID, err := te.IssueMilestoneOnTips(block.BlockIDs{}, true)
	require.NoError(t, err)
	require.Equal(t, msFirst.Index+1, msSecond.Index)

	// confirming the second milestone must fail, the first one was skipped
	_, _, err = te.PerformWhiteFlagConfirmation(msSecondBlockID, te.LastMilestonePayload())
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrMilestoneOutOfSequence))
	require.True(t, common.IsCriticalError(err))
}
