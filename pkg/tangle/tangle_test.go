package tangle_test

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/configuration"
	"github.com/iotaledger/hive.go/logger"

	"github.com/iotaledger/bee-sub000/pkg/metrics"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/tangle"
	"github.com/iotaledger/bee-sub000/pkg/testsuite"
	"github.com/iotaledger/bee-sub000/pkg/testsuite/utils"
)

var (
	seed1, _ = hex.DecodeString("b15209ddc93cbdb600137ea6a8f88cdd7c5d480d5815c9352a0fb5c4e796394ae9bda6bbcce0fea5b1868796ea007ca1e6663f31870488ec71b5fa58fd0a3df0")
	seed2, _ = hex.DecodeString("2ca3dd2672971226a0e48f63da2a0beb321fcc176f0e4e5dc93d2a1c355e5c1e5a84a71e63e3f1e6f6f9f56d4fcf522cdb0c60c4b654c0f0de1346ed54a1a0c6")
)

const belowMaxDepth = 15

func init() {
	if err := logger.InitGlobalLogger(configuration.New()); err != nil {
		panic(err)
	}
}

func TestTangleProcessor(t *testing.T) {

	seed1Wallet := utils.NewHDWallet("Seed1", seed1, 0)
	seed2Wallet := utils.NewHDWallet("Seed2", seed2, 0)

	genesisAddress := seed1Wallet.Address()

	te := testsuite.SetupTestEnvironment(t, genesisAddress, 2, belowMaxDepth)
	defer te.CleanupTestEnvironment(true)

	seed1Wallet.BookOutput(te.GenesisOutput)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tgl := tangle.New(
		logger.NewLogger("tangle-test"),
		te.Storage(),
		te.SyncManager(),
		te.MilestoneManager(),
		&metrics.ServerMetrics{},
		te.NetworkID(),
		ctx)

	tgl.RunTangleProcessor()
	defer tgl.ShutdownTangleProcessor()

	// build a value transaction and a tagged data block approving it,
	// but do not add them to the storage yet
	blockA := te.NewBlockBuilder("A").
		Parents(block.BlockIDs{te.Milestones[0].Milestone().BlockID, te.Milestones[1].Milestone().BlockID}).
		FromWallet(seed1Wallet).
		ToWallet(seed2Wallet).
		Amount(1_000_000).
		Build()

	blockAID := blockA.StoredBlock().BlockID()

	blockB := te.NewBlockBuilder("B").
		Parents(block.BlockIDs{blockAID}).
		BuildTaggedData()

	blockBID := blockB.StoredBlock().BlockID()

	blockBSolid := tgl.RegisterBlockSolidEvent(blockBID)
	defer tgl.DeregisterBlockSolidEvent(blockBID)

	// add the child block first, it can not become solid because its parent is missing
	cachedBlockB, alreadyAdded := tgl.AddBlockToTangle(blockB.StoredBlock())
	require.NotNil(t, cachedBlockB)
	require.False(t, alreadyAdded)
	defer cachedBlockB.Release(true) // block -1

	require.False(t, te.BlockMetadataByBlockID(blockBID).IsSolid())

	blockASolid := tgl.RegisterBlockSolidEvent(blockAID)
	defer tgl.DeregisterBlockSolidEvent(blockAID)

	// adding the missing parent solidifies the future cone
	cachedBlockA, alreadyAdded := tgl.AddBlockToTangle(blockA.StoredBlock())
	require.NotNil(t, cachedBlockA)
	require.False(t, alreadyAdded)
	defer cachedBlockA.Release(true) // block -1

	select {
	case <-blockASolid:
	case <-time.After(5 * time.Second):
		t.Fatal("block A did not become solid")
	}

	select {
	case <-blockBSolid:
	case <-time.After(5 * time.Second):
		t.Fatal("block B did not become solid")
	}

	require.True(t, te.BlockMetadataByBlockID(blockAID).IsSolid())
	require.True(t, te.BlockMetadataByBlockID(blockBID).IsSolid())

	// the milestone gets solidified and confirmed by the tangle processor
	milestoneIndex := te.LastMilestoneIndex() + 1
	milestoneConfirmed := tgl.RegisterMilestoneConfirmedEvent(milestoneIndex)
	defer tgl.DeregisterMilestoneConfirmedEvent(milestoneIndex)

	_, _, err := te.IssueMilestoneOnTips(block.BlockIDs{blockBID}, true)
	require.NoError(t, err)

	select {
	case <-milestoneConfirmed:
	case <-time.After(10 * time.Second):
		t.Fatal("milestone was not confirmed")
	}

	te.VerifyCMI(milestoneIndex)
	te.AssertTotalSupplyStillValid()

	blockA.BookOnWallets()
	te.AssertWalletBalance(seed1Wallet, block.TokenSupply-1_000_000)
	te.AssertWalletBalance(seed2Wallet, 1_000_000)

	// adding the same block again must not fail
	cachedBlockA2, alreadyAdded := tgl.AddBlockToTangle(blockA.StoredBlock())
	require.NotNil(t, cachedBlockA2)
	require.True(t, alreadyAdded)
	cachedBlockA2.Release(true) // block -1
}
