package testsuite

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/kvstore"

	"github.com/iotaledger/bee-sub000/pkg/database"
	"github.com/iotaledger/bee-sub000/pkg/keymanager"
	"github.com/iotaledger/bee-sub000/pkg/metrics"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/milestonemanager"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/model/syncmanager"
	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
)

const (
	// testNetworkID is the network ID all test transactions are issued against.
	testNetworkID = uint64(1337133713371337)

	// cooMilestonePublicKeyCount is the amount of public keys in a test milestone.
	cooMilestonePublicKeyCount = 2
)

// TestEnvironment holds the state of the test environment.
type TestEnvironment struct {
	// TestInterface is the common interface for tests and benchmarks.
	TestInterface testing.TB

	// Milestones are the created milestones by the coordinator during the test.
	Milestones storage.CachedMilestones

	// cachedBlocks is used to cleanup all blocks at the end of a test.
	cachedBlocks []*storage.CachedBlock

	// coo holds the mock coordinator instance.
	coo *MockCoo

	// TempDir is the directory that contains the temporary files for the test.
	TempDir string

	// tangleStore is the temporary key value store for the tangle data.
	tangleStore kvstore.KVStore

	// utxoStore is the temporary key value store for the ledger data.
	utxoStore kvstore.KVStore

	// storage is the tangle storage for this test.
	storage *storage.Storage

	// syncManager is used to determine the sync status of the node in this test.
	syncManager *syncmanager.SyncManager

	// milestoneManager is used to retrieve, verify and store milestones.
	milestoneManager *milestonemanager.MilestoneManager

	// networkID is the network ID transactions are validated against.
	networkID uint64

	// belowMaxDepth is the maximum allowed delta
	// value between OCRI of a given block in relation to the current CMI before it gets lazy.
	belowMaxDepth milestone.Index

	// serverMetrics holds metrics about the tangle.
	serverMetrics *metrics.ServerMetrics

	// GenesisOutput marks the initial output created when bootstrapping the tangle.
	GenesisOutput *utxo.Output

	// OnLedgerUpdatedFunc callback that is called after the ledger gets updated during confirmation.
	OnLedgerUpdatedFunc func(index milestone.Index, newOutputs utxo.Outputs, newSpents utxo.Spents)
}

// SetupTestEnvironment initializes a clean database with initial balances,
// configures a coordinator with a clean state, bootstraps the network and issues the first "numberOfMilestones" milestones.
func SetupTestEnvironment(testInterface testing.TB, genesisAddress *block.Ed25519Address, numberOfMilestones int, belowMaxDepth int) *TestEnvironment {

	te := &TestEnvironment{
		TestInterface: testInterface,
		Milestones:    make(storage.CachedMilestones, 0),
		cachedBlocks:  make([]*storage.CachedBlock, 0),
		networkID:     testNetworkID,
		belowMaxDepth: milestone.Index(belowMaxDepth),
		serverMetrics: &metrics.ServerMetrics{},
	}

	cooPrivateKeys := make([]ed25519.PrivateKey, 0)
	keyManager := keymanager.New()
	for i := 0; i < cooMilestonePublicKeyCount; i++ {
		pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(te.TestInterface, err)

		cooPrivateKeys = append(cooPrivateKeys, privKey)
		// add key to keyManager, valid for all milestone indexes
		keyManager.AddKeyRange(pubKey, 0, 0)
	}

	tempDir, err := ioutil.TempDir("", fmt.Sprintf("test_%s", te.TestInterface.Name()))
	require.NoError(te.TestInterface, err)
	te.TempDir = tempDir

	te.TestInterface.Logf("Testdir: %s", tempDir)

	cooPrivKey1Hex := fmt.Sprintf("%x", cooPrivateKeys[0])
	te.TestInterface.Logf("coo private key 1: %s", cooPrivKey1Hex)

	te.tangleStore, err = database.StoreWithDefaultSettings(filepath.Join(tempDir, "tangle"), true, database.EngineMapDB)
	require.NoError(te.TestInterface, err)

	te.utxoStore, err = database.StoreWithDefaultSettings(filepath.Join(tempDir, "utxo"), true, database.EngineMapDB)
	require.NoError(te.TestInterface, err)

	te.storage, err = storage.New(te.tangleStore, te.utxoStore, TestProfileCaches)
	require.NoError(te.TestInterface, err)

	// the genesis block is our first solid entry point
	te.storage.SolidEntryPointsAdd(block.EmptyBlockID, 0)

	// Initialize the ledger state with the genesis output holding the total supply
	te.GenesisOutput = utxo.CreateOutput(block.OutputID{}, block.EmptyBlockID, 0, 0, &block.BasicOutput{
		Amount: block.TokenSupply,
		Conditions: block.UnlockConditions{
			&block.AddressUnlockCondition{
				Address: genesisAddress,
			},
		},
	})
	err = te.storage.UTXOManager().AddUnspentOutput(te.GenesisOutput)
	require.NoError(te.TestInterface, err)

	err = te.storage.UTXOManager().StoreLedgerIndex(0)
	require.NoError(te.TestInterface, err)

	te.AssertTotalSupplyStillValid()

	te.syncManager, err = syncmanager.New(0, belowMaxDepth)
	require.NoError(te.TestInterface, err)

	te.milestoneManager = milestonemanager.New(te.storage, keyManager, len(cooPrivateKeys))

	// Start up the coordinator mock, bootstrap the network and confirm the first milestone
	te.configureCoordinator(cooPrivateKeys, keyManager)
	require.NotNil(te.TestInterface, te.coo)

	te.VerifyCMI(1)

	for i := 1; i <= numberOfMilestones; i++ {
		_, confStats := te.IssueAndConfirmMilestoneOnTips(block.BlockIDs{})
		require.Equal(te.TestInterface, 1, confStats.BlocksReferenced) // 1 for the milestone itself
		require.Equal(te.TestInterface, 0, confStats.BlocksIncludedWithTransactions)
		require.Equal(te.TestInterface, 0, confStats.BlocksExcludedWithConflictingTransactions)
		require.Equal(te.TestInterface, 0, confStats.BlocksExcludedWithoutTransactions)
	}

	return te
}

// Storage returns the tangle storage of this test environment.
func (te *TestEnvironment) Storage() *storage.Storage {
	return te.storage
}

// UTXOManager returns the UTXO manager of this test environment.
func (te *TestEnvironment) UTXOManager() *utxo.Manager {
	return te.storage.UTXOManager()
}

// SyncManager returns the sync manager of this test environment.
func (te *TestEnvironment) SyncManager() *syncmanager.SyncManager {
	return te.syncManager
}

// MilestoneManager returns the milestone manager of this test environment.
func (te *TestEnvironment) MilestoneManager() *milestonemanager.MilestoneManager {
	return te.milestoneManager
}

// NetworkID returns the network ID of this test environment.
func (te *TestEnvironment) NetworkID() uint64 {
	return te.networkID
}

// BelowMaxDepth returns the below max depth of this test environment.
func (te *TestEnvironment) BelowMaxDepth() milestone.Index {
	return te.belowMaxDepth
}

// LastMilestonePayload returns the milestone payload of the last issued milestone.
func (te *TestEnvironment) LastMilestonePayload() *block.MilestonePayload {
	return te.coo.LastMilestonePayload()
}

// LastMilestoneIndex returns the index of the last issued milestone.
func (te *TestEnvironment) LastMilestoneIndex() milestone.Index {
	return te.coo.LastMilestoneIndex()
}

// LastMilestoneBlockID returns the block ID of the block containing the last issued milestone.
func (te *TestEnvironment) LastMilestoneBlockID() block.BlockID {
	return te.coo.LastMilestoneBlockID()
}

// LastMilestoneParents returns the parents of the last issued milestone.
func (te *TestEnvironment) LastMilestoneParents() block.BlockIDs {
	return te.coo.LastMilestoneParents()
}

// CleanupTestEnvironment cleans up everything at the end of the test.
func (te *TestEnvironment) CleanupTestEnvironment(removeTempDir bool) {

	for _, cachedBlock := range te.cachedBlocks {
		cachedBlock.Release(true) // block -1
	}
	te.cachedBlocks = nil

	te.Milestones.Release(true) // milestones -1
	te.Milestones = nil

	// this should not hang, i.e. all objects should be released
	te.storage.ShutdownStorages()

	err := te.storage.FlushAndCloseStores()
	require.NoError(te.TestInterface, err)

	if removeTempDir && te.TempDir != "" {
		_ = os.RemoveAll(te.TempDir)
	}
}
