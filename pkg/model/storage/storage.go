package storage

import (
	"sync"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/objectstorage"

	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
	"github.com/iotaledger/bee-sub000/pkg/profile"
)

// DBVersion defines the version of the database schema this package can work with.
const DBVersion byte = 1

type ReadOption = objectstorage.ReadOption
type IteratorOption = objectstorage.IteratorOption

// Storage is the access layer to the node databases (partially cached).
type Storage struct {

	// databases
	tangleStore kvstore.KVStore
	utxoStore   kvstore.KVStore

	// kv storages
	solidEntryPointsStore kvstore.KVStore

	// healthTrackers
	healthTrackers []*StoreHealthTracker

	// object storages
	childrenStorage  *objectstorage.ObjectStorage
	blocksStorage    *objectstorage.ObjectStorage
	metadataStorage  *objectstorage.ObjectStorage
	milestoneStorage *objectstorage.ObjectStorage

	// solid entry points
	solidEntryPoints     *SolidEntryPoints
	solidEntryPointsLock sync.RWMutex

	// utxo
	utxoManager *utxo.Manager
}

func New(tangleStore kvstore.KVStore, utxoStore kvstore.KVStore, cachesProfile ...*profile.Caches) (*Storage, error) {

	s := &Storage{
		tangleStore: tangleStore,
		utxoStore:   utxoStore,
		healthTrackers: []*StoreHealthTracker{
			NewStoreHealthTracker(tangleStore),
			NewStoreHealthTracker(utxoStore),
		},
		utxoManager: utxo.New(utxoStore),
	}

	if err := s.configureStorages(tangleStore, cachesProfile...); err != nil {
		return nil, err
	}

	s.loadSolidEntryPoints()

	return s, nil
}

func (s *Storage) TangleStore() kvstore.KVStore {
	return s.tangleStore
}

func (s *Storage) UTXOStore() kvstore.KVStore {
	return s.utxoStore
}

func (s *Storage) UTXOManager() *utxo.Manager {
	return s.utxoManager
}

func (s *Storage) SolidEntryPoints() *SolidEntryPoints {
	return s.solidEntryPoints
}

// profileCachesDisabled returns a Caches profile with caching disabled.
func (s *Storage) profileCachesDisabled() *profile.Caches {
	return &profile.Caches{
		Children: &profile.CacheOpts{
			CacheTime:                  "0ms",
			ReleaseExecutorWorkerCount: 10,
			LeakDetectionOptions: &profile.LeakDetectionOpts{
				Enabled:               false,
				MaxConsumersPerObject: 10,
				MaxConsumerHoldTime:   "0ms",
			},
		},
		Milestones: &profile.CacheOpts{
			CacheTime:                  "0ms",
			ReleaseExecutorWorkerCount: 10,
			LeakDetectionOptions: &profile.LeakDetectionOpts{
				Enabled:               false,
				MaxConsumersPerObject: 10,
				MaxConsumerHoldTime:   "0ms",
			},
		},
		Blocks: &profile.CacheOpts{
			CacheTime:                  "0ms",
			ReleaseExecutorWorkerCount: 10,
			LeakDetectionOptions: &profile.LeakDetectionOpts{
				Enabled:               false,
				MaxConsumersPerObject: 10,
				MaxConsumerHoldTime:   "0ms",
			},
		},
	}
}

func (s *Storage) configureStorages(tangleStore kvstore.KVStore, cachesProfile ...*profile.Caches) error {

	cachesOpts := s.profileCachesDisabled()
	if len(cachesProfile) > 0 {
		cachesOpts = cachesProfile[0]
	}

	if err := s.configureBlockStorage(tangleStore, cachesOpts.Blocks); err != nil {
		return err
	}

	if err := s.configureChildrenStorage(tangleStore, cachesOpts.Children); err != nil {
		return err
	}

	if err := s.configureMilestoneStorage(tangleStore, cachesOpts.Milestones); err != nil {
		return err
	}

	s.configureSolidEntryPointsStore(tangleStore)

	return nil
}

// FlushStorages flushes all storages.
func (s *Storage) FlushStorages() {
	s.FlushMilestoneStorage()
	s.FlushBlocksStorage()
	s.FlushChildrenStorage()
}

// ShutdownStorages shuts down all storages.
func (s *Storage) ShutdownStorages() {
	s.ShutdownMilestoneStorage()
	s.ShutdownBlocksStorage()
	s.ShutdownChildrenStorage()
}

func (s *Storage) FlushAndCloseStores() error {

	var flushAndCloseError error
	if err := s.solidEntryPointsStore.Flush(); err != nil {
		flushAndCloseError = err
	}
	if err := s.tangleStore.Flush(); err != nil {
		flushAndCloseError = err
	}
	if err := s.utxoStore.Flush(); err != nil {
		flushAndCloseError = err
	}

	if err := s.tangleStore.Close(); err != nil {
		flushAndCloseError = err
	}
	if err := s.utxoStore.Close(); err != nil {
		flushAndCloseError = err
	}

	return flushAndCloseError
}

// Shutdown flushes and closes all object storages,
// and then flushes and closes all stores.
func (s *Storage) Shutdown() error {
	s.FlushStorages()
	s.ShutdownStorages()

	return s.FlushAndCloseStores()
}

// CheckLedgerState checks if the total balance of the ledger fits the token supply.
func (s *Storage) CheckLedgerState() error {
	return s.UTXOManager().CheckLedgerState()
}
