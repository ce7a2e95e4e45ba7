package storage

import (
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/objectstorage"

	"github.com/iotaledger/bee-sub000/pkg/common"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/profile"
)

func BlockCaller(handler interface{}, params ...interface{}) {
	handler.(func(cachedBlock *CachedBlock))(params[0].(*CachedBlock).Retain()) // block pass +1
}

func BlockMetadataCaller(handler interface{}, params ...interface{}) {
	handler.(func(cachedBlockMeta *CachedMetadata))(params[0].(*CachedMetadata).Retain()) // meta pass +1
}

func NewBlockCaller(handler interface{}, params ...interface{}) {
	handler.(func(cachedBlock *CachedBlock, latestMilestoneIndex milestone.Index, confirmedMilestoneIndex milestone.Index))(params[0].(*CachedBlock).Retain(), params[1].(milestone.Index), params[2].(milestone.Index)) // block pass +1
}

func BlockIDCaller(handler interface{}, params ...interface{}) {
	handler.(func(blockID block.BlockID))(params[0].(block.BlockID))
}

func BlockReferencedCaller(handler interface{}, params ...interface{}) {
	handler.(func(cachedBlockMeta *CachedMetadata, msIndex milestone.Index, confTime uint32))(params[0].(*CachedMetadata).Retain(), params[1].(milestone.Index), params[2].(uint32)) // meta pass +1
}

// CachedBlock contains two cached objects, one for block and one for metadata.
type CachedBlock struct {
	block    objectstorage.CachedObject
	metadata objectstorage.CachedObject
}

// CachedMetadata contains the cached object only for metadata.
type CachedMetadata struct {
	objectstorage.CachedObject
}

type CachedBlocks []*CachedBlock

// Retain registers a new consumer for the cached blocks.
// block +1.
func (cachedBlocks CachedBlocks) Retain() CachedBlocks {
	cachedResult := make(CachedBlocks, len(cachedBlocks))
	for i, cachedBlock := range cachedBlocks {
		cachedResult[i] = cachedBlock.Retain() // block +1
	}
	return cachedResult
}

// Release releases the cached blocks, to be picked up by the persistence layer (as soon as all consumers are done).
// block -1.
func (cachedBlocks CachedBlocks) Release(force ...bool) {
	for _, cachedBlock := range cachedBlocks {
		cachedBlock.Release(force...) // block -1
	}
}

// Block retrieves the block, that is cached in this container.
func (c *CachedBlock) Block() *Block {
	return c.block.Get().(*Block)
}

// CachedMetadata returns the underlying cached metadata.
// meta +1.
func (c *CachedBlock) CachedMetadata() *CachedMetadata {
	return &CachedMetadata{c.metadata.Retain()} // meta +1
}

// Metadata retrieves the metadata, that is cached in this container.
func (c *CachedBlock) Metadata() *BlockMetadata {
	return c.metadata.Get().(*BlockMetadata)
}

// Metadata retrieves the metadata, that is cached in this container.
func (c *CachedMetadata) Metadata() *BlockMetadata {
	return c.Get().(*BlockMetadata)
}

// Retain registers a new consumer for the cached block and metadata.
// block +1.
func (c *CachedBlock) Retain() *CachedBlock {
	return &CachedBlock{
		c.block.Retain(),    // block +1
		c.metadata.Retain(), // meta +1
	}
}

// Retain registers a new consumer for the cached metadata.
// meta +1.
func (c *CachedMetadata) Retain() *CachedMetadata {
	return &CachedMetadata{c.CachedObject.Retain()} // meta +1
}

// Exists returns true if the block in this container does exist
// (could be found in the database and was not marked as deleted).
func (c *CachedBlock) Exists() bool {
	return c.block.Exists()
}

// ConsumeBlockAndMetadata consumes the underlying block and metadata.
// block -1.
// meta -1.
func (c *CachedBlock) ConsumeBlockAndMetadata(consumer func(*Block, *BlockMetadata)) {

	c.block.Consume(func(blockObject objectstorage.StorableObject) { // block -1
		c.metadata.Consume(func(metadataObject objectstorage.StorableObject) { // meta -1
			consumer(blockObject.(*Block), metadataObject.(*BlockMetadata))
		}, true)
	}, true)
}

// ConsumeBlock consumes the underlying block.
// block -1.
// meta -1.
func (c *CachedBlock) ConsumeBlock(consumer func(*Block)) {
	defer c.metadata.Release(true)                              // meta -1
	c.block.Consume(func(object objectstorage.StorableObject) { // block -1
		consumer(object.(*Block))
	}, true)
}

// ConsumeMetadata consumes the underlying metadata.
// block -1.
// meta -1.
func (c *CachedBlock) ConsumeMetadata(consumer func(*BlockMetadata)) {
	defer c.block.Release(true)                                    // block -1
	c.metadata.Consume(func(object objectstorage.StorableObject) { // meta -1
		consumer(object.(*BlockMetadata))
	}, true)
}

// ConsumeMetadata consumes the metadata.
// meta -1.
func (c *CachedMetadata) ConsumeMetadata(consumer func(*BlockMetadata)) {
	c.Consume(func(object objectstorage.StorableObject) { // meta -1
		consumer(object.(*BlockMetadata))
	}, true)
}

// Release releases the cached block and metadata, to be picked up by the persistence layer (as soon as all consumers are done).
// block -1.
func (c *CachedBlock) Release(force ...bool) {
	c.block.Release(force...)    // block -1
	c.metadata.Release(force...) // meta -1
}

func BlockFactory(key []byte, data []byte) (objectstorage.StorableObject, error) {
	blk := &Block{
		data: data,
	}
	copy(blk.blockID[:], key[:block.BlockIDLength])

	return blk, nil
}

func (s *Storage) BlockStorageSize() int {
	return s.blocksStorage.GetSize()
}

func (s *Storage) BlockMetadataStorageSize() int {
	return s.metadataStorage.GetSize()
}

func (s *Storage) configureBlockStorage(store kvstore.KVStore, opts *profile.CacheOpts) error {

	cacheTime, err := time.ParseDuration(opts.CacheTime)
	if err != nil {
		return err
	}

	leakDetectionMaxConsumerHoldTime, err := time.ParseDuration(opts.LeakDetectionOptions.MaxConsumerHoldTime)
	if err != nil {
		return err
	}

	s.blocksStorage = objectstorage.New(
		store.WithRealm([]byte{common.StorePrefixBlocks}),
		BlockFactory,
		objectstorage.CacheTime(cacheTime),
		objectstorage.PersistenceEnabled(true),
		objectstorage.StoreOnCreation(true),
		objectstorage.ReleaseExecutorWorkerCount(opts.ReleaseExecutorWorkerCount),
		objectstorage.LeakDetectionEnabled(opts.LeakDetectionOptions.Enabled,
			objectstorage.LeakDetectionOptions{
				MaxConsumersPerObject: opts.LeakDetectionOptions.MaxConsumersPerObject,
				MaxConsumerHoldTime:   leakDetectionMaxConsumerHoldTime,
			}),
	)

	s.metadataStorage = objectstorage.New(
		store.WithRealm([]byte{common.StorePrefixBlockMetadata}),
		MetadataFactory,
		objectstorage.CacheTime(cacheTime),
		objectstorage.PersistenceEnabled(true),
		objectstorage.StoreOnCreation(false),
		objectstorage.ReleaseExecutorWorkerCount(opts.ReleaseExecutorWorkerCount),
		objectstorage.LeakDetectionEnabled(opts.LeakDetectionOptions.Enabled,
			objectstorage.LeakDetectionOptions{
				MaxConsumersPerObject: opts.LeakDetectionOptions.MaxConsumersPerObject,
				MaxConsumerHoldTime:   leakDetectionMaxConsumerHoldTime,
			}),
	)

	return nil
}

// CachedBlockOrNil returns a cached block object.
// block +1.
func (s *Storage) CachedBlockOrNil(blockID block.BlockID) *CachedBlock {
	cachedBlock := s.blocksStorage.Load(blockID[:]) // block +1
	if !cachedBlock.Exists() {
		cachedBlock.Release(true) // block -1
		return nil
	}

	cachedBlockMeta := s.metadataStorage.Load(blockID[:]) // meta +1
	if !cachedBlockMeta.Exists() {
		cachedBlock.Release(true)     // block -1
		cachedBlockMeta.Release(true) // meta -1
		return nil
	}

	return &CachedBlock{
		block:    cachedBlock,
		metadata: cachedBlockMeta,
	}
}

// Block returns a block object, or nil if it doesn't exist.
func (s *Storage) Block(blockID block.BlockID) (*block.Block, error) {
	cachedBlock := s.CachedBlockOrNil(blockID) // block +1
	if cachedBlock == nil {
		return nil, common.ErrBlockNotFound
	}
	defer cachedBlock.Release(true) // block -1

	return cachedBlock.Block().Block(), nil
}

// CachedBlock returns a cached block object.
// block +1.
func (s *Storage) CachedBlock(blockID block.BlockID) (*CachedBlock, error) {
	return s.CachedBlockOrNil(blockID), nil // block +1
}

// CachedBlockMetadataOrNil returns a cached metadata object.
// meta +1.
func (s *Storage) CachedBlockMetadataOrNil(blockID block.BlockID) *CachedMetadata {
	cachedBlockMeta := s.metadataStorage.Load(blockID[:]) // meta +1
	if !cachedBlockMeta.Exists() {
		cachedBlockMeta.Release(true) // meta -1
		return nil
	}
	return &CachedMetadata{CachedObject: cachedBlockMeta}
}

// CachedBlockMetadata returns a cached metadata object.
// meta +1.
func (s *Storage) CachedBlockMetadata(blockID block.BlockID) (*CachedMetadata, error) {
	return s.CachedBlockMetadataOrNil(blockID), nil // meta +1
}

// StoredMetadataOrNil returns a metadata object without accessing the cache layer.
func (s *Storage) StoredMetadataOrNil(blockID block.BlockID) *BlockMetadata {
	storedMeta := s.metadataStorage.LoadObjectFromStore(blockID[:])
	if storedMeta == nil {
		return nil
	}
	return storedMeta.(*BlockMetadata)
}

// ContainsBlock returns if the given block exists in the cache/persistence layer.
func (s *Storage) ContainsBlock(blockID block.BlockID, readOptions ...ReadOption) bool {
	return s.blocksStorage.Contains(blockID[:], readOptions...)
}

// BlockExistsInStore returns if the given block exists in the persistence layer.
func (s *Storage) BlockExistsInStore(blockID block.BlockID) bool {
	return s.blocksStorage.ObjectExistsInStore(blockID[:])
}

// BlockMetadataExistsInStore returns if the given block metadata exists in the persistence layer.
func (s *Storage) BlockMetadataExistsInStore(blockID block.BlockID) bool {
	return s.metadataStorage.ObjectExistsInStore(blockID[:])
}

// StoreBlockIfAbsent returns a cached object and stores the block in the persistence layer if it was absent.
// block +1.
func (s *Storage) StoreBlockIfAbsent(blk *Block) (cachedBlock *CachedBlock, newlyAdded bool) {

	// Store block + metadata atomically in the same callback
	var cachedBlockMeta objectstorage.CachedObject

	cachedBlockData := s.blocksStorage.ComputeIfAbsent(blk.ObjectStorageKey(), func(key []byte) objectstorage.StorableObject { // block +1
		newlyAdded = true

		metadata := &BlockMetadata{
			blockID: blk.BlockID(),
			parents: blk.Parents(),
		}

		cachedBlockMeta = s.metadataStorage.Store(metadata) // meta +1

		blk.Persist(true)
		blk.SetModified(true)
		return blk
	})

	// if we didn't create a new entry - retrieve the corresponding metadata (it should always exist since it gets created atomically)
	if !newlyAdded {
		cachedBlockMeta = s.metadataStorage.Load(blk.blockID[:]) // meta +1
	}

	return &CachedBlock{block: cachedBlockData, metadata: cachedBlockMeta}, newlyAdded
}

// BlockIDConsumer consumes the given block ID during looping through all blocks.
type BlockIDConsumer func(blockID block.BlockID) bool

// ForEachBlockID loops over all block IDs.
func (s *Storage) ForEachBlockID(consumer BlockIDConsumer, iteratorOptions ...IteratorOption) {
	s.blocksStorage.ForEachKeyOnly(func(key []byte) bool {
		blockID := block.BlockID{}
		copy(blockID[:], key)

		return consumer(blockID)
	}, iteratorOptions...)
}

// ForEachBlockMetadataBlockID loops over all block metadata block IDs.
func (s *Storage) ForEachBlockMetadataBlockID(consumer BlockIDConsumer, iteratorOptions ...IteratorOption) {
	s.metadataStorage.ForEachKeyOnly(func(key []byte) bool {
		blockID := block.BlockID{}
		copy(blockID[:], key)

		return consumer(blockID)
	}, iteratorOptions...)
}

// DeleteBlock deletes the block and metadata in the cache/persistence layer.
func (s *Storage) DeleteBlock(blockID block.BlockID) {
	// metadata has to be deleted before the block, otherwise we could run into a data race in the object storage
	s.metadataStorage.Delete(blockID[:])
	s.blocksStorage.Delete(blockID[:])
}

// DeleteBlockMetadata deletes the metadata in the cache/persistence layer.
func (s *Storage) DeleteBlockMetadata(blockID block.BlockID) {
	s.metadataStorage.Delete(blockID[:])
}

func (s *Storage) ShutdownBlocksStorage() {
	s.blocksStorage.Shutdown()
	s.metadataStorage.Shutdown()
}

func (s *Storage) FlushBlocksStorage() {
	s.blocksStorage.Flush()
	s.metadataStorage.Flush()
}

// AddBlockToStorage adds a new block to the cache/persistence layer,
// including child entries for the parents.
// block +1.
func (s *Storage) AddBlockToStorage(blk *Block) (cachedBlock *CachedBlock, alreadyAdded bool) {

	cachedBlock, isNew := s.StoreBlockIfAbsent(blk) // block +1
	if !isNew {
		return cachedBlock, true
	}

	for _, parent := range blk.Parents() {
		s.StoreChild(parent, blk.BlockID()).Release(true) // child +-0
	}

	return cachedBlock, false
}
