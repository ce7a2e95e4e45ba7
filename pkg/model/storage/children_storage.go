package storage

import (
	"time"

	"github.com/iotaledger/hive.go/byteutils"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/objectstorage"

	"github.com/iotaledger/bee-sub000/pkg/common"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/profile"
)

type CachedChild struct {
	objectstorage.CachedObject
}

type CachedChildren []*CachedChild

// Retain registers a new consumer for the cached children.
// child +1.
func (cachedChildren CachedChildren) Retain() CachedChildren {
	cachedResult := make(CachedChildren, len(cachedChildren))
	for i, cachedChild := range cachedChildren {
		cachedResult[i] = cachedChild.Retain() // child +1
	}
	return cachedResult
}

// Release releases the cached children, to be picked up by the persistence layer (as soon as all consumers are done).
// child -1.
func (cachedChildren CachedChildren) Release(force ...bool) {
	for _, cachedChild := range cachedChildren {
		cachedChild.Release(force...) // child -1
	}
}

// Retain registers a new consumer for the cached child.
// child +1.
func (c *CachedChild) Retain() *CachedChild {
	return &CachedChild{c.CachedObject.Retain()} // child +1
}

func (c *CachedChild) Child() *Child {
	return c.Get().(*Child)
}

func childrenFactory(key []byte, data []byte) (objectstorage.StorableObject, error) {
	var parentBlockID, childBlockID block.BlockID
	copy(parentBlockID[:], key[:block.BlockIDLength])
	copy(childBlockID[:], key[block.BlockIDLength:block.BlockIDLength+block.BlockIDLength])

	return NewChild(parentBlockID, childBlockID), nil
}

func (s *Storage) ChildrenStorageSize() int {
	return s.childrenStorage.GetSize()
}

func (s *Storage) configureChildrenStorage(store kvstore.KVStore, opts *profile.CacheOpts) error {

	cacheTime, err := time.ParseDuration(opts.CacheTime)
	if err != nil {
		return err
	}

	leakDetectionMaxConsumerHoldTime, err := time.ParseDuration(opts.LeakDetectionOptions.MaxConsumerHoldTime)
	if err != nil {
		return err
	}

	s.childrenStorage = objectstorage.New(
		store.WithRealm([]byte{common.StorePrefixChildren}),
		childrenFactory,
		objectstorage.CacheTime(cacheTime),
		objectstorage.PersistenceEnabled(true),
		objectstorage.PartitionKey(block.BlockIDLength, block.BlockIDLength),
		objectstorage.KeysOnly(true),
		objectstorage.StoreOnCreation(true),
		objectstorage.ReleaseExecutorWorkerCount(opts.ReleaseExecutorWorkerCount),
		objectstorage.LeakDetectionEnabled(opts.LeakDetectionOptions.Enabled,
			objectstorage.LeakDetectionOptions{
				MaxConsumersPerObject: opts.LeakDetectionOptions.MaxConsumersPerObject,
				MaxConsumerHoldTime:   leakDetectionMaxConsumerHoldTime,
			}),
	)

	return nil
}

// ChildrenBlockIDs returns the block IDs of the children of the given block.
// children +-0.
func (s *Storage) ChildrenBlockIDs(blockID block.BlockID, iteratorOptions ...IteratorOption) (block.BlockIDs, error) {
	var childrenBlockIDs block.BlockIDs

	s.childrenStorage.ForEachKeyOnly(func(key []byte) bool {
		var childBlockID block.BlockID
		copy(childBlockID[:], key[block.BlockIDLength:block.BlockIDLength+block.BlockIDLength])

		childrenBlockIDs = append(childrenBlockIDs, childBlockID)
		return true
	}, append(iteratorOptions, objectstorage.WithIteratorPrefix(blockID[:]))...)

	return childrenBlockIDs, nil
}

// ContainsChild returns if the given child exists in the cache/persistence layer.
func (s *Storage) ContainsChild(blockID block.BlockID, childBlockID block.BlockID, readOptions ...ReadOption) bool {
	return s.childrenStorage.Contains(byteutils.ConcatBytes(blockID[:], childBlockID[:]), readOptions...)
}

// ChildConsumer consumes the given child during looping through all children in the persistence layer.
type ChildConsumer func(blockID block.BlockID, childBlockID block.BlockID) bool

// ForEachChild loops over all children.
func (s *Storage) ForEachChild(consumer ChildConsumer, iteratorOptions ...IteratorOption) {
	s.childrenStorage.ForEachKeyOnly(func(key []byte) bool {
		var blockID, childBlockID block.BlockID
		copy(blockID[:], key[:block.BlockIDLength])
		copy(childBlockID[:], key[block.BlockIDLength:block.BlockIDLength+block.BlockIDLength])

		return consumer(blockID, childBlockID)
	}, iteratorOptions...)
}

// StoreChild stores the child in the persistence layer and returns a cached object.
// child +1.
func (s *Storage) StoreChild(parentBlockID block.BlockID, childBlockID block.BlockID) *CachedChild {
	child := NewChild(parentBlockID, childBlockID)
	return &CachedChild{CachedObject: s.childrenStorage.Store(child)} // child +1
}

// DeleteChild deletes the child in the cache/persistence layer.
// child +-0.
func (s *Storage) DeleteChild(blockID block.BlockID, childBlockID block.BlockID) {
	child := NewChild(blockID, childBlockID)
	s.childrenStorage.Delete(child.ObjectStorageKey())
}

// DeleteChildren deletes the children of the given block in the cache/persistence layer.
// child +-0.
func (s *Storage) DeleteChildren(blockID block.BlockID, iteratorOptions ...IteratorOption) {

	var keysToDelete [][]byte

	s.childrenStorage.ForEachKeyOnly(func(key []byte) bool {
		keysToDelete = append(keysToDelete, key)
		return true
	}, append(iteratorOptions, objectstorage.WithIteratorPrefix(blockID[:]))...)

	for _, key := range keysToDelete {
		s.childrenStorage.Delete(key)
	}
}

func (s *Storage) ShutdownChildrenStorage() {
	s.childrenStorage.Shutdown()
}

func (s *Storage) FlushChildrenStorage() {
	s.childrenStorage.Flush()
}
