package tangle

import (
	"context"

	"github.com/iotaledger/hive.go/syncutils"

	"github.com/iotaledger/bee-sub000/pkg/dag"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
)

type MarkBlockAsSolidFunc func(*storage.CachedMetadata)

// FutureConeSolidifier traverses the future cone of blocks and updates their solidity.
// It holds a reference to a traverser and a memcache, so that these can be reused for new incoming blocks.
type FutureConeSolidifier struct {
	syncutils.Mutex

	dbStorage                 *storage.Storage
	markBlockAsSolidFunc      MarkBlockAsSolidFunc
	metadataMemcache          *storage.MetadataMemcache
	memcachedTraverserStorage *dag.MemcachedTraverserStorage
	childrenTraverser         *dag.ChildrenTraverser
}

// NewFutureConeSolidifier creates a new FutureConeSolidifier instance.
func NewFutureConeSolidifier(dbStorage *storage.Storage, markBlockAsSolidFunc MarkBlockAsSolidFunc) *FutureConeSolidifier {

	metadataMemcache := storage.NewMetadataMemcache(dbStorage.CachedBlockMetadata)
	memcachedTraverserStorage := dag.NewMemcachedTraverserStorage(dbStorage, metadataMemcache)

	return &FutureConeSolidifier{
		dbStorage:                 dbStorage,
		markBlockAsSolidFunc:      markBlockAsSolidFunc,
		metadataMemcache:          metadataMemcache,
		memcachedTraverserStorage: memcachedTraverserStorage,
		childrenTraverser:         dag.NewChildrenTraverser(memcachedTraverserStorage),
	}
}

// Cleanup releases all the currently cached objects that have been traversed.
// This SHOULD be called periodically to free the caches (e.g. with every change of the latest known milestone index).
func (s *FutureConeSolidifier) Cleanup(forceRelease bool) {
	s.Lock()
	defer s.Unlock()

	s.memcachedTraverserStorage.Cleanup(true)
	s.metadataMemcache.Cleanup(true)
}

// SolidifyBlockAndFutureCone updates the solidity of the block and its future cone (blocks approving the given block).
// We keep on walking the future cone, if a block became newly solid during the walk.
func (s *FutureConeSolidifier) SolidifyBlockAndFutureCone(ctx context.Context, cachedBlockMeta *storage.CachedMetadata) error {
	s.Lock()
	defer s.Unlock()

	defer cachedBlockMeta.Release(true) // meta -1

	return solidifyFutureCone(ctx, s.childrenTraverser, s.memcachedTraverserStorage, s.markBlockAsSolidFunc, block.BlockIDs{cachedBlockMeta.Metadata().BlockID()})
}

// SolidifyFutureConesWithMetadataMemcache updates the solidity of the given blocks and their future cones (blocks approving the given blocks).
// This function doesn't use the same memcache nor traverser like the FutureConeSolidifier, but it holds the lock, so no other solidifications are done in parallel.
func (s *FutureConeSolidifier) SolidifyFutureConesWithMetadataMemcache(ctx context.Context, memcachedTraverserStorage dag.TraverserStorage, blockIDs block.BlockIDs) error {
	s.Lock()
	defer s.Unlock()

	// we do not cleanup the traverser to not cleanup the MetadataMemcache
	childrenTraverser := dag.NewChildrenTraverser(memcachedTraverserStorage)

	return solidifyFutureCone(ctx, childrenTraverser, memcachedTraverserStorage, s.markBlockAsSolidFunc, blockIDs)
}

// solidifyFutureCone updates the solidity of the future cone (blocks approving the given blocks).
// We keep on walking the future cone, if a block became newly solid during the walk.
func solidifyFutureCone(
	ctx context.Context,
	childrenTraverser *dag.ChildrenTraverser,
	traverserStorage dag.TraverserStorage,
	markBlockAsSolidFunc MarkBlockAsSolidFunc,
	blockIDs block.BlockIDs) error {

	for _, blockID := range blockIDs {

		startBlockID := blockID

		if err := childrenTraverser.Traverse(
			ctx,
			blockID,
			// traversal stops if no more blocks pass the given condition
			func(cachedBlockMeta *storage.CachedMetadata) (bool, error) { // meta +1
				defer cachedBlockMeta.Release(true) // meta -1

				if cachedBlockMeta.Metadata().IsSolid() && startBlockID != cachedBlockMeta.Metadata().BlockID() {
					// do not walk the future cone if the current block is already solid, except it was the startBlock
					return false, nil
				}

				// check if current block is solid by checking the solidity of its parents
				for _, parentBlockID := range cachedBlockMeta.Metadata().Parents() {
					contains, err := traverserStorage.SolidEntryPointsContain(parentBlockID)
					if err != nil {
						return false, err
					}
					if contains {
						// Ignore solid entry points (snapshot milestone included)
						continue
					}

					cachedParentBlockMeta, err := traverserStorage.CachedBlockMetadata(parentBlockID) // meta +1
					if err != nil {
						return false, err
					}
					if cachedParentBlockMeta == nil {
						// parent is missing => block is not solid
						// do not walk the future cone if the current block is not solid
						return false, nil
					}

					if !cachedParentBlockMeta.Metadata().IsSolid() {
						// parent is not solid => block is not solid
						// do not walk the future cone if the current block is not solid
						cachedParentBlockMeta.Release(true) // meta -1
						return false, nil
					}
					cachedParentBlockMeta.Release(true) // meta -1
				}

				// mark current block as solid
				markBlockAsSolidFunc(cachedBlockMeta.Retain()) // meta pass +1

				// walk the future cone since the block got newly solid
				return true, nil
			},
			// consumer
			// no need to consume here
			nil,
			true); err != nil {
			return err
		}
	}
	return nil
}
