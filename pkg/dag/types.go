package dag

import (
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
)

// Predicate defines whether a traversal should continue or not.
type Predicate func(cachedBlockMeta *storage.CachedMetadata) (bool, error)

// Consumer consumes the given block metadata during traversal.
type Consumer func(cachedBlockMeta *storage.CachedMetadata) error

// OnMissingParent gets called when during traversal a parent is missing.
type OnMissingParent func(parentBlockID block.BlockID) error

// OnSolidEntryPoint gets called when during traversal a solid entry point is visited.
type OnSolidEntryPoint func(blockID block.BlockID)
