package dag

import (
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
)

// ParentsTraverserStorage provides the interface to the used storage in the ParentsTraverser.
type ParentsTraverserStorage interface {
	CachedBlockMetadata(blockID block.BlockID) (*storage.CachedMetadata, error)
	SolidEntryPointsContain(blockID block.BlockID) (bool, error)
	SolidEntryPointsIndex(blockID block.BlockID) (milestone.Index, bool, error)
}

// ChildrenTraverserStorage provides the interface to the used storage in the ChildrenTraverser.
type ChildrenTraverserStorage interface {
	CachedBlockMetadata(blockID block.BlockID) (*storage.CachedMetadata, error)
	ChildrenBlockIDs(blockID block.BlockID, iteratorOptions ...storage.IteratorOption) (block.BlockIDs, error)
}

// TraverserStorage provides the interface to the used storage in the ParentsTraverser and ChildrenTraverser.
type TraverserStorage interface {
	ParentsTraverserStorage
	ChildrenTraverserStorage
}
