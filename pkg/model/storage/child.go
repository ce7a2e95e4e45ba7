package storage

import (
	"github.com/iotaledger/hive.go/byteutils"
	"github.com/iotaledger/hive.go/objectstorage"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

// Child is a reference from a parent block to a block that approves it.
type Child struct {
	objectstorage.StorableObjectFlags
	parentBlockID block.BlockID
	childBlockID  block.BlockID
}

func NewChild(parentBlockID block.BlockID, childBlockID block.BlockID) *Child {
	return &Child{
		parentBlockID: parentBlockID,
		childBlockID:  childBlockID,
	}
}

func (a *Child) ParentBlockID() block.BlockID {
	return a.parentBlockID
}

func (a *Child) ChildBlockID() block.BlockID {
	return a.childBlockID
}

// ObjectStorage interface.

func (a *Child) Update(_ objectstorage.StorableObject) {
	// do nothing, since the object is identical (consists of key only)
}

func (a *Child) ObjectStorageKey() []byte {
	return byteutils.ConcatBytes(a.parentBlockID[:], a.childBlockID[:])
}

func (a *Child) ObjectStorageValue() (_ []byte) {
	return nil
}
