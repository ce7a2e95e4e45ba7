package storage

import (
	"fmt"
	"sync"

	"github.com/iotaledger/hive.go/objectstorage"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

// Block is the storable representation of a block, the raw data plus the lazily deserialized object.
type Block struct {
	objectstorage.StorableObjectFlags

	blockID block.BlockID
	data    []byte

	deserializeOnce sync.Once
	block           *block.Block
}

// NewBlock creates a storable block from the given block object.
func NewBlock(blk *block.Block) (*Block, error) {

	if err := blk.SyntacticallyValidate(); err != nil {
		return nil, err
	}

	data := blk.Bytes()

	storableBlock := &Block{
		blockID: blk.ID(),
		data:    data,
	}
	storableBlock.deserializeOnce.Do(func() {
		storableBlock.block = blk
	})

	return storableBlock, nil
}

func (blk *Block) BlockID() block.BlockID {
	return blk.blockID
}

func (blk *Block) Data() []byte {
	return blk.data
}

// Block returns the deserialized block object.
func (blk *Block) Block() *block.Block {
	blk.deserializeOnce.Do(func() {
		deserialized, err := block.BlockFromBytes(blk.data)
		if err != nil {
			panic(fmt.Sprintf("failed to deserialize block %v", blk.blockID.ToHex()))
		}
		blk.block = deserialized
	})

	return blk.block
}

func (blk *Block) ProtocolVersion() byte {
	return blk.Block().ProtocolVersion
}

func (blk *Block) Parents() block.BlockIDs {
	return blk.Block().Parents
}

// Transaction returns the transaction payload of the block, or nil.
func (blk *Block) Transaction() *block.Transaction {
	return blk.Block().Transaction()
}

// Milestone returns the milestone payload of the block, or nil.
func (blk *Block) Milestone() *block.MilestonePayload {
	return blk.Block().Milestone()
}

func (blk *Block) IsMilestone() bool {
	return blk.Block().IsMilestone()
}

// ObjectStorage interface.

func (blk *Block) Update(_ objectstorage.StorableObject) {
	panic(fmt.Sprintf("Block should never be updated: %v", blk.blockID.ToHex()))
}

func (blk *Block) ObjectStorageKey() []byte {
	return blk.blockID[:]
}

func (blk *Block) ObjectStorageValue() (_ []byte) {
	return blk.data
}
