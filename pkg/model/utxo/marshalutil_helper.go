package utxo

import (
	"github.com/iotaledger/hive.go/marshalutil"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

// ParseOutputID parses an output ID from the given MarshalUtil.
func ParseOutputID(ms *marshalutil.MarshalUtil) (block.OutputID, error) {
	bytes, err := ms.ReadBytes(block.OutputIDLength)
	if err != nil {
		return block.OutputID{}, err
	}

	return block.OutputIDFromBytes(bytes)
}

// ParseBlockID parses a block ID from the given MarshalUtil.
func ParseBlockID(ms *marshalutil.MarshalUtil) (block.BlockID, error) {
	bytes, err := ms.ReadBytes(block.BlockIDLength)
	if err != nil {
		return block.BlockID{}, err
	}

	return block.BlockIDFromBytes(bytes)
}

// ParseTransactionID parses a transaction ID from the given MarshalUtil.
func ParseTransactionID(ms *marshalutil.MarshalUtil) (block.TransactionID, error) {
	bytes, err := ms.ReadBytes(block.TransactionIDLength)
	if err != nil {
		return block.TransactionID{}, err
	}

	var transactionID block.TransactionID
	copy(transactionID[:], bytes)

	return transactionID, nil
}
