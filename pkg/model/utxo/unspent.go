package utxo

import (
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/marshalutil"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

// OutputConsumer is a function that consumes an output.
// Returning false from this function indicates to abort the iteration.
type OutputConsumer func(output *Output) bool

func unspentStorageKeyForOutputID(outputID block.OutputID) []byte {
	ms := marshalutil.New(35)
	ms.WriteByte(UTXOStoreKeyPrefixUnspent) // 1 byte
	ms.WriteBytes(outputID[:])              // 34 bytes
	return ms.Bytes()
}

func markAsUnspent(output *Output, mutations kvstore.BatchedMutations) error {
	return mutations.Set(unspentStorageKeyForOutputID(output.outputID), []byte{})
}

func deleteFromUnspent(output *Output, mutations kvstore.BatchedMutations) error {
	return mutations.Delete(unspentStorageKeyForOutputID(output.outputID))
}

// IsOutputIDUnspentWithoutLocking tells whether the output with the given ID is unspent.
func (u *Manager) IsOutputIDUnspentWithoutLocking(outputID block.OutputID) (bool, error) {
	return u.utxoStorage.Has(unspentStorageKeyForOutputID(outputID))
}

func (u *Manager) IsOutputIDUnspent(outputID block.OutputID) (bool, error) {
	u.ReadLockLedger()
	defer u.ReadUnlockLedger()

	return u.IsOutputIDUnspentWithoutLocking(outputID)
}
