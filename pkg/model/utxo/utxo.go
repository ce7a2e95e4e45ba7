package utxo

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/syncutils"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// Manager is used to access and manipulate the ledger state.
type Manager struct {
	utxoStorage kvstore.KVStore
	utxoLock    syncutils.RWMutex
}

// New creates a new manager instance on top of the given store.
func New(store kvstore.KVStore) *Manager {
	return &Manager{
		utxoStorage: store,
	}
}

// KVStore returns the underlying KVStore.
func (u *Manager) KVStore() kvstore.KVStore {
	return u.utxoStorage
}

// ReadLockLedger locks the ledger for reading.
func (u *Manager) ReadLockLedger() {
	u.utxoLock.RLock()
}

// ReadUnlockLedger unlocks the ledger after reading.
func (u *Manager) ReadUnlockLedger() {
	u.utxoLock.RUnlock()
}

// WriteLockLedger locks the ledger for writing.
func (u *Manager) WriteLockLedger() {
	u.utxoLock.Lock()
}

// WriteUnlockLedger unlocks the ledger after writing.
func (u *Manager) WriteUnlockLedger() {
	u.utxoLock.Unlock()
}

func storeLedgerIndex(msIndex milestone.Index, mutations kvstore.BatchedMutations) error {

	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, uint32(msIndex))

	return mutations.Set([]byte{UTXOStoreKeyPrefixLedgerMilestoneIndex}, value)
}

func (u *Manager) StoreLedgerIndex(msIndex milestone.Index) error {
	u.WriteLockLedger()
	defer u.WriteUnlockLedger()

	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, uint32(msIndex))

	return u.utxoStorage.Set([]byte{UTXOStoreKeyPrefixLedgerMilestoneIndex}, value)
}

func (u *Manager) ReadLedgerIndexWithoutLocking() (milestone.Index, error) {
	value, err := u.utxoStorage.Get([]byte{UTXOStoreKeyPrefixLedgerMilestoneIndex})
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			// there is no ledger milestone yet, so the index is 0
			return 0, nil
		}
		return 0, err
	}

	return milestone.Index(binary.LittleEndian.Uint32(value)), nil
}

func (u *Manager) ReadLedgerIndex() (milestone.Index, error) {
	u.ReadLockLedger()
	defer u.ReadUnlockLedger()

	return u.ReadLedgerIndexWithoutLocking()
}

// ApplyConfirmationWithoutLocking applies the milestone confirmation to the ledger
// as a single atomic batch. The batch is canceled as a whole if any mutation fails.
func (u *Manager) ApplyConfirmationWithoutLocking(msIndex milestone.Index, newOutputs Outputs, newSpents Spents) error {

	mutations := u.utxoStorage.Batched()

	for _, output := range newOutputs {
		if err := storeOutput(output, mutations); err != nil {
			mutations.Cancel()
			return err
		}
		if err := markAsUnspent(output, mutations); err != nil {
			mutations.Cancel()
			return err
		}
	}

	for _, spent := range newSpents {
		if err := storeSpentAndRemoveUnspent(spent, mutations); err != nil {
			mutations.Cancel()
			return err
		}
	}

	msDiff := &MilestoneDiff{
		Index:   msIndex,
		Outputs: newOutputs,
		Spents:  newSpents,
	}

	if err := storeDiff(msDiff, mutations); err != nil {
		mutations.Cancel()
		return err
	}

	if err := storeLedgerIndex(msIndex, mutations); err != nil {
		mutations.Cancel()
		return err
	}

	return mutations.Commit()
}

func (u *Manager) ApplyConfirmation(msIndex milestone.Index, newOutputs Outputs, newSpents Spents) error {
	u.WriteLockLedger()
	defer u.WriteUnlockLedger()

	return u.ApplyConfirmationWithoutLocking(msIndex, newOutputs, newSpents)
}

// RollbackConfirmationWithoutLocking reverts the ledger mutations
// of the given milestone and decreases the ledger index.
func (u *Manager) RollbackConfirmationWithoutLocking(msIndex milestone.Index, newOutputs Outputs, newSpents Spents) error {

	mutations := u.utxoStorage.Batched()

	// we have to delete the newOutputs of this milestone
	for _, output := range newOutputs {
		if err := deleteOutput(output, mutations); err != nil {
			mutations.Cancel()
			return err
		}
		if err := deleteFromUnspent(output, mutations); err != nil {
			mutations.Cancel()
			return err
		}
	}

	// we have to store the spents as output and mark them as unspent
	for _, spent := range newSpents {
		if err := storeOutput(spent.output, mutations); err != nil {
			mutations.Cancel()
			return err
		}

		if err := deleteSpentAndMarkUnspent(spent, mutations); err != nil {
			mutations.Cancel()
			return err
		}
	}

	if err := deleteDiff(msIndex, mutations); err != nil {
		mutations.Cancel()
		return err
	}

	if err := storeLedgerIndex(msIndex-1, mutations); err != nil {
		mutations.Cancel()
		return err
	}

	return mutations.Commit()
}

func (u *Manager) RollbackConfirmation(msIndex milestone.Index, newOutputs Outputs, newSpents Spents) error {
	u.WriteLockLedger()
	defer u.WriteUnlockLedger()

	return u.RollbackConfirmationWithoutLocking(msIndex, newOutputs, newSpents)
}

// PruneMilestoneIndexWithoutLocking removes the spent outputs
// and the milestone diff of the given milestone from the database.
func (u *Manager) PruneMilestoneIndexWithoutLocking(msIndex milestone.Index) error {

	diff, err := u.MilestoneDiffWithoutLocking(msIndex)
	if err != nil {
		return err
	}

	mutations := u.utxoStorage.Batched()

	for _, spent := range diff.Spents {
		if err := deleteOutput(spent.output, mutations); err != nil {
			mutations.Cancel()
			return err
		}

		if err := deleteSpent(spent, mutations); err != nil {
			mutations.Cancel()
			return err
		}
	}

	if err := deleteDiff(msIndex, mutations); err != nil {
		mutations.Cancel()
		return err
	}

	return mutations.Commit()
}

func (u *Manager) PruneMilestoneIndex(msIndex milestone.Index) error {
	u.WriteLockLedger()
	defer u.WriteUnlockLedger()

	return u.PruneMilestoneIndexWithoutLocking(msIndex)
}

// CheckLedgerState checks that the unspent outputs sum up to the total supply of tokens.
func (u *Manager) CheckLedgerState() error {

	var total uint64 = 0

	consumerFunc := func(output *Output) bool {
		total += output.Deposit()
		return true
	}

	if err := u.ForEachUnspentOutput(consumerFunc); err != nil {
		return err
	}

	if total != block.TokenSupply {
		return ErrOutputsSumNotEqualTotalSupply
	}

	return nil
}

// AddUnspentOutput adds a single unspent output to the ledger,
// used to bootstrap the genesis state.
func (u *Manager) AddUnspentOutput(unspentOutput *Output) error {

	u.WriteLockLedger()
	defer u.WriteUnlockLedger()

	mutations := u.utxoStorage.Batched()

	if err := storeOutput(unspentOutput, mutations); err != nil {
		mutations.Cancel()
		return err
	}

	if err := markAsUnspent(unspentOutput, mutations); err != nil {
		mutations.Cancel()
		return err
	}

	return mutations.Commit()
}
