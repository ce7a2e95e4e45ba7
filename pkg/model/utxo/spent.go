package utxo

import (
	"github.com/iotaledger/hive.go/byteutils"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/marshalutil"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// SpentConsumer is a function that consumes a spent output.
// Returning false from this function indicates to abort the iteration.
type SpentConsumer func(spent *Spent) bool

// Spent are already spent TXOs (transaction outputs).
type Spent struct {
	kvStorable

	output *Output

	// the ID of the transaction that spent the output
	transactionIDSpent block.TransactionID

	milestoneIndexSpent     milestone.Index
	milestoneTimestampSpent uint32
}

func (s *Spent) Output() *Output {
	return s.output
}

func (s *Spent) OutputID() block.OutputID {
	return s.output.outputID
}

func (s *Spent) BlockID() block.BlockID {
	return s.output.blockID
}

func (s *Spent) OutputType() block.OutputType {
	return s.output.OutputType()
}

func (s *Spent) Deposit() uint64 {
	return s.output.Deposit()
}

// TransactionIDSpent returns the ID of the transaction that spent the output.
func (s *Spent) TransactionIDSpent() block.TransactionID {
	return s.transactionIDSpent
}

// MilestoneIndexSpent returns the index of the milestone which spent the output.
func (s *Spent) MilestoneIndexSpent() milestone.Index {
	return s.milestoneIndexSpent
}

// MilestoneTimestampSpent returns the timestamp of the milestone which spent the output.
func (s *Spent) MilestoneTimestampSpent() uint32 {
	return s.milestoneTimestampSpent
}

type Spents []*Spent

// NewSpent creates a new spent output from the given details.
func NewSpent(output *Output, transactionIDSpent block.TransactionID, msIndexSpent milestone.Index, msTimestampSpent uint32) *Spent {
	return &Spent{
		output:                  output,
		transactionIDSpent:      transactionIDSpent,
		milestoneIndexSpent:     msIndexSpent,
		milestoneTimestampSpent: msTimestampSpent,
	}
}

func spentStorageKeyForOutputID(outputID block.OutputID) []byte {
	ms := marshalutil.New(35)
	ms.WriteByte(UTXOStoreKeyPrefixSpent) // 1 byte
	ms.WriteBytes(outputID[:])            // 34 bytes
	return ms.Bytes()
}

func (s *Spent) kvStorableKey() (key []byte) {
	return spentStorageKeyForOutputID(s.output.outputID)
}

func (s *Spent) kvStorableValue() (value []byte) {
	ms := marshalutil.New(40)
	ms.WriteBytes(s.transactionIDSpent[:])        // 32 bytes
	ms.WriteUint32(uint32(s.milestoneIndexSpent)) // 4 bytes
	ms.WriteUint32(s.milestoneTimestampSpent)     // 4 bytes
	return ms.Bytes()
}

// note that this method relies on the output being available within the output table.
func (s *Spent) kvStorableLoad(utxoManager *Manager, key []byte, value []byte) error {

	// Parse key
	keyUtil := marshalutil.New(key)

	// Read prefix spent
	_, err := keyUtil.ReadByte()
	if err != nil {
		return err
	}

	// Read OutputID
	outputID, err := ParseOutputID(keyUtil)
	if err != nil {
		return err
	}

	output, err := utxoManager.ReadOutputByOutputIDWithoutLocking(outputID)
	if err != nil {
		return err
	}
	s.output = output

	// Parse value
	valueUtil := marshalutil.New(value)

	if s.transactionIDSpent, err = ParseTransactionID(valueUtil); err != nil {
		return err
	}

	msIndexSpent, err := valueUtil.ReadUint32()
	if err != nil {
		return err
	}
	s.milestoneIndexSpent = milestone.Index(msIndexSpent)

	if s.milestoneTimestampSpent, err = valueUtil.ReadUint32(); err != nil {
		return err
	}

	return nil
}

//- Helper

func storeSpentAndRemoveUnspent(spent *Spent, mutations kvstore.BatchedMutations) error {

	if err := mutations.Delete(unspentStorageKeyForOutputID(spent.output.outputID)); err != nil {
		return err
	}

	return mutations.Set(spent.kvStorableKey(), spent.kvStorableValue())
}

func deleteSpentAndMarkUnspent(spent *Spent, mutations kvstore.BatchedMutations) error {
	if err := deleteSpent(spent, mutations); err != nil {
		return err
	}

	return markAsUnspent(spent.output, mutations)
}

func deleteSpent(spent *Spent, mutations kvstore.BatchedMutations) error {
	return mutations.Delete(spent.kvStorableKey())
}

//- Manager

func (u *Manager) ReadSpentForOutputIDWithoutLocking(outputID block.OutputID) (*Spent, error) {

	key := byteutils.ConcatBytes([]byte{UTXOStoreKeyPrefixSpent}, outputID[:])
	value, err := u.utxoStorage.Get(key)
	if err != nil {
		return nil, err
	}

	spent := &Spent{}
	if err := spent.kvStorableLoad(u, key, value); err != nil {
		return nil, err
	}

	return spent, nil
}

func (u *Manager) ReadSpentForOutputID(outputID block.OutputID) (*Spent, error) {
	u.ReadLockLedger()
	defer u.ReadUnlockLedger()

	return u.ReadSpentForOutputIDWithoutLocking(outputID)
}
