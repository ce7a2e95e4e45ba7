package utxo

import (
	"github.com/pkg/errors"

	"github.com/iotaledger/hive.go/byteutils"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/marshalutil"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// Output is an output booked into the ledger.
type Output struct {
	kvStorable

	outputID                 block.OutputID
	blockID                  block.BlockID
	milestoneIndexBooked     milestone.Index
	milestoneTimestampBooked uint32

	output block.Output
}

func (o *Output) OutputID() block.OutputID {
	return o.outputID
}

// BlockID returns the ID of the block the output was contained in.
func (o *Output) BlockID() block.BlockID {
	return o.blockID
}

// MilestoneIndexBooked returns the index of the milestone which booked the output.
func (o *Output) MilestoneIndexBooked() milestone.Index {
	return o.milestoneIndexBooked
}

// MilestoneTimestampBooked returns the timestamp of the milestone which booked the output.
func (o *Output) MilestoneTimestampBooked() uint32 {
	return o.milestoneTimestampBooked
}

func (o *Output) OutputType() block.OutputType {
	return o.output.Type()
}

func (o *Output) Output() block.Output {
	return o.output
}

func (o *Output) Deposit() uint64 {
	return o.output.Deposit()
}

type Outputs []*Output

// ToConsumedOutputs maps the outputs into the resolved input form used by the semantic validation.
func (o Outputs) ToConsumedOutputs() []*block.ConsumedOutput {
	consumed := make([]*block.ConsumedOutput, len(o))
	for i, output := range o {
		consumed[i] = &block.ConsumedOutput{
			OutputID: output.outputID,
			Output:   output.output,
		}
	}

	return consumed
}

// CreateOutput creates a new unspent output from the given details.
func CreateOutput(outputID block.OutputID, blockID block.BlockID, msIndexBooked milestone.Index, msTimestampBooked uint32, output block.Output) *Output {
	return &Output{
		outputID:                 outputID,
		blockID:                  blockID,
		milestoneIndexBooked:     msIndexBooked,
		milestoneTimestampBooked: msTimestampBooked,
		output:                   output,
	}
}

// NewOutput creates a new unspent output from the output at the given index of the transaction.
func NewOutput(blockID block.BlockID, msIndexBooked milestone.Index, msTimestampBooked uint32, transaction *block.Transaction, index uint16) (*Output, error) {
	if int(index) >= len(transaction.Essence.Outputs) {
		return nil, errors.New("output not found")
	}

	outputID := block.OutputIDFromTransactionIDAndIndex(transaction.ID(), index)

	return CreateOutput(outputID, blockID, msIndexBooked, msTimestampBooked, transaction.Essence.Outputs[int(index)]), nil
}

//- kvStorable

func outputStorageKeyForOutputID(outputID block.OutputID) []byte {
	ms := marshalutil.New(35)
	ms.WriteByte(UTXOStoreKeyPrefixOutput) // 1 byte
	ms.WriteBytes(outputID[:])             // 34 bytes
	return ms.Bytes()
}

func (o *Output) kvStorableKey() (key []byte) {
	return outputStorageKeyForOutputID(o.outputID)
}

func (o *Output) kvStorableValue() (value []byte) {
	ms := marshalutil.New(40)
	ms.WriteBytes(o.blockID[:])                    // 32 bytes
	ms.WriteUint32(uint32(o.milestoneIndexBooked)) // 4 bytes
	ms.WriteUint32(o.milestoneTimestampBooked)     // 4 bytes
	ms.WriteBytes(block.OutputBytes(o.output))
	return ms.Bytes()
}

func (o *Output) kvStorableLoad(_ *Manager, key []byte, value []byte) error {

	// Parse key
	keyUtil := marshalutil.New(key)

	// Read prefix output
	_, err := keyUtil.ReadByte()
	if err != nil {
		return err
	}

	// Read OutputID
	if o.outputID, err = ParseOutputID(keyUtil); err != nil {
		return err
	}

	// Parse value
	valueUtil := marshalutil.New(value)

	// Read BlockID
	if o.blockID, err = ParseBlockID(valueUtil); err != nil {
		return err
	}

	msIndexBooked, err := valueUtil.ReadUint32()
	if err != nil {
		return err
	}
	o.milestoneIndexBooked = milestone.Index(msIndexBooked)

	if o.milestoneTimestampBooked, err = valueUtil.ReadUint32(); err != nil {
		return err
	}

	if o.output, err = block.OutputFromMarshalUtil(valueUtil); err != nil {
		return err
	}

	return nil
}

//- Helper

func storeOutput(output *Output, mutations kvstore.BatchedMutations) error {
	return mutations.Set(output.kvStorableKey(), output.kvStorableValue())
}

func deleteOutput(output *Output, mutations kvstore.BatchedMutations) error {
	return mutations.Delete(output.kvStorableKey())
}

//- Manager

func (u *Manager) ReadOutputByOutputIDWithoutLocking(outputID block.OutputID) (*Output, error) {

	key := byteutils.ConcatBytes([]byte{UTXOStoreKeyPrefixOutput}, outputID[:])
	value, err := u.utxoStorage.Get(key)
	if err != nil {
		return nil, err
	}

	output := &Output{}
	if err := output.kvStorableLoad(u, key, value); err != nil {
		return nil, err
	}
	return output, nil
}

func (u *Manager) ReadOutputByOutputID(outputID block.OutputID) (*Output, error) {

	u.ReadLockLedger()
	defer u.ReadUnlockLedger()

	return u.ReadOutputByOutputIDWithoutLocking(outputID)
}
