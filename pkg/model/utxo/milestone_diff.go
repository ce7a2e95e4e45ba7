package utxo

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/marshalutil"

	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// MilestoneDiff represents the generated and spent outputs by a milestone's confirmation.
type MilestoneDiff struct {
	kvStorable

	// The index of the milestone.
	Index milestone.Index
	// The outputs newly generated with this diff.
	Outputs Outputs
	// The outputs spent with this diff.
	Spents Spents
}

// LexicalOrderedOutputs are outputs ordered in lexical order by their outputID.
type LexicalOrderedOutputs Outputs

func (l LexicalOrderedOutputs) Len() int {
	return len(l)
}

func (l LexicalOrderedOutputs) Less(i int, j int) bool {
	return bytes.Compare(l[i].outputID[:], l[j].outputID[:]) < 0
}

func (l LexicalOrderedOutputs) Swap(i int, j int) {
	l[i], l[j] = l[j], l[i]
}

// LexicalOrderedSpents are spents ordered in lexical order by their outputID.
type LexicalOrderedSpents Spents

func (l LexicalOrderedSpents) Len() int {
	return len(l)
}

func (l LexicalOrderedSpents) Less(i int, j int) bool {
	return bytes.Compare(l[i].output.outputID[:], l[j].output.outputID[:]) < 0
}

func (l LexicalOrderedSpents) Swap(i int, j int) {
	l[i], l[j] = l[j], l[i]
}

func milestoneDiffKeyForIndex(msIndex milestone.Index) []byte {
	m := marshalutil.New(5)
	m.WriteByte(UTXOStoreKeyPrefixMilestoneDiffs)
	m.WriteUint32(uint32(msIndex))
	return m.Bytes()
}

func (d *MilestoneDiff) kvStorableKey() []byte {
	return milestoneDiffKeyForIndex(d.Index)
}

func (d *MilestoneDiff) kvStorableValue() []byte {

	m := marshalutil.New()

	m.WriteUint32(uint32(len(d.Outputs)))
	for _, output := range d.sortedOutputs() {
		m.WriteBytes(output.outputID[:])
	}

	m.WriteUint32(uint32(len(d.Spents)))
	for _, spent := range d.sortedSpents() {
		m.WriteBytes(spent.output.outputID[:])
	}

	return m.Bytes()
}

// note that this method relies on the data being available within other "tables".
func (d *MilestoneDiff) kvStorableLoad(utxoManager *Manager, key []byte, value []byte) error {
	marshalUtil := marshalutil.New(value)

	outputCount, err := marshalUtil.ReadUint32()
	if err != nil {
		return err
	}

	outputs := make(Outputs, int(outputCount))
	for i := 0; i < int(outputCount); i++ {
		outputID, err := ParseOutputID(marshalUtil)
		if err != nil {
			return err
		}

		output, err := utxoManager.ReadOutputByOutputIDWithoutLocking(outputID)
		if err != nil {
			return err
		}

		outputs[i] = output
	}

	spentCount, err := marshalUtil.ReadUint32()
	if err != nil {
		return err
	}

	spents := make(Spents, spentCount)
	for i := 0; i < int(spentCount); i++ {
		outputID, err := ParseOutputID(marshalUtil)
		if err != nil {
			return err
		}

		spent, err := utxoManager.ReadSpentForOutputIDWithoutLocking(outputID)
		if err != nil {
			return err
		}

		spents[i] = spent
	}

	d.Index = milestone.Index(binary.LittleEndian.Uint32(key[1:]))
	d.Outputs = outputs
	d.Spents = spents

	return nil
}

func (d *MilestoneDiff) sortedOutputs() LexicalOrderedOutputs {
	// do not sort in place
	sortedOutputs := make(LexicalOrderedOutputs, len(d.Outputs))
	copy(sortedOutputs, LexicalOrderedOutputs(d.Outputs))
	sort.Sort(sortedOutputs)
	return sortedOutputs
}

func (d *MilestoneDiff) sortedSpents() LexicalOrderedSpents {
	// do not sort in place
	sortedSpents := make(LexicalOrderedSpents, len(d.Spents))
	copy(sortedSpents, LexicalOrderedSpents(d.Spents))
	sort.Sort(sortedSpents)
	return sortedSpents
}

//- DB helpers

func storeDiff(diff *MilestoneDiff, mutations kvstore.BatchedMutations) error {
	return mutations.Set(diff.kvStorableKey(), diff.kvStorableValue())
}

func deleteDiff(msIndex milestone.Index, mutations kvstore.BatchedMutations) error {
	return mutations.Delete(milestoneDiffKeyForIndex(msIndex))
}

//- Manager

func (u *Manager) MilestoneDiffWithoutLocking(msIndex milestone.Index) (*MilestoneDiff, error) {

	key := milestoneDiffKeyForIndex(msIndex)

	value, err := u.utxoStorage.Get(key)
	if err != nil {
		return nil, err
	}

	diff := &MilestoneDiff{}
	if err := diff.kvStorableLoad(u, key, value); err != nil {
		return nil, err
	}

	return diff, nil
}

func (u *Manager) MilestoneDiff(msIndex milestone.Index) (*MilestoneDiff, error) {
	u.ReadLockLedger()
	defer u.ReadUnlockLedger()

	return u.MilestoneDiffWithoutLocking(msIndex)
}
