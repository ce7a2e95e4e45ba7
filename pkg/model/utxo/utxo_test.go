package utxo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/kvstore/mapdb"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

func randomBytes(length int) []byte {
	b := make([]byte, length)
	for i := 0; i < length; i++ {
		b[i] = byte(rand.Intn(256))
	}
	return b
}

func randomBlockID() block.BlockID {
	var blockID block.BlockID
	copy(blockID[:], randomBytes(block.BlockIDLength))
	return blockID
}

func randomOutputID() block.OutputID {
	var outputID block.OutputID
	copy(outputID[:], randomBytes(block.OutputIDLength))
	return outputID
}

func randomTransactionID() block.TransactionID {
	var transactionID block.TransactionID
	copy(transactionID[:], randomBytes(block.TransactionIDLength))
	return transactionID
}

func randomAddress() *block.Ed25519Address {
	address := &block.Ed25519Address{}
	copy(address[:], randomBytes(block.Ed25519AddressBytesLength))
	return address
}

func randomBasicOutput(amount uint64) *Output {
	return CreateOutput(randomOutputID(), randomBlockID(), 0, 0, &block.BasicOutput{
		Amount: amount,
		Conditions: block.UnlockConditions{
			&block.AddressUnlockCondition{
				Address: randomAddress(),
			},
		},
	})
}

func randomAliasOutput(amount uint64) *Output {
	var aliasID block.AliasID
	copy(aliasID[:], randomBytes(len(aliasID)))

	return CreateOutput(randomOutputID(), randomBlockID(), 0, 0, &block.AliasOutput{
		Amount:  amount,
		AliasID: aliasID,
		Conditions: block.UnlockConditions{
			&block.StateControllerAddressUnlockCondition{
				Address: randomAddress(),
			},
			&block.GovernorAddressUnlockCondition{
				Address: randomAddress(),
			},
		},
	})
}

func randomSpent(output *Output, msIndex milestone.Index) *Spent {
	return NewSpent(output, randomTransactionID(), msIndex, uint32(msIndex*100))
}

func TestUTXOIterationWithoutFilters(t *testing.T) {

	outputs := Outputs{
		randomBasicOutput(1_000),
		randomBasicOutput(2_000),
		randomAliasOutput(3_000),
		randomBasicOutput(4_000),
		randomBasicOutput(5_000),
	}

	msIndex := milestone.Index(756)

	spents := Spents{
		randomSpent(outputs[3], msIndex),
		randomSpent(outputs[2], msIndex),
	}

	manager := New(mapdb.NewMapDB())

	require.NoError(t, manager.ApplyConfirmationWithoutLocking(msIndex, outputs, spents))

	// prepare values to check
	outputByOutputID := make(map[string]struct{})
	unspentByOutputID := make(map[string]struct{})
	for _, output := range outputs {
		outputID := output.OutputID()
		outputByOutputID[string(outputID[:])] = struct{}{}
		unspentByOutputID[string(outputID[:])] = struct{}{}
	}

	spentByOutputID := make(map[string]struct{})
	for _, spent := range spents {
		outputID := spent.OutputID()
		spentByOutputID[string(outputID[:])] = struct{}{}
		delete(unspentByOutputID, string(outputID[:]))
	}

	require.NoError(t, manager.ForEachOutput(func(output *Output) bool {
		outputID := output.OutputID()
		_, has := outputByOutputID[string(outputID[:])]
		require.True(t, has)
		delete(outputByOutputID, string(outputID[:]))
		return true
	}))
	require.Empty(t, outputByOutputID)

	require.NoError(t, manager.ForEachUnspentOutput(func(output *Output) bool {
		outputID := output.OutputID()
		_, has := unspentByOutputID[string(outputID[:])]
		require.True(t, has)
		delete(unspentByOutputID, string(outputID[:]))
		return true
	}))
	require.Empty(t, unspentByOutputID)

	require.NoError(t, manager.ForEachSpentOutput(func(spent *Spent) bool {
		outputID := spent.OutputID()
		_, has := spentByOutputID[string(outputID[:])]
		require.True(t, has)
		delete(spentByOutputID, string(outputID[:]))
		return true
	}))
	require.Empty(t, spentByOutputID)
}

func TestUTXOIterationWithTypeFilter(t *testing.T) {

	outputs := Outputs{
		randomBasicOutput(1_000),
		randomAliasOutput(2_000),
		randomBasicOutput(3_000),
		randomAliasOutput(4_000),
		randomAliasOutput(5_000),
		randomBasicOutput(6_000),
	}

	msIndex := milestone.Index(49)

	spents := Spents{
		randomSpent(outputs[1], msIndex),
		randomSpent(outputs[5], msIndex),
	}

	manager := New(mapdb.NewMapDB())

	require.NoError(t, manager.ApplyConfirmationWithoutLocking(msIndex, outputs, spents))

	// only the unspent alias outputs must be returned
	unspentAliasByOutputID := make(map[string]struct{})
	for _, i := range []int{3, 4} {
		outputID := outputs[i].OutputID()
		unspentAliasByOutputID[string(outputID[:])] = struct{}{}
	}

	require.NoError(t, manager.ForEachUnspentOutput(func(output *Output) bool {
		require.Equal(t, block.OutputAlias, output.OutputType())
		outputID := output.OutputID()
		_, has := unspentAliasByOutputID[string(outputID[:])]
		require.True(t, has)
		delete(unspentAliasByOutputID, string(outputID[:]))
		return true
	}, FilterOutputType(block.OutputAlias)))
	require.Empty(t, unspentAliasByOutputID)

	// only the spent alias output must be returned
	require.NoError(t, manager.ForEachSpentOutput(func(spent *Spent) bool {
		require.Equal(t, block.OutputAlias, spent.OutputType())
		require.Equal(t, spents[0].OutputID(), spent.OutputID())
		return true
	}, FilterOutputType(block.OutputAlias)))

	// the max result count must be honored
	var seen int
	require.NoError(t, manager.ForEachUnspentOutput(func(output *Output) bool {
		seen++
		return true
	}, MaxResultCount(2)))
	require.Equal(t, 2, seen)
}

func TestUTXOApplyConfirmationAndRollback(t *testing.T) {

	outputs := Outputs{
		randomBasicOutput(10_000),
		randomBasicOutput(20_000),
		randomAliasOutput(30_000),
	}

	msIndex := milestone.Index(25)

	spents := Spents{
		randomSpent(outputs[1], msIndex),
	}

	manager := New(mapdb.NewMapDB())

	require.NoError(t, manager.ApplyConfirmation(msIndex, outputs, spents))

	ledgerIndex, err := manager.ReadLedgerIndex()
	require.NoError(t, err)
	require.Equal(t, msIndex, ledgerIndex)

	// the spent output is no longer part of the unspent set
	unspent, err := manager.IsOutputIDUnspent(outputs[0].OutputID())
	require.NoError(t, err)
	require.True(t, unspent)

	unspent, err = manager.IsOutputIDUnspent(outputs[1].OutputID())
	require.NoError(t, err)
	require.False(t, unspent)

	balance, count, err := manager.ComputeLedgerBalance()
	require.NoError(t, err)
	require.Equal(t, uint64(10_000+30_000), balance)
	require.Equal(t, 2, count)

	// the milestone diff contains the applied mutations
	diff, err := manager.MilestoneDiff(msIndex)
	require.NoError(t, err)
	require.Equal(t, msIndex, diff.Index)
	require.Len(t, diff.Outputs, len(outputs))
	require.Len(t, diff.Spents, len(spents))

	require.NoError(t, manager.RollbackConfirmation(msIndex, outputs, spents))

	ledgerIndex, err = manager.ReadLedgerIndex()
	require.NoError(t, err)
	require.Equal(t, msIndex-1, ledgerIndex)

	// the created outputs must be gone
	_, err = manager.ReadOutputByOutputID(outputs[0].OutputID())
	require.Error(t, err)

	// the milestone diff must be gone
	_, err = manager.MilestoneDiff(msIndex)
	require.Error(t, err)

	balance, count, err = manager.ComputeLedgerBalance()
	require.NoError(t, err)
	require.Equal(t, uint64(20_000), balance)
	require.Equal(t, 1, count)
}

func TestUTXOPruning(t *testing.T) {

	outputs := Outputs{
		randomBasicOutput(1_000),
		randomBasicOutput(2_000),
		randomBasicOutput(3_000),
	}

	msIndex := milestone.Index(100)

	spents := Spents{
		randomSpent(outputs[2], msIndex),
	}

	manager := New(mapdb.NewMapDB())

	require.NoError(t, manager.ApplyConfirmation(msIndex, outputs, spents))

	require.NoError(t, manager.PruneMilestoneIndex(msIndex))

	// the spent output and the milestone diff must be gone
	spentOutputs, err := manager.SpentOutputs()
	require.NoError(t, err)
	require.Empty(t, spentOutputs)

	_, err = manager.MilestoneDiff(msIndex)
	require.Error(t, err)

	// pruning an unknown milestone must fail
	require.Error(t, manager.PruneMilestoneIndex(msIndex+1))

	// the unspent outputs must survive the pruning
	unspentOutputs, err := manager.UnspentOutputs()
	require.NoError(t, err)
	require.Len(t, unspentOutputs, 2)

	balance, count, err := manager.ComputeLedgerBalance()
	require.NoError(t, err)
	require.Equal(t, uint64(1_000+2_000), balance)
	require.Equal(t, 2, count)
}
