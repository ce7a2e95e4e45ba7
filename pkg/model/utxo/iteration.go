package utxo

import (
	"github.com/iotaledger/hive.go/kvstore"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

// UTXOIterateOptions define how to iterate over the utxo entries.
type UTXOIterateOptions struct {
	readLockLedger   bool
	filterOutputType *block.OutputType
	maxResultCount   int
}

// UTXOIterateOption is a function setting an iterate option.
type UTXOIterateOption func(*UTXOIterateOptions)

// ReadLockLedger defines whether to lock the ledger while iterating.
func ReadLockLedger(lockLedger bool) UTXOIterateOption {
	return func(args *UTXOIterateOptions) {
		args.readLockLedger = lockLedger
	}
}

// FilterOutputType filters the results by output type.
func FilterOutputType(outputType block.OutputType) UTXOIterateOption {
	return func(args *UTXOIterateOptions) {
		args.filterOutputType = &outputType
	}
}

// MaxResultCount limits the number of results.
func MaxResultCount(count int) UTXOIterateOption {
	return func(args *UTXOIterateOptions) {
		args.maxResultCount = count
	}
}

func iterateOptions(optionalOptions []UTXOIterateOption) *UTXOIterateOptions {
	result := &UTXOIterateOptions{
		readLockLedger:   true,
		filterOutputType: nil,
		maxResultCount:   0,
	}

	for _, optionalOption := range optionalOptions {
		optionalOption(result)
	}
	return result
}

// ForEachOutput iterates over all booked outputs, spent and unspent.
func (u *Manager) ForEachOutput(consumer OutputConsumer, options ...UTXOIterateOption) error {

	opt := iterateOptions(options)

	if opt.readLockLedger {
		u.ReadLockLedger()
		defer u.ReadUnlockLedger()
	}

	consumerFunc := consumer

	if opt.filterOutputType != nil {

		filterType := *opt.filterOutputType

		consumerFunc = func(output *Output) bool {
			if output.OutputType() == filterType {
				return consumer(output)
			}
			return true
		}
	}

	var innerErr error
	var i int
	if err := u.utxoStorage.Iterate([]byte{UTXOStoreKeyPrefixOutput}, func(key kvstore.Key, value kvstore.Value) bool {

		if (opt.maxResultCount > 0) && (i >= opt.maxResultCount) {
			return false
		}

		i++

		output := &Output{}
		if err := output.kvStorableLoad(u, key, value); err != nil {
			innerErr = err
			return false
		}

		return consumerFunc(output)
	}); err != nil {
		return err
	}

	return innerErr
}

// ForEachUnspentOutput iterates over all unspent outputs.
func (u *Manager) ForEachUnspentOutput(consumer OutputConsumer, options ...UTXOIterateOption) error {

	opt := iterateOptions(options)

	if opt.readLockLedger {
		u.ReadLockLedger()
		defer u.ReadUnlockLedger()
	}

	consumerFunc := consumer

	if opt.filterOutputType != nil {

		filterType := *opt.filterOutputType

		consumerFunc = func(output *Output) bool {
			if output.OutputType() == filterType {
				return consumer(output)
			}
			return true
		}
	}

	var innerErr error
	var i int
	if err := u.utxoStorage.IterateKeys([]byte{UTXOStoreKeyPrefixUnspent}, func(key kvstore.Key) bool {

		if (opt.maxResultCount > 0) && (i >= opt.maxResultCount) {
			return false
		}

		i++

		outputID, err := block.OutputIDFromBytes(key[1:])
		if err != nil {
			innerErr = err
			return false
		}

		output, err := u.ReadOutputByOutputIDWithoutLocking(outputID)
		if err != nil {
			innerErr = err
			return false
		}

		return consumerFunc(output)
	}); err != nil {
		return err
	}

	return innerErr
}

// ForEachSpentOutput iterates over all spent outputs.
func (u *Manager) ForEachSpentOutput(consumer SpentConsumer, options ...UTXOIterateOption) error {

	opt := iterateOptions(options)

	if opt.readLockLedger {
		u.ReadLockLedger()
		defer u.ReadUnlockLedger()
	}

	consumerFunc := consumer

	if opt.filterOutputType != nil {

		filterType := *opt.filterOutputType

		consumerFunc = func(spent *Spent) bool {
			if spent.OutputType() == filterType {
				return consumer(spent)
			}
			return true
		}
	}

	var innerErr error
	var i int
	if err := u.utxoStorage.Iterate([]byte{UTXOStoreKeyPrefixSpent}, func(key kvstore.Key, value kvstore.Value) bool {

		if (opt.maxResultCount > 0) && (i >= opt.maxResultCount) {
			return false
		}

		i++

		spent := &Spent{}
		if err := spent.kvStorableLoad(u, key, value); err != nil {
			innerErr = err
			return false
		}

		return consumerFunc(spent)
	}); err != nil {
		return err
	}

	return innerErr
}

// UnspentOutputs returns all unspent outputs.
func (u *Manager) UnspentOutputs(options ...UTXOIterateOption) (Outputs, error) {

	var outputs Outputs
	consumerFunc := func(output *Output) bool {
		outputs = append(outputs, output)
		return true
	}

	if err := u.ForEachUnspentOutput(consumerFunc, options...); err != nil {
		return nil, err
	}

	return outputs, nil
}

// SpentOutputs returns all spent outputs.
func (u *Manager) SpentOutputs(options ...UTXOIterateOption) (Spents, error) {

	var spents Spents
	consumerFunc := func(spent *Spent) bool {
		spents = append(spents, spent)
		return true
	}

	if err := u.ForEachSpentOutput(consumerFunc, options...); err != nil {
		return nil, err
	}

	return spents, nil
}

// ComputeLedgerBalance sums up the deposits of all unspent outputs and counts them.
func (u *Manager) ComputeLedgerBalance(options ...UTXOIterateOption) (balance uint64, count int, err error) {

	consumerFunc := func(output *Output) bool {
		count++
		balance += output.Deposit()
		return true
	}

	if err := u.ForEachUnspentOutput(consumerFunc, options...); err != nil {
		return 0, 0, err
	}

	return balance, count, nil
}
