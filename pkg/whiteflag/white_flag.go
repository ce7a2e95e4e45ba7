package whiteflag

import (
	"context"
	"crypto"

	"github.com/pkg/errors"

	"github.com/iotaledger/hive.go/kvstore"
	// import implementation to make it registered in crypto
	_ "golang.org/x/crypto/blake2b"

	"github.com/iotaledger/bee-sub000/pkg/dag"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
)

var (
	// ErrIncludedBlocksSumDoesntMatch is returned when the amount of blocks
	// included with transactions does not match the referenced blocks minus the excluded blocks.
	ErrIncludedBlocksSumDoesntMatch = errors.New("the sum of the included blocks doesn't match the referenced blocks minus the excluded blocks")

	// ErrMissingBlock is returned when a block was missing in the past cone of a milestone.
	ErrMissingBlock = errors.New("block missing in past cone")
)

// Confirmation represents a confirmation done via a milestone under the "white-flag" approach.
type Confirmation struct {
	// The index of the milestone that got confirmed.
	MilestoneIndex milestone.Index
	// The milestone ID of the milestone that got confirmed.
	MilestoneID block.MilestoneID
	// The parents of the milestone that got confirmed.
	MilestoneParents block.BlockIDs
	// The ledger mutations and referenced blocks of this milestone.
	Mutations *WhiteFlagMutations
}

// BlockWithConflict holds a block ID together with the conflict reason
// why its transaction was excluded from the ledger.
type BlockWithConflict struct {
	BlockID  block.BlockID
	Conflict storage.Conflict
}

// WhiteFlagMutations contains the ledger mutations and referenced blocks applied to a cone under the "white-flag" approach.
type WhiteFlagMutations struct {
	// The blocks which mutate the ledger in the order in which they were applied.
	BlocksIncludedWithTransactions block.BlockIDs
	// The blocks which were excluded as they were conflicting with the ledger state.
	BlocksExcludedWithConflictingTransactions []BlockWithConflict
	// The blocks which were excluded because they did not include a transaction.
	BlocksExcludedWithoutTransactions block.BlockIDs
	// The blocks which were referenced by the milestone (should be the sum of the previous three).
	BlocksReferenced block.BlockIDs
	// Contains the newly created Unspent Outputs by the given confirmation.
	NewOutputs map[block.OutputID]*utxo.Output
	// Contains the Spent Outputs for the given confirmation.
	NewSpents map[block.OutputID]*utxo.Spent
	// The merkle tree root hash of all referenced blocks in the past cone.
	InclusionMerkleRoot [32]byte
	// The merkle tree root hash of all included transaction blocks in the past cone.
	AppliedMerkleRoot [32]byte
}

// ComputeWhiteFlagMutations computes the ledger changes in accordance to the white-flag rules for the cone referenced by the parents.
// Via a post-order depth-first search the approved blocks of the given cone are traversed and
// in their corresponding order applied/mutated against the previous ledger state, respectively previous applied mutations.
// Blocks within the approving cone must be valid. Blocks causing conflicts are ignored but do not create an error.
// It also computes the merkle tree root hashes of the inclusion set and the applied mutations.
func ComputeWhiteFlagMutations(ctx context.Context,
	utxoManager *utxo.Manager,
	parentsTraverserStorage dag.ParentsTraverserStorage,
	cachedBlockFunc storage.CachedBlockFunc,
	networkID uint64,
	msIndex milestone.Index,
	msTimestamp uint32,
	parents block.BlockIDs) (*WhiteFlagMutations, error) {

	wfConf := &WhiteFlagMutations{
		BlocksIncludedWithTransactions:            make(block.BlockIDs, 0),
		BlocksExcludedWithConflictingTransactions: make([]BlockWithConflict, 0),
		BlocksExcludedWithoutTransactions:         make(block.BlockIDs, 0),
		BlocksReferenced:                          make(block.BlockIDs, 0),
		NewOutputs:                                make(map[block.OutputID]*utxo.Output),
		NewSpents:                                 make(map[block.OutputID]*utxo.Spent),
	}

	semValCtx := &block.SemanticValidationContext{
		NetworkID:                   networkID,
		ConfirmingMilestoneIndex:    msIndex,
		ConfirmingMilestoneUnixTime: msTimestamp,
	}

	// traversal stops if no more blocks pass the given condition
	// Caution: condition func is not in DFS order
	condition := func(cachedBlockMeta *storage.CachedMetadata) (bool, error) { // meta +1
		defer cachedBlockMeta.Release(true) // meta -1

		// only traverse and process the block if it was not referenced yet
		return !cachedBlockMeta.Metadata().IsReferenced(), nil
	}

	// consumer
	consumer := func(cachedBlockMeta *storage.CachedMetadata) error { // meta +1
		defer cachedBlockMeta.Release(true) // meta -1

		blockID := cachedBlockMeta.Metadata().BlockID()

		// load up block
		cachedBlock, err := cachedBlockFunc(blockID) // block +1
		if err != nil {
			return err
		}
		if cachedBlock == nil {
			return errors.Wrapf(ErrMissingBlock, "block %s of candidate milestone doesn't exist", blockID.ToHex())
		}
		defer cachedBlock.Release(true) // block -1

		// exclude blocks without transactions
		transaction := cachedBlock.Block().Transaction()
		if transaction == nil {
			wfConf.BlocksReferenced = append(wfConf.BlocksReferenced, blockID)
			wfConf.BlocksExcludedWithoutTransactions = append(wfConf.BlocksExcludedWithoutTransactions, blockID)

			return nil
		}

		transactionID := transaction.ID()

		conflict := storage.ConflictNone

		// go through all the inputs and validate that they are still unspent
		inputOutputs := make(utxo.Outputs, 0, len(transaction.Essence.Inputs))
		for _, input := range transaction.Essence.Inputs {
			outputID := input.OutputID()

			// check if this input was already spent during the confirmation
			if _, spent := wfConf.NewSpents[outputID]; spent {
				conflict = storage.ConflictInputUTXOAlreadySpentInThisMilestone

				break
			}

			// check if this input was newly created during the confirmation
			if output, created := wfConf.NewOutputs[outputID]; created {
				// UTXO is in the current ledger mutations, so use it
				inputOutputs = append(inputOutputs, output)

				continue
			}

			// check current ledger for this input
			output, err := utxoManager.ReadOutputByOutputIDWithoutLocking(outputID)
			if err != nil {
				if errors.Is(err, kvstore.ErrKeyNotFound) {
					// input not found, so mark as invalid tx
					conflict = storage.ConflictInputUTXONotFound

					break
				}

				return err
			}

			// check if this output is unspent
			unspent, err := utxoManager.IsOutputIDUnspentWithoutLocking(outputID)
			if err != nil {
				return err
			}
			if !unspent {
				// output is already spent, so mark as conflict
				conflict = storage.ConflictInputUTXOAlreadySpent

				break
			}

			inputOutputs = append(inputOutputs, output)
		}

		if conflict == storage.ConflictNone {
			// validate the transaction against the resolved inputs
			if err := transaction.SemanticallyValidate(semValCtx, inputOutputs.ToConsumedOutputs()); err != nil {
				conflict = storage.ConflictFromSemanticValidationError(err)
			}
		}

		wfConf.BlocksReferenced = append(wfConf.BlocksReferenced, blockID)

		if conflict != storage.ConflictNone {
			wfConf.BlocksExcludedWithConflictingTransactions = append(wfConf.BlocksExcludedWithConflictingTransactions, BlockWithConflict{
				BlockID:  blockID,
				Conflict: conflict,
			})

			return nil
		}

		// mark the given block to be part of milestone ledger by changing message inclusion set
		wfConf.BlocksIncludedWithTransactions = append(wfConf.BlocksIncludedWithTransactions, blockID)

		// save the inputs as spent
		for _, inputOutput := range inputOutputs {
			wfConf.NewSpents[inputOutput.OutputID()] = utxo.NewSpent(inputOutput, transactionID, msIndex, msTimestamp)
		}

		// add new outputs
		for i := 0; i < len(transaction.Essence.Outputs); i++ {
			output, err := utxo.NewOutput(blockID, msIndex, msTimestamp, transaction, uint16(i))
			if err != nil {
				return err
			}
			wfConf.NewOutputs[output.OutputID()] = output
		}

		return nil
	}

	// This function does the DFS and computes the mutations a white-flag confirmation would create.
	// If the parents are SEPs, are already processed or already referenced,
	// then the mutations from the blocks retrieved from the stack are accumulated to the given Confirmation struct's mutations.
	// If the popped block was used to mutate the Confirmation struct, it will get deleted.
	if err := dag.NewParentsTraverser(parentsTraverserStorage).Traverse(
		ctx,
		parents,
		condition,
		consumer,
		// called on missing parents
		// return error on missing parents
		nil,
		// called on solid entry points
		// Ignore solid entry points (snapshot milestone included)
		nil,
		false); err != nil {
		return nil, err
	}

	// perform sanity checks
	if len(wfConf.BlocksIncludedWithTransactions) != (len(wfConf.BlocksReferenced) - len(wfConf.BlocksExcludedWithConflictingTransactions) - len(wfConf.BlocksExcludedWithoutTransactions)) {
		return nil, ErrIncludedBlocksSumDoesntMatch
	}

	// compute past cone merkle tree root hashes
	hasher := NewHasher(crypto.BLAKE2b_256)
	copy(wfConf.InclusionMerkleRoot[:], hasher.Hash(wfConf.BlocksReferenced))
	copy(wfConf.AppliedMerkleRoot[:], hasher.Hash(wfConf.BlocksIncludedWithTransactions))

	return wfConf, nil
}
