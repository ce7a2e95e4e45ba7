package whiteflag

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/iotaledger/bee-sub000/pkg/common"
	"github.com/iotaledger/bee-sub000/pkg/dag"
	"github.com/iotaledger/bee-sub000/pkg/metrics"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
)

// ConfirmedMilestoneStats are stats about a confirmed milestone.
type ConfirmedMilestoneStats struct {
	Index                                     milestone.Index
	BlocksReferenced                          int
	BlocksIncludedWithTransactions            int
	BlocksExcludedWithConflictingTransactions int
	BlocksExcludedWithoutTransactions         int
}

// ConfirmationMetrics holds metrics about a confirmation run.
type ConfirmationMetrics struct {
	DurationWhiteflag                                time.Duration
	DurationApplyConfirmation                        time.Duration
	DurationApplyIncludedWithTransactions            time.Duration
	DurationApplyExcludedWithoutTransactions         time.Duration
	DurationApplyMilestone                           time.Duration
	DurationApplyExcludedWithConflictingTransactions time.Duration
	DurationOnMilestoneConfirmed                     time.Duration
	DurationSetConfirmedMilestoneIndex               time.Duration
	DurationConfirmedMilestoneIndexChanged           time.Duration
	DurationConfirmedMilestoneChanged                time.Duration
	DurationTotal                                    time.Duration
}

// ConfirmMilestone traverses a milestone and collects all unreferenced blocks,
// then the ledger changes are calculated in accordance to the white-flag rules,
// the ledger state is mutated and all blocks are marked as referenced.
// Metadata of the referenced blocks are passed to the caller via the
// given callbacks. All blocks of the milestone cone must be solid.
func ConfirmMilestone(
	utxoManager *utxo.Manager,
	parentsTraverserStorage dag.ParentsTraverserStorage,
	cachedBlockFunc storage.CachedBlockFunc,
	networkID uint64,
	milestoneBlockID block.BlockID,
	milestonePayload *block.MilestonePayload,
	serverMetrics *metrics.ServerMetrics,
	forEachReferencedBlock func(blockMetadata *storage.CachedMetadata, index milestone.Index, confTime uint32),
	onMilestoneConfirmed func(confirmation *Confirmation),
	forEachNewOutput func(index milestone.Index, output *utxo.Output),
	forEachNewSpent func(index milestone.Index, spent *utxo.Spent)) (*ConfirmedMilestoneStats, *ConfirmationMetrics, error) {

	msIndex := milestonePayload.Index
	msID := milestonePayload.ID()

	// we pass a background context here to not cancel the confirmation while shutting down the node.
	// the confirmation must be finished to keep the node database consistent.
	confirmationCtx := context.Background()

	utxoManager.WriteLockLedger()
	defer utxoManager.WriteUnlockLedger()

	ledgerIndex, err := utxoManager.ReadLedgerIndexWithoutLocking()
	if err != nil {
		return nil, nil, err
	}

	// milestones can only be applied in order onto the ledger
	if msIndex != ledgerIndex+1 {
		return nil, nil, common.NewCriticalError(errors.Wrapf(common.ErrMilestoneOutOfSequence, "msIndex: %d, ledgerIndex: %d", msIndex, ledgerIndex))
	}

	timeStart := time.Now()

	mutations, err := ComputeWhiteFlagMutations(confirmationCtx, utxoManager, parentsTraverserStorage, cachedBlockFunc, networkID, msIndex, milestonePayload.Timestamp, milestonePayload.Parents)
	if err != nil {
		// according to the white flag rules, the milestone cone must be valid
		return nil, nil, common.NewCriticalError(fmt.Errorf("confirmMilestone: whiteflag.ComputeWhiteFlagMutations failed with Error: %w", err))
	}
	timeWhiteflag := time.Now()

	// verify the calculated merkle tree root hashes against the roots in the milestone payload
	if mutations.InclusionMerkleRoot != milestonePayload.InclusionMerkleRoot {
		return nil, nil, common.NewCriticalError(fmt.Errorf("confirmMilestone: computed inclusion merkle tree root does not match the value in the milestone payload (%d): expected: %s, actual: %s",
			msIndex, hex.EncodeToString(milestonePayload.InclusionMerkleRoot[:]), hex.EncodeToString(mutations.InclusionMerkleRoot[:])))
	}
	if mutations.AppliedMerkleRoot != milestonePayload.AppliedMerkleRoot {
		return nil, nil, common.NewCriticalError(fmt.Errorf("confirmMilestone: computed applied merkle tree root does not match the value in the milestone payload (%d): expected: %s, actual: %s",
			msIndex, hex.EncodeToString(milestonePayload.AppliedMerkleRoot[:]), hex.EncodeToString(mutations.AppliedMerkleRoot[:])))
	}

	confirmation := &Confirmation{
		MilestoneIndex:   msIndex,
		MilestoneID:      msID,
		MilestoneParents: milestonePayload.Parents,
		Mutations:        mutations,
	}

	newOutputs := make(utxo.Outputs, 0, len(mutations.NewOutputs))
	for _, output := range mutations.NewOutputs {
		newOutputs = append(newOutputs, output)
	}

	newSpents := make(utxo.Spents, 0, len(mutations.NewSpents))
	for _, spent := range mutations.NewSpents {
		newSpents = append(newSpents, spent)
	}

	if err = utxoManager.ApplyConfirmationWithoutLocking(msIndex, newOutputs, newSpents); err != nil {
		return nil, nil, common.NewCriticalError(fmt.Errorf("confirmMilestone: utxo.ApplyConfirmation failed: %w", err))
	}
	timeApplyConfirmation := time.Now()

	if forEachNewOutput != nil {
		for _, output := range newOutputs {
			forEachNewOutput(msIndex, output)
		}
	}

	if forEachNewSpent != nil {
		for _, spent := range newSpents {
			forEachNewSpent(msIndex, spent)
		}
	}

	// the position of a block in the white flag ordered cone is stored in its metadata
	whiteFlagIndexes := make(map[block.BlockID]uint32, len(mutations.BlocksReferenced))
	for i, blockID := range mutations.BlocksReferenced {
		whiteFlagIndexes[blockID] = uint32(i)
	}

	forBlockMetadataWithBlockID := func(blockID block.BlockID, do func(meta *storage.CachedMetadata)) error {
		cachedBlockMeta, err := parentsTraverserStorage.CachedBlockMetadata(blockID) // meta +1
		if err != nil {
			return common.NewCriticalError(fmt.Errorf("confirmMilestone: get block metadata failed: %s, Error: %w", blockID.ToHex(), err))
		}
		if cachedBlockMeta == nil {
			return common.NewCriticalError(fmt.Errorf("confirmMilestone: block metadata not found: %s", blockID.ToHex()))
		}
		defer cachedBlockMeta.Release(true) // meta -1

		do(cachedBlockMeta)

		return nil
	}

	confirmedMilestoneStats := &ConfirmedMilestoneStats{
		Index: msIndex,
	}

	// confirm all included blocks
	for _, blockID := range mutations.BlocksIncludedWithTransactions {
		if err := forBlockMetadataWithBlockID(blockID, func(meta *storage.CachedMetadata) {
			if !meta.Metadata().IsReferenced() {
				meta.Metadata().SetReferenced(true, msIndex, whiteFlagIndexes[meta.Metadata().BlockID()])
				confirmedMilestoneStats.BlocksReferenced++
				confirmedMilestoneStats.BlocksIncludedWithTransactions++
				if serverMetrics != nil {
					serverMetrics.ReferencedBlocks.Inc()
					serverMetrics.IncludedTransactionBlocks.Inc()
				}
				if forEachReferencedBlock != nil {
					forEachReferencedBlock(meta.Retain(), msIndex, milestonePayload.Timestamp) // meta pass +1
				}
			}
		}); err != nil {
			return nil, nil, err
		}
	}
	timeApplyIncludedWithTransactions := time.Now()

	// confirm all excluded blocks not containing ledger transactions
	for _, blockID := range mutations.BlocksExcludedWithoutTransactions {
		if err := forBlockMetadataWithBlockID(blockID, func(meta *storage.CachedMetadata) {
			meta.Metadata().SetIsNoTransaction(true)
			if !meta.Metadata().IsReferenced() {
				meta.Metadata().SetReferenced(true, msIndex, whiteFlagIndexes[meta.Metadata().BlockID()])
				confirmedMilestoneStats.BlocksReferenced++
				confirmedMilestoneStats.BlocksExcludedWithoutTransactions++
				if serverMetrics != nil {
					serverMetrics.ReferencedBlocks.Inc()
					serverMetrics.NoTransactionBlocks.Inc()
				}
				if forEachReferencedBlock != nil {
					forEachReferencedBlock(meta.Retain(), msIndex, milestonePayload.Timestamp) // meta pass +1
				}
			}
		}); err != nil {
			return nil, nil, err
		}
	}
	timeApplyExcludedWithoutTransactions := time.Now()

	// confirm the milestone block itself
	if err := forBlockMetadataWithBlockID(milestoneBlockID, func(meta *storage.CachedMetadata) {
		meta.Metadata().SetIsNoTransaction(true)
		if !meta.Metadata().IsReferenced() {
			meta.Metadata().SetReferenced(true, msIndex, uint32(len(mutations.BlocksReferenced)))
			meta.Metadata().SetMilestone(true)
			confirmedMilestoneStats.BlocksReferenced++
			if serverMetrics != nil {
				serverMetrics.ReferencedBlocks.Inc()
			}
			if forEachReferencedBlock != nil {
				forEachReferencedBlock(meta.Retain(), msIndex, milestonePayload.Timestamp) // meta pass +1
			}
		}
	}); err != nil {
		return nil, nil, err
	}
	timeApplyMilestone := time.Now()

	// confirm all conflicting blocks
	for _, blockWithConflict := range mutations.BlocksExcludedWithConflictingTransactions {
		if err := forBlockMetadataWithBlockID(blockWithConflict.BlockID, func(meta *storage.CachedMetadata) {
			meta.Metadata().SetConflictingTx(blockWithConflict.Conflict)
			if !meta.Metadata().IsReferenced() {
				meta.Metadata().SetReferenced(true, msIndex, whiteFlagIndexes[meta.Metadata().BlockID()])
				confirmedMilestoneStats.BlocksReferenced++
				confirmedMilestoneStats.BlocksExcludedWithConflictingTransactions++
				if serverMetrics != nil {
					serverMetrics.ReferencedBlocks.Inc()
					serverMetrics.ConflictingTransactionBlocks.Inc()
				}
				if forEachReferencedBlock != nil {
					forEachReferencedBlock(meta.Retain(), msIndex, milestonePayload.Timestamp) // meta pass +1
				}
			}
		}); err != nil {
			return nil, nil, err
		}
	}
	timeApplyExcludedWithConflictingTransactions := time.Now()

	if onMilestoneConfirmed != nil {
		onMilestoneConfirmed(confirmation)
	}
	timeOnMilestoneConfirmed := time.Now()

	if serverMetrics != nil {
		serverMetrics.ConfirmedMilestones.Inc()
	}

	return confirmedMilestoneStats, &ConfirmationMetrics{
		DurationWhiteflag:                                timeWhiteflag.Sub(timeStart),
		DurationApplyConfirmation:                        timeApplyConfirmation.Sub(timeWhiteflag),
		DurationApplyIncludedWithTransactions:            timeApplyIncludedWithTransactions.Sub(timeApplyConfirmation),
		DurationApplyExcludedWithoutTransactions:         timeApplyExcludedWithoutTransactions.Sub(timeApplyIncludedWithTransactions),
		DurationApplyMilestone:                           timeApplyMilestone.Sub(timeApplyExcludedWithoutTransactions),
		DurationApplyExcludedWithConflictingTransactions: timeApplyExcludedWithConflictingTransactions.Sub(timeApplyMilestone),
		DurationOnMilestoneConfirmed:                     timeOnMilestoneConfirmed.Sub(timeApplyExcludedWithConflictingTransactions),
		DurationTotal:                                    time.Since(timeStart),
	}, nil
}
