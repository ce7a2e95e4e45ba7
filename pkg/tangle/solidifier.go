package tangle

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/iotaledger/bee-sub000/pkg/common"
	"github.com/iotaledger/bee-sub000/pkg/dag"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
	"github.com/iotaledger/bee-sub000/pkg/utils"
	"github.com/iotaledger/bee-sub000/pkg/whiteflag"
)

// SolidifierTriggerSignal is used to run the solidifier without
// a new milestone index as trigger.
const SolidifierTriggerSignal = milestone.Index(0)

// TriggerSolidifier can be used to manually trigger the solidifier from other plugins.
func (t *Tangle) TriggerSolidifier() {
	t.milestoneSolidifierWorkerPool.TrySubmit(SolidifierTriggerSignal, true)
}

func (t *Tangle) markBlockAsSolid(cachedBlockMeta *storage.CachedMetadata) {
	defer cachedBlockMeta.Release(true) // meta -1

	// update the solidity flags of this block
	cachedBlockMeta.Metadata().SetSolid(true)

	t.Events.BlockSolid.Trigger(cachedBlockMeta)
	t.blockSolidSyncEvent.Trigger(cachedBlockMeta.Metadata().BlockID())
}

// SolidQueueCheck traverses the past cone of the given parents and checks if it is solid.
// The solidification fails if blocks are missing in the database.
// Can be aborted if the given context is canceled.
func (t *Tangle) SolidQueueCheck(
	ctx context.Context,
	memcachedTraverserStorage dag.TraverserStorage,
	milestoneIndex milestone.Index,
	parents block.BlockIDs) (solid bool, aborted bool) {

	ts := time.Now()

	blocksChecked := 0
	var blockIDsToSolidify block.BlockIDs
	blockIDsMissing := make(map[block.BlockID]struct{})

	parentsTraverser := dag.NewParentsTraverser(memcachedTraverserStorage)

	// collect all blocks to solidify by traversing the tangle
	if err := parentsTraverser.Traverse(
		ctx,
		parents,
		// traversal stops if no more blocks pass the given condition
		// Caution: condition func is not in DFS order
		func(cachedBlockMeta *storage.CachedMetadata) (bool, error) { // meta +1
			defer cachedBlockMeta.Release(true) // meta -1

			// if the block is solid, there is no need to traverse its parents
			return !cachedBlockMeta.Metadata().IsSolid(), nil
		},
		// consumer
		func(cachedBlockMeta *storage.CachedMetadata) error { // meta +1
			defer cachedBlockMeta.Release(true) // meta -1

			// mark the block as checked
			blocksChecked++

			// collect the blocks to solidify in an ordered way
			blockIDsToSolidify = append(blockIDsToSolidify, cachedBlockMeta.Metadata().BlockID())

			return nil
		},
		// called on missing parents
		func(parentBlockID block.BlockID) error {
			// block does not exist => the cone is not complete
			blockIDsMissing[parentBlockID] = struct{}{}

			return nil
		},
		// called on solid entry points
		// Ignore solid entry points (snapshot milestone included)
		nil,
		false); err != nil {
		if errors.Is(err, common.ErrOperationAborted) {
			return false, true
		}
		t.log.Panic(err)
	}

	tCollect := time.Now()

	if len(blockIDsMissing) > 0 {
		// the past cone of the milestone is not complete, the milestone can not be solidified yet
		t.log.Warnf("Stopped solidifier due to missing blocks (%d), collect: %v", len(blockIDsMissing), tCollect.Sub(ts).Truncate(time.Millisecond))

		return false, false
	}

	// no blocks missing => the whole cone is solid
	// we mark all blocks as solid in order from oldest to latest
	for _, blockID := range blockIDsToSolidify {
		cachedBlockMeta, err := memcachedTraverserStorage.CachedBlockMetadata(blockID) // meta +1
		if err != nil {
			t.log.Panicf("solidQueueCheck: Get block metadata failed: %v, Error: %v", blockID.ToHex(), err)

			return
		}
		if cachedBlockMeta == nil {
			t.log.Panicf("solidQueueCheck: Block metadata not found: %v", blockID.ToHex())

			return
		}

		t.markBlockAsSolid(cachedBlockMeta.Retain()) // meta pass +1
		cachedBlockMeta.Release(true)                // meta -1
	}

	tSolid := time.Now()

	// propagate solidity to the future cone (blocks attached to the blocks of this milestone)
	if err := t.futureConeSolidifier.SolidifyFutureConesWithMetadataMemcache(ctx, memcachedTraverserStorage, blockIDsToSolidify); err != nil {
		t.log.Debugf("SolidifyFutureConesWithMetadataMemcache failed: %s", err)
	}

	t.log.Infof("Solidifier finished: blocks: %d, collect: %v, solidity %v, propagation: %v, total: %v", blocksChecked, tCollect.Sub(ts).Truncate(time.Millisecond), tSolid.Sub(tCollect).Truncate(time.Millisecond), time.Since(tSolid).Truncate(time.Millisecond), time.Since(ts).Truncate(time.Millisecond))

	return true, false
}

func (t *Tangle) newMilestoneSolidificationCtx() (context.Context, context.CancelFunc) {
	t.milestoneSolidificationCtxLock.Lock()
	defer t.milestoneSolidificationCtxLock.Unlock()

	// milestone solidification can be canceled by node shutdown or external signal
	ctx, ctxCancel := context.WithCancel(t.shutdownCtx)
	t.milestoneSolidificationCancelFunc = ctxCancel

	return ctx, ctxCancel
}

func (t *Tangle) AbortMilestoneSolidification() {
	t.milestoneSolidificationCtxLock.Lock()
	defer t.milestoneSolidificationCtxLock.Unlock()

	if t.milestoneSolidificationCancelFunc != nil {
		// cancel ongoing solidifications
		t.milestoneSolidificationCancelFunc()
		t.milestoneSolidificationCancelFunc = nil
	}
}

// solidifyMilestone tries to solidify and confirm the next known non-solid milestone.
func (t *Tangle) solidifyMilestone(newMilestoneIndex milestone.Index, force bool) {

	/* How milestone solidification works:

	- A milestone comes in and gets validated
	- Every time a new block comes in, the solidifier tries to solidify the future cone of that block
	- If a new valid milestone is detected, the milestone solidifier is started
	- If blocks are missing in the past cone of the milestone, the solidification fails and is retried with the next trigger
	- The traversal can be aborted with a signal and restarted
	*/
	if !force {
		/*
			If solidification is not forced, we will only run the solidifier under one of the following conditions:
				- newMilestoneIndex==0 (trigger signal) and solidifierMilestoneIndex==0 (no ongoing solidification)
				- newMilestoneIndex==confirmedMilestoneIndex+1 (next milestone)
				- newMilestoneIndex!=0 (new milestone received) and solidifierMilestoneIndex!=0 (ongoing solidification) and newMilestoneIndex<solidifierMilestoneIndex (milestone older than ongoing solidification)
				- newMilestoneIndex!=0 (new milestone received) and solidifierMilestoneIndex==0 (no ongoing solidification)
		*/

		t.solidifierMilestoneIndexLock.RLock()
		triggerSignal := (newMilestoneIndex == 0) && (t.solidifierMilestoneIndex == 0)
		nextMilestoneSignal := newMilestoneIndex == t.syncManager.ConfirmedMilestoneIndex()+1
		olderMilestoneDetected := (newMilestoneIndex != 0) && ((t.solidifierMilestoneIndex != 0) && (newMilestoneIndex < t.solidifierMilestoneIndex))
		newMilestoneSignal := (t.solidifierMilestoneIndex == 0) && (newMilestoneIndex != 0)
		if !(triggerSignal || nextMilestoneSignal || olderMilestoneDetected || newMilestoneSignal) {
			// Do not run solidifier
			t.solidifierMilestoneIndexLock.RUnlock()

			return
		}
		t.solidifierMilestoneIndexLock.RUnlock()
	}

	// Stop possible other newer solidifications
	t.AbortMilestoneSolidification()

	t.solidifierLock.Lock()
	defer t.solidifierLock.Unlock()

	syncState := t.syncManager.SyncState()
	currentConfirmedIndex := syncState.ConfirmedMilestoneIndex
	latestIndex := syncState.LatestMilestoneIndex

	if currentConfirmedIndex == latestIndex && latestIndex != 0 {
		// Latest milestone already solid
		return
	}

	// always traverse the oldest non-solid milestone, either it gets solid, or something is missing that should be requested.
	milestoneIndexToSolidify, err := t.findClosestNextMilestoneIndex(currentConfirmedIndex, latestIndex)
	if err != nil {
		// No newer milestone available
		return
	}

	cachedMilestoneToSolidify := t.storage.CachedMilestoneOrNil(milestoneIndexToSolidify) // milestone +1
	if cachedMilestoneToSolidify == nil {
		// Milestone not found
		t.log.Panic(storage.ErrMilestoneNotFound)

		return
	}

	// Release shouldn't be forced, to cache the latest milestones
	defer cachedMilestoneToSolidify.Release() // milestone -1

	milestoneToSolidify := cachedMilestoneToSolidify.Milestone()

	milestonePayloadToSolidify, err := t.milestonePayload(milestoneToSolidify.BlockID)
	if err != nil {
		t.log.Panicf("milestone payload for milestone %d not found: %s", milestoneIndexToSolidify, err)

		return
	}

	t.setSolidifierMilestoneIndex(milestoneIndexToSolidify)

	milestoneSolidificationCtx, milestoneSolidificationCancelFunc := t.newMilestoneSolidificationCtx()
	defer milestoneSolidificationCancelFunc()

	blocksMemcache := storage.NewBlocksMemcache(t.storage.CachedBlock)
	metadataMemcache := storage.NewMetadataMemcache(t.storage.CachedBlockMetadata)
	memcachedTraverserStorage := dag.NewMemcachedTraverserStorage(t.storage, metadataMemcache)

	defer func() {
		// all releases are forced since the cone is referenced and not needed anymore
		memcachedTraverserStorage.Cleanup(true)

		// release all blocks at the end
		blocksMemcache.Cleanup(true)

		// Release all block metadata at the end
		metadataMemcache.Cleanup(true)
	}()

	t.log.Infof("Run solidity check for Milestone (%d) ...", milestoneIndexToSolidify)
	if becameSolid, aborted := t.SolidQueueCheck(
		milestoneSolidificationCtx,
		memcachedTraverserStorage,
		milestoneIndexToSolidify,
		milestonePayloadToSolidify.Parents,
	); !becameSolid {
		if aborted {
			// check was aborted due to older milestones/other solidifier running
			t.log.Infof("Aborted solid queue check for milestone %d", milestoneIndexToSolidify)
		} else {
			// Milestone not solid yet because blocks are missing
			t.Events.MilestoneSolidificationFailed.Trigger(milestoneIndexToSolidify)
			t.log.Infof("Milestone couldn't be solidified! %d", milestoneIndexToSolidify)
		}
		t.setSolidifierMilestoneIndex(0)

		return
	}

	if (currentConfirmedIndex + 1) < milestoneIndexToSolidify {

		// Milestone is stable, but some Milestones are missing in between
		// => check if they were found, or search for them in the solidified cone
		milestoneIndexClosestNext, err := t.findClosestNextMilestoneIndex(currentConfirmedIndex, latestIndex)
		if err != nil {
			t.log.Panicf("Milestones missing between (%d) and (%d).", currentConfirmedIndex, milestoneIndexToSolidify)
		}

		if milestoneIndexClosestNext == milestoneIndexToSolidify {
			t.log.Infof("Milestones missing between (%d) and (%d). Search for missing milestones ...", currentConfirmedIndex, milestoneIndexClosestNext)

			// no Milestones found in between => search an older milestone in the solid cone
			if found, err := t.searchMissingMilestones(
				milestoneSolidificationCtx,
				currentConfirmedIndex,
				milestoneIndexClosestNext,
				milestonePayloadToSolidify.Parents,
			); !found {
				if err != nil {
					// no milestones found => this should not happen!
					t.log.Panicf("Milestones missing between (%d) and (%d).", currentConfirmedIndex, milestoneIndexClosestNext)
				}
				t.log.Infof("Aborted search for missing milestones between (%d) and (%d).", currentConfirmedIndex, milestoneIndexClosestNext)
			}
		}
		// rerun to solidify the older one
		t.setSolidifierMilestoneIndex(0)
		t.milestoneSolidifierWorkerPool.TrySubmit(SolidifierTriggerSignal, true)

		return
	}

	var newConfirmation *whiteflag.Confirmation

	var (
		timeStart                             time.Time
		timeSetConfirmedMilestoneIndexStart   time.Time
		timeSetConfirmedMilestoneIndexEnd     time.Time
		timeConfirmedMilestoneIndexChangedEnd time.Time
		timeConfirmedMilestoneChangedStart    time.Time
		timeConfirmedMilestoneChangedEnd      time.Time
	)

	timeStart = time.Now()
	confirmedMilestoneStats, confirmationMetrics, err := whiteflag.ConfirmMilestone(
		t.storage.UTXOManager(),
		memcachedTraverserStorage,
		blocksMemcache.CachedBlock,
		t.networkID,
		milestoneToSolidify.BlockID,
		milestonePayloadToSolidify,
		t.serverMetrics,
		// Hint: Ledger is not locked
		func(blockMeta *storage.CachedMetadata, index milestone.Index, confTime uint32) {
			t.Events.BlockReferenced.Trigger(blockMeta, index, confTime)
		},
		// Hint: Ledger is write locked
		func(confirmation *whiteflag.Confirmation) {
			newConfirmation = confirmation

			timeSetConfirmedMilestoneIndexStart = time.Now()
			if err := t.syncManager.SetConfirmedMilestoneIndex(milestoneIndexToSolidify); err != nil {
				t.log.Panicf("SetConfirmedMilestoneIndex failed: %s", err)
			}
			timeSetConfirmedMilestoneIndexEnd = time.Now()

			t.Events.ConfirmedMilestoneIndexChanged.Trigger(milestoneIndexToSolidify)
			timeConfirmedMilestoneIndexChangedEnd = time.Now()
		},
		// Hint: Ledger is not locked
		func(index milestone.Index, output *utxo.Output) {
			t.Events.NewUTXOOutput.Trigger(index, output)
		},
		// Hint: Ledger is not locked
		func(index milestone.Index, spent *utxo.Spent) {
			t.Events.NewUTXOSpent.Trigger(index, spent)
		})

	if err != nil {
		t.log.Panic(err)
	}

	t.milestoneConfirmedSyncEvent.Trigger(milestoneIndexToSolidify)

	if newConfirmation != nil {
		newOutputs := make(utxo.Outputs, 0, len(newConfirmation.Mutations.NewOutputs))
		for _, output := range newConfirmation.Mutations.NewOutputs {
			newOutputs = append(newOutputs, output)
		}
		newSpents := make(utxo.Spents, 0, len(newConfirmation.Mutations.NewSpents))
		for _, spent := range newConfirmation.Mutations.NewSpents {
			newSpents = append(newSpents, spent)
		}

		t.Events.LedgerUpdated.Trigger(milestoneIndexToSolidify, newOutputs, newSpents)
		t.Events.MilestoneConfirmed.Trigger(newConfirmation)
	}

	timeConfirmedMilestoneChangedStart = time.Now()
	t.Events.ConfirmedMilestoneChanged.Trigger(cachedMilestoneToSolidify) // milestone pass +1
	timeConfirmedMilestoneChangedEnd = time.Now()

	t.log.Infof("Milestone confirmed (%d): txsReferenced: %v, txsValue: %v, txsZeroValue: %v, txsConflicting: %v, collect: %v, total: %v",
		confirmedMilestoneStats.Index,
		confirmedMilestoneStats.BlocksReferenced,
		confirmedMilestoneStats.BlocksIncludedWithTransactions,
		confirmedMilestoneStats.BlocksExcludedWithoutTransactions,
		confirmedMilestoneStats.BlocksExcludedWithConflictingTransactions,
		confirmationMetrics.DurationWhiteflag.Truncate(time.Millisecond),
		time.Since(timeStart).Truncate(time.Millisecond),
	)

	confirmationMetrics.DurationSetConfirmedMilestoneIndex = timeSetConfirmedMilestoneIndexEnd.Sub(timeSetConfirmedMilestoneIndexStart)
	confirmationMetrics.DurationConfirmedMilestoneIndexChanged = timeConfirmedMilestoneIndexChangedEnd.Sub(timeSetConfirmedMilestoneIndexEnd)
	confirmationMetrics.DurationConfirmedMilestoneChanged = timeConfirmedMilestoneChangedEnd.Sub(timeConfirmedMilestoneChangedStart)
	confirmationMetrics.DurationTotal = time.Since(timeStart)

	t.Events.ConfirmationMetricsUpdated.Trigger(confirmationMetrics)

	// Run check for next milestone
	t.setSolidifierMilestoneIndex(0)

	if err := utils.ReturnErrIfCtxDone(t.shutdownCtx, common.ErrOperationAborted); err != nil {
		// do not trigger the next solidification if the node was shut down
		return
	}

	t.milestoneSolidifierWorkerPool.TrySubmit(SolidifierTriggerSignal, false)
}

// milestonePayload loads the milestone block from the storage and returns its milestone payload.
func (t *Tangle) milestonePayload(milestoneBlockID block.BlockID) (*block.MilestonePayload, error) {

	cachedBlock := t.storage.CachedBlockOrNil(milestoneBlockID) // block +1
	if cachedBlock == nil {
		return nil, errors.Wrapf(common.ErrBlockNotFound, "block ID: %s", milestoneBlockID.ToHex())
	}
	defer cachedBlock.Release(true) // block -1

	milestonePayload := cachedBlock.Block().Block().Milestone()
	if milestonePayload == nil {
		return nil, fmt.Errorf("block does not contain a milestone payload: %s", milestoneBlockID.ToHex())
	}

	return milestonePayload, nil
}

func (t *Tangle) setSolidifierMilestoneIndex(index milestone.Index) {
	t.solidifierMilestoneIndexLock.Lock()
	t.solidifierMilestoneIndex = index
	t.solidifierMilestoneIndexLock.Unlock()
}

// findClosestNextMilestoneIndex searches for the closest known milestone index above the given index.
func (t *Tangle) findClosestNextMilestoneIndex(index milestone.Index, latestMilestoneIndex milestone.Index) (milestone.Index, error) {

	if latestMilestoneIndex <= index {
		return 0, storage.ErrMilestoneNotFound
	}

	for msIndex := index + 1; msIndex <= latestMilestoneIndex; msIndex++ {
		if t.storage.ContainsMilestone(msIndex) {
			return msIndex, nil
		}
	}

	return 0, storage.ErrMilestoneNotFound
}

// searchMissingMilestones searches milestones in the cone that are not persisted in the DB yet by traversing the tangle.
func (t *Tangle) searchMissingMilestones(ctx context.Context, confirmedMilestoneIndex milestone.Index, startMilestoneIndex milestone.Index, milestoneParents block.BlockIDs) (found bool, err error) {

	var milestoneFound bool

	ts := time.Now()

	parentsTraverser := dag.NewParentsTraverser(t.storage)

	if err := parentsTraverser.Traverse(
		ctx,
		milestoneParents,
		// traversal stops if no more blocks pass the given condition
		// Caution: condition func is not in DFS order
		func(cachedBlockMeta *storage.CachedMetadata) (bool, error) { // meta +1
			defer cachedBlockMeta.Release(true) // meta -1

			// if the block is referenced by an older milestone, there is no need to traverse its parents
			if referenced, at := cachedBlockMeta.Metadata().ReferencedWithIndex(); referenced && (at <= confirmedMilestoneIndex) {
				return false, nil
			}

			blockID := cachedBlockMeta.Metadata().BlockID()
			cachedBlock := t.storage.CachedBlockOrNil(blockID) // block +1
			if cachedBlock == nil {
				return false, errors.Wrapf(common.ErrBlockNotFound, "block ID: %s", blockID.ToHex())
			}
			defer cachedBlock.Release(true) // block -1

			milestonePayload := t.milestoneManager.VerifyMilestoneBlock(cachedBlock.Block().Block())
			if milestonePayload == nil {
				return true, nil
			}

			msIndex := milestonePayload.Index
			if (msIndex <= confirmedMilestoneIndex) || (msIndex >= startMilestoneIndex) {
				return true, nil
			}

			// milestone found!
			t.milestoneManager.StoreMilestone(cachedBlock.Retain(), milestonePayload, false) // block pass +1
			milestoneFound = true

			return true, nil // we keep searching for all missing milestones
		},
		// consumer
		nil,
		// called on missing parents
		// return error on missing parents
		nil,
		// called on solid entry points
		// Ignore solid entry points (snapshot milestone included)
		nil,
		false); err != nil {

		if errors.Is(err, common.ErrOperationAborted) {
			return false, nil
		}

		return false, err
	}

	t.log.Infof("searchMissingMilestone finished, found: %v, took: %v", milestoneFound, time.Since(ts).Truncate(time.Millisecond))

	return milestoneFound, nil
}
