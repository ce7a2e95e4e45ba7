package tangle

import (
	"context"

	"github.com/iotaledger/hive.go/events"
	"github.com/iotaledger/hive.go/logger"
	"github.com/iotaledger/hive.go/syncutils"
	"github.com/iotaledger/hive.go/workerpool"

	"github.com/iotaledger/bee-sub000/pkg/common"
	"github.com/iotaledger/bee-sub000/pkg/metrics"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/milestonemanager"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
	"github.com/iotaledger/bee-sub000/pkg/model/syncmanager"
	"github.com/iotaledger/bee-sub000/pkg/utils"
)

const (
	futureConeSolidifierWorkerCount = 1 // must be one, so there are no parallel solidifications of the same cone
	futureConeSolidifierQueueSize   = 10000

	processValidMilestoneWorkerCount = 1 // must be one, so there are no parallel validations
	processValidMilestoneQueueSize   = 1000

	milestoneSolidifierWorkerCount = 2 // must be two, so a new request can abort another, in case it is an older milestone
	milestoneSolidifierQueueSize   = 2
)

type Tangle struct {
	log *logger.Logger

	// used to access the node storage
	storage *storage.Storage
	// used to determine the sync status of the node
	syncManager *syncmanager.SyncManager
	// used to validate and store milestones
	milestoneManager *milestonemanager.MilestoneManager
	// shared server metrics instance
	serverMetrics *metrics.ServerMetrics
	// the network ID transactions are validated against
	networkID uint64
	// context that is done when the node shuts down
	shutdownCtx context.Context

	futureConeSolidifier *FutureConeSolidifier

	futureConeSolidifierWorkerPool  *workerpool.WorkerPool
	processValidMilestoneWorkerPool *workerpool.WorkerPool
	milestoneSolidifierWorkerPool   *workerpool.WorkerPool

	blockSolidSyncEvent         *utils.SyncEvent
	milestoneConfirmedSyncEvent *utils.SyncEvent

	milestoneSolidificationCtxLock    syncutils.Mutex
	milestoneSolidificationCancelFunc context.CancelFunc

	solidifierMilestoneIndex     milestone.Index
	solidifierMilestoneIndexLock syncutils.RWMutex

	solidifierLock syncutils.RWMutex

	onReceivedValidMilestone *events.Closure

	Events *Events
}

func New(
	log *logger.Logger,
	dbStorage *storage.Storage,
	syncManager *syncmanager.SyncManager,
	milestoneManager *milestonemanager.MilestoneManager,
	serverMetrics *metrics.ServerMetrics,
	networkID uint64,
	shutdownCtx context.Context) *Tangle {

	t := &Tangle{
		log:                         log,
		storage:                     dbStorage,
		syncManager:                 syncManager,
		milestoneManager:            milestoneManager,
		serverMetrics:               serverMetrics,
		networkID:                   networkID,
		shutdownCtx:                 shutdownCtx,
		blockSolidSyncEvent:         utils.NewSyncEvent(),
		milestoneConfirmedSyncEvent: utils.NewSyncEvent(),
		Events: &Events{
			ReceivedNewBlock:               events.NewEvent(storage.NewBlockCaller),
			ReceivedKnownBlock:             events.NewEvent(storage.BlockCaller),
			BlockSolid:                     events.NewEvent(storage.BlockMetadataCaller),
			ReceivedNewMilestoneBlock:      events.NewEvent(storage.MilestoneCaller),
			LatestMilestoneChanged:         events.NewEvent(storage.MilestoneCaller),
			LatestMilestoneIndexChanged:    events.NewEvent(milestone.IndexCaller),
			MilestoneSolidificationFailed:  events.NewEvent(milestone.IndexCaller),
			ConfirmedMilestoneIndexChanged: events.NewEvent(milestone.IndexCaller),
			MilestoneConfirmed:             events.NewEvent(ConfirmedMilestoneCaller),
			ConfirmedMilestoneChanged:      events.NewEvent(storage.MilestoneCaller),
			ConfirmationMetricsUpdated:     events.NewEvent(ConfirmationMetricsCaller),
			BlockReferenced:                events.NewEvent(storage.BlockReferencedCaller),
			LedgerUpdated:                  events.NewEvent(LedgerUpdatedCaller),
			NewUTXOOutput:                  events.NewEvent(UTXOOutputCaller),
			NewUTXOSpent:                   events.NewEvent(UTXOSpentCaller),
		},
	}
	t.futureConeSolidifier = NewFutureConeSolidifier(t.storage, t.markBlockAsSolid)
	t.ConfigureTangleProcessor()

	return t
}

func (t *Tangle) ConfigureTangleProcessor() {

	t.futureConeSolidifierWorkerPool = workerpool.New(func(task workerpool.Task) {
		if err := t.futureConeSolidifier.SolidifyBlockAndFutureCone(t.shutdownCtx, task.Param(0).(*storage.CachedMetadata)); err != nil {
			t.log.Debugf("SolidifyBlockAndFutureCone failed: %s", err)
		}
		task.Return(nil)
	}, workerpool.WorkerCount(futureConeSolidifierWorkerCount), workerpool.QueueSize(futureConeSolidifierQueueSize), workerpool.FlushTasksAtShutdown(true))

	t.processValidMilestoneWorkerPool = workerpool.New(func(task workerpool.Task) {
		t.processValidMilestone(task.Param(0).(*storage.CachedMilestone), task.Param(1).(bool)) // milestone pass +1
		task.Return(nil)
	}, workerpool.WorkerCount(processValidMilestoneWorkerCount), workerpool.QueueSize(processValidMilestoneQueueSize), workerpool.FlushTasksAtShutdown(true))

	t.milestoneSolidifierWorkerPool = workerpool.New(func(task workerpool.Task) {
		t.solidifyMilestone(task.Param(0).(milestone.Index), task.Param(1).(bool))
		task.Return(nil)
	}, workerpool.WorkerCount(milestoneSolidifierWorkerCount), workerpool.QueueSize(milestoneSolidifierQueueSize))
}

// RunTangleProcessor attaches the valid milestone listener and starts the worker pools.
func (t *Tangle) RunTangleProcessor() {
	t.log.Info("Starting TangleProcessor ...")

	// set latest known milestone from database
	latestMilestoneFromDatabase := t.storage.SearchLatestMilestoneIndexInStore()
	confirmedMilestoneIndex := t.syncManager.ConfirmedMilestoneIndex()
	if latestMilestoneFromDatabase < confirmedMilestoneIndex {
		latestMilestoneFromDatabase = confirmedMilestoneIndex
	}
	t.syncManager.SetLatestMilestoneIndex(latestMilestoneFromDatabase)

	t.onReceivedValidMilestone = events.NewClosure(func(blockID block.BlockID, cachedMilestone *storage.CachedMilestone, requested bool) {

		if err := utils.ReturnErrIfCtxDone(t.shutdownCtx, common.ErrOperationAborted); err != nil {
			// do not process the milestone if the node was shut down
			cachedMilestone.Release(true) // milestone -1

			return
		}

		_, added := t.processValidMilestoneWorkerPool.Submit(cachedMilestone, requested) // milestone pass +1
		if !added {
			// Release shouldn't be forced, to cache the latest milestones
			cachedMilestone.Release() // milestone -1
		}
	})
	t.milestoneManager.Events.ReceivedValidMilestone.Attach(t.onReceivedValidMilestone)

	t.futureConeSolidifierWorkerPool.Start()
	t.processValidMilestoneWorkerPool.Start()
	t.milestoneSolidifierWorkerPool.Start()
}

// ShutdownTangleProcessor stops the worker pools.
// An in-flight milestone confirmation is finished before the pools are stopped.
func (t *Tangle) ShutdownTangleProcessor() {
	t.log.Info("Stopping TangleProcessor ...")

	if t.onReceivedValidMilestone != nil {
		t.milestoneManager.Events.ReceivedValidMilestone.Detach(t.onReceivedValidMilestone)
	}

	t.AbortMilestoneSolidification()

	t.futureConeSolidifierWorkerPool.StopAndWait()
	t.processValidMilestoneWorkerPool.StopAndWait()
	t.milestoneSolidifierWorkerPool.StopAndWait()
	t.futureConeSolidifier.Cleanup(true)

	t.log.Info("Stopping TangleProcessor ... done")
}

// AddBlockToTangle adds a new block to the storage,
// including all additional information like metadata, children and milestone entries.
func (t *Tangle) AddBlockToTangle(blk *storage.Block) (cachedBlock *storage.CachedBlock, alreadyAdded bool) {

	t.serverMetrics.Blocks.Inc()

	// the block will be added to the storage inside this function, so the block object automatically updates
	cachedBlock, alreadyAdded = t.storage.AddBlockToStorage(blk) // block +1

	if alreadyAdded {
		t.serverMetrics.KnownBlocks.Inc()
		t.Events.ReceivedKnownBlock.Trigger(cachedBlock)

		return cachedBlock, alreadyAdded
	}

	t.serverMetrics.NewBlocks.Inc()

	// check if the block contains a valid milestone payload
	if msPayload := t.milestoneManager.VerifyMilestoneBlock(cachedBlock.Block().Block()); msPayload != nil {
		t.serverMetrics.ValidMilestones.Inc()
		t.milestoneManager.StoreMilestone(cachedBlock.Retain(), msPayload, false) // block pass +1
	}

	// try to solidify the block and its future cone
	t.futureConeSolidifierWorkerPool.Submit(cachedBlock.CachedMetadata()) // meta pass +1

	t.Events.ReceivedNewBlock.Trigger(cachedBlock, t.syncManager.LatestMilestoneIndex(), t.syncManager.ConfirmedMilestoneIndex())

	return cachedBlock, alreadyAdded
}

// RegisterBlockSolidEvent returns a channel that gets closed when the block is marked as solid.
func (t *Tangle) RegisterBlockSolidEvent(blockID block.BlockID) chan struct{} {
	return t.blockSolidSyncEvent.RegisterEvent(blockID)
}

// DeregisterBlockSolidEvent removes a registered event to free the memory if not used.
func (t *Tangle) DeregisterBlockSolidEvent(blockID block.BlockID) {
	t.blockSolidSyncEvent.DeregisterEvent(blockID)
}

// RegisterMilestoneConfirmedEvent returns a channel that gets closed when the milestone is confirmed.
func (t *Tangle) RegisterMilestoneConfirmedEvent(msIndex milestone.Index) chan struct{} {
	return t.milestoneConfirmedSyncEvent.RegisterEvent(msIndex)
}

// DeregisterMilestoneConfirmedEvent removes a registered event to free the memory if not used.
func (t *Tangle) DeregisterMilestoneConfirmedEvent(msIndex milestone.Index) {
	t.milestoneConfirmedSyncEvent.DeregisterEvent(msIndex)
}
