package milestonemanager

import (
	"time"

	"github.com/iotaledger/hive.go/events"
	"github.com/iotaledger/hive.go/syncutils"

	"github.com/iotaledger/bee-sub000/pkg/keymanager"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
)

type packageEvents struct {
	ReceivedValidMilestone *events.Event
}

// MilestoneManager validates milestone payloads against
// the applicable public keys of the milestone signers.
type MilestoneManager struct {
	// used to access the node storage
	storage *storage.Storage
	// the manager of the known milestone signer keys
	keyManager *keymanager.KeyManager
	// the amount of public keys in a milestone
	milestonePublicKeyCount int

	processValidMilestoneLock syncutils.Mutex

	// events of the milestone manager
	Events *packageEvents
}

func New(
	dbStorage *storage.Storage,
	keyManager *keymanager.KeyManager,
	milestonePublicKeyCount int) *MilestoneManager {

	t := &MilestoneManager{
		storage:                 dbStorage,
		keyManager:              keyManager,
		milestonePublicKeyCount: milestonePublicKeyCount,

		Events: &packageEvents{
			ReceivedValidMilestone: events.NewEvent(storage.MilestoneWithBlockIDAndRequestedCaller),
		},
	}
	return t
}

// KeyManager returns the used key manager.
func (m *MilestoneManager) KeyManager() *keymanager.KeyManager {
	return m.keyManager
}

// VerifyMilestoneBlock checks if the block contains a valid milestone payload.
// Returns the milestone payload if the signatures are valid.
func (m *MilestoneManager) VerifyMilestoneBlock(blk *block.Block) *block.MilestonePayload {

	msPayload := blk.Milestone()
	if msPayload == nil {
		return nil
	}

	return m.VerifyMilestonePayload(msPayload)
}

// VerifyMilestonePayload checks if the milestone payload is signed by
// a quorum of the applicable public keys of its index.
func (m *MilestoneManager) VerifyMilestonePayload(msPayload *block.MilestonePayload) *block.MilestonePayload {

	if err := msPayload.VerifySignatures(m.milestonePublicKeyCount, m.keyManager.GetPublicKeysSetForMilestoneIndex(msPayload.Index)); err != nil {
		return nil
	}

	return msPayload
}

// StoreMilestone stores the milestone in the storage layer and triggers the ReceivedValidMilestone event.
func (m *MilestoneManager) StoreMilestone(cachedBlock *storage.CachedBlock, msPayload *block.MilestonePayload, requested bool) {
	defer cachedBlock.Release(true) // block -1

	// the same milestone could have been processed multiple times in parallel
	m.processValidMilestoneLock.Lock()
	defer m.processValidMilestoneLock.Unlock()

	// Mark block as milestone
	cachedBlock.Metadata().SetMilestone(true)

	cachedMilestone, newlyAdded := m.storage.StoreMilestoneIfAbsent(msPayload.Index, cachedBlock.Block().BlockID(), msPayload.ID(), time.Unix(int64(msPayload.Timestamp), 0)) // milestone +1
	if !newlyAdded {
		return
	}
	defer cachedMilestone.Release(true) // milestone -1

	m.Events.ReceivedValidMilestone.Trigger(cachedBlock.Block().BlockID(), cachedMilestone.Retain(), requested) // milestone pass +1
}
