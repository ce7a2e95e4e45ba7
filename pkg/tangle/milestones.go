package tangle

import (
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
)

func (t *Tangle) processValidMilestone(cachedMilestone *storage.CachedMilestone, requested bool) {
	defer cachedMilestone.Release(true) // milestone -1

	t.Events.ReceivedNewMilestoneBlock.Trigger(cachedMilestone) // milestone pass +1

	confirmedMsIndex := t.syncManager.ConfirmedMilestoneIndex()
	msIndex := cachedMilestone.Milestone().Index

	if t.syncManager.SetLatestMilestoneIndex(msIndex) {
		t.Events.LatestMilestoneChanged.Trigger(cachedMilestone) // milestone pass +1
		t.Events.LatestMilestoneIndexChanged.Trigger(msIndex)
	}
	t.milestoneSolidifierWorkerPool.TrySubmit(msIndex, false)

	if msIndex > confirmedMsIndex && !requested {
		t.log.Infof("Valid milestone detected! Index: %d", msIndex)
	}
}
