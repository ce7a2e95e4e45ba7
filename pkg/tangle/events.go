package tangle

import (
	"github.com/iotaledger/hive.go/events"

	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/utxo"
	"github.com/iotaledger/bee-sub000/pkg/whiteflag"
)

// ConfirmedMilestoneCaller is used to signal a confirmed milestone.
func ConfirmedMilestoneCaller(handler interface{}, params ...interface{}) {
	handler.(func(confirmation *whiteflag.Confirmation))(params[0].(*whiteflag.Confirmation))
}

// ConfirmationMetricsCaller is used to signal updated confirmation metrics.
func ConfirmationMetricsCaller(handler interface{}, params ...interface{}) {
	handler.(func(metrics *whiteflag.ConfirmationMetrics))(params[0].(*whiteflag.ConfirmationMetrics))
}

func LedgerUpdatedCaller(handler interface{}, params ...interface{}) {
	handler.(func(index milestone.Index, newOutputs utxo.Outputs, newSpents utxo.Spents))(params[0].(milestone.Index), params[1].(utxo.Outputs), params[2].(utxo.Spents))
}

func UTXOOutputCaller(handler interface{}, params ...interface{}) {
	handler.(func(index milestone.Index, output *utxo.Output))(params[0].(milestone.Index), params[1].(*utxo.Output))
}

func UTXOSpentCaller(handler interface{}, params ...interface{}) {
	handler.(func(index milestone.Index, spent *utxo.Spent))(params[0].(milestone.Index), params[1].(*utxo.Spent))
}

type Events struct {
	// block events
	ReceivedNewBlock   *events.Event
	ReceivedKnownBlock *events.Event
	BlockSolid         *events.Event

	// milestone events
	ReceivedNewMilestoneBlock     *events.Event
	LatestMilestoneChanged        *events.Event
	LatestMilestoneIndexChanged   *events.Event
	MilestoneSolidificationFailed *events.Event

	// Events related to milestone confirmation

	// Hint: Ledger is write locked
	ConfirmedMilestoneIndexChanged *events.Event
	// Hint: Ledger is not locked
	MilestoneConfirmed *events.Event
	// Hint: Ledger is not locked
	ConfirmedMilestoneChanged *events.Event
	// Hint: Ledger is not locked
	ConfirmationMetricsUpdated *events.Event
	// Hint: Ledger is not locked
	BlockReferenced *events.Event
	// Hint: Ledger is not locked
	LedgerUpdated *events.Event
	// Hint: Ledger is not locked
	NewUTXOOutput *events.Event
	// Hint: Ledger is not locked
	NewUTXOSpent *events.Event
}
