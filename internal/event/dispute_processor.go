package event

import (
	"context"

	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/logic"
)

// DisputeEvent is the processor's chargeback event.
type DisputeEvent struct {
	PaymentID     string `json:"payment_id"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

// DisputeProcessor handles chargebacks.
type DisputeProcessor struct {
	pledgeLogic *logic.PledgeLogic
}

// NewDisputeProcessor creates the chargeback handler.
func NewDisputeProcessor(pledgeLogic *logic.PledgeLogic) *DisputeProcessor {
	return &DisputeProcessor{pledgeLogic: pledgeLogic}
}

// Process forwards the chargeback to the state machine. Chargebacks
// override whatever state the pledge is in.
func (p *DisputeProcessor) Process(ctx context.Context, ev DisputeEvent) error {
	logger.Info("Handling chargeback of %d for payment %s", ev.Amount, ev.PaymentID)
	return p.pledgeLogic.MarkChargeDisputedByPaymentID(ctx, ev.PaymentID, ev.Amount, ev.TransactionID)
}
