package event

import (
	"context"

	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/logic"
)

// RefundEvent is the processor's refund event.
type RefundEvent struct {
	PaymentID     string `json:"payment_id"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

// RefundProcessor handles refunds.
type RefundProcessor struct {
	pledgeLogic *logic.PledgeLogic
}

// NewRefundProcessor creates the refund handler.
func NewRefundProcessor(pledgeLogic *logic.PledgeLogic) *RefundProcessor {
	return &RefundProcessor{pledgeLogic: pledgeLogic}
}

// Process forwards the refund to the state machine.
func (p *RefundProcessor) Process(ctx context.Context, ev RefundEvent) error {
	logger.Info("Handling refund of %d for payment %s", ev.Amount, ev.PaymentID)
	return p.pledgeLogic.RefundByPaymentID(ctx, ev.PaymentID, ev.Amount, ev.TransactionID)
}
