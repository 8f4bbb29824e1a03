// Package event holds the reconciliation handlers that translate payment
// processor events into pledge state machine transitions.
//
// Duplicate delivery of the same external event is not deduplicated here:
// each call appends its own ledger row. Callers that need at-most-once
// semantics must dedup on the external transaction id before dispatching.
package event

import (
	"context"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/logic"
	"github.com/blues/pledges/internal/model"
	"gorm.io/gorm"
)

// PaymentIntentSucceeded is the processor's payment-success event.
type PaymentIntentSucceeded struct {
	PaymentID      string `json:"payment_id"`
	AmountReceived int64  `json:"amount_received"`
	LatestCharge   string `json:"latest_charge"`
}

// PaymentProcessor handles successful payments.
type PaymentProcessor struct {
	db          *gorm.DB
	pledgeLogic *logic.PledgeLogic
	ledger      *logic.LedgerLogic
}

// NewPaymentProcessor creates the payment-success handler.
func NewPaymentProcessor(db *gorm.DB, pledgeLogic *logic.PledgeLogic, ledger *logic.LedgerLogic) *PaymentProcessor {
	return &PaymentProcessor{
		db:          db,
		pledgeLogic: pledgeLogic,
		ledger:      ledger,
	}
}

// Process records the payment on the ledger and, for pay-on-completion
// pledges, forwards to the invoice-paid transition. Any other pledge type
// reaching this event is a programming error, surfaced as fatal rather
// than retried.
func (p *PaymentProcessor) Process(ctx context.Context, ev PaymentIntentSucceeded) error {
	pledge, err := p.pledgeLogic.GetByPaymentID(ctx, ev.PaymentID)
	if err != nil {
		return err
	}

	logger.Info("Handling payment success for payment %s (pledge %s)", ev.PaymentID, pledge.ID)

	if err := p.ledger.RecordPledge(p.db.WithContext(ctx), pledge.ID, ev.AmountReceived, ev.LatestCharge); err != nil {
		return err
	}

	if pledge.Type == model.PledgeTypePayOnCompletion {
		return p.pledgeLogic.HandlePaidInvoice(ctx, ev.PaymentID, ev.AmountReceived, ev.LatestCharge)
	}

	return errs.Invariant("unhandled pledge type at payment success: %s", pledge.Type)
}
