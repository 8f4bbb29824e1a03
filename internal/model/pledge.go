package model

import (
	"time"

	"github.com/google/uuid"
)

// Pledge is a monetary commitment against an issue, trackable through
// payment and payout. Amounts are integer minor-currency units.
type Pledge struct {
	Base

	IssueID uuid.UUID `json:"issue_id" gorm:"type:uuid;not null;index"`

	// Payer identity: at most one of ByUserID / ByOrganizationID is set.
	// Anonymous pledges have neither and keep Email for later attribution.
	ByUserID         *uuid.UUID `json:"by_user_id" gorm:"type:uuid;index"`
	ByOrganizationID *uuid.UUID `json:"by_organization_id" gorm:"type:uuid;index"`
	CreatedByUserID  *uuid.UUID `json:"created_by_user_id" gorm:"type:uuid"`
	Email            string     `json:"email"`

	Amount         int64  `json:"amount" gorm:"not null"`
	AmountReceived int64  `json:"amount_received"`
	Currency       string `json:"currency" gorm:"not null;default:'usd'"`

	Type  PledgeType  `json:"type" gorm:"not null"`
	State PledgeState `json:"state" gorm:"not null;index"`

	// PaymentID is the external payment reference and identifies at most
	// one pledge.
	PaymentID        *string `json:"payment_id" gorm:"uniqueIndex"`
	InvoiceID        *string `json:"invoice_id"`
	InvoiceHostedURL *string `json:"invoice_hosted_url"`

	RefundedAt        *time.Time `json:"refunded_at"`
	DisputedAt        *time.Time `json:"disputed_at"`
	DisputeReason     string     `json:"dispute_reason"`
	DisputedByUserID  *uuid.UUID `json:"disputed_by_user_id" gorm:"type:uuid"`
	ScheduledPayoutAt *time.Time `json:"scheduled_payout_at"`

	Issue Issue `json:"issue,omitempty" gorm:"foreignKey:IssueID"`
}

// PledgeState is the pledge lifecycle state.
type PledgeState string

const (
	// Initiated by the payer; no money has been received yet.
	PledgeStateInitiated PledgeState = "initiated"
	// Created and funded (upfront) or committed (on completion / directly).
	PledgeStateCreated PledgeState = "created"
	// The issue was marked solved; waiting for maintainer confirmation.
	PledgeStateConfirmationPending PledgeState = "confirmation_pending"
	// Confirmed; funds held through the dispute window before payout.
	PledgeStatePending PledgeState = "pending"
	// Fully refunded before payout.
	PledgeStateRefunded PledgeState = "refunded"
	// Disputed by the payer through us.
	PledgeStateDisputed PledgeState = "disputed"
	// Disputed by the payer through the card processor (chargeback).
	PledgeStateChargeDisputed PledgeState = "charge_disputed"
	// Cancelled by an admin.
	PledgeStateCancelled PledgeState = "cancelled"
)

// PledgeActiveStates are the states counted as live commitments.
func PledgeActiveStates() []PledgeState {
	return []PledgeState{
		PledgeStateCreated,
		PledgeStateConfirmationPending,
		PledgeStatePending,
		PledgeStateDisputed,
	}
}

// PledgeToConfirmationPendingStates are the states a pledge can move to
// confirmation_pending from.
func PledgeToConfirmationPendingStates() []PledgeState {
	return []PledgeState{PledgeStateCreated}
}

// PledgeToPendingStates are the states a pledge can move to pending from.
func PledgeToPendingStates() []PledgeState {
	return []PledgeState{PledgeStateCreated, PledgeStateConfirmationPending}
}

// PledgeToDisputedStates are the states a payer-initiated dispute is
// allowed from. Chargebacks ignore this set.
func PledgeToDisputedStates() []PledgeState {
	return []PledgeState{
		PledgeStateCreated,
		PledgeStateConfirmationPending,
		PledgeStatePending,
	}
}

// PledgeToRefundedStates are the states a refund is allowed from.
func PledgeToRefundedStates() []PledgeState {
	return []PledgeState{PledgeStateCreated, PledgeStatePending, PledgeStateDisputed}
}

// PledgeToPaidStates are the states a payout transfer is allowed from.
func PledgeToPaidStates() []PledgeState {
	return []PledgeState{PledgeStatePending, PledgeStateDisputed}
}

// PledgeType describes how the pledge is paid.
type PledgeType string

const (
	// Paid and captured when the pledge is made.
	PledgeTypePayUpfront PledgeType = "pay_upfront"
	// Invoiced once the issue is confirmed completed.
	PledgeTypePayOnCompletion PledgeType = "pay_on_completion"
	// Paid directly to the recipient, outside of our payout flow.
	PledgeTypePayDirectly PledgeType = "pay_directly"
)
