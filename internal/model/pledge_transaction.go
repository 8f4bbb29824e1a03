package model

import (
	"github.com/google/uuid"
)

// PledgeTransaction is an immutable ledger row for a financial event tied
// to a pledge. Rows are append-only: they are never updated or deleted.
//
// At most one transfer row may exist per (pledge_id, issue_reward_id)
// pair; that uniqueness is the idempotency guard against double payouts.
type PledgeTransaction struct {
	Base

	PledgeID uuid.UUID             `json:"pledge_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_pledge_reward"`
	Type     PledgeTransactionType `json:"type" gorm:"not null"`
	Amount   int64                 `json:"amount" gorm:"not null"`

	// TransactionID is the external processor reference, when one exists.
	TransactionID *string `json:"transaction_id"`

	// IssueRewardID is set on transfer rows only. The composite unique
	// index with PledgeID backs the transfer idempotency guard; rows with
	// a null reward id never collide.
	IssueRewardID *uuid.UUID `json:"issue_reward_id" gorm:"type:uuid;index;uniqueIndex:idx_pledge_reward"`

	Pledge Pledge `json:"pledge,omitempty" gorm:"foreignKey:PledgeID"`
}

// PledgeTransactionType is the kind of ledger entry.
type PledgeTransactionType string

const (
	PledgeTransactionTypePledge   PledgeTransactionType = "pledge"
	PledgeTransactionTypeRefund   PledgeTransactionType = "refund"
	PledgeTransactionTypeDisputed PledgeTransactionType = "disputed"
	PledgeTransactionTypeTransfer PledgeTransactionType = "transfer"
)
