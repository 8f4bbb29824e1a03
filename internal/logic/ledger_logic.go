package logic

import (
	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerLogic appends immutable transaction rows for pledges. Rows are
// never updated or deleted.
type LedgerLogic struct {
	db *gorm.DB
}

// NewLedgerLogic creates the ledger recorder.
func NewLedgerLogic(db *gorm.DB) *LedgerLogic {
	return &LedgerLogic{db: db}
}

// Record appends a ledger row inside the caller's transaction.
func (l *LedgerLogic) Record(tx *gorm.DB, row *model.PledgeTransaction) error {
	return tx.Create(row).Error
}

// RecordPledge appends a pledge (payment received) row.
func (l *LedgerLogic) RecordPledge(tx *gorm.DB, pledgeID uuid.UUID, amount int64, transactionID string) error {
	return l.Record(tx, &model.PledgeTransaction{
		PledgeID:      pledgeID,
		Type:          model.PledgeTransactionTypePledge,
		Amount:        amount,
		TransactionID: &transactionID,
	})
}

// RecordRefund appends a refund row.
func (l *LedgerLogic) RecordRefund(tx *gorm.DB, pledgeID uuid.UUID, amount int64, transactionID string) error {
	return l.Record(tx, &model.PledgeTransaction{
		PledgeID:      pledgeID,
		Type:          model.PledgeTransactionTypeRefund,
		Amount:        amount,
		TransactionID: &transactionID,
	})
}

// RecordDispute appends a disputed row.
func (l *LedgerLogic) RecordDispute(tx *gorm.DB, pledgeID uuid.UUID, amount int64, transactionID string) error {
	return l.Record(tx, &model.PledgeTransaction{
		PledgeID:      pledgeID,
		Type:          model.PledgeTransactionTypeDisputed,
		Amount:        amount,
		TransactionID: &transactionID,
	})
}

// RecordTransfer appends a transfer row for a (pledge, reward) pair.
func (l *LedgerLogic) RecordTransfer(tx *gorm.DB, pledgeID, issueRewardID uuid.UUID, amount int64) error {
	return l.Record(tx, &model.PledgeTransaction{
		PledgeID:      pledgeID,
		Type:          model.PledgeTransactionTypeTransfer,
		Amount:        amount,
		IssueRewardID: &issueRewardID,
	})
}

// GetTransaction finds one ledger row matching the non-zero filters.
// Returns nil without error when no row matches.
func (l *LedgerLogic) GetTransaction(tx *gorm.DB, typ model.PledgeTransactionType, pledgeID, issueRewardID *uuid.UUID) (*model.PledgeTransaction, error) {
	q := tx.Model(&model.PledgeTransaction{})
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	if pledgeID != nil {
		q = q.Where("pledge_id = ?", *pledgeID)
	}
	if issueRewardID != nil {
		q = q.Where("issue_reward_id = ?", *issueRewardID)
	}

	var row model.PledgeTransaction
	if err := q.First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByPledgeID returns the pledge's ledger rows, oldest first.
func (l *LedgerLogic) ListByPledgeID(pledgeID uuid.UUID) ([]model.PledgeTransaction, error) {
	var rows []model.PledgeTransaction
	if err := l.db.Where("pledge_id = ?", pledgeID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
