package logic

import (
	"context"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/model"
	"github.com/blues/pledges/internal/notify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transfer pays out one split of a pledge to its recipient. Preconditions:
// the pledge is in a payable state, the dispute window has elapsed, the
// split belongs to the pledge's issue, the recipient has a payout account,
// and no transfer for this (pledge, split) pair exists yet. Every
// precondition failure is a non-retryable rejection.
//
// The duplicate check runs inside the transaction that records the
// transfer row, before any money movement.
func (l *PledgeLogic) Transfer(ctx context.Context, pledgeID, issueRewardID uuid.UUID) error {
	pledge, err := l.GetByID(ctx, pledgeID)
	if err != nil {
		return err
	}
	if !stateIn(pledge.State, model.PledgeToPaidStates()) {
		return errs.NotPermitted("pledge is not in a payable state: %s", pledge.State)
	}
	if pledge.ScheduledPayoutAt != nil && pledge.ScheduledPayoutAt.After(utcNow()) {
		return errs.NotPermitted("pledge is not ready for payout (still in dispute window)")
	}
	if pledge.PaymentID == nil {
		return errs.Invariant("pledge %s has no payment_id", pledge.ID)
	}

	var reward model.IssueReward
	if err := l.db.WithContext(ctx).First(&reward, "id = ?", issueRewardID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errs.NotFound("issue reward not found with id: %s", issueRewardID)
		}
		return err
	}
	if reward.IssueID != pledge.IssueID {
		return errs.NotFound("issue reward %s is not valid for pledge %s", issueRewardID, pledgeID)
	}
	if reward.ShareThousands < 0 || reward.ShareThousands > 1000 {
		return errs.NotPermitted("unexpected split share: %d", reward.ShareThousands)
	}

	recipient, ok := reward.Recipient()
	if !ok {
		return errs.NotPermitted("split recipient has not been linked to an account yet")
	}

	account, err := l.accounts.GetByRecipient(ctx, recipient)
	if err != nil {
		return err
	}
	if account == nil {
		return errs.NotPermitted("split recipient has no payout account")
	}

	payoutAmount := reward.ShareAmount(pledge)

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := l.ledger.GetTransaction(tx, model.PledgeTransactionTypeTransfer, &pledge.ID, &reward.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.NotPermitted("a transfer for this pledge and reward already exists, refusing to make another one")
		}

		if _, err := l.processor.CreateTransfer(ctx, TransferParams{
			DestinationAccountID: account.StripeID,
			Amount:               payoutAmount,
			Currency:             pledge.Currency,
			SourcePaymentID:      *pledge.PaymentID,
		}); err != nil {
			return errs.Retryable(err, "failed to create processor transfer for pledge %s", pledge.ID)
		}

		return l.ledger.RecordTransfer(tx, pledge.ID, reward.ID, payoutAmount)
	})
	if err != nil {
		return err
	}

	l.sendTransferCreatedNotification(ctx, pledge, &reward, payoutAmount)
	return nil
}

// sendTransferCreatedNotification tells the recipient their payout was
// transferred.
func (l *PledgeLogic) sendTransferCreatedNotification(ctx context.Context, pledge *model.Pledge, reward *model.IssueReward, paidOutAmount int64) {
	var issue model.Issue
	if err := l.db.WithContext(ctx).Preload("Organization").First(&issue, "id = ?", pledge.IssueID).Error; err != nil {
		logger.Error("Failed to load issue %s for payout notification: %v", pledge.IssueID, err)
		return
	}

	n := notify.Notification{
		Type:     notify.NotificationRewardPaid,
		IssueID:  pledge.IssueID,
		PledgeID: &pledge.ID,
		Payload: notify.RewardPaidPayload{
			PaidOutAmount: dollarString(paidOutAmount),
			IssueTitle:    issue.Title,
			IssueOrgName:  issue.Organization.Name,
			IssueNumber:   issue.Number,
		},
	}

	recipient, ok := reward.Recipient()
	if !ok {
		return
	}
	switch recipient.Kind() {
	case model.RecipientOrganization:
		l.dispatcher.SendToOrgMembers(ctx, recipient.ID(), n)
	case model.RecipientUser:
		l.dispatcher.SendToUser(ctx, recipient.ID(), n)
	}
}
