package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/model"
	"github.com/blues/pledges/internal/notify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PledgeListener is invoked synchronously after a pledge transition has
// been committed. Listeners are injected at construction; there is no
// global registry.
type PledgeListener interface {
	PledgeUpdated(ctx context.Context, pledge *model.Pledge) error
}

// PledgeLogic owns the pledge state machine. All state transitions go
// through it: each one runs as a conditional update (current state must be
// in the expected set) inside its own transaction, and emits exactly one
// pledge-updated event after commit.
type PledgeLogic struct {
	db            *gorm.DB
	ledger        *LedgerLogic
	accounts      *AccountLogic
	processor     ProcessorClient
	dispatcher    notify.Dispatcher
	listeners     []PledgeListener
	disputeWindow time.Duration
}

// NewPledgeLogic creates the state machine.
func NewPledgeLogic(
	db *gorm.DB,
	ledger *LedgerLogic,
	accounts *AccountLogic,
	processor ProcessorClient,
	dispatcher notify.Dispatcher,
	disputeWindow time.Duration,
	listeners ...PledgeListener,
) *PledgeLogic {
	return &PledgeLogic{
		db:            db,
		ledger:        ledger,
		accounts:      accounts,
		processor:     processor,
		dispatcher:    dispatcher,
		listeners:     listeners,
		disputeWindow: disputeWindow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func stateIn(state model.PledgeState, states []model.PledgeState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

// dollarString renders minor units for notification payloads.
func dollarString(amount int64) string {
	return fmt.Sprintf("$%.2f", float64(amount)/100)
}

// GetByID loads a pledge.
func (l *PledgeLogic) GetByID(ctx context.Context, id uuid.UUID) (*model.Pledge, error) {
	var pledge model.Pledge
	if err := l.db.WithContext(ctx).First(&pledge, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("pledge not found with id: %s", id)
		}
		return nil, err
	}
	return &pledge, nil
}

// GetWithLoaded loads a pledge with its full relation graph.
func (l *PledgeLogic) GetWithLoaded(ctx context.Context, id uuid.UUID) (*model.Pledge, error) {
	var pledge model.Pledge
	if err := l.db.WithContext(ctx).
		Preload("Issue").
		Preload("Issue.Organization").
		First(&pledge, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("pledge not found with id: %s", id)
		}
		return nil, err
	}
	return &pledge, nil
}

// GetByPaymentID looks a pledge up by its external payment reference.
func (l *PledgeLogic) GetByPaymentID(ctx context.Context, paymentID string) (*model.Pledge, error) {
	var pledge model.Pledge
	if err := l.db.WithContext(ctx).First(&pledge, "payment_id = ?", paymentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("pledge not found with payment_id: %s", paymentID)
		}
		return nil, err
	}
	return &pledge, nil
}

// ListByIssueID returns an issue's pledges, active states only unless
// allStates is set.
func (l *PledgeLogic) ListByIssueID(ctx context.Context, issueID uuid.UUID, allStates bool) ([]model.Pledge, error) {
	q := l.db.WithContext(ctx).Where("issue_id = ?", issueID)
	if !allStates {
		q = q.Where("state IN ?", model.PledgeActiveStates())
	}

	var pledges []model.Pledge
	if err := q.Order("created_at ASC").Find(&pledges).Error; err != nil {
		return nil, err
	}
	return pledges, nil
}

// TransitionByIssueID moves all of an issue's pay-upfront pledges whose
// current state is in fromStates to toState. Each pledge is updated in its
// own transaction; a failure on one pledge does not block its siblings, so
// partial success across the batch is possible. Returns whether any pledge
// changed. The callback runs after each successful transition.
func (l *PledgeLogic) TransitionByIssueID(
	ctx context.Context,
	issueID uuid.UUID,
	fromStates []model.PledgeState,
	toState model.PledgeState,
	callback func(ctx context.Context, pledge *model.Pledge),
) (bool, error) {
	var pledges []model.Pledge
	if err := l.db.WithContext(ctx).
		Where("issue_id = ? AND state IN ? AND type = ?", issueID, fromStates, model.PledgeTypePayUpfront).
		Find(&pledges).Error; err != nil {
		return false, err
	}

	values := map[string]interface{}{"state": toState}
	if toState == model.PledgeStatePending {
		values["scheduled_payout_at"] = utcNow().Add(l.disputeWindow)
	}

	changed := false
	for i := range pledges {
		pledge := &pledges[i]

		// Conditional update: only wins if the state is still in
		// fromStates, so concurrent transitions serialize on the row.
		res := l.db.WithContext(ctx).
			Model(&model.Pledge{}).
			Where("id = ? AND state IN ?", pledge.ID, fromStates).
			Updates(values)
		if res.Error != nil {
			logger.Error("Failed to transition pledge %s to %s: %v", pledge.ID, toState, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		changed = true
		l.afterPledgeUpdated(ctx, pledge.ID)

		if callback != nil {
			callback(ctx, pledge)
		}
	}

	return changed, nil
}

// MarkConfirmationPendingByIssueID moves an issue's upfront pledges to
// confirmation_pending once the issue is marked solved, and notifies the
// maintainers that a confirmation is waiting.
func (l *PledgeLogic) MarkConfirmationPendingByIssueID(ctx context.Context, issueID uuid.UUID) error {
	changed, err := l.TransitionByIssueID(
		ctx,
		issueID,
		model.PledgeToConfirmationPendingStates(),
		model.PledgeStateConfirmationPending,
		nil,
	)
	if err != nil {
		return err
	}

	if changed {
		l.sendMaintainerNotification(ctx, issueID, notify.NotificationMaintainerPledgedIssueConfirmationPending)
	}
	return nil
}

// MarkPendingByIssueID is called when the maintainer confirms the issue as
// completed. Upfront pledges transition to pending and start the dispute
// window; pay-on-completion pledges without an invoice get one sent.
// Invoiced pledges move to pending later, when their invoice is paid.
func (l *PledgeLogic) MarkPendingByIssueID(ctx context.Context, issueID uuid.UUID) error {
	anyUpfrontChanged, err := l.TransitionByIssueID(
		ctx,
		issueID,
		model.PledgeToPendingStates(),
		model.PledgeStatePending,
		func(ctx context.Context, pledge *model.Pledge) {
			l.sendPledgerPendingNotification(ctx, pledge.ID)
		},
	)
	if err != nil {
		return err
	}

	anyInvoicesSent, err := l.sendInvoices(ctx, issueID)
	if err != nil {
		return err
	}

	if anyUpfrontChanged || anyInvoicesSent {
		l.sendMaintainerNotification(ctx, issueID, notify.NotificationMaintainerPledgedIssuePending)
	}
	return nil
}

// HandlePaidInvoice transitions a pay-on-completion pledge to pending once
// its invoice has been paid, recording the received amount.
func (l *PledgeLogic) HandlePaidInvoice(ctx context.Context, paymentID string, amountReceived int64, transactionID string) error {
	pledge, err := l.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}

	if !stateIn(pledge.State, model.PledgeToPendingStates()) {
		return errs.NotPermitted("pledge %s is in unexpected state: %s", pledge.ID, pledge.State)
	}
	if pledge.Type != model.PledgeTypePayOnCompletion {
		return errs.Invariant("pledge %s is of unexpected type: %s", pledge.ID, pledge.Type)
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Pledge{}).
			Where("id = ? AND state IN ?", pledge.ID, model.PledgeToPendingStates()).
			Updates(map[string]interface{}{
				"state":               model.PledgeStatePending,
				"amount_received":     amountReceived,
				"scheduled_payout_at": utcNow().Add(l.disputeWindow),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotPermitted("pledge %s was transitioned concurrently", pledge.ID)
		}

		return l.ledger.RecordPledge(tx, pledge.ID, amountReceived, transactionID)
	})
	if err != nil {
		return err
	}

	l.afterPledgeUpdated(ctx, pledge.ID)
	return nil
}

// RefundByPaymentID applies a processor refund. A refund of the full
// remaining amount transitions the pledge to refunded; a partial refund
// only decrements the amount and leaves the state unchanged; a refund of
// more than the remaining amount fails without mutating anything.
func (l *PledgeLogic) RefundByPaymentID(ctx context.Context, paymentID string, amount int64, transactionID string) error {
	pledge, err := l.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}

	if !stateIn(pledge.State, model.PledgeToRefundedStates()) {
		return errs.NotPermitted("refunding error, unexpected pledge state: %s", pledge.State)
	}
	if amount > pledge.Amount {
		return errs.NotPermitted("refunding error, refund amount %d exceeds pledge amount %d", amount, pledge.Amount)
	}

	values := map[string]interface{}{"refunded_at": utcNow()}
	if amount == pledge.Amount {
		values["state"] = model.PledgeStateRefunded
	} else {
		values["amount"] = gorm.Expr("amount - ?", amount)
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Pledge{}).
			Where("id = ? AND state IN ?", pledge.ID, model.PledgeToRefundedStates()).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotPermitted("pledge %s was transitioned concurrently", pledge.ID)
		}

		return l.ledger.RecordRefund(tx, pledge.ID, amount, transactionID)
	})
	if err != nil {
		return err
	}

	l.afterPledgeUpdated(ctx, pledge.ID)
	return nil
}

// MarkChargeDisputedByPaymentID applies a processor chargeback. A
// chargeback can hit from any state, so no state precondition is checked.
func (l *PledgeLogic) MarkChargeDisputedByPaymentID(ctx context.Context, paymentID string, amount int64, transactionID string) error {
	pledge, err := l.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Pledge{}).
			Where("id = ?", pledge.ID).
			Update("state", model.PledgeStateChargeDisputed).Error; err != nil {
			return err
		}

		return l.ledger.RecordDispute(tx, pledge.ID, amount, transactionID)
	})
	if err != nil {
		return err
	}

	l.afterPledgeUpdated(ctx, pledge.ID)
	return nil
}

// MarkDisputed applies a dispute raised by the payer through us instead of
// through the processor. Unlike a chargeback it is only allowed from
// disputable states and requires a reason and an actor.
func (l *PledgeLogic) MarkDisputed(ctx context.Context, pledgeID, byUserID uuid.UUID, reason string) error {
	if reason == "" {
		return errs.NotPermitted("a dispute requires a reason")
	}

	pledge, err := l.GetByID(ctx, pledgeID)
	if err != nil {
		return err
	}
	if !stateIn(pledge.State, model.PledgeToDisputedStates()) {
		return errs.NotPermitted("pledge is in unexpected state: %s", pledge.State)
	}

	res := l.db.WithContext(ctx).Model(&model.Pledge{}).
		Where("id = ? AND state IN ?", pledgeID, model.PledgeToDisputedStates()).
		Updates(map[string]interface{}{
			"state":               model.PledgeStateDisputed,
			"dispute_reason":      reason,
			"disputed_at":         utcNow(),
			"disputed_by_user_id": byUserID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NotPermitted("pledge %s was transitioned concurrently", pledgeID)
	}

	l.afterPledgeUpdated(ctx, pledgeID)
	return nil
}

// ConnectBacker attributes an anonymous pledge to a user after they sign
// up. A no-op when the pledge already has a payer.
func (l *PledgeLogic) ConnectBacker(ctx context.Context, paymentID string, userID uuid.UUID) error {
	pledge, err := l.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}

	if pledge.ByUserID != nil || pledge.ByOrganizationID != nil {
		return nil
	}

	return l.db.WithContext(ctx).Model(&model.Pledge{}).
		Where("id = ?", pledge.ID).
		Update("by_user_id", userID).Error
}

// SetIssuePledgedAmountSum refreshes the denormalized pledge aggregates on
// the issue row.
func (l *PledgeLogic) SetIssuePledgedAmountSum(ctx context.Context, issueID uuid.UUID) error {
	pledges, err := l.ListByIssueID(ctx, issueID, false)
	if err != nil {
		return err
	}

	var summed int64
	var lastPledgedAt *time.Time
	for i := range pledges {
		summed += pledges[i].Amount
		if lastPledgedAt == nil || pledges[i].CreatedAt.After(*lastPledgedAt) {
			t := pledges[i].CreatedAt
			lastPledgedAt = &t
		}
	}

	return l.db.WithContext(ctx).Model(&model.Issue{}).
		Where("id = ?", issueID).
		Updates(map[string]interface{}{
			"pledged_amount_sum": summed,
			"last_pledged_at":    lastPledgedAt,
		}).Error
}

// afterPledgeUpdated runs once per successful transition, after commit: it
// reloads the pledge with its relations, invokes the listener list, and
// sends the org webhook when the receiving organization is linked.
// Failures here are logged and dropped; the state change is already
// durable.
func (l *PledgeLogic) afterPledgeUpdated(ctx context.Context, pledgeID uuid.UUID) {
	full, err := l.GetWithLoaded(ctx, pledgeID)
	if err != nil {
		logger.Error("Failed to reload pledge %s after update: %v", pledgeID, err)
		return
	}

	for _, listener := range l.listeners {
		if err := listener.PledgeUpdated(ctx, full); err != nil {
			logger.Error("Pledge listener failed for pledge %s: %v", pledgeID, err)
		}
	}

	org := &full.Issue.Organization
	if org.Linked() {
		l.dispatcher.SendWebhook(ctx, org, notify.WebhookPledgeUpdated, full)
	}
}

// sendPledgerPendingNotification tells the pledger their pledge entered
// the dispute window.
func (l *PledgeLogic) sendPledgerPendingNotification(ctx context.Context, pledgeID uuid.UUID) {
	pledge, err := l.GetWithLoaded(ctx, pledgeID)
	if err != nil {
		logger.Error("Failed to load pledge %s for pledger notification: %v", pledgeID, err)
		return
	}

	l.dispatcher.SendToPledger(ctx, pledge, notify.Notification{
		Type:     notify.NotificationPledgerPledgePending,
		IssueID:  pledge.IssueID,
		PledgeID: &pledge.ID,
		Payload: notify.PledgerPledgePendingPayload{
			PledgeAmount: dollarString(pledge.Amount),
			PledgeDate:   pledge.CreatedAt.Format("2006-01-02"),
			PledgeType:   string(pledge.Type),
			IssueTitle:   pledge.Issue.Title,
			IssueOrgName: pledge.Issue.Organization.Name,
			IssueNumber:  pledge.Issue.Number,
		},
	})
}

// sendMaintainerNotification tells the receiving org's members about the
// summed pledges on an issue. Skipped when the org has not onboarded.
func (l *PledgeLogic) sendMaintainerNotification(ctx context.Context, issueID uuid.UUID, typ notify.NotificationType) {
	pledges, err := l.ListByIssueID(ctx, issueID, false)
	if err != nil {
		logger.Error("Failed to list pledges for issue %s: %v", issueID, err)
		return
	}
	if len(pledges) == 0 {
		return
	}

	var issue model.Issue
	if err := l.db.WithContext(ctx).Preload("Organization").First(&issue, "id = ?", issueID).Error; err != nil {
		logger.Error("Failed to load issue %s for maintainer notification: %v", issueID, err)
		return
	}
	if !issue.Organization.Linked() {
		return
	}

	var sum int64
	for i := range pledges {
		sum += pledges[i].Amount
	}

	l.dispatcher.SendToOrgMembers(ctx, issue.OrganizationID, notify.Notification{
		Type:    typ,
		IssueID: issueID,
		Payload: notify.MaintainerPledgedIssuePayload{
			PledgeAmountSum: dollarString(sum),
			IssueTitle:      issue.Title,
			IssueOrgName:    issue.Organization.Name,
			IssueNumber:     issue.Number,
		},
	})
}
