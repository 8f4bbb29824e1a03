package logic

import (
	"context"
	"testing"
	"time"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/model"
	"github.com/blues/pledges/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkPendingByIssueID(t *testing.T) {
	ctx := context.Background()

	t.Run("upfront pledges move to pending and schedule the payout", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateCreated, 5000)

		before := time.Now().UTC()
		require.NoError(t, f.logic.MarkPendingByIssueID(ctx, issue.ID))

		got := f.reloadPledge(pledge.ID)
		assert.Equal(t, model.PledgeStatePending, got.State)

		require.NotNil(t, got.ScheduledPayoutAt)
		assert.WithinDuration(t, before.Add(testDisputeWindow), *got.ScheduledPayoutAt, time.Minute)

		// pledger is told their pledge entered the dispute window
		require.Len(t, f.dispatcher.pledgerNotified, 1)
		assert.Equal(t, notify.NotificationPledgerPledgePending, f.dispatcher.pledgerNotified[0].Type)
	})

	t.Run("pledges in other states are untouched", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		eligible := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateConfirmationPending, 5000)
		refunded := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateRefunded, 3000)

		require.NoError(t, f.logic.MarkPendingByIssueID(ctx, issue.ID))

		assert.Equal(t, model.PledgeStatePending, f.reloadPledge(eligible.ID).State)
		assert.Equal(t, model.PledgeStateRefunded, f.reloadPledge(refunded.ID).State)
	})

	t.Run("pay on completion pledges get an invoice instead", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayOnCompletion, model.PledgeStateCreated, 5000)

		require.NoError(t, f.logic.MarkPendingByIssueID(ctx, issue.ID))

		// state unchanged until the invoice gets paid
		got := f.reloadPledge(pledge.ID)
		assert.Equal(t, model.PledgeStateCreated, got.State)
		require.NotNil(t, got.InvoiceID)
		require.NotNil(t, got.InvoiceHostedURL)
		require.Len(t, f.processor.invoices, 1)
		assert.Equal(t, "backer@example.com", f.processor.invoices[0].Email)
		assert.Equal(t, int64(5000), f.processor.invoices[0].Amount)
	})

	t.Run("already invoiced pledges are not invoiced again", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayOnCompletion, model.PledgeStateCreated, 5000)
		require.NoError(t, f.db.Model(pledge).Update("invoice_id", "in_existing").Error)

		require.NoError(t, f.logic.MarkPendingByIssueID(ctx, issue.ID))
		assert.Empty(t, f.processor.invoices)
	})
}

func TestMarkConfirmationPendingByIssueID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	org := f.createOrg("maintainer")
	now := time.Now().UTC()
	require.NoError(t, f.db.Model(org).Update("linked_at", now).Error)

	issue := f.createIssue(org)
	created := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateCreated, 5000)
	pending := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStatePending, 3000)

	require.NoError(t, f.logic.MarkConfirmationPendingByIssueID(ctx, issue.ID))

	assert.Equal(t, model.PledgeStateConfirmationPending, f.reloadPledge(created.ID).State)
	// pending is already past the confirmation step
	assert.Equal(t, model.PledgeStatePending, f.reloadPledge(pending.ID).State)

	require.Len(t, f.dispatcher.orgNotifications, 1)
	assert.Equal(t, notify.NotificationMaintainerPledgedIssueConfirmationPending, f.dispatcher.orgNotifications[0].Type)
}

func TestHandlePaidInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the pledge to pending and records the payment", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayOnCompletion, model.PledgeStateCreated, 5000)

		require.NoError(t, f.logic.HandlePaidInvoice(ctx, *pledge.PaymentID, 5000, "ch_test"))

		got := f.reloadPledge(pledge.ID)
		assert.Equal(t, model.PledgeStatePending, got.State)
		assert.Equal(t, int64(5000), got.AmountReceived)
		require.NotNil(t, got.ScheduledPayoutAt)

		rows := f.ledgerRows(pledge.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, model.PledgeTransactionTypePledge, rows[0].Type)
		assert.Equal(t, int64(5000), rows[0].Amount)
		require.NotNil(t, rows[0].TransactionID)
		assert.Equal(t, "ch_test", *rows[0].TransactionID)
	})

	t.Run("rejects wrong pledge type", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateCreated, 5000)

		err := f.logic.HandlePaidInvoice(ctx, *pledge.PaymentID, 5000, "ch_test")
		assert.True(t, errs.IsInvariant(err))
	})

	t.Run("rejects wrong state", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayOnCompletion, model.PledgeStateRefunded, 5000)

		err := f.logic.HandlePaidInvoice(ctx, *pledge.PaymentID, 5000, "ch_test")
		assert.True(t, errs.IsNotPermitted(err))
		assert.Empty(t, f.ledgerRows(pledge.ID))
	})

	t.Run("unknown payment id", func(t *testing.T) {
		f := newFixture(t)
		err := f.logic.HandlePaidInvoice(ctx, "pi_missing", 5000, "ch_test")
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestRefundByPaymentID(t *testing.T) {
	ctx := context.Background()

	t.Run("full refund transitions to refunded", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStatePending, 5000)

		require.NoError(t, f.logic.RefundByPaymentID(ctx, *pledge.PaymentID, 5000, "re_test"))

		got := f.reloadPledge(pledge.ID)
		assert.Equal(t, model.PledgeStateRefunded, got.State)
		assert.Equal(t, int64(5000), got.Amount)
		require.NotNil(t, got.RefundedAt)

		rows := f.ledgerRows(pledge.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, model.PledgeTransactionTypeRefund, rows[0].Type)
	})

	t.Run("partial refund decrements the amount and keeps the state", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStatePending, 5000)

		require.NoError(t, f.logic.RefundByPaymentID(ctx, *pledge.PaymentID, 2000, "re_test"))

		got := f.reloadPledge(pledge.ID)
		assert.Equal(t, model.PledgeStatePending, got.State)
		assert.Equal(t, int64(3000), got.Amount)
		require.NotNil(t, got.RefundedAt)
	})

	t.Run("over refund mutates nothing", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStatePending, 5000)

		err := f.logic.RefundByPaymentID(ctx, *pledge.PaymentID, 5001, "re_test")
		assert.True(t, errs.IsNotPermitted(err))

		got := f.reloadPledge(pledge.ID)
		assert.Equal(t, model.PledgeStatePending, got.State)
		assert.Equal(t, int64(5000), got.Amount)
		assert.Nil(t, got.RefundedAt)
		assert.Empty(t, f.ledgerRows(pledge.ID))
	})

	t.Run("refund from non refundable state", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateCancelled, 5000)

		err := f.logic.RefundByPaymentID(ctx, *pledge.PaymentID, 5000, "re_test")
		assert.True(t, errs.IsNotPermitted(err))
	})
}

func TestMarkChargeDisputedByPaymentID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issue := f.createIssue(f.createOrg("maintainer"))

	// chargebacks land regardless of the current state
	for _, state := range []model.PledgeState{
		model.PledgeStateCreated,
		model.PledgeStatePending,
		model.PledgeStateRefunded,
		model.PledgeStateCancelled,
	} {
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, state, 5000)

		require.NoError(t, f.logic.MarkChargeDisputedByPaymentID(ctx, *pledge.PaymentID, 5000, "dp_test"))
		assert.Equal(t, model.PledgeStateChargeDisputed, f.reloadPledge(pledge.ID).State, "from state %s", state)

		rows := f.ledgerRows(pledge.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, model.PledgeTransactionTypeDisputed, rows[0].Type)
	}
}

func TestMarkDisputed(t *testing.T) {
	ctx := context.Background()

	t.Run("disputes a pending pledge", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStatePending, 5000)
		user := f.createUser("angry-backer")

		require.NoError(t, f.logic.MarkDisputed(ctx, pledge.ID, user.ID, "issue was never fixed"))

		got := f.reloadPledge(pledge.ID)
		assert.Equal(t, model.PledgeStateDisputed, got.State)
		assert.Equal(t, "issue was never fixed", got.DisputeReason)
		require.NotNil(t, got.DisputedAt)
		require.NotNil(t, got.DisputedByUserID)
		assert.Equal(t, user.ID, *got.DisputedByUserID)
	})

	t.Run("requires a reason", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStatePending, 5000)
		user := f.createUser("angry-backer")

		err := f.logic.MarkDisputed(ctx, pledge.ID, user.ID, "")
		assert.True(t, errs.IsNotPermitted(err))
	})

	t.Run("refused from a non disputable state", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateRefunded, 5000)
		user := f.createUser("angry-backer")

		err := f.logic.MarkDisputed(ctx, pledge.ID, user.ID, "too late")
		assert.True(t, errs.IsNotPermitted(err))
		assert.Equal(t, model.PledgeStateRefunded, f.reloadPledge(pledge.ID).State)
	})
}

func TestConnectBacker(t *testing.T) {
	ctx := context.Background()

	t.Run("attributes an anonymous pledge", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateCreated, 5000)
		user := f.createUser("late-signup")

		require.NoError(t, f.logic.ConnectBacker(ctx, *pledge.PaymentID, user.ID))

		got := f.reloadPledge(pledge.ID)
		require.NotNil(t, got.ByUserID)
		assert.Equal(t, user.ID, *got.ByUserID)
	})

	t.Run("keeps an existing attribution", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateCreated, 5000)
		original := f.createUser("original-backer")
		require.NoError(t, f.db.Model(pledge).Update("by_user_id", original.ID).Error)

		other := f.createUser("impostor")
		require.NoError(t, f.logic.ConnectBacker(ctx, *pledge.PaymentID, other.ID))

		got := f.reloadPledge(pledge.ID)
		require.NotNil(t, got.ByUserID)
		assert.Equal(t, original.ID, *got.ByUserID)
	})
}

func TestSetIssuePledgedAmountSum(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issue := f.createIssue(f.createOrg("maintainer"))

	f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateCreated, 1000)
	f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStatePending, 2500)
	// refunded pledges are not live commitments
	f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStateRefunded, 9999)

	require.NoError(t, f.logic.SetIssuePledgedAmountSum(ctx, issue.ID))

	var got model.Issue
	require.NoError(t, f.db.First(&got, "id = ?", issue.ID).Error)
	assert.Equal(t, int64(3500), got.PledgedAmountSum)
	require.NotNil(t, got.LastPledgedAt)
}

func TestWebhookSentForLinkedOrg(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	org := f.createOrg("maintainer")
	require.NoError(t, f.db.Model(org).Updates(map[string]interface{}{
		"linked_at":   time.Now().UTC(),
		"webhook_url": "https://hooks.example.com/pledges",
	}).Error)

	issue := f.createIssue(org)
	pledge := f.createPledge(issue, model.PledgeTypePayUpfront, model.PledgeStatePending, 5000)
	user := f.createUser("angry-backer")

	require.NoError(t, f.logic.MarkDisputed(ctx, pledge.ID, user.ID, "not fixed"))

	require.Len(t, f.dispatcher.webhooks, 1)
	assert.Equal(t, notify.WebhookPledgeUpdated, f.dispatcher.webhooks[0])
}
