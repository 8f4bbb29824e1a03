// Package notify carries structured events out of the pledge core.
//
// Delivery is fire-after-commit and best effort: the state machine commits
// first, then hands the event to the dispatcher. A crash between commit and
// delivery loses the event; that gap is accepted.
package notify

import (
	"github.com/google/uuid"
)

// NotificationType names a notification event.
type NotificationType string

const (
	NotificationPledgerPledgePending                      NotificationType = "pledger_pledge_pending"
	NotificationMaintainerPledgedIssuePending             NotificationType = "maintainer_pledged_issue_pending"
	NotificationMaintainerPledgedIssueConfirmationPending NotificationType = "maintainer_pledged_issue_confirmation_pending"
	NotificationRewardPaid                                NotificationType = "reward_paid"
)

// WebhookEventType names an outbound webhook event.
type WebhookEventType string

const (
	WebhookPledgeUpdated WebhookEventType = "pledge.updated"
)

// Notification is one structured event with its audience-independent
// payload. The audience is chosen by the Dispatcher method used to send it.
type Notification struct {
	Type     NotificationType `json:"type"`
	IssueID  uuid.UUID        `json:"issue_id"`
	PledgeID *uuid.UUID       `json:"pledge_id,omitempty"`
	Payload  interface{}      `json:"payload"`
}

// PledgerPledgePendingPayload tells a pledger their pledge entered the
// dispute window.
type PledgerPledgePendingPayload struct {
	PledgeAmount string `json:"pledge_amount"`
	PledgeDate   string `json:"pledge_date"`
	PledgeType   string `json:"pledge_type"`
	IssueTitle   string `json:"issue_title"`
	IssueOrgName string `json:"issue_org_name"`
	IssueNumber  int64  `json:"issue_number"`
}

// MaintainerPledgedIssuePayload tells org members about the pledge sum on
// an issue that moved to pending or confirmation_pending.
type MaintainerPledgedIssuePayload struct {
	PledgeAmountSum string `json:"pledge_amount_sum"`
	IssueTitle      string `json:"issue_title"`
	IssueOrgName    string `json:"issue_org_name"`
	IssueNumber     int64  `json:"issue_number"`
}

// RewardPaidPayload tells a recipient their payout was transferred.
type RewardPaidPayload struct {
	PaidOutAmount string `json:"paid_out_amount"`
	IssueTitle    string `json:"issue_title"`
	IssueOrgName  string `json:"issue_org_name"`
	IssueNumber   int64  `json:"issue_number"`
}
