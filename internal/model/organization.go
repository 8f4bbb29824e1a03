package model

import (
	"time"
)

// Organization both receives pledges (as the maintainer org of an issue)
// and sends them (as a paying team with spending limits).
type Organization struct {
	Base

	Name         string `json:"name" gorm:"not null;uniqueIndex"`
	BillingEmail string `json:"billing_email"`

	// Monthly spending caps in minor units. Zero means unlimited.
	PerUserMonthlySpendingLimit int64 `json:"per_user_monthly_spending_limit"`
	TotalMonthlySpendingLimit   int64 `json:"total_monthly_spending_limit"`

	// LinkedAt is set once the org has onboarded. Webhooks about pledges
	// on its issues are only sent to linked orgs.
	LinkedAt   *time.Time `json:"linked_at"`
	WebhookURL string     `json:"webhook_url"`
}

// Linked reports whether the org has onboarded.
func (o *Organization) Linked() bool {
	return o.LinkedAt != nil
}
