package model

import (
	"github.com/google/uuid"
)

// Account is a payout destination at the payment processor, owned by a
// user or an organization.
type Account struct {
	Base

	UserID         *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	OrganizationID *uuid.UUID `json:"organization_id" gorm:"type:uuid;index"`

	// StripeID is the connected account to transfer payouts to.
	StripeID string `json:"stripe_id" gorm:"not null"`
	Country  string `json:"country"`
}
