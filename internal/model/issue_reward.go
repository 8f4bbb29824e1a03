package model

import (
	"github.com/google/uuid"
)

// IssueReward is one split of an issue's payout: a proportional share
// assigned to a recipient. For a given issue the shares sum to exactly
// 1000 thousands, and splits are immutable once created.
type IssueReward struct {
	Base

	IssueID        uuid.UUID `json:"issue_id" gorm:"type:uuid;not null;index"`
	ShareThousands int64     `json:"share_thousands" gorm:"not null"`

	// Recipient: exactly one of UserID / OrganizationID once resolved.
	// GithubUsername keeps the raw hint for recipients that have not
	// signed up yet; identity linking resolves it later.
	UserID         *uuid.UUID `json:"user_id" gorm:"type:uuid"`
	OrganizationID *uuid.UUID `json:"organization_id" gorm:"type:uuid"`
	GithubUsername string     `json:"github_username"`
}

// RecipientKind tags the Recipient variant.
type RecipientKind int

const (
	RecipientUser RecipientKind = iota
	RecipientOrganization
)

// Recipient is the resolved payout receiver of a split: a user or an
// organization, never both. Construct via UserRecipient / OrgRecipient.
type Recipient struct {
	kind RecipientKind
	id   uuid.UUID
}

// UserRecipient builds a user recipient.
func UserRecipient(id uuid.UUID) Recipient {
	return Recipient{kind: RecipientUser, id: id}
}

// OrgRecipient builds an organization recipient.
func OrgRecipient(id uuid.UUID) Recipient {
	return Recipient{kind: RecipientOrganization, id: id}
}

// Kind returns the variant tag.
func (r Recipient) Kind() RecipientKind { return r.kind }

// ID returns the recipient's account-holder id.
func (r Recipient) ID() uuid.UUID { return r.id }

// Recipient returns the resolved receiver of the reward, or false when the
// username hint has not been linked to an account yet.
func (r *IssueReward) Recipient() (Recipient, bool) {
	switch {
	case r.UserID != nil:
		return UserRecipient(*r.UserID), true
	case r.OrganizationID != nil:
		return OrgRecipient(*r.OrganizationID), true
	default:
		return Recipient{}, false
	}
}

// ShareAmount computes this split's cut of a pledge using floor division.
// Residual minor units under rounding stay unallocated.
func (r *IssueReward) ShareAmount(pledge *Pledge) int64 {
	return pledge.Amount * r.ShareThousands / 1000
}
