package logic

import (
	"context"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountLogic looks up payout destinations.
type AccountLogic struct {
	db *gorm.DB
}

// NewAccountLogic creates the account lookup.
func NewAccountLogic(db *gorm.DB) *AccountLogic {
	return &AccountLogic{db: db}
}

// GetByUserID returns the user's payout account, or nil when none exists.
func (a *AccountLogic) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := a.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByOrganizationID returns the org's payout account, or nil when none
// exists.
func (a *AccountLogic) GetByOrganizationID(ctx context.Context, organizationID uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := a.db.WithContext(ctx).First(&account, "organization_id = ?", organizationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByRecipient returns the recipient's payout account, or nil when none
// exists.
func (a *AccountLogic) GetByRecipient(ctx context.Context, recipient model.Recipient) (*model.Account, error) {
	switch recipient.Kind() {
	case model.RecipientUser:
		return a.GetByUserID(ctx, recipient.ID())
	case model.RecipientOrganization:
		return a.GetByOrganizationID(ctx, recipient.ID())
	default:
		return nil, errs.Invariant("unexpected recipient kind: %d", recipient.Kind())
	}
}
