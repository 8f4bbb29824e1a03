package logic

import (
	"context"
	"fmt"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SendInvoice creates a processor invoice for a pay-on-completion pledge
// that does not have one yet and stores its external references. The
// pledge becomes payable through the invoice's payment intent.
func (l *PledgeLogic) SendInvoice(ctx context.Context, pledgeID uuid.UUID) error {
	pledge, err := l.GetWithLoaded(ctx, pledgeID)
	if err != nil {
		return err
	}

	if pledge.InvoiceID != nil {
		return errs.NotPermitted("pledge %s already has an invoice", pledge.ID)
	}
	if pledge.Type != model.PledgeTypePayOnCompletion {
		return errs.NotPermitted("pledge %s is not of type pay_on_completion", pledge.ID)
	}

	email, err := l.pledgerEmail(ctx, pledge)
	if err != nil {
		return err
	}

	invoice, err := l.processor.CreateInvoice(ctx, InvoiceParams{
		Email:    email,
		Amount:   pledge.Amount,
		Currency: pledge.Currency,
		Description: fmt.Sprintf("Pledge for %s/%s#%d: %s",
			pledge.Issue.Organization.Name,
			pledge.Issue.RepositoryName,
			pledge.Issue.Number,
			pledge.Issue.Title),
	})
	if err != nil {
		return errs.Retryable(err, "failed to create invoice for pledge %s", pledge.ID)
	}

	return l.db.WithContext(ctx).Model(&model.Pledge{}).
		Where("id = ?", pledge.ID).
		Updates(map[string]interface{}{
			"payment_id":         invoice.PaymentIntentID,
			"invoice_id":         invoice.ID,
			"invoice_hosted_url": invoice.HostedURL,
		}).Error
}

// sendInvoices sends invoices for the issue's pay-on-completion pledges
// that still lack one and notifies each invoiced pledger. Returns whether
// any invoice was sent.
func (l *PledgeLogic) sendInvoices(ctx context.Context, issueID uuid.UUID) (bool, error) {
	pledges, err := l.ListByIssueID(ctx, issueID, false)
	if err != nil {
		return false, err
	}

	anySent := false
	for i := range pledges {
		pledge := &pledges[i]
		if pledge.Type != model.PledgeTypePayOnCompletion {
			continue
		}
		if pledge.InvoiceID != nil {
			continue
		}

		if err := l.SendInvoice(ctx, pledge.ID); err != nil {
			return anySent, err
		}
		anySent = true

		l.sendPledgerPendingNotification(ctx, pledge.ID)
	}

	return anySent, nil
}

// pledgerEmail resolves who to bill for a pledge.
func (l *PledgeLogic) pledgerEmail(ctx context.Context, pledge *model.Pledge) (string, error) {
	switch {
	case pledge.ByUserID != nil:
		var user model.User
		if err := l.db.WithContext(ctx).First(&user, "id = ?", *pledge.ByUserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return "", errs.NotFound("pledging user not found with id: %s", *pledge.ByUserID)
			}
			return "", err
		}
		return user.Email, nil

	case pledge.ByOrganizationID != nil:
		var org model.Organization
		if err := l.db.WithContext(ctx).First(&org, "id = ?", *pledge.ByOrganizationID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return "", errs.NotFound("pledging organization not found with id: %s", *pledge.ByOrganizationID)
			}
			return "", err
		}
		if org.BillingEmail == "" {
			return "", errs.BadRequest("the pledging organization has no configured billing email")
		}
		return org.BillingEmail, nil

	case pledge.Email != "":
		return pledge.Email, nil

	default:
		return "", errs.NotPermitted("pledge %s has no billable payer", pledge.ID)
	}
}
