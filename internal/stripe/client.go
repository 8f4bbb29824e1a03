// Package stripe implements the payment processor contract against the
// Stripe API.
package stripe

import (
	"context"

	"github.com/blues/pledges/internal/config"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/logic"
	"github.com/pkg/errors"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Client wraps the Stripe API behind logic.ProcessorClient.
type Client struct {
	api *client.API
}

// Init creates the Stripe client from config.
func Init(cfg config.StripeConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("stripe api key is not configured")
	}

	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	return &Client{api: api}, nil
}

// CreateInvoice creates, itemizes and finalizes a hosted invoice, and
// returns the external references the pledge needs to become payable.
func (c *Client) CreateInvoice(ctx context.Context, params logic.InvoiceParams) (*logic.Invoice, error) {
	customerParams := &stripe.CustomerParams{
		Email: stripe.String(params.Email),
	}
	customerParams.Context = ctx

	customer, err := c.api.Customers.New(customerParams)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create stripe customer for %s", params.Email)
	}

	itemParams := &stripe.InvoiceItemParams{
		Customer:    stripe.String(customer.ID),
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(params.Currency),
		Description: stripe.String(params.Description),
	}
	itemParams.Context = ctx

	if _, err := c.api.InvoiceItems.New(itemParams); err != nil {
		return nil, errors.Wrap(err, "failed to create stripe invoice item")
	}

	invoiceParams := &stripe.InvoiceParams{
		Customer:         stripe.String(customer.ID),
		CollectionMethod: stripe.String(string(stripe.InvoiceCollectionMethodSendInvoice)),
		DaysUntilDue:     stripe.Int64(7),
	}
	invoiceParams.Context = ctx

	invoice, err := c.api.Invoices.New(invoiceParams)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stripe invoice")
	}

	finalizeParams := &stripe.InvoiceFinalizeInvoiceParams{}
	finalizeParams.Context = ctx

	invoice, err = c.api.Invoices.FinalizeInvoice(invoice.ID, finalizeParams)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to finalize stripe invoice %s", invoice.ID)
	}

	result := &logic.Invoice{
		ID:        invoice.ID,
		HostedURL: invoice.HostedInvoiceURL,
	}
	if invoice.PaymentIntent != nil {
		result.PaymentIntentID = invoice.PaymentIntent.ID
	}

	logger.Info("Created stripe invoice %s for %s", invoice.ID, params.Email)
	return result, nil
}

// CreateTransfer moves a payout to a connected account and returns the
// transfer id.
func (c *Client) CreateTransfer(ctx context.Context, params logic.TransferParams) (string, error) {
	transferParams := &stripe.TransferParams{
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(params.Currency),
		Destination: stripe.String(params.DestinationAccountID),
	}
	transferParams.Context = ctx
	transferParams.AddMetadata("source_payment_id", params.SourcePaymentID)

	transfer, err := c.api.Transfers.New(transferParams)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create stripe transfer to %s", params.DestinationAccountID)
	}

	logger.Info("Created stripe transfer %s of %d to %s", transfer.ID, params.Amount, params.DestinationAccountID)
	return transfer.ID, nil
}
