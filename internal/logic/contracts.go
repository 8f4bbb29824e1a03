package logic

import (
	"context"

	"github.com/google/uuid"
)

// ProcessorClient is the narrow contract against the payment processor.
// The concrete implementation lives in internal/stripe; tests use fakes.
type ProcessorClient interface {
	// CreateInvoice creates a hosted invoice for a pay-on-completion
	// pledge and returns its external references.
	CreateInvoice(ctx context.Context, params InvoiceParams) (*Invoice, error)

	// CreateTransfer moves a payout amount to a connected account and
	// returns the external transfer id.
	CreateTransfer(ctx context.Context, params TransferParams) (string, error)
}

// InvoiceParams describes the invoice to create.
type InvoiceParams struct {
	Email       string // billing recipient
	Amount      int64  // minor units
	Currency    string
	Description string
}

// Invoice is the processor's view of a created invoice.
type Invoice struct {
	ID              string
	PaymentIntentID string
	HostedURL       string
}

// TransferParams describes a balance transfer to a payout account.
type TransferParams struct {
	DestinationAccountID string // connected account at the processor
	Amount               int64  // minor units
	Currency             string
	SourcePaymentID      string // payment the funds originate from
}

// IdentityResolver resolves a raw username hint to a known account id,
// when one exists.
type IdentityResolver interface {
	ResolveGithubUsername(ctx context.Context, username string) (*uuid.UUID, error)
}
