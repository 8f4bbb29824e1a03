package handler

import (
	"net/http"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/event"
	"github.com/blues/pledges/internal/logger"
	"github.com/gin-gonic/gin"
)

// Processor event types accepted on the webhook endpoint.
const (
	webhookPaymentIntentSucceeded = "payment_intent.succeeded"
	webhookChargeRefunded         = "charge.refunded"
	webhookChargeDisputeCreated   = "charge.dispute.created"
)

// WebhookRequest is the inbound processor event.
type WebhookRequest struct {
	Type string `json:"type" binding:"required"`

	PaymentID      string `json:"payment_id" binding:"required"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	TransactionID  string `json:"transaction_id"`
	LatestCharge   string `json:"latest_charge"`
}

// WebhookHandler routes processor events to the reconciliation handlers.
type WebhookHandler struct {
	payments *event.PaymentProcessor
	refunds  *event.RefundProcessor
	disputes *event.DisputeProcessor
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(
	payments *event.PaymentProcessor,
	refunds *event.RefundProcessor,
	disputes *event.DisputeProcessor,
) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		refunds:  refunds,
		disputes: disputes,
	}
}

// HandleStripeWebhook processes one inbound processor event. Retryable
// failures return 500 so the processor redelivers; everything else is
// final and must not be blindly retried.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid webhook payload: "+err.Error())
		return
	}

	ctx := c.Request.Context()

	var err error
	switch req.Type {
	case webhookPaymentIntentSucceeded:
		err = h.payments.Process(ctx, event.PaymentIntentSucceeded{
			PaymentID:      req.PaymentID,
			AmountReceived: req.AmountReceived,
			LatestCharge:   req.LatestCharge,
		})
	case webhookChargeRefunded:
		err = h.refunds.Process(ctx, event.RefundEvent{
			PaymentID:     req.PaymentID,
			Amount:        req.Amount,
			TransactionID: req.TransactionID,
		})
	case webhookChargeDisputeCreated:
		err = h.disputes.Process(ctx, event.DisputeEvent{
			PaymentID:     req.PaymentID,
			Amount:        req.Amount,
			TransactionID: req.TransactionID,
		})
	default:
		// Unknown event types are acknowledged so the processor stops
		// redelivering them.
		SuccessResponse(c, http.StatusOK, "event ignored", nil)
		return
	}

	if err != nil {
		if errs.IsInvariant(err) {
			logger.Error("Invariant violation handling %s for payment %s: %v", req.Type, req.PaymentID, err)
			ErrorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "event processed", nil)
}
