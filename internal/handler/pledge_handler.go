package handler

import (
	"net/http"

	"github.com/blues/pledges/internal/logic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PledgeHandler exposes the backoffice operations on pledges.
type PledgeHandler struct {
	pledgeLogic *logic.PledgeLogic
	ledger      *logic.LedgerLogic
	spendLogic  *logic.SpendLogic
}

// NewPledgeHandler creates the pledge handler.
func NewPledgeHandler(pledgeLogic *logic.PledgeLogic, ledger *logic.LedgerLogic, spendLogic *logic.SpendLogic) *PledgeHandler {
	return &PledgeHandler{
		pledgeLogic: pledgeLogic,
		ledger:      ledger,
		spendLogic:  spendLogic,
	}
}

// GetPledge returns a pledge with its relations.
func (h *PledgeHandler) GetPledge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid pledge id")
		return
	}

	pledge, err := h.pledgeLogic.GetWithLoaded(c.Request.Context(), id)
	if err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "pledge fetched", pledge)
}

// GetPledgeTransactions returns a pledge's ledger rows.
func (h *PledgeHandler) GetPledgeTransactions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid pledge id")
		return
	}

	rows, err := h.ledger.ListByPledgeID(id)
	if err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "transactions fetched", rows)
}

// DisputePledgeRequest is the payer-initiated dispute request.
type DisputePledgeRequest struct {
	ByUserID uuid.UUID `json:"by_user_id" binding:"required"`
	Reason   string    `json:"reason" binding:"required"`
}

// DisputePledge raises a payer-initiated dispute.
func (h *PledgeHandler) DisputePledge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid pledge id")
		return
	}

	var req DisputePledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.pledgeLogic.MarkDisputed(c.Request.Context(), id, req.ByUserID, req.Reason); err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "pledge disputed", nil)
}

// TransferRequest triggers one payout.
type TransferRequest struct {
	IssueRewardID uuid.UUID `json:"issue_reward_id" binding:"required"`
}

// CreateTransfer pays out one split of a pledge.
func (h *PledgeHandler) CreateTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid pledge id")
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.pledgeLogic.Transfer(c.Request.Context(), id, req.IssueRewardID); err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "transfer created", nil)
}

// ConnectBackerRequest attributes an anonymous pledge to a user.
type ConnectBackerRequest struct {
	PaymentID string    `json:"payment_id" binding:"required"`
	UserID    uuid.UUID `json:"user_id" binding:"required"`
}

// ConnectBacker attributes an anonymous pledge after signup.
func (h *PledgeHandler) ConnectBacker(c *gin.Context) {
	var req ConnectBackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.pledgeLogic.ConnectBacker(c.Request.Context(), req.PaymentID, req.UserID); err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "backer connected", nil)
}

// SpendingCheckRequest asks whether a pledge would exceed spending caps.
type SpendingCheckRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Amount int64     `json:"amount" binding:"required"`
}

// CheckSpending verifies a prospective pledge against the organization's
// monthly caps before checkout starts.
func (h *PledgeHandler) CheckSpending(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid organization id")
		return
	}

	var req SpendingCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.spendLogic.AssertCanPledge(c.Request.Context(), orgID, req.UserID, req.Amount); err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "pledge allowed", nil)
}
