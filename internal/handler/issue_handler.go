package handler

import (
	"net/http"

	"github.com/blues/pledges/internal/logic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IssueHandler exposes the issue-level pledge operations.
type IssueHandler struct {
	pledgeLogic *logic.PledgeLogic
	rewardLogic *logic.RewardLogic
}

// NewIssueHandler creates the issue handler.
func NewIssueHandler(pledgeLogic *logic.PledgeLogic, rewardLogic *logic.RewardLogic) *IssueHandler {
	return &IssueHandler{
		pledgeLogic: pledgeLogic,
		rewardLogic: rewardLogic,
	}
}

// ConfirmIssueRequest confirms an issue as completed with its payout
// splits.
type ConfirmIssueRequest struct {
	Splits []logic.SplitShare `json:"splits" binding:"required"`
}

// ConfirmIssue creates the issue's payout splits and moves its pledges
// toward payout: upfront pledges to pending, invoiced pledges get their
// invoice sent.
func (h *IssueHandler) ConfirmIssue(c *gin.Context) {
	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid issue id")
		return
	}

	var req ConfirmIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()

	rewards, err := h.rewardLogic.CreateIssueRewards(ctx, issueID, req.Splits)
	if err != nil {
		DomainErrorResponse(c, err)
		return
	}

	if err := h.pledgeLogic.MarkPendingByIssueID(ctx, issueID); err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "issue confirmed", rewards)
}

// MarkSolved moves the issue's upfront pledges to confirmation_pending,
// telling the maintainers a confirmation is waiting.
func (h *IssueHandler) MarkSolved(c *gin.Context) {
	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid issue id")
		return
	}

	if err := h.pledgeLogic.MarkConfirmationPendingByIssueID(c.Request.Context(), issueID); err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "issue marked solved", nil)
}

// GetIssueRewards returns the issue's splits.
func (h *IssueHandler) GetIssueRewards(c *gin.Context) {
	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid issue id")
		return
	}

	rewards, err := h.rewardLogic.ListByIssueID(c.Request.Context(), issueID)
	if err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "rewards fetched", rewards)
}

// GetIssuePledges returns the issue's pledges, active states only.
func (h *IssueHandler) GetIssuePledges(c *gin.Context) {
	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid issue id")
		return
	}

	pledges, err := h.pledgeLogic.ListByIssueID(c.Request.Context(), issueID, false)
	if err != nil {
		DomainErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "pledges fetched", pledges)
}
