package router

import (
	"github.com/blues/pledges/internal/handler"
	"github.com/gin-gonic/gin"
)

// Setup builds the HTTP surface: the processor webhook endpoint plus the
// backoffice operations that drive the state machine.
func Setup(
	webhookHandler *handler.WebhookHandler,
	pledgeHandler *handler.PledgeHandler,
	issueHandler *handler.IssueHandler,
) *gin.Engine {
	r := gin.Default()

	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "pledges",
		})
	})

	r.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	v1 := r.Group("/api/v1")
	{
		pledges := v1.Group("/pledges")
		{
			pledges.GET("/:id", pledgeHandler.GetPledge)
			pledges.GET("/:id/transactions", pledgeHandler.GetPledgeTransactions)
			pledges.POST("/:id/dispute", pledgeHandler.DisputePledge)
			pledges.POST("/:id/transfers", pledgeHandler.CreateTransfer)
			pledges.POST("/connect", pledgeHandler.ConnectBacker)
		}

		issues := v1.Group("/issues")
		{
			issues.POST("/:id/confirm", issueHandler.ConfirmIssue)
			issues.POST("/:id/solved", issueHandler.MarkSolved)
			issues.GET("/:id/rewards", issueHandler.GetIssueRewards)
			issues.GET("/:id/pledges", issueHandler.GetIssuePledges)
		}

		orgs := v1.Group("/organizations")
		{
			orgs.POST("/:id/spending-check", pledgeHandler.CheckSpending)
		}
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
