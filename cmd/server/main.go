package main

import (
	"log"
	"time"

	"github.com/blues/pledges/internal/config"
	"github.com/blues/pledges/internal/database"
	"github.com/blues/pledges/internal/event"
	"github.com/blues/pledges/internal/handler"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/logic"
	"github.com/blues/pledges/internal/notify"
	"github.com/blues/pledges/internal/router"
	"github.com/blues/pledges/internal/stripe"
	"github.com/blues/pledges/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	level := logger.ParseLogLevel(cfg.Log.Level)
	var appLogger *logger.Logger
	var err error
	if cfg.Log.Output == "file" {
		appLogger, err = logger.NewWithRotation(level, logger.RotationConfig{Filename: cfg.Log.File})
	} else {
		appLogger, err = logger.New(level)
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(appLogger)

	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	stripeClient, err := stripe.Init(cfg.Stripe)
	if err != nil {
		logger.Fatal("Failed to initialize stripe client: %v", err)
	}

	dispatcher, err := notify.NewAsyncDispatcher(cfg.Payout.NotifyWorkers, notify.LogSink{})
	if err != nil {
		logger.Fatal("Failed to initialize notification dispatcher: %v", err)
	}
	defer dispatcher.Release()

	ledger := logic.NewLedgerLogic(db)
	accounts := logic.NewAccountLogic(db)
	identity := logic.NewIdentityLogic(db)
	spendLogic := logic.NewSpendLogic(db)
	rewardLogic := logic.NewRewardLogic(db, identity)
	pledgeLogic := logic.NewPledgeLogic(
		db,
		ledger,
		accounts,
		stripeClient,
		dispatcher,
		time.Duration(cfg.Payout.DisputeWindowDays)*24*time.Hour,
	)

	webhookHandler := handler.NewWebhookHandler(
		event.NewPaymentProcessor(db, pledgeLogic, ledger),
		event.NewRefundProcessor(pledgeLogic),
		event.NewDisputeProcessor(pledgeLogic),
	)
	pledgeHandler := handler.NewPledgeHandler(pledgeLogic, ledger, spendLogic)
	issueHandler := handler.NewIssueHandler(pledgeLogic, rewardLogic)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.Setup(webhookHandler, pledgeHandler, issueHandler)

	manager := task.Start(db, cfg, pledgeLogic)
	defer manager.Stop()

	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
