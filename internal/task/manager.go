package task

import (
	"github.com/blues/pledges/internal/config"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Job is a scheduled background task.
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager owns the background task scheduler.
type Manager struct {
	scheduler   gocron.Scheduler
	db          *gorm.DB
	config      *config.Config
	pledgeLogic *logic.PledgeLogic
}

// NewManager creates a task manager.
func NewManager(db *gorm.DB, cfg *config.Config, pledgeLogic *logic.PledgeLogic) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler:   s,
		db:          db,
		config:      cfg,
		pledgeLogic: pledgeLogic,
	}
}

// Start creates a manager, registers all tasks and starts the scheduler.
func Start(db *gorm.DB, cfg *config.Config, pledgeLogic *logic.PledgeLogic) *Manager {
	manager := NewManager(db, cfg, pledgeLogic)

	manager.RegisterJobs()
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs registers all background tasks.
func (m *Manager) RegisterJobs() {
	m.register(NewPayoutJob(m.db, m.config, m.pledgeLogic))
	m.register(NewInvoiceJob(m.db, m.config, m.pledgeLogic))
}

func (m *Manager) register(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop shuts down the scheduler.
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
