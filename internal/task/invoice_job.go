package task

import (
	"context"
	"sync"
	"time"

	"github.com/blues/pledges/internal/config"
	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/logic"
	"github.com/blues/pledges/internal/model"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceJob re-attempts invoicing for pay-on-completion pledges that still
// have no invoice. Invoicing normally happens when the issue is confirmed;
// this task catches pledges left behind by a processor outage. Attempts per
// pledge are tracked in memory with exponential backoff and abandoned after
// the configured retry limit.
type InvoiceJob struct {
	db          *gorm.DB
	config      *config.Config
	pledgeLogic *logic.PledgeLogic

	mu       sync.Mutex
	attempts map[uuid.UUID]*invoiceAttempt
}

type invoiceAttempt struct {
	count   int
	nextTry time.Time
}

// NewInvoiceJob creates the invoice retry task.
func NewInvoiceJob(db *gorm.DB, cfg *config.Config, pledgeLogic *logic.PledgeLogic) *InvoiceJob {
	return &InvoiceJob{
		db:          db,
		config:      cfg,
		pledgeLogic: pledgeLogic,
		attempts:    make(map[uuid.UUID]*invoiceAttempt),
	}
}

// GetName returns the task name.
func (j *InvoiceJob) GetName() string {
	return "invoice_retry"
}

// GetSchedule returns the schedule definition.
func (j *InvoiceJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute runs one invoicing sweep.
func (j *InvoiceJob) Execute() {
	ctx := context.Background()
	now := time.Now().UTC()

	var pledges []model.Pledge
	err := j.db.
		Where("type = ?", model.PledgeTypePayOnCompletion).
		Where("invoice_id IS NULL OR invoice_id = ''").
		Where("state IN ?", model.PledgeActiveStates()).
		Where("issue_id IN (?)", j.db.Model(&model.IssueReward{}).Select("issue_id")).
		Find(&pledges).Error
	if err != nil {
		logger.Error("Failed to fetch uninvoiced pledges: %v", err)
		return
	}

	sent := 0
	for i := range pledges {
		pledge := &pledges[i]

		j.mu.Lock()
		att, ok := j.attempts[pledge.ID]
		if !ok {
			att = &invoiceAttempt{}
			j.attempts[pledge.ID] = att
		}
		skip := att.count >= j.config.Task.MaxRetries || now.Before(att.nextTry)
		j.mu.Unlock()
		if skip {
			continue
		}

		err := j.pledgeLogic.SendInvoice(ctx, pledge.ID)
		if err == nil {
			j.forget(pledge.ID)
			sent++
			continue
		}

		if !errs.IsRetryable(err) {
			// Another path invoiced it first, or the pledge moved
			// out of an invoiceable state. Either way, stop tracking.
			logger.Warn("Dropping invoice retry for pledge %s: %v", pledge.ID, err)
			j.forget(pledge.ID)
			continue
		}

		j.mu.Lock()
		att.count++
		att.nextTry = now.Add(Backoff(att.count))
		count, nextTry := att.count, att.nextTry
		j.mu.Unlock()

		if count >= j.config.Task.MaxRetries {
			logger.Error("Abandoning invoice for pledge %s after %d attempts: %v", pledge.ID, count, err)
		} else {
			logger.Warn("Invoice attempt %d failed for pledge %s, next try after %s: %v", count, pledge.ID, nextTry.Format(time.RFC3339), err)
		}
	}

	if sent > 0 {
		logger.Info("Invoice task completed, sent %d invoices", sent)
	}
}

func (j *InvoiceJob) forget(id uuid.UUID) {
	j.mu.Lock()
	delete(j.attempts, id)
	j.mu.Unlock()
}
