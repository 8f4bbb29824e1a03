package task

import (
	"context"
	"time"

	"github.com/blues/pledges/internal/config"
	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/logic"
	"github.com/blues/pledges/internal/model"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// PayoutJob pays out pledges whose dispute window has elapsed. Each
// (pledge, reward) pair is its own unit of work: a rejection on one pair
// never blocks the others, and pairs that already have a transfer row are
// skipped.
type PayoutJob struct {
	db          *gorm.DB
	config      *config.Config
	pledgeLogic *logic.PledgeLogic
}

// NewPayoutJob creates the payout task.
func NewPayoutJob(db *gorm.DB, cfg *config.Config, pledgeLogic *logic.PledgeLogic) *PayoutJob {
	return &PayoutJob{
		db:          db,
		config:      cfg,
		pledgeLogic: pledgeLogic,
	}
}

// GetName returns the task name.
func (j *PayoutJob) GetName() string {
	return "pledge_payout"
}

// GetSchedule returns the schedule definition.
func (j *PayoutJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute runs one payout sweep.
func (j *PayoutJob) Execute() {
	ctx := context.Background()

	var pledges []model.Pledge
	err := j.db.
		Where("state IN ?", model.PledgeToPaidStates()).
		Where("scheduled_payout_at IS NOT NULL AND scheduled_payout_at <= ?", time.Now().UTC()).
		Find(&pledges).Error
	if err != nil {
		logger.Error("Failed to fetch payable pledges: %v", err)
		return
	}

	transferred := 0
	for i := range pledges {
		pledge := &pledges[i]

		var rewards []model.IssueReward
		if err := j.db.Where("issue_id = ?", pledge.IssueID).Find(&rewards).Error; err != nil {
			logger.Error("Failed to fetch rewards for issue %s: %v", pledge.IssueID, err)
			continue
		}

		for k := range rewards {
			reward := &rewards[k]

			if _, ok := reward.Recipient(); !ok {
				// unresolved username hint, picked up once linked
				continue
			}

			var existing int64
			err := j.db.Model(&model.PledgeTransaction{}).
				Where("pledge_id = ? AND issue_reward_id = ? AND type = ?",
					pledge.ID, reward.ID, model.PledgeTransactionTypeTransfer).
				Count(&existing).Error
			if err != nil {
				logger.Error("Failed to check transfer for pledge %s reward %s: %v", pledge.ID, reward.ID, err)
				continue
			}
			if existing > 0 {
				continue
			}

			if err := j.pledgeLogic.Transfer(ctx, pledge.ID, reward.ID); err != nil {
				switch {
				case errs.IsNotPermitted(err):
					logger.Warn("Skipping payout for pledge %s reward %s: %v", pledge.ID, reward.ID, err)
				case errs.IsRetryable(err):
					logger.Error("Transient payout failure for pledge %s reward %s, will retry next run: %v", pledge.ID, reward.ID, err)
				default:
					logger.Error("Failed to pay out pledge %s reward %s: %v", pledge.ID, reward.ID, err)
				}
				continue
			}
			transferred++
		}
	}

	if transferred > 0 {
		logger.Info("Payout task completed, created %d transfers", transferred)
	}
}
