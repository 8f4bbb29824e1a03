package logic

import (
	"context"
	"time"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SpendLogic enforces an organization's monthly spending caps before a
// pledge is accepted.
type SpendLogic struct {
	db *gorm.DB
}

// NewSpendLogic creates the spend-limit guard.
func NewSpendLogic(db *gorm.DB) *SpendLogic {
	return &SpendLogic{db: db}
}

// MonthRange returns the first and the last second of the month ts is in.
//
// The end is found by adding 35 days to the first of the month, truncating
// back to the first of the resulting month, and subtracting one second.
func MonthRange(ts time.Time) (time.Time, time.Time) {
	start := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())

	// 35 days always lands in the next month
	end := start.Add(35 * 24 * time.Hour)
	end = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	end = end.Add(-time.Second)

	return start, end
}

// SumPledgesPeriod sums the amounts pledged by an organization in the
// current calendar month, optionally narrowed to pledges created by one
// user.
func (s *SpendLogic) SumPledgesPeriod(ctx context.Context, organizationID uuid.UUID, userID *uuid.UUID) (int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Pledge{}).
		Where("by_organization_id = ?", organizationID)

	if userID != nil {
		q = q.Where("created_by_user_id = ?", *userID)
	}

	start, end := MonthRange(utcNow())
	q = q.Where("created_at >= ? AND created_at <= ?", start, end)

	var sum int64
	if err := q.Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

// AssertCanPledge checks a new pledge of the given amount against the
// organization's per-user and total monthly caps, then requires a billing
// contact. Checks run in that order and fail fast; a zero cap means
// unlimited.
func (s *SpendLogic) AssertCanPledge(ctx context.Context, organizationID, userID uuid.UUID, amount int64) error {
	var org model.Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", organizationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errs.NotFound("organization not found with id: %s", organizationID)
		}
		return err
	}

	if org.PerUserMonthlySpendingLimit > 0 {
		userPreSpend, err := s.SumPledgesPeriod(ctx, organizationID, &userID)
		if err != nil {
			return err
		}
		if userPreSpend+amount > org.PerUserMonthlySpendingLimit {
			return errs.BadRequest("the user spending limit has been reached")
		}
	}

	if org.TotalMonthlySpendingLimit > 0 {
		orgPreSpend, err := s.SumPledgesPeriod(ctx, organizationID, nil)
		if err != nil {
			return err
		}
		if orgPreSpend+amount > org.TotalMonthlySpendingLimit {
			return errs.BadRequest("the team spending limit has been reached")
		}
	}

	if org.BillingEmail == "" {
		return errs.BadRequest("the team has no configured billing email")
	}

	return nil
}
