package logic

import (
	"context"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/logger"
	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SplitShare is one requested split of an issue's payout. Exactly one of
// GithubUsername and OrganizationID must be set.
type SplitShare struct {
	ShareThousands int64      `json:"share_thousands"`
	GithubUsername string     `json:"github_username,omitempty"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

// RewardLogic validates and creates issue payout splits.
type RewardLogic struct {
	db       *gorm.DB
	resolver IdentityResolver
}

// NewRewardLogic creates the split calculator.
func NewRewardLogic(db *gorm.DB, resolver IdentityResolver) *RewardLogic {
	return &RewardLogic{db: db, resolver: resolver}
}

// ValidateSplits checks that every split names exactly one recipient hint
// and the shares sum to exactly 1000 thousands. Boolean contract: any
// violation fails the whole set.
func (r *RewardLogic) ValidateSplits(splits []SplitShare) bool {
	var sum int64
	for _, s := range splits {
		sum += s.ShareThousands

		if s.GithubUsername != "" && s.OrganizationID != nil {
			return false
		}
		if s.GithubUsername == "" && s.OrganizationID == nil {
			return false
		}
	}

	return sum == 1000
}

// CreateIssueRewards creates the splits for an issue. One-shot: fails if
// the issue already has any split. Username hints are resolved to known
// users best effort; unresolved hints are kept as raw text and linked
// later by identity linking.
func (r *RewardLogic) CreateIssueRewards(ctx context.Context, issueID uuid.UUID, splits []SplitShare) ([]model.IssueReward, error) {
	if !r.ValidateSplits(splits) {
		return nil, errs.NotPermitted("invalid split configuration")
	}

	var existing int64
	if err := r.db.WithContext(ctx).Model(&model.IssueReward{}).
		Where("issue_id = ?", issueID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, errs.NotPermitted("issue already has splits set: issue_id=%s", issueID)
	}

	rewards := make([]model.IssueReward, 0, len(splits))
	for _, split := range splits {
		var userID *uuid.UUID
		if split.GithubUsername != "" {
			resolved, err := r.resolver.ResolveGithubUsername(ctx, split.GithubUsername)
			if err != nil {
				logger.Warn("Failed to resolve username %s, keeping raw hint: %v", split.GithubUsername, err)
			} else {
				userID = resolved
			}
		}

		rewards = append(rewards, model.IssueReward{
			IssueID:        issueID,
			ShareThousands: split.ShareThousands,
			GithubUsername: split.GithubUsername,
			OrganizationID: split.OrganizationID,
			UserID:         userID,
		})
	}

	if err := r.db.WithContext(ctx).Create(&rewards).Error; err != nil {
		return nil, err
	}

	return rewards, nil
}

// GetReward loads one split.
func (r *RewardLogic) GetReward(ctx context.Context, id uuid.UUID) (*model.IssueReward, error) {
	var reward model.IssueReward
	if err := r.db.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("issue reward not found with id: %s", id)
		}
		return nil, err
	}
	return &reward, nil
}

// ListByIssueID returns an issue's splits.
func (r *RewardLogic) ListByIssueID(ctx context.Context, issueID uuid.UUID) ([]model.IssueReward, error) {
	var rewards []model.IssueReward
	if err := r.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}
