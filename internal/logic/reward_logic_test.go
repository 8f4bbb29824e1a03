package logic

import (
	"context"
	"testing"

	"github.com/blues/pledges/internal/errs"
	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSplits(t *testing.T) {
	r := &RewardLogic{}
	orgID := uuid.New()

	cases := []struct {
		name   string
		splits []SplitShare
		want   bool
	}{
		{
			name:   "single full share",
			splits: []SplitShare{{ShareThousands: 1000, GithubUsername: "alice"}},
			want:   true,
		},
		{
			name: "split between user and org",
			splits: []SplitShare{
				{ShareThousands: 700, GithubUsername: "alice"},
				{ShareThousands: 300, OrganizationID: &orgID},
			},
			want: true,
		},
		{
			name:   "sum under 1000",
			splits: []SplitShare{{ShareThousands: 999, GithubUsername: "alice"}},
			want:   false,
		},
		{
			name: "sum over 1000",
			splits: []SplitShare{
				{ShareThousands: 600, GithubUsername: "alice"},
				{ShareThousands: 600, GithubUsername: "bob"},
			},
			want: false,
		},
		{
			name:   "both recipient hints set",
			splits: []SplitShare{{ShareThousands: 1000, GithubUsername: "alice", OrganizationID: &orgID}},
			want:   false,
		},
		{
			name:   "no recipient hint",
			splits: []SplitShare{{ShareThousands: 1000}},
			want:   false,
		},
		{
			name:   "empty set",
			splits: nil,
			want:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.ValidateSplits(tc.splits))
		})
	}
}

func TestCreateIssueRewards(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves known usernames and keeps unknown hints", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		alice := f.createUser("alice")

		rewards := NewRewardLogic(f.db, &fakeResolver{users: map[string]uuid.UUID{"alice": alice.ID}})
		created, err := rewards.CreateIssueRewards(ctx, issue.ID, []SplitShare{
			{ShareThousands: 500, GithubUsername: "alice"},
			{ShareThousands: 500, GithubUsername: "stranger"},
		})
		require.NoError(t, err)
		require.Len(t, created, 2)

		require.NotNil(t, created[0].UserID)
		assert.Equal(t, alice.ID, *created[0].UserID)

		recipient, ok := created[0].Recipient()
		require.True(t, ok)
		assert.Equal(t, model.RecipientUser, recipient.Kind())

		// unresolved hint stays raw, recipient not yet known
		assert.Nil(t, created[1].UserID)
		assert.Equal(t, "stranger", created[1].GithubUsername)
		_, ok = created[1].Recipient()
		assert.False(t, ok)
	})

	t.Run("rejects invalid splits", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		rewards := NewRewardLogic(f.db, &fakeResolver{})

		_, err := rewards.CreateIssueRewards(ctx, issue.ID, []SplitShare{
			{ShareThousands: 900, GithubUsername: "alice"},
		})
		assert.True(t, errs.IsNotPermitted(err))
	})

	t.Run("refuses a second set of splits", func(t *testing.T) {
		f := newFixture(t)
		issue := f.createIssue(f.createOrg("maintainer"))
		rewards := NewRewardLogic(f.db, &fakeResolver{})

		_, err := rewards.CreateIssueRewards(ctx, issue.ID, []SplitShare{
			{ShareThousands: 1000, GithubUsername: "alice"},
		})
		require.NoError(t, err)

		_, err = rewards.CreateIssueRewards(ctx, issue.ID, []SplitShare{
			{ShareThousands: 1000, GithubUsername: "bob"},
		})
		assert.True(t, errs.IsNotPermitted(err))

		listed, err := rewards.ListByIssueID(ctx, issue.ID)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})
}

func TestShareAmount(t *testing.T) {
	pledge := &model.Pledge{Amount: 9999}

	cases := []struct {
		shareThousands int64
		want           int64
	}{
		{1000, 9999},
		{500, 4999}, // floor, residual cent stays unallocated
		{333, 3329},
		{0, 0},
	}

	for _, tc := range cases {
		reward := &model.IssueReward{ShareThousands: tc.shareThousands}
		assert.Equal(t, tc.want, reward.ShareAmount(pledge), "share %d", tc.shareThousands)
	}
}
