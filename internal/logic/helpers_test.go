package logic

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/blues/pledges/internal/database"
	"github.com/blues/pledges/internal/model"
	"github.com/blues/pledges/internal/notify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

// fakeProcessor records calls and can be told to fail.
type fakeProcessor struct {
	invoices  []InvoiceParams
	transfers []TransferParams

	invoiceErr  error
	transferErr error
}

func (p *fakeProcessor) CreateInvoice(_ context.Context, params InvoiceParams) (*Invoice, error) {
	if p.invoiceErr != nil {
		return nil, p.invoiceErr
	}
	p.invoices = append(p.invoices, params)
	return &Invoice{
		ID:              "in_" + uuid.NewString()[:8],
		PaymentIntentID: "pi_" + uuid.NewString()[:8],
		HostedURL:       "https://invoice.example.com/" + uuid.NewString()[:8],
	}, nil
}

func (p *fakeProcessor) CreateTransfer(_ context.Context, params TransferParams) (string, error) {
	if p.transferErr != nil {
		return "", p.transferErr
	}
	p.transfers = append(p.transfers, params)
	return "tr_" + uuid.NewString()[:8], nil
}

// fakeDispatcher records notifications instead of delivering them.
type fakeDispatcher struct {
	orgNotifications  []notify.Notification
	userNotifications []notify.Notification
	pledgerNotified   []notify.Notification
	webhooks          []notify.WebhookEventType
}

func (d *fakeDispatcher) SendToOrgMembers(_ context.Context, _ uuid.UUID, n notify.Notification) {
	d.orgNotifications = append(d.orgNotifications, n)
}

func (d *fakeDispatcher) SendToUser(_ context.Context, _ uuid.UUID, n notify.Notification) {
	d.userNotifications = append(d.userNotifications, n)
}

func (d *fakeDispatcher) SendToPledger(_ context.Context, _ *model.Pledge, n notify.Notification) {
	d.pledgerNotified = append(d.pledgerNotified, n)
}

func (d *fakeDispatcher) SendWebhook(_ context.Context, _ *model.Organization, event notify.WebhookEventType, _ interface{}) {
	d.webhooks = append(d.webhooks, event)
}

// fakeResolver maps usernames to user ids.
type fakeResolver struct {
	users map[string]uuid.UUID
}

func (r *fakeResolver) ResolveGithubUsername(_ context.Context, username string) (*uuid.UUID, error) {
	if id, ok := r.users[username]; ok {
		return &id, nil
	}
	return nil, nil
}

type fixture struct {
	t  *testing.T
	db *gorm.DB

	processor  *fakeProcessor
	dispatcher *fakeDispatcher

	logic *PledgeLogic
}

const testDisputeWindow = 7 * 24 * time.Hour

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testDB(t)
	processor := &fakeProcessor{}
	dispatcher := &fakeDispatcher{}

	return &fixture{
		t:          t,
		db:         db,
		processor:  processor,
		dispatcher: dispatcher,
		logic: NewPledgeLogic(
			db,
			NewLedgerLogic(db),
			NewAccountLogic(db),
			processor,
			dispatcher,
			testDisputeWindow,
		),
	}
}

func (f *fixture) createOrg(name string) *model.Organization {
	f.t.Helper()
	org := &model.Organization{Name: name, BillingEmail: name + "@example.com"}
	require.NoError(f.t, f.db.Create(org).Error)
	return org
}

func (f *fixture) createUser(username string) *model.User {
	f.t.Helper()
	user := &model.User{GithubUsername: username, Email: username + "@example.com"}
	require.NoError(f.t, f.db.Create(user).Error)
	return user
}

func (f *fixture) createIssue(org *model.Organization) *model.Issue {
	f.t.Helper()
	issue := &model.Issue{
		OrganizationID: org.ID,
		RepositoryName: "repo",
		Number:         123,
		Title:          "Fix the flaky build",
	}
	require.NoError(f.t, f.db.Create(issue).Error)
	return issue
}

func (f *fixture) createPledge(issue *model.Issue, typ model.PledgeType, state model.PledgeState, amount int64) *model.Pledge {
	f.t.Helper()
	paymentID := "pi_" + uuid.NewString()[:8]
	pledge := &model.Pledge{
		IssueID:   issue.ID,
		Email:     "backer@example.com",
		Amount:    amount,
		Currency:  "usd",
		Type:      typ,
		State:     state,
		PaymentID: &paymentID,
	}
	require.NoError(f.t, f.db.Create(pledge).Error)
	return pledge
}

func (f *fixture) createAccount(userID, orgID *uuid.UUID) *model.Account {
	f.t.Helper()
	account := &model.Account{
		UserID:         userID,
		OrganizationID: orgID,
		StripeID:       "acct_" + uuid.NewString()[:8],
		Country:        "US",
	}
	require.NoError(f.t, f.db.Create(account).Error)
	return account
}

func (f *fixture) createReward(issue *model.Issue, shareThousands int64, userID, orgID *uuid.UUID) *model.IssueReward {
	f.t.Helper()
	reward := &model.IssueReward{
		IssueID:        issue.ID,
		ShareThousands: shareThousands,
		UserID:         userID,
		OrganizationID: orgID,
	}
	require.NoError(f.t, f.db.Create(reward).Error)
	return reward
}

func (f *fixture) reloadPledge(id uuid.UUID) *model.Pledge {
	f.t.Helper()
	var pledge model.Pledge
	require.NoError(f.t, f.db.First(&pledge, "id = ?", id).Error)
	return &pledge
}

func (f *fixture) ledgerRows(pledgeID uuid.UUID) []model.PledgeTransaction {
	f.t.Helper()
	var rows []model.PledgeTransaction
	require.NoError(f.t, f.db.Where("pledge_id = ?", pledgeID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

// payable backdates the payout schedule so the dispute window has elapsed.
func (f *fixture) payable(pledge *model.Pledge) {
	f.t.Helper()
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(f.t, f.db.Model(pledge).Update("scheduled_payout_at", past).Error)
}
